package types

// Label is the ground-truth or predicted class of a part.
type Label string

const (
	LabelOK     Label = "OK"
	LabelDefect Label = "DEFECT"
)

// Valid reports whether l is one of the two known labels.
func (l Label) Valid() bool {
	return l == LabelOK || l == LabelDefect
}

// Part is one row of sensor data. It is treated as immutable once loaded.
type Part struct {
	ID           int     `json:"part_id"`
	VibrationRMS float64 `json:"vibration_rms"`
	AcousticDB   float64 `json:"acoustic_db"`
	Label        Label   `json:"label"`
}

// Band is an inclusive confidence range [Low, High].
type Band struct {
	Low  float64 `yaml:"low" json:"low"`
	High float64 `yaml:"high" json:"high"`
}

// Contains reports whether v lies within the band, both ends inclusive.
func (b Band) Contains(v float64) bool {
	return v >= b.Low && v <= b.High
}

// Policy holds the tunable inputs of one evaluation run.
//
// The engine uses every field as given. Range checks and weight
// normalisation are the caller's job (see NormalizeWeights).
type Policy struct {
	// ConfidenceThreshold is the score at or above which a part is flagged DEFECT.
	ConfidenceThreshold float64 `yaml:"confidence_threshold" json:"confidence_threshold"`

	// ManualBand is the confidence range that triggers a human double-check.
	ManualBand Band `yaml:"manual_band" json:"manual_band"`

	VibrationWeight float64 `yaml:"vibration_weight" json:"vibration_weight"`
	AcousticWeight  float64 `yaml:"acoustic_weight" json:"acoustic_weight"`

	// SamplingRate is the fraction (0–1) of parts randomly inspected at end of line.
	SamplingRate float64 `yaml:"sampling_rate" json:"sampling_rate"`
}

// NormalizeWeights returns a copy of p whose channel weights sum to 1.
// If both weights are zero (or their sum is not positive) p is returned unchanged.
func (p Policy) NormalizeWeights() Policy {
	total := p.VibrationWeight + p.AcousticWeight
	if total <= 0 {
		return p
	}
	p.VibrationWeight /= total
	p.AcousticWeight /= total
	return p
}
