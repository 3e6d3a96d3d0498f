package compute

import (
	"errors"
	"fmt"

	"github.com/qcsim/qcsim/pkg/types"
)

// ErrInvalidDataset is returned when the engine is asked to evaluate a
// dataset it cannot compute metrics for (for example an empty one).
var ErrInvalidDataset = errors.New("invalid dataset")

// Scored is a part together with the fields derived for it by one evaluation.
type Scored struct {
	types.Part
	Confidence  float64     `json:"confidence"`
	Decision    types.Label `json:"ai_decision"`
	ManualCheck bool        `json:"manual_check"`
}

// Result is the output of one evaluation run.
//
// Percentages are in the range 0–100 and rounded to one decimal, as are
// times and costs.
type Result struct {
	Accuracy       float64 `json:"accuracy"`
	Recall         float64 `json:"recall"`
	Precision      float64 `json:"precision"`
	FalseNegatives int     `json:"false_negatives"`
	TaktTime       float64 `json:"takt_time"`
	JobsPerHour    float64 `json:"jobs_per_hour"`
	InspectionCost float64 `json:"inspection_cost"`
	DefectCost     float64 `json:"defect_cost"`

	// ManualRate is the unrounded fraction of parts sent to manual review.
	ManualRate float64   `json:"manual_rate"`
	Confusion  Confusion `json:"confusion"`
	PartCount  int       `json:"part_count"`

	Parts []Scored `json:"parts,omitempty"`
}

// Evaluate runs the full pipeline over parts under policy:
// confidence → decision/manual flag → confusion matrix → metrics → costs.
//
// parts is never modified. Derived per-part fields are returned in
// Result.Parts in input order.
func Evaluate(parts []types.Part, policy types.Policy) (*Result, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("compute: %w: no parts", ErrInvalidDataset)
	}

	ch := ChannelMax(parts)
	scored := make([]Scored, len(parts))
	var (
		cm     Confusion
		manual int
	)
	for i, p := range parts {
		conf := Confidence(p, ch, policy)
		decision, check := Classify(conf, policy)
		scored[i] = Scored{Part: p, Confidence: conf, Decision: decision, ManualCheck: check}

		cm.Add(p.Label, decision)
		if check {
			manual++
		}
	}

	manualRate := float64(manual) / float64(len(parts))
	tp := ModelThroughput(manualRate, policy.SamplingRate, cm.FN)

	return &Result{
		Accuracy:       round(cm.Accuracy()*100, 1),
		Recall:         round(cm.Recall()*100, 1),
		Precision:      round(cm.Precision()*100, 1),
		FalseNegatives: cm.FN,
		TaktTime:       round(tp.TaktTime, 1),
		JobsPerHour:    round(tp.JobsPerHour, 1),
		InspectionCost: round(tp.InspectionCost, 1),
		DefectCost:     round(tp.DefectCost, 1),
		ManualRate:     manualRate,
		Confusion:      cm,
		PartCount:      len(parts),
		Parts:          scored,
	}, nil
}

// Summary returns a copy of r without the per-part rows.
func (r *Result) Summary() *Result {
	cp := *r
	cp.Parts = nil
	return &cp
}
