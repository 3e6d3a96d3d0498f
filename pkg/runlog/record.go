package runlog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/qcsim/qcsim/pkg/compute"
	"github.com/qcsim/qcsim/pkg/types"
)

// TimestampLayout is the timestamp format used in the run log.
const TimestampLayout = "2006-01-02 15:04:05"

// Column names, in on-disk order.
const (
	ColTimestamp           = "timestamp"
	ColTeam                = "team"
	ColConfidenceThreshold = "confidence_threshold"
	ColManualBandLow       = "manual_band_low"
	ColManualBandHigh      = "manual_band_high"
	ColVibrationWeight     = "vibration_weight"
	ColAcousticWeight      = "acoustic_weight"
	ColSamplingRate        = "sampling_rate"
	ColAccuracy            = "accuracy"
	ColRecall              = "recall"
	ColPrecision           = "precision"
	ColFalseNegatives      = "false_negatives"
	ColTaktTime            = "takt_time"
	ColJobsPerHour         = "jobs_per_hour"
	ColInspectionCost      = "inspection_cost"
	ColDefectCost          = "defect_cost"
)

// Columns is the fixed record schema.
var Columns = []string{
	ColTimestamp, ColTeam,
	ColConfidenceThreshold, ColManualBandLow, ColManualBandHigh,
	ColVibrationWeight, ColAcousticWeight, ColSamplingRate,
	ColAccuracy, ColRecall, ColPrecision, ColFalseNegatives,
	ColTaktTime, ColJobsPerHour, ColInspectionCost, ColDefectCost,
}

// Record is one saved evaluation run.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Team      string    `json:"team"`

	ConfidenceThreshold float64 `json:"confidence_threshold"`
	ManualBandLow       float64 `json:"manual_band_low"`
	ManualBandHigh      float64 `json:"manual_band_high"`
	VibrationWeight     float64 `json:"vibration_weight"`
	AcousticWeight      float64 `json:"acoustic_weight"`
	SamplingRate        float64 `json:"sampling_rate"`

	Accuracy       float64 `json:"accuracy"`
	Recall         float64 `json:"recall"`
	Precision      float64 `json:"precision"`
	FalseNegatives int     `json:"false_negatives"`
	TaktTime       float64 `json:"takt_time"`
	JobsPerHour    float64 `json:"jobs_per_hour"`
	InspectionCost float64 `json:"inspection_cost"`
	DefectCost     float64 `json:"defect_cost"`
}

// NewRecord builds the log record for one run. now is truncated to whole
// seconds in local time, the resolution of the on-disk format.
func NewRecord(team string, policy types.Policy, res *compute.Result, now time.Time) Record {
	return Record{
		Timestamp:           now.Local().Truncate(time.Second),
		Team:                strings.TrimSpace(team),
		ConfidenceThreshold: policy.ConfidenceThreshold,
		ManualBandLow:       policy.ManualBand.Low,
		ManualBandHigh:      policy.ManualBand.High,
		VibrationWeight:     policy.VibrationWeight,
		AcousticWeight:      policy.AcousticWeight,
		SamplingRate:        policy.SamplingRate,
		Accuracy:            res.Accuracy,
		Recall:              res.Recall,
		Precision:           res.Precision,
		FalseNegatives:      res.FalseNegatives,
		TaktTime:            res.TaktTime,
		JobsPerHour:         res.JobsPerHour,
		InspectionCost:      res.InspectionCost,
		DefectCost:          res.DefectCost,
	}
}

// Policy returns the policy the run was evaluated with.
func (r Record) Policy() types.Policy {
	return types.Policy{
		ConfidenceThreshold: r.ConfidenceThreshold,
		ManualBand:          types.Band{Low: r.ManualBandLow, High: r.ManualBandHigh},
		VibrationWeight:     r.VibrationWeight,
		AcousticWeight:      r.AcousticWeight,
		SamplingRate:        r.SamplingRate,
	}
}

// numeric returns the value of a numeric column.
func (r Record) numeric(col string) (float64, bool) {
	switch col {
	case ColConfidenceThreshold:
		return r.ConfidenceThreshold, true
	case ColManualBandLow:
		return r.ManualBandLow, true
	case ColManualBandHigh:
		return r.ManualBandHigh, true
	case ColVibrationWeight:
		return r.VibrationWeight, true
	case ColAcousticWeight:
		return r.AcousticWeight, true
	case ColSamplingRate:
		return r.SamplingRate, true
	case ColAccuracy:
		return r.Accuracy, true
	case ColRecall:
		return r.Recall, true
	case ColPrecision:
		return r.Precision, true
	case ColFalseNegatives:
		return float64(r.FalseNegatives), true
	case ColTaktTime:
		return r.TaktTime, true
	case ColJobsPerHour:
		return r.JobsPerHour, true
	case ColInspectionCost:
		return r.InspectionCost, true
	case ColDefectCost:
		return r.DefectCost, true
	}
	return 0, false
}

// values renders r in Columns order.
func (r Record) values() []string {
	out := make([]string, 0, len(Columns))
	out = append(out, r.Timestamp.Format(TimestampLayout), r.Team)
	for _, col := range Columns[2:] {
		if col == ColFalseNegatives {
			out = append(out, strconv.Itoa(r.FalseNegatives))
			continue
		}
		v, _ := r.numeric(col)
		out = append(out, formatFloat(v))
	}
	return out
}

// setField parses raw into the named column of r.
func (r *Record) setField(col, raw string) error {
	raw = strings.TrimSpace(raw)
	switch col {
	case ColTimestamp:
		ts, err := time.ParseInLocation(TimestampLayout, raw, time.Local)
		if err != nil {
			return fmt.Errorf("%s: %w", col, err)
		}
		r.Timestamp = ts
		return nil
	case ColTeam:
		r.Team = raw
		return nil
	case ColFalseNegatives:
		// Tolerate "2.0" written by tools that store every metric as float.
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", col, err)
		}
		r.FalseNegatives = int(v)
		return nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", col, err)
	}
	switch col {
	case ColConfidenceThreshold:
		r.ConfidenceThreshold = v
	case ColManualBandLow:
		r.ManualBandLow = v
	case ColManualBandHigh:
		r.ManualBandHigh = v
	case ColVibrationWeight:
		r.VibrationWeight = v
	case ColAcousticWeight:
		r.AcousticWeight = v
	case ColSamplingRate:
		r.SamplingRate = v
	case ColAccuracy:
		r.Accuracy = v
	case ColRecall:
		r.Recall = v
	case ColPrecision:
		r.Precision = v
	case ColTaktTime:
		r.TaktTime = v
	case ColJobsPerHour:
		r.JobsPerHour = v
	case ColInspectionCost:
		r.InspectionCost = v
	case ColDefectCost:
		r.DefectCost = v
	}
	return nil
}

// formatFloat writes whole numbers with a trailing ".0", matching existing
// log files.
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
