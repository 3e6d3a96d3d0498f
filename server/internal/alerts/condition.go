package alerts

import (
	"strconv"
	"strings"

	"github.com/qcsim/qcsim/pkg/compute"
)

// Fields lists the metric names a gate condition may reference.
var Fields = []string{
	"accuracy", "recall", "precision", "false_negatives",
	"takt_time", "jobs_per_hour", "inspection_cost", "defect_cost", "manual_rate",
}

// evalCondition evaluates a gate condition string against an evaluation result.
//
// Supported expressions (field operator value):
//
//	recall < 80
//	false_negatives > 0
//	accuracy <= 90
//	takt_time >= 50
//	jobs_per_hour < 70
//	manual_rate > 0.3
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, res *compute.Result) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 || res == nil {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	v, ok := numericField(field, res)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// numericField maps a field name to its value in the result.
func numericField(field string, res *compute.Result) (float64, bool) {
	switch field {
	case "accuracy":
		return res.Accuracy, true
	case "recall":
		return res.Recall, true
	case "precision":
		return res.Precision, true
	case "false_negatives":
		return float64(res.FalseNegatives), true
	case "takt_time":
		return res.TaktTime, true
	case "jobs_per_hour":
		return res.JobsPerHour, true
	case "inspection_cost":
		return res.InspectionCost, true
	case "defect_cost":
		return res.DefectCost, true
	case "manual_rate":
		return res.ManualRate, true
	default:
		return 0, false
	}
}

// ValidCondition reports whether cond parses and names a known field.
func ValidCondition(cond string) bool {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false
	}
	if _, ok := numericField(parts[0], &compute.Result{}); !ok {
		return false
	}
	switch parts[1] {
	case ">", ">=", "<", "<=", "==":
	default:
		return false
	}
	_, err := strconv.ParseFloat(parts[2], 64)
	return err == nil
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
