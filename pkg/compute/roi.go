package compute

import (
	"encoding/json"
	"strconv"
)

// ROIResult is the outcome of an ROI query. Applicable is false when the
// investment cost is zero or negative; Value is then meaningless.
type ROIResult struct {
	Value      float64
	Applicable bool
}

// ROI computes ((baseline - current) - inspection) / investment, rounded to
// three decimals. A non-positive investment yields a not-applicable result.
func ROI(baselineDefectCost, currentDefectCost, inspectionCost, investmentCost float64) ROIResult {
	if investmentCost <= 0 {
		return ROIResult{}
	}
	savings := (baselineDefectCost - currentDefectCost) - inspectionCost
	return ROIResult{Value: round(savings/investmentCost, 3), Applicable: true}
}

// ROIFromResult computes the ROI of an evaluation, taking the current defect
// cost and inspection cost from r.
func ROIFromResult(r *Result, baselineDefectCost, investmentCost float64) ROIResult {
	return ROI(baselineDefectCost, r.DefectCost, r.InspectionCost, investmentCost)
}

// String renders the ratio, or "—" when not applicable.
func (r ROIResult) String() string {
	if !r.Applicable {
		return "—"
	}
	return strconv.FormatFloat(r.Value, 'f', -1, 64)
}

// MarshalJSON encodes a not-applicable result as null.
func (r ROIResult) MarshalJSON() ([]byte, error) {
	if !r.Applicable {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// UnmarshalJSON accepts null or a number.
func (r *ROIResult) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = ROIResult{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = ROIResult{Value: v, Applicable: true}
	return nil
}
