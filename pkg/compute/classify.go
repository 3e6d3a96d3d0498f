package compute

import "github.com/qcsim/qcsim/pkg/types"

// Classify maps a confidence score to the automated decision and the
// manual-review flag.
//
// The part is flagged DEFECT when confidence >= threshold. Manual review is
// requested whenever confidence falls inside the manual band, whatever the
// decision. Band and threshold are not reconciled with each other.
func Classify(confidence float64, policy types.Policy) (types.Label, bool) {
	decision := types.LabelOK
	if confidence >= policy.ConfidenceThreshold {
		decision = types.LabelDefect
	}
	return decision, policy.ManualBand.Contains(confidence)
}
