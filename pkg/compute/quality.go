package compute

import "github.com/qcsim/qcsim/pkg/types"

// Confusion is the binary confusion matrix with DEFECT as the positive class.
type Confusion struct {
	TP int `json:"tp"`
	TN int `json:"tn"`
	FP int `json:"fp"`
	FN int `json:"fn"`
}

// Add records one (truth, decision) pair. Labels other than OK/DEFECT are ignored.
func (c *Confusion) Add(truth, decision types.Label) {
	switch {
	case truth == types.LabelDefect && decision == types.LabelDefect:
		c.TP++
	case truth == types.LabelOK && decision == types.LabelOK:
		c.TN++
	case truth == types.LabelOK && decision == types.LabelDefect:
		c.FP++
	case truth == types.LabelDefect && decision == types.LabelOK:
		c.FN++
	}
}

// Total returns TP+TN+FP+FN.
func (c Confusion) Total() int {
	return c.TP + c.TN + c.FP + c.FN
}

// Accuracy returns (TP+TN)/total as a fraction, or 0 for an empty matrix.
func (c Confusion) Accuracy() float64 {
	return ratio(c.TP+c.TN, c.Total())
}

// Recall returns TP/(TP+FN), or 0 when no defects are present.
func (c Confusion) Recall() float64 {
	return ratio(c.TP, c.TP+c.FN)
}

// Precision returns TP/(TP+FP), or 0 when nothing was flagged.
func (c Confusion) Precision() float64 {
	return ratio(c.TP, c.TP+c.FP)
}

func ratio(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	return float64(num) / float64(den)
}
