package api

import (
	"fmt"

	"github.com/qcsim/qcsim/pkg/compute"
	"github.com/qcsim/qcsim/pkg/types"
)

// DiagnosticHint is one human-readable insight about an evaluation.
// Dashboards show these as chips next to the team's metrics; Detail is the
// longer explanation shown on click/hover.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label shown on the chip.
	Title string `json:"title"`
	// Detail is the full explanation shown on click/hover.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

// manualRateWarn is the manual-review share above which the line slows noticeably.
const manualRateWarn = 0.3

// computeDiagnostics derives hints from an evaluation result and the policy
// it ran under. Hints are ordered: critical first, then warnings, then info.
func computeDiagnostics(policy types.Policy, res *compute.Result) []DiagnosticHint {
	if res == nil {
		return nil
	}
	var critical, warn, info []DiagnosticHint

	if b := policy.ManualBand; b.Low > b.High {
		info = append(info, DiagnosticHint{
			Key:   "band_inverted",
			Level: "info",
			Title: "Manual band is empty",
			Detail: fmt.Sprintf("The manual check band [%.2f, %.2f] has its low end above its high end, "+
				"so no part is ever sent to a human. Swap the bounds to route borderline parts to review.",
				b.Low, b.High),
		})
	}

	if fn := res.FalseNegatives; fn > 0 {
		v := float64(fn)
		critical = append(critical, DiagnosticHint{
			Key:   "escapes",
			Level: "critical",
			Title: fmt.Sprintf("%d defect(s) escaped", fn),
			Detail: fmt.Sprintf("%d defective part(s) were passed as OK, costing %.0f in escapes. "+
				"Lower the confidence threshold or widen the manual band to catch them.",
				fn, res.DefectCost),
			Value: &v,
		})
	}

	if fp := res.Confusion.FP; fp > 0 {
		v := float64(fp)
		warn = append(warn, DiagnosticHint{
			Key:   "false_alarms",
			Level: "warning",
			Title: fmt.Sprintf("%d false alarm(s)", fp),
			Detail: fmt.Sprintf("%d good part(s) were flagged as DEFECT (precision %.1f%%). "+
				"Raising the confidence threshold reduces scrap of good parts.", fp, res.Precision),
			Value: &v,
		})
	}

	if mr := res.ManualRate; mr > manualRateWarn {
		v := mr
		warn = append(warn, DiagnosticHint{
			Key:   "manual_load",
			Level: "warning",
			Title: "Heavy manual review",
			Detail: fmt.Sprintf("%.0f%% of parts fall in the manual band, pushing takt time to %.1f s "+
				"(%.1f jobs/hour). Narrow the band to speed the line up.",
				mr*100, res.TaktTime, res.JobsPerHour),
			Value: &v,
		})
	}

	if len(critical)+len(warn) == 0 {
		info = append(info, DiagnosticHint{
			Key:    "healthy",
			Level:  "ok",
			Title:  "No escapes",
			Detail: fmt.Sprintf("Every defect was caught with %.1f%% accuracy at %.1f jobs/hour.", res.Accuracy, res.JobsPerHour),
		})
	}

	hints := make([]DiagnosticHint, 0, len(critical)+len(warn)+len(info))
	hints = append(hints, critical...)
	hints = append(hints, warn...)
	return append(hints, info...)
}
