// Package runner executes one simulator pass: load the dataset, evaluate the
// configured policy, compute ROI, write a JSON report and, when a team is
// configured, append the run to the run log.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/qcsim/qcsim/pkg/compute"
	"github.com/qcsim/qcsim/pkg/dataset"
	"github.com/qcsim/qcsim/pkg/runlog"
	"github.com/qcsim/qcsim/pkg/types"
	"github.com/qcsim/qcsim/sim/internal/config"
	"github.com/qcsim/qcsim/sim/internal/shipper"
)

// Report is the JSON document printed for every evaluation.
type Report struct {
	GeneratedAt string          `json:"generated_at"` // RFC3339
	Dataset     string          `json:"dataset"`
	Preset      string          `json:"preset,omitempty"`
	Team        string          `json:"team,omitempty"`
	Policy      types.Policy    `json:"policy"`
	Metrics     *compute.Result `json:"metrics"`
	ROI         ROIReport       `json:"roi"`
	Saved       bool            `json:"saved"`
	Submitted   bool            `json:"submitted"`
}

// ROIReport carries the ROI inputs next to the ratio.
type ROIReport struct {
	BaselineDefectCost float64           `json:"baseline_defect_cost"`
	CurrentDefectCost  float64           `json:"current_defect_cost"`
	InspectionCost     float64           `json:"inspection_cost"`
	InvestmentCost     float64           `json:"investment_cost"`
	Ratio              compute.ROIResult `json:"ratio"`
}

// Submitter forwards team runs to a shared server. *shipper.Shipper implements it.
type Submitter interface {
	Ship(sub shipper.Submission)
}

// Runner evaluates configurations and writes reports to out.
type Runner struct {
	out   io.Writer
	store runlog.Store     // nil disables run logging
	now   func() time.Time // injectable for deterministic tests

	// Submitter, when set, receives every team run.
	Submitter Submitter

	// IncludeParts adds per-part rows to the report.
	IncludeParts bool
}

// New returns a Runner writing to out and saving runs to store (may be nil).
func New(out io.Writer, store runlog.Store) *Runner {
	return &Runner{out: out, store: store, now: time.Now}
}

// Run performs one evaluation pass for cfg.
func (r *Runner) Run(ctx context.Context, cfg *config.Config) (*Report, error) {
	s := cfg.Sim

	ds, err := dataset.Load(s.Dataset)
	if err != nil {
		return nil, err
	}
	policy, err := s.Policy()
	if err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}

	res, err := compute.Evaluate(ds.Parts(), policy)
	if err != nil {
		return nil, err
	}

	baseline := s.ROI.Baseline(res.DefectCost)
	now := r.now()
	rep := &Report{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Dataset:     s.Dataset,
		Preset:      s.Preset,
		Team:        s.Team,
		Policy:      policy,
		Metrics:     res,
		ROI: ROIReport{
			BaselineDefectCost: baseline,
			CurrentDefectCost:  res.DefectCost,
			InspectionCost:     res.InspectionCost,
			InvestmentCost:     s.ROI.InvestmentCost,
			Ratio:              compute.ROIFromResult(res, baseline, s.ROI.InvestmentCost),
		},
	}
	if !r.IncludeParts {
		rep.Metrics = res.Summary()
	}

	slog.Info("runner: evaluated",
		"parts", res.PartCount,
		"accuracy", res.Accuracy,
		"recall", res.Recall,
		"false_negatives", res.FalseNegatives,
		"takt_time", res.TaktTime,
		"roi", rep.ROI.Ratio.String(),
	)

	if s.Team != "" && r.store != nil {
		if err := r.store.Append(ctx, runlog.NewRecord(s.Team, policy, res, now)); err != nil {
			return nil, err
		}
		rep.Saved = true
		slog.Info("runner: run saved", "team", s.Team)
	}
	if s.Team != "" && r.Submitter != nil {
		r.Submitter.Ship(shipper.Submission{Team: s.Team, Policy: policy})
		rep.Submitted = true
	}

	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return nil, fmt.Errorf("runner: write report: %w", err)
	}
	return rep, nil
}
