package api

import (
	"github.com/qcsim/qcsim/pkg/compute"
	"github.com/qcsim/qcsim/pkg/types"
	"github.com/qcsim/qcsim/server/internal/evaluator"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State           string `json:"state"` // "ok" | "idle"
	PartCount       int    `json:"part_count"`
	EvaluationCount int    `json:"evaluation_count"`
	AlertCount      int    `json:"alert_count"`
}

// EvaluateRequest is the body of POST /api/v1/evaluate and POST /api/v1/runs.
type EvaluateRequest struct {
	evaluator.Request

	// BaselineDefectCost defaults to twice the evaluated defect cost.
	BaselineDefectCost *float64 `json:"baseline_defect_cost,omitempty"`
	// InvestmentCost defaults to the server's configured value.
	InvestmentCost *float64 `json:"investment_cost,omitempty"`
}

// EvaluationResponse is one evaluation in POST /api/v1/evaluate or
// GET /api/v1/evaluations.
type EvaluationResponse struct {
	ID          string           `json:"id"`
	Team        string           `json:"team"`
	Preset      string           `json:"preset,omitempty"`
	Policy      types.Policy     `json:"policy"`
	Metrics     *compute.Result  `json:"metrics"`
	ROI         ROIResponse      `json:"roi"`
	Diagnostics []DiagnosticHint `json:"diagnostics"`
	EvaluatedAt string           `json:"evaluated_at"` // RFC3339
}

// ROIRequest is the body of POST /api/v1/roi.
type ROIRequest struct {
	BaselineDefectCost float64 `json:"baseline_defect_cost"`
	CurrentDefectCost  float64 `json:"current_defect_cost"`
	InspectionCost     float64 `json:"inspection_cost"`
	InvestmentCost     float64 `json:"investment_cost"`
}

// ROIResponse carries the ratio; ROI is null when not applicable.
type ROIResponse struct {
	ROI                compute.ROIResult `json:"roi"`
	Applicable         bool              `json:"applicable"`
	Display            string            `json:"display"`
	BaselineDefectCost float64           `json:"baseline_defect_cost"`
	InvestmentCost     float64           `json:"investment_cost"`
}

// PartResponse is the payload for GET /api/v1/parts/{id}.
type PartResponse struct {
	PartID string      `json:"part_id"`
	Label  types.Label `json:"label"`
}

// PresetResponse is one entry of GET /api/v1/presets.
type PresetResponse struct {
	Name   string       `json:"name"`
	Policy types.Policy `json:"policy"`
}

// EvaluationsMessage is the payload pushed over the WebSocket stream.
type EvaluationsMessage struct {
	Evaluations []EvaluationResponse `json:"evaluations"`
	GeneratedAt string               `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
