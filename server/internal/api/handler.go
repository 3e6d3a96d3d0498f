package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/qcsim/qcsim/pkg/compute"
	"github.com/qcsim/qcsim/pkg/runlog"
	"github.com/qcsim/qcsim/pkg/types"
	"github.com/qcsim/qcsim/server/internal/alerts"
	"github.com/qcsim/qcsim/server/internal/evaluator"
	"github.com/qcsim/qcsim/server/internal/store"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// baselineMultiplier derives a baseline defect cost when a request gives none.
const baselineMultiplier = 2.0

// Deps are the collaborators the API reads from and writes to.
type Deps struct {
	Evaluator *evaluator.Evaluator
	Store     *store.Store
	Alerts    *alerts.Engine

	// Runs is the run log. Nil disables the /runs endpoints (503).
	Runs runlog.Store

	// InvestmentCost is the default ROI investment.
	InvestmentCost float64
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	deps Deps
	mux  *http.ServeMux
	now  func() time.Time
}

// New creates a Handler wired to deps and registers all routes.
func New(deps Deps) http.Handler {
	h := &Handler{deps: deps, mux: http.NewServeMux(), now: time.Now}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/evaluate", h.evaluate)
	h.mux.HandleFunc("/api/v1/evaluations", h.evaluations)
	h.mux.HandleFunc("/api/v1/roi", h.roi)
	h.mux.HandleFunc("/api/v1/parts/", h.getPart) // subtree, extracts {id}
	h.mux.HandleFunc("/api/v1/presets", h.presets)
	h.mux.HandleFunc("/api/v1/runs", h.runs)
	h.mux.HandleFunc("/api/v1/runs/export", h.exportRuns)
	h.mux.HandleFunc("/api/v1/alerts", h.alerts)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: dataset size, live evaluations, firing gates.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	resp := HealthResponse{
		State:           "ok",
		PartCount:       h.deps.Evaluator.Dataset().Len(),
		EvaluationCount: len(h.deps.Store.List()),
	}
	if resp.EvaluationCount == 0 {
		resp.State = "idle"
	}
	if h.deps.Alerts != nil {
		resp.AlertCount = h.deps.Alerts.Firing()
	}
	jsonResp(w, http.StatusOK, resp)
}

// evaluate handles POST /api/v1/evaluate. Per-part rows are included with ?parts=true.
func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req EvaluateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ev, err := h.deps.Evaluator.Evaluate(r.Context(), req.Request)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := toEvaluationResponse(ev, req.BaselineDefectCost, h.investment(req.InvestmentCost))
	if r.URL.Query().Get("parts") != "true" {
		resp.Metrics = ev.Result.Summary()
	}
	jsonResp(w, http.StatusOK, resp)
}

// evaluations returns GET /api/v1/evaluations: the latest live evaluation per team.
func (h *Handler) evaluations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildEvaluations(h.deps.Store, h.deps.InvestmentCost))
}

// roi handles POST /api/v1/roi.
func (h *Handler) roi(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req ROIRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res := compute.ROI(req.BaselineDefectCost, req.CurrentDefectCost, req.InspectionCost, req.InvestmentCost)
	jsonResp(w, http.StatusOK, ROIResponse{
		ROI:                res,
		Applicable:         res.Applicable,
		Display:            res.String(),
		BaselineDefectCost: req.BaselineDefectCost,
		InvestmentCost:     req.InvestmentCost,
	})
}

// getPart returns GET /api/v1/parts/{id}: the part's ground-truth label.
func (h *Handler) getPart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/parts/")
	label, ok := h.deps.Evaluator.Dataset().Lookup(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "not found")
		return
	}
	jsonResp(w, http.StatusOK, PartResponse{PartID: id, Label: label})
}

// presets returns GET /api/v1/presets: the scenario preset table.
func (h *Handler) presets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	names := types.PresetNames()
	out := make([]PresetResponse, 0, len(names))
	for _, n := range names {
		p, _ := types.Preset(n)
		out = append(out, PresetResponse{Name: n, Policy: p})
	}
	jsonResp(w, http.StatusOK, out)
}

// runs handles GET /api/v1/runs?team=&sort=&order= and POST /api/v1/runs.
// POST evaluates the request and appends the result to the run log.
func (h *Handler) runs(w http.ResponseWriter, r *http.Request) {
	if h.deps.Runs == nil {
		jsonErr(w, http.StatusServiceUnavailable, "run log disabled")
		return
	}
	switch r.Method {
	case http.MethodGet:
		q, err := runQuery(r)
		if err != nil {
			writeError(w, err)
			return
		}
		recs, err := h.deps.Runs.List(r.Context(), q)
		if err != nil {
			writeError(w, err)
			return
		}
		if recs == nil {
			recs = []runlog.Record{}
		}
		jsonResp(w, http.StatusOK, recs)

	case http.MethodPost:
		var req EvaluateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Team) == "" {
			writeError(w, runlog.ErrTeamRequired)
			return
		}
		ev, err := h.deps.Evaluator.Evaluate(r.Context(), req.Request)
		if err != nil {
			writeError(w, err)
			return
		}
		rec := runlog.NewRecord(ev.Team, ev.Policy, ev.Result, h.now())
		if err := h.deps.Runs.Append(r.Context(), rec); err != nil {
			writeError(w, err)
			return
		}
		jsonResp(w, http.StatusCreated, rec)

	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// exportRuns returns GET /api/v1/runs/export as a CSV download.
func (h *Handler) exportRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.deps.Runs == nil {
		jsonErr(w, http.StatusServiceUnavailable, "run log disabled")
		return
	}
	q, err := runQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	recs, err := h.deps.Runs.List(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="participant_runs.csv"`)
	w.WriteHeader(http.StatusOK)
	runlog.WriteCSV(w, recs) //nolint:errcheck
}

// alerts returns GET /api/v1/alerts: firing and recently resolved quality gates.
func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.deps.Alerts == nil {
		jsonResp(w, http.StatusOK, []*alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.deps.Alerts.Active())
}

// BuildEvaluations returns the JSON view of every live evaluation in st.
// It is shared with the WebSocket hub so both surfaces render identically.
func BuildEvaluations(st *store.Store, investmentCost float64) EvaluationsMessage {
	entries := st.List()
	out := make([]EvaluationResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEvaluationResponse(e.Evaluation, nil, investmentCost))
	}
	return EvaluationsMessage{
		Evaluations: out,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// --- helpers ----------------------------------------------------------------

func (h *Handler) investment(override *float64) float64 {
	if override != nil {
		return *override
	}
	return h.deps.InvestmentCost
}

func toEvaluationResponse(ev *store.Evaluation, baseline *float64, investment float64) EvaluationResponse {
	b := ev.Result.DefectCost * baselineMultiplier
	if baseline != nil {
		b = *baseline
	}
	roi := compute.ROIFromResult(ev.Result, b, investment)
	return EvaluationResponse{
		ID:      ev.ID,
		Team:    ev.Team,
		Preset:  ev.Preset,
		Policy:  ev.Policy,
		Metrics: ev.Result,
		ROI: ROIResponse{
			ROI:                roi,
			Applicable:         roi.Applicable,
			Display:            roi.String(),
			BaselineDefectCost: b,
			InvestmentCost:     investment,
		},
		Diagnostics: computeDiagnostics(ev.Policy, ev.Result),
		EvaluatedAt: ev.EvaluatedAt.UTC().Format(time.RFC3339),
	}
}

func runQuery(r *http.Request) (runlog.Query, error) {
	v := r.URL.Query()
	q := runlog.Query{
		Team:       v.Get("team"),
		SortBy:     v.Get("sort"),
		Descending: strings.EqualFold(v.Get("order"), "desc"),
	}
	if q.SortBy != "" && !validSort(q.SortBy) {
		return q, runlog.ErrUnknownColumn
	}
	return q, nil
}

func validSort(col string) bool {
	for _, c := range runlog.Columns {
		if c == col {
			return true
		}
	}
	return false
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, evaluator.ErrBadRequest),
		errors.Is(err, runlog.ErrTeamRequired),
		errors.Is(err, runlog.ErrUnknownColumn):
		jsonErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, compute.ErrInvalidDataset):
		jsonErr(w, http.StatusUnprocessableEntity, err.Error())
	default:
		jsonErr(w, http.StatusInternalServerError, err.Error())
	}
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
