package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qcsim/qcsim/pkg/compute"
	"github.com/qcsim/qcsim/pkg/dataset"
	"github.com/qcsim/qcsim/pkg/types"
	"github.com/qcsim/qcsim/server/internal/store"
)

// DefaultTeam keys evaluations whose request carries no team name.
const DefaultTeam = "anonymous"

// ErrBadRequest wraps request problems the caller can fix (unknown preset).
var ErrBadRequest = errors.New("bad request")

// Gate receives every completed evaluation. *alerts.Engine implements it.
type Gate interface {
	Evaluate(ev *store.Evaluation)
}

// Request describes one evaluate call.
type Request struct {
	Team string `json:"team"`

	// Preset, when set, replaces Policy.
	Preset string `json:"preset,omitempty"`

	// Policy is used as given. Nil selects the server default.
	Policy *types.Policy `json:"policy,omitempty"`

	// NormalizeWeights rescales the channel weights to sum to 1.
	NormalizeWeights bool `json:"normalize_weights,omitempty"`
}

// Evaluator runs the engine over one fixed dataset.
// Evaluator is safe for concurrent use.
type Evaluator struct {
	ds            *dataset.Dataset
	defaultPolicy types.Policy
	store         *store.Store
	gate          Gate
	now           func() time.Time // injectable for deterministic tests
}

// New creates an Evaluator over ds. gate may be nil.
func New(ds *dataset.Dataset, defaultPolicy types.Policy, st *store.Store, gate Gate) *Evaluator {
	return &Evaluator{
		ds:            ds,
		defaultPolicy: defaultPolicy,
		store:         st,
		gate:          gate,
		now:           time.Now,
	}
}

// Dataset returns the dataset evaluations run against.
func (e *Evaluator) Dataset() *dataset.Dataset { return e.ds }

// Policy resolves the effective policy of req.
func (e *Evaluator) Policy(req Request) (types.Policy, error) {
	p := e.defaultPolicy
	switch {
	case req.Preset != "":
		preset, err := types.Preset(req.Preset)
		if err != nil {
			return types.Policy{}, fmt.Errorf("evaluator: %w: %w", ErrBadRequest, err)
		}
		p = preset
	case req.Policy != nil:
		p = *req.Policy
	}
	if req.NormalizeWeights {
		p = p.NormalizeWeights()
	}
	return p, nil
}

// Evaluate runs the engine for req, stores the evaluation as the team's
// latest and feeds it to the quality gates. The returned evaluation carries
// per-part rows.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) (*store.Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	policy, err := e.Policy(req)
	if err != nil {
		return nil, err
	}

	res, err := compute.Evaluate(e.ds.Parts(), policy)
	if err != nil {
		return nil, fmt.Errorf("evaluator: %w", err)
	}

	team := strings.TrimSpace(req.Team)
	if team == "" {
		team = DefaultTeam
	}
	ev := &store.Evaluation{
		ID:          uuid.NewString(),
		Team:        team,
		Preset:      req.Preset,
		Policy:      policy,
		Result:      res,
		EvaluatedAt: e.now().UTC(),
	}

	// The store and the gates keep the summary; per-part rows go only to the caller.
	kept := *ev
	kept.Result = res.Summary()
	e.store.Put(&kept)
	if e.gate != nil {
		e.gate.Evaluate(&kept)
	}

	slog.Debug("evaluator: evaluation stored",
		"id", ev.ID,
		"team", team,
		"preset", req.Preset,
		"recall", res.Recall,
		"false_negatives", res.FalseNegatives,
	)
	return ev, nil
}
