package evaluator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/qcsim/qcsim/pkg/dataset"
	"github.com/qcsim/qcsim/pkg/types"
	"github.com/qcsim/qcsim/server/internal/store"
)

func fourParts(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New([]types.Part{
		{ID: 1, VibrationRMS: 1, AcousticDB: 10, Label: types.LabelOK},
		{ID: 2, VibrationRMS: 2, AcousticDB: 20, Label: types.LabelOK},
		{ID: 3, VibrationRMS: 3, AcousticDB: 30, Label: types.LabelDefect},
		{ID: 4, VibrationRMS: 4, AcousticDB: 40, Label: types.LabelDefect},
	})
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	return ds
}

type recordingGate struct {
	mu  sync.Mutex
	got []*store.Evaluation
}

func (g *recordingGate) Evaluate(ev *store.Evaluation) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.got = append(g.got, ev)
}

func newEvaluator(t *testing.T) (*Evaluator, *store.Store, *recordingGate) {
	t.Helper()
	st := store.New(time.Hour)
	gate := &recordingGate{}
	return New(fourParts(t), types.DefaultPolicy(), st, gate), st, gate
}

func TestEvaluate_StoresAndGates(t *testing.T) {
	e, st, gate := newEvaluator(t)
	policy := types.Policy{ConfidenceThreshold: 0.5, ManualBand: types.Band{Low: 0.4, High: 0.49}, VibrationWeight: 0.5, AcousticWeight: 0.5}

	ev, err := e.Evaluate(context.Background(), Request{Team: " blue ", Policy: &policy})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ev.ID == "" || ev.Team != "blue" {
		t.Errorf("evaluation = %+v", ev)
	}
	// Confidences 0.25/0.5/0.75/1.0 against 0.5: parts 2, 3, 4 flagged.
	if c := ev.Result.Confusion; c.TP != 2 || c.FP != 1 || c.TN != 1 || c.FN != 0 {
		t.Errorf("confusion = %+v", c)
	}
	if len(ev.Result.Parts) != 4 {
		t.Errorf("returned %d part rows, want 4", len(ev.Result.Parts))
	}

	entry, ok := st.Get("blue")
	if !ok {
		t.Fatal("evaluation not stored")
	}
	if entry.Evaluation.Result.Parts != nil {
		t.Error("stored evaluation kept per-part rows")
	}
	if entry.Evaluation.ID != ev.ID {
		t.Errorf("stored ID %q, want %q", entry.Evaluation.ID, ev.ID)
	}
	if len(gate.got) != 1 || gate.got[0].Team != "blue" {
		t.Errorf("gate saw %+v", gate.got)
	}
}

func TestEvaluate_DefaultTeamAndPolicy(t *testing.T) {
	e, st, _ := newEvaluator(t)
	ev, err := e.Evaluate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ev.Team != DefaultTeam {
		t.Errorf("team = %q, want %q", ev.Team, DefaultTeam)
	}
	if ev.Policy != types.DefaultPolicy() {
		t.Errorf("policy = %+v, want default", ev.Policy)
	}
	if _, ok := st.Get(DefaultTeam); !ok {
		t.Error("evaluation not stored under default team")
	}
}

func TestPolicy_Resolution(t *testing.T) {
	e, _, _ := newEvaluator(t)
	custom := types.Policy{ConfidenceThreshold: 0.9, VibrationWeight: 3, AcousticWeight: 1}
	aggressive, _ := types.Preset(types.PresetAggressive)

	tests := []struct {
		name string
		req  Request
		want types.Policy
	}{
		{"default", Request{}, types.DefaultPolicy()},
		{"inline", Request{Policy: &custom}, custom},
		{"preset wins", Request{Preset: "Aggressive", Policy: &custom}, aggressive},
		{"normalized", Request{Policy: &custom, NormalizeWeights: true}, custom.NormalizeWeights()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Policy(tt.req)
			if err != nil {
				t.Fatalf("Policy: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_UnknownPreset(t *testing.T) {
	e, st, gate := newEvaluator(t)
	_, err := e.Evaluate(context.Background(), Request{Team: "blue", Preset: "yolo"})
	if !errors.Is(err, ErrBadRequest) || !errors.Is(err, types.ErrUnknownPreset) {
		t.Fatalf("err = %v, want ErrBadRequest wrapping ErrUnknownPreset", err)
	}
	if st.Count() != 0 || len(gate.got) != 0 {
		t.Error("failed evaluation was stored or gated")
	}
}

func TestEvaluate_CancelledContext(t *testing.T) {
	e, _, _ := newEvaluator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Evaluate(ctx, Request{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestEvaluate_OutOfRangePolicyPassesThrough(t *testing.T) {
	e, _, _ := newEvaluator(t)
	p := types.Policy{ConfidenceThreshold: 1.01, ManualBand: types.Band{Low: 0.9, High: 0.1}, VibrationWeight: 0.5, AcousticWeight: 0.5}
	ev, err := e.Evaluate(context.Background(), Request{Policy: &p})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ev.Result.FalseNegatives != 2 || ev.Result.ManualRate != 0 {
		t.Errorf("result = %+v", ev.Result)
	}
}
