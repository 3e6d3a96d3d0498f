package alerts

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/qcsim/qcsim/pkg/compute"
	"github.com/qcsim/qcsim/server/internal/config"
	"github.com/qcsim/qcsim/server/internal/store"
)

func result(recall float64, fn int) *compute.Result {
	return &compute.Result{
		Accuracy:       75,
		Recall:         recall,
		Precision:      100,
		FalseNegatives: fn,
		TaktTime:       48.5,
		JobsPerHour:    74.2,
		InspectionCost: 300,
		DefectCost:     float64(fn) * compute.EscapeCost,
		ManualRate:     0.25,
	}
}

func TestEvalCondition(t *testing.T) {
	res := result(50, 1)
	tests := []struct {
		cond  string
		fires bool
		value float64
	}{
		{"recall < 80", true, 50},
		{"recall >= 80", false, 50},
		{"false_negatives > 0", true, 1},
		{"false_negatives == 1", true, 1},
		{"takt_time <= 48.5", true, 48.5},
		{"jobs_per_hour < 70", false, 74.2},
		{"defect_cost > 50", true, 100},
		{"manual_rate > 0.3", false, 0.25},
		{"inspection_cost >= 300", true, 300},
		{"accuracy < 80", true, 75},
		{"precision < 100", false, 100},
		{"unknown_field > 1", false, 0},
		{"recall <", false, 0},
		{"recall ~ 10", false, 50},
		{"recall < abc", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			fires, v := evalCondition(tt.cond, res)
			if fires != tt.fires || v != tt.value {
				t.Errorf("evalCondition(%q) = (%v, %v), want (%v, %v)", tt.cond, fires, v, tt.fires, tt.value)
			}
		})
	}
}

func TestValidCondition(t *testing.T) {
	for cond, want := range map[string]bool{
		"recall < 80":         true,
		"false_negatives > 0": true,
		"drop_pct > 10":       false,
		"recall ! 80":         false,
		"recall < x":          false,
		"recall":              false,
	} {
		if got := ValidCondition(cond); got != want {
			t.Errorf("ValidCondition(%q) = %v, want %v", cond, got, want)
		}
	}
}

func newEngine(rules ...config.AlertRule) *Engine {
	return New(config.AlertsConfig{Rules: rules})
}

func TestEvaluate_FireAndResolve(t *testing.T) {
	base := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	e := newEngine(config.AlertRule{Name: "escapes", Condition: "false_negatives > 0", Severity: "critical"})
	e.now = func() time.Time { return base }

	e.Evaluate(&store.Evaluation{Team: "blue", Result: result(50, 2)})
	got := e.Active()
	if len(got) != 1 || got[0].State != "firing" || got[0].Team != "blue" || got[0].Value != 2 {
		t.Fatalf("after fire: %+v", got)
	}
	if got[0].ID == "" {
		t.Error("alert ID is empty")
	}
	if e.Firing() != 1 {
		t.Errorf("Firing = %d, want 1", e.Firing())
	}

	e.now = func() time.Time { return base.Add(time.Minute) }
	e.Evaluate(&store.Evaluation{Team: "blue", Result: result(100, 0)})
	got = e.Active()
	if len(got) != 1 || got[0].State != "resolved" || got[0].ResolvedAt == nil {
		t.Fatalf("after resolve: %+v", got)
	}
	if e.Firing() != 0 {
		t.Errorf("Firing = %d, want 0", e.Firing())
	}
}

func TestEvaluate_PerTeamState(t *testing.T) {
	e := newEngine(config.AlertRule{Name: "recall", Condition: "recall < 80"})
	e.Evaluate(&store.Evaluation{Team: "blue", Result: result(50, 1)})
	e.Evaluate(&store.Evaluation{Team: "red", Result: result(100, 0)})

	got := e.Active()
	if len(got) != 1 || got[0].Team != "blue" {
		t.Fatalf("Active = %+v, want only blue", got)
	}
	if got[0].Severity != "warning" {
		t.Errorf("default severity = %q, want warning", got[0].Severity)
	}
}

func TestEvaluate_Cooldown(t *testing.T) {
	base := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	e := newEngine(config.AlertRule{Name: "recall", Condition: "recall < 80", Cooldown: 10 * time.Minute})
	e.now = func() time.Time { return base }

	e.Evaluate(&store.Evaluation{Team: "blue", Result: result(50, 1)})
	first := e.Active()[0].ID

	e.now = func() time.Time { return base.Add(5 * time.Minute) }
	e.Evaluate(&store.Evaluation{Team: "blue", Result: result(40, 1)})
	if id := e.Active()[0].ID; id != first {
		t.Error("gate re-fired inside cooldown")
	}

	e.now = func() time.Time { return base.Add(11 * time.Minute) }
	e.Evaluate(&store.Evaluation{Team: "blue", Result: result(40, 1)})
	if id := e.Active()[0].ID; id == first {
		t.Error("gate did not re-fire after cooldown")
	}
}

func TestEvaluate_NoRules(t *testing.T) {
	e := newEngine()
	e.Evaluate(&store.Evaluation{Team: "blue", Result: result(0, 4)})
	if len(e.Active()) != 0 {
		t.Error("engine without rules produced alerts")
	}
}

func TestDeliver_Webhooks(t *testing.T) {
	var mu sync.Mutex
	bodies := map[string]map[string]interface{}{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&m)
		mu.Lock()
		bodies[r.URL.Path] = m
		mu.Unlock()
	}))
	defer srv.Close()

	t.Setenv("HOOK_SLACK", srv.URL+"/slack")
	t.Setenv("HOOK_TEAMS", srv.URL+"/teams")
	t.Setenv("HOOK_HTTP", srv.URL+"/http")

	e := New(config.AlertsConfig{Webhooks: []config.WebhookConfig{
		{Type: "slack", URLEnv: "HOOK_SLACK"},
		{Type: "teams", URLEnv: "HOOK_TEAMS"},
		{Type: "http", URLEnv: "HOOK_HTTP"},
		{Type: "http", URLEnv: "HOOK_UNSET"},
	}})
	e.deliver(&Alert{
		RuleName: "escapes", Team: "blue", Condition: "false_negatives > 0",
		Severity: "critical", Value: 2, State: "firing",
	})

	mu.Lock()
	defer mu.Unlock()
	want := "*[CRITICAL]* Team blue fails quality gate escapes: false_negatives > 0 (value 2.00)"
	if txt, _ := bodies["/slack"]["text"].(string); txt != want {
		t.Errorf("slack text = %q, want %q", txt, want)
	}
	if bodies["/teams"]["@type"] != "MessageCard" || bodies["/teams"]["themeColor"] != "E01E5A" {
		t.Errorf("teams payload = %v", bodies["/teams"])
	}
	alert, _ := bodies["/http"]["alert"].(map[string]interface{})
	if bodies["/http"]["event"] != EventGateFailed || alert["team"] != "blue" || alert["condition"] != "false_negatives > 0" {
		t.Errorf("http payload = %v", bodies["/http"])
	}
}

func TestPayloads_ResolvedGate(t *testing.T) {
	a := &Alert{RuleName: "escapes", Team: "blue", Severity: "critical", State: "resolved"}

	var slack map[string]string
	if err := json.Unmarshal(slackPayload(a), &slack); err != nil {
		t.Fatal(err)
	}
	if slack["text"] != ":white_check_mark: Team blue passes quality gate escapes again" {
		t.Errorf("slack text = %q", slack["text"])
	}

	var teams map[string]interface{}
	if err := json.Unmarshal(teamsPayload(a), &teams); err != nil {
		t.Fatal(err)
	}
	if teams["themeColor"] != passedThemeColour {
		t.Errorf("teams themeColor = %v, want %s", teams["themeColor"], passedThemeColour)
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(httpPayload(a), &generic); err != nil {
		t.Fatal(err)
	}
	if generic["event"] != EventGatePassed {
		t.Errorf("http event = %v, want %s", generic["event"], EventGatePassed)
	}
}

func TestPost_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	e := newEngine()
	if err := e.post(srv.URL, []byte(`{}`)); err == nil {
		t.Fatal("expected error for 502 response")
	}
}
