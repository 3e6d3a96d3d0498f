package exposition

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/qcsim/qcsim/pkg/compute"
	"github.com/qcsim/qcsim/server/internal/store"
)

type firing int

func (f firing) Firing() int { return int(f) }

func newStore() *store.Store {
	st := store.New(time.Hour)
	st.Put(&store.Evaluation{
		Team:        "blue",
		EvaluatedAt: time.Unix(1700000000, 0),
		Result: &compute.Result{
			Accuracy: 50, Recall: 0, FalseNegatives: 2, TaktTime: 48, JobsPerHour: 75,
			InspectionCost: 300, DefectCost: 200, ManualRate: 0.25,
		},
	})
	st.Put(&store.Evaluation{
		Team:        "red",
		EvaluatedAt: time.Unix(1700000100, 0),
		Result:      &compute.Result{Accuracy: 100, Recall: 100, Precision: 100, TaktTime: 45.5},
	})
	return st
}

func scrape(t *testing.T, h http.Handler) map[string]*dto.MetricFamily {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept", "text/plain")
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type: got %q", ct)
	}
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(rr.Body)
	if err != nil {
		t.Fatalf("parse exposition: %v\n%s", err, rr.Body.String())
	}
	return mfs
}

func teamValue(t *testing.T, mf *dto.MetricFamily, team string) (float64, bool) {
	t.Helper()
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "team" && lp.GetValue() == team {
				return m.GetGauge().GetValue(), true
			}
		}
	}
	return 0, false
}

func TestServeHTTP_TeamGauges(t *testing.T) {
	mfs := scrape(t, New(newStore(), 8, firing(1), 1000))

	tests := []struct {
		family string
		team   string
		want   float64
	}{
		{"qcsim_accuracy_percent", "blue", 50},
		{"qcsim_recall_percent", "red", 100},
		{"qcsim_false_negatives", "blue", 2},
		{"qcsim_takt_time_seconds", "red", 45.5},
		{"qcsim_manual_rate", "blue", 0.25},
		{"qcsim_defect_cost", "blue", 200},
		{"qcsim_evaluation_timestamp_seconds", "red", 1700000100},
		// blue: ((400-200)-300)/1000
		{"qcsim_roi_ratio", "blue", -0.1},
	}
	for _, tt := range tests {
		mf, ok := mfs[tt.family]
		if !ok {
			t.Errorf("%s: family missing", tt.family)
			continue
		}
		if mf.GetType() != dto.MetricType_GAUGE {
			t.Errorf("%s: type %v, want gauge", tt.family, mf.GetType())
		}
		got, ok := teamValue(t, mf, tt.team)
		if !ok || got != tt.want {
			t.Errorf("%s{team=%q} = %v (found %v), want %v", tt.family, tt.team, got, ok, tt.want)
		}
	}

	if v := mfs["qcsim_dataset_parts"].GetMetric()[0].GetGauge().GetValue(); v != 8 {
		t.Errorf("dataset_parts = %v, want 8", v)
	}
	if v := mfs["qcsim_alerts_firing"].GetMetric()[0].GetGauge().GetValue(); v != 1 {
		t.Errorf("alerts_firing = %v, want 1", v)
	}
}

func TestServeHTTP_ROINotApplicable(t *testing.T) {
	mfs := scrape(t, New(newStore(), 8, nil, 0))
	if _, ok := mfs["qcsim_roi_ratio"]; ok {
		t.Error("roi_ratio exposed with zero investment")
	}
	if _, ok := mfs["qcsim_alerts_firing"]; ok {
		t.Error("alerts_firing exposed without an alert engine")
	}
}

func TestServeHTTP_EmptyStore(t *testing.T) {
	mfs := scrape(t, New(store.New(time.Hour), 4, firing(0), 1000))
	if _, ok := mfs["qcsim_accuracy_percent"]; ok {
		t.Error("team family exposed with no evaluations")
	}
	if _, ok := mfs["qcsim_dataset_parts"]; !ok {
		t.Error("dataset_parts missing")
	}
}

func TestGather_Sorted(t *testing.T) {
	fams := New(newStore(), 8, firing(0), 1000).Gather()
	for i := 1; i < len(fams); i++ {
		if fams[i-1].GetName() >= fams[i].GetName() {
			t.Errorf("families not sorted: %q before %q", fams[i-1].GetName(), fams[i].GetName())
		}
	}
}

func TestServeHTTP_MethodNotAllowed(t *testing.T) {
	rr := httptest.NewRecorder()
	New(newStore(), 8, nil, 0).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}
