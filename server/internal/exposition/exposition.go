package exposition

import (
	"log/slog"
	"net/http"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/qcsim/qcsim/pkg/compute"
	"github.com/qcsim/qcsim/server/internal/store"
)

const namespace = "qcsim_"

// baselineMultiplier matches the API default when deriving ROI.
const baselineMultiplier = 2.0

// FiringCounter reports the number of firing quality gates. *alerts.Engine implements it.
type FiringCounter interface {
	Firing() int
}

// Exporter serves the store contents as metric families.
type Exporter struct {
	store          *store.Store
	partCount      int
	alerts         FiringCounter
	investmentCost float64
}

// New creates an Exporter. alerts may be nil.
func New(st *store.Store, partCount int, alerts FiringCounter, investmentCost float64) *Exporter {
	return &Exporter{store: st, partCount: partCount, alerts: alerts, investmentCost: investmentCost}
}

// gauge describes one per-team gauge family.
type gauge struct {
	name  string
	help  string
	value func(r *compute.Result) float64
}

var teamGauges = []gauge{
	{"accuracy_percent", "Share of parts whose decision matched the label.", func(r *compute.Result) float64 { return r.Accuracy }},
	{"recall_percent", "Share of defective parts flagged DEFECT.", func(r *compute.Result) float64 { return r.Recall }},
	{"precision_percent", "Share of DEFECT decisions that were defective.", func(r *compute.Result) float64 { return r.Precision }},
	{"false_negatives", "Defective parts passed as OK.", func(r *compute.Result) float64 { return float64(r.FalseNegatives) }},
	{"takt_time_seconds", "Modelled seconds per part.", func(r *compute.Result) float64 { return r.TaktTime }},
	{"jobs_per_hour", "Modelled line throughput.", func(r *compute.Result) float64 { return r.JobsPerHour }},
	{"inspection_cost", "Manual review plus sampling cost.", func(r *compute.Result) float64 { return r.InspectionCost }},
	{"defect_cost", "Cost of escaped defects.", func(r *compute.Result) float64 { return r.DefectCost }},
	{"manual_rate", "Fraction of parts sent to manual review.", func(r *compute.Result) float64 { return r.ManualRate }},
}

// Gather builds the metric families for the current store contents, sorted by name.
func (e *Exporter) Gather() []*dto.MetricFamily {
	entries := e.store.List()

	fams := make([]*dto.MetricFamily, 0, len(teamGauges)+4)
	for _, g := range teamGauges {
		mf := newGauge(g.name, g.help)
		for _, en := range entries {
			mf.Metric = append(mf.Metric, teamMetric(en.Evaluation.Team, g.value(en.Evaluation.Result)))
		}
		fams = append(fams, mf)
	}

	roi := newGauge("roi_ratio", "Return on investment of the latest evaluation. Absent when not applicable.")
	ts := newGauge("evaluation_timestamp_seconds", "Unix time of the latest evaluation.")
	for _, en := range entries {
		ev := en.Evaluation
		r := compute.ROIFromResult(ev.Result, ev.Result.DefectCost*baselineMultiplier, e.investmentCost)
		if r.Applicable {
			roi.Metric = append(roi.Metric, teamMetric(ev.Team, r.Value))
		}
		ts.Metric = append(ts.Metric, teamMetric(ev.Team, float64(ev.EvaluatedAt.Unix())))
	}
	fams = append(fams, roi, ts)

	parts := newGauge("dataset_parts", "Parts in the loaded sensor log.")
	parts.Metric = []*dto.Metric{{Gauge: &dto.Gauge{Value: proto.Float64(float64(e.partCount))}}}
	fams = append(fams, parts)

	if e.alerts != nil {
		firing := newGauge("alerts_firing", "Quality gates currently firing.")
		firing.Metric = []*dto.Metric{{Gauge: &dto.Gauge{Value: proto.Float64(float64(e.alerts.Firing()))}}}
		fams = append(fams, firing)
	}

	sort.Slice(fams, func(i, j int) bool { return fams[i].GetName() < fams[j].GetName() })
	return fams
}

// ServeHTTP writes the families in the format negotiated from the Accept header.
func (e *Exporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	format := expfmt.Negotiate(r.Header)
	w.Header().Set("Content-Type", string(format))
	enc := expfmt.NewEncoder(w, format)
	for _, mf := range e.Gather() {
		if len(mf.Metric) == 0 {
			continue
		}
		if err := enc.Encode(mf); err != nil {
			slog.Warn("exposition: encode failed", "family", mf.GetName(), "err", err)
			return
		}
	}
	if closer, ok := enc.(expfmt.Closer); ok {
		closer.Close() //nolint:errcheck
	}
}

func newGauge(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(namespace + name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

func teamMetric(team string, v float64) *dto.Metric {
	return &dto.Metric{
		Label: []*dto.LabelPair{{Name: proto.String("team"), Value: proto.String(team)}},
		Gauge: &dto.Gauge{Value: proto.Float64(v)},
	}
}
