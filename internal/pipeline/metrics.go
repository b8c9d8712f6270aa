package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hospitalinsights"

// Metrics are the pipeline's prometheus collectors. All methods are safe on a nil *Metrics.
type Metrics struct {
	Runs      *prometheus.CounterVec
	Rows      *prometheus.CounterVec
	Recovered *prometheus.CounterVec
	MatchRate prometheus.Gauge
	Duration  prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg when it is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Workbook runs by outcome (ok or the failing stage).",
		}, []string{"outcome"}),
		Rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows produced per table.",
		}, []string{"table"}),
		Recovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovered_cells_total",
			Help:      "Cells or rows nulled or dropped instead of failing the run.",
		}, []string{"kind"}),
		MatchRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "match_ratio",
			Help:      "Share of diagnosis rows matched to a patient in the last run.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of one workbook run.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Runs, m.Rows, m.Recovered, m.MatchRate, m.Duration)
	}
	return m
}

func (m *Metrics) run(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(outcome).Inc()
	m.Duration.Observe(seconds)
}

func (m *Metrics) rows(tbl string, n int) {
	if m == nil {
		return
	}
	m.Rows.WithLabelValues(tbl).Add(float64(n))
}

func (m *Metrics) recovered(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Recovered.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) matchRate(r float64) {
	if m == nil {
		return
	}
	m.MatchRate.Set(r)
}
