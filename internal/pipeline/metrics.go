package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the run metrics.
type Metrics struct {
	SourceFetches *prometheus.CounterVec
	Alerts        *prometheus.CounterVec
	Runs          *prometheus.CounterVec
	RunDuration   prometheus.Histogram
}

// NewMetrics registers the run metrics with reg. A nil reg uses a private
// registry so that nothing is exported.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		SourceFetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "epiwatch_source_fetch_total",
			Help: "Source fetches by outcome (ok, network, timeout, status, parse)",
		}, []string{"source", "outcome"}),
		Alerts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "epiwatch_alerts_total",
			Help: "Alerts emitted by source",
		}, []string{"source"}),
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "epiwatch_runs_total",
			Help: "Pipeline runs by result",
		}, []string{"result"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "epiwatch_run_duration_seconds",
			Help:    "Wall time of a pipeline run",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
	}
}
