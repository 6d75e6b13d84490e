package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors of the pipeline.
type Metrics struct {
	runs          *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	stageResults  *prometheus.CounterVec
	revisions     prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ampdesign",
			Name:      "runs_total",
			Help:      "Design runs by outcome.",
		}, []string{"outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ampdesign",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"stage"}),
		stageResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ampdesign",
			Name:      "stage_results_total",
			Help:      "Stage executions by stage and status.",
		}, []string{"stage", "status"}),
		revisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ampdesign",
			Name:      "revisions_total",
			Help:      "Times a failed validation sent a run back to an earlier stage.",
		}),
	}
	reg.MustRegister(m.runs, m.stageDuration, m.stageResults, m.revisions)
	return m
}

func (m *Metrics) observeStage(stage Stage, status StageStatus, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
	m.stageResults.WithLabelValues(string(stage), string(status)).Inc()
}

func (m *Metrics) observeRun(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeRevision() {
	if m == nil {
		return
	}
	m.revisions.Inc()
}
