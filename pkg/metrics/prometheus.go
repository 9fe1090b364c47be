package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	combinations *prometheus.CounterVec
	results      prometheus.Counter
	progress     *prometheus.GaugeVec
}

// New creates a recorder on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder whose collectors are registered on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sweeplab_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sweeplab_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60, 300, 900},
			},
			[]string{"operation"},
		),
		combinations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sweeplab_combinations_total",
				Help: "Evaluated (interval, start time) combinations by outcome",
			},
			[]string{"outcome"},
		),
		results: f.NewCounter(
			prometheus.CounterOpts{
				Name: "sweeplab_results_total",
				Help: "Strategy results emitted by completed sweeps",
			},
		),
		progress: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sweeplab_sweep_progress_ratio",
				Help: "Completed share of each in-flight sweep",
			},
			[]string{"run_id"},
		),
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordCombinations(outcome string, n int) {
	if n > 0 {
		r.combinations.WithLabelValues(outcome).Add(float64(n))
	}
}

func (r *Recorder) RecordResults(n int) {
	if n > 0 {
		r.results.Add(float64(n))
	}
}

func (r *Recorder) SetProgress(runID string, ratio float64) {
	r.progress.WithLabelValues(runID).Set(ratio)
}

// ClearProgress drops the series of a finished sweep so run ids do not
// accumulate.
func (r *Recorder) ClearProgress(runID string) {
	r.progress.DeleteLabelValues(runID)
}
