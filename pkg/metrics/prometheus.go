package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycles        *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	probability   *prometheus.GaugeVec
	notifications *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cycles: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cravepulse_cycles_total",
				Help: "Total prediction cycles by outcome",
			},
			[]string{"outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cravepulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		probability: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cravepulse_craving_probability",
				Help: "Last predicted craving probability per subject",
			},
			[]string{"subject"},
		),
		notifications: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cravepulse_notifications_total",
				Help: "Total craving notifications emitted",
			},
			[]string{"subject"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cravepulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCycle records a finished prediction cycle outcome
// ("completed", "skipped" or "failed").
func (r *Recorder) RecordCycle(outcome string) {
	r.cycles.WithLabelValues(outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordProbability records the last predicted probability for a subject.
func (r *Recorder) RecordProbability(subject string, p float64) {
	r.probability.WithLabelValues(subject).Set(p)
}

// RecordNotification records an emitted notification.
func (r *Recorder) RecordNotification(subject string) {
	r.notifications.WithLabelValues(subject).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
