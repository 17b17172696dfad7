// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the engine's collectors.
type Metrics struct {
	Runs           *prometheus.CounterVec
	Holds          prometheus.Counter
	Messages       prometheus.Counter
	RetryAttempts  prometheus.Counter
	RetryExhausted prometheus.Counter
	RunDuration    prometheus.Histogram
}

// New registers the engine collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "csml_runs_total",
			Help: "Executions started, by flow.",
		}, []string{"flow"}),
		Holds: factory.NewCounter(prometheus.CounterOpts{
			Name: "csml_holds_total",
			Help: "Executions suspended at a hold directive.",
		}),
		Messages: factory.NewCounter(prometheus.CounterOpts{
			Name: "csml_messages_emitted_total",
			Help: "Outbound messages emitted.",
		}),
		RetryAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "csml_backend_retries_total",
			Help: "Backend retries after capacity rejections.",
		}),
		RetryExhausted: factory.NewCounter(prometheus.CounterOpts{
			Name: "csml_backend_retry_exhausted_total",
			Help: "Backend operations abandoned at the elapsed-time ceiling.",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "csml_run_duration_seconds",
			Help:    "Wall time of one execution.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
