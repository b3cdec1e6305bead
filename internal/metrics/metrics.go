// Package metrics provides Prometheus instrumentation for connection
// attempts, grounded on postalsys-Muti-Metroo/internal/metrics and
// registered through github.com/prometheus/client_golang (spec §2
// domain-stack item 11).
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ssh_connect"

// Metrics holds the small counter/histogram set this engine exposes.
// Recording a connect attempt and its auth retries is observability,
// not a protocol feature, so it is carried regardless of spec.md's
// Non-goals (see SPEC_FULL.md domain-stack item 11).
type Metrics struct {
	ConnectTotal         *prometheus.CounterVec
	ConnectDurationSecs  prometheus.Histogram
	AuthRetriesTotal     prometheus.Counter
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Default returns the process-wide Metrics instance, registered
// against prometheus.DefaultRegisterer on first use.
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = NewWithRegistry(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// NewWithRegistry builds a Metrics instance against a caller-supplied
// registry, useful for tests that don't want to touch the global
// default registry.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConnectTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_total",
			Help:      "Total connection attempts by outcome",
		}, []string{"outcome"}),
		ConnectDurationSecs: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "connect_duration_seconds",
			Help:      "Histogram of end-to-end Connect() latency",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		AuthRetriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_retries_total",
			Help:      "Total password authentication retries across all sessions",
		}),
	}
}

// RecordConnect records the outcome and duration of one Connect() call.
func (m *Metrics) RecordConnect(outcome string, durationSeconds float64) {
	m.ConnectTotal.WithLabelValues(outcome).Inc()
	m.ConnectDurationSecs.Observe(durationSeconds)
}

// RecordAuthRetry records one password authentication retry.
func (m *Metrics) RecordAuthRetry() {
	m.AuthRetriesTotal.Inc()
}
