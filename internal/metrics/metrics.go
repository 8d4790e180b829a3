// Package metrics exposes an optional Prometheus surface over the
// tip-preparation engine: a cycle counter, an action-duration
// histogram, and a buffer-utilization gauge. The core never starts an
// HTTP listener itself; Register returns a handler a caller mounts.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

// Metrics bundles the collectors the engine and driver update.
type Metrics struct {
	CyclesTotal       *prometheus.CounterVec
	ActionDuration    *prometheus.HistogramVec
	BufferUtilization prometheus.Gauge
}

// Register creates and registers the collectors against a dedicated
// registry and returns an http.Handler serving them. Callers mount the
// handler at whatever path/listener they prefer.
func Register() (*Metrics, http.Handler) {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		CyclesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "tipprep",
			Name:      "cycles_total",
			Help:      "Total tip-preparation cycles run, by terminal classification.",
		}, []string{"classification"}),

		ActionDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tipprep",
			Name:      "action_duration_seconds",
			Help:      "Duration of each action execution, by action kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),

		BufferUtilization: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "tipprep",
			Name:      "buffer_utilization_ratio",
			Help:      "Fraction of the telemetry ring buffer currently occupied.",
		}),
	}

	return m, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
