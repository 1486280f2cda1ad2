// Package metrics exposes Prometheus collectors for the proxy.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks request handling and model switching.
//
// Exposed series (namespace configurable, default "relay"):
//   - relay_requests_total{model, status}
//   - relay_request_duration_seconds{model}
//   - relay_model_switches_total{model, result}
//   - relay_model_switch_duration_seconds
//   - relay_active_model{model}
//   - relay_tool_repairs_total
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	switchesTotal  *prometheus.CounterVec
	switchDuration prometheus.Histogram
	activeModel    *prometheus.GaugeVec

	toolRepairsTotal prometheus.Counter
}

// New creates and registers all collectors on a fresh registry.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of chat completion requests processed",
			},
			[]string{"model", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of chat completion requests in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14), // 100ms to ~14min
			},
			[]string{"model"},
		),

		switchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_switches_total",
				Help:      "Total number of model switch attempts",
			},
			[]string{"model", "result"},
		),

		switchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "model_switch_duration_seconds",
				Help:      "Duration of model switches in seconds",
				Buckets:   prometheus.LinearBuckets(5, 10, 12), // 5s to 115s
			},
		),

		activeModel: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_model",
				Help:      "Currently active model (1 for the loaded model)",
			},
			[]string{"model"},
		),

		toolRepairsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_repairs_total",
				Help:      "Total number of repaired tool-call argument payloads",
			},
		),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.switchesTotal,
		m.switchDuration,
		m.activeModel,
		m.toolRepairsTotal,
	)

	return m
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest records one completed chat request.
func (m *Metrics) RecordRequest(model, status string, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(model, status).Inc()
	m.requestDuration.WithLabelValues(model).Observe(elapsed.Seconds())
}

// ObserveSwitch implements switchboard.Observer.
func (m *Metrics) ObserveSwitch(model, result string, elapsed time.Duration) {
	m.switchesTotal.WithLabelValues(model, result).Inc()
	m.switchDuration.Observe(elapsed.Seconds())
}

// SetActiveModel implements switchboard.Observer. Passing "" clears the gauge.
func (m *Metrics) SetActiveModel(model string) {
	m.activeModel.Reset()
	if model != "" {
		m.activeModel.WithLabelValues(model).Set(1)
	}
}

// RecordToolRepair counts one repaired tool-call payload.
func (m *Metrics) RecordToolRepair() {
	m.toolRepairsTotal.Inc()
}
