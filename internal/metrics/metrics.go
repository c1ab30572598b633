// Package metrics holds the Prometheus collectors for the realtime layer.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "campusconnect"

type Metrics struct {
	registry      *prometheus.Registry
	connections   prometheus.Gauge
	pushes        *prometheus.CounterVec
	messages      prometheus.Counter
	notifications *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_connections",
			Help:      "Currently registered live connections.",
		}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pushes_total",
			Help:      "Server-to-client pushes by event and result.",
		}, []string{"event", "result"}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_relayed_total",
			Help:      "Chat messages persisted by the relay.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification requests by outcome.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.connections, m.pushes, m.messages, m.notifications,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Connections sets the live connection gauge.
func (m *Metrics) Connections(n int) {
	if m != nil {
		m.connections.Set(float64(n))
	}
}

// Push records one push attempt; result is delivered, offline or failed.
func (m *Metrics) Push(event, result string) {
	if m != nil {
		m.pushes.WithLabelValues(event, result).Inc()
	}
}

func (m *Metrics) MessageRelayed() {
	if m != nil {
		m.messages.Inc()
	}
}

// Notification records a fan-out outcome: queued, dropped, invalid, stored or failed.
func (m *Metrics) Notification(result string) {
	if m != nil {
		m.notifications.WithLabelValues(result).Inc()
	}
}
