// Package metrics exposes prometheus collectors for the event bus, the
// GraphQL executor and the live stream endpoints.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "library"

// Metrics owns a private registry so several servers (and tests) can live
// in one process.
type Metrics struct {
	registry *prometheus.Registry

	eventsPublished *prometheus.CounterVec
	eventsDelivered *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec

	operations        *prometheus.CounterVec
	operationErrors   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		eventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "events_published_total",
			Help:      "Events published on the local bus.",
		}, []string{"topic"}),
		eventsDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "events_delivered_total",
			Help:      "Event deliveries to local subscribers.",
		}, []string{"topic"}),
		eventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "events_dropped_total",
			Help:      "Events dropped because a subscriber queue was full.",
		}, []string{"topic"}),
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graphql",
			Name:      "operations_total",
			Help:      "GraphQL operations started, by operation type.",
		}, []string{"type"}),
		operationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graphql",
			Name:      "errors_total",
			Help:      "GraphQL errors returned, by operation type and error code.",
		}, []string{"type", "code"}),
		operationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "graphql",
			Name:      "operation_duration_seconds",
			Help:      "Time until the first response of a query or mutation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
	}
}

// EventPublished records one bus fan-out.
func (m *Metrics) EventPublished(topic string, delivered, dropped int) {
	m.eventsPublished.WithLabelValues(topic).Inc()
	m.eventsDelivered.WithLabelValues(topic).Add(float64(delivered))
	m.eventsDropped.WithLabelValues(topic).Add(float64(dropped))
}

// Gauge registers a gauge sampled from fn at scrape time.
func (m *Metrics) Gauge(subsystem, name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, fn))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
