// Package metrics defines the Prometheus collectors exported by the bot.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatbot"

// Metrics holds the bot's collectors.
type Metrics struct {
	routedEvents       *prometheus.CounterVec
	handlerInvocations *prometheus.CounterVec
	handlerDuration    *prometheus.HistogramVec
	snapshotReloads    *prometheus.CounterVec
	eventAppends       *prometheus.CounterVec
	eventQueueDepth    prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on a fresh registry
// together with the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors on reg and serves them from g.
func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	m := &Metrics{
		routedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routed_events_total",
			Help:      "Chat events by routing outcome.",
		}, []string{"status", "reason"}),
		handlerInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_invocations_total",
			Help:      "Command handler invocations by result.",
		}, []string{"handler", "result"}),
		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Command handler latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"handler"}),
		snapshotReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_reloads_total",
			Help:      "Configuration snapshot reloads by result.",
		}, []string{"result"}),
		eventAppends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_appends_total",
			Help:      "Chat events handed to the event store by result.",
		}, []string{"result"}),
		eventQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_queue_depth",
			Help:      "Events waiting in the event store writer queues.",
		}),
		gatherer: g,
	}

	reg.MustRegister(
		m.routedEvents,
		m.handlerInvocations,
		m.handlerDuration,
		m.snapshotReloads,
		m.eventAppends,
		m.eventQueueDepth,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Append results.
const (
	AppendOK      = "ok"
	AppendRetried = "retried"
	AppendFailed  = "failed"
	AppendDropped = "dropped"
)

// Handler results.
const (
	HandlerOK      = "ok"
	HandlerError   = "error"
	HandlerTimeout = "timeout"
	HandlerPanic   = "panic"
)

func (m *Metrics) RoutedEvent(status, reason string) {
	if m == nil {
		return
	}
	m.routedEvents.WithLabelValues(status, reason).Inc()
}

func (m *Metrics) HandlerInvoked(handler, result string, took time.Duration) {
	if m == nil {
		return
	}
	m.handlerInvocations.WithLabelValues(handler, result).Inc()
	m.handlerDuration.WithLabelValues(handler).Observe(took.Seconds())
}

func (m *Metrics) SnapshotReloaded(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.snapshotReloads.WithLabelValues(result).Inc()
}

func (m *Metrics) EventsAppended(result string, n int) {
	if m == nil {
		return
	}
	m.eventAppends.WithLabelValues(result).Add(float64(n))
}

func (m *Metrics) QueueDepth(delta float64) {
	if m == nil {
		return
	}
	m.eventQueueDepth.Add(delta)
}
