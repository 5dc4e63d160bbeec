// Package server exposes Prometheus metrics for connections, inbound events
// and chat registry sizes.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Tyrowin/relaychat/internal/chat"
)

const (
	rejectInvalid     = "invalid"
	rejectRateLimited = "rate_limited"
)

// Metrics holds the relaychat collectors on a private registry. A nil
// *Metrics records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	connections prometheus.Gauge
	events      *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	dropped     prometheus.Counter
}

// NewMetrics registers the collectors, including gauges that read the
// session table and room directory at scrape time.
func NewMetrics(sessions *chat.SessionTable, rooms *chat.RoomDirectory) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "relaychat",
			Name:      "connections",
			Help:      "Open WebSocket connections.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaychat",
			Name:      "events_total",
			Help:      "Inbound client events by name.",
		}, []string{"event"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaychat",
			Name:      "events_rejected_total",
			Help:      "Inbound frames discarded before or during dispatch.",
		}, []string{"reason"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relaychat",
			Name:      "sends_dropped_total",
			Help:      "Outbound frames that could not be queued.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.connections,
		m.events,
		m.rejected,
		m.dropped,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "relaychat",
			Name:      "sessions",
			Help:      "Connections that have joined a room.",
		}, func() float64 { return float64(sessions.Len()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "relaychat",
			Name:      "rooms",
			Help:      "Populated rooms.",
		}, func() float64 { return float64(rooms.Len()) }),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) connectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) connectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

// known events only, so a client cannot grow label cardinality.
func (m *Metrics) eventReceived(event string) {
	if m == nil {
		return
	}
	switch event {
	case chat.EventJoin, chat.EventChatMessage, chat.EventTyping, chat.EventGetUsers, chat.EventGetRooms:
	default:
		event = "unknown"
	}
	m.events.WithLabelValues(event).Inc()
}

func (m *Metrics) eventRejected(reason string) {
	if m != nil {
		m.rejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) sendDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}
