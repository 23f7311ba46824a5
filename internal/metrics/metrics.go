// Package metrics exposes the client's Prometheus counters and gauges:
// sessions, subscription workers, reconnect attempts, and catalog updates.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors registered for one process.
type Metrics struct {
	registry *prometheus.Registry

	sessionsConnectedTotal prometheus.Counter
	sessionsClosedTotal    prometheus.Counter
	reconnectAttemptsTotal prometheus.Counter
	activeWorkers          prometheus.Gauge
	catalogUpdatesTotal    prometheus.Counter
	announceEventsTotal    *prometheus.CounterVec
	framesReceivedTotal    prometheus.Counter
	groupsAbortedTotal     prometheus.Counter
}

// New creates and registers the client's metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		sessionsConnectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moq_sessions_connected_total",
			Help: "Total number of sessions that reached the connected state.",
		}),
		sessionsClosedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moq_sessions_closed_total",
			Help: "Total number of sessions that reached a terminal state.",
		}),
		reconnectAttemptsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moq_reconnect_attempts_total",
			Help: "Total number of reconnect attempts made by the manager.",
		}),
		activeWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "moq_active_workers",
			Help: "Number of subscription workers currently running.",
		}),
		catalogUpdatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moq_catalog_updates_total",
			Help: "Total number of catalog snapshots successfully parsed.",
		}),
		announceEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moq_announce_events_total",
			Help: "Total number of announcement events observed, by active/inactive.",
		}, []string{"active"}),
		framesReceivedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moq_frames_received_total",
			Help: "Total number of frames received across all subscriptions.",
		}),
		groupsAbortedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moq_groups_aborted_total",
			Help: "Total number of groups that ended in abort rather than a clean finish.",
		}),
	}

	registry.MustRegister(
		m.sessionsConnectedTotal,
		m.sessionsClosedTotal,
		m.reconnectAttemptsTotal,
		m.activeWorkers,
		m.catalogUpdatesTotal,
		m.announceEventsTotal,
		m.framesReceivedTotal,
		m.groupsAbortedTotal,
	)

	return m
}

func (m *Metrics) SessionConnected()    { m.sessionsConnectedTotal.Inc() }
func (m *Metrics) SessionClosed()       { m.sessionsClosedTotal.Inc() }
func (m *Metrics) ReconnectAttempted()  { m.reconnectAttemptsTotal.Inc() }
func (m *Metrics) SetActiveWorkers(n int) { m.activeWorkers.Set(float64(n)) }
func (m *Metrics) CatalogUpdated()      { m.catalogUpdatesTotal.Inc() }
func (m *Metrics) FrameReceived()       { m.framesReceivedTotal.Inc() }
func (m *Metrics) GroupAborted()        { m.groupsAbortedTotal.Inc() }

func (m *Metrics) AnnounceEvent(active bool) {
	label := "false"
	if active {
		label = "true"
	}
	m.announceEventsTotal.WithLabelValues(label).Inc()
}

// Handler returns an http.Handler serving the registered collectors in the
// Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
