// Package prometheus implements metrics.CommandMetrics on the
// Prometheus client library.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/exemee/Laba8-server/pkg/metrics"
)

type commandMetrics struct {
	commandsTotal       *prometheus.CounterVec
	commandDuration     *prometheus.HistogramVec
	commandsInFlight    *prometheus.GaugeVec
	activeConnections   prometheus.Gauge
	connectionsAccepted prometheus.Counter
	connectionsClosed   prometheus.Counter
	syncsTotal          *prometheus.CounterVec
}

// NewCommandMetrics creates a Prometheus-backed CommandMetrics, or a
// no-op one when the registry has not been initialized.
func NewCommandMetrics() metrics.CommandMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopCommandMetrics()
	}

	reg := metrics.GetRegistry()

	return &commandMetrics{
		commandsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "groupstore_commands_total",
				Help: "Total number of commands by verb and reply kind",
			},
			[]string{"verb", "kind"},
		),
		commandDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "groupstore_command_duration_milliseconds",
				Help:    "Duration of command processing in milliseconds",
				Buckets: []float64{1, 10, 100, 1000, 10000},
			},
			[]string{"verb"},
		),
		commandsInFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "groupstore_commands_in_flight",
				Help: "Current number of commands being processed",
			},
			[]string{"verb"},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "groupstore_active_connections",
				Help: "Current number of active client connections",
			},
		),
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "groupstore_connections_accepted_total",
				Help: "Total number of accepted client connections",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "groupstore_connections_closed_total",
				Help: "Total number of closed client connections",
			},
		),
		syncsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "groupstore_syncs_total",
				Help: "Total number of pushed full-collection sync bundles by mode",
			},
			[]string{"mode"},
		),
	}
}

func (m *commandMetrics) RecordCommand(verb, kind string, duration time.Duration) {
	m.commandsTotal.WithLabelValues(verb, kind).Inc()
	m.commandDuration.WithLabelValues(verb).Observe(float64(duration.Milliseconds()))
}

func (m *commandMetrics) RecordCommandStart(verb string) {
	m.commandsInFlight.WithLabelValues(verb).Inc()
}

func (m *commandMetrics) RecordCommandEnd(verb string) {
	m.commandsInFlight.WithLabelValues(verb).Dec()
}

func (m *commandMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}

func (m *commandMetrics) RecordConnectionAccepted() {
	m.connectionsAccepted.Inc()
}

func (m *commandMetrics) RecordConnectionClosed() {
	m.connectionsClosed.Inc()
}

func (m *commandMetrics) RecordSync(mode string) {
	m.syncsTotal.WithLabelValues(mode).Inc()
}
