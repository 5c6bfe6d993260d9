// Package ircmetrics provides Prometheus counters for the IRC client. A nil *Metrics is valid and
// records nothing, so a client without metrics doesn't need to check.
package ircmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters for one or more clients.
type Metrics struct {
	// LinesReceived counts lines read from the server.
	LinesReceived prometheus.Counter
	// LinesSent counts lines written to the server.
	LinesSent prometheus.Counter
	// ParseErrors counts lines that could not be parsed.
	ParseErrors prometheus.Counter
	// PingTimeouts counts connections lost to a keepalive ping timeout.
	PingTimeouts prometheus.Counter
	// ModeRejections counts MODE lines dropped because their arguments didn't add up.
	ModeRejections prometheus.Counter
	// Disconnects counts lost connections by reason.
	Disconnects *prometheus.CounterVec
	// Events counts events emitted to handlers by kind.
	Events *prometheus.CounterVec
}

// New creates the counters and registers them with the registerer.
func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		LinesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "irc_lines_received_total",
			Help: "Total number of lines received from IRC servers",
		}),
		LinesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "irc_lines_sent_total",
			Help: "Total number of lines sent to IRC servers",
		}),
		ParseErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "irc_parse_errors_total",
			Help: "Total number of lines that could not be parsed",
		}),
		PingTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "irc_ping_timeouts_total",
			Help: "Total number of keepalive ping timeouts",
		}),
		ModeRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "irc_mode_rejections_total",
			Help: "Total number of MODE lines dropped as ambiguous",
		}),
		Disconnects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "irc_disconnects_total",
				Help: "Total number of lost connections by reason",
			},
			[]string{"reason"},
		),
		Events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "irc_events_total",
				Help: "Total number of events emitted by kind",
			},
			[]string{"kind"},
		),
	}
}

// NewWithRegistry creates a fresh registry along with the metrics registered to it. The registry can
// be served with promhttp.HandlerFor.
func NewWithRegistry() (*Metrics, *prometheus.Registry) {
	registry := prometheus.NewRegistry()

	return New(registry), registry
}

// LineReceived counts a received line.
func (metrics *Metrics) LineReceived() {
	if metrics == nil {
		return
	}

	metrics.LinesReceived.Inc()
}

// LineSent counts a sent line.
func (metrics *Metrics) LineSent() {
	if metrics == nil {
		return
	}

	metrics.LinesSent.Inc()
}

// ParseError counts a parse error.
func (metrics *Metrics) ParseError() {
	if metrics == nil {
		return
	}

	metrics.ParseErrors.Inc()
}

// PingTimeout counts a ping timeout.
func (metrics *Metrics) PingTimeout() {
	if metrics == nil {
		return
	}

	metrics.PingTimeouts.Inc()
}

// ModeRejected counts a dropped MODE line.
func (metrics *Metrics) ModeRejected() {
	if metrics == nil {
		return
	}

	metrics.ModeRejections.Inc()
}

// Disconnect counts a lost connection.
func (metrics *Metrics) Disconnect(reason string) {
	if metrics == nil {
		return
	}

	metrics.Disconnects.WithLabelValues(reason).Inc()
}

// Event counts an emitted event.
func (metrics *Metrics) Event(kind string) {
	if metrics == nil {
		return
	}

	metrics.Events.WithLabelValues(kind).Inc()
}
