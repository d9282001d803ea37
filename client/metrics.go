package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

// Metrics counts what a Conn dispatches and drops. The counters are always
// live; Register exposes them to a Prometheus registry.
type Metrics struct {
	ResponsesDispatched prometheus.Counter
	EventsDispatched    prometheus.Counter

	// UnresolvedResponses counts responses that arrived with no pending
	// listener: late, never awaited, or missing an ActionID
	UnresolvedResponses prometheus.Counter

	Timeouts    prometheus.Counter
	Disconnects prometheus.Counter

	// DiscardedMessages counts queued messages thrown away on disconnect
	DiscardedMessages prometheus.Counter
}

func NewMetrics() *Metrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "amictl",
			Subsystem: "client",
			Name:      name,
			Help:      help,
		})
	}

	return &Metrics{
		ResponsesDispatched: counter("responses_dispatched_total", "Responses delivered to a pending listener"),
		EventsDispatched:    counter("events_dispatched_total", "Events delivered to event listeners"),
		UnresolvedResponses: counter("unresolved_responses_total", "Responses with no pending listener"),
		Timeouts:            counter("response_timeouts_total", "Actions whose response did not arrive in time"),
		Disconnects:         counter("disconnects_total", "Transitions to the disconnected state"),
		DiscardedMessages:   counter("discarded_messages_total", "Queued messages discarded on disconnect"),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ResponsesDispatched,
		m.EventsDispatched,
		m.UnresolvedResponses,
		m.Timeouts,
		m.Disconnects,
		m.DiscardedMessages,
	}
}

// Register adds every counter to reg.
func (m *Metrics) Register(reg prometheus.Registerer) (err error) {
	for _, c := range m.collectors() {
		err = multierr.Append(err, reg.Register(c))
	}

	return err
}
