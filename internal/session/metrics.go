package session

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts session activity. A nil *Metrics records nothing.
type Metrics struct {
	connectAttempts     prometheus.Counter
	reconnectsScheduled prometheus.Counter
	messagesReceived    prometheus.Counter
	messagesDropped     prometheus.Counter
	actionsSent         prometheus.Counter
	actionsDropped      prometheus.Counter
	connectionState     prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "playground",
			Subsystem: "session",
			Name:      name,
			Help:      help,
		})
	}

	m := &Metrics{
		connectAttempts:     counter("connect_attempts_total", "Socket connection attempts."),
		reconnectsScheduled: counter("reconnects_scheduled_total", "Reconnects scheduled after a socket closed."),
		messagesReceived:    counter("messages_received_total", "Valid state snapshots received."),
		messagesDropped:     counter("messages_dropped_total", "Malformed frames discarded."),
		actionsSent:         counter("actions_sent_total", "Actions written to the socket."),
		actionsDropped:      counter("actions_dropped_total", "Actions dropped because the socket was not open."),
		connectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "playground",
			Subsystem: "session",
			Name:      "connection_state",
			Help:      "0 disconnected, 1 connecting, 2 connected, 3 reconnecting, 4 failed.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{
			m.connectAttempts,
			m.reconnectsScheduled,
			m.messagesReceived,
			m.messagesDropped,
			m.actionsSent,
			m.actionsDropped,
			m.connectionState,
		} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) connectAttempt() {
	if m != nil {
		m.connectAttempts.Inc()
	}
}

func (m *Metrics) reconnectScheduled() {
	if m != nil {
		m.reconnectsScheduled.Inc()
	}
}

func (m *Metrics) messageReceived() {
	if m != nil {
		m.messagesReceived.Inc()
	}
}

func (m *Metrics) messageDropped() {
	if m != nil {
		m.messagesDropped.Inc()
	}
}

func (m *Metrics) actionSent() {
	if m != nil {
		m.actionsSent.Inc()
	}
}

func (m *Metrics) actionDropped() {
	if m != nil {
		m.actionsDropped.Inc()
	}
}

func (m *Metrics) setState(s ConnectionState) {
	if m != nil {
		m.connectionState.Set(float64(s))
	}
}
