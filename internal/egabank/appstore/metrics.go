package appstore

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts emitted change events by kind and action. A nil *Metrics
// records nothing.
type Metrics struct {
	events *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "egabank",
				Subsystem: "store",
				Name:      "events_total",
				Help:      "Change events emitted by the client cache",
			},
			[]string{"kind", "action"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.events)
	}
	return m
}

// Events returns the counter for one kind and action.
func (m *Metrics) Events(kind Kind, action string) prometheus.Counter {
	return m.events.WithLabelValues(string(kind), action)
}

func (m *Metrics) event(ev Event) {
	if m != nil {
		m.events.WithLabelValues(string(ev.Kind()), ev.Action()).Inc()
	}
}
