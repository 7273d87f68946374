package banksdk

import "github.com/prometheus/client_golang/prometheus"

// Refresh outcomes.
const (
	OutcomeSuccess        = "success"
	OutcomeNoRefreshToken = "no_refresh_token"
	OutcomeRejected       = "rejected"
	OutcomeFailed         = "failed"
)

// Replay reasons.
const (
	ReplayRefreshed = "refreshed"
	ReplayWaited    = "waited"
	ReplayStale     = "stale_token"
)

// Metrics counts what the refresh coordinator does. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	refreshes *prometheus.CounterVec
	replays   *prometheus.CounterVec
	waiting   prometheus.Gauge
	logouts   prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "egabank",
				Subsystem: "client",
				Name:      "token_refreshes_total",
				Help:      "Token refresh attempts by outcome",
			},
			[]string{"outcome"},
		),
		replays: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "egabank",
				Subsystem: "client",
				Name:      "request_replays_total",
				Help:      "Requests replayed after an authorization rejection, by reason",
			},
			[]string{"reason"},
		),
		waiting: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "egabank",
				Subsystem: "client",
				Name:      "refresh_waiters",
				Help:      "Requests currently parked waiting for an in-flight refresh",
			},
		),
		logouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "egabank",
				Subsystem: "client",
				Name:      "forced_logouts_total",
				Help:      "Sessions ended because the credential could not be renewed",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.refreshes, m.replays, m.waiting, m.logouts)
	}
	return m
}

// Refreshes returns the counter for outcome, for tests and dashboards.
func (m *Metrics) Refreshes(outcome string) prometheus.Counter {
	return m.refreshes.WithLabelValues(outcome)
}

// Replays returns the counter for reason.
func (m *Metrics) Replays(reason string) prometheus.Counter {
	return m.replays.WithLabelValues(reason)
}

// Logouts returns the forced logout counter.
func (m *Metrics) Logouts() prometheus.Counter { return m.logouts }

func (m *Metrics) refresh(outcome string) {
	if m != nil {
		m.refreshes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) replay(reason string) {
	if m != nil {
		m.replays.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) waiterAdd(delta float64) {
	if m != nil {
		m.waiting.Add(delta)
	}
}

func (m *Metrics) logout() {
	if m != nil {
		m.logouts.Inc()
	}
}
