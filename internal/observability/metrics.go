package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters for the ledger service.
type Metrics struct {
	CallsApplied  *prometheus.CounterVec // labels: contract, operation, outcome={ok,error}
	EventsEmitted *prometheus.CounterVec // labels: contract, event
	ClaimPayouts  prometheus.Counter
	ClaimRejects  prometheus.Counter
}

// NewMetrics creates and registers all ledger metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CallsApplied,
		m.EventsEmitted,
		m.ClaimPayouts,
		m.ClaimRejects,
	)
	return m
}

// NewMetricsForTesting creates Metrics without touching the default registry
// to avoid "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CallsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weathershield",
			Name:      "calls_applied_total",
			Help:      "Contract calls applied, by contract, operation, and outcome.",
		}, []string{"contract", "operation", "outcome"}),
		EventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weathershield",
			Name:      "events_emitted_total",
			Help:      "Domain events emitted, by contract and event name.",
		}, []string{"contract", "event"}),
		ClaimPayouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weathershield",
			Name:      "claim_payouts_total",
			Help:      "Approved claims paid out of the insurance pool.",
		}),
		ClaimRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weathershield",
			Name:      "claim_rejects_total",
			Help:      "Claims processed without payout.",
		}),
	}
}
