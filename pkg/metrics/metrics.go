package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	TransfersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "settlement_engine",
			Subsystem: "transfers",
			Name:      "submitted_total",
			Help:      "Total transfers submitted to the ledger network.",
		},
		[]string{"kind"}, // donation, p2p
	)

	TransfersFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "settlement_engine",
			Subsystem: "transfers",
			Name:      "failed_total",
			Help:      "Total transfers rejected by the ledger network.",
		},
		[]string{"kind"},
	)

	AccountsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "settlement_engine",
			Subsystem: "accounts",
			Name:      "created_total",
			Help:      "Total ledger accounts provisioned.",
		},
	)

	VerificationProbes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "settlement_engine",
			Subsystem: "verification",
			Name:      "probes_total",
			Help:      "Observer probes by outcome.",
		},
		[]string{"outcome"}, // found, not_found, transient_error, exhausted
	)

	ReconciliationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "settlement_engine",
			Subsystem: "reconciliation",
			Name:      "transitions_total",
			Help:      "Ledger entry status transitions applied.",
		},
		[]string{"to"}, // completed, failed, noop
	)
)

func init() {
	Registry.MustRegister(
		TransfersSubmitted,
		TransfersFailed,
		AccountsCreated,
		VerificationProbes,
		ReconciliationRuns,
	)
}

// Handler exposes the registry for a /metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
