// Package metrics registers the engine's Prometheus collectors, exposed
// by the binary on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// OperationsTotal counts reservation operations by outcome.
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_reservation_operations_total",
			Help: "Reservation operations by operation and result.",
		},
		[]string{"operation", "result"},
	)

	// LedgerInvariantViolationsTotal counts defensive ledger failures.
	// Any increment indicates a bug and should alert.
	LedgerInvariantViolationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_ledger_invariant_violations_total",
			Help: "Mutations rejected because they would break the stock invariant.",
		},
	)

	// SweepCyclesTotal counts sweep cycles by outcome.
	SweepCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_sweep_cycles_total",
			Help: "Expiry sweep cycles by result.",
		},
		[]string{"result"},
	)

	// SweepReleasedTotal counts reservations reclaimed by the sweeper.
	SweepReleasedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_sweep_released_total",
			Help: "Expired reservations released by the sweeper.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		OperationsTotal,
		LedgerInvariantViolationsTotal,
		SweepCyclesTotal,
		SweepReleasedTotal,
	)
}
