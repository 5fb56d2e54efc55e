// Package metrics declares the Prometheus collectors used across the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal counts finished fetch cycles by kind (scheduled, manual) and outcome.
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricenotifier_cycles_total",
			Help: "Total number of fetch cycles by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// CycleDuration observes how long a whole cycle took.
	CycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pricenotifier_cycle_duration_seconds",
			Help:    "Duration of fetch cycles in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 15, 30, 60},
		},
		[]string{"kind"},
	)

	// CyclesSkipped counts scheduled ticks skipped because a cycle was still running.
	CyclesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricenotifier_cycles_skipped_total",
			Help: "Scheduled ticks skipped while a previous scheduled cycle was in flight",
		},
	)

	// BatchRequests counts price API requests by outcome (ok, upstream_unavailable,
	// malformed_response, timeout, error).
	BatchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricenotifier_batch_requests_total",
			Help: "Total number of price API batch requests by outcome",
		},
		[]string{"outcome"},
	)

	// NotificationsTotal counts emitted messages by mode (aggregate, item).
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricenotifier_notifications_total",
			Help: "Total number of notification messages emitted by mode",
		},
		[]string{"mode"},
	)

	// CircuitBreakerState reports the price API breaker state (0=closed, 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pricenotifier_circuit_breaker_state",
			Help: "Current state of the price API circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// RegisterWatchlistSize exposes the watchlist size through a gauge func.
// It is a no-op when the collector is already registered.
func RegisterWatchlistSize(reg prometheus.Registerer, size func() int) {
	gauge := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "pricenotifier_watchlist_entries",
			Help: "Number of items currently on the watchlist",
		},
		func() float64 { return float64(size()) },
	)
	if err := reg.Register(gauge); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			panic(err)
		}
	}
}
