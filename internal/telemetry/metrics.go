// Package telemetry registers the Prometheus series this engine exposes at
// /metrics, in the same init()-registered package-var style as the teacher's
// metrics.go, extended with the gauges/counters this domain needs: cache
// hit/miss, signal gate rejections, circuit breaker trips, trailing-stop
// activations, and position lifecycle counts.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

var (
	// CacheOps counts Market-Data Cache reads and writes, split by outcome
	// (hit|miss for reads, ok for writes, error for either).
	CacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_cache_ops_total",
			Help: "Market-data cache read/write operations by key kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// SignalGate counts strategy gate outcomes (admitted|rejected) split by
	// rejection reason when rejected.
	SignalGate = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_signal_gate_total",
			Help: "Strategy signal gate decisions by outcome and reason",
		},
		[]string{"outcome", "reason"},
	)

	// CircuitBreakerTrips counts circuit-breaker trips by reason.
	CircuitBreakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_circuit_breaker_trips_total",
			Help: "Circuit breaker trips by reason",
		},
		[]string{"reason"},
	)

	// TrailingStopActivations counts the trailing-stop activation transition
	// per symbol.
	TrailingStopActivations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_trailing_stop_activations_total",
			Help: "Trailing-stop activation transitions by symbol",
		},
		[]string{"symbol"},
	)

	// PositionLifecycle counts position open/close transitions by symbol and,
	// on close, close reason.
	PositionLifecycle = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_position_lifecycle_total",
			Help: "Position lifecycle transitions by symbol, transition, and reason",
		},
		[]string{"symbol", "transition", "reason"},
	)

	// SchedulerSkips counts scheduler ticks skipped because the previous
	// instance of that cadence had not finished.
	SchedulerSkips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_scheduler_skips_total",
			Help: "Scheduler ticks skipped due to a still-running previous instance",
		},
		[]string{"cadence"},
	)

	// WorkerPoolQueueDepth reports the current depth of the scheduler's shared
	// work queue.
	WorkerPoolQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_worker_pool_queue_depth",
			Help: "Number of enqueued-but-not-yet-started work items",
		},
	)

	// DrawdownPct mirrors the day's current RiskState.drawdown_pct.
	DrawdownPct = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_drawdown_pct",
			Help: "Current day's drawdown percentage",
		},
	)

	// EquityUSD mirrors the day's current balance, the same series name and
	// intent as the teacher's bot_equity_usd.
	EquityUSD = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_equity_usd",
			Help: "Equity in USD",
		},
	)

	// OrdersTotal counts orders placed, the same shape as the teacher's
	// bot_orders_total{mode,side}, generalized from paper|live to this
	// engine's broker selection.
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_orders_total",
			Help: "Orders placed",
		},
		[]string{"broker", "side"},
	)
)

func init() {
	prometheus.MustRegister(
		CacheOps, SignalGate, CircuitBreakerTrips, TrailingStopActivations,
		PositionLifecycle, SchedulerSkips, WorkerPoolQueueDepth, DrawdownPct,
		EquityUSD, OrdersTotal,
	)
}

// RecordCacheOp increments the CacheOps counter for a given key kind and hit/miss/ok/error outcome.
func RecordCacheOp(kind, outcome string) { CacheOps.WithLabelValues(kind, outcome).Inc() }

// RecordGateAdmitted records a signal that passed the strategy gate.
func RecordGateAdmitted() { SignalGate.WithLabelValues("admitted", "").Inc() }

// RecordGateRejected records a signal rejected at the given reason.
func RecordGateRejected(reason string) { SignalGate.WithLabelValues("rejected", reason).Inc() }

// RecordCircuitBreakerTrip increments CircuitBreakerTrips for reason.
func RecordCircuitBreakerTrip(reason string) { CircuitBreakerTrips.WithLabelValues(reason).Inc() }

// RecordTrailingActivation increments TrailingStopActivations for symbol.
func RecordTrailingActivation(symbol string) { TrailingStopActivations.WithLabelValues(symbol).Inc() }

// RecordPositionOpen increments PositionLifecycle for a symbol's open transition.
func RecordPositionOpen(symbol string) { PositionLifecycle.WithLabelValues(symbol, "open", "").Inc() }

// RecordPositionClose increments PositionLifecycle for a symbol's close transition and reason.
func RecordPositionClose(symbol, reason string) {
	PositionLifecycle.WithLabelValues(symbol, "close", reason).Inc()
}

// RecordSchedulerSkip increments SchedulerSkips for a cadence whose previous
// tick had not completed.
func RecordSchedulerSkip(cadence string) { SchedulerSkips.WithLabelValues(cadence).Inc() }

// RecordOrder increments OrdersTotal for broker/side.
func RecordOrder(broker, side string) { OrdersTotal.WithLabelValues(broker, side).Inc() }
