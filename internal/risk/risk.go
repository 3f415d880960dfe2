// Package risk implements position sizing, slippage admission, the
// trailing-stop state machine, and the daily drawdown circuit breaker.
package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/chidi150c/spotengine/internal/exchange"
	"github.com/chidi150c/spotengine/internal/models"
	"github.com/shopspring/decimal"
)

// Config holds the tunable risk parameters, all defaulted the way the
// originating system defaults them.
type Config struct {
	AccountRiskPct     decimal.Decimal // default 0.015
	MaxSlippagePct     decimal.Decimal // default 0.002 (0.2%)
	TrailingTriggerPct decimal.Decimal // default 0.02 (2%)
	DailyDrawdownLimit decimal.Decimal // default 0.05 (5%)
	RiskMultiple       decimal.Decimal // default 2 (ATR multiple for initial stop)
}

// DefaultConfig mirrors the originating system's documented defaults.
func DefaultConfig() Config {
	return Config{
		AccountRiskPct:     decimal.NewFromFloat(0.015),
		MaxSlippagePct:     decimal.NewFromFloat(0.002),
		TrailingTriggerPct: decimal.NewFromFloat(0.02),
		DailyDrawdownLimit: decimal.NewFromFloat(0.05),
		RiskMultiple:       decimal.NewFromInt(2),
	}
}

// SizingResult is the outcome of PositionSize.
type SizingResult struct {
	Quantity decimal.Decimal
	IsValid  bool
	Reason   string
}

// PositionSize computes the quantity risk_amount/stop_distance, rounded down
// to the symbol's step size, then rejects against min_notional/min_qty.
func PositionSize(cfg Config, balance, entryPrice, stopPrice decimal.Decimal, filters exchange.Filters) SizingResult {
	if balance.Cmp(decimal.Zero) <= 0 {
		return SizingResult{IsValid: false, Reason: "balance must be positive"}
	}
	stopDistance := entryPrice.Sub(stopPrice).Abs()
	if stopDistance.IsZero() {
		return SizingResult{IsValid: false, Reason: "stop distance is zero"}
	}
	riskAmount := balance.Mul(cfg.AccountRiskPct)
	quantity := riskAmount.Div(stopDistance)
	quantity = roundDownToStep(quantity, filters.StepSize)

	notional := quantity.Mul(entryPrice)
	if notional.LessThan(filters.MinNotional) {
		return SizingResult{Quantity: quantity, IsValid: false, Reason: "below min_notional"}
	}
	if quantity.LessThan(filters.MinQty) {
		return SizingResult{Quantity: quantity, IsValid: false, Reason: "below min_qty"}
	}
	return SizingResult{Quantity: quantity, IsValid: true}
}

// roundDownToStep floors qty to the nearest multiple of step (step=0 is a
// no-op — some symbols carry no step-size filter).
func roundDownToStep(qty, step decimal.Decimal) decimal.Decimal {
	if step.IsZero() {
		return qty
	}
	units := qty.Div(step).Floor()
	return units.Mul(step)
}

// SlippageResult is the outcome of AdmitSlippage.
type SlippageResult struct {
	SufficientLiquidity bool
	AveragePrice        decimal.Decimal
	SlippagePct         decimal.Decimal
	Admitted            bool
	Reason              string
}

// AdmitSlippage walks the opposite-side book ladder (asks for a BUY, bids for
// a SELL) filling quantity from the top, and admits the trade iff the
// resulting slippage against the top-of-book price is within MaxSlippagePct.
func AdmitSlippage(cfg Config, side models.OrderSide, quantity decimal.Decimal, book exchange.OrderBook) SlippageResult {
	levels := book.Asks
	if side == models.SideSell {
		levels = book.Bids
	}
	if len(levels) == 0 {
		return SlippageResult{Reason: "empty book"}
	}

	remaining := quantity
	totalCost := decimal.Zero
	filled := decimal.Zero
	for _, lvl := range levels {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		take := lvl.Quantity
		if take.GreaterThan(remaining) {
			take = remaining
		}
		totalCost = totalCost.Add(take.Mul(lvl.Price))
		filled = filled.Add(take)
		remaining = remaining.Sub(take)
	}
	if remaining.GreaterThan(decimal.Zero) {
		return SlippageResult{SufficientLiquidity: false, Reason: "ladder exhausted"}
	}

	avg := totalCost.Div(filled)
	best := levels[0].Price
	slippagePct := avg.Sub(best).Abs().Div(best).Mul(decimal.NewFromInt(100))
	maxPct := cfg.MaxSlippagePct.Mul(decimal.NewFromInt(100))

	res := SlippageResult{
		SufficientLiquidity: true,
		AveragePrice:        avg,
		SlippagePct:         slippagePct,
	}
	if slippagePct.GreaterThan(maxPct) {
		res.Reason = fmt.Sprintf("slippage %s%% exceeds max_slippage_pct %s%%", slippagePct.StringFixed(2), maxPct.StringFixed(2))
		return res
	}
	res.Admitted = true
	return res
}

// InitialStop computes the initial stop distance from ATR(hourly, 14) ×
// RiskMultiple, falling back to entry × 1% when atr is zero or unavailable.
func InitialStop(cfg Config, side models.OrderSide, entry decimal.Decimal, atr decimal.Decimal) decimal.Decimal {
	var distance decimal.Decimal
	if atr.GreaterThan(decimal.Zero) {
		distance = atr.Mul(cfg.RiskMultiple)
	} else {
		distance = entry.Mul(decimal.NewFromFloat(0.01))
	}
	if side == models.SideBuy {
		return entry.Sub(distance)
	}
	return entry.Add(distance)
}

// UpdateTrailingStop runs one tick of the per-position trailing-stop state
// machine: refresh unrealized PnL, activate trailing once profit clears the
// trigger threshold, then ratchet the stop while active. Returns true if the
// position's stop has now been hit (the caller, the Execution loop, decides
// whether/how to close).
func UpdateTrailingStop(cfg Config, p *models.Position, currentPrice decimal.Decimal) (stopHit bool) {
	p.UpdateUnrealizedPnL(currentPrice)

	if !p.TrailActivated {
		trigger := cfg.TrailingTriggerPct.Mul(decimal.NewFromInt(100))
		if p.UnrealizedPct.GreaterThanOrEqual(trigger) {
			p.TrailActivated = true
			p.TrailDistance = currentPrice.Sub(p.CurrentStop).Abs()
			p.HighestPrice = currentPrice
			p.LowestPrice = currentPrice
		}
	}

	if p.TrailActivated {
		switch p.Side {
		case models.SideBuy:
			if currentPrice.GreaterThan(p.HighestPrice) {
				p.HighestPrice = currentPrice
			}
			newStop := p.HighestPrice.Sub(p.TrailDistance)
			if newStop.GreaterThan(p.CurrentStop) {
				p.CurrentStop = newStop
			}
		case models.SideSell:
			if p.LowestPrice.IsZero() || currentPrice.LessThan(p.LowestPrice) {
				p.LowestPrice = currentPrice
			}
			newStop := p.LowestPrice.Add(p.TrailDistance)
			if newStop.LessThan(p.CurrentStop) {
				p.CurrentStop = newStop
			}
		}
	}

	switch p.Side {
	case models.SideBuy:
		return currentPrice.LessThanOrEqual(p.CurrentStop)
	default:
		return currentPrice.GreaterThanOrEqual(p.CurrentStop)
	}
}

// Store is the minimal contract the circuit breaker needs against the
// relational store's RiskState rows.
type Store interface {
	Today(ctx context.Context, day time.Time, startingBalance decimal.Decimal) (*models.RiskState, error)
	Save(ctx context.Context, state *models.RiskState) error
}

// StatusPublisher is the cache's minimal contract for publishing the
// system-wide trading status.
type StatusPublisher interface {
	SetSystemStatus(ctx context.Context, status models.SystemStatus, reason string) error
}

// CancelAllFunc cancels every open order for a symbol; failures are
// best-effort and isolated per symbol, matching the circuit breaker's trip
// semantics.
type CancelAllFunc func(ctx context.Context, symbol string) error

// CircuitBreaker evaluates drawdown once a minute and trips the day into
// PAUSED, cancelling resting orders across every configured symbol.
type CircuitBreaker struct {
	cfg     Config
	store   Store
	cache   StatusPublisher
	cancel  CancelAllFunc
	symbols []string
}

func NewCircuitBreaker(cfg Config, store Store, cache StatusPublisher, cancel CancelAllFunc, symbols []string) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg, store: store, cache: cache, cancel: cancel, symbols: symbols}
}

// Evaluate updates the day's RiskState with currentBalance and trips the
// breaker if drawdown_% has crossed the configured limit. A day already
// PAUSED/EMERGENCY_STOP is reported as such without re-evaluating.
func (b *CircuitBreaker) Evaluate(ctx context.Context, day time.Time, startingBalance, currentBalance decimal.Decimal) (*models.RiskState, error) {
	state, err := b.store.Today(ctx, day, startingBalance)
	if err != nil {
		return nil, fmt.Errorf("risk: load today's state: %w", err)
	}
	if state.SystemStatus != models.SystemActive {
		return state, nil
	}

	state.UpdateBalance(currentBalance)
	limit := b.cfg.DailyDrawdownLimit.Mul(decimal.NewFromInt(100))
	if state.DrawdownPct.GreaterThanOrEqual(limit) {
		b.trip(ctx, state, "daily drawdown limit exceeded")
	}
	if err := b.store.Save(ctx, state); err != nil {
		return state, fmt.Errorf("risk: save state: %w", err)
	}
	return state, nil
}

func (b *CircuitBreaker) trip(ctx context.Context, state *models.RiskState, reason string) {
	state.TriggerCircuitBreaker(reason, time.Now())
	for _, sym := range b.symbols {
		_ = b.cancel(ctx, sym) // best-effort, isolated per symbol
	}
	_ = b.cache.SetSystemStatus(ctx, models.SystemPaused, reason)
}

// IsTradingAllowed reports whether the system status permits new entries.
func IsTradingAllowed(status models.SystemStatus) (allowed bool, reason string) {
	if status == models.SystemActive {
		return true, ""
	}
	return false, string(status)
}
