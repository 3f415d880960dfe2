// FILE: engine.go
// Package main – ties the Market-Data Cache, Exchange Gateway, Strategy
// Coordinator, Execution & Monitor, and Risk Manager components into the
// four scheduler cadences. Boot/shutdown plumbing lives in main.go; this
// file is the per-tick behavior each cadence enqueues.
package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/chidi150c/spotengine/internal/cache"
	"github.com/chidi150c/spotengine/internal/exchange"
	"github.com/chidi150c/spotengine/internal/execution"
	"github.com/chidi150c/spotengine/internal/models"
	"github.com/chidi150c/spotengine/internal/risk"
	"github.com/chidi150c/spotengine/internal/store"
	"github.com/chidi150c/spotengine/internal/strategy"
	"github.com/chidi150c/spotengine/internal/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Engine holds every wired component the scheduler's cadences act through.
type Engine struct {
	Symbols        []string
	Cache          *cache.Cache
	Store          *store.Store
	Gateway        exchange.Gateway
	Coordinator    *strategy.Coordinator
	Executor       *execution.Executor
	CircuitBreaker *risk.CircuitBreaker
	BrokerName     string

	lastSystemStatus models.SystemStatus
}

// runStrategyTick implements the strategy_tick cadence (1s): evaluate every
// configured symbol, either generating a new entry signal or delegating to
// the exit check for a symbol with an open position, then act on whatever
// comes back.
func (e *Engine) runStrategyTick(ctx context.Context) {
	for _, symbol := range e.Symbols {
		openPos, err := e.Store.GetOpenPosition(ctx, symbol)
		if err != nil {
			log.Printf("[TICK] %s: load open position: %v", symbol, err)
			continue
		}
		sig, err := e.Coordinator.EvaluateSymbol(ctx, symbol, openPos)
		if err != nil {
			log.Printf("[TICK] %s: evaluate: %v", symbol, err)
			continue
		}
		if sig == nil {
			continue
		}
		if !sig.IsValid {
			telemetry.RecordGateRejected(sig.RejectionReason)
			continue
		}
		telemetry.RecordGateAdmitted()
		e.handleSignal(ctx, symbol, sig, openPos)
	}
}

// handleSignal executes an admitted BUY/SELL/CLOSE_* signal. The per-symbol
// advisory lock is held only across the synchronous state-changing step
// (order placement / close initiation); the asynchronous fill monitor that
// follows runs unlocked, since only one entry/close can be in flight for a
// symbol at a time and the lock's job is done once that step commits.
func (e *Engine) handleSignal(ctx context.Context, symbol string, sig *models.Signal, openPos *models.Position) {
	token := uuid.New().String()
	if !e.Cache.TryLockPosition(ctx, symbol, token) {
		log.Printf("[TICK] %s: position lock held by another worker, skipping", symbol)
		return
	}

	switch sig.Action {
	case models.ActionBuy, models.ActionSell:
		trade, err := e.Executor.ExecuteTrade(ctx, *sig)
		e.Cache.UnlockPosition(ctx, symbol, token)
		if err != nil {
			log.Printf("[TICK] %s: execute trade: %v", symbol, err)
			return
		}
		telemetry.RecordOrder(e.BrokerName, string(trade.Side))
		stop, takeProfit := sig.StopLoss, sig.TakeProfit
		go e.monitorEntry(symbol, *trade, stop, takeProfit)

	case models.ActionCloseLong, models.ActionCloseShort:
		if openPos == nil {
			e.Cache.UnlockPosition(ctx, symbol, token)
			return
		}
		exitTrade, err := e.Executor.ClosePosition(ctx, *openPos, sig.MacroContext)
		e.Cache.UnlockPosition(ctx, symbol, token)
		if err != nil {
			log.Printf("[TICK] %s: close position: %v", symbol, err)
			return
		}
		if exitTrade == nil {
			return // already closed by a concurrent worker (store.ErrAlreadyClosed)
		}
		telemetry.RecordPositionClose(symbol, sig.MacroContext)
		go e.monitorExit(symbol, *exitTrade, *openPos)

	default:
		e.Cache.UnlockPosition(ctx, symbol, token)
	}
}

// monitorExit polls a just-placed exit order to a terminal state and, on
// fill, records its realized PnL against the position it closed and buckets
// the day's win/loss counters.
func (e *Engine) monitorExit(symbol string, exitTrade models.Trade, closedPos models.Position) {
	err := e.Executor.MonitorOrder(context.Background(), exitTrade, false, func(ctx context.Context, filled models.Trade) error {
		return e.Executor.RecordExitFill(ctx, filled, closedPos.Side, closedPos.EntryPrice, closedPos.Quantity)
	})
	if err != nil {
		log.Printf("[MONITOR] %s: monitor exit trade %s: %v", symbol, exitTrade.ID, err)
	}
}

// monitorEntry polls the just-placed entry order to a terminal state and, on
// fill, opens the Position with its computed stop/take-profit.
func (e *Engine) monitorEntry(symbol string, trade models.Trade, stop, takeProfit decimal.Decimal) {
	ctx := context.Background()
	err := e.Executor.MonitorOrder(ctx, trade, true, func(ctx context.Context, filled models.Trade) error {
		pos, err := e.Executor.OpenPosition(ctx, filled, stop)
		if err != nil {
			return err
		}
		pos.TakeProfit = takeProfit
		if err := e.Store.UpdatePosition(ctx, *pos); err != nil {
			log.Printf("[MONITOR] %s: persist take-profit on new position: %v", symbol, err)
		}
		telemetry.RecordPositionOpen(symbol)
		return nil
	})
	if err != nil {
		log.Printf("[MONITOR] %s: monitor entry trade %s: %v", symbol, trade.ID, err)
	}
}

// runMonitorPositions implements the monitor_positions cadence (5s): refresh
// each symbol's open position against the current price, update its
// trailing stop, and close it if a stop/take-profit bound was crossed.
func (e *Engine) runMonitorPositions(ctx context.Context) {
	for _, symbol := range e.Symbols {
		pos, err := e.Store.GetOpenPosition(ctx, symbol)
		if err != nil {
			log.Printf("[MONITOR] %s: load open position: %v", symbol, err)
			continue
		}
		if pos == nil {
			continue
		}
		price, err := e.fetchPrice(ctx, symbol)
		if err != nil {
			log.Printf("[MONITOR] %s: fetch price: %v", symbol, err)
			continue
		}

		wasActivated := pos.TrailActivated
		hits := e.Executor.MonitorPositions(ctx, []models.Position{*pos}, map[string]decimal.Decimal{symbol: price})
		if !wasActivated {
			if refreshed, err := e.Store.GetOpenPosition(ctx, symbol); err == nil && refreshed != nil && refreshed.TrailActivated {
				telemetry.RecordTrailingActivation(symbol)
			}
		}

		for _, hit := range hits {
			reason := "stop_loss"
			tpHit := !hit.TakeProfit.IsZero() && ((hit.Side == models.SideBuy && price.GreaterThanOrEqual(hit.TakeProfit)) ||
				(hit.Side == models.SideSell && price.LessThanOrEqual(hit.TakeProfit)))
			if tpHit {
				reason = "take_profit"
			}
			e.closeHitPosition(ctx, symbol, hit, reason)
		}
	}
}

func (e *Engine) closeHitPosition(ctx context.Context, symbol string, pos models.Position, reason string) {
	token := uuid.New().String()
	if !e.Cache.TryLockPosition(ctx, symbol, token) {
		return
	}
	exitTrade, err := e.Executor.ClosePosition(ctx, pos, reason)
	e.Cache.UnlockPosition(ctx, symbol, token)
	if err != nil {
		log.Printf("[MONITOR] %s: close hit position: %v", symbol, err)
		return
	}
	if exitTrade == nil {
		return
	}
	telemetry.RecordPositionClose(symbol, reason)
	go e.monitorExit(symbol, *exitTrade, pos)
}

// runCheckCircuitBreaker implements the check_circuit_breaker cadence (60s):
// refresh today's RiskState against current account balance and trip the
// breaker on excess drawdown.
func (e *Engine) runCheckCircuitBreaker(ctx context.Context) {
	balance, err := e.fetchAccountBalance(ctx)
	if err != nil {
		log.Printf("[SAFETY] fetch account balance: %v", err)
		return
	}
	state, err := e.CircuitBreaker.Evaluate(ctx, time.Now().UTC(), balance, balance)
	if err != nil {
		log.Printf("[SAFETY] evaluate circuit breaker: %v", err)
		return
	}
	telemetry.EquityUSD.Set(toFloat(balance))
	telemetry.DrawdownPct.Set(toFloat(state.DrawdownPct))
	if e.lastSystemStatus == models.SystemActive && state.SystemStatus == models.SystemPaused {
		telemetry.RecordCircuitBreakerTrip(state.PauseReason)
		log.Printf("[SAFETY] circuit breaker tripped: %s", state.PauseReason)
	}
	e.lastSystemStatus = state.SystemStatus
}

// runUpdateRiskState implements the update_risk_state broadcast cadence
// (60s): publish today's RiskState to the dashboard channel.
func (e *Engine) runUpdateRiskState(ctx context.Context) {
	balance, err := e.fetchAccountBalance(ctx)
	if err != nil {
		log.Printf("[SYNC] fetch account balance for broadcast: %v", err)
		return
	}
	state, err := e.Store.Today(ctx, time.Now().UTC(), balance)
	if err != nil {
		log.Printf("[SYNC] load today's risk state: %v", err)
		return
	}
	e.Cache.Publish(ctx, "dashboard", map[string]any{
		"kind": "risk_update",
		"data": state,
	})
}

func (e *Engine) fetchPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if price, ok := e.Cache.GetPrice(ctx, symbol); ok {
		return price, nil
	}
	return e.Gateway.GetTickerPrice(ctx, symbol)
}

// fetchAccountBalance reads the quote-asset balance of the first configured
// trading pair. A fuller multi-quote-asset implementation would sum balances
// per distinct quote asset and convert to a common unit; this repo's
// configured universe shares one quote asset in practice (see DESIGN.md).
func (e *Engine) fetchAccountBalance(ctx context.Context) (decimal.Decimal, error) {
	quote := quoteAsset(e.Symbols[0])
	return e.Gateway.GetBalance(ctx, quote)
}

func quoteAsset(symbol string) string {
	if i := strings.LastIndexByte(symbol, '-'); i >= 0 {
		return symbol[i+1:]
	}
	if len(symbol) > 3 {
		return symbol[len(symbol)-4:]
	}
	return symbol
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
