// Package execution implements order submission, fill polling, position
// open/close orchestration: the Execution & Monitor component.
package execution

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/chidi150c/spotengine/internal/exchange"
	"github.com/chidi150c/spotengine/internal/models"
	"github.com/chidi150c/spotengine/internal/risk"
	"github.com/chidi150c/spotengine/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	monitorPollInterval = 2 * time.Second
	monitorMaxAttempts  = 10
)

// SignalClearer is the cache's minimal contract for clearing a symbol's
// cached signal on execution.
type SignalClearer interface {
	DeleteSignal(ctx context.Context, symbol string)
}

// Executor submits orders, polls them to terminal status, and orchestrates
// Position open/close.
type Executor struct {
	Gateway exchange.Gateway
	Store   *store.Store
	Cache   SignalClearer
	RiskCfg risk.Config

	// Balance fetches the account balance used to lazily create/load today's
	// RiskState when recording trade-count outcomes.
	Balance func(ctx context.Context) (decimal.Decimal, error)
}

// ExecuteTrade implements execute_trade: maps the signal's action to a side,
// rounds to symbol precision, persists the Trade as PENDING, then places a
// LIMIT GTC order, records the exchange order id on the Trade, and clears the
// cached signal. The Trade row exists before the order is submitted; if the
// exchange rejects the order, the row is marked REJECTED and an error returned.
func (e *Executor) ExecuteTrade(ctx context.Context, sig models.Signal) (*models.Trade, error) {
	side, ok := sig.Action.Side()
	if !ok {
		return nil, fmt.Errorf("execution: action %s has no order side", sig.Action)
	}

	qty := e.Gateway.FormatQuantity(sig.Symbol, sig.Quantity)
	price := e.Gateway.FormatPrice(sig.Symbol, sig.EntryPrice)

	trade := &models.Trade{
		ID:             uuid.New().String(),
		Symbol:         sig.Symbol,
		Side:           side,
		OrderType:      models.OrderTypeLimit,
		RequestedQty:   qty,
		RequestedPrice: price,
		ExpectedPrice:  sig.EntryPrice,
		VPASignal:      sig.VPAPattern,
		ThreeDSignal:   sig.ThreeDLabel,
		EMADeviation:   sig.EMADeviation.String(),
		MacroContext:   sig.MacroContext,
		Status:         models.TradeStatusPending,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	if err := e.Store.SaveTrade(ctx, trade); err != nil {
		return nil, fmt.Errorf("execution: persist trade before order placement: %w", err)
	}

	order, err := e.Gateway.PlaceOrder(ctx, sig.Symbol, side, models.OrderTypeLimit, qty, price)
	if err != nil {
		trade.Status = models.TradeStatusRejected
		trade.UpdatedAt = time.Now().UTC()
		_ = e.Store.UpdateTrade(ctx, *trade)
		return nil, fmt.Errorf("execution: place order: %w", err)
	}
	trade.ExchangeOrderID = order.ExchangeOrderID
	if err := e.Store.UpdateTrade(ctx, *trade); err != nil {
		return nil, fmt.Errorf("execution: persist exchange order id: %w", err)
	}

	e.Cache.DeleteSignal(ctx, sig.Symbol)
	return trade, nil
}

// MonitorOrder implements monitor_order: polls the exchange order every
// monitorPollInterval until a terminal status is reached or attempts are
// exhausted, persisting progress as it goes. On a complete fill the caller's
// onFilled callback runs (creating the Position for an entry, recording the
// exit fill for a close); isEntry=true additionally counts the fill toward
// the RiskState trade totals.
func (e *Executor) MonitorOrder(ctx context.Context, trade models.Trade, isEntry bool, onFilled func(ctx context.Context, t models.Trade) error) error {
	for attempt := 0; attempt < monitorMaxAttempts; attempt++ {
		order, err := e.Gateway.GetOrder(ctx, trade.Symbol, trade.ExchangeOrderID)
		if err != nil {
			log.Printf("[MONITOR] poll order %s attempt %d: %v", trade.ExchangeOrderID, attempt, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(monitorPollInterval):
			}
			continue
		}

		trade.FilledQty = order.FilledQuantity
		trade.AveragePrice = order.AveragePrice
		trade.UpdatedAt = time.Now().UTC()

		switch order.Status {
		case models.TradeStatusPartiallyFilled:
			trade.Status = models.TradeStatusPartiallyFilled
			if err := e.Store.UpdateTrade(ctx, trade); err != nil {
				log.Printf("[MONITOR] persist partial fill: %v", err)
			}
		case models.TradeStatusFilled:
			now := time.Now().UTC()
			trade.Status = models.TradeStatusFilled
			trade.FilledAt = &now
			trade.CalculateSlippage()
			if err := e.Store.UpdateTrade(ctx, trade); err != nil {
				return fmt.Errorf("execution: persist filled trade: %w", err)
			}
			if isEntry {
				e.recordFillOutcome(ctx, true, decimal.Zero)
			}
			if onFilled != nil {
				return onFilled(ctx, trade)
			}
			return nil
		case models.TradeStatusCancelled, models.TradeStatusRejected:
			trade.Status = order.Status
			if err := e.Store.UpdateTrade(ctx, trade); err != nil {
				return fmt.Errorf("execution: persist terminal trade: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(monitorPollInterval):
		}
	}
	log.Printf("[MONITOR] order %s left in status %s after %d attempts", trade.ExchangeOrderID, trade.Status, monitorMaxAttempts)
	return nil
}

// recordFillOutcome loads (or lazily creates) today's RiskState and updates
// its trade counters: an entry fill increments total_trades; an exit fill
// buckets realizedPnL into winning_trades/losing_trades. Best-effort: a
// RiskState write failure here is logged, not propagated, since it must never
// block the fill it is accounting for.
func (e *Executor) recordFillOutcome(ctx context.Context, isEntry bool, realizedPnL decimal.Decimal) {
	balance, err := e.Balance(ctx)
	if err != nil {
		log.Printf("[MONITOR] fetch balance for risk state: %v", err)
		return
	}
	state, err := e.Store.Today(ctx, time.Now().UTC(), balance)
	if err != nil {
		log.Printf("[MONITOR] load today's risk state: %v", err)
		return
	}
	if isEntry {
		state.RecordEntryFill()
	} else {
		state.RecordExitOutcome(realizedPnL)
	}
	if err := e.Store.Save(ctx, state); err != nil {
		log.Printf("[MONITOR] save risk state: %v", err)
	}
}

// RecordExitFill computes an exit Trade's realized PnL against the position
// it closed (entry side/price/quantity), persists it on the Trade row, and
// buckets the day's win/loss counters. Called from the exit Trade's fill
// monitor once it reaches FILLED.
func (e *Executor) RecordExitFill(ctx context.Context, exitTrade models.Trade, entrySide models.OrderSide, entryPrice, quantity decimal.Decimal) error {
	exitTrade.CalculateRealizedPnL(entrySide, entryPrice, quantity)
	if err := e.Store.UpdateTrade(ctx, exitTrade); err != nil {
		return fmt.Errorf("execution: persist realized pnl: %w", err)
	}
	e.recordFillOutcome(ctx, false, exitTrade.RealizedPnL)
	return nil
}

// OpenPosition creates a Position from a filled entry Trade, its initial
// stop computed by the Risk Manager.
func (e *Executor) OpenPosition(ctx context.Context, entry models.Trade, initialStop decimal.Decimal) (*models.Position, error) {
	pos := &models.Position{
		ID:           uuid.New().String(),
		EntryTradeID: entry.ID,
		Symbol:       entry.Symbol,
		Side:         entry.Side,
		Quantity:     entry.FilledQty,
		EntryPrice:   entry.AveragePrice,
		CurrentPrice: entry.AveragePrice,
		InitialStop:  initialStop,
		CurrentStop:  initialStop,
		Status:       models.PositionOpen,
		OpenedAt:     time.Now().UTC(),
	}
	if err := e.Store.SavePosition(ctx, pos); err != nil {
		return nil, fmt.Errorf("execution: save position: %w", err)
	}
	return pos, nil
}

// MonitorPositions implements monitor_positions: runs one trailing-stop tick
// per open position against its current price and reports which ones have
// crossed their stop/take-profit bound.
func (e *Executor) MonitorPositions(ctx context.Context, positions []models.Position, prices map[string]decimal.Decimal) []models.Position {
	var hits []models.Position
	for i := range positions {
		p := &positions[i]
		price, ok := prices[p.Symbol]
		if !ok {
			continue
		}
		stopHit := risk.UpdateTrailingStop(e.RiskCfg, p, price)
		if err := e.Store.UpdatePosition(ctx, *p); err != nil {
			log.Printf("[MONITOR] persist trailing update for %s: %v", p.ID, err)
		}

		tpHit := !p.TakeProfit.IsZero() && ((p.Side == models.SideBuy && price.GreaterThanOrEqual(p.TakeProfit)) ||
			(p.Side == models.SideSell && price.LessThanOrEqual(p.TakeProfit)))
		if stopHit || tpHit {
			hits = append(hits, *p)
		}
	}
	return hits
}

// ClosePosition implements close_position: idempotent against a prior close
// via the store's conditional OPEN->CLOSED update, then places the opposite
// MARKET order and persists the exit Trade.
func (e *Executor) ClosePosition(ctx context.Context, pos models.Position, reason string) (*models.Trade, error) {
	now := time.Now().UTC()
	if err := e.Store.CloseOpenPosition(ctx, pos.ID, "", reason, now); err != nil {
		if errors.Is(err, store.ErrAlreadyClosed) {
			return nil, nil // already closed by a concurrent worker: no-op
		}
		return nil, fmt.Errorf("execution: close position: %w", err)
	}

	exitSide := pos.Side.Opposite()
	qty := e.Gateway.FormatQuantity(pos.Symbol, pos.Quantity)
	exitTrade := &models.Trade{
		ID:            uuid.New().String(),
		Symbol:        pos.Symbol,
		Side:          exitSide,
		OrderType:     models.OrderTypeMarket,
		RequestedQty:  qty,
		ExpectedPrice: pos.CurrentPrice,
		MacroContext:  reason,
		Status:        models.TradeStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.Store.SaveTrade(ctx, exitTrade); err != nil {
		return nil, fmt.Errorf("execution: persist exit trade: %w", err)
	}

	order, err := e.Gateway.PlaceOrder(ctx, pos.Symbol, exitSide, models.OrderTypeMarket, qty, decimal.Zero)
	if err != nil {
		exitTrade.Status = models.TradeStatusRejected
		_ = e.Store.UpdateTrade(ctx, *exitTrade)
		return nil, fmt.Errorf("execution: place exit order: %w", err)
	}
	exitTrade.ExchangeOrderID = order.ExchangeOrderID
	if err := e.Store.UpdateTrade(ctx, *exitTrade); err != nil {
		return nil, fmt.Errorf("execution: persist exit order id: %w", err)
	}
	// Position.Status is already CLOSED from the guarded update above, so
	// this links exit_trade_id unconditionally by id rather than reusing
	// CloseOpenPosition's status='OPEN' guard, which would now match zero rows.
	if err := e.Store.LinkExitTrade(ctx, pos.ID, exitTrade.ID); err != nil {
		log.Printf("[MONITOR] link exit trade to position %s: %v", pos.ID, err)
	}
	return exitTrade, nil
}
