package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionStatus is OPEN or CLOSED. See the close_position open question:
// status flips to CLOSED the moment a close is initiated, not when the exit
// Trade fills — this is a deliberate idempotency guard, not a bug.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

// Position tracks one open (or closed) exposure opened by an entry Trade and,
// once closed, linked to an exit Trade.
type Position struct {
	ID             string          `json:"id"`
	EntryTradeID   string          `json:"entry_trade_id"`
	ExitTradeID    string          `json:"exit_trade_id,omitempty"`
	Symbol         string          `json:"symbol"`
	Side           OrderSide       `json:"side"`
	Quantity       decimal.Decimal `json:"quantity"`
	EntryPrice     decimal.Decimal `json:"entry_price"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	UnrealizedPnL  decimal.Decimal `json:"unrealized_pnl"`
	UnrealizedPct  decimal.Decimal `json:"unrealized_pnl_pct"`
	InitialStop    decimal.Decimal `json:"initial_stop"`
	CurrentStop    decimal.Decimal `json:"current_stop"`
	TrailActivated bool            `json:"trailing_activated"`
	TrailDistance  decimal.Decimal `json:"trailing_distance"`
	HighestPrice   decimal.Decimal `json:"highest_price"`
	LowestPrice    decimal.Decimal `json:"lowest_price"`
	TakeProfit     decimal.Decimal `json:"take_profit"`
	Status         PositionStatus  `json:"status"`
	CloseReason    string          `json:"close_reason"`
	OpenedAt       time.Time       `json:"opened_at"`
	ClosedAt       *time.Time      `json:"closed_at,omitempty"`
}

// UpdateUnrealizedPnL recomputes CurrentPrice-driven PnL fields. Mirrors
// Position.update_unrealized_pnl in the originating system.
func (p *Position) UpdateUnrealizedPnL(currentPrice decimal.Decimal) {
	p.CurrentPrice = currentPrice
	if p.EntryPrice.IsZero() || p.Quantity.IsZero() {
		return
	}
	var diff decimal.Decimal
	if p.Side == SideBuy {
		diff = currentPrice.Sub(p.EntryPrice)
	} else {
		diff = p.EntryPrice.Sub(currentPrice)
	}
	p.UnrealizedPnL = diff.Mul(p.Quantity)
	p.UnrealizedPct = diff.Div(p.EntryPrice).Mul(decimal.NewFromInt(100))
}
