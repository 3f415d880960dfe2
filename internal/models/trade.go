package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is the side of an order or position.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// Opposite returns the other side.
func (s OrderSide) Opposite() OrderSide {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType distinguishes the two order shapes the system ever submits:
// LIMIT GTC entries and MARKET exits.
type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

// TradeStatus is the order lifecycle state. FILLED, CANCELLED, and REJECTED
// are absorbing: once reached, no further transition is valid.
type TradeStatus string

const (
	TradeStatusPending         TradeStatus = "PENDING"
	TradeStatusPartiallyFilled TradeStatus = "PARTIALLY_FILLED"
	TradeStatusFilled          TradeStatus = "FILLED"
	TradeStatusCancelled       TradeStatus = "CANCELLED"
	TradeStatusRejected        TradeStatus = "REJECTED"
)

// IsTerminal reports whether status can no longer change.
func (s TradeStatus) IsTerminal() bool {
	switch s {
	case TradeStatusFilled, TradeStatusCancelled, TradeStatusRejected:
		return true
	default:
		return false
	}
}

// Trade is the durable record of one order placed on the exchange.
type Trade struct {
	ID               string          `json:"id"`
	ExchangeOrderID  string          `json:"exchange_order_id"`
	Symbol           string          `json:"symbol"`
	Side             OrderSide       `json:"side"`
	OrderType        OrderType       `json:"order_type"`
	RequestedQty     decimal.Decimal `json:"requested_quantity"`
	FilledQty        decimal.Decimal `json:"filled_quantity"`
	RequestedPrice   decimal.Decimal `json:"requested_price"`
	AveragePrice     decimal.Decimal `json:"average_price"`
	ExpectedPrice    decimal.Decimal `json:"expected_price"`
	Slippage         decimal.Decimal `json:"slippage"`
	SlippagePct      decimal.Decimal `json:"slippage_pct"`
	RealizedPnL      decimal.Decimal `json:"realized_pnl"`
	RealizedPnLPct   decimal.Decimal `json:"realized_pnl_pct"`
	Commission       decimal.Decimal `json:"commission"`
	VPASignal        string          `json:"vpa_signal"`
	ThreeDSignal     string          `json:"three_d_signal"`
	EMADeviation     string          `json:"ema_deviation"`
	MacroContext     string          `json:"macro_context"`
	Status           TradeStatus     `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	FilledAt         *time.Time      `json:"filled_at,omitempty"`
}

// IsComplete mirrors the source model's is_complete property: the requested
// quantity has been entirely filled.
func (t *Trade) IsComplete() bool {
	return t.FilledQty.Cmp(t.RequestedQty) >= 0
}

// CalculateSlippage sets Slippage/SlippagePct from AveragePrice vs ExpectedPrice.
// A zero ExpectedPrice means slippage is undefined for this trade (e.g. a
// market exit with no pre-trade quote captured) and both fields stay zero.
func (t *Trade) CalculateSlippage() {
	if t.ExpectedPrice.IsZero() {
		return
	}
	t.Slippage = t.AveragePrice.Sub(t.ExpectedPrice)
	t.SlippagePct = t.Slippage.Div(t.ExpectedPrice).Mul(decimal.NewFromInt(100))
}

// CalculateRealizedPnL sets RealizedPnL/RealizedPnLPct on an exit Trade from
// its AveragePrice against the closed position's entry side/price/quantity,
// the same side-aware diff Position.UpdateUnrealizedPnL uses while the
// position was still open.
func (t *Trade) CalculateRealizedPnL(entrySide OrderSide, entryPrice, quantity decimal.Decimal) {
	if entryPrice.IsZero() || quantity.IsZero() {
		return
	}
	var diff decimal.Decimal
	if entrySide == SideBuy {
		diff = t.AveragePrice.Sub(entryPrice)
	} else {
		diff = entryPrice.Sub(t.AveragePrice)
	}
	t.RealizedPnL = diff.Mul(quantity)
	t.RealizedPnLPct = diff.Div(entryPrice).Mul(decimal.NewFromInt(100))
}
