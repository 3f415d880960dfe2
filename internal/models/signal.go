package models

import "github.com/shopspring/decimal"

// SignalAction is the tagged variant the Strategy Coordinator emits. Replaces
// the originating system's dynamic dispatch with a plain string enum switched
// on by callers, per the system's "dynamic dispatch & runtime reflection"
// design note.
type SignalAction string

const (
	ActionBuy        SignalAction = "BUY"
	ActionSell       SignalAction = "SELL"
	ActionHold       SignalAction = "HOLD"
	ActionCloseLong  SignalAction = "CLOSE_LONG"
	ActionCloseShort SignalAction = "CLOSE_SHORT"
)

// Side maps an action to the order side the Execution component submits.
// BUY and CLOSE_SHORT buy; SELL and CLOSE_LONG sell.
func (a SignalAction) Side() (OrderSide, bool) {
	switch a {
	case ActionBuy, ActionCloseShort:
		return SideBuy, true
	case ActionSell, ActionCloseLong:
		return SideSell, true
	default:
		return "", false
	}
}

// Signal is the transient, cache-resident output of the Strategy Coordinator.
type Signal struct {
	Symbol         string          `json:"symbol"`
	Action         SignalAction    `json:"action"`
	EntryPrice     decimal.Decimal `json:"entry_price"`
	StopLoss       decimal.Decimal `json:"stop_loss"`
	TakeProfit     decimal.Decimal `json:"take_profit"`
	Quantity       decimal.Decimal `json:"quantity"`
	Confidence     decimal.Decimal `json:"confidence"`
	VPAPattern     string          `json:"vpa_pattern"`
	ThreeDLabel    string          `json:"three_d_label"`
	EMADeviation   decimal.Decimal `json:"ema_deviation"`
	MacroContext   string          `json:"macro_context"`
	IsValid        bool            `json:"is_valid"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
}
