package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SystemStatus is the circuit-breaker state for a trading day.
type SystemStatus string

const (
	SystemActive        SystemStatus = "ACTIVE"
	SystemPaused        SystemStatus = "PAUSED"
	SystemEmergencyStop SystemStatus = "EMERGENCY_STOP"
)

// RiskState is the one-per-calendar-day (UTC) ledger of balance/drawdown used
// by the circuit breaker.
type RiskState struct {
	Date            time.Time       `json:"date"`
	StartingBalance decimal.Decimal `json:"starting_balance"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	HighestBalance  decimal.Decimal `json:"highest_balance"`
	DailyPnL        decimal.Decimal `json:"daily_pnl"`
	Drawdown        decimal.Decimal `json:"drawdown"`
	DrawdownPct     decimal.Decimal `json:"drawdown_pct"`
	MaxDrawdownPct  decimal.Decimal `json:"max_drawdown_pct"`
	TotalTrades     int             `json:"total_trades"`
	WinningTrades   int             `json:"winning_trades"`
	LosingTrades    int             `json:"losing_trades"`
	SystemStatus    SystemStatus    `json:"system_status"`
	PauseReason     string          `json:"pause_reason"`
	PausedAt        *time.Time      `json:"paused_at,omitempty"`
}

// UpdateBalance recomputes the daily high-water mark and drawdown from a new
// current balance. HighestBalance only ever grows within the day.
func (r *RiskState) UpdateBalance(current decimal.Decimal) {
	r.CurrentBalance = current
	if current.Cmp(r.HighestBalance) > 0 {
		r.HighestBalance = current
	}
	r.DailyPnL = r.CurrentBalance.Sub(r.StartingBalance)
	r.Drawdown = r.HighestBalance.Sub(r.CurrentBalance)
	if r.HighestBalance.IsPositive() {
		r.DrawdownPct = r.Drawdown.Div(r.HighestBalance).Mul(decimal.NewFromInt(100))
	} else {
		r.DrawdownPct = decimal.Zero
	}
	if r.DrawdownPct.Cmp(r.MaxDrawdownPct) > 0 {
		r.MaxDrawdownPct = r.DrawdownPct
	}
}

// RecordEntryFill increments the day's total trade counter. Called once per
// entry Trade that reaches FILLED, per RiskState's §4.7 "Increment
// RiskState.total_trades" contract.
func (r *RiskState) RecordEntryFill() {
	r.TotalTrades++
}

// RecordExitOutcome buckets a closed position's realized PnL into the day's
// win/loss counters. A breakeven close (realizedPnL == 0) counts toward
// neither bucket.
func (r *RiskState) RecordExitOutcome(realizedPnL decimal.Decimal) {
	switch {
	case realizedPnL.IsPositive():
		r.WinningTrades++
	case realizedPnL.IsNegative():
		r.LosingTrades++
	}
}

// TriggerCircuitBreaker transitions the day into PAUSED with a reason and a
// timestamp. Idempotent: calling it again while already PAUSED is a no-op on
// PauseReason/PausedAt (first trip wins).
func (r *RiskState) TriggerCircuitBreaker(reason string, at time.Time) {
	if r.SystemStatus == SystemPaused || r.SystemStatus == SystemEmergencyStop {
		return
	}
	r.SystemStatus = SystemPaused
	r.PauseReason = reason
	ts := at
	r.PausedAt = &ts
}

// NewRiskStateForDay creates the lazily-created per-day row, seeded with the
// opening balance and an ACTIVE status.
func NewRiskStateForDay(day time.Time, startingBalance decimal.Decimal) *RiskState {
	return &RiskState{
		Date:            day,
		StartingBalance: startingBalance,
		CurrentBalance:  startingBalance,
		HighestBalance:  startingBalance,
		SystemStatus:    SystemActive,
	}
}
