// Package models holds the durable and transient domain types shared across
// the cache, store, and analytic packages: candles, trades, positions, risk
// state, economic events, and signals.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is a single OHLCV bar for a symbol/timeframe. Derived fields are
// computed once, at construction, and are immutable afterward — a closed bar
// never changes shape.
type Candle struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	OpenTime  time.Time       `json:"open_time"`
	CloseTime time.Time       `json:"close_time"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`

	Spread       decimal.Decimal `json:"spread"`
	Body         decimal.Decimal `json:"body"`
	UpperWick    decimal.Decimal `json:"upper_wick"`
	LowerWick    decimal.Decimal `json:"lower_wick"`
	ClosePosition decimal.Decimal `json:"close_position"`
}

// NewCandle builds a Candle from raw OHLCV, computing the derived fields the
// way MarketData.save() does in the originating system: spread = high-low,
// body = |open-close|, wicks depend on bar color, close_position defaults to
// 0.5 when the bar has zero range.
func NewCandle(symbol, timeframe string, openTime, closeTime time.Time, open, high, low, close, volume decimal.Decimal) Candle {
	c := Candle{
		Symbol:    symbol,
		Timeframe: timeframe,
		OpenTime:  openTime,
		CloseTime: closeTime,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
	}
	c.Spread = high.Sub(low)
	c.Body = open.Sub(close).Abs()
	if c.IsBullish() {
		c.UpperWick = high.Sub(close)
		c.LowerWick = open.Sub(low)
	} else {
		c.UpperWick = high.Sub(open)
		c.LowerWick = close.Sub(low)
	}
	if c.Spread.IsZero() {
		c.ClosePosition = decimal.NewFromFloat(0.5)
	} else {
		c.ClosePosition = close.Sub(low).Div(c.Spread)
	}
	return c
}

// IsBullish reports whether the bar closed at or above its open.
func (c Candle) IsBullish() bool {
	return c.Close.Cmp(c.Open) >= 0
}
