package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType enumerates the economic-calendar event kinds the 3-D Analyzer's
// Fundamental dimension reasons about.
type EventType string

const (
	EventCPI   EventType = "CPI"
	EventPPI   EventType = "PPI"
	EventNFP   EventType = "NFP"
	EventFOMC  EventType = "FOMC"
	EventGDP   EventType = "GDP"
	EventOther EventType = "OTHER"
)

// EventImpact is the calendar-provider-assigned severity of an event.
type EventImpact string

const (
	ImpactLow    EventImpact = "LOW"
	ImpactMedium EventImpact = "MEDIUM"
	ImpactHigh   EventImpact = "HIGH"
)

// EconomicEvent is a row from the economic-calendar ingester. Uniqueness is
// (EventType, Country, ReleaseTime).
type EconomicEvent struct {
	ID                   string          `json:"id"`
	EventType            EventType       `json:"event_type"`
	Country              string          `json:"country"`
	Title                string          `json:"title"`
	ReleaseTime          time.Time       `json:"release_time"`
	Forecast             decimal.Decimal `json:"forecast"`
	Actual               decimal.Decimal `json:"actual"`
	Previous             decimal.Decimal `json:"previous"`
	Impact               EventImpact     `json:"impact"`
	DeviationFromForecast decimal.Decimal `json:"deviation_from_forecast"`
	HasActual            bool            `json:"has_actual"`
}

// CalculateDeviation sets DeviationFromForecast = (actual-forecast)/|forecast| * 100
// when both actual and forecast are present; otherwise leaves it at zero.
func (e *EconomicEvent) CalculateDeviation() {
	if !e.HasActual || e.Forecast.IsZero() {
		return
	}
	e.DeviationFromForecast = e.Actual.Sub(e.Forecast).Div(e.Forecast.Abs()).Mul(decimal.NewFromInt(100))
}
