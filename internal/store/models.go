// Package store is the relational durable home for Trade, Position,
// RiskState, EconomicEvent, and persisted Candle rows, backed by GORM/MySQL.
package store

import (
	"time"

	"github.com/chidi150c/spotengine/internal/models"
	"github.com/shopspring/decimal"
)

// TradeRecord is the GORM model for models.Trade.
type TradeRecord struct {
	ID               string `gorm:"primaryKey;type:varchar(36)"`
	ExchangeOrderID  string `gorm:"uniqueIndex;type:varchar(64)"`
	Symbol           string `gorm:"index:idx_trade_symbol_status;type:varchar(20)"`
	Side             string `gorm:"type:varchar(4)"`
	OrderType        string `gorm:"type:varchar(8)"`
	RequestedQty     string `gorm:"type:varchar(40)"`
	FilledQty        string `gorm:"type:varchar(40)"`
	RequestedPrice   string `gorm:"type:varchar(40)"`
	AveragePrice     string `gorm:"type:varchar(40)"`
	ExpectedPrice    string `gorm:"type:varchar(40)"`
	Slippage         string `gorm:"type:varchar(40)"`
	SlippagePct      string `gorm:"type:varchar(40)"`
	RealizedPnL      string `gorm:"type:varchar(40)"`
	RealizedPnLPct   string `gorm:"type:varchar(40)"`
	Commission       string `gorm:"type:varchar(40)"`
	VPASignal        string `gorm:"type:varchar(32)"`
	ThreeDSignal     string `gorm:"type:varchar(32)"`
	EMADeviation     string `gorm:"type:varchar(40)"`
	MacroContext     string `gorm:"type:varchar(255)"`
	Status           string `gorm:"index:idx_trade_symbol_status;type:varchar(20)"`
	CreatedAt        time.Time `gorm:"index"`
	UpdatedAt        time.Time
	FilledAt         *time.Time
}

func (TradeRecord) TableName() string { return "trades" }

func tradeToRecord(t models.Trade) TradeRecord {
	return TradeRecord{
		ID:              t.ID,
		ExchangeOrderID: t.ExchangeOrderID,
		Symbol:          t.Symbol,
		Side:            string(t.Side),
		OrderType:       string(t.OrderType),
		RequestedQty:    t.RequestedQty.String(),
		FilledQty:       t.FilledQty.String(),
		RequestedPrice:  t.RequestedPrice.String(),
		AveragePrice:    t.AveragePrice.String(),
		ExpectedPrice:   t.ExpectedPrice.String(),
		Slippage:        t.Slippage.String(),
		SlippagePct:     t.SlippagePct.String(),
		RealizedPnL:     t.RealizedPnL.String(),
		RealizedPnLPct:  t.RealizedPnLPct.String(),
		Commission:      t.Commission.String(),
		VPASignal:       t.VPASignal,
		ThreeDSignal:    t.ThreeDSignal,
		EMADeviation:    t.EMADeviation,
		MacroContext:    t.MacroContext,
		Status:          string(t.Status),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		FilledAt:        t.FilledAt,
	}
}

func recordToTrade(r TradeRecord) models.Trade {
	dec := func(s string) decimal.Decimal { d, _ := decimal.NewFromString(s); return d }
	return models.Trade{
		ID:              r.ID,
		ExchangeOrderID: r.ExchangeOrderID,
		Symbol:          r.Symbol,
		Side:            models.OrderSide(r.Side),
		OrderType:       models.OrderType(r.OrderType),
		RequestedQty:    dec(r.RequestedQty),
		FilledQty:       dec(r.FilledQty),
		RequestedPrice:  dec(r.RequestedPrice),
		AveragePrice:    dec(r.AveragePrice),
		ExpectedPrice:   dec(r.ExpectedPrice),
		Slippage:        dec(r.Slippage),
		SlippagePct:     dec(r.SlippagePct),
		RealizedPnL:     dec(r.RealizedPnL),
		RealizedPnLPct:  dec(r.RealizedPnLPct),
		Commission:      dec(r.Commission),
		VPASignal:       r.VPASignal,
		ThreeDSignal:    r.ThreeDSignal,
		EMADeviation:    r.EMADeviation,
		MacroContext:    r.MacroContext,
		Status:          models.TradeStatus(r.Status),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		FilledAt:        r.FilledAt,
	}
}

// PositionRecord is the GORM model for models.Position.
type PositionRecord struct {
	ID             string `gorm:"primaryKey;type:varchar(36)"`
	EntryTradeID   string `gorm:"index;type:varchar(36)"`
	ExitTradeID    string `gorm:"type:varchar(36)"`
	Symbol         string `gorm:"index:idx_position_symbol_status;type:varchar(20)"`
	Side           string `gorm:"type:varchar(4)"`
	Quantity       string `gorm:"type:varchar(40)"`
	EntryPrice     string `gorm:"type:varchar(40)"`
	CurrentPrice   string `gorm:"type:varchar(40)"`
	UnrealizedPnL  string `gorm:"type:varchar(40)"`
	UnrealizedPct  string `gorm:"type:varchar(40)"`
	InitialStop    string `gorm:"type:varchar(40)"`
	CurrentStop    string `gorm:"type:varchar(40)"`
	TrailActivated bool
	TrailDistance  string `gorm:"type:varchar(40)"`
	HighestPrice   string `gorm:"type:varchar(40)"`
	LowestPrice    string `gorm:"type:varchar(40)"`
	TakeProfit     string `gorm:"type:varchar(40)"`
	Status         string `gorm:"index:idx_position_symbol_status;type:varchar(20)"`
	CloseReason    string `gorm:"type:varchar(255)"`
	OpenedAt       time.Time
	ClosedAt       *time.Time
}

func (PositionRecord) TableName() string { return "positions" }

func positionToRecord(p models.Position) PositionRecord {
	return PositionRecord{
		ID:             p.ID,
		EntryTradeID:   p.EntryTradeID,
		ExitTradeID:    p.ExitTradeID,
		Symbol:         p.Symbol,
		Side:           string(p.Side),
		Quantity:       p.Quantity.String(),
		EntryPrice:     p.EntryPrice.String(),
		CurrentPrice:   p.CurrentPrice.String(),
		UnrealizedPnL:  p.UnrealizedPnL.String(),
		UnrealizedPct:  p.UnrealizedPct.String(),
		InitialStop:    p.InitialStop.String(),
		CurrentStop:    p.CurrentStop.String(),
		TrailActivated: p.TrailActivated,
		TrailDistance:  p.TrailDistance.String(),
		HighestPrice:   p.HighestPrice.String(),
		LowestPrice:    p.LowestPrice.String(),
		TakeProfit:     p.TakeProfit.String(),
		Status:         string(p.Status),
		CloseReason:    p.CloseReason,
		OpenedAt:       p.OpenedAt,
		ClosedAt:       p.ClosedAt,
	}
}

func recordToPosition(r PositionRecord) models.Position {
	dec := func(s string) decimal.Decimal { d, _ := decimal.NewFromString(s); return d }
	return models.Position{
		ID:             r.ID,
		EntryTradeID:   r.EntryTradeID,
		ExitTradeID:    r.ExitTradeID,
		Symbol:         r.Symbol,
		Side:           models.OrderSide(r.Side),
		Quantity:       dec(r.Quantity),
		EntryPrice:     dec(r.EntryPrice),
		CurrentPrice:   dec(r.CurrentPrice),
		UnrealizedPnL:  dec(r.UnrealizedPnL),
		UnrealizedPct:  dec(r.UnrealizedPct),
		InitialStop:    dec(r.InitialStop),
		CurrentStop:    dec(r.CurrentStop),
		TrailActivated: r.TrailActivated,
		TrailDistance:  dec(r.TrailDistance),
		HighestPrice:   dec(r.HighestPrice),
		LowestPrice:    dec(r.LowestPrice),
		TakeProfit:     dec(r.TakeProfit),
		Status:         models.PositionStatus(r.Status),
		CloseReason:    r.CloseReason,
		OpenedAt:       r.OpenedAt,
		ClosedAt:       r.ClosedAt,
	}
}

// RiskStateRecord is the GORM model for models.RiskState, one row per
// calendar day (UTC).
type RiskStateRecord struct {
	Date            time.Time `gorm:"primaryKey;uniqueIndex"`
	StartingBalance string    `gorm:"type:varchar(40)"`
	CurrentBalance  string    `gorm:"type:varchar(40)"`
	HighestBalance  string    `gorm:"type:varchar(40)"`
	DailyPnL        string    `gorm:"type:varchar(40)"`
	Drawdown        string    `gorm:"type:varchar(40)"`
	DrawdownPct     string    `gorm:"type:varchar(40)"`
	MaxDrawdownPct  string    `gorm:"type:varchar(40)"`
	TotalTrades     int
	WinningTrades   int
	LosingTrades    int
	SystemStatus    string `gorm:"type:varchar(20)"`
	PauseReason     string `gorm:"type:varchar(255)"`
	PausedAt        *time.Time
}

func (RiskStateRecord) TableName() string { return "risk_states" }

func riskStateToRecord(r models.RiskState) RiskStateRecord {
	return RiskStateRecord{
		Date:            r.Date,
		StartingBalance: r.StartingBalance.String(),
		CurrentBalance:  r.CurrentBalance.String(),
		HighestBalance:  r.HighestBalance.String(),
		DailyPnL:        r.DailyPnL.String(),
		Drawdown:        r.Drawdown.String(),
		DrawdownPct:     r.DrawdownPct.String(),
		MaxDrawdownPct:  r.MaxDrawdownPct.String(),
		TotalTrades:     r.TotalTrades,
		WinningTrades:   r.WinningTrades,
		LosingTrades:    r.LosingTrades,
		SystemStatus:    string(r.SystemStatus),
		PauseReason:     r.PauseReason,
		PausedAt:        r.PausedAt,
	}
}

func recordToRiskState(r RiskStateRecord) models.RiskState {
	dec := func(s string) decimal.Decimal { d, _ := decimal.NewFromString(s); return d }
	return models.RiskState{
		Date:            r.Date,
		StartingBalance: dec(r.StartingBalance),
		CurrentBalance:  dec(r.CurrentBalance),
		HighestBalance:  dec(r.HighestBalance),
		DailyPnL:        dec(r.DailyPnL),
		Drawdown:        dec(r.Drawdown),
		DrawdownPct:     dec(r.DrawdownPct),
		MaxDrawdownPct:  dec(r.MaxDrawdownPct),
		TotalTrades:     r.TotalTrades,
		WinningTrades:   r.WinningTrades,
		LosingTrades:    r.LosingTrades,
		SystemStatus:    models.SystemStatus(r.SystemStatus),
		PauseReason:     r.PauseReason,
		PausedAt:        r.PausedAt,
	}
}

// EconomicEventRecord is the GORM model for models.EconomicEvent.
// Uniqueness: (event_type, country, release_time).
type EconomicEventRecord struct {
	ID                    string    `gorm:"primaryKey;type:varchar(36)"`
	EventType             string    `gorm:"uniqueIndex:idx_event_identity;type:varchar(16)"`
	Country               string    `gorm:"uniqueIndex:idx_event_identity;type:varchar(8)"`
	Title                 string    `gorm:"type:varchar(255)"`
	ReleaseTime           time.Time `gorm:"uniqueIndex:idx_event_identity;index"`
	Forecast              string    `gorm:"type:varchar(40)"`
	Actual                string    `gorm:"type:varchar(40)"`
	Previous              string    `gorm:"type:varchar(40)"`
	Impact                string    `gorm:"type:varchar(8)"`
	DeviationFromForecast string    `gorm:"type:varchar(40)"`
	HasActual             bool
}

func (EconomicEventRecord) TableName() string { return "economic_events" }

func eventToRecord(e models.EconomicEvent) EconomicEventRecord {
	return EconomicEventRecord{
		ID:                    e.ID,
		EventType:             string(e.EventType),
		Country:               e.Country,
		Title:                 e.Title,
		ReleaseTime:           e.ReleaseTime,
		Forecast:              e.Forecast.String(),
		Actual:                e.Actual.String(),
		Previous:              e.Previous.String(),
		Impact:                string(e.Impact),
		DeviationFromForecast: e.DeviationFromForecast.String(),
		HasActual:             e.HasActual,
	}
}

func recordToEvent(r EconomicEventRecord) models.EconomicEvent {
	dec := func(s string) decimal.Decimal { d, _ := decimal.NewFromString(s); return d }
	return models.EconomicEvent{
		ID:                    r.ID,
		EventType:             models.EventType(r.EventType),
		Country:               r.Country,
		Title:                 r.Title,
		ReleaseTime:           r.ReleaseTime,
		Forecast:              dec(r.Forecast),
		Actual:                dec(r.Actual),
		Previous:              dec(r.Previous),
		Impact:                models.EventImpact(r.Impact),
		DeviationFromForecast: dec(r.DeviationFromForecast),
		HasActual:             r.HasActual,
	}
}

// CandleRecord persists closed candles beyond the in-cache history, per the
// supplemented MarketData-persistence feature. Uniqueness: (symbol,
// timeframe, open_time).
type CandleRecord struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"`
	Symbol        string    `gorm:"uniqueIndex:idx_candle_identity;type:varchar(20)"`
	Timeframe     string    `gorm:"uniqueIndex:idx_candle_identity;type:varchar(8)"`
	OpenTime      time.Time `gorm:"uniqueIndex:idx_candle_identity"`
	CloseTime     time.Time
	Open          string `gorm:"type:varchar(40)"`
	High          string `gorm:"type:varchar(40)"`
	Low           string `gorm:"type:varchar(40)"`
	Close         string `gorm:"type:varchar(40)"`
	Volume        string `gorm:"type:varchar(40)"`
	Spread        string `gorm:"type:varchar(40)"`
	Body          string `gorm:"type:varchar(40)"`
	UpperWick     string `gorm:"type:varchar(40)"`
	LowerWick     string `gorm:"type:varchar(40)"`
	ClosePosition string `gorm:"type:varchar(40)"`
}

func (CandleRecord) TableName() string { return "candles" }

func candleToRecord(c models.Candle) CandleRecord {
	return CandleRecord{
		Symbol:        c.Symbol,
		Timeframe:     c.Timeframe,
		OpenTime:      c.OpenTime,
		CloseTime:     c.CloseTime,
		Open:          c.Open.String(),
		High:          c.High.String(),
		Low:           c.Low.String(),
		Close:         c.Close.String(),
		Volume:        c.Volume.String(),
		Spread:        c.Spread.String(),
		Body:          c.Body.String(),
		UpperWick:     c.UpperWick.String(),
		LowerWick:     c.LowerWick.String(),
		ClosePosition: c.ClosePosition.String(),
	}
}
