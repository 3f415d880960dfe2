package store

import (
	"testing"
	"time"

	"github.com/chidi150c/spotengine/internal/models"
	"github.com/shopspring/decimal"
)

func TestTradeRecordRoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	trade := models.Trade{
		ID:              "t1",
		ExchangeOrderID: "ex1",
		Symbol:          "BTC-USD",
		Side:            models.SideBuy,
		OrderType:       models.OrderTypeLimit,
		RequestedQty:    decimal.NewFromFloat(0.5),
		FilledQty:       decimal.NewFromFloat(0.5),
		RequestedPrice:  decimal.NewFromInt(50000),
		AveragePrice:    decimal.NewFromInt(50010),
		ExpectedPrice:   decimal.NewFromInt(50000),
		Status:          models.TradeStatusFilled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	trade.CalculateSlippage()

	rec := tradeToRecord(trade)
	back := recordToTrade(rec)

	if !back.AveragePrice.Equal(trade.AveragePrice) {
		t.Fatalf("AveragePrice round-trip mismatch: got %v want %v", back.AveragePrice, trade.AveragePrice)
	}
	if !back.Slippage.Equal(trade.Slippage) {
		t.Fatalf("Slippage round-trip mismatch: got %v want %v", back.Slippage, trade.Slippage)
	}
	if back.Status != trade.Status || back.Side != trade.Side {
		t.Fatalf("enum fields did not round-trip: got %+v", back)
	}
}

func TestPositionRecordRoundTrip(t *testing.T) {
	p := models.Position{
		ID:           "p1",
		Symbol:       "ETH-USD",
		Side:         models.SideSell,
		Quantity:     decimal.NewFromInt(2),
		EntryPrice:   decimal.NewFromInt(3000),
		CurrentStop:  decimal.NewFromInt(3100),
		Status:       models.PositionOpen,
		OpenedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	rec := positionToRecord(p)
	back := recordToPosition(rec)
	if !back.EntryPrice.Equal(p.EntryPrice) || back.Side != p.Side || back.Status != p.Status {
		t.Fatalf("position did not round-trip: got %+v", back)
	}
}
