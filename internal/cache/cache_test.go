package cache

import (
	"testing"
	"time"

	"github.com/chidi150c/spotengine/internal/models"
	"github.com/shopspring/decimal"
)

// These cover the pure encode/decode helpers without requiring a live Redis
// connection; end-to-end key/TTL behavior is exercised against a real
// instance in integration testing, not here.

func TestCandleRecordRoundTrip(t *testing.T) {
	c := models.NewCandle("BTC-USD", "1m",
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		decimal.NewFromInt(100), decimal.NewFromInt(110),
		decimal.NewFromInt(95), decimal.NewFromInt(105),
		decimal.NewFromInt(1000))

	rec := toCandleRecord(c)
	back := fromCandleRecord(rec)

	if !back.Open.Equal(c.Open) || !back.High.Equal(c.High) || !back.Low.Equal(c.Low) || !back.Close.Equal(c.Close) {
		t.Fatalf("OHLC did not round-trip: got %+v", back)
	}
	if !back.OpenTime.Equal(c.OpenTime) || !back.CloseTime.Equal(c.CloseTime) {
		t.Fatalf("timestamps did not round-trip: got open=%v close=%v", back.OpenTime, back.CloseTime)
	}
	if !back.Spread.Equal(c.Spread) {
		t.Fatalf("derived Spread not recomputed consistently: got %v want %v", back.Spread, c.Spread)
	}
}
