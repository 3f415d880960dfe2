package vpa

import (
	"testing"
	"time"

	"github.com/chidi150c/spotengine/internal/models"
	"github.com/shopspring/decimal"
)

func candle(t time.Time, open, high, low, close, volume float64) models.Candle {
	return models.NewCandle("TEST-USD", "1m", t, t.Add(time.Minute),
		decimal.NewFromFloat(open), decimal.NewFromFloat(high),
		decimal.NewFromFloat(low), decimal.NewFromFloat(close),
		decimal.NewFromFloat(volume))
}

// buildClimaxLowScenario reproduces the CLIMAX_LOW shape: 21 bars, a
// lookback window with enough volume variance to make the final bar's
// z-score clear the 2.5 threshold, a spread ratio clearing 1.5, a bearish
// final bar, and a decreasing-close trend window that reads Bearish.
func buildClimaxLowScenario() []models.Candle {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, 0, 21)
	// 15 filler bars alternating volume 50/150 with a steady spread of 1.0, so
	// the window's baseline has real variance.
	for i := 0; i < 15; i++ {
		vol := 50.0
		if i%2 == 1 {
			vol = 150.0
		}
		candles = append(candles, candle(base.Add(time.Duration(i)*time.Minute), 100.0, 100.5, 99.5, 100.0, vol))
	}
	// Last 5 bars before the current one: monotonically decreasing closes, same
	// volume/spread baseline. The trend regression runs over the last 5 closes
	// including the current bar (101, 100, 99, 98, 99.2): slope -0.56, which
	// normalizes to about -0.56 and reads Bearish.
	decreasing := []float64{102, 101, 100, 99, 98}
	for i, c := range decreasing {
		vol := 50.0
		if i%2 == 1 {
			vol = 150.0
		}
		candles = append(candles, candle(base.Add(time.Duration(15+i)*time.Minute), c+0.5, c+0.5, c-0.5, c, vol))
	}
	// Current bar: volume 300 against a 20-bar window of eleven 50s and nine
	// 150s (mean 95, stddev ~49.7), so z-score ~4.1 >= 2.5; spread 2.0
	// (ratio 2.0/1.0 >= 1.5), bearish (close < open).
	candles = append(candles, candle(base.Add(20*time.Minute), 100.5, 101, 99, 99.2, 300))
	return candles
}

func TestAnalyzeClimaxLowScenario(t *testing.T) {
	candles := buildClimaxLowScenario()
	sig, err := Analyze(candles, 20)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if sig.Trend != TrendBearish {
		t.Fatalf("expected Bearish trend, got %v", sig.Trend)
	}
	if sig.Pattern != PatternClimaxLow {
		t.Fatalf("expected CLIMAX_LOW, got %v (volAnom=%v spreadRatio=%v)", sig.Pattern, sig.VolumeAnomaly, sig.SpreadRatio)
	}
	if sig.Direction != DirectionBullish {
		t.Fatalf("expected Bullish direction, got %v", sig.Direction)
	}
	if !sig.IsValid {
		t.Fatalf("expected valid signal")
	}
}

func TestAnalyzeInsufficientCandles(t *testing.T) {
	candles := buildClimaxLowScenario()[:10]
	if _, err := Analyze(candles, 20); err == nil {
		t.Fatalf("expected error for insufficient candles")
	}
}

func TestAnalyzeZeroStdDevYieldsZeroAnomaly(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, 0, 21)
	for i := 0; i < 21; i++ {
		candles = append(candles, candle(base.Add(time.Duration(i)*time.Minute), 100, 100.1, 99.9, 100, 100))
	}
	sig, err := Analyze(candles, 20)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if sig.VolumeAnomaly != 0 {
		t.Fatalf("expected zero volume anomaly, got %v", sig.VolumeAnomaly)
	}
}

func TestCandleHighEqualsLowYieldsNeutralClosePosition(t *testing.T) {
	c := models.NewCandle("TEST-USD", "1m", time.Now(), time.Now(),
		decimal.NewFromFloat(100), decimal.NewFromFloat(100),
		decimal.NewFromFloat(100), decimal.NewFromFloat(100),
		decimal.NewFromFloat(1))
	if !c.ClosePosition.Equal(decimal.NewFromFloat(0.5)) {
		t.Fatalf("expected close_position 0.5, got %v", c.ClosePosition)
	}
	if !c.Spread.IsZero() {
		t.Fatalf("expected spread 0, got %v", c.Spread)
	}
}

func TestIsValidSignalNoDemandRejectedOnlyWhenStrongBullishTrend(t *testing.T) {
	if isValidSignal(PatternNoDemand, 0.7, TrendBullish) {
		t.Fatalf("NO_DEMAND should be rejected in a bullish trend")
	}
	if !isValidSignal(PatternNoDemand, 0.7, TrendBearish) {
		t.Fatalf("NO_DEMAND should be valid outside a bullish trend")
	}
}

func TestIsValidSignalNoSupplyRejectedOnlyWhenStrongBearishTrend(t *testing.T) {
	if isValidSignal(PatternNoSupply, 0.7, TrendBearish) {
		t.Fatalf("NO_SUPPLY should be rejected in a bearish trend")
	}
	if !isValidSignal(PatternNoSupply, 0.7, TrendBullish) {
		t.Fatalf("NO_SUPPLY should be valid outside a bearish trend")
	}
}

func TestReversalPatternsAlwaysValidAboveStrengthFloor(t *testing.T) {
	if !isValidSignal(PatternUpthrust, 0.51, TrendNeutral) {
		t.Fatalf("reversal pattern above strength floor should be valid")
	}
	if isValidSignal(PatternUpthrust, 0.49, TrendNeutral) {
		t.Fatalf("reversal pattern below strength floor should be invalid")
	}
}
