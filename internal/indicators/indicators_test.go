package indicators

import (
	"math"
	"testing"
)

func TestSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	out := SMA(closes, 3)
	if !math.IsNaN(out[0]) || !math.IsNaN(out[1]) {
		t.Fatalf("expected NaN before window filled, got %v", out[:2])
	}
	if out[2] != 2 || out[3] != 3 || out[4] != 4 {
		t.Fatalf("unexpected SMA: %v", out)
	}
}

func TestEMASeedsWithSMA(t *testing.T) {
	closes := []float64{10, 11, 12, 13, 14, 15}
	out := EMA(closes, 3)
	if math.IsNaN(out[2]) || out[2] != 11 {
		t.Fatalf("expected seed EMA[2]=11, got %v", out[2])
	}
	factor := 2.0 / 4.0
	want := (closes[3]-out[2])*factor + out[2]
	if math.Abs(out[3]-want) > 1e-9 {
		t.Fatalf("EMA[3]=%v want %v", out[3], want)
	}
}

func TestATRZeroWhenInsufficientBars(t *testing.T) {
	if got := ATR([]float64{1, 2}, []float64{1, 2}, []float64{1, 2}, 5); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestATRMeanOfTrueRanges(t *testing.T) {
	highs := []float64{10, 11, 12}
	lows := []float64{9, 9, 10}
	closes := []float64{9.5, 10.5, 11.5}
	got := ATR(highs, lows, closes, 2)
	tr1 := TrueRange(11, 9, 9.5)
	tr2 := TrueRange(12, 10, 10.5)
	want := (tr1 + tr2) / 2
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("ATR=%v want %v", got, want)
	}
}

func TestZScoreZeroVarianceYieldsZero(t *testing.T) {
	values := []float64{5, 5, 5, 5}
	out := ZScore(values, 3)
	if out[3] != 0 {
		t.Fatalf("expected 0 anomaly on zero-stddev window, got %v", out[3])
	}
}

func TestLinearRegressionSlopeSign(t *testing.T) {
	up := []float64{1, 2, 3, 4, 5}
	if LinearRegressionSlope(up) <= 0 {
		t.Fatalf("expected positive slope for rising series")
	}
	down := []float64{5, 4, 3, 2, 1}
	if LinearRegressionSlope(down) >= 0 {
		t.Fatalf("expected negative slope for falling series")
	}
}
