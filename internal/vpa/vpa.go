// Package vpa implements Volume-Price Analysis: single-bar pattern
// classification from OHLCV plus lookback statistics (volume anomaly, spread
// ratio, close position, short-term trend).
package vpa

import (
	"fmt"

	"github.com/chidi150c/spotengine/internal/indicators"
	"github.com/chidi150c/spotengine/internal/models"
)

// Pattern is the tagged variant VPA classifies a bar into. First-match-wins
// order is enforced by Analyze, not by iteration order here.
type Pattern string

const (
	PatternClimaxHigh      Pattern = "CLIMAX_HIGH"
	PatternClimaxLow       Pattern = "CLIMAX_LOW"
	PatternStoppingVolume  Pattern = "STOPPING_VOLUME"
	PatternEffortVsResult  Pattern = "EFFORT_VS_RESULT"
	PatternNoDemand        Pattern = "NO_DEMAND"
	PatternNoSupply        Pattern = "NO_SUPPLY"
	PatternTest            Pattern = "TEST"
	PatternUpthrust        Pattern = "UPTHRUST"
	PatternSpring          Pattern = "SPRING"
	PatternNeutral         Pattern = "NEUTRAL"
)

// Trend is the short-term trend classification used both as a pattern input
// and (for STOPPING_VOLUME/TEST) as the direction fallback.
type Trend string

const (
	TrendBullish Trend = "BULLISH"
	TrendBearish Trend = "BEARISH"
	TrendNeutral Trend = "NEUTRAL"
)

// Direction is the bullish/bearish/neutral call VPA makes once a pattern is
// classified.
type Direction string

const (
	DirectionBullish Direction = "BULLISH"
	DirectionBearish Direction = "BEARISH"
	DirectionNeutral Direction = "NEUTRAL"
)

// patternWeights is the base strength per pattern before the volume-anomaly
// boost is applied.
var patternWeights = map[Pattern]float64{
	PatternClimaxHigh:     0.9,
	PatternClimaxLow:      0.9,
	PatternUpthrust:       0.85,
	PatternSpring:         0.85,
	PatternStoppingVolume: 0.8,
	PatternNoDemand:       0.7,
	PatternNoSupply:       0.7,
	PatternEffortVsResult: 0.65,
	PatternTest:           0.6,
	PatternNeutral:        0.0,
}

// Signal is the output of Analyze for a single bar.
type Signal struct {
	Pattern        Pattern
	Direction      Direction
	Strength       float64
	VolumeAnomaly  float64
	SpreadRatio    float64
	ClosePosition  float64
	Trend          Trend
	IsValid        bool
	Description    string
}

const (
	lookbackDefault     = 20
	ultraHighVolume     = 2.5
	highVolume          = 1.5
	lowVolume           = -0.5
	ultraLowVolume      = -1.5
	wideSpread          = 1.5
	narrowSpread        = 0.5
	effortSpreadCeiling = 0.75
	upperThird          = 0.67
	lowerThird          = 0.33
)

// Analyze runs VPA over candles, classifying the most recent (last) bar using
// the preceding `lookback` bars (default 20) for the volume/spread baseline.
// Requires at least lookback+1 candles.
func Analyze(candles []models.Candle, lookback int) (Signal, error) {
	if lookback <= 0 {
		lookback = lookbackDefault
	}
	if len(candles) < lookback+1 {
		return Signal{}, fmt.Errorf("vpa: need at least %d candles, got %d", lookback+1, len(candles))
	}

	window := candles[len(candles)-lookback-1 : len(candles)-1]
	current := candles[len(candles)-1]

	volumes := make([]float64, len(window))
	spreads := make([]float64, len(window))
	for i, c := range window {
		volumes[i], _ = c.Volume.Float64()
		s, _ := c.Spread.Float64()
		spreads[i] = s
	}

	volMean := indicators.Mean(volumes)
	volStd := indicators.StdDev(volumes)
	curVol, _ := current.Volume.Float64()
	volumeAnomaly := 0.0
	if volStd != 0 {
		volumeAnomaly = (curVol - volMean) / volStd
	}

	spreadMean := indicators.Mean(spreads)
	curSpread, _ := current.Spread.Float64()
	spreadRatio := 1.0
	if spreadMean != 0 {
		spreadRatio = curSpread / spreadMean
	}

	closePosition, _ := current.ClosePosition.Float64()
	isBullish := current.IsBullish()
	trend := detectTrend(candles)

	pattern := classify(volumeAnomaly, spreadRatio, isBullish, closePosition, trend)
	direction := signalDirection(pattern, trend)
	strength := calculateStrength(pattern, volumeAnomaly)
	valid := isValidSignal(pattern, strength, trend)

	return Signal{
		Pattern:       pattern,
		Direction:     direction,
		Strength:      strength,
		VolumeAnomaly: volumeAnomaly,
		SpreadRatio:   spreadRatio,
		ClosePosition: closePosition,
		Trend:         trend,
		IsValid:       valid,
		Description:   describe(pattern, direction, strength),
	}, nil
}

// detectTrend computes the slope of a linear regression over the last 5
// closes, normalized by their mean * 100. Bullish if > 0.05, Bearish if <
// -0.05, else Neutral.
func detectTrend(candles []models.Candle) Trend {
	n := 5
	if len(candles) < n {
		n = len(candles)
	}
	last := candles[len(candles)-n:]
	closes := make([]float64, len(last))
	for i, c := range last {
		closes[i], _ = c.Close.Float64()
	}
	mean := indicators.Mean(closes)
	if mean == 0 {
		return TrendNeutral
	}
	slope := indicators.LinearRegressionSlope(closes) / mean * 100
	switch {
	case slope > 0.05:
		return TrendBullish
	case slope < -0.05:
		return TrendBearish
	default:
		return TrendNeutral
	}
}

// classify applies the pattern table in first-match-wins order.
func classify(volumeAnomaly, spreadRatio float64, isBullish bool, closePosition float64, trend Trend) Pattern {
	switch {
	case volumeAnomaly >= ultraHighVolume && spreadRatio >= wideSpread && isBullish && trend == TrendBullish:
		return PatternClimaxHigh
	case volumeAnomaly >= ultraHighVolume && spreadRatio >= wideSpread && !isBullish && trend == TrendBearish:
		return PatternClimaxLow
	case volumeAnomaly >= highVolume && spreadRatio <= narrowSpread:
		return PatternStoppingVolume
	case volumeAnomaly >= highVolume && spreadRatio < effortSpreadCeiling:
		return PatternEffortVsResult
	case volumeAnomaly <= lowVolume && isBullish && closePosition >= upperThird:
		return PatternNoDemand
	case volumeAnomaly <= lowVolume && !isBullish && closePosition <= lowerThird:
		return PatternNoSupply
	case volumeAnomaly <= ultraLowVolume:
		return PatternTest
	case spreadRatio >= wideSpread && isBullish && closePosition <= lowerThird && volumeAnomaly >= 0:
		return PatternUpthrust
	case spreadRatio >= wideSpread && !isBullish && closePosition >= upperThird && volumeAnomaly >= 0:
		return PatternSpring
	default:
		return PatternNeutral
	}
}

// signalDirection maps a pattern (and, for trend-dependent patterns, the
// current trend) to a bullish/bearish/neutral call.
func signalDirection(p Pattern, trend Trend) Direction {
	switch p {
	case PatternClimaxLow, PatternNoSupply, PatternSpring:
		return DirectionBullish
	case PatternClimaxHigh, PatternNoDemand, PatternUpthrust:
		return DirectionBearish
	case PatternStoppingVolume:
		// Flips the current trend: a stopping-volume bar into a bearish trend
		// reads bullish (selling exhaustion) and vice versa.
		switch trend {
		case TrendBullish:
			return DirectionBearish
		case TrendBearish:
			return DirectionBullish
		default:
			return DirectionNeutral
		}
	case PatternTest:
		switch trend {
		case TrendBullish:
			return DirectionBullish
		case TrendBearish:
			return DirectionBearish
		default:
			return DirectionNeutral
		}
	default:
		return DirectionNeutral
	}
}

// calculateStrength = pattern_weight * (0.7 + 0.3*min(|volume|/3,1)), clamped to [0,1].
func calculateStrength(p Pattern, volumeAnomaly float64) float64 {
	base := patternWeights[p]
	volFactor := volumeAnomaly
	if volFactor < 0 {
		volFactor = -volFactor
	}
	volFactor = volFactor / 3.0
	if volFactor > 1 {
		volFactor = 1
	}
	strength := base * (0.7 + 0.3*volFactor)
	if strength < 0 {
		strength = 0
	}
	if strength > 1 {
		strength = 1
	}
	return strength
}

// reversalPatterns always pass validity regardless of trend.
var reversalPatterns = map[Pattern]bool{
	PatternClimaxHigh:     true,
	PatternClimaxLow:      true,
	PatternUpthrust:       true,
	PatternSpring:         true,
	PatternStoppingVolume: true,
}

// isValidSignal requires pattern != NEUTRAL and strength >= 0.5. Reversal
// patterns always pass; NO_DEMAND is rejected only when the trend is (strong)
// bullish, NO_SUPPLY only when the trend is (strong) bearish (see DESIGN.md
// for why this departs from the non-gating conditional in the originating
// Python, whose trend check computes but never actually rejects).
func isValidSignal(p Pattern, strength float64, trend Trend) bool {
	if p == PatternNeutral {
		return false
	}
	if strength < 0.5 {
		return false
	}
	if reversalPatterns[p] {
		return true
	}
	switch p {
	case PatternNoDemand:
		return trend != TrendBullish
	case PatternNoSupply:
		return trend != TrendBearish
	default:
		return true
	}
}

func describe(p Pattern, d Direction, strength float64) string {
	if p == PatternNeutral {
		return "no distinct volume-price pattern"
	}
	return fmt.Sprintf("%s (%s, strength %.2f)", p, d, strength)
}

// VolumeProfile buckets volume by price over the supplied candles into the
// given number of buckets, returning per-bucket (priceLow, priceHigh, volume).
// Observability-only: it does not participate in pattern classification or
// the Strategy Coordinator's gate.
type VolumeBucket struct {
	PriceLow  float64
	PriceHigh float64
	Volume    float64
}

func VolumeProfile(candles []models.Candle, buckets int) []VolumeBucket {
	if buckets <= 0 || len(candles) == 0 {
		return nil
	}
	lo, hi := candles[0].Low, candles[0].High
	for _, c := range candles {
		if c.Low.LessThan(lo) {
			lo = c.Low
		}
		if c.High.GreaterThan(hi) {
			hi = c.High
		}
	}
	loF, _ := lo.Float64()
	hiF, _ := hi.Float64()
	span := hiF - loF
	out := make([]VolumeBucket, buckets)
	if span <= 0 {
		out[0] = VolumeBucket{PriceLow: loF, PriceHigh: hiF}
		for _, c := range candles {
			v, _ := c.Volume.Float64()
			out[0].Volume += v
		}
		return out
	}
	width := span / float64(buckets)
	for i := range out {
		out[i].PriceLow = loF + width*float64(i)
		out[i].PriceHigh = loF + width*float64(i+1)
	}
	for _, c := range candles {
		mid, _ := c.Close.Float64()
		idx := int((mid - loF) / width)
		if idx < 0 {
			idx = 0
		}
		if idx >= buckets {
			idx = buckets - 1
		}
		v, _ := c.Volume.Float64()
		out[idx].Volume += v
	}
	return out
}
