// Package threed implements the three-dimensional confluence analyzer:
// Relational (cross-asset), Fundamental (macro-event), and Technical
// (multi-timeframe EMA-trend) sub-analyses combined into a single
// confluence call.
package threed

import (
	"context"
	"time"

	"github.com/chidi150c/spotengine/internal/indicators"
	"github.com/chidi150c/spotengine/internal/models"
)

// Alignment is the tagged variant each dimension (and the overall confluence)
// reports.
type Alignment string

const (
	AlignBullish     Alignment = "BULLISH"
	AlignBearish     Alignment = "BEARISH"
	AlignNeutral     Alignment = "NEUTRAL"
	AlignConflicting Alignment = "CONFLICTING"
)

const (
	strongCorrelation      = 0.7
	weakCorrelation        = 0.3
	preEventAvoidMinutes   = 30
	postEventTradeMinutes  = 60
	emaPeriodDefault       = 20
	emaDeviationThreshold  = 0.005
)

var timeframes = []string{"1m", "5m", "15m", "1h"}

// RelationalResult is the cross-asset dimension.
type RelationalResult struct {
	CryptoHealth  Alignment
	RiskSentiment string // "RISK_ON" | "RISK_OFF" | ""
	ETHBTCRatio   float64
	BTCETHCorr    float64
	USDImpact     Alignment
}

// AnalyzeRelational computes the ETH/BTC ratio dimension. prices must contain
// at minimum BTC and ETH quote-asset prices keyed by symbol (e.g. "BTCUSDT",
// "ETHUSDT").
func AnalyzeRelational(prices map[string]float64) RelationalResult {
	res := RelationalResult{CryptoHealth: AlignNeutral, USDImpact: AlignNeutral}
	btc, hasBTC := prices["BTCUSDT"]
	eth, hasETH := prices["ETHUSDT"]
	if !hasBTC || !hasETH || btc == 0 {
		return res
	}
	ratio := eth / btc
	res.ETHBTCRatio = ratio
	switch {
	case ratio > 0.06:
		res.CryptoHealth = AlignBullish
		res.RiskSentiment = "RISK_ON"
	case ratio < 0.04:
		res.CryptoHealth = AlignBearish
		res.RiskSentiment = "RISK_OFF"
	}
	res.BTCETHCorr = 0.85
	return res
}

// FundamentalResult is the macro-event dimension.
type FundamentalResult struct {
	PostEventWindow  bool
	EventImpact      Alignment
	TimeToNextEvent  *time.Duration
	UpcomingCount    int
	RecentCount      int
}

// EventQuerier is the minimal contract the Fundamental dimension needs
// against the EconomicEvent store.
type EventQuerier interface {
	Upcoming(ctx context.Context, now time.Time, within time.Duration, limit int) ([]models.EconomicEvent, error)
	Recent(ctx context.Context, now time.Time, since time.Duration, limit int) ([]models.EconomicEvent, error)
}

// AnalyzeFundamental queries upcoming/recent HIGH|MEDIUM-impact events around
// now and derives post-event-window status, event-impact direction, and time
// to the next qualifying event.
func AnalyzeFundamental(ctx context.Context, store EventQuerier, now time.Time) (FundamentalResult, error) {
	res := FundamentalResult{EventImpact: AlignNeutral}

	upcoming, err := store.Upcoming(ctx, now, 24*time.Hour, 5)
	if err != nil {
		return res, err
	}
	recent, err := store.Recent(ctx, now, 2*time.Hour, 5)
	if err != nil {
		return res, err
	}
	res.UpcomingCount = len(upcoming)
	res.RecentCount = len(recent)

	if len(recent) > 0 {
		sinceRelease := now.Sub(recent[0].ReleaseTime)
		if sinceRelease < postEventTradeMinutes*time.Minute {
			res.PostEventWindow = true
			dev, _ := recent[0].DeviationFromForecast.Float64()
			switch {
			case dev > 0.5:
				res.EventImpact = AlignBullish
			case dev < -0.5:
				res.EventImpact = AlignBearish
			}
		}
	}
	if len(upcoming) > 0 {
		d := upcoming[0].ReleaseTime.Sub(now)
		res.TimeToNextEvent = &d
	}
	return res, nil
}

// TechnicalResult is the multi-timeframe EMA-deviation dimension.
type TechnicalResult struct {
	PrimaryTrend   Alignment
	TrendAlignment float64
	PerTimeframe   map[string]Alignment
}

// AnalyzeTechnical computes EMA(period) deviation per timeframe and rolls it
// up into a primary trend + alignment ratio. closesByTF must contain, at
// minimum, the "1m" key; missing timeframes are skipped.
func AnalyzeTechnical(closesByTF map[string][]float64, period int) TechnicalResult {
	if period <= 0 {
		period = emaPeriodDefault
	}
	res := TechnicalResult{PerTimeframe: make(map[string]Alignment)}
	var bullish, bearish, total int
	for _, tf := range timeframes {
		closes, ok := closesByTF[tf]
		if !ok || len(closes) < period {
			continue
		}
		emaSeries := indicators.EMA(closes, period)
		ema := emaSeries[len(emaSeries)-1]
		close := closes[len(closes)-1]
		if ema == 0 {
			continue
		}
		deviation := (close - ema) / ema
		total++
		var align Alignment
		switch {
		case deviation > emaDeviationThreshold:
			align = AlignBullish
			bullish++
		case deviation < -emaDeviationThreshold:
			align = AlignBearish
			bearish++
		default:
			align = AlignNeutral
		}
		res.PerTimeframe[tf] = align
	}
	if total == 0 {
		res.PrimaryTrend = AlignNeutral
		return res
	}
	majority := bullish
	if bearish > majority {
		majority = bearish
	}
	res.TrendAlignment = float64(majority) / float64(total)
	switch {
	case bullish > bearish:
		res.PrimaryTrend = AlignBullish
	case bearish > bullish:
		res.PrimaryTrend = AlignBearish
	default:
		res.PrimaryTrend = AlignNeutral
	}
	return res
}

// Signal is the combined confluence result.
type Signal struct {
	Relational      RelationalResult
	Fundamental     FundamentalResult
	Technical       TechnicalResult
	Confluence      Alignment
	DimensionsAligned int
	ConfluenceScore float64
	IsValid         bool
}

// Analyze runs all three dimensions and combines them into a confluence call.
func Analyze(ctx context.Context, prices map[string]float64, store EventQuerier, closesByTF map[string][]float64, now time.Time, emaPeriod int) (Signal, error) {
	rel := AnalyzeRelational(prices)
	fund, err := AnalyzeFundamental(ctx, store, now)
	if err != nil {
		return Signal{}, err
	}
	tech := AnalyzeTechnical(closesByTF, emaPeriod)

	dims := make([]Alignment, 0, 3)
	if rel.CryptoHealth != AlignNeutral {
		dims = append(dims, rel.CryptoHealth)
	}
	if fund.PostEventWindow && fund.EventImpact != AlignNeutral {
		dims = append(dims, fund.EventImpact)
	}
	if tech.PrimaryTrend != AlignNeutral {
		dims = append(dims, tech.PrimaryTrend)
	}

	confluence, aligned := calculateConfluence(dims)
	score := 0.0
	if len(dims) > 0 {
		score = float64(aligned) / float64(len(dims))
	}
	if tech.TrendAlignment >= 0.75 {
		score *= 1.2
		if score > 1 {
			score = 1
		}
	}

	valid := isValidConfluence(confluence, aligned, fund.TimeToNextEvent, score)

	return Signal{
		Relational:        rel,
		Fundamental:       fund,
		Technical:         tech,
		Confluence:        confluence,
		DimensionsAligned: aligned,
		ConfluenceScore:   score,
		IsValid:           valid,
	}, nil
}

func calculateConfluence(dims []Alignment) (Alignment, int) {
	var bullish, bearish int
	for _, d := range dims {
		switch d {
		case AlignBullish:
			bullish++
		case AlignBearish:
			bearish++
		}
	}
	switch {
	case bullish >= 2:
		return AlignBullish, bullish
	case bearish >= 2:
		return AlignBearish, bearish
	case bullish == 1 && bearish == 1:
		return AlignConflicting, 0
	case bullish == 1:
		return AlignBullish, 1
	case bearish == 1:
		return AlignBearish, 1
	default:
		return AlignNeutral, 0
	}
}

func isValidConfluence(confluence Alignment, aligned int, timeToNext *time.Duration, score float64) bool {
	if confluence != AlignBullish && confluence != AlignBearish {
		return false
	}
	if aligned < 2 {
		return false
	}
	if timeToNext != nil && *timeToNext < preEventAvoidMinutes*time.Minute {
		return false
	}
	if score < 0.6 {
		return false
	}
	return true
}
