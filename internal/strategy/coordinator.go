// Package strategy assembles market state from the cache/exchange, runs the
// VPA and 3-D analyzers, gates on their combined signal, and sizes the
// resulting trade through the Risk Manager.
package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/chidi150c/spotengine/internal/exchange"
	"github.com/chidi150c/spotengine/internal/indicators"
	"github.com/chidi150c/spotengine/internal/models"
	"github.com/chidi150c/spotengine/internal/risk"
	"github.com/chidi150c/spotengine/internal/threed"
	"github.com/chidi150c/spotengine/internal/vpa"
	"github.com/shopspring/decimal"
)

const (
	emaPeriod             = 20
	emaDeviationThreshold = 0.005
	atrPeriod             = 14
	confluenceWeight      = 0.6
	vpaWeight             = 0.4
)

var timeframes = []string{"1m", "5m", "15m", "1h"}
var relatedSymbols = []string{"BTCUSDT", "ETHUSDT", "BNBUSDT"}

// MarketCache is the subset of *cache.Cache the coordinator reads/writes —
// kept as an interface here so tests can substitute an in-memory fake
// without a live Redis connection.
type MarketCache interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, bool)
	GetKlines(ctx context.Context, symbol, interval string, limit int) []models.Candle
	GetSystemStatus(ctx context.Context) (models.SystemStatus, string)
	SetSignal(ctx context.Context, symbol string, sig models.Signal)
}

// Coordinator wires the cache, exchange gateway, risk config, and event
// store together to produce and cache trade signals.
type Coordinator struct {
	Cache   MarketCache
	Gateway exchange.Gateway
	RiskCfg risk.Config
	Events  threed.EventQuerier
	Balance func(ctx context.Context) (decimal.Decimal, error)
}

// EvaluateSymbol implements evaluate_symbol: gated signal generation for a
// symbol with no open position, or delegation to EvaluateExit if one exists.
func (c *Coordinator) EvaluateSymbol(ctx context.Context, symbol string, openPosition *models.Position) (*models.Signal, error) {
	status, reason := c.Cache.GetSystemStatus(ctx)
	if allowed, _ := risk.IsTradingAllowed(status); !allowed {
		return nil, fmt.Errorf("strategy: trading not allowed: %s", reason)
	}

	if openPosition != nil {
		return c.EvaluateExit(ctx, openPosition)
	}

	closesByTF, err := c.fetchCandleHistory(ctx, symbol)
	if err != nil {
		return nil, err
	}
	oneMin, ok := closesByTF["1m"]
	if !ok || len(oneMin) < emaPeriod+1 {
		return nil, nil // absent 1m history: nothing to evaluate yet
	}

	currentPrice, err := c.fetchPrice(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("strategy: fetch price: %w", err)
	}

	relatedPrices, err := c.fetchRelatedPrices(ctx)
	if err != nil {
		return nil, err
	}

	vpaSig, err := vpa.Analyze(oneMin, 20)
	if err != nil {
		return nil, fmt.Errorf("strategy: vpa: %w", err)
	}

	closesByTFFloat := make(map[string][]float64, len(closesByTF))
	for tf, candles := range closesByTF {
		closesByTFFloat[tf] = closesToFloats(candles)
	}
	threedSig, err := threed.Analyze(ctx, relatedPrices, c.Events, closesByTFFloat, time.Now(), emaPeriod)
	if err != nil {
		return nil, fmt.Errorf("strategy: 3-d: %w", err)
	}

	closes := closesToFloats(oneMin)
	emaSeries := indicators.EMA(closes, emaPeriod)
	ema := emaSeries[len(emaSeries)-1]
	lastClose := closes[len(closes)-1]
	var deviation float64
	if ema != 0 {
		deviation = (lastClose - ema) / ema
	}

	action, ok := gate(vpaSig, threedSig, deviation)
	if !ok {
		return &models.Signal{Symbol: symbol, Action: models.ActionHold, IsValid: false,
			RejectionReason: "gate: no aligned direction"}, nil
	}

	atr := c.computeATR(ctx, symbol)
	side, _ := action.Side()
	stop := risk.InitialStop(c.RiskCfg, side, currentPrice, atr)

	balance, err := c.Balance(ctx)
	if err != nil {
		return nil, fmt.Errorf("strategy: fetch balance: %w", err)
	}
	filters, err := c.Gateway.GetSymbolInfo(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("strategy: symbol filters: %w", err)
	}
	sizing := risk.PositionSize(c.RiskCfg, balance, currentPrice, stop, *filters)
	if !sizing.IsValid {
		return &models.Signal{Symbol: symbol, Action: models.ActionHold, IsValid: false,
			RejectionReason: sizing.Reason}, nil
	}

	book, err := c.Gateway.GetOrderBookDepth(ctx, symbol, 20)
	if err != nil {
		return nil, fmt.Errorf("strategy: order book: %w", err)
	}
	slip := risk.AdmitSlippage(c.RiskCfg, side, sizing.Quantity, *book)
	if !slip.Admitted {
		return &models.Signal{Symbol: symbol, Action: models.ActionHold, IsValid: false,
			RejectionReason: slip.Reason}, nil
	}

	riskDistance := currentPrice.Sub(stop).Abs()
	var takeProfit decimal.Decimal
	if side == models.SideBuy {
		takeProfit = currentPrice.Add(riskDistance.Mul(decimal.NewFromInt(2)))
	} else {
		takeProfit = currentPrice.Sub(riskDistance.Mul(decimal.NewFromInt(2)))
	}

	confidence := vpaWeight*vpaSig.Strength + confluenceWeight*threedSig.ConfluenceScore
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}

	sig := &models.Signal{
		Symbol:       symbol,
		Action:       action,
		EntryPrice:   currentPrice,
		StopLoss:     stop,
		TakeProfit:   takeProfit,
		Quantity:     sizing.Quantity,
		Confidence:   decimal.NewFromFloat(confidence),
		VPAPattern:   string(vpaSig.Pattern),
		ThreeDLabel:  string(threedSig.Confluence),
		EMADeviation: decimal.NewFromFloat(deviation),
		IsValid:      true,
	}
	c.Cache.SetSignal(ctx, symbol, *sig)
	return sig, nil
}

// EvaluateExit implements evaluate_exit: refresh unrealized PnL and emit a
// CLOSE_LONG/CLOSE_SHORT signal if the stop or take-profit has been crossed.
func (c *Coordinator) EvaluateExit(ctx context.Context, p *models.Position) (*models.Signal, error) {
	currentPrice, err := c.fetchPrice(ctx, p.Symbol)
	if err != nil {
		return nil, fmt.Errorf("strategy: fetch price: %w", err)
	}
	p.UpdateUnrealizedPnL(currentPrice)

	var hit bool
	var reason string
	switch p.Side {
	case models.SideBuy:
		if currentPrice.LessThanOrEqual(p.CurrentStop) {
			hit, reason = true, "stop_loss"
		} else if !p.TakeProfit.IsZero() && currentPrice.GreaterThanOrEqual(p.TakeProfit) {
			hit, reason = true, "take_profit"
		}
	case models.SideSell:
		if currentPrice.GreaterThanOrEqual(p.CurrentStop) {
			hit, reason = true, "stop_loss"
		} else if !p.TakeProfit.IsZero() && currentPrice.LessThanOrEqual(p.TakeProfit) {
			hit, reason = true, "take_profit"
		}
	}
	if !hit {
		return nil, nil
	}

	action := models.ActionCloseLong
	if p.Side == models.SideSell {
		action = models.ActionCloseShort
	}
	return &models.Signal{
		Symbol:       p.Symbol,
		Action:       action,
		Quantity:     p.Quantity,
		MacroContext: reason,
		IsValid:      true,
	}, nil
}

// gate applies the direction-alignment rule between VPA and 3-D signals.
func gate(vpaSig vpa.Signal, threedSig threed.Signal, deviation float64) (models.SignalAction, bool) {
	if !vpaSig.IsValid || !threedSig.IsValid {
		return "", false
	}
	if absFloat(deviation) < emaDeviationThreshold {
		return "", false
	}
	switch {
	case vpaSig.Direction == vpa.DirectionBullish && threedSig.Confluence == threed.AlignBullish && deviation < 0:
		return models.ActionBuy, true
	case vpaSig.Direction == vpa.DirectionBearish && threedSig.Confluence == threed.AlignBearish && deviation > 0:
		return models.ActionSell, true
	default:
		return "", false
	}
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// fetchCandleHistory reads cache-first per-timeframe history, falling back
// to the exchange gateway per symbol/timeframe.
func (c *Coordinator) fetchCandleHistory(ctx context.Context, symbol string) (map[string][]models.Candle, error) {
	out := make(map[string][]models.Candle, len(timeframes))
	for _, tf := range timeframes {
		candles := c.Cache.GetKlines(ctx, symbol, tf, 200)
		if len(candles) == 0 {
			fetched, err := c.Gateway.GetKlines(ctx, symbol, tf, 200)
			if err != nil {
				if tf == "1m" {
					return nil, fmt.Errorf("strategy: fetch %s %s klines: %w", symbol, tf, err)
				}
				continue
			}
			candles = fetched
		}
		if len(candles) > 0 {
			out[tf] = candles
		}
	}
	return out, nil
}

func (c *Coordinator) fetchPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if price, ok := c.Cache.GetPrice(ctx, symbol); ok {
		return price, nil
	}
	return c.Gateway.GetTickerPrice(ctx, symbol)
}

func (c *Coordinator) fetchRelatedPrices(ctx context.Context) (map[string]float64, error) {
	out := make(map[string]float64, len(relatedSymbols))
	for _, sym := range relatedSymbols {
		price, err := c.fetchPrice(ctx, sym)
		if err != nil {
			continue // a missing leg just neutralizes that dimension, not a hard failure
		}
		f, _ := price.Float64()
		out[sym] = f
	}
	return out, nil
}

// computeATR pulls 1h candles (cache-first) and computes ATR(14); returns
// zero if unavailable, triggering InitialStop's percentage fallback.
func (c *Coordinator) computeATR(ctx context.Context, symbol string) decimal.Decimal {
	candles := c.Cache.GetKlines(ctx, symbol, "1h", atrPeriod+1)
	if len(candles) < atrPeriod+1 {
		fetched, err := c.Gateway.GetKlines(ctx, symbol, "1h", atrPeriod+1)
		if err != nil {
			return decimal.Zero
		}
		candles = fetched
	}
	if len(candles) < atrPeriod+1 {
		return decimal.Zero
	}
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	for i, c := range candles {
		highs[i], _ = c.High.Float64()
		lows[i], _ = c.Low.Float64()
		closes[i], _ = c.Close.Float64()
	}
	atr := indicators.ATR(highs, lows, closes, atrPeriod)
	return decimal.NewFromFloat(atr)
}

func closesToFloats(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i], _ = c.Close.Float64()
	}
	return out
}
