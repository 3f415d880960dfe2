package risk

import (
	"context"
	"testing"
	"time"

	"github.com/chidi150c/spotengine/internal/exchange"
	"github.com/chidi150c/spotengine/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPositionSizeHappyPath(t *testing.T) {
	cfg := DefaultConfig()
	filters := exchange.Filters{
		StepSize:    decimal.NewFromFloat(0.001),
		MinNotional: decimal.NewFromInt(10),
		MinQty:      decimal.NewFromFloat(0.001),
	}
	// balance=10000, risk=1.5% => risk_amount=150, stop_distance=500 => qty=0.3
	res := PositionSize(cfg, decimal.NewFromInt(10000), decimal.NewFromInt(50000), decimal.NewFromInt(49500), filters)
	require.True(t, res.IsValid, res.Reason)
	require.True(t, res.Quantity.Equal(decimal.NewFromFloat(0.3)), "got %v", res.Quantity)
}

func TestPositionSizeRejectsZeroStopDistance(t *testing.T) {
	cfg := DefaultConfig()
	res := PositionSize(cfg, decimal.NewFromInt(10000), decimal.NewFromInt(50000), decimal.NewFromInt(50000), exchange.Filters{})
	require.False(t, res.IsValid)
}

func TestPositionSizeRejectsBelowMinNotional(t *testing.T) {
	cfg := DefaultConfig()
	filters := exchange.Filters{
		StepSize:    decimal.NewFromFloat(0.0001),
		MinNotional: decimal.NewFromInt(100000),
	}
	res := PositionSize(cfg, decimal.NewFromInt(10000), decimal.NewFromInt(50000), decimal.NewFromInt(49500), filters)
	require.False(t, res.IsValid)
	require.Contains(t, res.Reason, "min_notional")
}

func TestAdmitSlippageWithinTolerance(t *testing.T) {
	cfg := DefaultConfig()
	book := exchange.OrderBook{
		Asks: []exchange.PriceLevel{
			{Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1)},
			{Price: decimal.NewFromFloat(100.1), Quantity: decimal.NewFromInt(1)},
		},
	}
	res := AdmitSlippage(cfg, models.SideBuy, decimal.NewFromFloat(1.5), book)
	require.True(t, res.SufficientLiquidity)
	require.True(t, res.Admitted, res.Reason)
}

func TestAdmitSlippageLadderExhausted(t *testing.T) {
	cfg := DefaultConfig()
	book := exchange.OrderBook{
		Asks: []exchange.PriceLevel{{Price: decimal.NewFromInt(100), Quantity: decimal.NewFromFloat(0.5)}},
	}
	res := AdmitSlippage(cfg, models.SideBuy, decimal.NewFromInt(1), book)
	require.False(t, res.SufficientLiquidity)
	require.False(t, res.Admitted)
}

func TestUpdateTrailingStopActivatesAndRatchetsLong(t *testing.T) {
	cfg := DefaultConfig()
	p := &models.Position{
		Side:        models.SideBuy,
		Quantity:    decimal.NewFromInt(1),
		EntryPrice:  decimal.NewFromInt(100),
		CurrentStop: decimal.NewFromInt(98),
	}
	// +3% move clears the 2% trigger.
	hit := UpdateTrailingStop(cfg, p, decimal.NewFromFloat(103))
	require.False(t, hit)
	require.True(t, p.TrailActivated)
	require.True(t, p.TrailDistance.Equal(decimal.NewFromInt(5)), "got %v", p.TrailDistance) // |103-98|

	// price keeps rising: stop ratchets up, never down.
	hit = UpdateTrailingStop(cfg, p, decimal.NewFromInt(110))
	require.False(t, hit)
	require.True(t, p.CurrentStop.Equal(decimal.NewFromInt(105)), "got %v", p.CurrentStop) // 110-5

	// price falls back through the now-ratcheted stop -> reported as hit.
	hit = UpdateTrailingStop(cfg, p, decimal.NewFromInt(104))
	require.True(t, hit)
	require.True(t, p.CurrentStop.Equal(decimal.NewFromInt(105)), "stop must not un-ratchet")
}

func TestUpdateTrailingStopReportsStopHit(t *testing.T) {
	cfg := DefaultConfig()
	p := &models.Position{
		Side:        models.SideBuy,
		Quantity:    decimal.NewFromInt(1),
		EntryPrice:  decimal.NewFromInt(100),
		CurrentStop: decimal.NewFromInt(99),
	}
	hit := UpdateTrailingStop(cfg, p, decimal.NewFromFloat(98.5))
	require.True(t, hit)
}

type fakeRiskStore struct {
	state *models.RiskState
}

func (f *fakeRiskStore) Today(ctx context.Context, day time.Time, startingBalance decimal.Decimal) (*models.RiskState, error) {
	if f.state == nil {
		f.state = models.NewRiskStateForDay(day, startingBalance)
	}
	return f.state, nil
}

func (f *fakeRiskStore) Save(ctx context.Context, state *models.RiskState) error {
	f.state = state
	return nil
}

type fakeStatusPublisher struct {
	status models.SystemStatus
	reason string
}

func (f *fakeStatusPublisher) SetSystemStatus(ctx context.Context, status models.SystemStatus, reason string) error {
	f.status = status
	f.reason = reason
	return nil
}

func TestCircuitBreakerTripsOnDrawdown(t *testing.T) {
	cfg := DefaultConfig()
	store := &fakeRiskStore{}
	cache := &fakeStatusPublisher{}
	var cancelled []string
	cancel := func(ctx context.Context, symbol string) error {
		cancelled = append(cancelled, symbol)
		return nil
	}
	cb := NewCircuitBreaker(cfg, store, cache, cancel, []string{"BTC-USD", "ETH-USD"})

	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	// Starting 10000, highest becomes 10000 via first Evaluate, then a big drop to 9000 (10% drawdown > 5% limit).
	_, err := cb.Evaluate(context.Background(), day, decimal.NewFromInt(10000), decimal.NewFromInt(10000))
	require.NoError(t, err)
	state, err := cb.Evaluate(context.Background(), day, decimal.NewFromInt(10000), decimal.NewFromInt(9000))
	require.NoError(t, err)
	require.Equal(t, models.SystemPaused, state.SystemStatus)
	require.Equal(t, models.SystemPaused, cache.status)
	require.ElementsMatch(t, []string{"BTC-USD", "ETH-USD"}, cancelled)
}

func TestIsTradingAllowed(t *testing.T) {
	allowed, reason := IsTradingAllowed(models.SystemActive)
	require.True(t, allowed)
	require.Empty(t, reason)

	allowed, reason = IsTradingAllowed(models.SystemPaused)
	require.False(t, allowed)
	require.Equal(t, "PAUSED", reason)
}
