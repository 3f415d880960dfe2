package strategy

import (
	"context"
	"testing"

	"github.com/chidi150c/spotengine/internal/exchange"
	"github.com/chidi150c/spotengine/internal/models"
	"github.com/chidi150c/spotengine/internal/threed"
	"github.com/chidi150c/spotengine/internal/vpa"
	"github.com/shopspring/decimal"
)

func TestGateRequiresAlignedDirectionAndDeviationFloor(t *testing.T) {
	action, ok := gate(
		vpa.Signal{IsValid: true, Direction: vpa.DirectionBullish},
		threed.Signal{IsValid: true, Confluence: threed.AlignBullish},
		-0.01,
	)
	if !ok || action != models.ActionBuy {
		t.Fatalf("expected BUY, got %v %v", action, ok)
	}

	_, ok = gate(
		vpa.Signal{IsValid: true, Direction: vpa.DirectionBullish},
		threed.Signal{IsValid: true, Confluence: threed.AlignBullish},
		-0.001, // below the 0.005 floor
	)
	if ok {
		t.Fatalf("expected rejection below the deviation floor")
	}

	_, ok = gate(
		vpa.Signal{IsValid: true, Direction: vpa.DirectionBullish},
		threed.Signal{IsValid: true, Confluence: threed.AlignBearish},
		-0.01,
	)
	if ok {
		t.Fatalf("expected rejection on conflicting VPA/3-D direction")
	}

	_, ok = gate(
		vpa.Signal{IsValid: false, Direction: vpa.DirectionBullish},
		threed.Signal{IsValid: true, Confluence: threed.AlignBullish},
		-0.01,
	)
	if ok {
		t.Fatalf("expected rejection when VPA signal is invalid")
	}
}

type fakeCache struct {
	prices map[string]decimal.Decimal
	status models.SystemStatus
	signal models.Signal
}

func (f *fakeCache) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	p, ok := f.prices[symbol]
	return p, ok
}
func (f *fakeCache) GetKlines(ctx context.Context, symbol, interval string, limit int) []models.Candle {
	return nil
}
func (f *fakeCache) GetSystemStatus(ctx context.Context) (models.SystemStatus, string) {
	return f.status, ""
}
func (f *fakeCache) SetSignal(ctx context.Context, symbol string, sig models.Signal) {
	f.signal = sig
}

func TestEvaluateExitReportsStopHitLong(t *testing.T) {
	c := &Coordinator{
		Cache: &fakeCache{
			prices: map[string]decimal.Decimal{"BTC-USD": decimal.NewFromInt(98)},
			status: models.SystemActive,
		},
	}
	pos := &models.Position{
		Symbol:      "BTC-USD",
		Side:        models.SideBuy,
		Quantity:    decimal.NewFromInt(1),
		EntryPrice:  decimal.NewFromInt(100),
		CurrentStop: decimal.NewFromInt(99),
	}
	sig, err := c.EvaluateExit(context.Background(), pos)
	if err != nil {
		t.Fatalf("EvaluateExit: %v", err)
	}
	if sig == nil || sig.Action != models.ActionCloseLong {
		t.Fatalf("expected CLOSE_LONG, got %+v", sig)
	}
}

func TestEvaluateExitNoActionWhenNeitherBoundCrossed(t *testing.T) {
	c := &Coordinator{
		Cache: &fakeCache{
			prices: map[string]decimal.Decimal{"BTC-USD": decimal.NewFromInt(101)},
			status: models.SystemActive,
		},
	}
	pos := &models.Position{
		Symbol:      "BTC-USD",
		Side:        models.SideBuy,
		Quantity:    decimal.NewFromInt(1),
		EntryPrice:  decimal.NewFromInt(100),
		CurrentStop: decimal.NewFromInt(99),
		TakeProfit:  decimal.NewFromInt(110),
	}
	sig, err := c.EvaluateExit(context.Background(), pos)
	if err != nil {
		t.Fatalf("EvaluateExit: %v", err)
	}
	if sig != nil {
		t.Fatalf("expected no signal, got %+v", sig)
	}
}

func TestEvaluateSymbolSkipsWhenTradingPaused(t *testing.T) {
	c := &Coordinator{
		Cache: &fakeCache{status: models.SystemPaused},
	}
	sig, err := c.EvaluateSymbol(context.Background(), "BTC-USD", nil)
	if err == nil {
		t.Fatalf("expected error when trading is paused")
	}
	if sig != nil {
		t.Fatalf("expected nil signal, got %+v", sig)
	}
}

var _ exchange.Gateway = (*stubGateway)(nil)

// stubGateway is an intentionally unimplemented Gateway used only to prove
// Coordinator's dependency is the interface type, not a concrete adapter.
type stubGateway struct{}

func (stubGateway) GetBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (stubGateway) GetTickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (stubGateway) GetOrderBookDepth(ctx context.Context, symbol string, limit int) (*exchange.OrderBook, error) {
	return &exchange.OrderBook{}, nil
}
func (stubGateway) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	return nil, nil
}
func (stubGateway) GetSymbolInfo(ctx context.Context, symbol string) (*exchange.Filters, error) {
	return &exchange.Filters{}, nil
}
func (stubGateway) PlaceOrder(ctx context.Context, symbol string, side models.OrderSide, orderType models.OrderType, qty, price decimal.Decimal) (*exchange.Order, error) {
	return &exchange.Order{}, nil
}
func (stubGateway) CancelOrder(ctx context.Context, symbol, exchangeOrderID string) error { return nil }
func (stubGateway) CancelAllOrders(ctx context.Context, symbol string) error              { return nil }
func (stubGateway) GetOrder(ctx context.Context, symbol, exchangeOrderID string) (*exchange.Order, error) {
	return &exchange.Order{}, nil
}
func (stubGateway) GetOpenOrders(ctx context.Context, symbol string) ([]exchange.Order, error) {
	return nil, nil
}
func (stubGateway) FormatQuantity(symbol string, q decimal.Decimal) decimal.Decimal { return q }
func (stubGateway) FormatPrice(symbol string, p decimal.Decimal) decimal.Decimal    { return p }
