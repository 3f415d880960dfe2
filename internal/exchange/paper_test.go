package exchange

import (
	"context"
	"testing"

	"github.com/chidi150c/spotengine/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPaperAdapterPlaceOrderFillsAtSetPrice(t *testing.T) {
	filters := map[string]Filters{
		"BTC-USD": {
			Symbol:      "BTC-USD",
			StepSize:    decimal.NewFromFloat(0.0001),
			TickSize:    decimal.NewFromFloat(0.01),
			MinNotional: decimal.NewFromInt(10),
		},
	}
	p := NewPaperAdapter(map[string]decimal.Decimal{"USD": decimal.NewFromInt(1000)}, filters)
	p.SetPrice("BTC-USD", decimal.NewFromInt(50000))

	order, err := p.PlaceOrder(context.Background(), "BTC-USD", models.SideBuy, models.OrderTypeMarket, decimal.NewFromFloat(0.01), decimal.Zero)
	require.NoError(t, err)
	require.Equal(t, models.TradeStatusFilled, order.Status)
	require.True(t, order.AveragePrice.Equal(decimal.NewFromInt(50000)))
}

func TestPaperAdapterFormatQuantityRoundsDownToStep(t *testing.T) {
	filters := map[string]Filters{
		"BTC-USD": {Symbol: "BTC-USD", StepSize: decimal.NewFromFloat(0.01)},
	}
	p := NewPaperAdapter(nil, filters)
	got := p.FormatQuantity("BTC-USD", decimal.NewFromFloat(0.127))
	require.True(t, got.Equal(decimal.NewFromFloat(0.12)), "got %v", got)
}

func TestPaperAdapterUnseededPriceErrors(t *testing.T) {
	p := NewPaperAdapter(nil, nil)
	_, err := p.GetTickerPrice(context.Background(), "ETH-USD")
	require.Error(t, err)
}
