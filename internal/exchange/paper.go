package exchange

import (
	"context"
	"fmt"
	"sync"

	"github.com/chidi150c/spotengine/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaperAdapter simulates immediate full fills for dry runs and tests: a MARKET
// order fills at the symbol's last price set with SetPrice, a LIMIT order at
// its own limit price. Order-book and klines operations return an error, same
// as the teacher's paper broker.
type PaperAdapter struct {
	mu       sync.Mutex
	prices   map[string]decimal.Decimal
	balances map[string]decimal.Decimal
	filters  map[string]Filters
	orders   map[string]*Order
}

func NewPaperAdapter(startingBalances map[string]decimal.Decimal, filters map[string]Filters) *PaperAdapter {
	return &PaperAdapter{
		prices:   make(map[string]decimal.Decimal),
		balances: startingBalances,
		filters:  filters,
		orders:   make(map[string]*Order),
	}
}

// SetPrice seeds/updates the simulated last price for a symbol.
func (p *PaperAdapter) SetPrice(symbol string, price decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[symbol] = price
}

func (p *PaperAdapter) GetBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balances[asset], nil
}

func (p *PaperAdapter) GetTickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	price, ok := p.prices[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("exchange: no paper price seeded for %s", symbol)
	}
	return price, nil
}

func (p *PaperAdapter) GetOrderBookDepth(ctx context.Context, symbol string, limit int) (*OrderBook, error) {
	return nil, fmt.Errorf("exchange: paper adapter has no order book (use live adapter)")
}

func (p *PaperAdapter) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	return nil, fmt.Errorf("exchange: paper adapter has no candles (use live adapter)")
}

func (p *PaperAdapter) GetSymbolInfo(ctx context.Context, symbol string) (*Filters, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.filters[symbol]
	if !ok {
		return nil, fmt.Errorf("exchange: no filters configured for %s", symbol)
	}
	return &f, nil
}

func (p *PaperAdapter) PlaceOrder(ctx context.Context, symbol string, side models.OrderSide, orderType models.OrderType, qty, price decimal.Decimal) (*Order, error) {
	fillPrice := price
	if orderType == models.OrderTypeMarket {
		simPrice, err := p.GetTickerPrice(ctx, symbol)
		if err != nil {
			return nil, err
		}
		fillPrice = simPrice
	}
	order := &Order{
		ExchangeOrderID: uuid.New().String(),
		Symbol:          symbol,
		Side:            side,
		Type:            orderType,
		Price:           fillPrice,
		Quantity:        qty,
		FilledQuantity:  qty,
		AveragePrice:    fillPrice,
		Status:          models.TradeStatusFilled,
	}
	p.mu.Lock()
	p.orders[order.ExchangeOrderID] = order
	p.mu.Unlock()
	return order, nil
}

func (p *PaperAdapter) CancelOrder(ctx context.Context, symbol, exchangeOrderID string) error {
	return fmt.Errorf("exchange: paper adapter fills immediately, nothing to cancel")
}

func (p *PaperAdapter) CancelAllOrders(ctx context.Context, symbol string) error {
	return nil
}

func (p *PaperAdapter) GetOrder(ctx context.Context, symbol, exchangeOrderID string) (*Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[exchangeOrderID]
	if !ok {
		return nil, fmt.Errorf("exchange: unknown paper order %s", exchangeOrderID)
	}
	return o, nil
}

func (p *PaperAdapter) GetOpenOrders(ctx context.Context, symbol string) ([]Order, error) {
	return nil, nil // paper orders fill synchronously; never open
}

func (p *PaperAdapter) FormatQuantity(symbol string, q decimal.Decimal) decimal.Decimal {
	p.mu.Lock()
	f, ok := p.filters[symbol]
	p.mu.Unlock()
	if !ok || f.StepSize.IsZero() {
		return q
	}
	return q.Div(f.StepSize).Floor().Mul(f.StepSize)
}

func (p *PaperAdapter) FormatPrice(symbol string, pr decimal.Decimal) decimal.Decimal {
	p.mu.Lock()
	f, ok := p.filters[symbol]
	p.mu.Unlock()
	if !ok || f.TickSize.IsZero() {
		return pr
	}
	return pr.Div(f.TickSize).Round(0).Mul(f.TickSize)
}

var _ Gateway = (*PaperAdapter)(nil)
