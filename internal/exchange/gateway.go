// Package exchange defines the Gateway contract every adapter satisfies, and
// the shared request/response shapes (order book, filters, order) it passes
// across that contract.
package exchange

import (
	"context"
	"errors"
	"time"

	"github.com/chidi150c/spotengine/internal/models"
	"github.com/shopspring/decimal"
)

// ErrRejected marks a non-retriable 4xx/rejection response from the
// exchange, as opposed to a transient network/5xx error the caller's resty
// client already retried internally.
var ErrRejected = errors.New("exchange: order rejected")

// PriceLevel is one (price, quantity) rung of an order-book ladder.
type PriceLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// OrderBook is a top-N snapshot, best price first on each side.
type OrderBook struct {
	Symbol    string
	Bids      []PriceLevel
	Asks      []PriceLevel
	Timestamp time.Time
}

// Filters are the symbol's exchange-enforced lot/tick/notional rules.
type Filters struct {
	Symbol      string
	MinQty      decimal.Decimal
	StepSize    decimal.Decimal
	TickSize    decimal.Decimal
	MinNotional decimal.Decimal
}

// Order is the exchange-side view of a placed order, independent of the
// durable Trade record the store keeps.
type Order struct {
	ExchangeOrderID string
	Symbol          string
	Side            models.OrderSide
	Type            models.OrderType
	Price           decimal.Decimal
	Quantity        decimal.Decimal
	FilledQuantity  decimal.Decimal
	AveragePrice    decimal.Decimal
	Status          models.TradeStatus
}

// Gateway abstracts REST order placement and market-data fetch, and formats
// price/quantity to a symbol's lot/tick rules. Two adapters satisfy it:
// HTTPAdapter (resty-backed, live/HTTP-bridge) and PaperAdapter (in-memory).
type Gateway interface {
	GetBalance(ctx context.Context, asset string) (decimal.Decimal, error)
	GetTickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	GetOrderBookDepth(ctx context.Context, symbol string, limit int) (*OrderBook, error)
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)
	GetSymbolInfo(ctx context.Context, symbol string) (*Filters, error)

	PlaceOrder(ctx context.Context, symbol string, side models.OrderSide, orderType models.OrderType, qty, price decimal.Decimal) (*Order, error)
	CancelOrder(ctx context.Context, symbol, exchangeOrderID string) error
	CancelAllOrders(ctx context.Context, symbol string) error
	GetOrder(ctx context.Context, symbol, exchangeOrderID string) (*Order, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]Order, error)

	FormatQuantity(symbol string, q decimal.Decimal) decimal.Decimal
	FormatPrice(symbol string, p decimal.Decimal) decimal.Decimal
}
