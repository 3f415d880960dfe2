package exchange

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chidi150c/spotengine/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// HTTPAdapter talks to an exchange REST surface (or a Coinbase/Binance-shaped
// HTTP bridge sidecar) over resty, with retry/backoff for transient errors.
type HTTPAdapter struct {
	client  *resty.Client
	filters map[string]Filters
}

// NewHTTPAdapter builds the resty client with a bounded retry policy:
// up to 3 retries, 500ms base backoff growing to a 5s ceiling, retried only
// on transient network errors or 5xx (4xx is a rejection, not a retry).
func NewHTTPAdapter(baseURL string, filters map[string]Filters) *HTTPAdapter {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(15 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	return &HTTPAdapter{client: client, filters: filters}
}

func (h *HTTPAdapter) GetBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	var out struct {
		Available string `json:"available"`
	}
	resp, err := h.client.R().SetContext(ctx).SetResult(&out).Get("/accounts/" + asset)
	if err != nil {
		return decimal.Zero, fmt.Errorf("exchange: get balance: %w", err)
	}
	if resp.StatusCode() >= 400 && resp.StatusCode() < 500 {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrRejected, resp.String())
	}
	return decimal.NewFromString(out.Available)
}

func (h *HTTPAdapter) GetTickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var out struct {
		Price string `json:"price"`
	}
	resp, err := h.client.R().SetContext(ctx).SetResult(&out).Get("/product/" + symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("exchange: get ticker price: %w", err)
	}
	if resp.StatusCode() >= 400 && resp.StatusCode() < 500 {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrRejected, resp.String())
	}
	return decimal.NewFromString(out.Price)
}

func (h *HTTPAdapter) GetOrderBookDepth(ctx context.Context, symbol string, limit int) (*OrderBook, error) {
	if limit <= 0 {
		limit = 100
	}
	var out struct {
		Bids [][2]string `json:"bids"`
		Asks [][2]string `json:"asks"`
	}
	resp, err := h.client.R().SetContext(ctx).SetResult(&out).
		SetQueryParams(map[string]string{"product_id": symbol, "limit": strconv.Itoa(limit)}).
		Get("/orderbook")
	if err != nil {
		return nil, fmt.Errorf("exchange: get order book: %w", err)
	}
	if resp.StatusCode() >= 400 && resp.StatusCode() < 500 {
		return nil, fmt.Errorf("%w: %s", ErrRejected, resp.String())
	}
	book := &OrderBook{Symbol: symbol, Timestamp: time.Now().UTC()}
	for _, lvl := range out.Bids {
		book.Bids = append(book.Bids, parseLevel(lvl))
	}
	for _, lvl := range out.Asks {
		book.Asks = append(book.Asks, parseLevel(lvl))
	}
	return book, nil
}

func parseLevel(lvl [2]string) PriceLevel {
	price, _ := decimal.NewFromString(lvl[0])
	qty, _ := decimal.NewFromString(lvl[1])
	return PriceLevel{Price: price, Quantity: qty}
}

func (h *HTTPAdapter) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	if limit <= 0 {
		limit = 300
	}
	var rows []struct {
		Start  string `json:"start"`
		Open   string `json:"open"`
		High   string `json:"high"`
		Low    string `json:"low"`
		Close  string `json:"close"`
		Volume string `json:"volume"`
	}
	resp, err := h.client.R().SetContext(ctx).SetResult(&rows).
		SetQueryParams(map[string]string{"product_id": symbol, "granularity": interval, "limit": strconv.Itoa(limit)}).
		Get("/candles")
	if err != nil {
		return nil, fmt.Errorf("exchange: get klines: %w", err)
	}
	if resp.StatusCode() >= 400 && resp.StatusCode() < 500 {
		return nil, fmt.Errorf("%w: %s", ErrRejected, resp.String())
	}

	out := make([]models.Candle, 0, len(rows))
	for _, r := range rows {
		openTime, closeTime := parseCandleTimes(r.Start, interval)
		open, _ := decimal.NewFromString(r.Open)
		high, _ := decimal.NewFromString(r.High)
		low, _ := decimal.NewFromString(r.Low)
		close, _ := decimal.NewFromString(r.Close)
		volume, _ := decimal.NewFromString(r.Volume)
		out = append(out, models.NewCandle(symbol, interval, openTime, closeTime, open, high, low, close, volume))
	}
	return out, nil
}

func parseCandleTimes(start, interval string) (time.Time, time.Time) {
	var openTime time.Time
	if sec, err := strconv.ParseInt(start, 10, 64); err == nil {
		openTime = time.Unix(sec, 0).UTC()
	} else if t, err := time.Parse(time.RFC3339, start); err == nil {
		openTime = t
	}
	return openTime, openTime.Add(granularityDuration(interval))
}

func granularityDuration(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "1h":
		return time.Hour
	default:
		return time.Minute
	}
}

func (h *HTTPAdapter) GetSymbolInfo(ctx context.Context, symbol string) (*Filters, error) {
	f, ok := h.filters[symbol]
	if !ok {
		return nil, fmt.Errorf("exchange: no filters configured for %s", symbol)
	}
	return &f, nil
}

func (h *HTTPAdapter) PlaceOrder(ctx context.Context, symbol string, side models.OrderSide, orderType models.OrderType, qty, price decimal.Decimal) (*Order, error) {
	body := map[string]any{
		"product_id": symbol,
		"side":       strings.ToUpper(string(side)),
		"type":       strings.ToUpper(string(orderType)),
		"size":       qty.String(),
	}
	if orderType == models.OrderTypeLimit {
		body["price"] = price.String()
	}
	var out struct {
		OrderID    string `json:"order_id"`
		AvgPrice   string `json:"avg_price"`
		FilledSize string `json:"filled_size"`
		Status     string `json:"status"`
	}
	resp, err := h.client.R().SetContext(ctx).SetBody(body).SetResult(&out).Post("/order/" + strings.ToLower(string(orderType)))
	if err != nil {
		return nil, fmt.Errorf("exchange: place order: %w", err)
	}
	if resp.StatusCode() >= 400 && resp.StatusCode() < 500 {
		return nil, fmt.Errorf("%w: %s", ErrRejected, resp.String())
	}
	avg, _ := decimal.NewFromString(out.AvgPrice)
	filled, _ := decimal.NewFromString(out.FilledSize)
	return &Order{
		ExchangeOrderID: out.OrderID,
		Symbol:          symbol,
		Side:            side,
		Type:            orderType,
		Price:           price,
		Quantity:        qty,
		FilledQuantity:  filled,
		AveragePrice:    avg,
		Status:          mapStatus(out.Status),
	}, nil
}

func mapStatus(s string) models.TradeStatus {
	switch strings.ToUpper(s) {
	case "FILLED", "DONE":
		return models.TradeStatusFilled
	case "CANCELLED", "CANCELED":
		return models.TradeStatusCancelled
	case "REJECTED":
		return models.TradeStatusRejected
	case "PARTIALLY_FILLED":
		return models.TradeStatusPartiallyFilled
	default:
		return models.TradeStatusPending
	}
}

func (h *HTTPAdapter) CancelOrder(ctx context.Context, symbol, exchangeOrderID string) error {
	resp, err := h.client.R().SetContext(ctx).
		SetQueryParam("product_id", symbol).
		Delete("/order/" + exchangeOrderID)
	if err != nil {
		return fmt.Errorf("exchange: cancel order: %w", err)
	}
	if resp.StatusCode() >= 400 && resp.StatusCode() < 500 {
		return fmt.Errorf("%w: %s", ErrRejected, resp.String())
	}
	return nil
}

func (h *HTTPAdapter) CancelAllOrders(ctx context.Context, symbol string) error {
	resp, err := h.client.R().SetContext(ctx).
		SetQueryParam("product_id", symbol).
		Delete("/orders")
	if err != nil {
		return fmt.Errorf("exchange: cancel all orders: %w", err)
	}
	if resp.StatusCode() >= 400 && resp.StatusCode() < 500 {
		return fmt.Errorf("%w: %s", ErrRejected, resp.String())
	}
	return nil
}

func (h *HTTPAdapter) GetOrder(ctx context.Context, symbol, exchangeOrderID string) (*Order, error) {
	var out struct {
		OrderID    string `json:"order_id"`
		AvgPrice   string `json:"avg_price"`
		Size       string `json:"size"`
		FilledSize string `json:"filled_size"`
		Status     string `json:"status"`
	}
	resp, err := h.client.R().SetContext(ctx).SetResult(&out).
		SetQueryParam("product_id", symbol).
		Get("/order/" + exchangeOrderID)
	if err != nil {
		return nil, fmt.Errorf("exchange: get order: %w", err)
	}
	if resp.StatusCode() >= 400 && resp.StatusCode() < 500 {
		return nil, fmt.Errorf("%w: %s", ErrRejected, resp.String())
	}
	avg, _ := decimal.NewFromString(out.AvgPrice)
	qty, _ := decimal.NewFromString(out.Size)
	filled, _ := decimal.NewFromString(out.FilledSize)
	return &Order{
		ExchangeOrderID: out.OrderID,
		Symbol:          symbol,
		Quantity:        qty,
		FilledQuantity:  filled,
		AveragePrice:    avg,
		Status:          mapStatus(out.Status),
	}, nil
}

func (h *HTTPAdapter) GetOpenOrders(ctx context.Context, symbol string) ([]Order, error) {
	var rows []struct {
		OrderID    string `json:"order_id"`
		AvgPrice   string `json:"avg_price"`
		Size       string `json:"size"`
		FilledSize string `json:"filled_size"`
		Status     string `json:"status"`
	}
	resp, err := h.client.R().SetContext(ctx).SetResult(&rows).
		SetQueryParam("product_id", symbol).
		Get("/orders/open")
	if err != nil {
		return nil, fmt.Errorf("exchange: get open orders: %w", err)
	}
	if resp.StatusCode() >= 400 && resp.StatusCode() < 500 {
		return nil, fmt.Errorf("%w: %s", ErrRejected, resp.String())
	}
	out := make([]Order, 0, len(rows))
	for _, r := range rows {
		avg, _ := decimal.NewFromString(r.AvgPrice)
		qty, _ := decimal.NewFromString(r.Size)
		filled, _ := decimal.NewFromString(r.FilledSize)
		out = append(out, Order{
			ExchangeOrderID: r.OrderID,
			Symbol:          symbol,
			Quantity:        qty,
			FilledQuantity:  filled,
			AveragePrice:    avg,
			Status:          mapStatus(r.Status),
		})
	}
	return out, nil
}

func (h *HTTPAdapter) FormatQuantity(symbol string, q decimal.Decimal) decimal.Decimal {
	f, ok := h.filters[symbol]
	if !ok || f.StepSize.IsZero() {
		return q
	}
	return q.Div(f.StepSize).Floor().Mul(f.StepSize)
}

func (h *HTTPAdapter) FormatPrice(symbol string, p decimal.Decimal) decimal.Decimal {
	f, ok := h.filters[symbol]
	if !ok || f.TickSize.IsZero() {
		return p
	}
	return p.Div(f.TickSize).Round(0).Mul(f.TickSize)
}

var _ Gateway = (*HTTPAdapter)(nil)
