// Package cache implements the hot-path Market-Data Cache: TTL'd keys,
// bounded candle-history lists, and pub/sub fan-out, backed by Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/chidi150c/spotengine/internal/models"
	"github.com/chidi150c/spotengine/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	priceTTL    = 60 * time.Second
	orderBookTTL = time.Second
	klineTTL    = 60 * time.Second
	emaTTL      = 60 * time.Second
	signalTTL   = 300 * time.Second
	defaultHistoryCap = 100
)

// Cache wraps a go-redis client with the key shapes this system reads/writes.
// Reads/writes never return a hard error to the caller on a connectivity
// failure: [CACHE] logs it and readers get an "absent" zero value, so a
// Redis outage degrades freshness rather than taking the engine down. The one
// exception is SetSystemStatus, which also returns the Redis error.
type Cache struct {
	rdb        *redis.Client
	historyCap int
}

func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb, historyCap: defaultHistoryCap}
}

type priceRecord struct {
	Price     string `json:"price"`
	Timestamp int64  `json:"timestamp_ms"`
}

// SetPrice writes price:{symbol} with a 60s TTL.
func (c *Cache) SetPrice(ctx context.Context, symbol string, price decimal.Decimal) {
	rec := priceRecord{Price: price.String(), Timestamp: time.Now().UnixMilli()}
	c.set(ctx, "price", "price:"+symbol, rec, priceTTL)
}

// GetPrice reads price:{symbol}; ok=false if absent or the store is unreachable.
func (c *Cache) GetPrice(ctx context.Context, symbol string) (price decimal.Decimal, ok bool) {
	var rec priceRecord
	if !c.get(ctx, "price", "price:"+symbol, &rec) {
		return decimal.Zero, false
	}
	p, err := decimal.NewFromString(rec.Price)
	if err != nil {
		return decimal.Zero, false
	}
	return p, true
}

type levelRecord struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

type orderBookRecord struct {
	Bids      []levelRecord `json:"bids"`
	Asks      []levelRecord `json:"asks"`
	Timestamp int64         `json:"timestamp_ms"`
}

// SetOrderBook writes orderbook:{symbol} (top-20 each side) with a 1s TTL.
func (c *Cache) SetOrderBook(ctx context.Context, symbol string, bids, asks []struct{ Price, Quantity decimal.Decimal }) {
	rec := orderBookRecord{Timestamp: time.Now().UnixMilli()}
	for i, lvl := range bids {
		if i >= 20 {
			break
		}
		rec.Bids = append(rec.Bids, levelRecord{Price: lvl.Price.String(), Quantity: lvl.Quantity.String()})
	}
	for i, lvl := range asks {
		if i >= 20 {
			break
		}
		rec.Asks = append(rec.Asks, levelRecord{Price: lvl.Price.String(), Quantity: lvl.Quantity.String()})
	}
	c.set(ctx, "orderbook", "orderbook:"+symbol, rec, orderBookTTL)
}

type candleRecord struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	OpenTime  int64  `json:"open_time_ms"`
	CloseTime int64  `json:"close_time_ms"`
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Close     string `json:"close"`
	Volume    string `json:"volume"`
}

func toCandleRecord(c models.Candle) candleRecord {
	return candleRecord{
		Symbol:    c.Symbol,
		Timeframe: c.Timeframe,
		OpenTime:  c.OpenTime.UnixMilli(),
		CloseTime: c.CloseTime.UnixMilli(),
		Open:      c.Open.String(),
		High:      c.High.String(),
		Low:       c.Low.String(),
		Close:     c.Close.String(),
		Volume:    c.Volume.String(),
	}
}

func fromCandleRecord(r candleRecord) models.Candle {
	open, _ := decimal.NewFromString(r.Open)
	high, _ := decimal.NewFromString(r.High)
	low, _ := decimal.NewFromString(r.Low)
	close, _ := decimal.NewFromString(r.Close)
	volume, _ := decimal.NewFromString(r.Volume)
	return models.NewCandle(r.Symbol, r.Timeframe,
		time.UnixMilli(r.OpenTime).UTC(), time.UnixMilli(r.CloseTime).UTC(),
		open, high, low, close, volume)
}

// SetKline writes kline:{symbol}:{interval} (latest closed bar, 60s TTL) and
// atomically pushes it onto klines:{symbol}:{interval} (LPUSH+LTRIM to the
// configured history cap).
func (c *Cache) SetKline(ctx context.Context, candle models.Candle) {
	key := fmt.Sprintf("kline:%s:%s", candle.Symbol, candle.Timeframe)
	c.set(ctx, "kline", key, toCandleRecord(candle), klineTTL)

	histKey := fmt.Sprintf("klines:%s:%s", candle.Symbol, candle.Timeframe)
	payload, err := json.Marshal(toCandleRecord(candle))
	if err != nil {
		log.Printf("[CACHE] marshal candle for %s: %v", histKey, err)
		telemetry.RecordCacheOp("klines", "error")
		return
	}
	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, histKey, payload)
	pipe.LTrim(ctx, histKey, 0, int64(c.historyCap-1))
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[CACHE] append history %s: %v", histKey, err)
		telemetry.RecordCacheOp("klines", "error")
		return
	}
	telemetry.RecordCacheOp("klines", "ok")
}

// GetKlines reads up to limit most-recent-first candles from
// klines:{symbol}:{interval} and returns them oldest-first.
func (c *Cache) GetKlines(ctx context.Context, symbol, interval string, limit int) []models.Candle {
	key := fmt.Sprintf("klines:%s:%s", symbol, interval)
	raws, err := c.rdb.LRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		log.Printf("[CACHE] read history %s: %v", key, err)
		telemetry.RecordCacheOp("klines", "error")
		return nil
	}
	if len(raws) == 0 {
		telemetry.RecordCacheOp("klines", "miss")
		return nil
	}
	telemetry.RecordCacheOp("klines", "hit")
	out := make([]models.Candle, 0, len(raws))
	for _, raw := range raws {
		var rec candleRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		out = append(out, fromCandleRecord(rec))
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

type emaRecord struct {
	Value     string `json:"value"`
	Timestamp int64  `json:"timestamp_ms"`
}

// SetEMA writes ema:{symbol}:{period} with a 60s TTL.
func (c *Cache) SetEMA(ctx context.Context, symbol string, period int, value float64) {
	rec := emaRecord{Value: fmt.Sprintf("%g", value), Timestamp: time.Now().UnixMilli()}
	c.set(ctx, "ema", fmt.Sprintf("ema:%s:%d", symbol, period), rec, emaTTL)
}

// SetSignal writes signal:{symbol} with a 300s TTL.
func (c *Cache) SetSignal(ctx context.Context, symbol string, sig models.Signal) {
	c.set(ctx, "signal", "signal:"+symbol, sig, signalTTL)
}

// GetSignal reads signal:{symbol}.
func (c *Cache) GetSignal(ctx context.Context, symbol string) (models.Signal, bool) {
	var sig models.Signal
	if !c.get(ctx, "signal", "signal:"+symbol, &sig) {
		return models.Signal{}, false
	}
	return sig, true
}

// DeleteSignal explicitly removes signal:{symbol}, called on execution.
func (c *Cache) DeleteSignal(ctx context.Context, symbol string) {
	if err := c.rdb.Del(ctx, "signal:"+symbol).Err(); err != nil {
		log.Printf("[CACHE] delete signal:%s: %v", symbol, err)
	}
}

type systemStatusRecord struct {
	Status    models.SystemStatus `json:"status"`
	Reason    string              `json:"reason"`
	Timestamp int64               `json:"timestamp_ms"`
}

// SetSystemStatus writes system:status with no TTL. Satisfies
// risk.StatusPublisher.
func (c *Cache) SetSystemStatus(ctx context.Context, status models.SystemStatus, reason string) error {
	rec := systemStatusRecord{Status: status, Reason: reason, Timestamp: time.Now().UnixMilli()}
	payload, err := json.Marshal(rec)
	if err != nil {
		telemetry.RecordCacheOp("system_status", "error")
		return fmt.Errorf("cache: marshal system status: %w", err)
	}
	if err := c.rdb.Set(ctx, "system:status", payload, 0).Err(); err != nil {
		log.Printf("[CACHE] set system:status: %v", err)
		telemetry.RecordCacheOp("system_status", "error")
		return err
	}
	telemetry.RecordCacheOp("system_status", "ok")
	return nil
}

// GetSystemStatus reads system:status; defaults to ACTIVE if absent.
func (c *Cache) GetSystemStatus(ctx context.Context) (models.SystemStatus, string) {
	var rec systemStatusRecord
	if !c.get(ctx, "system_status", "system:status", &rec) {
		return models.SystemActive, ""
	}
	return rec.Status, rec.Reason
}

// Publish fans a JSON-encoded event out to a pub/sub channel for dashboard
// subscribers.
func (c *Cache) Publish(ctx context.Context, channel string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("[CACHE] marshal publish payload for %s: %v", channel, err)
		return
	}
	if err := c.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("[CACHE] publish %s: %v", channel, err)
	}
}

const positionLockTTL = 10 * time.Second

// TryLockPosition acquires the per-symbol advisory lock `lock:position:{symbol}`
// via SETNX+TTL, the cache-backed generalization of the teacher's in-process
// per-SideBook mutex discipline to a store shared across workers. token
// must be a value unique to the caller (e.g. a uuid) so Unlock can verify it
// still owns the lock before releasing it. Returns false (no error) if the
// lock is already held — callers should skip the cycle, not retry inline.
func (c *Cache) TryLockPosition(ctx context.Context, symbol, token string) bool {
	ok, err := c.rdb.SetNX(ctx, "lock:position:"+symbol, token, positionLockTTL).Result()
	if err != nil {
		log.Printf("[CACHE] lock position %s: %v", symbol, err)
		return false
	}
	return ok
}

// UnlockPosition releases lock:position:{symbol} iff it is still held by
// token, via the standard compare-and-delete Lua script (avoids releasing a
// lock some other worker acquired after this one's TTL expired).
func (c *Cache) UnlockPosition(ctx context.Context, symbol, token string) {
	const script = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`
	if err := c.rdb.Eval(ctx, script, []string{"lock:position:" + symbol}, token).Err(); err != nil {
		log.Printf("[CACHE] unlock position %s: %v", symbol, err)
	}
}

// set marshals v and SETs key with the given TTL, logging and swallowing any
// connectivity failure rather than propagating it to the caller. kind feeds
// the bot_cache_ops_total{kind,outcome} counter.
func (c *Cache) set(ctx context.Context, kind, key string, v any, ttl time.Duration) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("[CACHE] marshal %s: %v", key, err)
		telemetry.RecordCacheOp(kind, "error")
		return
	}
	if err := c.rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
		log.Printf("[CACHE] set %s: %v", key, err)
		telemetry.RecordCacheOp(kind, "error")
		return
	}
	telemetry.RecordCacheOp(kind, "ok")
}

// get reads key into v, returning false on absence or any store error. kind
// feeds the bot_cache_ops_total{kind,outcome} counter.
func (c *Cache) get(ctx context.Context, kind, key string, v any) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[CACHE] get %s: %v", key, err)
			telemetry.RecordCacheOp(kind, "error")
		} else {
			telemetry.RecordCacheOp(kind, "miss")
		}
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		log.Printf("[CACHE] unmarshal %s: %v", key, err)
		telemetry.RecordCacheOp(kind, "error")
		return false
	}
	telemetry.RecordCacheOp(kind, "hit")
	return true
}
