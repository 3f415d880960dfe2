// FILE: main.go
// Package main – Program entrypoint and HTTP/metrics server.
//
// Boot sequence (same shape as the teacher's, components swapped for the
// VPA/3-D spot engine):
//   1) cfg, err := config.Load()        – viper-backed Config with env defaults
//   2) wire Redis cache, MySQL store, exchange gateway (paper|http)
//   3) wire Risk Manager, Strategy Coordinator, Execution & Monitor
//   4) start the Scheduler's four cadences on a bounded worker pool
//   5) start HTTP /healthz + /metrics server on cfg.Port
//   6) signal.NotifyContext + graceful shutdown
//
// Example:
//   BROKER=paper TRADING_PAIRS=BTC-USD,ETH-USD go run .
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chidi150c/spotengine/internal/cache"
	"github.com/chidi150c/spotengine/internal/config"
	"github.com/chidi150c/spotengine/internal/exchange"
	"github.com/chidi150c/spotengine/internal/execution"
	"github.com/chidi150c/spotengine/internal/risk"
	"github.com/chidi150c/spotengine/internal/scheduler"
	"github.com/chidi150c/spotengine/internal/store"
	"github.com/chidi150c/spotengine/internal/strategy"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	cadenceStrategyTick        = "strategy_tick"
	cadenceMonitorPositions    = "monitor_positions"
	cadenceCheckCircuitBreaker = "check_circuit_breaker"
	cadenceUpdateRiskState     = "update_risk_state"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[BOOT] load config: %v", err)
	}
	log.Printf("[BOOT] starting spotengine: broker=%s pairs=%v port=%d", cfg.Broker, cfg.TradingPairs, cfg.Port)

	rdb, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("[BOOT] redis client: %v", err)
	}
	marketCache := cache.New(rdb)

	db, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("[BOOT] open store: %v", err)
	}

	gateway := newGateway(cfg)

	riskCfg := risk.DefaultConfig()
	riskCfg.AccountRiskPct = decimal.NewFromFloat(cfg.AccountRiskPct)
	riskCfg.MaxSlippagePct = decimal.NewFromFloat(cfg.MaxSlippagePct)
	riskCfg.TrailingTriggerPct = decimal.NewFromFloat(cfg.TrailingTriggerPct)
	riskCfg.DailyDrawdownLimit = decimal.NewFromFloat(cfg.DailyDrawdownLimit)

	coordinator := &strategy.Coordinator{
		Cache:   marketCache,
		Gateway: gateway,
		RiskCfg: riskCfg,
		Events:  db,
		Balance: func(ctx context.Context) (decimal.Decimal, error) {
			return gateway.GetBalance(ctx, quoteAsset(cfg.TradingPairs[0]))
		},
	}

	executor := &execution.Executor{
		Gateway: gateway,
		Store:   db,
		Cache:   marketCache,
		RiskCfg: riskCfg,
		Balance: func(ctx context.Context) (decimal.Decimal, error) {
			return gateway.GetBalance(ctx, quoteAsset(cfg.TradingPairs[0]))
		},
	}

	circuitBreaker := risk.NewCircuitBreaker(riskCfg, db, marketCache, gateway.CancelAllOrders, cfg.TradingPairs)

	engine := &Engine{
		Symbols:          cfg.TradingPairs,
		Cache:            marketCache,
		Store:            db,
		Gateway:          gateway,
		Coordinator:      coordinator,
		Executor:         executor,
		CircuitBreaker:   circuitBreaker,
		BrokerName:       cfg.Broker,
		lastSystemStatus: "", // unknown at boot; first tick seeds it
	}

	ext := config.ExtendedToggles()
	pool := scheduler.NewWorkerPool(ext.WorkerPoolSize, 256)
	sched := scheduler.New(pool)
	strategyTick := ext.SchedulerStrategyTick
	if strategyTick <= 0 {
		strategyTick = time.Second
	}
	sched.AddCadence(cadenceStrategyTick, strategyTick, engine.runStrategyTick)
	sched.AddCadence(cadenceMonitorPositions, 5*time.Second, engine.runMonitorPositions)
	sched.AddCadence(cadenceCheckCircuitBreaker, 60*time.Second, engine.runCheckCircuitBreaker)
	sched.AddCadence(cadenceUpdateRiskState, 60*time.Second, engine.runUpdateRiskState)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched.Start(ctx)
	log.Printf("[BOOT] scheduler started: %s=%s %s=5s %s=60s %s=60s",
		cadenceStrategyTick, strategyTick, cadenceMonitorPositions, cadenceCheckCircuitBreaker, cadenceUpdateRiskState)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: mux}

	go func() {
		log.Printf("[BOOT] http server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[BOOT] http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[BOOT] shutdown signal received")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[BOOT] http server shutdown: %v", err)
	}
	log.Printf("[BOOT] shutdown complete")
}

func newRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("main: parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// newGateway selects the Exchange Gateway adapter per cfg.Broker. The
// per-symbol filters used here are conservative generic defaults; a
// production deployment would source these from the exchange's symbol-info
// endpoint at boot (see DESIGN.md).
func newGateway(cfg *config.Config) exchange.Gateway {
	filters := make(map[string]exchange.Filters, len(cfg.TradingPairs))
	startingBalances := map[string]decimal.Decimal{}
	for _, symbol := range cfg.TradingPairs {
		filters[symbol] = exchange.Filters{
			Symbol:      symbol,
			MinQty:      decimal.NewFromFloat(0.0001),
			StepSize:    decimal.NewFromFloat(0.0001),
			TickSize:    decimal.NewFromFloat(0.01),
			MinNotional: decimal.NewFromInt(10),
		}
		startingBalances[quoteAsset(symbol)] = decimal.NewFromInt(10000)
	}

	switch cfg.Broker {
	case "http":
		return exchange.NewHTTPAdapter(cfg.ExchangeBaseURL, filters)
	default:
		log.Printf("[BOOT] broker=paper: trading against the in-memory simulator")
		return exchange.NewPaperAdapter(startingBalances, filters)
	}
}
