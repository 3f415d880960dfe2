// Package config defines runtime configuration for the trading engine.
//
// Config is environment-variable driven, the same shape as the teacher's
// config.go/env.go (a typed Config struct populated by loadConfigFromEnv),
// but backed by github.com/spf13/viper instead of the hand-rolled getEnv*
// helpers — this repo's config surface spans five components and dozens of
// keys, the scale at which 0xtitan6-polymarket-mm and NimbleMarkets-dbn-go
// reach for viper instead of os.Getenv.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every runtime knob this system reads at boot.
type Config struct {
	// Trading universe
	TradingPairs []string `mapstructure:"trading_pairs"`

	// Risk Manager
	AccountRiskPct     float64 `mapstructure:"account_risk_pct"`
	MaxSlippagePct     float64 `mapstructure:"max_slippage_pct"`
	TrailingTriggerPct float64 `mapstructure:"trailing_trigger_pct"`
	DailyDrawdownLimit float64 `mapstructure:"daily_drawdown_limit"`

	// 3-D / VPA analyzers
	EMAPeriod              int     `mapstructure:"ema_period"`
	EMADeviationThreshold  float64 `mapstructure:"ema_deviation_threshold"`
	VolumeAnomalyThreshold float64 `mapstructure:"volume_anomaly_threshold"`

	// Exchange Gateway
	ExchangeAPIKey    string `mapstructure:"exchange_api_key"`
	ExchangeAPISecret string `mapstructure:"exchange_api_secret"`
	ExchangeTestnet   bool   `mapstructure:"exchange_testnet"`
	ExchangeBaseURL   string `mapstructure:"exchange_base_url"`

	// Backing stores
	RedisURL    string `mapstructure:"redis_url"`
	DatabaseDSN string `mapstructure:"database_dsn"`

	// Broker selection: "paper" or "http"
	Broker string `mapstructure:"broker"`

	// Ops (HTTP /healthz + /metrics server, teacher's main.go shape)
	Port int `mapstructure:"port"`
}

// Extended carries optional toggles that do not change baseline behavior
// when unset — the same append-only-toggle idea as the teacher's
// ExtendedToggles/Extended(), generalized to this domain.
type Extended struct {
	// SchedulerStrategyTick overrides the default 1s strategy_tick cadence.
	SchedulerStrategyTick time.Duration `mapstructure:"scheduler_strategy_tick"`
	// WorkerPoolSize overrides the default bounded worker-pool size.
	WorkerPoolSize int `mapstructure:"worker_pool_size"`
}

// Load reads process environment into a Config, applying baseline defaults
// for every key the environment omits. There is no YAML file: unlike
// 0xtitan6-polymarket-mm's config.Load(path), this repo's surface is pure
// env (following loadConfigFromEnv's original shape) with viper.AutomaticEnv
// standing in for the hand-rolled getEnv* helpers.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("trading_pairs", "BTC-USD")
	v.SetDefault("account_risk_pct", 0.015)
	v.SetDefault("max_slippage_pct", 0.002)
	v.SetDefault("trailing_trigger_pct", 0.02)
	v.SetDefault("daily_drawdown_limit", 0.05)
	v.SetDefault("ema_period", 20)
	v.SetDefault("ema_deviation_threshold", 0.005)
	v.SetDefault("volume_anomaly_threshold", 2.0)
	v.SetDefault("exchange_testnet", true)
	v.SetDefault("exchange_base_url", "http://127.0.0.1:8787")
	v.SetDefault("redis_url", "redis://127.0.0.1:6379/0")
	v.SetDefault("database_dsn", "")
	v.SetDefault("broker", "paper")
	v.SetDefault("port", 8080)

	bindAll(v, []string{
		"trading_pairs", "account_risk_pct", "max_slippage_pct", "trailing_trigger_pct",
		"daily_drawdown_limit", "ema_period", "ema_deviation_threshold", "volume_anomaly_threshold",
		"exchange_api_key", "exchange_api_secret", "exchange_testnet", "exchange_base_url",
		"redis_url", "database_dsn", "broker", "port",
	})

	var cfg Config
	cfg.TradingPairs = splitCSV(v.GetString("trading_pairs"))
	cfg.AccountRiskPct = v.GetFloat64("account_risk_pct")
	cfg.MaxSlippagePct = v.GetFloat64("max_slippage_pct")
	cfg.TrailingTriggerPct = v.GetFloat64("trailing_trigger_pct")
	cfg.DailyDrawdownLimit = v.GetFloat64("daily_drawdown_limit")
	cfg.EMAPeriod = v.GetInt("ema_period")
	cfg.EMADeviationThreshold = v.GetFloat64("ema_deviation_threshold")
	cfg.VolumeAnomalyThreshold = v.GetFloat64("volume_anomaly_threshold")
	cfg.ExchangeAPIKey = v.GetString("exchange_api_key")
	cfg.ExchangeAPISecret = v.GetString("exchange_api_secret")
	cfg.ExchangeTestnet = v.GetBool("exchange_testnet")
	cfg.ExchangeBaseURL = v.GetString("exchange_base_url")
	cfg.RedisURL = v.GetString("redis_url")
	cfg.DatabaseDSN = v.GetString("database_dsn")
	cfg.Broker = v.GetString("broker")
	cfg.Port = v.GetInt("port")

	if len(cfg.TradingPairs) == 0 {
		cfg.TradingPairs = []string{"BTC-USD"}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ExtendedToggles reads the optional Extended sub-config, defaults preserving
// baseline scheduler/worker-pool behavior when unset.
func ExtendedToggles() Extended {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetDefault("scheduler_strategy_tick", time.Second)
	v.SetDefault("worker_pool_size", 8)
	_ = v.BindEnv("scheduler_strategy_tick", "SCHEDULER_STRATEGY_TICK")
	_ = v.BindEnv("worker_pool_size", "WORKER_POOL_SIZE")
	return Extended{
		SchedulerStrategyTick: v.GetDuration("scheduler_strategy_tick"),
		WorkerPoolSize:        v.GetInt("worker_pool_size"),
	}
}

// Validate rejects a Config that would leave a required component unable to
// start, bailing out at boot rather than silently running with a
// broker/store nothing points at.
func (c *Config) Validate() error {
	if len(c.TradingPairs) == 0 {
		return fmt.Errorf("config: TRADING_PAIRS must name at least one symbol")
	}
	switch c.Broker {
	case "paper", "http":
	default:
		return fmt.Errorf("config: BROKER must be paper or http, got %q", c.Broker)
	}
	if c.Broker == "http" && c.ExchangeBaseURL == "" {
		return fmt.Errorf("config: EXCHANGE_BASE_URL required when BROKER=http")
	}
	if c.AccountRiskPct <= 0 || c.AccountRiskPct >= 1 {
		return fmt.Errorf("config: ACCOUNT_RISK_PCT must be in (0,1), got %v", c.AccountRiskPct)
	}
	return nil
}

func bindAll(v *viper.Viper, keys []string) {
	for _, k := range keys {
		_ = v.BindEnv(k, strings.ToUpper(k))
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
