package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"BTC-USD"}, cfg.TradingPairs)
	require.Equal(t, 0.015, cfg.AccountRiskPct)
	require.Equal(t, "paper", cfg.Broker)
	require.Equal(t, 8080, cfg.Port)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("TRADING_PAIRS", "BTC-USD, ETH-USD ,BNB-USD")
	t.Setenv("ACCOUNT_RISK_PCT", "0.02")
	t.Setenv("BROKER", "http")
	t.Setenv("EXCHANGE_BASE_URL", "https://api.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"BTC-USD", "ETH-USD", "BNB-USD"}, cfg.TradingPairs)
	require.Equal(t, 0.02, cfg.AccountRiskPct)
	require.Equal(t, "http", cfg.Broker)
}

func TestValidateRejectsUnknownBroker(t *testing.T) {
	cfg := Config{TradingPairs: []string{"BTC-USD"}, Broker: "ftx", AccountRiskPct: 0.01}
	require.Error(t, cfg.Validate())
}

func TestValidateRequiresBaseURLForHTTPBroker(t *testing.T) {
	cfg := Config{TradingPairs: []string{"BTC-USD"}, Broker: "http", AccountRiskPct: 0.01}
	require.Error(t, cfg.Validate())
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TRADING_PAIRS", "ACCOUNT_RISK_PCT", "MAX_SLIPPAGE_PCT", "TRAILING_TRIGGER_PCT",
		"DAILY_DRAWDOWN_LIMIT", "EMA_PERIOD", "EMA_DEVIATION_THRESHOLD", "VOLUME_ANOMALY_THRESHOLD",
		"EXCHANGE_API_KEY", "EXCHANGE_API_SECRET", "EXCHANGE_TESTNET", "EXCHANGE_BASE_URL",
		"REDIS_URL", "DATABASE_DSN", "BROKER", "PORT",
	} {
		os.Unsetenv(key)
	}
}
