package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/dca-tracker/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 50.0, cfg.MonthlyInvestment)
	assert.True(t, cfg.Investment().Equal(decimal.NewFromInt(50)))
	assert.True(t, cfg.ClampNegativeWeights)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)

	allocation, err := cfg.Allocation()
	require.NoError(t, err)
	assert.True(t, allocation.Equal(domain.DefaultBaseAllocation()))

	assert.Equal(t, filepath.Join("data", "portfolio.json"), cfg.PortfolioPath())
	assert.Equal(t, filepath.Join("data", "investment_report.json"), cfg.ReportPath())
	assert.Equal(t, filepath.Join("data", "market_data.json"), cfg.MarketDataPath())
	assert.Equal(t, filepath.Join("data", "correlation_report.json"), cfg.CorrelationPath())

	stale, err := cfg.LockStaleAfter()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, stale)
}

func TestLoad_TOMLFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tracker.toml", `
monthly_investment = 120.5
clamp_negative_weights = false
schedule = "@monthly"

[base_allocation]
BTC = 0.6
ETH = 0.4

[storage]
data_dir = "/var/lib/dca"
versions = 5

[logging]
level = "debug"
`)

	cfg, err := Load(path, filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, 120.5, cfg.MonthlyInvestment)
	assert.False(t, cfg.ClampNegativeWeights)
	assert.Equal(t, "@monthly", cfg.Schedule)
	assert.Equal(t, 5, cfg.Storage.Versions)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/var/lib/dca/portfolio.json", cfg.PortfolioPath())

	allocation, err := cfg.Allocation()
	require.NoError(t, err)
	assert.Len(t, allocation, 2, "a configured table replaces the default one")
	assert.True(t, allocation[domain.SymbolBTC].Equal(decimal.RequireFromString("0.6")))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DCA_MONTHLY_INVESTMENT", "75")
	t.Setenv("DCA_BASE_ALLOCATION", "btc=0.7, eth=0.3")
	t.Setenv("DCA_DATA_DIR", "/tmp/dca")
	t.Setenv("DCA_CLAMP_NEGATIVE_WEIGHTS", "false")
	t.Setenv("DCA_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 75.0, cfg.MonthlyInvestment)
	assert.False(t, cfg.ClampNegativeWeights)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "/tmp/dca/portfolio.json", cfg.PortfolioPath())

	allocation, err := cfg.Allocation()
	require.NoError(t, err)
	assert.True(t, allocation[domain.SymbolBTC].Equal(decimal.RequireFromString("0.7")))
}

func TestLoad_PostgresFromParts(t *testing.T) {
	t.Setenv("DCA_STORAGE_BACKEND", "postgres")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "tracker")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
	assert.Contains(t, cfg.Storage.DatabaseURL, "host=db")
	assert.Contains(t, cfg.Storage.DatabaseURL, "dbname=tracker")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"non-positive investment", func(c *Config) { c.MonthlyInvestment = 0 }, "monthly_investment must be positive"},
		{"allocation not summing to one", func(c *Config) { c.BaseAllocation = map[string]float64{"BTC": 0.5} }, "must sum to 1"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "s3" }, "unknown storage backend"},
		{"postgres without url", func(c *Config) { c.Storage.Backend = BackendPostgres }, "requires database_url"},
		{"bad schedule", func(c *Config) { c.Schedule = "every month" }, "invalid schedule"},
		{"bad lock duration", func(c *Config) { c.Storage.LockStaleAfter = "soon" }, "invalid lock_stale_after"},
		{"negative versions", func(c *Config) { c.Storage.Versions = -1 }, "versions cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	assert.NoError(t, NewDefaultConfig().Validate())
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("DCA_MONTHLY_INVESTMENT", "fifty")

	_, err := Load()
	assert.Error(t, err)
}
