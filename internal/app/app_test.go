package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/dca-tracker/internal/config"
	"github.com/simaogato/dca-tracker/internal/domain"
)

func TestNew_UnknownBackend(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Storage.Backend = "s3"

	_, err := New(context.Background(), cfg, zerolog.Nop())

	assert.Error(t, err)
}

// Two full cycles against the file backend, reading real input files
func TestFileBackend_TwoCycles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cfg := config.NewDefaultConfig()
	cfg.Storage.DataDir = dir
	cfg.BaseAllocation = map[string]float64{"BTC": 0.5, "ETH": 0.5}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "market_data.json"), []byte(`[
		{"symbol": "BTC", "price": 10000, "timestamp": "2024-06-01T08:00:00", "technical_signal": "BULLISH"},
		{"symbol": "ETH", "price": 2000, "timestamp": "2024-06-01T08:00:00", "technical_signal": "NEUTRAL"}
	]`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "correlation_report.json"), []byte(`{"details": {}}`), 0644))

	a, err := New(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	first, err := a.Tracker.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, first.Warnings)
	assert.True(t, first.Saved)

	second, err := a.Tracker.Run(ctx)
	require.NoError(t, err)
	assert.True(t, second.Saved)

	p, err := a.PortfolioRepo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.Version)
	assert.True(t, p.TotalInvested.Equal(decimal.NewFromInt(100)))
	assert.Len(t, p.History, 2)
	assert.True(t, p.Assets[domain.SymbolBTC].Quantity.Equal(decimal.RequireFromString("0.005238")))

	rep, err := a.ReportService.Latest(ctx)
	require.NoError(t, err)
	assert.True(t, rep.TotalInvested.Equal(decimal.NewFromInt(100)))

	assert.NoFileExists(t, filepath.Join(dir, ".lock"))
	assert.FileExists(t, filepath.Join(dir, "portfolio.json.v1"))
}
