// Package app wires configuration into repositories and use cases for the
// command-line tool and the gRPC server.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/simaogato/dca-tracker/internal/adapter/feed"
	"github.com/simaogato/dca-tracker/internal/adapter/repository/jsonfile"
	"github.com/simaogato/dca-tracker/internal/adapter/repository/postgres"
	"github.com/simaogato/dca-tracker/internal/config"
	"github.com/simaogato/dca-tracker/internal/domain"
	"github.com/simaogato/dca-tracker/internal/usecase/allocator"
	"github.com/simaogato/dca-tracker/internal/usecase/investment"
	"github.com/simaogato/dca-tracker/internal/usecase/report"
	"github.com/simaogato/dca-tracker/internal/usecase/tracker"
)

// App holds the wired components
type App struct {
	Config        *config.Config
	PortfolioRepo domain.PortfolioRepository
	ReportRepo    domain.ReportRepository
	Locker        domain.Locker
	Generator     *allocator.Generator
	ReportService *report.ReportService
	Tracker       *tracker.Tracker

	db  *postgres.DB
	log zerolog.Logger
}

// New builds the repositories for the configured backend and the use cases on top of them
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	base, err := cfg.Allocation()
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, log: log}

	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		db, err := postgres.NewDB(cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		a.db = db
		a.PortfolioRepo = postgres.NewPortfolioRepository(db)
		a.ReportRepo = postgres.NewReportRepository(db)
		a.Locker = postgres.NewAdvisoryLocker(db)
		log.Info().Msg("Using postgres storage")

	case config.BackendFile:
		staleAfter, err := cfg.LockStaleAfter()
		if err != nil {
			return nil, err
		}
		a.PortfolioRepo = jsonfile.NewPortfolioRepository(cfg.PortfolioPath(), cfg.Storage.Versions, log)
		a.ReportRepo = jsonfile.NewReportRepository(cfg.ReportPath(), log)
		a.Locker = jsonfile.NewLock(filepath.Join(cfg.Storage.DataDir, ".lock"), staleAfter, log)
		log.Info().Str("data_dir", cfg.Storage.DataDir).Msg("Using file storage")

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	a.Generator = allocator.NewGenerator(base, cfg.Investment(), cfg.ClampNegativeWeights)
	a.ReportService = report.NewReportService(a.ReportRepo, a.Generator, log)
	a.Tracker = tracker.NewTracker(
		a.PortfolioRepo,
		feed.NewMarketFile(cfg.MarketDataPath()),
		feed.NewCorrelationFile(cfg.CorrelationPath()),
		a.Locker,
		a.Generator,
		investment.NewInvestmentService(),
		a.ReportService,
		log,
	)
	return a, nil
}

// Close releases the database connection, if any
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
