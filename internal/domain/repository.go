package domain

import (
	"context"
)

// PortfolioRepository defines the interface for portfolio persistence operations
type PortfolioRepository interface {
	// Load retrieves the persisted portfolio.
	// It never returns a nil portfolio: when nothing is persisted yet it
	// returns a fresh one and a nil error; when the persisted state is
	// unreadable it returns a fresh one and an error wrapping ErrCorruptState.
	Load(ctx context.Context) (*Portfolio, error)

	// Save overwrites the persisted portfolio as a whole.
	// Fails with ErrVersionConflict if another writer saved in between,
	// otherwise increments p.Version on success.
	Save(ctx context.Context, p *Portfolio) error
}

// ReportRepository defines the interface for investment report persistence
type ReportRepository interface {
	// Save overwrites the latest report
	Save(ctx context.Context, r *Report) error

	// Latest retrieves the most recently saved report, or ErrNotFound
	Latest(ctx context.Context) (*Report, error)
}

// MarketDataProvider supplies the latest price and signal per asset
type MarketDataProvider interface {
	Snapshot(ctx context.Context) (MarketSnapshot, error)
}

// CorrelationProvider supplies the sentiment/price correlation report
type CorrelationProvider interface {
	Report(ctx context.Context) (*CorrelationReport, error)
}

// Locker serializes load-mutate-save cycles across processes.
// The returned release function must be called on every exit path.
type Locker interface {
	Lock(ctx context.Context) (release func() error, err error)
}
