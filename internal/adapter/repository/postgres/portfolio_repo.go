package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/simaogato/dca-tracker/internal/domain"
)

// portfolioRowID is the key of the single portfolio row
const portfolioRowID = 1

// portfolioRepository implements domain.PortfolioRepository
type portfolioRepository struct {
	db    *DB
	clock func() time.Time
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *DB) domain.PortfolioRepository {
	return &portfolioRepository{db: db, clock: time.Now}
}

// Load retrieves the portfolio document
func (r *portfolioRepository) Load(ctx context.Context) (*domain.Portfolio, error) {
	query := `
		SELECT version, document
		FROM portfolio_state
		WHERE id = $1
	`

	var version int64
	var document []byte
	err := r.db.QueryRowContext(ctx, query, portfolioRowID).Scan(&version, &document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewPortfolio(r.clock()), nil
		}
		return domain.NewPortfolio(r.clock()), fmt.Errorf("%w: failed to load portfolio: %v", domain.ErrCorruptState, err)
	}

	// A bad document is replaced by a fresh portfolio that keeps the row
	// version, so the next save overwrites it.
	replacement := domain.NewPortfolio(r.clock())
	replacement.Version = version

	var p domain.Portfolio
	if err := json.Unmarshal(document, &p); err != nil {
		return replacement, fmt.Errorf("%w: failed to parse portfolio document: %v", domain.ErrCorruptState, err)
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return replacement, fmt.Errorf("%w: %v", domain.ErrCorruptState, err)
	}

	// The column is authoritative for concurrency checks
	p.Version = version
	return &p, nil
}

// Save writes the portfolio document if the row still holds the loaded version
func (r *portfolioRepository) Save(ctx context.Context, p *domain.Portfolio) error {
	if p == nil {
		return fmt.Errorf("%w: nil portfolio", domain.ErrPersistence)
	}

	next := p.Version + 1
	doc := *p
	doc.Version = next
	document, err := json.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal portfolio: %v", domain.ErrPersistence, err)
	}

	var query string
	if p.Version == 0 {
		query = `
			INSERT INTO portfolio_state (id, version, document, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (id) DO NOTHING
		`
	} else {
		query = `
			UPDATE portfolio_state
			SET version = $2, document = $3, updated_at = now()
			WHERE id = $1 AND version = $4
		`
	}

	args := []interface{}{portfolioRowID, next, document}
	if p.Version != 0 {
		args = append(args, p.Version)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: failed to save portfolio: %v", domain.ErrPersistence, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get rows affected: %v", domain.ErrPersistence, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: portfolio version %d is no longer current", domain.ErrVersionConflict, p.Version)
	}

	p.Version = next
	return nil
}
