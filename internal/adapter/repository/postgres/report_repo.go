package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/dca-tracker/internal/domain"
)

// reportRepository implements domain.ReportRepository.
// Every saved report is kept; Latest returns the newest one.
type reportRepository struct {
	db *DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *DB) domain.ReportRepository {
	return &reportRepository{db: db}
}

// Save inserts a report row
func (r *reportRepository) Save(ctx context.Context, report *domain.Report) error {
	if report == nil {
		return fmt.Errorf("%w: nil report", domain.ErrPersistence)
	}

	document, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal report: %v", domain.ErrPersistence, err)
	}

	query := `
		INSERT INTO investment_reports (id, report_date, document)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, uuid.New(), report.Date, document); err != nil {
		return fmt.Errorf("%w: failed to insert report: %v", domain.ErrPersistence, err)
	}
	return nil
}

// Latest retrieves the most recently inserted report
func (r *reportRepository) Latest(ctx context.Context) (*domain.Report, error) {
	query := `
		SELECT document
		FROM investment_reports
		ORDER BY created_at DESC, report_date DESC
		LIMIT 1
	`

	var document []byte
	if err := r.db.QueryRowContext(ctx, query).Scan(&document); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest report: %w", err)
	}

	var report domain.Report
	if err := json.Unmarshal(document, &report); err != nil {
		return nil, fmt.Errorf("%w: failed to parse report document: %v", domain.ErrCorruptState, err)
	}
	if report.Assets == nil {
		report.Assets = map[domain.Symbol]domain.AssetPerformance{}
	}
	return &report, nil
}
