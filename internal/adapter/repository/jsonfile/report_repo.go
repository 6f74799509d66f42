package jsonfile

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/simaogato/dca-tracker/internal/domain"
)

// reportRepository implements domain.ReportRepository on a JSON file
type reportRepository struct {
	path string
	log  zerolog.Logger
}

// NewReportRepository creates a new file-backed report repository
func NewReportRepository(path string, log zerolog.Logger) domain.ReportRepository {
	return &reportRepository{
		path: path,
		log:  log.With().Str("component", "report_store").Str("path", path).Logger(),
	}
}

// Save overwrites the report file
func (r *reportRepository) Save(ctx context.Context, report *domain.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if report == nil {
		return fmt.Errorf("%w: nil report", domain.ErrPersistence)
	}
	if err := writeJSON(r.path, report, 0, r.log); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	r.log.Debug().Msg("Report saved")
	return nil
}

// Latest reads the report file
func (r *reportRepository) Latest(ctx context.Context) (*domain.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var report domain.Report
	err := readJSON(r.path, &report)
	if os.IsNotExist(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptState, err)
	}
	if report.Assets == nil {
		report.Assets = map[domain.Symbol]domain.AssetPerformance{}
	}
	return &report, nil
}
