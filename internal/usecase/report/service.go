package report

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/simaogato/dca-tracker/internal/domain"
	"github.com/simaogato/dca-tracker/internal/usecase/allocator"
)

// ReportService builds and persists investment reports
type ReportService struct {
	ReportRepo domain.ReportRepository
	Generator  *allocator.Generator
	Clock      func() time.Time

	log zerolog.Logger
}

// NewReportService creates a new ReportService instance
func NewReportService(reportRepo domain.ReportRepository, generator *allocator.Generator, log zerolog.Logger) *ReportService {
	return &ReportService{
		ReportRepo: reportRepo,
		Generator:  generator,
		Clock:      time.Now,
		log:        log.With().Str("component", "report").Logger(),
	}
}

// GenerateReport computes ROI per asset and for the whole portfolio against
// the latest snapshot, embeds the next recommended allocation and persists
// the result.
// Logic:
//   - Asset value: quantity × snapshot price (0 if unknown); the persisted
//     current_value is ignored
//   - Asset ROI: only for holdings with something invested
//   - Total ROI: over portfolio totals, 0 when nothing was invested
//
// The portfolio is not modified. The report is always returned; a
// persistence failure is logged and returned as a non-fatal error.
func (s *ReportService) GenerateReport(
	ctx context.Context,
	p *domain.Portfolio,
	snapshot domain.MarketSnapshot,
	correlations *domain.CorrelationReport,
) (*domain.Report, error) {
	report := Build(p, snapshot, s.Generator.Generate(snapshot, correlations), s.Generator.TotalInvestment, s.now())

	if s.ReportRepo == nil {
		return report, nil
	}
	if err := s.ReportRepo.Save(ctx, report); err != nil {
		s.log.Error().Err(err).Msg("Failed to save investment report, keeping in-memory report")
		return report, fmt.Errorf("save report: %w", err)
	}

	s.log.Info().
		Str("total_invested", report.TotalInvested.StringFixed(2)).
		Str("current_value", report.CurrentValue.StringFixed(2)).
		Str("total_roi_percent", report.TotalROIPercent.StringFixed(2)).
		Msg("Investment report saved")

	return report, nil
}

// Latest returns the last persisted report
func (s *ReportService) Latest(ctx context.Context) (*domain.Report, error) {
	if s.ReportRepo == nil {
		return nil, domain.ErrNotFound
	}
	return s.ReportRepo.Latest(ctx)
}

// Build assembles a report without persisting it. A nil portfolio reports as empty.
func Build(
	p *domain.Portfolio,
	snapshot domain.MarketSnapshot,
	next *domain.AllocationPlan,
	monthlyInvestment decimal.Decimal,
	now time.Time,
) *domain.Report {
	report := &domain.Report{
		Date:              now,
		TotalInvested:     decimal.Zero,
		CurrentValue:      decimal.Zero,
		TotalROIPercent:   decimal.Zero,
		Assets:            make(map[domain.Symbol]domain.AssetPerformance),
		MonthlyInvestment: monthlyInvestment,
		NextAllocation:    next,
	}
	if p == nil {
		return report
	}

	currentValue := decimal.Zero
	for sym, holding := range p.Assets {
		if holding == nil {
			continue
		}
		price := snapshot.Price(sym)
		value := holding.Quantity.Mul(price)
		currentValue = currentValue.Add(value)

		if !holding.TotalInvested.IsPositive() {
			continue
		}
		roi, _ := domain.ROIPercent(holding.TotalInvested, value)
		report.Assets[sym] = domain.AssetPerformance{
			TotalInvested: holding.TotalInvested,
			CurrentValue:  value,
			Quantity:      holding.Quantity,
			CurrentPrice:  price,
			ROIPercent:    roi,
		}
	}

	report.TotalInvested = p.TotalInvested
	report.CurrentValue = currentValue

	// ErrZeroInvestmentBase leaves the ROI at zero
	report.TotalROIPercent, _ = domain.ROIPercent(p.TotalInvested, currentValue)

	return report
}

func (s *ReportService) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}
