package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/dca-tracker/internal/domain"
	"github.com/simaogato/dca-tracker/internal/usecase/allocator"
)

// MockReportRepository is a mock implementation of ReportRepository for testing
type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) Save(ctx context.Context, r *domain.Report) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReportRepository) Latest(ctx context.Context) (*domain.Report, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Report), args.Error(1)
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newService(repo domain.ReportRepository) *ReportService {
	generator := allocator.NewGenerator(domain.DefaultBaseAllocation(), d("50"), true)
	generator.Clock = func() time.Time { return now }

	service := NewReportService(repo, generator, zerolog.Nop())
	service.Clock = func() time.Time { return now }
	return service
}

func TestGenerateReport_SingleAssetROI(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockReportRepository)
	service := newService(mockRepo)

	// Setup: 100€ invested, 1.5 units now priced at 100€ -> value 150€
	portfolio := domain.NewPortfolio(now)
	portfolio.TotalInvested = d("100")
	portfolio.CurrentValue = d("1") // stale, must be ignored
	portfolio.Assets[domain.SymbolBTC] = &domain.Holding{TotalInvested: d("100"), Quantity: d("1.5"), CurrentValue: d("1")}
	snapshot := domain.MarketSnapshot{domain.SymbolBTC: {Symbol: domain.SymbolBTC, Price: d("100")}}

	mockRepo.On("Save", ctx, mock.AnythingOfType("*domain.Report")).Return(nil)

	report, err := service.GenerateReport(ctx, portfolio, snapshot, nil)

	require.NoError(t, err)
	assert.True(t, report.TotalROIPercent.Equal(d("50")), "got %s", report.TotalROIPercent)
	assert.True(t, report.CurrentValue.Equal(d("150")))
	assert.True(t, report.TotalInvested.Equal(d("100")))

	btc := report.Assets[domain.SymbolBTC]
	assert.True(t, btc.ROIPercent.Equal(d("50")))
	assert.True(t, btc.CurrentPrice.Equal(d("100")))
	assert.True(t, btc.Quantity.Equal(d("1.5")))

	assert.True(t, report.MonthlyInvestment.Equal(d("50")))
	require.NotNil(t, report.NextAllocation)
	assert.True(t, report.NextAllocation.EuroTotal().Equal(d("50")))
	assert.Equal(t, now, report.Date)

	// Report generation must not touch the portfolio
	assert.True(t, portfolio.CurrentValue.Equal(d("1")))
	assert.True(t, portfolio.Assets[domain.SymbolBTC].CurrentValue.Equal(d("1")))

	mockRepo.AssertExpectations(t)
}

func TestGenerateReport_ZeroInvestedGuard(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockReportRepository)
	service := newService(mockRepo)
	mockRepo.On("Save", ctx, mock.Anything).Return(nil)

	report, err := service.GenerateReport(ctx, domain.NewPortfolio(now), nil, nil)

	require.NoError(t, err)
	assert.True(t, report.TotalROIPercent.IsZero())
	assert.Empty(t, report.Assets)
	assert.NotNil(t, report.NextAllocation)
}

func TestGenerateReport_SkipsHoldingsWithoutInvestment(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockReportRepository)
	service := newService(mockRepo)
	mockRepo.On("Save", ctx, mock.Anything).Return(nil)

	portfolio := domain.NewPortfolio(now)
	portfolio.TotalInvested = d("50")
	portfolio.Assets[domain.SymbolETH] = &domain.Holding{TotalInvested: d("50"), Quantity: d("0.02")}
	portfolio.Assets[domain.SymbolADA] = &domain.Holding{TotalInvested: decimal.Zero, Quantity: decimal.Zero}
	snapshot := domain.MarketSnapshot{domain.SymbolETH: {Symbol: domain.SymbolETH, Price: d("2000")}}

	report, err := service.GenerateReport(ctx, portfolio, snapshot, nil)

	require.NoError(t, err)
	assert.Len(t, report.Assets, 1)
	assert.True(t, report.Assets[domain.SymbolETH].ROIPercent.Equal(d("-20")))
	assert.True(t, report.TotalROIPercent.Equal(d("-20")))
}

func TestGenerateReport_SaveFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockReportRepository)
	service := newService(mockRepo)

	mockRepo.On("Save", ctx, mock.Anything).Return(domain.ErrPersistence)

	report, err := service.GenerateReport(ctx, domain.NewPortfolio(now), nil, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPersistence))
	require.NotNil(t, report, "the computed report is still returned")
	assert.NotNil(t, report.NextAllocation)
}

func TestGenerateReport_NextAllocationUsesSignals(t *testing.T) {
	ctx := context.Background()
	service := newService(nil)

	snapshot := domain.MarketSnapshot{domain.SymbolBTC: {Symbol: domain.SymbolBTC, Price: d("1"), Signal: domain.SignalBearish}}

	report, err := service.GenerateReport(ctx, nil, snapshot, nil)

	require.NoError(t, err)
	assert.True(t, report.NextAllocation.Adjustments[domain.SymbolBTC].Equal(d("-0.05")))
}

func TestLatest(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockReportRepository)
	service := newService(mockRepo)

	saved := &domain.Report{Date: now}
	mockRepo.On("Latest", ctx).Return(saved, nil).Once()
	mockRepo.On("Latest", ctx).Return(nil, domain.ErrNotFound).Once()

	got, err := service.Latest(ctx)
	require.NoError(t, err)
	assert.Same(t, saved, got)

	_, err = service.Latest(ctx)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = newService(nil).Latest(ctx)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
