package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/simaogato/dca-tracker/internal/domain"
	"github.com/simaogato/dca-tracker/internal/usecase/allocator"
	"github.com/simaogato/dca-tracker/internal/usecase/investment"
	"github.com/simaogato/dca-tracker/internal/usecase/report"
)

// CycleResult is the outcome of one contribution cycle
type CycleResult struct {
	Plan      *domain.AllocationPlan
	Portfolio *domain.Portfolio
	Report    *domain.Report
	Purchases []investment.Purchase

	// Saved is false when the portfolio could not be persisted
	Saved bool

	// Warnings collects the degraded steps of the cycle. Input, storage and
	// pricing problems wrap a domain sentinel error; a rejected plan carries
	// the validation error.
	Warnings []error
}

// Tracker runs the monthly contribution cycle
type Tracker struct {
	PortfolioRepo domain.PortfolioRepository
	Market        domain.MarketDataProvider
	Correlations  domain.CorrelationProvider
	Locker        domain.Locker // optional
	Generator     *allocator.Generator
	Investment    *investment.InvestmentService
	Reports       *report.ReportService

	log zerolog.Logger
}

// NewTracker creates a new Tracker instance
func NewTracker(
	portfolioRepo domain.PortfolioRepository,
	market domain.MarketDataProvider,
	correlations domain.CorrelationProvider,
	locker domain.Locker,
	generator *allocator.Generator,
	investmentService *investment.InvestmentService,
	reportService *report.ReportService,
	log zerolog.Logger,
) *Tracker {
	return &Tracker{
		PortfolioRepo: portfolioRepo,
		Market:        market,
		Correlations:  correlations,
		Locker:        locker,
		Generator:     generator,
		Investment:    investmentService,
		Reports:       reportService,
		log:           log.With().Str("component", "tracker").Logger(),
	}
}

// Run executes one contribution cycle.
// Logic:
//  1. Acquire the lock (if configured), released on every path
//  2. Read market data and correlations (missing → empty inputs)
//  3. Load the portfolio (corrupt → empty portfolio)
//  4. Generate the allocation plan and apply it
//  5. Save the portfolio, then generate and save the report
//
// Only failing to acquire the lock is returned as an error; every other
// failure degrades the cycle and is recorded in CycleResult.Warnings.
func (t *Tracker) Run(ctx context.Context) (result *CycleResult, err error) {
	release, err := t.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := release(); rerr != nil {
			t.log.Error().Err(rerr).Msg("Failed to release cycle lock")
		}
	}()

	result = &CycleResult{}
	t.log.Info().Msg("Starting contribution cycle")

	snapshot, correlations := t.inputs(ctx, result)
	p := t.load(ctx, result)

	// Allocate
	plan := t.Generator.Generate(snapshot, correlations)
	if plan.Fallback != "" {
		t.log.Warn().Str("fallback", plan.Fallback).Msg("Adjusted weights sum to zero, using base allocation")
		result.Warnings = append(result.Warnings, fmt.Errorf("allocation: %w", domain.ErrZeroWeightSum))
	}
	result.Plan = plan

	// Apply
	applied, err := t.Investment.ApplyAllocation(p, plan, snapshot)
	if err != nil {
		t.log.Error().Err(err).Msg("Failed to apply allocation, portfolio left unchanged")
		result.Warnings = append(result.Warnings, fmt.Errorf("apply allocation: %w", err))
	} else {
		result.Purchases = applied.Purchases
		for _, sym := range applied.Unpriced {
			t.log.Warn().Str("symbol", sym.String()).Msg("No price available, invested amount recorded with zero quantity")
			result.Warnings = append(result.Warnings, fmt.Errorf("%w: %s", domain.ErrZeroPrice, sym))
		}

		// Save
		if err := t.PortfolioRepo.Save(ctx, p); err != nil {
			t.log.Error().Err(err).Msg("Failed to save portfolio")
			result.Warnings = append(result.Warnings, fmt.Errorf("save portfolio: %w", err))
		} else {
			result.Saved = true
		}
	}
	result.Portfolio = p

	// Report
	rep, err := t.Reports.GenerateReport(ctx, p, snapshot, correlations)
	if err != nil {
		result.Warnings = append(result.Warnings, err)
	}
	result.Report = rep

	t.log.Info().
		Str("total_invested", p.TotalInvested.StringFixed(2)).
		Str("current_value", p.CurrentValue.StringFixed(2)).
		Bool("saved", result.Saved).
		Int("warnings", len(result.Warnings)).
		Msg("Contribution cycle finished")

	return result, nil
}

// Preview computes the plan the next cycle would apply, without mutating anything
func (t *Tracker) Preview(ctx context.Context) (*domain.AllocationPlan, []error) {
	result := &CycleResult{}
	snapshot, correlations := t.inputs(ctx, result)
	return t.Generator.Generate(snapshot, correlations), result.Warnings
}

// Report regenerates the investment report for the persisted portfolio
// without a contribution.
func (t *Tracker) Report(ctx context.Context) (*domain.Report, []error) {
	result := &CycleResult{}
	snapshot, correlations := t.inputs(ctx, result)
	p := t.load(ctx, result)

	rep, err := t.Reports.GenerateReport(ctx, p, snapshot, correlations)
	if err != nil {
		result.Warnings = append(result.Warnings, err)
	}
	return rep, result.Warnings
}

func (t *Tracker) lock(ctx context.Context) (func() error, error) {
	if t.Locker == nil {
		return func() error { return nil }, nil
	}
	release, err := t.Locker.Lock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire cycle lock: %w", err)
	}
	return release, nil
}

func (t *Tracker) inputs(ctx context.Context, result *CycleResult) (domain.MarketSnapshot, *domain.CorrelationReport) {
	snapshot, err := t.Market.Snapshot(ctx)
	if err != nil {
		t.log.Warn().Err(err).Msg("Market data unavailable, continuing with an empty snapshot")
		result.Warnings = append(result.Warnings, wrapUnavailable("market data", err))
		snapshot = domain.MarketSnapshot{}
	}
	if snapshot == nil {
		snapshot = domain.MarketSnapshot{}
	}

	correlations, err := t.Correlations.Report(ctx)
	if err != nil {
		t.log.Warn().Err(err).Msg("Correlation report unavailable, continuing without correlation bonus")
		result.Warnings = append(result.Warnings, wrapUnavailable("correlations", err))
		correlations = nil
	}
	return snapshot, correlations
}

func (t *Tracker) load(ctx context.Context, result *CycleResult) *domain.Portfolio {
	p, err := t.PortfolioRepo.Load(ctx)
	if err != nil {
		t.log.Warn().Err(err).Msg("Persisted portfolio unusable, starting from an empty portfolio")
		result.Warnings = append(result.Warnings, fmt.Errorf("load portfolio: %w", err))
	}
	if p == nil {
		p = domain.NewPortfolio(time.Now())
	}
	return p
}

func wrapUnavailable(what string, err error) error {
	if errors.Is(err, domain.ErrDataUnavailable) {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%s: %w: %v", what, domain.ErrDataUnavailable, err)
}
