package allocator

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/dca-tracker/internal/domain"
)

// signalDeltas maps each technical signal to its weight adjustment
var signalDeltas = map[domain.TechnicalSignal]decimal.Decimal{
	domain.SignalBullish:            decimal.RequireFromString("0.05"),
	domain.SignalBullishCaution:     decimal.RequireFromString("0.02"),
	domain.SignalNeutral:            decimal.Zero,
	domain.SignalBearish:            decimal.RequireFromString("-0.05"),
	domain.SignalBearishOpportunity: decimal.RequireFromString("-0.02"),
}

var (
	// correlationBonus is added when sentiment leads price strongly enough
	correlationBonus = decimal.RequireFromString("0.02")

	// correlationThreshold is the strict lower bound on the lagged correlation value
	correlationThreshold = 0.5
)

// currencyPlaces is the rounding precision of euro amounts
const currencyPlaces = 2

// Options tunes GenerateAllocation
type Options struct {
	// ClampNegative floors adjusted weights at zero before normalizing.
	// When false, a weight pushed below zero by its deltas is kept negative.
	ClampNegative bool

	// Now stamps the plan. Zero means time.Now().
	Now time.Time
}

// SignalDelta returns the adjustment for a technical signal (0 for unknown signals)
func SignalDelta(signal domain.TechnicalSignal) decimal.Decimal {
	if delta, ok := signalDeltas[signal]; ok {
		return delta
	}
	return decimal.Zero
}

// GenerateAllocation computes the target allocation for one contribution.
// Logic:
//  1. Start from a copy of the base allocation
//  2. Add the signal delta of every base symbol present in the snapshot
//  3. Add +0.02 for every base symbol whose best correlation is lagged
//     (sentiment precedes price) with a value above 0.5
//  4. Apply the deltas (clamped at zero when opts.ClampNegative)
//  5. Normalize by the sum; a sum of exactly zero falls back to the base allocation
//  6. Convert weights to euros, rounded to cents (residual drift is not redistributed)
//
// The function is pure: identical inputs, including opts.Now, give identical plans.
// A nil snapshot or correlation report means "no data".
func GenerateAllocation(
	base domain.Allocation,
	snapshot domain.MarketSnapshot,
	correlations *domain.CorrelationReport,
	totalInvestment decimal.Decimal,
	opts Options,
) *domain.AllocationPlan {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	symbols := base.Symbols()

	// Steps 2 and 3: collect deltas
	adjustments := make(domain.Allocation)
	for _, sym := range symbols {
		if signal, ok := snapshot.Signal(sym); ok {
			adjustments[sym] = SignalDelta(signal)
		}
	}
	for _, sym := range symbols {
		entry, ok := correlations.Entry(sym)
		if !ok {
			continue
		}
		best := entry.BestCorrelation
		if best.SentimentLeads() && best.Value > correlationThreshold {
			adjustments[sym] = adjustments[sym].Add(correlationBonus)
		}
	}

	// Step 4: apply
	adjusted := base.Clone()
	changed := false
	for sym, delta := range adjustments {
		if delta.IsZero() {
			continue
		}
		changed = true
		w := adjusted[sym].Add(delta)
		if opts.ClampNegative && w.IsNegative() {
			w = decimal.Zero
		}
		adjusted[sym] = w
	}

	plan := &domain.AllocationPlan{
		BaseAllocation:  base.Clone(),
		Adjustments:     adjustments,
		TotalInvestment: totalInvestment,
		Date:            now,
	}

	// Step 5: normalize
	switch {
	case !changed:
		plan.NormalizedAllocation = base.Clone()
	default:
		normalized, err := normalize(adjusted, symbols)
		if err != nil {
			plan.NormalizedAllocation = base.Clone()
			plan.Fallback = domain.FallbackZeroWeightSum
		} else {
			plan.NormalizedAllocation = normalized
		}
	}

	// Step 6: euros
	plan.EuroAllocation = EuroAmounts(plan.NormalizedAllocation, totalInvestment)

	return plan
}

// normalize divides every weight by the sum of weights
func normalize(weights domain.Allocation, symbols []domain.Symbol) (domain.Allocation, error) {
	total := weights.Sum()
	if total.IsZero() {
		return nil, domain.ErrZeroWeightSum
	}

	out := make(domain.Allocation, len(weights))
	for _, sym := range symbols {
		out[sym] = weights[sym].Div(total)
	}
	return out, nil
}

// EuroAmounts converts weights to currency amounts rounded to cents
func EuroAmounts(weights domain.Allocation, total decimal.Decimal) domain.Allocation {
	out := make(domain.Allocation, len(weights))
	for sym, w := range weights {
		out[sym] = w.Mul(total).Round(currencyPlaces)
	}
	return out
}

// Generator binds GenerateAllocation to a configured base allocation and contribution
type Generator struct {
	Base            domain.Allocation
	TotalInvestment decimal.Decimal
	ClampNegative   bool

	// Clock defaults to time.Now
	Clock func() time.Time
}

// NewGenerator creates a new Generator instance
func NewGenerator(base domain.Allocation, totalInvestment decimal.Decimal, clampNegative bool) *Generator {
	return &Generator{
		Base:            base.Clone(),
		TotalInvestment: totalInvestment,
		ClampNegative:   clampNegative,
		Clock:           time.Now,
	}
}

// Generate computes the plan for the configured contribution
func (g *Generator) Generate(snapshot domain.MarketSnapshot, correlations *domain.CorrelationReport) *domain.AllocationPlan {
	clock := g.Clock
	if clock == nil {
		clock = time.Now
	}
	return GenerateAllocation(g.Base, snapshot, correlations, g.TotalInvestment, Options{
		ClampNegative: g.ClampNegative,
		Now:           clock(),
	})
}
