package allocator

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/dca-tracker/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var fixedNow = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func halfHalf() domain.Allocation {
	return domain.Allocation{domain.SymbolBTC: d("0.5"), domain.SymbolETH: d("0.5")}
}

func TestGenerateAllocation_BullishBTCScenario(t *testing.T) {
	// Base {BTC:0.5, ETH:0.5}, 50€, BTC BULLISH @10000, ETH NEUTRAL @2000
	// Expected: normalized {BTC:0.5238, ETH:0.4762}, euros {BTC:26.19, ETH:23.81}
	snapshot := domain.MarketSnapshot{
		domain.SymbolBTC: {Symbol: domain.SymbolBTC, Price: d("10000"), Signal: domain.SignalBullish},
		domain.SymbolETH: {Symbol: domain.SymbolETH, Price: d("2000"), Signal: domain.SignalNeutral},
	}

	plan := GenerateAllocation(halfHalf(), snapshot, nil, d("50"), Options{ClampNegative: true, Now: fixedNow})

	require.NotNil(t, plan)
	assert.Empty(t, plan.Fallback)
	assert.True(t, plan.Adjustments[domain.SymbolBTC].Equal(d("0.05")))
	assert.True(t, plan.Adjustments[domain.SymbolETH].IsZero())

	assert.InDelta(t, 0.5238, plan.NormalizedAllocation[domain.SymbolBTC].InexactFloat64(), 0.0005)
	assert.InDelta(t, 0.4762, plan.NormalizedAllocation[domain.SymbolETH].InexactFloat64(), 0.0005)

	assert.True(t, plan.EuroAllocation[domain.SymbolBTC].Equal(d("26.19")), "BTC got %s", plan.EuroAllocation[domain.SymbolBTC])
	assert.True(t, plan.EuroAllocation[domain.SymbolETH].Equal(d("23.81")), "ETH got %s", plan.EuroAllocation[domain.SymbolETH])
	assert.True(t, plan.EuroTotal().Equal(d("50")))
	assert.Equal(t, fixedNow, plan.Date)
}

func TestGenerateAllocation_EmptyInputsReturnBase(t *testing.T) {
	bases := []domain.Allocation{
		domain.DefaultBaseAllocation(),
		halfHalf(),
		{domain.SymbolBTC: d("0.3333333333"), domain.SymbolETH: d("0.3333333333"), domain.SymbolSOL: d("0.3333333334")},
		{domain.SymbolBTC: d("1")},
	}

	for i, base := range bases {
		t.Run(fmt.Sprintf("base_%d", i), func(t *testing.T) {
			require.NoError(t, base.Validate())
			total := d("50")

			plan := GenerateAllocation(base, domain.MarketSnapshot{}, &domain.CorrelationReport{}, total, Options{Now: fixedNow})

			assert.True(t, plan.NormalizedAllocation.Equal(base), "normalized allocation should equal base exactly")
			assert.Empty(t, plan.Adjustments)
			assert.True(t, plan.EuroTotal().Sub(total).Abs().LessThanOrEqual(d("0.01")),
				"euro total %s should be within a cent of %s", plan.EuroTotal(), total)
		})
	}
}

func TestGenerateAllocation_NilInputsBehaveAsEmpty(t *testing.T) {
	base := domain.DefaultBaseAllocation()
	plan := GenerateAllocation(base, nil, nil, d("50"), Options{Now: fixedNow})

	assert.True(t, plan.NormalizedAllocation.Equal(base))
	assert.True(t, plan.EuroAllocation[domain.SymbolBTC].Equal(d("20")))
	assert.True(t, plan.EuroAllocation[domain.SymbolXRP].Equal(d("2.5")))
}

func TestGenerateAllocation_NormalizedSumsToOne(t *testing.T) {
	signals := []domain.TechnicalSignal{
		domain.SignalBullish,
		domain.SignalBullishCaution,
		domain.SignalNeutral,
		domain.SignalBearish,
		domain.SignalBearishOpportunity,
	}
	base := domain.DefaultBaseAllocation()
	symbols := base.Symbols()

	// Rotate every signal across every symbol
	for offset := range signals {
		t.Run(fmt.Sprintf("rotation_%d", offset), func(t *testing.T) {
			snapshot := domain.MarketSnapshot{}
			for i, sym := range symbols {
				snapshot[sym] = domain.Quote{Symbol: sym, Price: d("1"), Signal: signals[(i+offset)%len(signals)]}
			}

			for _, clamp := range []bool{true, false} {
				plan := GenerateAllocation(base, snapshot, nil, d("50"), Options{ClampNegative: clamp, Now: fixedNow})
				assert.True(t, domain.WithinTolerance(plan.NormalizedAllocation.Sum(), decimal.NewFromInt(1)),
					"sum %s (clamp=%v)", plan.NormalizedAllocation.Sum(), clamp)
			}
		})
	}
}

func TestGenerateAllocation_CorrelationBonus(t *testing.T) {
	tests := []struct {
		name      string
		corr      domain.Correlation
		wantDelta decimal.Decimal
	}{
		{"lag above threshold", domain.Correlation{Type: "lag_6h", Value: 0.62}, d("0.02")},
		{"lag at threshold", domain.Correlation{Type: "lag_6h", Value: 0.5}, decimal.Zero},
		{"lead above threshold", domain.Correlation{Type: "lead_3h", Value: 0.9}, decimal.Zero},
		{"direct above threshold", domain.Correlation{Type: "direct", Value: 0.9}, decimal.Zero},
		{"negative lag", domain.Correlation{Type: "lag_1h", Value: -0.8}, decimal.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := &domain.CorrelationReport{Details: map[domain.Symbol]domain.CorrelationEntry{
				domain.SymbolBTC: {BestCorrelation: tt.corr},
			}}

			plan := GenerateAllocation(halfHalf(), nil, report, d("50"), Options{Now: fixedNow})

			assert.True(t, plan.Adjustments[domain.SymbolBTC].Equal(tt.wantDelta), "got %s", plan.Adjustments[domain.SymbolBTC])
		})
	}
}

func TestGenerateAllocation_SignalAndCorrelationAreAdditive(t *testing.T) {
	snapshot := domain.MarketSnapshot{
		domain.SymbolBTC: {Symbol: domain.SymbolBTC, Signal: domain.SignalBullish},
	}
	report := &domain.CorrelationReport{Details: map[domain.Symbol]domain.CorrelationEntry{
		domain.SymbolBTC: {BestCorrelation: domain.Correlation{Type: "lag_12h", Value: 0.7}},
		// Not part of the universe: ignored
		"DOGE": {BestCorrelation: domain.Correlation{Type: "lag_12h", Value: 0.9}},
	}}

	plan := GenerateAllocation(halfHalf(), snapshot, report, d("100"), Options{Now: fixedNow})

	assert.True(t, plan.Adjustments[domain.SymbolBTC].Equal(d("0.07")))
	_, ok := plan.Adjustments["DOGE"]
	assert.False(t, ok)
	// 0.57 / 1.07
	assert.InDelta(t, 0.5327, plan.NormalizedAllocation[domain.SymbolBTC].InexactFloat64(), 0.0001)
}

func TestGenerateAllocation_SymbolsOutsideUniverseIgnored(t *testing.T) {
	snapshot := domain.MarketSnapshot{
		"DOGE": {Symbol: "DOGE", Price: d("0.1"), Signal: domain.SignalBullish},
	}

	plan := GenerateAllocation(halfHalf(), snapshot, nil, d("50"), Options{Now: fixedNow})

	assert.Empty(t, plan.Adjustments)
	assert.Len(t, plan.EuroAllocation, 2)
	assert.True(t, plan.NormalizedAllocation.Equal(halfHalf()))
}

func TestGenerateAllocation_NegativeWeights(t *testing.T) {
	base := domain.Allocation{domain.SymbolBTC: d("0.97"), domain.SymbolETH: d("0.03")}
	snapshot := domain.MarketSnapshot{
		domain.SymbolETH: {Symbol: domain.SymbolETH, Price: d("2000"), Signal: domain.SignalBearish},
	}

	t.Run("clamped", func(t *testing.T) {
		plan := GenerateAllocation(base, snapshot, nil, d("50"), Options{ClampNegative: true, Now: fixedNow})

		assert.True(t, plan.NormalizedAllocation[domain.SymbolETH].IsZero())
		assert.True(t, plan.NormalizedAllocation[domain.SymbolBTC].Equal(d("1")))
		assert.True(t, plan.EuroAllocation[domain.SymbolBTC].Equal(d("50")))
		assert.True(t, plan.EuroAllocation[domain.SymbolETH].IsZero())
	})

	t.Run("unclamped", func(t *testing.T) {
		plan := GenerateAllocation(base, snapshot, nil, d("50"), Options{ClampNegative: false, Now: fixedNow})

		// ETH: -0.02 / 0.95, BTC: 0.97 / 0.95
		assert.True(t, plan.NormalizedAllocation[domain.SymbolETH].IsNegative())
		assert.True(t, plan.NormalizedAllocation[domain.SymbolBTC].GreaterThan(d("1")))
		assert.True(t, plan.EuroAllocation[domain.SymbolETH].Equal(d("-1.05")), "got %s", plan.EuroAllocation[domain.SymbolETH])
		assert.True(t, domain.WithinTolerance(plan.NormalizedAllocation.Sum(), decimal.NewFromInt(1)))
	})
}

func TestGenerateAllocation_ZeroWeightSumFallsBackToBase(t *testing.T) {
	// Twenty assets at 5% each, all BEARISH: every weight lands exactly on zero
	base := domain.Allocation{}
	snapshot := domain.MarketSnapshot{}
	for i := 0; i < 20; i++ {
		sym := domain.Symbol(fmt.Sprintf("A%02d", i))
		base[sym] = d("0.05")
		snapshot[sym] = domain.Quote{Symbol: sym, Price: d("1"), Signal: domain.SignalBearish}
	}
	require.NoError(t, base.Validate())

	for _, clamp := range []bool{true, false} {
		plan := GenerateAllocation(base, snapshot, nil, d("50"), Options{ClampNegative: clamp, Now: fixedNow})

		assert.Equal(t, domain.FallbackZeroWeightSum, plan.Fallback)
		assert.True(t, plan.NormalizedAllocation.Equal(base))
		assert.True(t, plan.NormalizedAllocation.Sum().Equal(decimal.NewFromInt(1)))
		assert.True(t, plan.EuroTotal().Equal(d("50")))
	}
}

func TestGenerateAllocation_Idempotent(t *testing.T) {
	snapshot := domain.MarketSnapshot{
		domain.SymbolBTC: {Symbol: domain.SymbolBTC, Signal: domain.SignalBullishCaution},
		domain.SymbolSOL: {Symbol: domain.SymbolSOL, Signal: domain.SignalBearishOpportunity},
		domain.SymbolXRP: {Symbol: domain.SymbolXRP, Signal: domain.SignalBearish},
	}
	report := &domain.CorrelationReport{Details: map[domain.Symbol]domain.CorrelationEntry{
		domain.SymbolETH: {BestCorrelation: domain.Correlation{Type: "lag_24h", Value: 0.8}},
	}}
	base := domain.DefaultBaseAllocation()

	first := GenerateAllocation(base, snapshot, report, d("50"), Options{ClampNegative: true, Now: fixedNow})
	second := GenerateAllocation(base, snapshot, report, d("50"), Options{ClampNegative: true, Now: fixedNow})

	assert.Equal(t, first, second)
	assert.True(t, base.Equal(domain.DefaultBaseAllocation()), "base allocation must not be mutated")
}

func TestGenerator_UsesClock(t *testing.T) {
	g := NewGenerator(halfHalf(), d("50"), true)
	g.Clock = func() time.Time { return fixedNow }

	plan := g.Generate(nil, nil)

	assert.Equal(t, fixedNow, plan.Date)
	assert.True(t, plan.TotalInvestment.Equal(d("50")))
	assert.True(t, plan.EuroTotal().Equal(d("50")))
}

func TestSignalDelta(t *testing.T) {
	assert.True(t, SignalDelta(domain.SignalBullish).Equal(d("0.05")))
	assert.True(t, SignalDelta(domain.SignalBullishCaution).Equal(d("0.02")))
	assert.True(t, SignalDelta(domain.SignalNeutral).IsZero())
	assert.True(t, SignalDelta(domain.SignalBearish).Equal(d("-0.05")))
	assert.True(t, SignalDelta(domain.SignalBearishOpportunity).Equal(d("-0.02")))
	assert.True(t, SignalDelta("UNKNOWN").IsZero())
}
