package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// WeightTolerance is the accepted floating drift on a sum of weights
var WeightTolerance = decimal.New(1, -9)

// Allocation maps each asset to a weight (or, for euro allocations, an amount)
type Allocation map[Symbol]decimal.Decimal

// DefaultBaseAllocation returns the default target weights before any adjustment
func DefaultBaseAllocation() Allocation {
	return Allocation{
		SymbolBTC: decimal.RequireFromString("0.40"),
		SymbolETH: decimal.RequireFromString("0.30"),
		SymbolSOL: decimal.RequireFromString("0.10"),
		SymbolADA: decimal.RequireFromString("0.05"),
		SymbolBNB: decimal.RequireFromString("0.05"),
		SymbolDOT: decimal.RequireFromString("0.05"),
		SymbolXRP: decimal.RequireFromString("0.05"),
	}
}

// Validate ensures the allocation is a usable base allocation:
// non-empty, every weight in [0,1], weights summing to 1.
func (a Allocation) Validate() error {
	if len(a) == 0 {
		return errors.New("base allocation cannot be empty")
	}

	one := decimal.NewFromInt(1)
	for _, sym := range a.Symbols() {
		w := a[sym]
		if sym == "" {
			return errors.New("base allocation contains an empty symbol")
		}
		if w.IsNegative() || w.GreaterThan(one) {
			return fmt.Errorf("base weight for %s must be between 0 and 1, got %s", sym, w)
		}
	}

	if !WithinTolerance(a.Sum(), one) {
		return fmt.Errorf("base allocation must sum to 1, got %s", a.Sum())
	}
	return nil
}

// Sum adds up every value of the allocation
func (a Allocation) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, v := range a {
		total = total.Add(v)
	}
	return total
}

// Clone returns an independent copy
func (a Allocation) Clone() Allocation {
	if a == nil {
		return nil
	}
	out := make(Allocation, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Symbols returns the keys in a stable (sorted) order so that iteration is reproducible
func (a Allocation) Symbols() []Symbol {
	syms := make([]Symbol, 0, len(a))
	for k := range a {
		syms = append(syms, k)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i] < syms[j] })
	return syms
}

// Equal reports whether both allocations hold the same keys with numerically equal values
func (a Allocation) Equal(other Allocation) bool {
	if len(a) != len(other) {
		return false
	}
	for k, v := range a {
		o, ok := other[k]
		if !ok || !o.Equal(v) {
			return false
		}
	}
	return true
}

// WithinTolerance reports whether |got - want| <= WeightTolerance
func WithinTolerance(got, want decimal.Decimal) bool {
	return got.Sub(want).Abs().LessThanOrEqual(WeightTolerance)
}

// FallbackZeroWeightSum marks a plan whose adjusted weights summed to zero
const FallbackZeroWeightSum = "zero_weight_sum"

// AllocationPlan is a computed (never persisted on its own) allocation recommendation
type AllocationPlan struct {
	BaseAllocation       Allocation      `json:"base_allocation"`
	Adjustments          Allocation      `json:"adjustments"`
	NormalizedAllocation Allocation      `json:"normalized_allocation"`
	EuroAllocation       Allocation      `json:"euro_allocation"`
	TotalInvestment      decimal.Decimal `json:"total_investment"`
	Date                 time.Time       `json:"date"`
	Fallback             string          `json:"fallback,omitempty"`
}

// Validate checks the plan can be applied as a contribution event
func (p *AllocationPlan) Validate() error {
	if p == nil {
		return errors.New("allocation plan is required")
	}
	if p.TotalInvestment.IsNegative() {
		return errors.New("total investment cannot be negative")
	}
	if len(p.EuroAllocation) == 0 {
		return errors.New("allocation plan has no euro allocation")
	}
	return nil
}

// EuroTotal is the amount actually distributed across assets (may drift from
// TotalInvestment by per-symbol rounding).
func (p *AllocationPlan) EuroTotal() decimal.Decimal {
	return p.EuroAllocation.Sum()
}
