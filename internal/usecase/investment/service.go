package investment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/dca-tracker/internal/domain"
)

// Purchase describes what one symbol received during a contribution event
type Purchase struct {
	Symbol   domain.Symbol
	Amount   decimal.Decimal
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Result is the outcome of ApplyAllocation
type Result struct {
	Portfolio *domain.Portfolio
	Entry     domain.HistoryEntry
	Purchases []Purchase

	// Unpriced lists symbols that received euros without a usable price.
	// Their invested amount was recorded with zero quantity.
	Unpriced []domain.Symbol
}

// InvestmentService applies contribution events to a portfolio
type InvestmentService struct {
	Clock func() time.Time
	NewID func() uuid.UUID
}

// NewInvestmentService creates a new InvestmentService instance
func NewInvestmentService() *InvestmentService {
	return &InvestmentService{
		Clock: time.Now,
		NewID: uuid.New,
	}
}

// ApplyAllocation records one contribution event.
// Logic:
//  1. For each symbol of the euro allocation: create the holding if missing,
//     buy amount / price units (zero units when the price is unknown) and add
//     the amount to the holding's invested total
//  2. Add the nominal contribution to the portfolio's invested total
//  3. Revalue every holding at the snapshot price
//  4. Append one history entry and stamp last_update, never earlier than
//     the newest existing entry
//
// The event is atomic: it is prepared on a copy and committed to p only
// when complete. On error p is left untouched.
func (s *InvestmentService) ApplyAllocation(
	p *domain.Portfolio,
	plan *domain.AllocationPlan,
	snapshot domain.MarketSnapshot,
) (*Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if p == nil {
		p = domain.NewPortfolio(s.now())
	}

	next := p.Clone()
	next.Normalize()

	result := &Result{}

	// 1. Buy
	for _, sym := range plan.EuroAllocation.Symbols() {
		amount := plan.EuroAllocation[sym]

		holding, ok := next.Assets[sym]
		if !ok {
			holding = &domain.Holding{
				TotalInvested: decimal.Zero,
				Quantity:      decimal.Zero,
				CurrentValue:  decimal.Zero,
			}
			next.Assets[sym] = holding
		}

		price := snapshot.Price(sym)
		quantity := decimal.Zero
		if price.IsPositive() {
			quantity = amount.Div(price)
		} else if !amount.IsZero() {
			result.Unpriced = append(result.Unpriced, sym)
		}

		holding.TotalInvested = holding.TotalInvested.Add(amount)
		holding.Quantity = holding.Quantity.Add(quantity)

		result.Purchases = append(result.Purchases, Purchase{
			Symbol:   sym,
			Amount:   amount,
			Price:    price,
			Quantity: quantity,
		})
	}

	// 2. Nominal contribution
	next.TotalInvested = next.TotalInvested.Add(plan.TotalInvestment)

	// 3. Revalue
	currentValue := next.Revalue(snapshot)

	// 4. History, never dated before the previous event
	now := s.now()
	if last := next.LastEntryDate(); now.Before(last) {
		now = last
	}
	entry := domain.HistoryEntry{
		ID:            s.newID(),
		Date:          now,
		Investment:    plan.TotalInvestment,
		Allocation:    plan.NormalizedAllocation.Clone(),
		TotalInvested: next.TotalInvested,
		CurrentValue:  currentValue,
	}
	next.History = append(next.History, entry)
	next.LastUpdate = now

	// Commit
	*p = *next

	result.Portfolio = p
	result.Entry = entry
	return result, nil
}

// CalculateProfit calculates the profit/loss of the portfolio
// Logic: Profit = CurrentValue - TotalInvested
func (s *InvestmentService) CalculateProfit(p *domain.Portfolio) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return p.CurrentValue.Sub(p.TotalInvested)
}

func (s *InvestmentService) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}

func (s *InvestmentService) newID() uuid.UUID {
	if s.NewID == nil {
		return uuid.New()
	}
	return s.NewID()
}
