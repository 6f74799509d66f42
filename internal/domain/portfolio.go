package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Holding is the cumulative position in one asset
type Holding struct {
	TotalInvested decimal.Decimal `json:"total_invested"`
	Quantity      decimal.Decimal `json:"quantity"`
	CurrentValue  decimal.Decimal `json:"current_value"` // quantity × last known price, recomputed every cycle
}

// HistoryEntry records one contribution event
type HistoryEntry struct {
	ID            uuid.UUID       `json:"id"`
	Date          time.Time       `json:"date"`
	Investment    decimal.Decimal `json:"investment"`
	Allocation    Allocation      `json:"allocation"`
	TotalInvested decimal.Decimal `json:"total_invested"` // cumulative, after the event
	CurrentValue  decimal.Decimal `json:"current_value"`  // after the event
}

// Portfolio is the persisted investment state.
// History is append-only and TotalInvested never decreases.
type Portfolio struct {
	TotalInvested decimal.Decimal     `json:"total_invested"`
	CurrentValue  decimal.Decimal     `json:"current_value"`
	Assets        map[Symbol]*Holding `json:"assets"`
	History       []HistoryEntry      `json:"history"`
	LastUpdate    time.Time           `json:"last_update"`

	// Version counts successful saves; stores reject a save whose version
	// does not match what is persisted.
	Version int64 `json:"version"`
}

// NewPortfolio returns the empty portfolio used on first run
func NewPortfolio(now time.Time) *Portfolio {
	return &Portfolio{
		TotalInvested: decimal.Zero,
		CurrentValue:  decimal.Zero,
		Assets:        make(map[Symbol]*Holding),
		History:       []HistoryEntry{},
		LastUpdate:    now,
	}
}

// Normalize fills nil collections left by a sparse persisted document
func (p *Portfolio) Normalize() {
	if p.Assets == nil {
		p.Assets = make(map[Symbol]*Holding)
	}
	for sym, h := range p.Assets {
		if h == nil {
			p.Assets[sym] = &Holding{}
		}
	}
	if p.History == nil {
		p.History = []HistoryEntry{}
	}
}

// Clone returns a deep copy so that a mutation can be prepared without
// touching the original.
func (p *Portfolio) Clone() *Portfolio {
	out := *p
	out.Assets = make(map[Symbol]*Holding, len(p.Assets))
	for sym, h := range p.Assets {
		if h == nil {
			continue
		}
		cp := *h
		out.Assets[sym] = &cp
	}
	out.History = make([]HistoryEntry, len(p.History))
	for i, e := range p.History {
		e.Allocation = e.Allocation.Clone()
		out.History[i] = e
	}
	return &out
}

// Revalue recomputes every holding's current value against the snapshot
// (zero when the price is unknown) and returns the total.
func (p *Portfolio) Revalue(snapshot MarketSnapshot) decimal.Decimal {
	total := decimal.Zero
	for sym, h := range p.Assets {
		h.CurrentValue = h.Quantity.Mul(snapshot.Price(sym))
		total = total.Add(h.CurrentValue)
	}
	p.CurrentValue = total
	return total
}

// Validate checks the persisted invariants
func (p *Portfolio) Validate() error {
	if p.TotalInvested.IsNegative() {
		return errors.New("total invested cannot be negative")
	}
	for sym, h := range p.Assets {
		if h == nil {
			return fmt.Errorf("holding for %s is empty", sym)
		}
		if h.Quantity.IsNegative() {
			return fmt.Errorf("quantity for %s cannot be negative", sym)
		}
	}

	// Entry dates are not checked: they come from the wall clock, which may
	// step back between runs.
	prev := decimal.Zero
	for i, e := range p.History {
		if e.TotalInvested.LessThan(prev) {
			return fmt.Errorf("history entry %d decreases total invested", i)
		}
		prev = e.TotalInvested
	}
	return nil
}

// LastEntryDate returns the date of the newest history entry, or the zero time
func (p *Portfolio) LastEntryDate() time.Time {
	var last time.Time
	for _, e := range p.History {
		if e.Date.After(last) {
			last = e.Date
		}
	}
	return last
}
