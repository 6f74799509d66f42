package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TechnicalSignal is a categorical market-direction hint produced upstream
type TechnicalSignal string

const (
	SignalBullish            TechnicalSignal = "BULLISH"
	SignalBullishCaution     TechnicalSignal = "BULLISH_CAUTION"
	SignalNeutral            TechnicalSignal = "NEUTRAL"
	SignalBearish            TechnicalSignal = "BEARISH"
	SignalBearishOpportunity TechnicalSignal = "BEARISH_OPPORTUNITY"
)

// ParseSignal maps free text to a TechnicalSignal. Unknown or empty values are NEUTRAL.
func ParseSignal(s string) TechnicalSignal {
	switch sig := TechnicalSignal(strings.ToUpper(strings.TrimSpace(s))); sig {
	case SignalBullish, SignalBullishCaution, SignalBearish, SignalBearishOpportunity:
		return sig
	default:
		return SignalNeutral
	}
}

// Quote is the latest observation for one asset
type Quote struct {
	Symbol    Symbol          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Signal    TechnicalSignal `json:"technical_signal"`
	Timestamp time.Time       `json:"timestamp"`
}

// MarketSnapshot holds at most one quote per symbol. A nil snapshot is valid
// and means "no data for any symbol".
type MarketSnapshot map[Symbol]Quote

// Price returns the quote price, or zero when the symbol is absent or priced negatively
func (m MarketSnapshot) Price(sym Symbol) decimal.Decimal {
	q, ok := m[sym]
	if !ok || q.Price.IsNegative() {
		return decimal.Zero
	}
	return q.Price
}

// Signal returns the technical signal and whether the symbol is present
func (m MarketSnapshot) Signal(sym Symbol) (TechnicalSignal, bool) {
	q, ok := m[sym]
	if !ok {
		return SignalNeutral, false
	}
	if q.Signal == "" {
		return SignalNeutral, true
	}
	return q.Signal, true
}

// LatestQuotes keeps, per symbol, the quote with the greatest timestamp.
// Ties are resolved in favor of the record that appears first in input order.
func LatestQuotes(records []Quote) MarketSnapshot {
	snapshot := make(MarketSnapshot, len(records))
	for _, rec := range records {
		if rec.Symbol == "" {
			continue
		}
		current, seen := snapshot[rec.Symbol]
		if !seen || rec.Timestamp.After(current.Timestamp) {
			snapshot[rec.Symbol] = rec
		}
	}
	return snapshot
}

// Correlation is the strongest sentiment/price correlation found for an asset.
// Type is "direct", "lag_Nh" (sentiment precedes price by N hours) or
// "lead_Nh" (price precedes sentiment).
type Correlation struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

var correlationHours = regexp.MustCompile(`(\d+)h`)

// SentimentLeads reports whether the correlation carries a lag marker
func (c Correlation) SentimentLeads() bool {
	return strings.Contains(c.Type, "lag")
}

// Hours returns the N of lag_Nh / lead_Nh, or 0 for direct correlations
func (c Correlation) Hours() int {
	m := correlationHours.FindStringSubmatch(c.Type)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// CorrelationEntry is the per-asset part of the correlation report
type CorrelationEntry struct {
	BestCorrelation Correlation `json:"best_correlation"`
}

// CorrelationReport is produced by the external correlation analysis
type CorrelationReport struct {
	Details map[Symbol]CorrelationEntry `json:"details"`
}

// Entry returns the correlation entry for sym. Safe on a nil report.
func (r *CorrelationReport) Entry(sym Symbol) (CorrelationEntry, bool) {
	if r == nil || r.Details == nil {
		return CorrelationEntry{}, false
	}
	e, ok := r.Details[sym]
	return e, ok
}
