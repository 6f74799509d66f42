package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/dca-tracker/internal/domain"
)

// marketRecord is one element of the market data file
type marketRecord struct {
	Symbol          string          `json:"symbol"`
	Price           decimal.Decimal `json:"price"`
	Timestamp       string          `json:"timestamp"`
	TechnicalSignal string          `json:"technical_signal"`
}

// MarketFile reads a JSON array of market records and keeps the latest per symbol
type MarketFile struct {
	Path string
}

// NewMarketFile creates a new market snapshot provider
func NewMarketFile(path string) *MarketFile {
	return &MarketFile{Path: path}
}

// Snapshot implements domain.MarketDataProvider.
// Errors wrap domain.ErrDataUnavailable; the snapshot is then empty.
func (m *MarketFile) Snapshot(ctx context.Context) (domain.MarketSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.MarketSnapshot{}, err
	}

	data, err := os.ReadFile(m.Path)
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("%w: read market data %s: %v", domain.ErrDataUnavailable, m.Path, err)
	}

	var records []marketRecord
	if err := json.Unmarshal(sanitizeNonFinite(data), &records); err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("%w: parse market data %s: %v", domain.ErrDataUnavailable, m.Path, err)
	}

	return latest(records), nil
}

// latest converts raw records to a snapshot. Records without a symbol are
// dropped; records with an unparseable timestamp are kept with a zero
// timestamp so that any dated record for the same symbol wins.
func latest(records []marketRecord) domain.MarketSnapshot {
	quotes := make([]domain.Quote, 0, len(records))
	for _, rec := range records {
		sym, err := domain.ParseSymbol(rec.Symbol)
		if err != nil {
			continue
		}
		quotes = append(quotes, domain.Quote{
			Symbol:    sym,
			Price:     rec.Price,
			Signal:    domain.ParseSignal(rec.TechnicalSignal),
			Timestamp: parseTimestamp(rec.Timestamp),
		})
	}
	return domain.LatestQuotes(quotes)
}

// parseTimestamp returns the zero time for unparseable text
func parseTimestamp(s string) time.Time {
	ts, err := domain.ParseTimestamp(s)
	if err != nil {
		return time.Time{}
	}
	return ts
}
