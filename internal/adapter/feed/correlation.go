package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/simaogato/dca-tracker/internal/domain"
)

// CorrelationFile reads the report written by the correlation analysis
type CorrelationFile struct {
	Path string
}

// NewCorrelationFile creates a new correlation report provider
func NewCorrelationFile(path string) *CorrelationFile {
	return &CorrelationFile{Path: path}
}

// Report implements domain.CorrelationProvider.
// A missing or corrupt file yields an empty report and an error wrapping
// domain.ErrDataUnavailable.
func (c *CorrelationFile) Report(ctx context.Context) (*domain.CorrelationReport, error) {
	empty := &domain.CorrelationReport{Details: map[domain.Symbol]domain.CorrelationEntry{}}
	if err := ctx.Err(); err != nil {
		return empty, err
	}

	data, err := os.ReadFile(c.Path)
	if err != nil {
		return empty, fmt.Errorf("%w: read correlation report %s: %v", domain.ErrDataUnavailable, c.Path, err)
	}

	var raw struct {
		Details map[string]domain.CorrelationEntry `json:"details"`
	}
	if err := json.Unmarshal(sanitizeNonFinite(data), &raw); err != nil {
		return empty, fmt.Errorf("%w: parse correlation report %s: %v", domain.ErrDataUnavailable, c.Path, err)
	}

	for name, entry := range raw.Details {
		sym, err := domain.ParseSymbol(name)
		if err != nil {
			continue
		}
		empty.Details[sym] = entry
	}
	return empty, nil
}
