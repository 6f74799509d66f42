package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// timestampLayouts lists the accepted timestamp formats, most specific first.
// Layouts without a zone (Python isoformat) are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses RFC3339 or zone-less ISO-8601 text.
// Empty text is the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// UnmarshalJSON accepts zone-less dates in addition to RFC3339
func (e *HistoryEntry) UnmarshalJSON(data []byte) error {
	type alias HistoryEntry
	aux := struct {
		*alias
		Date string `json:"date"`
	}{alias: (*alias)(e)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	date, err := ParseTimestamp(aux.Date)
	if err != nil {
		return fmt.Errorf("history date: %w", err)
	}
	e.Date = date
	return nil
}

// UnmarshalJSON accepts a zone-less last_update in addition to RFC3339
func (p *Portfolio) UnmarshalJSON(data []byte) error {
	type alias Portfolio
	aux := struct {
		*alias
		LastUpdate string `json:"last_update"`
	}{alias: (*alias)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	lastUpdate, err := ParseTimestamp(aux.LastUpdate)
	if err != nil {
		return fmt.Errorf("last_update: %w", err)
	}
	p.LastUpdate = lastUpdate
	return nil
}
