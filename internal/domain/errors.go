package domain

import "errors"

// Failure taxonomy of the engine. None of these is fatal: every path that
// produces one also produces a documented fallback value.
var (
	// ErrDataUnavailable means a market or correlation input was missing or corrupt.
	// Fallback: empty mapping.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrZeroWeightSum means the adjusted weights summed to exactly zero.
	// Fallback: the unmodified base allocation.
	ErrZeroWeightSum = errors.New("adjusted weights sum to zero")

	// ErrZeroPrice means no usable price was known for a symbol being bought.
	// Fallback: euros recorded as invested, zero quantity purchased.
	ErrZeroPrice = errors.New("price unknown")

	// ErrPersistence means state could not be written or read.
	ErrPersistence = errors.New("persistence failure")

	// ErrCorruptState means persisted state exists but cannot be decoded.
	// Fallback: a freshly initialized portfolio.
	ErrCorruptState = errors.New("persisted state is corrupt")

	// ErrVersionConflict means another writer saved the portfolio since it was loaded.
	ErrVersionConflict = errors.New("portfolio version conflict")

	// ErrZeroInvestmentBase means an ROI denominator was zero. Fallback: ROI 0.
	ErrZeroInvestmentBase = errors.New("nothing invested")

	// ErrNotFound is returned by readers when no document has been written yet.
	ErrNotFound = errors.New("not found")
)
