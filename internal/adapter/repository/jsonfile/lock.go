package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

const lockPollInterval = 50 * time.Millisecond

// Lock is an exclusive lock file guarding the data directory.
// A lock older than StaleAfter is assumed to belong to a crashed process
// and is broken.
type Lock struct {
	Path       string
	StaleAfter time.Duration

	log zerolog.Logger
}

// NewLock creates a new lock file guard
func NewLock(path string, staleAfter time.Duration, log zerolog.Logger) *Lock {
	return &Lock{
		Path:       path,
		StaleAfter: staleAfter,
		log:        log.With().Str("component", "file_lock").Str("path", path).Logger(),
	}
}

// Lock implements domain.Locker. It waits until the lock is free or ctx is done.
func (l *Lock) Lock(ctx context.Context) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(l.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		acquired, err := l.tryAcquire()
		if err != nil {
			return nil, err
		}
		if acquired {
			return l.release, nil
		}

		l.breakIfStale()

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w", l.Path, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *Lock) tryAcquire() (bool, error) {
	f, err := os.OpenFile(l.Path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create lock file: %w", err)
	}
	fmt.Fprintf(f, "pid=%d acquired=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	return true, f.Close()
}

func (l *Lock) breakIfStale() {
	if l.StaleAfter <= 0 {
		return
	}
	info, err := os.Stat(l.Path)
	if err != nil {
		return
	}
	if age := time.Since(info.ModTime()); age > l.StaleAfter {
		l.log.Warn().Dur("age", age).Msg("Breaking stale lock")
		os.Remove(l.Path)
	}
}

func (l *Lock) release() error {
	if err := os.Remove(l.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
