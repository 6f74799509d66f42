package postgres

import (
	"context"
	"fmt"
)

// advisoryLockKey identifies the portfolio update lock across processes
const advisoryLockKey int64 = 0x6463_6174 // "dcat"

// AdvisoryLocker implements domain.Locker with a session-level advisory lock.
// The lock lives on a dedicated connection so that it is released on the
// same session it was taken on.
type AdvisoryLocker struct {
	db  *DB
	key int64
}

// NewAdvisoryLocker creates a new advisory locker
func NewAdvisoryLocker(db *DB) *AdvisoryLocker {
	return &AdvisoryLocker{db: db, key: advisoryLockKey}
}

// Lock blocks until the advisory lock is held or ctx is done
func (l *AdvisoryLocker) Lock(ctx context.Context) (func() error, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection for lock: %w", err)
	}

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, l.key); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to acquire advisory lock: %w", err)
	}

	release := func() error {
		defer conn.Close()
		if _, err := conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, l.key); err != nil {
			return fmt.Errorf("failed to release advisory lock: %w", err)
		}
		return nil
	}
	return release, nil
}
