package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// errSeqTaken means a concurrent writer allocated the same post seq number.
var errSeqTaken = errors.New("post seq number already taken")

// RetryPolicy controls how a write transaction is retried.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration // doubled after every failed attempt

	// Retryable reports whether a failed attempt may run again.
	// Defaults to retrying while SQLite is busy or locked.
	Retryable func(error) bool
}

var (
	// DefaultRetryPolicy rides out short lock contention between processes.
	DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 50 * time.Millisecond}

	// seqRetryPolicy also retries when two panels post to a stream at once.
	seqRetryPolicy = RetryPolicy{
		Attempts: 5,
		Backoff:  10 * time.Millisecond,
		Retryable: func(err error) bool {
			return errors.Is(err, errSeqTaken) || isBusyError(err)
		},
	}
)

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultRetryPolicy.Attempts
	}
	if p.Backoff <= 0 {
		p.Backoff = DefaultRetryPolicy.Backoff
	}
	if p.Retryable == nil {
		p.Retryable = isBusyError
	}
	return p
}

// WriteTransaction runs fn in a transaction, starting over under policy when
// an attempt fails with a retryable error.
func (db *DB) WriteTransaction(ctx context.Context, policy RetryPolicy, fn func(*sql.Tx) error) error {
	return policy.run(ctx, func() error {
		return db.Transaction(ctx, fn)
	})
}

func (p RetryPolicy) run(ctx context.Context, fn func() error) error {
	p = p.withDefaults()
	backoff := p.Backoff
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn()
		if err == nil || attempt >= p.Attempts || !p.Retryable(err) {
			return err
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
}

func isBusyError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "database is locked") ||
		strings.Contains(message, "database is busy") ||
		strings.Contains(message, "sqlite_busy")
}
