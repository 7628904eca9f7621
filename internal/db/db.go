// Package db provides SQLite database access for streampanel.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Config configures the database connection.
type Config struct {
	// Path is the SQLite file; ":memory:" opens a private in-memory database.
	Path string

	// BusyTimeoutMs is how long SQLite waits on a locked database.
	BusyTimeoutMs int

	// Logger receives repository warnings.
	Logger *zerolog.Logger
}

// DB wraps the SQLite connection pool.
type DB struct {
	*sql.DB
	path   string
	logger zerolog.Logger
}

// Open opens the database at cfg.Path, creating parent directories.
func Open(cfg Config) (*DB, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("database path is required")
	}
	busy := cfg.BusyTimeoutMs
	if busy <= 0 {
		busy = 5000
	}

	inMemory := path == ":memory:"
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(ON)", path, busy)
	if !inMemory {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if inMemory {
		// Every connection to :memory: is a separate database.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "db").Logger()
	}

	return &DB{DB: sqlDB, path: path, logger: logger}, nil
}

// OpenInMemory opens a private in-memory database, mainly for tests.
func OpenInMemory() (*DB, error) {
	return Open(Config{Path: ":memory:"})
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Transaction runs fn inside a transaction, rolling back on error.
func (db *DB) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			db.logger.Warn().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

type execer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

type querier interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}
