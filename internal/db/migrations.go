package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type migration struct {
	version    int
	name       string
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "initial schema",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				first_name TEXT NOT NULL DEFAULT '',
				last_name TEXT NOT NULL DEFAULT '',
				username TEXT NOT NULL UNIQUE COLLATE NOCASE,
				email TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS streams (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL UNIQUE COLLATE NOCASE,
				kind TEXT NOT NULL,
				file TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS posts (
				id TEXT PRIMARY KEY,
				stream_id TEXT NOT NULL REFERENCES streams(id) ON DELETE CASCADE,
				parent_post_id TEXT NOT NULL DEFAULT '',
				author_id TEXT NOT NULL,
				text TEXT NOT NULL,
				created_at TEXT NOT NULL,
				seq_num INTEGER NOT NULL,
				mentioned_json TEXT,
				deactivated INTEGER NOT NULL DEFAULT 0,
				edited INTEGER NOT NULL DEFAULT 0,
				UNIQUE (stream_id, seq_num)
			)`,
			`CREATE TABLE IF NOT EXISTS code_blocks (
				id TEXT PRIMARY KEY,
				post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
				position INTEGER NOT NULL,
				file TEXT NOT NULL,
				code TEXT NOT NULL,
				start_line INTEGER NOT NULL,
				start_col INTEGER NOT NULL DEFAULT 0,
				end_line INTEGER NOT NULL,
				end_col INTEGER NOT NULL DEFAULT 0,
				pre_context TEXT NOT NULL DEFAULT '',
				post_context TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS read_markers (
				stream_id TEXT NOT NULL REFERENCES streams(id) ON DELETE CASCADE,
				user_id TEXT NOT NULL,
				last_read_seq INTEGER NOT NULL,
				updated_at TEXT NOT NULL,
				PRIMARY KEY (stream_id, user_id)
			)`,
			`CREATE INDEX IF NOT EXISTS posts_stream_seq_idx ON posts(stream_id, seq_num)`,
			`CREATE INDEX IF NOT EXISTS code_blocks_post_idx ON code_blocks(post_id, position)`,
		},
	},
	{
		version: 2,
		name:    "event log",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS events (
				id TEXT PRIMARY KEY,
				timestamp TEXT NOT NULL,
				type TEXT NOT NULL,
				body_json TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS events_type_idx ON events(type, timestamp)`,
		},
	},
}

// SchemaVersion returns the latest applied migration version.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	if err := db.ensureMigrationTable(ctx); err != nil {
		return 0, err
	}
	var version int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// MigrateUp applies pending migrations and returns how many ran.
func (db *DB) MigrateUp(ctx context.Context) (int, error) {
	current, err := db.SchemaVersion(ctx)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := db.WriteTransaction(ctx, DefaultRetryPolicy, func(tx *sql.Tx) error {
			for _, stmt := range m.statements {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
				m.version, m.name, time.Now().UTC().Format(time.RFC3339))
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		db.logger.Debug().Int("version", m.version).Str("name", m.name).Msg("migration applied")
		applied++
	}
	return applied, nil
}

func (db *DB) ensureMigrationTable(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}
	return nil
}
