package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tOgg1/streampanel/internal/models"
)

// Stream repository errors.
var (
	ErrStreamNotFound      = errors.New("stream not found")
	ErrStreamAlreadyExists = errors.New("stream with this name already exists")
)

// StreamRepository handles stream persistence.
type StreamRepository struct {
	db *DB
}

// NewStreamRepository creates a new StreamRepository.
func NewStreamRepository(db *DB) *StreamRepository {
	return &StreamRepository{db: db}
}

// Create adds a stream.
func (r *StreamRepository) Create(ctx context.Context, stream *models.Stream) error {
	if stream.Kind == "" {
		stream.Kind = models.StreamKindChannel
	}
	if err := stream.Validate(); err != nil {
		return fmt.Errorf("invalid stream: %w", err)
	}
	if stream.ID == "" {
		stream.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO streams (id, name, kind, file, created_at) VALUES (?, ?, ?, ?, ?)
	`, stream.ID, strings.TrimSpace(stream.Name), string(stream.Kind), stream.File, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrStreamAlreadyExists
		}
		return fmt.Errorf("failed to insert stream: %w", err)
	}
	return nil
}

// Get retrieves a stream by ID.
func (r *StreamRepository) Get(ctx context.Context, id string) (*models.Stream, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `SELECT id, name, kind, file FROM streams WHERE id = ?`, id))
}

// GetByName retrieves a stream by exact name.
func (r *StreamRepository) GetByName(ctx context.Context, name string) (*models.Stream, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, name, kind, file FROM streams WHERE name = ? COLLATE NOCASE`, strings.TrimSpace(name)))
}

// List returns all streams ordered by name.
func (r *StreamRepository) List(ctx context.Context) ([]models.Stream, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, kind, file FROM streams ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query streams: %w", err)
	}
	defer rows.Close()

	var streams []models.Stream
	for rows.Next() {
		var stream models.Stream
		var kind string
		if err := rows.Scan(&stream.ID, &stream.Name, &kind, &stream.File); err != nil {
			return nil, fmt.Errorf("failed to scan stream: %w", err)
		}
		stream.Kind = models.StreamKind(kind)
		streams = append(streams, stream)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating streams: %w", err)
	}
	return streams, nil
}

func (r *StreamRepository) scanOne(row *sql.Row) (*models.Stream, error) {
	var stream models.Stream
	var kind string
	if err := row.Scan(&stream.ID, &stream.Name, &kind, &stream.File); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStreamNotFound
		}
		return nil, fmt.Errorf("failed to scan stream: %w", err)
	}
	stream.Kind = models.StreamKind(kind)
	return &stream, nil
}
