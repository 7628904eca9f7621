package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tOgg1/streampanel/internal/events"
)

// Event repository errors.
var (
	ErrInvalidEvent = errors.New("invalid event")
)

// EventRepository keeps a log of published panel events (analytics and
// host interactions). It satisfies events.Repository.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// EventQuery defines filters for querying events.
type EventQuery struct {
	Type  *events.Type // Filter by event type
	Since *time.Time   // Events at or after this time (inclusive)
	Limit int          // Max results to return
}

// StoredEvent is an event read back from the log; the body stays raw JSON.
type StoredEvent struct {
	ID        string
	Type      events.Type
	Timestamp time.Time
	Body      json.RawMessage
}

// Create appends an event to the log.
func (r *EventRepository) Create(ctx context.Context, event *events.Event) error {
	if event == nil || event.Type == "" {
		return ErrInvalidEvent
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var bodyJSON *string
	if event.Body != nil {
		data, err := json.Marshal(event.Body)
		if err != nil {
			return fmt.Errorf("failed to marshal event body: %w", err)
		}
		s := string(data)
		bodyJSON = &s
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events (id, timestamp, type, body_json) VALUES (?, ?, ?, ?)
	`, event.ID, event.Timestamp.UTC().Format(time.RFC3339Nano), string(event.Type), bodyJSON)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Query retrieves events matching the filters, oldest first.
func (r *EventRepository) Query(ctx context.Context, q EventQuery) ([]StoredEvent, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, timestamp, type, body_json FROM events WHERE 1=1`
	args := []any{}
	if q.Type != nil {
		query += ` AND type = ?`
		args = append(args, string(*q.Type))
	}
	if q.Since != nil {
		query += ` AND timestamp >= ?`
		args = append(args, q.Since.UTC().Format(time.RFC3339Nano))
	}
	query += ` ORDER BY timestamp, id LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var event StoredEvent
		var timestamp, eventType string
		var body *string
		if err := rows.Scan(&event.ID, &timestamp, &eventType, &body); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.Type = events.Type(eventType)
		if t, err := time.Parse(time.RFC3339Nano, timestamp); err == nil {
			event.Timestamp = t
		} else {
			r.db.logger.Warn().Err(err).Str("event_id", event.ID).Msg("failed to parse event timestamp")
		}
		if body != nil {
			event.Body = json.RawMessage(*body)
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return out, nil
}

// Count returns the total number of events.
func (r *EventRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

var _ events.Repository = (*EventRepository)(nil)
