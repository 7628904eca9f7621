package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/tOgg1/streampanel/internal/db"
	"github.com/tOgg1/streampanel/internal/models"
)

const maxSuggestions = 5

func shortID(id string) string {
	const limit = 8
	if len(id) <= limit {
		return id
	}
	return id[:limit]
}

// findStream resolves a stream by exact name, ID, or a unique fuzzy match on
// the name.
func findStream(ctx context.Context, repo *db.StreamRepository, query string) (*models.Stream, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("stream name or ID required")
	}

	stream, err := repo.GetByName(ctx, query)
	if err == nil {
		return stream, nil
	}
	if !errors.Is(err, db.ErrStreamNotFound) {
		return nil, fmt.Errorf("failed to get stream: %w", err)
	}
	stream, err = repo.Get(ctx, query)
	if err == nil {
		return stream, nil
	}
	if !errors.Is(err, db.ErrStreamNotFound) {
		return nil, fmt.Errorf("failed to get stream: %w", err)
	}

	streams, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list streams: %w", err)
	}
	if len(streams) == 0 {
		return nil, fmt.Errorf("stream '%s' not found (no streams created yet)", query)
	}

	matches := matchStreams(streams, query)
	switch len(matches) {
	case 1:
		return &matches[0], nil
	case 0:
		return nil, fmt.Errorf("stream '%s' not found. Example input: '%s' or '%s'", query, streams[0].Name, shortID(streams[0].ID))
	default:
		return nil, fmt.Errorf("stream '%s' is ambiguous; matches: %s", query, formatStreamMatches(matches))
	}
}

// matchStreams returns streams whose names fuzzy-match query, best first.
// An ID prefix match wins outright.
func matchStreams(streams []models.Stream, query string) []models.Stream {
	query = strings.TrimSpace(query)
	for _, stream := range streams {
		if len(query) >= 4 && strings.HasPrefix(stream.ID, query) {
			return []models.Stream{stream}
		}
	}

	names := make([]string, len(streams))
	for i, stream := range streams {
		names[i] = stream.Name
	}
	found := fuzzy.Find(query, names)
	matches := make([]models.Stream, 0, len(found))
	for _, match := range found {
		matches = append(matches, streams[match.Index])
	}
	return matches
}

func formatStreamMatches(streams []models.Stream) string {
	names := make([]string, 0, maxSuggestions)
	for i, stream := range streams {
		if i == maxSuggestions {
			names = append(names, fmt.Sprintf("and %d more", len(streams)-maxSuggestions))
			break
		}
		names = append(names, stream.Name)
	}
	return strings.Join(names, ", ")
}
