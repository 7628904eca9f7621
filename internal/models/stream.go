package models

import "strings"

// StreamKind distinguishes team channels from file-scoped streams.
type StreamKind string

const (
	StreamKindChannel StreamKind = "channel"
	StreamKindFile    StreamKind = "file"
)

// Stream is a channel of posts.
type Stream struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Kind StreamKind `json:"kind"`
	// File is set for file-scoped streams.
	File string `json:"file,omitempty"`
}

// Validate checks the stream fields.
func (s Stream) Validate() error {
	validation := &ValidationErrors{}
	if strings.TrimSpace(s.Name) == "" {
		validation.AddMessage("name", "stream name is required")
	}
	switch s.Kind {
	case StreamKindChannel:
	case StreamKindFile:
		if strings.TrimSpace(s.File) == "" {
			validation.AddMessage("file", "file streams need a file")
		}
	default:
		validation.Add("kind", ErrInvalidStreamKind)
	}
	return validation.Err()
}
