// Package models defines the data types shared by the stream panel.
package models

import (
	"strings"
	"time"
)

// Post is a single message in a stream. Posts are owned by the data layer;
// the panel only reads them.
type Post struct {
	// ID is the unique identifier for the post.
	ID string `json:"id"`

	// StreamID is the stream the post belongs to.
	StreamID string `json:"stream_id"`

	// ParentPostID is the thread root when the post is a reply.
	ParentPostID string `json:"parent_post_id,omitempty"`

	// AuthorID is the user who wrote the post.
	AuthorID string `json:"author_id"`

	// Text is the post body.
	Text string `json:"text"`

	// CreatedAt is when the post was created.
	CreatedAt time.Time `json:"created_at"`

	// SeqNum totally orders posts within a stream.
	SeqNum int `json:"seq_num"`

	// CodeBlocks are code excerpts quoted by the post.
	CodeBlocks []CodeBlock `json:"code_blocks,omitempty"`

	// MentionedUserIDs lists users mentioned in Text.
	MentionedUserIDs []string `json:"mentioned_user_ids,omitempty"`

	// Deactivated marks a deleted post.
	Deactivated bool `json:"deactivated,omitempty"`

	// HasBeenEdited is set once the text changed after creation.
	HasBeenEdited bool `json:"has_been_edited,omitempty"`
}

// ThreadID returns the id of the thread root the post belongs to.
func (p Post) ThreadID() string {
	if parent := strings.TrimSpace(p.ParentPostID); parent != "" {
		return parent
	}
	return p.ID
}

// IsReply reports whether the post replies to another post.
func (p Post) IsReply() bool {
	return strings.TrimSpace(p.ParentPostID) != ""
}

// Mentions reports whether userID is among the mentioned users.
func (p Post) Mentions(userID string) bool {
	for _, id := range p.MentionedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Validate checks the fields required before a post is stored.
func (p Post) Validate() error {
	validation := &ValidationErrors{}
	if strings.TrimSpace(p.StreamID) == "" {
		validation.Add("stream_id", ErrStreamRequired)
	}
	if strings.TrimSpace(p.AuthorID) == "" {
		validation.Add("author_id", ErrAuthorRequired)
	}
	if strings.TrimSpace(p.Text) == "" && len(p.CodeBlocks) == 0 {
		validation.Add("text", ErrEmptyPost)
	}
	for i, block := range p.CodeBlocks {
		if err := block.Validate(); err != nil {
			validation.Add(indexField("code_blocks", i), err)
		}
	}
	return validation.Err()
}
