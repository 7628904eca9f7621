// Package data defines the data layer the stream panel reads from and writes to.
package data

import (
	"context"
	"time"

	"github.com/tOgg1/streampanel/internal/models"
)

const (
	defaultMetadataTTL   = 5 * time.Second
	defaultPostCacheSize = 2048
)

// Provider abstracts post storage for the panel. All calls act on behalf of
// the provider's current user.
type Provider interface {
	// CurrentUserID is the user posts are created and read as.
	CurrentUserID() string
	// Users lists the team roster.
	Users(ctx context.Context) ([]models.User, error)
	// Streams lists streams in display order.
	Streams(ctx context.Context) ([]models.Stream, error)
	// Posts lists posts of a stream with seq greater than sinceSeq, ascending.
	// Deactivated posts are included so callers can drop them.
	Posts(ctx context.Context, streamID string, sinceSeq int) ([]models.Post, error)
	// Post returns a single post.
	Post(ctx context.Context, postID string) (*models.Post, error)
	// LastReadSeqNum is the current user's read marker for a stream.
	LastReadSeqNum(ctx context.Context, streamID string) (int, error)
	// CreatePost stores a new post and returns it with its seq number.
	CreatePost(ctx context.Context, req NewPost) (*models.Post, error)
	// EditPost rewrites the text and mentions of a post.
	EditPost(ctx context.Context, postID, text string, mentionedUserIDs []string) error
	// DeletePost deactivates a post.
	DeletePost(ctx context.Context, postID string) error
	// MarkStreamRead moves the read marker to the newest post and returns its seq.
	MarkStreamRead(ctx context.Context, streamID string) (int, error)
}

// NewPost is a post submission.
type NewPost struct {
	StreamID         string
	ParentPostID     string
	Text             string
	CodeBlocks       []models.CodeBlock
	MentionedUserIDs []string
	// Extra carries submission metadata such as the auto-mentioned user IDs.
	Extra map[string]any
}

// ProviderConfig configures a SQLiteProvider.
type ProviderConfig struct {
	CurrentUserID string
	MetadataTTL   time.Duration
	PostCacheSize int
}

func (c ProviderConfig) withDefaults() ProviderConfig {
	if c.MetadataTTL <= 0 {
		c.MetadataTTL = defaultMetadataTTL
	}
	if c.PostCacheSize <= 0 {
		c.PostCacheSize = defaultPostCacheSize
	}
	return c
}
