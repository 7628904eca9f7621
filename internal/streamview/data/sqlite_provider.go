package data

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tOgg1/streampanel/internal/db"
	"github.com/tOgg1/streampanel/internal/models"
)

// ErrNoCurrentUser is returned by writes when the provider has no user.
var ErrNoCurrentUser = errors.New("no current user")

// SQLiteProvider implements Provider over the local database.
type SQLiteProvider struct {
	cfg     ProviderConfig
	users   *db.UserRepository
	streams *db.StreamRepository
	posts   *db.PostRepository
	markers *db.ReadMarkerRepository
	logger  zerolog.Logger
	now     func() time.Time

	mu          sync.Mutex
	userCache   timedEntry[[]models.User]
	streamCache timedEntry[[]models.Stream]
	postCache   *postCache
}

var _ Provider = (*SQLiteProvider)(nil)

// NewSQLiteProvider creates a provider over database.
func NewSQLiteProvider(database *db.DB, cfg ProviderConfig, logger zerolog.Logger) *SQLiteProvider {
	cfg = cfg.withDefaults()
	return &SQLiteProvider{
		cfg:       cfg,
		users:     db.NewUserRepository(database),
		streams:   db.NewStreamRepository(database),
		posts:     db.NewPostRepository(database),
		markers:   db.NewReadMarkerRepository(database),
		logger:    logger.With().Str("component", "data").Logger(),
		now:       time.Now,
		postCache: newPostCache(cfg.PostCacheSize),
	}
}

func (p *SQLiteProvider) CurrentUserID() string { return p.cfg.CurrentUserID }

func (p *SQLiteProvider) Users(ctx context.Context) ([]models.User, error) {
	now := p.now()
	p.mu.Lock()
	if p.userCache.fresh(now) {
		users := append([]models.User(nil), p.userCache.value...)
		p.mu.Unlock()
		return users, nil
	}
	p.mu.Unlock()

	users, err := p.users.List(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.userCache = timedEntry[[]models.User]{value: users, expires: now.Add(p.cfg.MetadataTTL), ok: true}
	p.mu.Unlock()
	return append([]models.User(nil), users...), nil
}

func (p *SQLiteProvider) Streams(ctx context.Context) ([]models.Stream, error) {
	now := p.now()
	p.mu.Lock()
	if p.streamCache.fresh(now) {
		streams := append([]models.Stream(nil), p.streamCache.value...)
		p.mu.Unlock()
		return streams, nil
	}
	p.mu.Unlock()

	streams, err := p.streams.List(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.streamCache = timedEntry[[]models.Stream]{value: streams, expires: now.Add(p.cfg.MetadataTTL), ok: true}
	p.mu.Unlock()
	return append([]models.Stream(nil), streams...), nil
}

// InvalidateMetadata drops the cached roster and stream list.
func (p *SQLiteProvider) InvalidateMetadata() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userCache = timedEntry[[]models.User]{}
	p.streamCache = timedEntry[[]models.Stream]{}
}

func (p *SQLiteProvider) Posts(ctx context.Context, streamID string, sinceSeq int) ([]models.Post, error) {
	posts, err := p.posts.ListSince(ctx, streamID, sinceSeq)
	if err != nil {
		return nil, err
	}
	for _, post := range posts {
		p.postCache.put(post)
	}
	return posts, nil
}

func (p *SQLiteProvider) Post(ctx context.Context, postID string) (*models.Post, error) {
	if post, ok := p.postCache.get(postID); ok {
		return &post, nil
	}
	post, err := p.posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	p.postCache.put(*post)
	return post, nil
}

func (p *SQLiteProvider) LastReadSeqNum(ctx context.Context, streamID string) (int, error) {
	if p.cfg.CurrentUserID == "" {
		return 0, nil
	}
	return p.markers.LastReadSeqNum(ctx, streamID, p.cfg.CurrentUserID)
}

func (p *SQLiteProvider) CreatePost(ctx context.Context, req NewPost) (*models.Post, error) {
	if p.cfg.CurrentUserID == "" {
		return nil, ErrNoCurrentUser
	}
	post := &models.Post{
		StreamID:         strings.TrimSpace(req.StreamID),
		ParentPostID:     strings.TrimSpace(req.ParentPostID),
		AuthorID:         p.cfg.CurrentUserID,
		Text:             req.Text,
		CodeBlocks:       append([]models.CodeBlock(nil), req.CodeBlocks...),
		MentionedUserIDs: append([]string(nil), req.MentionedUserIDs...),
	}
	if err := p.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	p.postCache.put(*post)
	p.logger.Debug().
		Str("post_id", post.ID).
		Str("stream_id", post.StreamID).
		Int("seq", post.SeqNum).
		Interface("extra", req.Extra).
		Msg("post created")
	return post, nil
}

func (p *SQLiteProvider) EditPost(ctx context.Context, postID, text string, mentionedUserIDs []string) error {
	if err := p.requireOwnPost(ctx, postID); err != nil {
		return err
	}
	if err := p.posts.UpdateText(ctx, postID, text, mentionedUserIDs); err != nil {
		return fmt.Errorf("edit post: %w", err)
	}
	p.postCache.remove(postID)
	return nil
}

func (p *SQLiteProvider) DeletePost(ctx context.Context, postID string) error {
	if err := p.requireOwnPost(ctx, postID); err != nil {
		return err
	}
	if err := p.posts.Deactivate(ctx, postID); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	p.postCache.remove(postID)
	return nil
}

func (p *SQLiteProvider) MarkStreamRead(ctx context.Context, streamID string) (int, error) {
	if p.cfg.CurrentUserID == "" {
		return 0, ErrNoCurrentUser
	}
	seq, err := p.markers.MarkStreamRead(ctx, streamID, p.cfg.CurrentUserID)
	if err != nil {
		return 0, fmt.Errorf("mark stream read: %w", err)
	}
	return seq, nil
}

// ErrNotAuthor is returned when editing or deleting someone else's post.
var ErrNotAuthor = errors.New("post belongs to another user")

func (p *SQLiteProvider) requireOwnPost(ctx context.Context, postID string) error {
	if p.cfg.CurrentUserID == "" {
		return ErrNoCurrentUser
	}
	post, err := p.posts.Get(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != p.cfg.CurrentUserID {
		return ErrNotAuthor
	}
	return nil
}
