package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tOgg1/streampanel/internal/models"
)

// Post repository errors.
var (
	ErrPostNotFound = errors.New("post not found")
)

// PostRepository handles post persistence.
type PostRepository struct {
	db *DB
}

// NewPostRepository creates a new PostRepository.
func NewPostRepository(db *DB) *PostRepository {
	return &PostRepository{db: db}
}

const postColumns = `id, stream_id, parent_post_id, author_id, text, created_at, seq_num,
	mentioned_json, deactivated, edited`

// Create stores a post and its code blocks, assigning the next sequence
// number of the stream.
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	if err := post.Validate(); err != nil {
		return fmt.Errorf("invalid post: %w", err)
	}
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}

	mentioned, err := marshalMentions(post.MentionedUserIDs)
	if err != nil {
		return err
	}

	return r.db.WriteTransaction(ctx, seqRetryPolicy, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM streams WHERE id = ?`, post.StreamID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check stream: %w", err)
		}
		if exists == 0 {
			return ErrStreamNotFound
		}

		var seq int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq_num), 0) + 1 FROM posts WHERE stream_id = ?`, post.StreamID).Scan(&seq); err != nil {
			return fmt.Errorf("failed to allocate seq num: %w", err)
		}
		post.SeqNum = seq

		_, err := tx.ExecContext(ctx, `
			INSERT INTO posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0)
		`,
			post.ID,
			post.StreamID,
			post.ParentPostID,
			post.AuthorID,
			post.Text,
			post.CreatedAt.UTC().Format(time.RFC3339Nano),
			post.SeqNum,
			mentioned,
		)
		if err != nil {
			if isUniqueConstraintError(err) && strings.Contains(err.Error(), "seq_num") {
				return errSeqTaken
			}
			return fmt.Errorf("failed to insert post: %w", err)
		}

		for i := range post.CodeBlocks {
			if err := insertCodeBlock(ctx, tx, post.ID, i, &post.CodeBlocks[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertCodeBlock(ctx context.Context, execer execer, postID string, position int, block *models.CodeBlock) error {
	if block.ID == "" {
		block.ID = uuid.New().String()
	}
	_, err := execer.ExecContext(ctx, `
		INSERT INTO code_blocks (
			id, post_id, position, file, code, start_line, start_col, end_line, end_col,
			pre_context, post_context
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		block.ID, postID, position, block.File, block.Code,
		block.Range.StartLine, block.Range.StartCol, block.Range.EndLine, block.Range.EndCol,
		block.PreContext, block.PostContext,
	)
	if err != nil {
		return fmt.Errorf("failed to insert code block: %w", err)
	}
	return nil
}

// Get retrieves a post with its code blocks.
func (r *PostRepository) Get(ctx context.Context, id string) (*models.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	posts := []models.Post{*post}
	if err := r.attachCodeBlocks(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// ListSince returns posts of a stream with seq_num > sinceSeq, ascending.
// Deactivated posts are included so that clients can drop them.
func (r *PostRepository) ListSince(ctx context.Context, streamID string, sinceSeq int) ([]models.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE stream_id = ? AND seq_num > ?
		ORDER BY seq_num
	`, streamID, sinceSeq)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}
	if err := r.attachCodeBlocks(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// UpdateText rewrites the text and mentions of a post and marks it edited.
func (r *PostRepository) UpdateText(ctx context.Context, id, text string, mentionedUserIDs []string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("invalid post: %w", models.ErrEmptyPost)
	}
	mentioned, err := marshalMentions(mentionedUserIDs)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE posts SET text = ?, mentioned_json = ?, edited = 1
		WHERE id = ? AND deactivated = 0
	`, text, mentioned, id)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	return requireAffected(result, ErrPostNotFound)
}

// Deactivate soft-deletes a post.
func (r *PostRepository) Deactivate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE posts SET deactivated = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate post: %w", err)
	}
	return requireAffected(result, ErrPostNotFound)
}

// MaxSeqNum returns the highest sequence number of a stream (0 when empty).
func (r *PostRepository) MaxSeqNum(ctx context.Context, streamID string) (int, error) {
	return maxSeqNum(ctx, r.db, streamID)
}

func maxSeqNum(ctx context.Context, q querier, streamID string) (int, error) {
	var seq int
	if err := q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq_num), 0) FROM posts WHERE stream_id = ?`, streamID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to read max seq num: %w", err)
	}
	return seq, nil
}

func (r *PostRepository) attachCodeBlocks(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	index := make(map[string]int, len(posts))
	placeholders := make([]string, 0, len(posts))
	args := make([]any, 0, len(posts))
	for i, post := range posts {
		index[post.ID] = i
		placeholders = append(placeholders, "?")
		args = append(args, post.ID)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, post_id, file, code, start_line, start_col, end_line, end_col, pre_context, post_context
		FROM code_blocks
		WHERE post_id IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY post_id, position
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to query code blocks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var block models.CodeBlock
		var postID string
		if err := rows.Scan(
			&block.ID, &postID, &block.File, &block.Code,
			&block.Range.StartLine, &block.Range.StartCol, &block.Range.EndLine, &block.Range.EndCol,
			&block.PreContext, &block.PostContext,
		); err != nil {
			return fmt.Errorf("failed to scan code block: %w", err)
		}
		if i, ok := index[postID]; ok {
			posts[i].CodeBlocks = append(posts[i].CodeBlocks, block)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating code blocks: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var post models.Post
	var createdAt string
	var mentioned sql.NullString
	var deactivated, edited int

	if err := row.Scan(
		&post.ID,
		&post.StreamID,
		&post.ParentPostID,
		&post.AuthorID,
		&post.Text,
		&createdAt,
		&post.SeqNum,
		&mentioned,
		&deactivated,
		&edited,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan post: %w", err)
	}

	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		post.CreatedAt = t
	}
	if mentioned.Valid && mentioned.String != "" {
		if err := json.Unmarshal([]byte(mentioned.String), &post.MentionedUserIDs); err != nil {
			return nil, fmt.Errorf("failed to parse mentions of post %s: %w", post.ID, err)
		}
	}
	post.Deactivated = deactivated != 0
	post.HasBeenEdited = edited != 0
	return &post, nil
}

func marshalMentions(ids []string) (*string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mentions: %w", err)
	}
	s := string(data)
	return &s, nil
}

func requireAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
