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

// User repository errors.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user with this username already exists")
)

// UserRepository handles roster persistence.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create adds a user. The username defaults to the email's local part.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Username = user.Identity()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, first_name, last_name, username, email, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, user.ID, user.FirstName, user.LastName, user.Username, user.Email, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Get retrieves a user by ID.
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, username, email FROM users WHERE id = ?
	`, id))
}

// GetByUsername retrieves a user by username or email.
func (r *UserRepository) GetByUsername(ctx context.Context, name string) (*models.User, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, username, email FROM users
		WHERE username = ? COLLATE NOCASE OR email = ? COLLATE NOCASE
		LIMIT 1
	`, name, name))
}

// List returns the roster in creation order.
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, username, email FROM users
		ORDER BY created_at, rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.FirstName, &user.LastName, &user.Username, &user.Email); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) scanOne(row *sql.Row) (*models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.FirstName, &user.LastName, &user.Username, &user.Email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}
