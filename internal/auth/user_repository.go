package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user account persistence.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByNickname(ctx context.Context, nickname string) (*User, error)
	SearchByNickname(ctx context.Context, query string, limit int) ([]User, error)
	Update(ctx context.Context, user *User) error
	Count(ctx context.Context) (int, error)
}

// SQLiteUserRepository implements UserRepository using SQLite.
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new SQLite-backed user repository.
func NewUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

// defaultSearchLimit caps nickname searches when the caller passes no limit.
const defaultSearchLimit = 20

// Create inserts a new user account. The ID is generated if empty.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = "usr-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	user.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	user.UpdatedAt = user.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, nickname, password_hash, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Nickname, user.PasswordHash,
		boolToInt(user.Enabled), now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return uniqueViolationError(err)
		}
		return fmt.Errorf("creating user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their unique ID.
func (r *SQLiteUserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getUser(ctx, userSelect+" WHERE id = ?", id)
}

// GetByEmail retrieves a user by their email address.
func (r *SQLiteUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getUser(ctx, userSelect+" WHERE email = ?", email)
}

// GetByNickname retrieves a user by their exact nickname.
func (r *SQLiteUserRepository) GetByNickname(ctx context.Context, nickname string) (*User, error) {
	return r.getUser(ctx, userSelect+" WHERE nickname = ?", nickname)
}

// SearchByNickname returns enabled users whose nickname contains the
// query, ordered by nickname. Used by the member picker when adding
// people to a chat.
func (r *SQLiteUserRepository) SearchByNickname(ctx context.Context, query string, limit int) ([]User, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	rows, err := r.db.QueryContext(ctx,
		userSelect+" WHERE nickname LIKE ? ESCAPE '\\' AND enabled = 1 ORDER BY nickname ASC LIMIT ?",
		"%"+escapeLike(query)+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUserFrom(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}

	if users == nil {
		users = []User{}
	}
	return users, nil
}

// Update modifies a user's mutable fields (nickname, enabled).
func (r *SQLiteUserRepository) Update(ctx context.Context, user *User) error {
	now := time.Now().UTC().Format(time.RFC3339)
	user.UpdatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET nickname = ?, enabled = ?, updated_at = ? WHERE id = ?`,
		user.Nickname, boolToInt(user.Enabled), now, user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return uniqueViolationError(err)
		}
		return fmt.Errorf("updating user: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Count returns the total number of user accounts.
func (r *SQLiteUserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

// userSelect is the shared column list for user queries.
const userSelect = "SELECT id, email, nickname, password_hash, enabled, created_at, updated_at FROM users"

// getUser executes a query and scans a single user result.
func (r *SQLiteUserRepository) getUser(ctx context.Context, query string, args ...any) (*User, error) {
	row := r.db.QueryRowContext(ctx, query, args...)
	return scanUserFrom(row)
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanUserFrom scans a user from any scanner (Row or Rows).
func scanUserFrom(s scanner) (*User, error) {
	var u User
	var enabled int
	var createdAt, updatedAt string

	err := s.Scan(&u.ID, &u.Email, &u.Nickname, &u.PasswordHash,
		&enabled, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	u.Enabled = enabled != 0
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	u.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &u, nil
}

// Helper functions.

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// escapeLike escapes LIKE metacharacters in user-supplied search input.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// uniqueViolationError maps a UNIQUE violation to the column-specific
// sentinel so the API can tell the caller which field collided.
func uniqueViolationError(err error) error {
	switch {
	case strings.Contains(err.Error(), "users.email"):
		return ErrEmailExists
	case strings.Contains(err.Error(), "users.nickname"):
		return ErrNicknameExists
	default:
		return fmt.Errorf("unique constraint: %w", err)
	}
}
