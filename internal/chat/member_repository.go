package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MemberRepository defines the interface for chat membership persistence.
//
// It is the only component that mutates roles. SetRole owns the
// one-owner invariant: promotions to OWNER demote the sitting owner in
// the same transaction.
type MemberRepository interface {
	Get(ctx context.Context, chatID, userID string) (*Member, error)
	IsMember(ctx context.Context, chatID, userID string) (bool, error)
	Add(ctx context.Context, member *Member) error
	SetRole(ctx context.Context, chatID, userID string, role Role) error
	Remove(ctx context.Context, chatID, userID string) error
	ListByChat(ctx context.Context, chatID string) ([]Member, error)
	ListChatIDs(ctx context.Context, userID string) ([]string, error)
	CountByRole(ctx context.Context, chatID string, role Role) (int, error)
}

// SQLiteMemberRepository implements MemberRepository using SQLite.
type SQLiteMemberRepository struct {
	db *sql.DB
}

// NewMemberRepository creates a new SQLite-backed member repository.
func NewMemberRepository(db *sql.DB) *SQLiteMemberRepository {
	return &SQLiteMemberRepository{db: db}
}

// memberSelect is the shared column list for member queries.
const memberSelect = "SELECT user_id, chat_id, role, joined_at, updated_at FROM chat_members"

// Get retrieves a member row, or ErrNotMember if absent.
func (r *SQLiteMemberRepository) Get(ctx context.Context, chatID, userID string) (*Member, error) {
	row := r.db.QueryRowContext(ctx,
		memberSelect+" WHERE chat_id = ? AND user_id = ?", chatID, userID)
	return scanMemberFrom(row)
}

// IsMember reports whether the user belongs to the chat. Total: a
// missing row is (false, nil), not an error.
func (r *SQLiteMemberRepository) IsMember(ctx context.Context, chatID, userID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM chat_members WHERE chat_id = ? AND user_id = ?",
		chatID, userID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	return true, nil
}

// Add inserts a membership row. Timestamps are set here; a duplicate
// (user, chat) pair returns ErrAlreadyMember.
func (r *SQLiteMemberRepository) Add(ctx context.Context, member *Member) error {
	now := time.Now().UTC().Format(time.RFC3339)
	member.JoinedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	member.UpdatedAt = member.JoinedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_members (user_id, chat_id, role, joined_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		member.UserID, member.ChatID, string(member.Role), now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrAlreadyMember
		}
		return fmt.Errorf("adding member: %w", err)
	}
	return nil
}

// SetRole changes a member's role.
//
// Promoting to OWNER is an ownership transfer: the sitting owner is
// demoted to ADMIN and the target promoted inside one transaction.
// The promotion UPDATE is guarded on the target's previously observed
// role; zero rows affected means another writer got there first, and
// the whole transfer is retried once before surfacing ErrConflict.
//
// Demoting the sitting owner directly is rejected with
// ErrInvalidOperation - ownership only moves by promoting someone else.
func (r *SQLiteMemberRepository) SetRole(ctx context.Context, chatID, userID string, role Role) error {
	if !IsValidRole(role) {
		return ErrInvalidRole
	}

	err := r.setRoleOnce(ctx, chatID, userID, role)
	if errors.Is(err, ErrConflict) {
		err = r.setRoleOnce(ctx, chatID, userID, role)
	}
	return err
}

func (r *SQLiteMemberRepository) setRoleOnce(ctx context.Context, chatID, userID string, role Role) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting role transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	var current string
	err = tx.QueryRowContext(ctx,
		"SELECT role FROM chat_members WHERE chat_id = ? AND user_id = ?",
		chatID, userID,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotMember
	}
	if err != nil {
		return fmt.Errorf("reading current role: %w", err)
	}

	if Role(current) == role {
		return tx.Commit() // no-op change
	}
	if Role(current) == RoleOwner {
		return ErrInvalidOperation
	}

	now := time.Now().UTC().Format(time.RFC3339)

	if role == RoleOwner {
		// Demote the sitting owner first so the chat never has two.
		if _, err := tx.ExecContext(ctx,
			"UPDATE chat_members SET role = ?, updated_at = ? WHERE chat_id = ? AND role = ?",
			string(RoleAdmin), now, chatID, string(RoleOwner),
		); err != nil {
			return fmt.Errorf("demoting owner: %w", err)
		}
	}

	// Guarded promotion: only applies if the target still holds the
	// role we observed above.
	result, err := tx.ExecContext(ctx,
		"UPDATE chat_members SET role = ?, updated_at = ? WHERE chat_id = ? AND user_id = ? AND role = ?",
		string(role), now, chatID, userID, current,
	)
	if err != nil {
		return fmt.Errorf("updating role: %w", err)
	}
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrConflict
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing role change: %w", err)
	}
	return nil
}

// Remove deletes a membership row, or ErrNotMember if absent.
func (r *SQLiteMemberRepository) Remove(ctx context.Context, chatID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM chat_members WHERE chat_id = ? AND user_id = ?",
		chatID, userID,
	)
	if err != nil {
		return fmt.Errorf("removing member: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotMember
	}
	return nil
}

// ListByChat returns all members of a chat, owner first, then admins,
// then defaults, each group ordered by join time. Display order only.
func (r *SQLiteMemberRepository) ListByChat(ctx context.Context, chatID string) ([]Member, error) {
	rows, err := r.db.QueryContext(ctx,
		memberSelect+` WHERE chat_id = ?
		 ORDER BY CASE role WHEN 'OWNER' THEN 0 WHEN 'ADMIN' THEN 1 ELSE 2 END, joined_at ASC`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		m, err := scanMemberFrom(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating members: %w", err)
	}

	if members == nil {
		members = []Member{}
	}
	return members, nil
}

// ListChatIDs returns the ids of all chats the user belongs to,
// most recently joined first.
func (r *SQLiteMemberRepository) ListChatIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT chat_id FROM chat_members WHERE user_id = ? ORDER BY joined_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing user chats: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning chat id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user chats: %w", err)
	}

	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// CountByRole returns how many members of a chat hold the given role.
// Invariant checks lean on this: CountByRole(chat, RoleOwner) is 1 for
// any non-empty chat.
func (r *SQLiteMemberRepository) CountByRole(ctx context.Context, chatID string, role Role) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chat_members WHERE chat_id = ? AND role = ?",
		chatID, string(role),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting members by role: %w", err)
	}
	return count, nil
}

// scanMemberFrom scans a member from any scanner (Row or Rows).
func scanMemberFrom(s scanner) (*Member, error) {
	var m Member
	var role string
	var joinedAt, updatedAt string

	err := s.Scan(&m.UserID, &m.ChatID, &role, &joinedAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("scanning member: %w", err)
	}

	m.Role = Role(role)
	m.JoinedAt, _ = time.Parse(time.RFC3339, joinedAt)   //nolint:errcheck // format is controlled
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &m, nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}
