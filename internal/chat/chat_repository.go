package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChatRepository defines the interface for chat persistence.
type ChatRepository interface {
	Create(ctx context.Context, c *Chat, ownerID string, memberIDs []string) error
	Get(ctx context.Context, id string) (*Chat, error)
	Update(ctx context.Context, c *Chat) error
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]ChatSummary, error)
}

// ChatSummary is a chat with its last message joined in, for list views.
type ChatSummary struct {
	Chat
	LastMessage *Message `json:"last_message,omitempty"`
}

// SQLiteChatRepository implements ChatRepository using SQLite.
type SQLiteChatRepository struct {
	db *sql.DB
}

// NewChatRepository creates a new SQLite-backed chat repository.
func NewChatRepository(db *sql.DB) *SQLiteChatRepository {
	return &SQLiteChatRepository{db: db}
}

// Create inserts a chat together with its initial membership in one
// transaction: the creator as OWNER plus at least the given ids as
// DEFAULT members. Either everything lands or nothing does; a chat row
// without an owner never becomes visible.
//
// A duplicate id in memberIDs (or the owner listed among them) trips
// the membership primary key and returns ErrAlreadyMember.
func (r *SQLiteChatRepository) Create(ctx context.Context, c *Chat, ownerID string, memberIDs []string) error {
	if c.ID == "" {
		c.ID = "cht-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	c.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	c.UpdatedAt = c.CreatedAt

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting create transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chats (id, name, description, last_message_id, created_at, updated_at)
		 VALUES (?, ?, ?, NULL, ?, ?)`,
		c.ID, c.Name, c.Description, now, now,
	); err != nil {
		return fmt.Errorf("creating chat: %w", err)
	}

	insertMember := func(userID string, role Role) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chat_members (user_id, chat_id, role, joined_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			userID, c.ID, string(role), now, now,
		)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return ErrAlreadyMember
			}
			return fmt.Errorf("adding initial member %s: %w", userID, err)
		}
		return nil
	}

	if err := insertMember(ownerID, RoleOwner); err != nil {
		return err
	}
	for _, id := range memberIDs {
		if err := insertMember(id, RoleDefault); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chat creation: %w", err)
	}
	return nil
}

// chatSelect is the shared column list for chat queries.
const chatSelect = "SELECT id, name, description, last_message_id, created_at, updated_at FROM chats"

// Get retrieves a chat by id, or ErrChatNotFound.
func (r *SQLiteChatRepository) Get(ctx context.Context, id string) (*Chat, error) {
	row := r.db.QueryRowContext(ctx, chatSelect+" WHERE id = ?", id)
	return scanChatFrom(row)
}

// Update modifies a chat's name and description.
func (r *SQLiteChatRepository) Update(ctx context.Context, c *Chat) error {
	now := time.Now().UTC().Format(time.RFC3339)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	result, err := r.db.ExecContext(ctx,
		"UPDATE chats SET name = ?, description = ?, updated_at = ? WHERE id = ?",
		c.Name, c.Description, now, c.ID,
	)
	if err != nil {
		return fmt.Errorf("updating chat: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrChatNotFound
	}
	return nil
}

// Delete removes a chat. Members and messages go with it via foreign
// key cascades.
func (r *SQLiteChatRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM chats WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting chat: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrChatNotFound
	}
	return nil
}

// ListByUser returns every chat the user is a member of, most recently
// active first, with the last message joined in for previews.
func (r *SQLiteChatRepository) ListByUser(ctx context.Context, userID string) ([]ChatSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.description, c.last_message_id, c.created_at, c.updated_at,
		        m.id, m.chat_id, m.author_id, m.content, m.created_at
		 FROM chats c
		 JOIN chat_members cm ON cm.chat_id = c.id
		 LEFT JOIN messages m ON m.id = c.last_message_id
		 WHERE cm.user_id = ?
		 ORDER BY COALESCE(c.last_message_id, 0) DESC, c.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	defer rows.Close()

	var chats []ChatSummary
	for rows.Next() {
		var s ChatSummary
		var lastMessageID sql.NullInt64
		var createdAt, updatedAt string
		var msgID sql.NullInt64
		var msgChatID, msgAuthorID, msgContent, msgSentAt sql.NullString

		err := rows.Scan(&s.ID, &s.Name, &s.Description, &lastMessageID, &createdAt, &updatedAt,
			&msgID, &msgChatID, &msgAuthorID, &msgContent, &msgSentAt)
		if err != nil {
			return nil, fmt.Errorf("scanning chat summary: %w", err)
		}

		if lastMessageID.Valid {
			s.LastMessageID = &lastMessageID.Int64
		}
		s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
		s.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

		if msgID.Valid {
			msg := Message{
				ID:       msgID.Int64,
				ChatID:   msgChatID.String,
				AuthorID: msgAuthorID.String,
				Content:  msgContent.String,
			}
			msg.SentAt, _ = time.Parse(time.RFC3339, msgSentAt.String) //nolint:errcheck // format is controlled
			s.LastMessage = &msg
		}

		chats = append(chats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chats: %w", err)
	}

	if chats == nil {
		chats = []ChatSummary{}
	}
	return chats, nil
}

// scanChatFrom scans a chat from any scanner (Row or Rows).
func scanChatFrom(s scanner) (*Chat, error) {
	var c Chat
	var lastMessageID sql.NullInt64
	var createdAt, updatedAt string

	err := s.Scan(&c.ID, &c.Name, &c.Description, &lastMessageID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("scanning chat: %w", err)
	}

	if lastMessageID.Valid {
		c.LastMessageID = &lastMessageID.Int64
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &c, nil
}
