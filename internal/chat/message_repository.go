package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MessageRepository defines the interface for message persistence and
// history pagination.
type MessageRepository interface {
	Save(ctx context.Context, m *Message) error
	Get(ctx context.Context, chatID string, id int64) (*Message, error)
	Page(ctx context.Context, chatID string, beforeID *int64, limit int) ([]Message, error)
}

// SQLiteMessageRepository implements MessageRepository using SQLite.
type SQLiteMessageRepository struct {
	db *sql.DB
}

// NewMessageRepository creates a new SQLite-backed message repository.
func NewMessageRepository(db *sql.DB) *SQLiteMessageRepository {
	return &SQLiteMessageRepository{db: db}
}

// Save persists a message and advances the chat's last-message pointer
// in the same transaction. The id is assigned by SQLite and strictly
// increases in insertion order, which the pagination cursor depends on.
func (r *SQLiteMessageRepository) Save(ctx context.Context, m *Message) error {
	now := time.Now().UTC().Format(time.RFC3339)
	m.SentAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting message transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	result, err := tx.ExecContext(ctx,
		`INSERT INTO messages (chat_id, author_id, content, created_at)
		 VALUES (?, ?, ?, ?)`,
		m.ChatID, m.AuthorID, m.Content, now,
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading message id: %w", err)
	}
	m.ID = id

	if _, err := tx.ExecContext(ctx,
		"UPDATE chats SET last_message_id = ?, updated_at = ? WHERE id = ?",
		id, now, m.ChatID,
	); err != nil {
		return fmt.Errorf("updating last message pointer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing message: %w", err)
	}
	return nil
}

// messageSelect is the shared column list for message queries.
const messageSelect = "SELECT id, chat_id, author_id, content, created_at FROM messages"

// Get retrieves a single message within a chat.
func (r *SQLiteMessageRepository) Get(ctx context.Context, chatID string, id int64) (*Message, error) {
	row := r.db.QueryRowContext(ctx,
		messageSelect+" WHERE chat_id = ? AND id = ?", chatID, id)
	return scanMessageFrom(row)
}

// Page returns up to limit messages for a chat, newest first.
//
// With a nil beforeID the page starts from the latest message. With a
// cursor, only messages with id strictly less than beforeID are
// returned, so a client walking backwards never sees duplicates even
// while new messages are being appended.
func (r *SQLiteMessageRepository) Page(ctx context.Context, chatID string, beforeID *int64, limit int) ([]Message, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}

	var rows *sql.Rows
	var err error
	if beforeID == nil {
		rows, err = r.db.QueryContext(ctx,
			messageSelect+" WHERE chat_id = ? ORDER BY id DESC LIMIT ?",
			chatID, limit,
		)
	} else {
		rows, err = r.db.QueryContext(ctx,
			messageSelect+" WHERE chat_id = ? AND id < ? ORDER BY id DESC LIMIT ?",
			chatID, *beforeID, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("paging messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		m, err := scanMessageFrom(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	if messages == nil {
		messages = []Message{}
	}
	return messages, nil
}

// scanMessageFrom scans a message from any scanner (Row or Rows).
func scanMessageFrom(s scanner) (*Message, error) {
	var m Message
	var sentAt string

	err := s.Scan(&m.ID, &m.ChatID, &m.AuthorID, &m.Content, &sentAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("scanning message: %w", err)
	}

	m.SentAt, _ = time.Parse(time.RFC3339, sentAt) //nolint:errcheck // format is controlled

	return &m, nil
}
