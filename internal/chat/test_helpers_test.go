package chat

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/parley-core/internal/auth"
	"github.com/nerrad567/parley-core/internal/infrastructure/logging"
)

// testDB creates a temporary SQLite database with the full Parley
// schema applied. The database file is cleaned up after the test.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	// Use a temp file so WAL mode works (in-memory doesn't support it)
	f, err := os.CreateTemp("", "chat-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE users (
			id TEXT NOT NULL PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			nickname TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;

		CREATE TABLE chats (
			id TEXT NOT NULL PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			last_message_id INTEGER,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;

		CREATE TABLE chat_members (
			user_id TEXT NOT NULL,
			chat_id TEXT NOT NULL,
			role TEXT NOT NULL CHECK (role IN ('OWNER', 'ADMIN', 'DEFAULT')),
			joined_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (user_id, chat_id),
			FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE,
			FOREIGN KEY (chat_id) REFERENCES chats (id) ON DELETE CASCADE
		) STRICT;

		CREATE TABLE messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			author_id TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY (chat_id) REFERENCES chats (id) ON DELETE CASCADE,
			FOREIGN KEY (author_id) REFERENCES users (id)
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	return db
}

// seedUser inserts a user row and returns it.
func seedUser(t *testing.T, db *sql.DB, id, nickname string) *auth.User {
	t.Helper()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := db.Exec(
		`INSERT INTO users (id, email, nickname, password_hash, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, 'x', 1, ?, ?)`,
		id, nickname+"@example.com", nickname, now, now,
	)
	if err != nil {
		t.Fatalf("seeding user %s: %v", id, err)
	}
	return &auth.User{ID: id, Email: nickname + "@example.com", Nickname: nickname, Enabled: true}
}

// testLogger returns a logger that discards output.
func testLogger() *logging.Logger {
	return &logging.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// testEnv bundles a database, repositories, and service for tests.
type testEnv struct {
	db       *sql.DB
	chats    *SQLiteChatRepository
	members  *SQLiteMemberRepository
	messages *SQLiteMessageRepository
	users    *auth.SQLiteUserRepository
	svc      *Service
}

// newTestEnv builds a full service stack over a fresh database.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	env := &testEnv{
		db:       db,
		chats:    NewChatRepository(db),
		members:  NewMemberRepository(db),
		messages: NewMessageRepository(db),
		users:    auth.NewUserRepository(db),
	}
	env.svc = NewService(env.chats, env.members, env.messages, env.users, testLogger())
	return env
}

// mustRole asserts a member's current role.
func mustRole(t *testing.T, members MemberRepository, chatID, userID string, want Role) {
	t.Helper()

	m, err := members.Get(context.Background(), chatID, userID)
	if err != nil {
		t.Fatalf("Get(%s, %s) error = %v", chatID, userID, err)
	}
	if m.Role != want {
		t.Fatalf("role of %s = %s, want %s", userID, m.Role, want)
	}
}

// seedChat creates a chat with an owner and default members directly
// through the repository.
func seedChat(t *testing.T, env *testEnv, chatID, ownerID string, memberIDs ...string) *Chat {
	t.Helper()

	c := &Chat{ID: chatID, Name: fmt.Sprintf("chat %s", chatID)}
	if err := env.chats.Create(context.Background(), c, ownerID, memberIDs); err != nil {
		t.Fatalf("seeding chat %s: %v", chatID, err)
	}
	return c
}
