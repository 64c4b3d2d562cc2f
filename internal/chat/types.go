package chat

import (
	"errors"
	"time"
)

// Role represents a member's authorisation tier within a single chat.
// Roles are compared by identity only, never by rank.
type Role string

const (
	// RoleOwner is the single accountable member of a chat. Can change
	// roles, delete the chat, and remove admins. Cannot leave without
	// first transferring ownership.
	RoleOwner Role = "OWNER"

	// RoleAdmin can update chat details and remove default members.
	RoleAdmin Role = "ADMIN"

	// RoleDefault is an ordinary participant: read and post.
	RoleDefault Role = "DEFAULT"
)

// ValidRoles is the set of assignable member roles.
var ValidRoles = []Role{RoleOwner, RoleAdmin, RoleDefault}

// IsValidRole returns true if the role is a recognised member role.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Limits on user-supplied chat content.
const (
	MaxChatNameLength        = 128
	MaxChatDescriptionLength = 512
	MaxMessageLength         = 2000
)

// Chat represents a group conversation.
type Chat struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	// LastMessageID is denormalized for list previews; nil until the
	// first message is sent.
	LastMessageID *int64    `json:"last_message_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Member represents a user's membership in a chat.
type Member struct {
	UserID    string    `json:"user_id"`
	ChatID    string    `json:"chat_id"`
	Role      Role      `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message represents a single immutable chat message.
// IDs are assigned by SQLite in send order and are strictly increasing
// per database, which is what the pagination cursor relies on.
type Message struct {
	ID       int64     `json:"id"`
	ChatID   string    `json:"chat_id"`
	AuthorID string    `json:"author_id"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sent_at"`
}

// Sentinel errors for chat operations.
var (
	// ErrChatNotFound is internal to the repositories; the service
	// collapses it into ErrNotMember on read paths so callers cannot
	// probe for chat existence.
	ErrChatNotFound = errors.New("chat not found")

	ErrNotMember        = errors.New("not a member of this chat")
	ErrAlreadyMember    = errors.New("already a member of this chat")
	ErrMessageNotFound  = errors.New("message not found")
	ErrForbidden        = errors.New("insufficient role for this operation")
	ErrInvalidOperation = errors.New("operation conflicts with chat state")
	ErrInvalidRole      = errors.New("invalid role")
	ErrInvalidName      = errors.New("invalid chat name or description")
	ErrInvalidContent   = errors.New("message content must be 1-2000 characters")
	ErrInvalidLimit     = errors.New("page limit must be at least 1")
	ErrConflict         = errors.New("concurrent modification detected")
)
