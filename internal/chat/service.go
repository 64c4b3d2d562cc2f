package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/parley-core/internal/auth"
	"github.com/nerrad567/parley-core/internal/infrastructure/logging"
)

// Notifier receives stored messages for realtime fan-out. The websocket
// hub implements this; a nil notifier disables broadcasting.
type Notifier interface {
	MessageSent(m *Message)
}

// Service is the operation layer for chats. Every method takes the
// acting user explicitly; there is no ambient identity. The service
// resolves membership, asks the guard, and only then touches storage.
type Service struct {
	chats    ChatRepository
	members  MemberRepository
	messages MessageRepository
	users    auth.UserRepository
	logger   *logging.Logger
	notifier Notifier
}

// NewService creates a chat service.
func NewService(chats ChatRepository, members MemberRepository, messages MessageRepository, users auth.UserRepository, logger *logging.Logger) *Service {
	return &Service{
		chats:    chats,
		members:  members,
		messages: messages,
		users:    users,
		logger:   logger,
	}
}

// SetNotifier wires the realtime broadcaster. Called once at startup,
// before the service handles requests.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// CreateChat creates a chat with the actor as OWNER and the given
// users as DEFAULT members, all in one transaction.
//
// A chat needs at least one member besides the owner; an empty member
// list is ErrInvalidOperation. Listing the same user twice (or the
// actor) is ErrAlreadyMember.
func (s *Service) CreateChat(ctx context.Context, actor *auth.User, name, description string, memberIDs []string) (*Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > MaxChatNameLength {
		return nil, ErrInvalidName
	}
	if len(description) > MaxChatDescriptionLength {
		return nil, ErrInvalidName
	}
	if len(memberIDs) == 0 {
		return nil, ErrInvalidOperation
	}

	seen := map[string]bool{actor.ID: true}
	for _, id := range memberIDs {
		if seen[id] {
			return nil, ErrAlreadyMember
		}
		seen[id] = true

		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !user.Enabled {
			return nil, auth.ErrUserDisabled
		}
	}

	c := &Chat{Name: name, Description: description}
	if err := s.chats.Create(ctx, c, actor.ID, memberIDs); err != nil {
		return nil, err
	}

	s.logger.Info("chat created",
		"chat_id", c.ID,
		"owner_id", actor.ID,
		"members", len(memberIDs)+1,
	)
	return c, nil
}

// GetChat returns a chat the actor belongs to. Absent chat and
// non-membership are indistinguishable to the caller.
func (s *Service) GetChat(ctx context.Context, actor *auth.User, chatID string) (*Chat, error) {
	if _, err := s.members.Get(ctx, chatID, actor.ID); err != nil {
		return nil, err
	}

	c, err := s.chats.Get(ctx, chatID)
	if err != nil {
		if errors.Is(err, ErrChatNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}
	return c, nil
}

// ListChats returns all the actor's chats with last-message previews.
func (s *Service) ListChats(ctx context.Context, actor *auth.User) ([]ChatSummary, error) {
	return s.chats.ListByUser(ctx, actor.ID)
}

// UpdateChat changes a chat's name and description. Owner or admin only.
func (s *Service) UpdateChat(ctx context.Context, actor *auth.User, chatID, name, description string) (*Chat, error) {
	member, err := s.members.Get(ctx, chatID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !CanUpdateChat(member.Role) {
		return nil, ErrForbidden
	}

	name = strings.TrimSpace(name)
	if name == "" || len(name) > MaxChatNameLength || len(description) > MaxChatDescriptionLength {
		return nil, ErrInvalidName
	}

	c, err := s.chats.Get(ctx, chatID)
	if err != nil {
		if errors.Is(err, ErrChatNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}

	c.Name = name
	c.Description = description
	if err := s.chats.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteChat removes a chat and everything in it. Owner only.
func (s *Service) DeleteChat(ctx context.Context, actor *auth.User, chatID string) error {
	member, err := s.members.Get(ctx, chatID, actor.ID)
	if err != nil {
		return err
	}
	if !CanDeleteChat(member.Role) {
		return ErrForbidden
	}

	if err := s.chats.Delete(ctx, chatID); err != nil {
		return err
	}

	s.logger.Info("chat deleted", "chat_id", chatID, "actor_id", actor.ID)
	return nil
}

// GetMembers lists a chat's members, owner first. Members only.
func (s *Service) GetMembers(ctx context.Context, actor *auth.User, chatID string) ([]Member, error) {
	if _, err := s.members.Get(ctx, chatID, actor.ID); err != nil {
		return nil, err
	}
	return s.members.ListByChat(ctx, chatID)
}

// GetMember returns a single membership. Members only; an absent
// target is ErrNotMember.
func (s *Service) GetMember(ctx context.Context, actor *auth.User, chatID, userID string) (*Member, error) {
	if _, err := s.members.Get(ctx, chatID, actor.ID); err != nil {
		return nil, err
	}
	return s.members.Get(ctx, chatID, userID)
}

// AddMember adds a user to the chat as DEFAULT. Any member can invite.
func (s *Service) AddMember(ctx context.Context, actor *auth.User, chatID, userID string) (*Member, error) {
	member, err := s.members.Get(ctx, chatID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !CanAddMember(member.Role) {
		return nil, ErrForbidden
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Enabled {
		return nil, auth.ErrUserDisabled
	}

	added := &Member{UserID: userID, ChatID: chatID, Role: RoleDefault}
	if err := s.members.Add(ctx, added); err != nil {
		return nil, err
	}
	return added, nil
}

// UpdateMemberRole reassigns a member's role. Owner only, and never on
// themselves: ownership moves by promoting someone else, which demotes
// the actor to ADMIN as a side effect of the same transaction.
func (s *Service) UpdateMemberRole(ctx context.Context, actor *auth.User, chatID, userID string, role Role) (*Member, error) {
	member, err := s.members.Get(ctx, chatID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !CanChangeRole(member.Role) {
		return nil, ErrForbidden
	}
	if userID == actor.ID {
		return nil, ErrInvalidOperation
	}
	if !IsValidRole(role) {
		return nil, ErrInvalidRole
	}

	if err := s.members.SetRole(ctx, chatID, userID, role); err != nil {
		return nil, err
	}

	s.logger.Info("member role changed",
		"chat_id", chatID,
		"user_id", userID,
		"role", string(role),
		"actor_id", actor.ID,
	)
	return s.members.Get(ctx, chatID, userID)
}

// RemoveMember removes a member. Removing yourself is leaving: allowed
// for everyone but the owner. Removing someone else follows the guard:
// nobody removes the owner, only the owner removes admins.
func (s *Service) RemoveMember(ctx context.Context, actor *auth.User, chatID, userID string) error {
	member, err := s.members.Get(ctx, chatID, actor.ID)
	if err != nil {
		return err
	}

	if userID == actor.ID {
		if !CanLeave(member.Role) {
			return ErrInvalidOperation
		}
		return s.members.Remove(ctx, chatID, userID)
	}

	target, err := s.members.Get(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !CanRemoveMember(member.Role, target.Role) {
		return ErrForbidden
	}
	return s.members.Remove(ctx, chatID, userID)
}

// GetMessages pages through a chat's history, newest first. Members
// only; cursor semantics live in the repository.
func (s *Service) GetMessages(ctx context.Context, actor *auth.User, chatID string, beforeID *int64, limit int) ([]Message, error) {
	if _, err := s.members.Get(ctx, chatID, actor.ID); err != nil {
		return nil, err
	}
	return s.messages.Page(ctx, chatID, beforeID, limit)
}

// SendMessage stores a message and hands it to the notifier for
// realtime fan-out. Members only.
func (s *Service) SendMessage(ctx context.Context, actor *auth.User, chatID, content string) (*Message, error) {
	if _, err := s.members.Get(ctx, chatID, actor.ID); err != nil {
		return nil, err
	}

	if len(content) == 0 || len(content) > MaxMessageLength {
		return nil, ErrInvalidContent
	}

	m := &Message{ChatID: chatID, AuthorID: actor.ID, Content: content}
	if err := s.messages.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("saving message: %w", err)
	}

	if s.notifier != nil {
		s.notifier.MessageSent(m)
	}
	return m, nil
}
