package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestChatRepository_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := seedUser(t, env.db, "usr-owner", "owner")
	guest := seedUser(t, env.db, "usr-guest", "guest")

	c := &Chat{Name: "general", Description: "the general chat"}
	if err := env.chats.Create(ctx, c, owner.ID, []string{guest.ID}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if !strings.HasPrefix(c.ID, "cht-") {
		t.Errorf("generated ID = %q, want cht- prefix", c.ID)
	}

	mustRole(t, env.members, c.ID, owner.ID, RoleOwner)
	mustRole(t, env.members, c.ID, guest.ID, RoleDefault)

	got, err := env.chats.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "general" || got.Description != "the general chat" {
		t.Errorf("Get() = %+v, want name/description round-trip", got)
	}
	if got.LastMessageID != nil {
		t.Error("LastMessageID should be nil before any message")
	}
}

func TestChatRepository_Create_DuplicateMemberRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := seedUser(t, env.db, "usr-owner", "owner")
	guest := seedUser(t, env.db, "usr-guest", "guest")

	c := &Chat{ID: "cht-dup", Name: "broken"}
	err := env.chats.Create(ctx, c, owner.ID, []string{guest.ID, guest.ID})
	if !errors.Is(err, ErrAlreadyMember) {
		t.Fatalf("Create() error = %v, want ErrAlreadyMember", err)
	}

	// The whole transaction rolled back: no chat row either.
	if _, err := env.chats.Get(ctx, "cht-dup"); !errors.Is(err, ErrChatNotFound) {
		t.Errorf("Get() after failed create error = %v, want ErrChatNotFound", err)
	}
}

func TestChatRepository_Update(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := seedUser(t, env.db, "usr-owner", "owner")
	guest := seedUser(t, env.db, "usr-guest", "guest")
	c := seedChat(t, env, "cht-one", owner.ID, guest.ID)

	c.Name = "renamed"
	c.Description = "new purpose"
	if err := env.chats.Update(ctx, c); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := env.chats.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "renamed" || got.Description != "new purpose" {
		t.Errorf("update did not persist: %+v", got)
	}

	t.Run("missing chat", func(t *testing.T) {
		ghost := &Chat{ID: "cht-missing", Name: "x"}
		if err := env.chats.Update(ctx, ghost); !errors.Is(err, ErrChatNotFound) {
			t.Errorf("Update() error = %v, want ErrChatNotFound", err)
		}
	})
}

func TestChatRepository_Delete_Cascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := seedUser(t, env.db, "usr-owner", "owner")
	guest := seedUser(t, env.db, "usr-guest", "guest")
	seedChat(t, env, "cht-one", owner.ID, guest.ID)

	msg := &Message{ChatID: "cht-one", AuthorID: owner.ID, Content: "hello"}
	if err := env.messages.Save(ctx, msg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := env.chats.Delete(ctx, "cht-one"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := env.chats.Get(ctx, "cht-one"); !errors.Is(err, ErrChatNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrChatNotFound", err)
	}

	var memberCount, messageCount int
	if err := env.db.QueryRow("SELECT COUNT(*) FROM chat_members WHERE chat_id = 'cht-one'").Scan(&memberCount); err != nil {
		t.Fatalf("counting members: %v", err)
	}
	if err := env.db.QueryRow("SELECT COUNT(*) FROM messages WHERE chat_id = 'cht-one'").Scan(&messageCount); err != nil {
		t.Fatalf("counting messages: %v", err)
	}
	if memberCount != 0 || messageCount != 0 {
		t.Errorf("cascade left %d members, %d messages", memberCount, messageCount)
	}

	t.Run("missing chat", func(t *testing.T) {
		if err := env.chats.Delete(ctx, "cht-one"); !errors.Is(err, ErrChatNotFound) {
			t.Errorf("Delete() twice error = %v, want ErrChatNotFound", err)
		}
	})
}

func TestChatRepository_ListByUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := seedUser(t, env.db, "usr-owner", "owner")
	guest := seedUser(t, env.db, "usr-guest", "guest")
	outsider := seedUser(t, env.db, "usr-out", "outsider")
	seedChat(t, env, "cht-one", owner.ID, guest.ID)
	seedChat(t, env, "cht-two", owner.ID, guest.ID)
	seedChat(t, env, "cht-three", outsider.ID, owner.ID)

	// A message in cht-one makes it the most recently active.
	msg := &Message{ChatID: "cht-one", AuthorID: owner.ID, Content: "latest activity"}
	if err := env.messages.Save(ctx, msg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	chats, err := env.chats.ListByUser(ctx, guest.ID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("len(chats) = %d, want 2", len(chats))
	}

	if chats[0].ID != "cht-one" {
		t.Errorf("first chat = %s, want cht-one (most recent activity)", chats[0].ID)
	}
	if chats[0].LastMessage == nil {
		t.Fatal("cht-one should carry a last-message preview")
	}
	if chats[0].LastMessage.Content != "latest activity" {
		t.Errorf("preview content = %q, want %q", chats[0].LastMessage.Content, "latest activity")
	}
	if chats[1].LastMessage != nil {
		t.Error("cht-two has no messages, preview should be nil")
	}

	t.Run("no chats", func(t *testing.T) {
		lonely := seedUser(t, env.db, "usr-lonely", "lonely")
		chats, err := env.chats.ListByUser(ctx, lonely.ID)
		if err != nil {
			t.Fatalf("ListByUser() error = %v", err)
		}
		if chats == nil || len(chats) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", chats)
		}
	})
}
