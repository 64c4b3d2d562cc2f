package chat

import (
	"context"
	"errors"
	"testing"
)

func TestMessageRepository_Save(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := seedUser(t, env.db, "usr-owner", "owner")
	guest := seedUser(t, env.db, "usr-guest", "guest")
	seedChat(t, env, "cht-one", owner.ID, guest.ID)

	first := &Message{ChatID: "cht-one", AuthorID: owner.ID, Content: "first"}
	if err := env.messages.Save(ctx, first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if first.ID == 0 {
		t.Error("Save() should assign an id")
	}
	if first.SentAt.IsZero() {
		t.Error("Save() should set SentAt")
	}

	second := &Message{ChatID: "cht-one", AuthorID: guest.ID, Content: "second"}
	if err := env.messages.Save(ctx, second); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if second.ID <= first.ID {
		t.Errorf("ids must increase in send order: first=%d second=%d", first.ID, second.ID)
	}

	// Save advances the chat's last-message pointer transactionally.
	c, err := env.chats.Get(ctx, "cht-one")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if c.LastMessageID == nil || *c.LastMessageID != second.ID {
		t.Errorf("LastMessageID = %v, want %d", c.LastMessageID, second.ID)
	}
}

func TestMessageRepository_Get(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := seedUser(t, env.db, "usr-owner", "owner")
	guest := seedUser(t, env.db, "usr-guest", "guest")
	seedChat(t, env, "cht-one", owner.ID, guest.ID)

	m := &Message{ChatID: "cht-one", AuthorID: owner.ID, Content: "hello"}
	if err := env.messages.Save(ctx, m); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := env.messages.Get(ctx, "cht-one", m.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Content != "hello" || got.AuthorID != owner.ID {
		t.Errorf("Get() = %+v, want round-trip", got)
	}

	t.Run("wrong chat", func(t *testing.T) {
		if _, err := env.messages.Get(ctx, "cht-other", m.ID); !errors.Is(err, ErrMessageNotFound) {
			t.Errorf("Get() error = %v, want ErrMessageNotFound", err)
		}
	})
}

func TestMessageRepository_Page(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := seedUser(t, env.db, "usr-owner", "owner")
	guest := seedUser(t, env.db, "usr-guest", "guest")
	seedChat(t, env, "cht-one", owner.ID, guest.ID)

	// Messages with sparse ids {2, 30, 50}: force ids via direct insert
	// so the cursor semantics are visible.
	for _, id := range []int64{2, 30, 50} {
		if _, err := env.db.Exec(
			`INSERT INTO messages (id, chat_id, author_id, content, created_at)
			 VALUES (?, 'cht-one', ?, ?, '2026-03-20T10:00:00Z')`,
			id, owner.ID, "msg",
		); err != nil {
			t.Fatalf("inserting message %d: %v", id, err)
		}
	}

	t.Run("before 50 limit 2 returns 30 then 2", func(t *testing.T) {
		before := int64(50)
		page, err := env.messages.Page(ctx, "cht-one", &before, 2)
		if err != nil {
			t.Fatalf("Page() error = %v", err)
		}
		if len(page) != 2 {
			t.Fatalf("len(page) = %d, want 2", len(page))
		}
		if page[0].ID != 30 || page[1].ID != 2 {
			t.Errorf("page ids = [%d %d], want [30 2]", page[0].ID, page[1].ID)
		}
	})

	t.Run("nil cursor returns newest first", func(t *testing.T) {
		page, err := env.messages.Page(ctx, "cht-one", nil, 10)
		if err != nil {
			t.Fatalf("Page() error = %v", err)
		}
		if len(page) != 3 {
			t.Fatalf("len(page) = %d, want 3", len(page))
		}
		if page[0].ID != 50 || page[1].ID != 30 || page[2].ID != 2 {
			t.Errorf("page ids = [%d %d %d], want [50 30 2]", page[0].ID, page[1].ID, page[2].ID)
		}
	})

	t.Run("cursor is strictly less than", func(t *testing.T) {
		before := int64(30)
		page, err := env.messages.Page(ctx, "cht-one", &before, 10)
		if err != nil {
			t.Fatalf("Page() error = %v", err)
		}
		if len(page) != 1 || page[0].ID != 2 {
			t.Errorf("page = %v, want just id 2", page)
		}
	})

	t.Run("cursor before oldest returns empty", func(t *testing.T) {
		before := int64(2)
		page, err := env.messages.Page(ctx, "cht-one", &before, 10)
		if err != nil {
			t.Fatalf("Page() error = %v", err)
		}
		if page == nil || len(page) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", page)
		}
	})

	t.Run("limit below one", func(t *testing.T) {
		for _, limit := range []int{0, -1} {
			if _, err := env.messages.Page(ctx, "cht-one", nil, limit); !errors.Is(err, ErrInvalidLimit) {
				t.Errorf("Page(limit=%d) error = %v, want ErrInvalidLimit", limit, err)
			}
		}
	})

	t.Run("limit of one", func(t *testing.T) {
		page, err := env.messages.Page(ctx, "cht-one", nil, 1)
		if err != nil {
			t.Fatalf("Page() error = %v", err)
		}
		if len(page) != 1 || page[0].ID != 50 {
			t.Errorf("page = %v, want just id 50", page)
		}
	})
}
