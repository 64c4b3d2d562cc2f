package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func signupBody(email, nickname, password string) *strings.Reader {
	b, _ := json.Marshal(map[string]string{ //nolint:errcheck // static input
		"email":    email,
		"nickname": nickname,
		"password": password,
	})
	return strings.NewReader(string(b))
}

func TestSignup(t *testing.T) {
	a := testServer(t)

	w := a.doJSON(t, http.MethodPost, "/api/v1/auth/signup", "", signupBody("alice@example.com", "alice", "correct-horse-battery"))

	if w.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var resp tokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("expected access token")
	}
	if resp.TokenType != "Bearer" {
		t.Errorf("token_type = %q, want Bearer", resp.TokenType)
	}
	if resp.User == nil || resp.User.Nickname != "alice" {
		t.Errorf("user = %+v, want nickname alice", resp.User)
	}

	// The token must be usable immediately.
	me := a.doJSON(t, http.MethodGet, "/api/v1/auth/me", resp.AccessToken, nil)
	if me.Code != http.StatusOK {
		t.Errorf("me status = %d, want %d", me.Code, http.StatusOK)
	}
}

func TestSignup_Validation(t *testing.T) {
	a := testServer(t)

	tests := []struct {
		name     string
		email    string
		nickname string
		password string
	}{
		{"bad email", "not-an-email", "alice", "correct-horse-battery"},
		{"empty nickname", "alice@example.com", "", "correct-horse-battery"},
		{"nickname with spaces", "alice@example.com", "al ice", "correct-horse-battery"},
		{"short password", "alice@example.com", "alice", "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.doJSON(t, http.MethodPost, "/api/v1/auth/signup", "", signupBody(tt.email, tt.nickname, tt.password))
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestSignup_DuplicateConflicts(t *testing.T) {
	a := testServer(t)

	w := a.doJSON(t, http.MethodPost, "/api/v1/auth/signup", "", signupBody("alice@example.com", "alice", "correct-horse-battery"))
	if w.Code != http.StatusCreated {
		t.Fatalf("first signup status = %d, want %d", w.Code, http.StatusCreated)
	}

	// Same email, different nickname.
	w = a.doJSON(t, http.MethodPost, "/api/v1/auth/signup", "", signupBody("alice@example.com", "alice2", "correct-horse-battery"))
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate email status = %d, want %d", w.Code, http.StatusConflict)
	}

	// Same nickname, different email.
	w = a.doJSON(t, http.MethodPost, "/api/v1/auth/signup", "", signupBody("alice2@example.com", "alice", "correct-horse-battery"))
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate nickname status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestSignin(t *testing.T) {
	a := testServer(t)

	w := a.doJSON(t, http.MethodPost, "/api/v1/auth/signup", "", signupBody("alice@example.com", "alice", "correct-horse-battery"))
	if w.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, want %d", w.Code, http.StatusCreated)
	}

	body := strings.NewReader(`{"email": "alice@example.com", "password": "correct-horse-battery"}`)
	w = a.doJSON(t, http.MethodPost, "/api/v1/auth/signin", "", body)
	if w.Code != http.StatusOK {
		t.Fatalf("signin status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp tokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("expected access token")
	}
}

func TestSignin_Failures(t *testing.T) {
	a := testServer(t)

	w := a.doJSON(t, http.MethodPost, "/api/v1/auth/signup", "", signupBody("alice@example.com", "alice", "correct-horse-battery"))
	if w.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, want %d", w.Code, http.StatusCreated)
	}

	t.Run("wrong password", func(t *testing.T) {
		body := strings.NewReader(`{"email": "alice@example.com", "password": "wrong"}`)
		w := a.doJSON(t, http.MethodPost, "/api/v1/auth/signin", "", body)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		body := strings.NewReader(`{"email": "ghost@example.com", "password": "correct-horse-battery"}`)
		w := a.doJSON(t, http.MethodPost, "/api/v1/auth/signin", "", body)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("disabled account", func(t *testing.T) {
		if _, err := a.db.Exec(`UPDATE users SET enabled = 0 WHERE email = 'alice@example.com'`); err != nil {
			t.Fatalf("disabling user: %v", err)
		}
		body := strings.NewReader(`{"email": "alice@example.com", "password": "correct-horse-battery"}`)
		w := a.doJSON(t, http.MethodPost, "/api/v1/auth/signin", "", body)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}

func TestMe(t *testing.T) {
	a := testServer(t)
	user := a.seedUser(t, "usr-alice", "alice")
	token := a.tokenFor(t, user.ID)

	w := a.doJSON(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["id"] != user.ID {
		t.Errorf("id = %v, want %s", resp["id"], user.ID)
	}
	if _, leaked := resp["password_hash"]; leaked {
		t.Error("password_hash must not appear in responses")
	}
}
