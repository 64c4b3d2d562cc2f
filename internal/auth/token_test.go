package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret-key-for-jwt-signing-0123456789"

func TestAuthority_IssueAndVerify(t *testing.T) {
	a := NewAuthority(testSecret, time.Hour)

	token, expiresAt, err := a.Issue("usr-001")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if token == "" {
		t.Fatal("Issue() returned empty token")
	}
	if remaining := time.Until(expiresAt); remaining < 59*time.Minute || remaining > time.Hour {
		t.Errorf("expiresAt %v not within configured TTL", expiresAt)
	}

	userID, err := a.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if userID != "usr-001" {
		t.Errorf("Verify() userID = %q, want %q", userID, "usr-001")
	}
}

func TestAuthority_VerifyExpired(t *testing.T) {
	// Negative TTL produces an already-expired token.
	a := NewAuthority(testSecret, -time.Minute)

	token, _, err := a.Issue("usr-001")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	_, err = a.Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestAuthority_VerifyTampered(t *testing.T) {
	a := NewAuthority(testSecret, time.Hour)

	token, _, err := a.Issue("usr-001")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// Flip a character in the payload segment
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 JWT segments, got %d", len(parts))
	}
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err = a.Verify(tampered)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify(tampered) error = %v, want ErrInvalidToken", err)
	}
}

func TestAuthority_VerifyWrongSecret(t *testing.T) {
	issuer := NewAuthority(testSecret, time.Hour)
	verifier := NewAuthority("a-completely-different-secret-value-42", time.Hour)

	token, _, err := issuer.Issue("usr-001")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	_, err = verifier.Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() with wrong secret error = %v, want ErrInvalidToken", err)
	}
}

func TestAuthority_VerifyGarbage(t *testing.T) {
	a := NewAuthority(testSecret, time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not a jwt", "hello world"},
		{"two segments", "aaaa.bbbb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify(%q) error = %v, want ErrInvalidToken", tt.token, err)
			}
		})
	}
}

func TestAuthority_TTL(t *testing.T) {
	a := NewAuthority(testSecret, 30*time.Minute)
	if a.TTL() != 30*time.Minute {
		t.Errorf("TTL() = %v, want 30m", a.TTL())
	}
}
