package auth

import (
	"errors"
	"regexp"
	"time"
)

// nicknamePattern defines the valid format for nicknames:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var nicknamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// maxNicknameLength is the maximum allowed nickname length.
const maxNicknameLength = 64

// IsValidNickname checks if a nickname meets format requirements.
// Nicknames must be 1-64 characters, alphanumeric with dots, hyphens, underscores.
func IsValidNickname(nickname string) bool {
	return len(nickname) <= maxNicknameLength && nicknamePattern.MatchString(nickname)
}

// emailPattern is a loose structural check: something@something.something.
// Deliverability is not our problem; obvious garbage is.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// IsValidEmail checks if an email address is structurally plausible.
func IsValidEmail(email string) bool {
	return len(email) <= 254 && emailPattern.MatchString(email)
}

// User represents a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Nickname     string    `json:"nickname"`
	PasswordHash string    `json:"-"` // never serialised
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserDisabled       = errors.New("user account is disabled")
	ErrEmailExists        = errors.New("email already registered")
	ErrNicknameExists     = errors.New("nickname already taken")
	ErrInvalidToken       = errors.New("invalid token")
)
