package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/nerrad567/parley-core/internal/auth"
)

// minPasswordLength is the minimum accepted password length for signup.
const minPasswordLength = 8

// signupRequest is the request body for POST /auth/signup.
type signupRequest struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

// signinRequest is the request body for POST /auth/signin.
type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse is the response body for successful signup and signin.
type tokenResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresAt   time.Time  `json:"expires_at"`
	User        *auth.User `json:"user"`
}

// handleSignup registers a new account and returns a token for it.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if !auth.IsValidEmail(req.Email) {
		writeBadRequest(w, "invalid email address")
		return
	}
	if !auth.IsValidNickname(req.Nickname) {
		writeBadRequest(w, "nickname must be 1-64 characters (letters, digits, '.', '_', '-')")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeBadRequest(w, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hash password failed", "error", err)
		writeInternalError(w, "failed to create account")
		return
	}

	user := &auth.User{
		Email:        req.Email,
		Nickname:     req.Nickname,
		PasswordHash: hash,
		Enabled:      true,
	}

	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) || errors.Is(err, auth.ErrNicknameExists) {
			writeDomainError(w, err)
			return
		}
		s.logger.Error("create user failed", "error", err)
		writeInternalError(w, "failed to create account")
		return
	}

	token, expiresAt, err := s.authority.Issue(user.ID)
	if err != nil {
		s.logger.Error("issue token failed", "error", err)
		writeInternalError(w, "failed to create account")
		return
	}

	s.logger.Info("user signed up", "user_id", user.ID, "nickname", user.Nickname)
	s.recordAuthEvent("signup", "success")

	writeJSON(w, http.StatusCreated, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        user,
	})
}

// handleSignin authenticates an account by email and password.
//
// A wrong email, a wrong password, and a disabled account all produce the
// same 401 so the response does not confirm which accounts exist.
func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		s.recordAuthEvent("signin", "failure")
		writeUnauthorized(w, "invalid credentials")
		return
	}

	match, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !match {
		s.recordAuthEvent("signin", "failure")
		writeUnauthorized(w, "invalid credentials")
		return
	}

	if !user.Enabled {
		s.recordAuthEvent("signin", "disabled")
		writeUnauthorized(w, "invalid credentials")
		return
	}

	token, expiresAt, err := s.authority.Issue(user.ID)
	if err != nil {
		s.logger.Error("issue token failed", "error", err)
		writeInternalError(w, "failed to sign in")
		return
	}

	s.recordAuthEvent("signin", "success")

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        user,
	})
}

// handleMe returns the account behind the presented token.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFromContext(r.Context()))
}

// recordAuthEvent writes an auth outcome to the telemetry sink, if configured.
func (s *Server) recordAuthEvent(event, outcome string) {
	if s.influx != nil {
		s.influx.WriteAuthMetric(event, outcome)
	}
}
