package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/parley-core/internal/auth"
)

// handleGetUser returns a single user by ID.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("get user failed", "error", err)
		writeInternalError(w, "failed to get user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleSearchUsers finds enabled users by nickname prefix or fragment.
// Used by clients to pick members when creating a chat or inviting.
func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("nickname")
	if query == "" {
		writeBadRequest(w, "nickname query parameter is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	users, err := s.users.SearchByNickname(r.Context(), query, limit)
	if err != nil {
		s.logger.Error("search users failed", "error", err)
		writeInternalError(w, "failed to search users")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"count": len(users),
	})
}
