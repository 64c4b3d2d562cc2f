package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/parley-core/internal/chat"
)

type addMemberRequest struct {
	UserID string `json:"user_id"`
}

type updateMemberRoleRequest struct {
	Role chat.Role `json:"role"`
}

// handleListMembers returns the member list of a chat, owner first.
func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	actor := userFromContext(r.Context())
	chatID := chi.URLParam(r, "id")

	members, err := s.chats.GetMembers(r.Context(), actor, chatID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"members": members,
		"count":   len(members),
	})
}

// handleAddMember invites a user into the chat. New members always join
// with the DEFAULT role.
func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	actor := userFromContext(r.Context())
	chatID := chi.URLParam(r, "id")

	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		writeBadRequest(w, "user_id is required")
		return
	}

	member, err := s.chats.AddMember(r.Context(), actor, chatID, req.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, member)
}

// handleGetMember returns a single membership row.
func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	actor := userFromContext(r.Context())
	chatID := chi.URLParam(r, "id")
	userID := chi.URLParam(r, "userId")

	member, err := s.chats.GetMember(r.Context(), actor, chatID, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, member)
}

// handleUpdateMemberRole changes a member's role. Promoting to OWNER
// transfers ownership and demotes the current owner to ADMIN.
func (s *Server) handleUpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	actor := userFromContext(r.Context())
	chatID := chi.URLParam(r, "id")
	userID := chi.URLParam(r, "userId")

	var req updateMemberRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	member, err := s.chats.UpdateMemberRole(r.Context(), actor, chatID, userID, req.Role)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, member)
}

// handleRemoveMember removes a member from the chat. Targeting yourself is
// the leave path; the owner must transfer ownership before leaving.
func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	actor := userFromContext(r.Context())
	chatID := chi.URLParam(r, "id")
	userID := chi.URLParam(r, "userId")

	if err := s.chats.RemoveMember(r.Context(), actor, chatID, userID); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
