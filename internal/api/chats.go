package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type createChatRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	MemberIDs   []string `json:"member_ids"`
}

type updateChatRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// handleListChats returns the caller's chats with last-message previews.
func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	actor := userFromContext(r.Context())

	chats, err := s.chats.ListChats(r.Context(), actor)
	if err != nil {
		s.logger.Error("list chats failed", "error", err, "user_id", actor.ID)
		writeInternalError(w, "failed to list chats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"chats": chats,
		"count": len(chats),
	})
}

// handleCreateChat creates a chat with the caller as owner.
func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	actor := userFromContext(r.Context())

	var req createChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	created, err := s.chats.CreateChat(r.Context(), actor, req.Name, req.Description, req.MemberIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// handleGetChat returns a single chat the caller is a member of.
func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	actor := userFromContext(r.Context())
	chatID := chi.URLParam(r, "id")

	found, err := s.chats.GetChat(r.Context(), actor, chatID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, found)
}

// handleUpdateChat modifies a chat's name and description.
// Absent fields keep their current value.
func (s *Server) handleUpdateChat(w http.ResponseWriter, r *http.Request) {
	actor := userFromContext(r.Context())
	chatID := chi.URLParam(r, "id")

	var req updateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	current, err := s.chats.GetChat(r.Context(), actor, chatID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	name := current.Name
	description := current.Description
	if req.Name != nil {
		name = *req.Name
	}
	if req.Description != nil {
		description = *req.Description
	}

	updated, err := s.chats.UpdateChat(r.Context(), actor, chatID, name, description)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteChat removes a chat and everything in it.
func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	actor := userFromContext(r.Context())
	chatID := chi.URLParam(r, "id")

	if err := s.chats.DeleteChat(r.Context(), actor, chatID); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
