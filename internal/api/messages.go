package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// defaultMessagePageSize is the page size when the client omits limit.
const defaultMessagePageSize = 50

type sendMessageRequest struct {
	Content string `json:"content"`
}

// handleListMessages returns a page of messages, newest first.
//
// Pagination is cursor-based: pass before_id from the oldest message of the
// previous page to fetch the next one. The cursor is stable under
// concurrent sends; new messages never shift earlier pages.
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	actor := userFromContext(r.Context())
	chatID := chi.URLParam(r, "id")

	limit := defaultMessagePageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		limit = parsed
	}

	var beforeID *int64
	if raw := r.URL.Query().Get("before_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeBadRequest(w, "before_id must be an integer")
			return
		}
		beforeID = &parsed
	}

	messages, err := s.chats.GetMessages(r.Context(), actor, chatID, beforeID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": messages,
		"count":    len(messages),
	})
}

// handleSendMessage stores a message and broadcasts it to WebSocket
// subscribers of the chat's message topic.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	actor := userFromContext(r.Context())
	chatID := chi.URLParam(r, "id")

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	message, err := s.chats.SendMessage(r.Context(), actor, chatID, req.Content)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if s.influx != nil {
		s.influx.WriteMessageMetric(chatID, len(req.Content))
	}

	writeJSON(w, http.StatusCreated, message)
}
