package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/parley-core/internal/auth"
	"github.com/nerrad567/parley-core/internal/chat"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeConflict writes a 409 error response.
func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, ErrCodeConflict, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps chat and auth domain errors onto HTTP responses.
//
// Membership and not-found failures share a single 404 so responses never
// reveal whether a chat the caller cannot see actually exists. State
// conflicts (already a member, owner trying to leave, interrupted role
// change) map to 409. Anything unrecognised is a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		writeUnauthorized(w, "invalid or expired token")
	case errors.Is(err, auth.ErrUserDisabled):
		writeForbidden(w, "account is disabled")
	case errors.Is(err, chat.ErrForbidden):
		writeForbidden(w, "insufficient role for this operation")
	case errors.Is(err, chat.ErrNotMember):
		writeNotFound(w, "chat not found")
	case errors.Is(err, chat.ErrChatNotFound):
		writeNotFound(w, "chat not found")
	case errors.Is(err, chat.ErrMessageNotFound):
		writeNotFound(w, "message not found")
	case errors.Is(err, auth.ErrUserNotFound):
		writeNotFound(w, "user not found")
	case errors.Is(err, chat.ErrAlreadyMember):
		writeConflict(w, "user is already a member")
	case errors.Is(err, chat.ErrInvalidOperation):
		writeConflict(w, "operation conflicts with current chat state")
	case errors.Is(err, chat.ErrConflict):
		writeConflict(w, "concurrent modification, retry the request")
	case errors.Is(err, auth.ErrEmailExists):
		writeConflict(w, "email already registered")
	case errors.Is(err, auth.ErrNicknameExists):
		writeConflict(w, "nickname already taken")
	case errors.Is(err, chat.ErrInvalidName):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "invalid chat name")
	case errors.Is(err, chat.ErrInvalidContent):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "invalid message content")
	case errors.Is(err, chat.ErrInvalidRole):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "invalid role")
	case errors.Is(err, chat.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "limit must be positive")
	default:
		writeInternalError(w, "internal server error")
	}
}
