package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Account creation and sign-in (no auth required)
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/signin", s.handleSignin)

		// System metrics (no auth required for basic monitoring)
		r.Get("/metrics", s.handleMetrics)

		// WebSocket (auth via connect frame, validated in the gate)
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/auth/me", s.handleMe)

			// User lookup
			r.Route("/users", func(r chi.Router) {
				r.Get("/", s.handleSearchUsers)
				r.Get("/{id}", s.handleGetUser)
			})

			// Chat endpoints
			r.Route("/chats", func(r chi.Router) {
				r.Get("/", s.handleListChats)
				r.Post("/", s.handleCreateChat)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetChat)
					r.Patch("/", s.handleUpdateChat)
					r.Delete("/", s.handleDeleteChat)

					r.Route("/members", func(r chi.Router) {
						r.Get("/", s.handleListMembers)
						r.Post("/", s.handleAddMember)
						r.Get("/{userId}", s.handleGetMember)
						r.Patch("/{userId}", s.handleUpdateMemberRole)
						r.Delete("/{userId}", s.handleRemoveMember)
					})

					r.Route("/messages", func(r chi.Router) {
						r.Get("/", s.handleListMessages)
						r.Post("/", s.handleSendMessage)
					})
				})
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
