// Package main provides the API router setup.
package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spherical-ai/spherical/libs/shopping-assistant/cmd/shopping-assistant-api/handlers"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/cmd/shopping-assistant-api/middleware"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/assistant"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/conversation"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/observability"
)

// AppDeps holds the wired pipeline dependencies the router serves.
type AppDeps struct {
	Coordinator *assistant.Coordinator
	Sessions    *conversation.SessionManager
	Store       *conversation.Store
}

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, deps AppDeps, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(chimiddleware.Timeout(requestTimeout))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"shopping-assistant"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ready"}`))
	})

	chatHandler := handlers.NewChatHandler(logger, deps.Coordinator, deps.Sessions, deps.Store)
	conversationsHandler := handlers.NewConversationsHandler(logger, deps.Store, deps.Sessions)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", chatHandler.Chat)

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationsHandler.List)
			r.Get("/{conversationId}", conversationsHandler.Get)
			r.Delete("/{conversationId}", conversationsHandler.Delete)
		})
	})

	return r
}
