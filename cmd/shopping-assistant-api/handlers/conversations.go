package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/conversation"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/observability"
)

// ConversationsHandler serves stored conversation history.
type ConversationsHandler struct {
	logger   *observability.Logger
	store    *conversation.Store
	sessions *conversation.SessionManager
}

// NewConversationsHandler creates a conversations handler.
func NewConversationsHandler(logger *observability.Logger, store *conversation.Store, sessions *conversation.SessionManager) *ConversationsHandler {
	return &ConversationsHandler{
		logger:   logger,
		store:    store,
		sessions: sessions,
	}
}

// List handles GET /api/conversations.
func (h *ConversationsHandler) List(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.store.ListConversations(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list conversations")
		writeError(w, http.StatusInternalServerError, "failed to list conversations", "")
		return
	}

	if conversations == nil {
		conversations = []conversation.Conversation{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conversations)
}

// Get handles GET /api/conversations/{conversationId}.
func (h *ConversationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationId")

	messages, err := h.store.GetMessages(r.Context(), conversationID)
	if err != nil {
		h.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to get conversation")
		writeError(w, http.StatusInternalServerError, "failed to get conversation", "")
		return
	}

	if messages == nil {
		messages = []conversation.Message{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}

// Delete handles DELETE /api/conversations/{conversationId}.
func (h *ConversationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationId")

	if err := h.store.DeleteConversation(r.Context(), conversationID); err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found", "")
			return
		}
		h.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to delete conversation")
		writeError(w, http.StatusInternalServerError, "failed to delete conversation", "")
		return
	}

	h.sessions.Delete(conversationID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Conversation deleted successfully"})
}
