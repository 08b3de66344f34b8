// Package handlers provides HTTP handlers for the shopping assistant API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/assistant"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/catalog"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/conversation"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/observability"
)

// ChatHandler handles conversational turns.
type ChatHandler struct {
	logger      *observability.Logger
	coordinator *assistant.Coordinator
	sessions    *conversation.SessionManager
	store       *conversation.Store
}

// NewChatHandler creates a chat handler.
func NewChatHandler(logger *observability.Logger, coordinator *assistant.Coordinator, sessions *conversation.SessionManager, store *conversation.Store) *ChatHandler {
	return &ChatHandler{
		logger:      logger,
		coordinator: coordinator,
		sessions:    sessions,
		store:       store,
	}
}

// ChatRequestDTO represents the API request for one chat turn.
type ChatRequestDTO struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponseDTO represents the API response for one chat turn.
type ChatResponseDTO struct {
	Reply          string       `json:"reply"`
	ConversationID string       `json:"conversation_id"`
	Products       []ProductDTO `json:"products"`
	Intent         string       `json:"intent"`
}

// ProductDTO represents a verified product in the response.
type ProductDTO struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Brand       string   `json:"brand"`
	Category    string   `json:"category"`
	Price       *float64 `json:"price,omitempty"`
}

// Chat handles POST /api/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqDTO ChatRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if reqDTO.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required", "")
		return
	}

	sessionID := h.sessions.Resolve(reqDTO.SessionID)

	h.sessions.AppendTurn(sessionID, "user", reqDTO.Question)

	// Snapshot copies the session state so a concurrent turn on the same
	// session cannot mutate what this turn reads.
	history, previousProductIDs := h.sessions.Snapshot(sessionID)

	result := h.coordinator.HandleTurn(ctx, reqDTO.Question, history, previousProductIDs)

	h.sessions.AppendTurn(sessionID, "assistant", result.Reply)

	productIDs := make([]int64, 0, len(result.Products))
	for _, p := range result.Products {
		productIDs = append(productIDs, p.ID)
	}
	h.sessions.SetPreviousProducts(sessionID, productIDs)

	// Persistence failures degrade to memory-only history, never the turn.
	if err := h.store.LogMessage(ctx, &conversation.Message{
		ConversationID: sessionID,
		UserID:         sessionID,
		Role:           "user",
		Content:        reqDTO.Question,
	}); err != nil {
		h.logger.Warn().Err(err).Msg("failed to persist user message")
	}
	if err := h.store.LogMessage(ctx, &conversation.Message{
		ConversationID: sessionID,
		UserID:         sessionID,
		Role:           "assistant",
		Content:        result.Reply,
		ProductIDs:     productIDs,
	}); err != nil {
		h.logger.Warn().Err(err).Msg("failed to persist assistant message")
	}

	respDTO := ChatResponseDTO{
		Reply:          result.Reply,
		ConversationID: sessionID,
		Products:       toProductDTOs(result.Products),
		Intent:         string(result.Intent),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(respDTO); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func toProductDTOs(products []catalog.Product) []ProductDTO {
	dtos := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, ProductDTO{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Brand:       p.Brand,
			Category:    p.Category,
			Price:       p.Price,
		})
	}
	return dtos
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]string{
		"error": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	json.NewEncoder(w).Encode(resp)
}
