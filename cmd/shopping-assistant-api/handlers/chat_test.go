package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/assistant"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/catalog"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/conversation"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/embedding"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/llm"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/observability"
)

func testPrice(v float64) *float64 { return &v }

var handlerCatalog = []catalog.Product{
	{ID: 1, Name: "Trail Runner X", Category: "running shoes", Price: testPrice(80)},
	{ID: 2, Name: "Road Glide", Category: "running shoes", Price: testPrice(95)},
	{ID: 3, Name: "Peak Jacket", Category: "outerwear", Price: testPrice(150)},
}

func newTestChatHandler(t *testing.T, completer llm.Completer) (*ChatHandler, *conversation.Store) {
	t.Helper()

	idx, err := catalog.BuildIndex(context.Background(), handlerCatalog, embedding.NewMockClient(64), catalog.IndexConfig{})
	require.NoError(t, err)

	coordinator := assistant.NewCoordinator(
		assistant.NewClassifier(completer, nil),
		assistant.NewRetriever(idx, nil),
		assistant.NewGrounder(completer, nil),
		nil,
	)

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := conversation.NewStore(db)
	require.NoError(t, store.Migrate(context.Background()))

	sessions := conversation.NewSessionManager(40)
	return NewChatHandler(observability.NopLogger(), coordinator, sessions, store), store
}

func postChat(t *testing.T, handler *ChatHandler, req ChatRequestDTO) (*httptest.ResponseRecorder, ChatResponseDTO) {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.Chat(rec, httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body)))

	var resp ChatResponseDTO
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestChatRejectsEmptyQuestion(t *testing.T) {
	handler, _ := newTestChatHandler(t, &llm.MockCompleter{Responses: []string{"unused"}})

	rec, _ := postChat(t, handler, ChatRequestDTO{Question: ""})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatCarriesPreviousProductsForward(t *testing.T) {
	// Turn one recommends a product; turn two is a price follow-up with no
	// explicit product reference, served from the previous turn's products.
	mock := &llm.MockCompleter{Responses: []string{
		`{"intent": "product_recommendation", "parameters": {"categories": ["running shoes"]}, "context": {}}`,
		"For wet runs I suggest the Trail Runner X.",
		`{"intent": "price_inquiry", "parameters": {}, "context": {}}`,
		"The Trail Runner X costs 80.",
	}}
	handler, store := newTestChatHandler(t, mock)

	rec, first := postChat(t, handler, ChatRequestDTO{Question: "I want waterproof running shoes"})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.NotEmpty(t, first.ConversationID)
	assert.Equal(t, "product_recommendation", first.Intent)
	require.Len(t, first.Products, 1)
	assert.Equal(t, int64(1), first.Products[0].ID)

	rec, second := postChat(t, handler, ChatRequestDTO{
		Question:  "how much is it?",
		SessionID: first.ConversationID,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.Equal(t, "price_inquiry", second.Intent)
	require.Len(t, second.Products, 1)
	assert.Equal(t, int64(1), second.Products[0].ID)

	messages, err := store.GetMessages(context.Background(), first.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 4)
	assert.Equal(t, []int64{1}, messages[1].ProductIDs)
}
