package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRoundTrip(t *testing.T) {
	price := 129.99

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "waterproof shoes?", req.Question)
		assert.Equal(t, "sess-1", req.SessionID)

		json.NewEncoder(w).Encode(ChatResponse{
			Reply:          "Try the Trail Runner X.",
			ConversationID: "sess-1",
			Intent:         "product_recommendation",
			Products: []Product{
				{ID: 1, Name: "Trail Runner X", Category: "Shoes", Price: &price},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL})
	require.NoError(t, err)

	resp, err := client.Chat(context.Background(), ChatRequest{
		Question:  "waterproof shoes?",
		SessionID: "sess-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "Try the Trail Runner X.", resp.Reply)
	assert.Equal(t, "sess-1", resp.ConversationID)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, int64(1), resp.Products[0].ID)
	require.NotNil(t, resp.Products[0].Price)
	assert.Equal(t, price, *resp.Products[0].Price)
}

func TestListConversations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/conversations/", r.URL.Path)

		json.NewEncoder(w).Encode([]Conversation{
			{ID: "conv-1", UserID: "user-1", LastMessage: "thanks"},
		})
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL})
	require.NoError(t, err)

	conversations, err := client.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	assert.Equal(t, "conv-1", conversations[0].ID)
}

func TestDeleteConversationErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "conversation not found"})
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL})
	require.NoError(t, err)

	err = client.DeleteConversation(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL})
	require.NoError(t, err)

	assert.NoError(t, client.Health(context.Background()))
}
