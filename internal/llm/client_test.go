package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain JSON",
			input:    `{"intent": "other"}`,
			expected: `{"intent": "other"}`,
		},
		{
			name:     "json fence",
			input:    "```json\n{\"intent\": \"other\"}\n```",
			expected: `{"intent": "other"}`,
		},
		{
			name:     "bare fence",
			input:    "```\n{\"intent\": \"other\"}\n```",
			expected: `{"intent": "other"}`,
		},
		{
			name:     "surrounding whitespace",
			input:    "  \n```json\n{\"a\": 1}\n```  ",
			expected: `{"a": 1}`,
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripCodeFence(tt.input))
		})
	}
}

func TestClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.NotEmpty(t, req.Messages)

		resp := chatResponse{
			Choices: []chatChoice{
				{Message: Message{Role: "assistant", Content: "hello shopper"}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewClient(Config{
		APIKey:  "test-key",
		Model:   "test-model",
		BaseURL: server.URL,
	})
	require.NoError(t, err)

	reply, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello shopper", reply)
}

func TestClientCompleteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(chatResponse{
			Error: &apiError{Message: "rate limited", Type: "rate_limit"},
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestClientCompleteTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client, err := NewClient(Config{
		APIKey:  "k",
		BaseURL: server.URL,
		Timeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
}

func TestClientRequiresMessages(t *testing.T) {
	client, err := NewClient(Config{APIKey: "k"})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Request{})
	require.Error(t, err)
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestMockCompleterSequence(t *testing.T) {
	mock := &MockCompleter{Responses: []string{"one", "two"}}

	r1, err := mock.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "a"}}})
	require.NoError(t, err)
	r2, err := mock.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "b"}}})
	require.NoError(t, err)
	r3, err := mock.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "c"}}})
	require.NoError(t, err)

	assert.Equal(t, "one", r1)
	assert.Equal(t, "two", r2)
	assert.Equal(t, "two", r3)
	assert.Len(t, mock.Requests, 3)
}
