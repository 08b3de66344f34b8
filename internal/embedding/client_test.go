package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/cache"
)

func TestMockClientDeterministic(t *testing.T) {
	client := NewMockClient(64)
	ctx := context.Background()

	first, err := client.EmbedSingle(ctx, "waterproof running shoes")
	require.NoError(t, err)
	second, err := client.EmbedSingle(ctx, "waterproof running shoes")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)

	other, err := client.EmbedSingle(ctx, "insulated hiking jacket")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestClientEmbedOrdersByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req EmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Input, 2)

		// Return data out of order; the client must restore input order.
		resp := EmbeddingResponse{
			Data: []EmbeddingData{
				{Index: 1, Embedding: []float32{2, 2}},
				{Index: 0, Embedding: []float32{1, 1}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	vectors, err := client.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 1}, vectors[0])
	assert.Equal(t, []float32{2, 2}, vectors[1])
}

func TestClientDimensionStableAcrossEmbeds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(EmbeddingResponse{
			Data: []EmbeddingData{{Index: 0, Embedding: []float32{1, 2, 3}}},
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: server.URL, Dimension: 768})
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)

	assert.Equal(t, 768, client.Dimension())
}

func TestClientEmbedAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(EmbeddingResponse{
			Error: &EmbeddingError{Message: "bad key", Type: "auth"},
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "wrong", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

// countingEmbedder counts EmbedSingle calls under the cached wrapper.
type countingEmbedder struct {
	MockClient
	singles int
}

func (c *countingEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	c.singles++
	return c.MockClient.EmbedSingle(ctx, text)
}

func TestCachedEmbedderHitsCacheOnRepeat(t *testing.T) {
	inner := &countingEmbedder{MockClient: *NewMockClient(32)}
	cached := NewCachedEmbedder(inner, cache.NewMemoryClient(100), time.Minute)
	ctx := context.Background()

	first, err := cached.EmbedSingle(ctx, "running shoes")
	require.NoError(t, err)
	second, err := cached.EmbedSingle(ctx, "running shoes")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.singles, "second lookup must be served from cache")

	_, err = cached.EmbedSingle(ctx, "hiking jacket")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.singles)
}
