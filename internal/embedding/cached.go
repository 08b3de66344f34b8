package embedding

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/cache"
)

// CachedEmbedder wraps an Embedder with a cache for single-text lookups.
// Embedding generation is deterministic per model, so cached vectors stay
// valid for the cache TTL without invalidation hooks.
type CachedEmbedder struct {
	inner Embedder
	cache cache.Client
	ttl   time.Duration
}

// NewCachedEmbedder creates a caching wrapper around an embedder.
func NewCachedEmbedder(inner Embedder, c cache.Client, ttl time.Duration) *CachedEmbedder {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedEmbedder{inner: inner, cache: c, ttl: ttl}
}

// Embed passes through to the underlying embedder. Batch calls are used
// during index builds where each text is seen once, so caching buys nothing.
func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return e.inner.Embed(ctx, texts)
}

// EmbedSingle checks the cache before calling the underlying embedder.
// Cache failures fall back to the embedder rather than failing the lookup.
func (e *CachedEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	key := cache.EmbeddingKey(e.inner.Model(), text)

	if data, err := e.cache.Get(ctx, key); err == nil {
		var vec []float32
		if err := json.Unmarshal(data, &vec); err == nil && len(vec) > 0 {
			return vec, nil
		}
	}

	vec, err := e.inner.EmbedSingle(ctx, text)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(vec); err == nil {
		_ = e.cache.Set(ctx, key, data, e.ttl)
	}

	return vec, nil
}

// Model returns the underlying model name.
func (e *CachedEmbedder) Model() string {
	return e.inner.Model()
}

// Dimension returns the underlying embedding dimension.
func (e *CachedEmbedder) Dimension() int {
	return e.inner.Dimension()
}
