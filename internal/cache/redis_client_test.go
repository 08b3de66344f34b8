package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClientGetSet(t *testing.T) {
	client := NewMemoryClient(100)
	defer client.Close()
	ctx := context.Background()

	_, err := client.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, client.Set(ctx, "key1", []byte("value1"), time.Minute))

	val, err := client.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, []byte("value1"), val)
}

func TestMemoryClientExpiry(t *testing.T) {
	client := NewMemoryClient(100)
	defer client.Close()
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "short", []byte("v"), time.Nanosecond))
	time.Sleep(5 * time.Millisecond)

	_, err := client.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClientDelete(t *testing.T) {
	client := NewMemoryClient(100)
	defer client.Close()
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "key1", []byte("v"), time.Minute))
	require.NoError(t, client.Delete(ctx, "key1"))

	_, err := client.Get(ctx, "key1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClientDeleteByPrefix(t *testing.T) {
	client := NewMemoryClient(100)
	defer client.Close()
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "emb:model:a", []byte("1"), time.Minute))
	require.NoError(t, client.Set(ctx, "emb:model:b", []byte("2"), time.Minute))
	require.NoError(t, client.Set(ctx, "other:c", []byte("3"), time.Minute))

	require.NoError(t, client.DeleteByPrefix(ctx, "emb:"))

	_, err := client.Get(ctx, "emb:model:a")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = client.Get(ctx, "emb:model:b")
	assert.ErrorIs(t, err, ErrCacheMiss)

	val, err := client.Get(ctx, "other:c")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), val)
}

func TestMemoryClientEviction(t *testing.T) {
	client := NewMemoryClient(2)
	defer client.Close()
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, client.Set(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, client.Set(ctx, "c", []byte("3"), time.Hour))

	// "a" expires soonest and is evicted to make room.
	_, err := client.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClientCloseStopsCleanup(t *testing.T) {
	client := NewMemoryClient(100)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	select {
	case <-client.done:
	default:
		t.Fatal("done channel must be closed after Close")
	}
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "emb:model:abc", CacheKey("emb", "model", "abc"))
	assert.Equal(t, "single", CacheKey("single"))
}

func TestEmbeddingKeyStableAndBounded(t *testing.T) {
	k1 := EmbeddingKey("qwen/qwen3-embedding-8b", "running shoes")
	k2 := EmbeddingKey("qwen/qwen3-embedding-8b", "running shoes")
	k3 := EmbeddingKey("qwen/qwen3-embedding-8b", "hiking boots")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)

	long := make([]byte, 1<<16)
	kLong := EmbeddingKey("m", string(long))
	assert.Less(t, len(kLong), 100)
}
