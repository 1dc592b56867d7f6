package embedcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls  int
	vector []float32
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	c.calls++
	return c.vector, nil
}

func (c *countingEmbedder) ModelName() string {
	return "counting"
}

func TestLruEmbedder_CachesByTextAndTask(t *testing.T) {
	inner := &countingEmbedder{vector: []float32{1, 2, 3}}
	e := WrapLruCacheToEmbedder(inner, 16, time.Minute)
	ctx := context.Background()

	v1, err := e.Embed(ctx, "same text", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "same text", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, v1, v2)
	require.Equal(t, 1, inner.calls)

	// Task type is part of the key.
	_, err = e.Embed(ctx, "same text", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)

	// Cached values are copies; mutating one must not poison the cache.
	v1[0] = 99
	v3, err := e.Embed(ctx, "same text", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, float32(1), v3[0])
}

func TestWrapLruCacheToEmbedder_PassthroughOnBadArgs(t *testing.T) {
	inner := &countingEmbedder{vector: []float32{1}}
	require.Equal(t, inner, WrapLruCacheToEmbedder(inner, 0, time.Minute))
	require.Equal(t, inner, WrapLruCacheToEmbedder(inner, 16, 0))
	require.Nil(t, WrapLruCacheToEmbedder(nil, 16, time.Minute))
}
