package embedding

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
	"github.com/quangvt/relay/internal/domain"
)

// CachedClient is a read-through cache over an EmbeddingClient. Profile
// texts and repeated queries embed once; everything else passes through.
type CachedClient struct {
	inner domain.EmbeddingClient
	cache *ristretto.Cache
}

// NewCachedClient wraps inner with a ristretto cache sized for maxEntries
// embeddings.
func NewCachedClient(inner domain.EmbeddingClient, maxEntries int64) (*CachedClient, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &CachedClient{inner: inner, cache: cache}, nil
}

func (c *CachedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.cache.Set(text, vec, 1)
	return vec, nil
}

func (c *CachedClient) Dimensions() int {
	return c.inner.Dimensions()
}

// Wait blocks until pending cache writes are visible. Called once after
// registry construction so profile embeddings are served from cache.
func (c *CachedClient) Wait() {
	c.cache.Wait()
}
