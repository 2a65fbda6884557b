package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

const mockDimensions = 1536

// MockClient produces deterministic embeddings without any network calls.
// Identical input always yields the identical unit vector, and texts that
// share words produce correlated vectors, so similarity-based tests and
// local development behave predictably.
type MockClient struct {
	dims int
}

func NewMockClient() *MockClient {
	return &MockClient{dims: mockDimensions}
}

// NewMockClientWithDimensions is used by tests that need a small vector size.
func NewMockClientWithDimensions(dims int) *MockClient {
	return &MockClient{dims: dims}
}

func (c *MockClient) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, c.dims)

	// Each word contributes to a handful of hash-selected components.
	// Shared words between two texts produce overlapping components,
	// which makes cosine similarity track lexical overlap.
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(word))
		seed := h.Sum64()
		for i := 0; i < 4; i++ {
			idx := int((seed >> (i * 16)) % uint64(c.dims))
			vec[idx] += 1
		}
	}

	// Normalize to a unit vector so self-similarity is exactly 1.
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}

	return vec, nil
}

func (c *MockClient) Dimensions() int {
	return c.dims
}
