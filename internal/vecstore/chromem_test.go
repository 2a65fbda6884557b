package vecstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quangvt/relay/internal/domain"
	"github.com/quangvt/relay/internal/embedding"
)

func newTestStore() *ChromemStore {
	return NewChromemStore(embedding.NewMockClientWithDimensions(64))
}

func TestChromemAddAndGet(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	ns := domain.Namespace{UserID: "alice", SessionID: "s1"}

	m := &domain.Memory{
		Content:    "Pythagorean theorem relates the sides of a right triangle",
		Type:       domain.MemoryTypeMathSolution,
		Importance: 0.8,
		Tags:       []string{"geometry"},
	}

	id, err := store.Add(ctx, ns, m)
	require.NoError(t, err)

	got, err := store.Get(ctx, ns, id)
	require.NoError(t, err)
	assert.Equal(t, m.Content, got.Content)
	assert.Equal(t, domain.MemoryTypeMathSolution, got.Type)
	assert.Equal(t, 0, got.AccessCount)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestChromemSearch(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	ns := domain.Namespace{UserID: "alice", SessionID: "s1"}

	_, err := store.Add(ctx, ns, &domain.Memory{
		Content: "giải phương trình bậc hai",
		Type:    domain.MemoryTypeMathSolution,
	})
	require.NoError(t, err)
	_, err = store.Add(ctx, ns, &domain.Memory{
		Content: "tin tức công nghệ hôm nay",
		Type:    domain.MemoryTypeResearch,
	})
	require.NoError(t, err)

	t.Run("finds similar content", func(t *testing.T) {
		results, err := store.Search(ctx, ns, "giải phương trình bậc hai", domain.SearchOpts{TopK: 5, Threshold: 0.5})
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "giải phương trình bậc hai", results[0].Content)
		assert.InDelta(t, 1.0, results[0].Similarity, 0.001)
	})

	t.Run("threshold filters weak matches", func(t *testing.T) {
		results, err := store.Search(ctx, ns, "hoàn toàn khác biệt", domain.SearchOpts{TopK: 5, Threshold: 0.9})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("type filter narrows results", func(t *testing.T) {
		mt := domain.MemoryTypeResearch
		results, err := store.Search(ctx, ns, "tin tức công nghệ hôm nay", domain.SearchOpts{TopK: 5, Threshold: 0.1, MemoryType: &mt})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, domain.MemoryTypeResearch, results[0].Type)
	})

	t.Run("empty namespace returns nothing", func(t *testing.T) {
		results, err := store.Search(ctx, domain.Namespace{UserID: "bob", SessionID: "s9"}, "anything", domain.SearchOpts{TopK: 5})
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestChromemNamespaceIsolation(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	nsA := domain.Namespace{UserID: "alice", SessionID: "s1"}
	nsB := domain.Namespace{UserID: "alice", SessionID: "s2"}

	id, err := store.Add(ctx, nsA, &domain.Memory{Content: "session one fact", Type: domain.MemoryTypeFact})
	require.NoError(t, err)

	_, err = store.Get(ctx, nsB, id)
	assert.ErrorIs(t, err, ErrNotFound)

	results, err := store.Search(ctx, nsB, "session one fact", domain.SearchOpts{TopK: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemDelete(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	ns := domain.Namespace{UserID: "alice", SessionID: "s1"}

	id, err := store.Add(ctx, ns, &domain.Memory{Content: "to be removed", Type: domain.MemoryTypeFact})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, ns, id))

	_, err = store.Get(ctx, ns, id)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, ns, id), ErrNotFound)
}

func TestChromemClear(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	ns := domain.Namespace{UserID: "alice", SessionID: "s1"}

	for _, content := range []string{"one", "two", "three"} {
		_, err := store.Add(ctx, ns, &domain.Memory{Content: content, Type: domain.MemoryTypeFact})
		require.NoError(t, err)
	}

	require.NoError(t, store.Clear(ctx, ns))

	memories, err := store.List(ctx, ns, 10)
	require.NoError(t, err)
	assert.Empty(t, memories)

	// Clearing an already empty namespace is not an error.
	require.NoError(t, store.Clear(ctx, ns))
}

func TestChromemRecordAccess(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	ns := domain.Namespace{UserID: "alice", SessionID: "s1"}

	id, err := store.Add(ctx, ns, &domain.Memory{Content: "accessed fact", Type: domain.MemoryTypeFact})
	require.NoError(t, err)

	require.NoError(t, store.RecordAccess(ctx, ns, id))
	require.NoError(t, store.RecordAccess(ctx, ns, id))

	got, err := store.Get(ctx, ns, id)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AccessCount)
}
