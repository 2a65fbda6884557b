package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quangvt/relay/internal/domain"
	"github.com/quangvt/relay/internal/embedding"
	"github.com/quangvt/relay/internal/vecstore"
)

func TestSessionsGetOrCreate(t *testing.T) {
	sessions := newTestSessions()

	s1 := sessions.GetOrCreate("alice", "s1")
	s2 := sessions.GetOrCreate("alice", "s1")
	s3 := sessions.GetOrCreate("alice", "s2")

	assert.Same(t, s1, s2)
	assert.NotSame(t, s1, s3)
	assert.Equal(t, 2, sessions.Count())

	assert.Equal(t, "user_alice_session_s1", s1.Namespace.Collection())
}

func TestSessionsDelete(t *testing.T) {
	sessions := newTestSessions()
	sessions.GetOrCreate("alice", "s1")

	assert.True(t, sessions.Delete("alice", "s1"))
	assert.False(t, sessions.Delete("alice", "s1"))
	assert.Equal(t, 0, sessions.Count())

	_, ok := sessions.Get("alice", "s1")
	assert.False(t, ok)
}

func TestSessionsDeleteKeepsLongTermMemories(t *testing.T) {
	store := vecstore.NewChromemStore(embedding.NewMockClientWithDimensions(64))
	sessions := NewSessions(store, 0.7, 50, time.Hour, zap.NewNop())
	ctx := context.Background()

	session := sessions.GetOrCreate("alice", "s1")
	_, err := session.LongTerm.StoreMemory(ctx, "durable fact", domain.MemoryTypeFact, 0.5, nil, "", "")
	require.NoError(t, err)

	sessions.Delete("alice", "s1")

	// A recreated session sees the same namespace and its memories.
	recreated := sessions.GetOrCreate("alice", "s1")
	memories, err := recreated.LongTerm.ListAllMemories(ctx, 10)
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, "durable fact", memories[0].Content)

	// The conversation window starts fresh.
	assert.Equal(t, 0, recreated.ShortTerm.Len())
}

func TestSessionsSweeperExpiresIdle(t *testing.T) {
	store := vecstore.NewChromemStore(embedding.NewMockClientWithDimensions(64))
	sessions := NewSessions(store, 0.7, 50, 50*time.Millisecond, zap.NewNop())

	sessions.GetOrCreate("alice", "old")
	time.Sleep(80 * time.Millisecond)
	sessions.GetOrCreate("alice", "fresh")

	sessions.sweep()

	assert.Equal(t, 1, sessions.Count())
	_, ok := sessions.Get("alice", "fresh")
	assert.True(t, ok)
	_, ok = sessions.Get("alice", "old")
	assert.False(t, ok)
}

func TestSessionsStartStop(t *testing.T) {
	sessions := newTestSessions()
	sessions.Start(10 * time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	sessions.Stop()

	// Stop on a never-started registry is a no-op.
	idle := newTestSessions()
	idle.Stop()
}
