package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quangvt/relay/internal/agent"
	"github.com/quangvt/relay/internal/domain"
	"github.com/quangvt/relay/internal/embedding"
	"github.com/quangvt/relay/internal/vecstore"
)

func newTestMemoryHandler(t *testing.T) (*MemoryHandler, *agent.Sessions) {
	t.Helper()
	store := vecstore.NewChromemStore(embedding.NewMockClientWithDimensions(64))
	sessions := agent.NewSessions(store, 0.7, 50, time.Hour, zap.NewNop())
	return NewMemoryHandler(sessions), sessions
}

func TestMemorySearchDefaultLimit(t *testing.T) {
	t.Setenv("MAX_SEARCH_RESULTS", "2")

	h, sessions := newTestMemoryHandler(t)
	lt := sessions.GetOrCreate("alice", "s1").LongTerm

	for i := 0; i < 4; i++ {
		_, err := lt.StoreMemory(context.Background(), "giải phương trình bậc hai", domain.MemoryTypeKnowledge, 0.5, nil, "", "test")
		require.NoError(t, err)
	}

	target := "/v1/memories/search?user_id=alice&session_id=s1&q=" + url.QueryEscape("giải phương trình bậc hai")
	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, target, nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []domain.MemoryWithScore `json:"results"`
		Count   int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, 2)
	assert.Equal(t, 2, resp.Count)
}

func TestMemorySearchRequiresQueryAndUser(t *testing.T) {
	h, _ := newTestMemoryHandler(t)

	t.Run("missing user_id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Search(rec, httptest.NewRequest(http.MethodGet, "/v1/memories/search?q=anything", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing q", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Search(rec, httptest.NewRequest(http.MethodGet, "/v1/memories/search?user_id=alice", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
