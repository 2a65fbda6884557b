package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quangvt/relay/internal/domain"
	"github.com/quangvt/relay/internal/embedding"
	"github.com/quangvt/relay/internal/router"
	"github.com/quangvt/relay/internal/vecstore"
)

// stubRouter always routes to a fixed agent.
type stubRouter struct {
	agentType domain.AgentType
	err       error
}

func (r *stubRouter) Route(_ context.Context, prompt string) (*domain.RoutingDecision, error) {
	if r.err != nil {
		return nil, r.err
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, router.ErrEmptyPrompt
	}
	return &domain.RoutingDecision{AgentType: r.agentType, Confidence: 0.9, Reasoning: "stub"}, nil
}

// stubHandler records its invocations and returns a canned response.
type stubHandler struct {
	agentType domain.AgentType
	memType   *domain.MemoryType
	response  string
	err       error
	lastReq   HandlerRequest
	calls     int
}

func (h *stubHandler) Type() domain.AgentType         { return h.agentType }
func (h *stubHandler) MemoryType() *domain.MemoryType { return h.memType }
func (h *stubHandler) Handle(_ context.Context, req HandlerRequest) (string, error) {
	h.calls++
	h.lastReq = req
	return h.response, h.err
}

// recordingSink captures document sink appends.
type recordingSink struct {
	pages []string
	texts []string
	err   error
}

func (s *recordingSink) Append(_ context.Context, pageID, text string) error {
	s.pages = append(s.pages, pageID)
	s.texts = append(s.texts, text)
	return s.err
}

func newTestSessions() *Sessions {
	store := vecstore.NewChromemStore(embedding.NewMockClientWithDimensions(64))
	return NewSessions(store, 0.7, 50, time.Hour, zap.NewNop())
}

func mathType() *domain.MemoryType {
	t := domain.MemoryTypeMathSolution
	return &t
}

func TestDispatchWriteBack(t *testing.T) {
	sessions := newTestSessions()
	session := sessions.GetOrCreate("alice", "s1")

	handler := &stubHandler{agentType: domain.AgentMath, memType: mathType(), response: "x = 2"}
	d := NewDispatcher(&stubRouter{agentType: domain.AgentMath}, []Handler{handler}, nil, "", zap.NewNop())

	result, err := d.Handle(context.Background(), session, "Giải phương trình x - 2 = 0")
	require.NoError(t, err)
	assert.Equal(t, domain.AgentMath, result.AgentType)
	assert.Equal(t, "x = 2", result.Response)

	msgs := session.ShortTerm.GetMessages(0, "")
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, "Giải phương trình x - 2 = 0", msgs[0].Content)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "x = 2", msgs[1].Content)
}

func TestDispatchStoresSubstantialResponses(t *testing.T) {
	sessions := newTestSessions()
	ctx := context.Background()

	t.Run("long response stored with handler importance", func(t *testing.T) {
		session := sessions.GetOrCreate("alice", "long")
		long := strings.Repeat("lời giải chi tiết ", 10)
		handler := &stubHandler{agentType: domain.AgentMath, memType: mathType(), response: long}
		d := NewDispatcher(&stubRouter{agentType: domain.AgentMath}, []Handler{handler}, nil, "", zap.NewNop())

		_, err := d.Handle(ctx, session, "giải bài toán khó")
		require.NoError(t, err)

		memories, err := session.LongTerm.ListAllMemories(ctx, 10)
		require.NoError(t, err)
		require.Len(t, memories, 1)
		assert.Equal(t, domain.MemoryTypeMathSolution, memories[0].Type)
		assert.Equal(t, 0.8, memories[0].Importance)
		assert.Contains(t, memories[0].Content, "Problem: giải bài toán khó")
	})

	t.Run("short response not stored", func(t *testing.T) {
		session := sessions.GetOrCreate("alice", "short")
		handler := &stubHandler{agentType: domain.AgentMath, memType: mathType(), response: "x = 2"}
		d := NewDispatcher(&stubRouter{agentType: domain.AgentMath}, []Handler{handler}, nil, "", zap.NewNop())

		_, err := d.Handle(ctx, session, "giải bài toán dễ")
		require.NoError(t, err)

		memories, err := session.LongTerm.ListAllMemories(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, memories)
	})
}

func TestDispatchHandlerErrorWrapped(t *testing.T) {
	sessions := newTestSessions()
	session := sessions.GetOrCreate("alice", "s1")

	handler := &stubHandler{agentType: domain.AgentMath, memType: mathType(), err: errors.New("solver exploded")}
	d := NewDispatcher(&stubRouter{agentType: domain.AgentMath}, []Handler{handler}, nil, "", zap.NewNop())

	result, err := d.Handle(context.Background(), session, "giải phương trình")
	require.NoError(t, err)
	assert.Equal(t, "[math agent] error: solver exploded", result.Response)

	// The failed turn still lands in short-term memory,
	// but no derived long-term memory is written.
	msgs := session.ShortTerm.GetMessages(0, domain.RoleAssistant)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "solver exploded")

	memories, err := session.LongTerm.ListAllMemories(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, memories)
}

func TestDispatchEmptyPromptPropagates(t *testing.T) {
	sessions := newTestSessions()
	session := sessions.GetOrCreate("alice", "s1")

	d := NewDispatcher(&stubRouter{agentType: domain.AgentGeneral}, nil, nil, "", zap.NewNop())

	_, err := d.Handle(context.Background(), session, "   ")
	assert.ErrorIs(t, err, router.ErrEmptyPrompt)
	assert.Equal(t, 0, session.ShortTerm.Len())
}

func TestDispatchRetrievesHandlerMemories(t *testing.T) {
	sessions := newTestSessions()
	session := sessions.GetOrCreate("alice", "s1")
	ctx := context.Background()

	_, err := session.LongTerm.StoreMathSolution(ctx, "giải phương trình x^2 = 4", "x = ±2", "căn bậc hai")
	require.NoError(t, err)

	handler := &stubHandler{agentType: domain.AgentMath, memType: mathType(), response: "done"}
	d := NewDispatcher(&stubRouter{agentType: domain.AgentMath}, []Handler{handler}, nil, "", zap.NewNop())

	_, err = d.Handle(ctx, session, "giải phương trình x^2 = 4")
	require.NoError(t, err)

	require.Equal(t, 1, handler.calls)
	require.NotEmpty(t, handler.lastReq.Memories)
	assert.Equal(t, domain.MemoryTypeMathSolution, handler.lastReq.Memories[0].Type)
}

func TestDispatchOCRSinkAppend(t *testing.T) {
	sessions := newTestSessions()
	ctx := context.Background()

	t.Run("ocr output appended", func(t *testing.T) {
		session := sessions.GetOrCreate("alice", "ocr1")
		sink := &recordingSink{}
		handler := &stubHandler{agentType: domain.AgentOCR, response: "Kết quả OCR từ bai1.png:\n\nnội dung"}
		d := NewDispatcher(&stubRouter{agentType: domain.AgentOCR}, []Handler{handler}, sink, "page-1", zap.NewNop())

		_, err := d.Handle(ctx, session, "Xử lý ảnh bai1.png")
		require.NoError(t, err)

		require.Len(t, sink.pages, 1)
		assert.Equal(t, "page-1", sink.pages[0])
		assert.Contains(t, sink.texts[0], "nội dung")
	})

	t.Run("sink failure does not fail the request", func(t *testing.T) {
		session := sessions.GetOrCreate("alice", "ocr2")
		sink := &recordingSink{err: errors.New("notion down")}
		handler := &stubHandler{agentType: domain.AgentOCR, response: "Kết quả OCR"}
		d := NewDispatcher(&stubRouter{agentType: domain.AgentOCR}, []Handler{handler}, sink, "page-1", zap.NewNop())

		result, err := d.Handle(ctx, session, "Xử lý ảnh bai1.png")
		require.NoError(t, err)
		assert.Equal(t, "Kết quả OCR", result.Response)
	})

	t.Run("non-ocr output not appended", func(t *testing.T) {
		session := sessions.GetOrCreate("alice", "ocr3")
		sink := &recordingSink{}
		handler := &stubHandler{agentType: domain.AgentGeneral, response: "chào bạn"}
		d := NewDispatcher(&stubRouter{agentType: domain.AgentGeneral}, []Handler{handler}, sink, "page-1", zap.NewNop())

		_, err := d.Handle(ctx, session, "xin chào")
		require.NoError(t, err)
		assert.Empty(t, sink.pages)
	})
}

func TestExtractSources(t *testing.T) {
	answer := "Kết luận dựa trên [1].\n\nSources:\nhttps://example.com/a\nhttps://example.com/b\n"
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, extractSources(answer))
	assert.Nil(t, extractSources("no sources section"))
}
