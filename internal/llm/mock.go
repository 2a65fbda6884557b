package llm

import (
	"context"
	"sync"

	"github.com/quangvt/relay/internal/domain"
)

// MockClient is an LLM client for tests and offline development. Responses
// are configurable and every call is recorded.
type MockClient struct {
	mu sync.Mutex

	// Response returned by Complete when Responses is exhausted or empty.
	Response string
	// Responses are returned in order, one per Complete call.
	Responses []string
	// Err, when set, is returned by every call.
	Err error
	// Analysis is returned by AnalyzeContext when set; otherwise defaults.
	Analysis *domain.ContextAnalysis

	CompleteCalls [][]domain.ChatMessage
	AnalyzeCalls  []string
}

func NewMockClient() *MockClient {
	return &MockClient{Response: "mock response"}
}

func (c *MockClient) Complete(_ context.Context, messages []domain.ChatMessage, _ domain.CompleteOpts) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.CompleteCalls = append(c.CompleteCalls, messages)
	if c.Err != nil {
		return "", c.Err
	}
	if len(c.Responses) > 0 {
		resp := c.Responses[0]
		c.Responses = c.Responses[1:]
		return resp, nil
	}
	return c.Response, nil
}

func (c *MockClient) AnalyzeContext(_ context.Context, prompt string) (*domain.ContextAnalysis, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.AnalyzeCalls = append(c.AnalyzeCalls, prompt)
	if c.Err != nil {
		return nil, c.Err
	}
	if c.Analysis != nil {
		copied := *c.Analysis
		return &copied, nil
	}
	return domain.DefaultContextAnalysis(), nil
}
