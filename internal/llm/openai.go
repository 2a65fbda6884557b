package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/quangvt/relay/internal/domain"
)

const (
	openAIChatURL = "https://api.openai.com/v1/chat/completions"
	openAIModel   = "gpt-4o-mini"

	groqChatURL = "https://api.groq.com/openai/v1/chat/completions"
	groqModel   = "openai/gpt-oss-20b"
)

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint.
type OpenAIClient struct {
	apiKey     string
	chatURL    string
	model      string
	httpClient *http.Client
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:     apiKey,
		chatURL:    openAIChatURL,
		model:      openAIModel,
		httpClient: &http.Client{},
	}
}

// NewGroqClient returns a client for Groq's OpenAI-compatible API.
func NewGroqClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:     apiKey,
		chatURL:    groqChatURL,
		model:      groqModel,
		httpClient: &http.Client{},
	}
}

type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	Temperature float32              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) Complete(ctx context.Context, messages []domain.ChatMessage, opts domain.CompleteOpts) (string, error) {
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal chat response: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("chat API error: %s", result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

func (c *OpenAIClient) AnalyzeContext(ctx context.Context, prompt string) (*domain.ContextAnalysis, error) {
	raw, err := c.Complete(ctx, []domain.ChatMessage{
		{Role: "user", Content: fmt.Sprintf(contextAnalysisPrompt, prompt)},
	}, domain.CompleteOpts{Temperature: 0.3, MaxTokens: 200})
	if err != nil {
		return nil, err
	}

	return ParseContextAnalysis(raw)
}

// ParseContextAnalysis validates LLM output into a ContextAnalysis, filling
// defaults for missing fields. Malformed JSON is an error; the caller falls
// back to DefaultContextAnalysis rather than surfacing it.
func ParseContextAnalysis(raw string) (*domain.ContextAnalysis, error) {
	// Models occasionally wrap JSON in a markdown fence despite instructions.
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var analysis domain.ContextAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return nil, fmt.Errorf("unmarshal context analysis: %w", err)
	}

	if analysis.Intent == "" {
		analysis.Intent = "unknown"
	}
	if analysis.Domain == "" {
		analysis.Domain = "general"
	}
	if analysis.Complexity == "" {
		analysis.Complexity = "medium"
	}

	return &analysis, nil
}
