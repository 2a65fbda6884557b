package llm

import (
	"fmt"

	"github.com/quangvt/relay/internal/domain"
)

// Provider constants
const (
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
	ProviderMock   = "mock"
)

// NewClient creates an LLM client based on the provider name.
// Returns an error if the provider is unknown or the API key is empty (except for mock).
func NewClient(provider, apiKey string) (domain.LLMClient, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI LLM provider")
		}
		return NewOpenAIClient(apiKey), nil

	case ProviderGroq:
		if apiKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY is required for Groq LLM provider")
		}
		return NewGroqClient(apiKey), nil

	case ProviderMock:
		return NewMockClient(), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (valid options: openai, groq, mock)", provider)
	}
}
