package llm

import (
	"context"
	"testing"

	"github.com/quangvt/relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContextAnalysis(t *testing.T) {
	t.Run("valid JSON", func(t *testing.T) {
		analysis, err := ParseContextAnalysis(`{
			"intent": "solve",
			"domain": "math",
			"complexity": "complex",
			"requires_tools": ["calculator"],
			"urgency": "low",
			"language": "vi"
		}`)
		require.NoError(t, err)
		assert.Equal(t, "solve", analysis.Intent)
		assert.Equal(t, "math", analysis.Domain)
		assert.Equal(t, "complex", analysis.Complexity)
		assert.Equal(t, []string{"calculator"}, analysis.RequiresTools)
	})

	t.Run("markdown fence stripped", func(t *testing.T) {
		analysis, err := ParseContextAnalysis("```json\n{\"intent\": \"research\", \"domain\": \"tech\"}\n```")
		require.NoError(t, err)
		assert.Equal(t, "research", analysis.Intent)
		assert.Equal(t, "tech", analysis.Domain)
	})

	t.Run("missing fields get defaults", func(t *testing.T) {
		analysis, err := ParseContextAnalysis(`{"urgency": "high"}`)
		require.NoError(t, err)
		assert.Equal(t, "unknown", analysis.Intent)
		assert.Equal(t, "general", analysis.Domain)
		assert.Equal(t, "medium", analysis.Complexity)
		assert.Equal(t, "high", analysis.Urgency)
	})

	t.Run("malformed output is an error", func(t *testing.T) {
		_, err := ParseContextAnalysis("I think this question is about math.")
		assert.Error(t, err)
	})
}

func TestMockClientResponses(t *testing.T) {
	client := NewMockClient()
	client.Responses = []string{"first", "second"}
	client.Response = "fallback"

	ctx := context.Background()

	got, err := client.Complete(ctx, nil, domain.CompleteOpts{})
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	got, err = client.Complete(ctx, nil, domain.CompleteOpts{})
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	got, err = client.Complete(ctx, nil, domain.CompleteOpts{})
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)

	assert.Len(t, client.CompleteCalls, 3)
}
