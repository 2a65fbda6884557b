package memory

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quangvt/relay/internal/domain"
)

func TestShortTermEviction(t *testing.T) {
	st := NewShortTerm(50)

	for i := 0; i < 51; i++ {
		st.AddUserMessage(fmt.Sprintf("message %d", i))
	}

	msgs := st.GetMessages(0, "")
	require.Len(t, msgs, 50)
	assert.Equal(t, "message 1", msgs[0].Content)
	assert.Equal(t, "message 50", msgs[49].Content)
}

func TestShortTermOrderPreserved(t *testing.T) {
	st := NewShortTerm(10)
	st.AddUserMessage("first")
	st.AddAssistantMessage("second")
	st.AddUserMessage("third")

	msgs := st.GetMessages(0, "")
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
	assert.Equal(t, "third", msgs[2].Content)
}

func TestShortTermFilters(t *testing.T) {
	st := NewShortTerm(10)
	st.AddUserMessage("q1")
	st.AddAssistantMessage("a1")
	st.AddUserMessage("q2")
	st.AddAssistantMessage("a2")
	st.AddSystemMessage("note")

	t.Run("role filter", func(t *testing.T) {
		users := st.GetMessages(0, domain.RoleUser)
		require.Len(t, users, 2)
		assert.Equal(t, "q1", users[0].Content)
		assert.Equal(t, "q2", users[1].Content)
	})

	t.Run("limit keeps newest", func(t *testing.T) {
		last := st.GetMessages(2, "")
		require.Len(t, last, 2)
		assert.Equal(t, "a2", last[0].Content)
		assert.Equal(t, "note", last[1].Content)
	})

	t.Run("limit and role combined", func(t *testing.T) {
		last := st.GetMessages(1, domain.RoleAssistant)
		require.Len(t, last, 1)
		assert.Equal(t, "a2", last[0].Content)
	})
}

func TestShortTermConversationContext(t *testing.T) {
	st := NewShortTerm(10)
	st.AddUserMessage("hello")
	st.AddSystemMessage("routing note")
	st.AddAssistantMessage("hi there")

	withoutSystem := st.ConversationContext(false)
	assert.Equal(t, "user: hello\nassistant: hi there", withoutSystem)

	withSystem := st.ConversationContext(true)
	assert.Contains(t, withSystem, "system: routing note")
}

func TestShortTermRecentContextBudget(t *testing.T) {
	st := NewShortTerm(20)
	for i := 0; i < 10; i++ {
		st.AddUserMessage(strings.Repeat("x", 100))
	}

	// 50 tokens ~ 200 chars: only the newest messages fit.
	out := st.RecentContext(50)
	lines := strings.Split(out, "\n")
	assert.Less(t, len(lines), 10)
	assert.NotEmpty(t, lines)
}

func TestShortTermLastByRole(t *testing.T) {
	st := NewShortTerm(10)
	assert.Nil(t, st.LastUserMessage())

	st.AddUserMessage("q1")
	st.AddAssistantMessage("a1")
	st.AddUserMessage("q2")

	last := st.LastUserMessage()
	require.NotNil(t, last)
	assert.Equal(t, "q2", last.Content)

	lastA := st.LastAssistantMessage()
	require.NotNil(t, lastA)
	assert.Equal(t, "a1", lastA.Content)
}

func TestShortTermExportImport(t *testing.T) {
	st := NewShortTerm(10)
	st.AddUserMessage("one")
	st.AddAssistantMessage("two")

	snapshot := st.Export()

	restored := NewShortTerm(10)
	restored.Import(snapshot)

	assert.Equal(t, st.GetMessages(0, ""), restored.GetMessages(0, ""))

	t.Run("import trims to capacity", func(t *testing.T) {
		small := NewShortTerm(1)
		small.Import(snapshot)
		msgs := small.GetMessages(0, "")
		require.Len(t, msgs, 1)
		assert.Equal(t, "two", msgs[0].Content)
	})
}

func TestShortTermClearAndStats(t *testing.T) {
	st := NewShortTerm(10)
	st.AddUserMessage("hello")
	st.AddAssistantMessage("hi")

	stats := st.Stats()
	assert.Equal(t, 2, stats["total_messages"])
	assert.Equal(t, 10, stats["capacity"])

	st.Clear()
	assert.Equal(t, 0, st.Len())
	assert.Empty(t, st.GetMessages(0, ""))
}
