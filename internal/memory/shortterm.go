package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/quangvt/relay/internal/domain"
)

// DefaultShortTermSize is the sliding window capacity when none is given.
const DefaultShortTermSize = 50

// ShortTerm is the per-session sliding window of conversation turns. When
// the window is full, appending evicts the oldest message. Safe for
// concurrent use.
type ShortTerm struct {
	mu       sync.RWMutex
	messages []domain.Message
	capacity int
}

func NewShortTerm(capacity int) *ShortTerm {
	if capacity <= 0 {
		capacity = DefaultShortTermSize
	}
	return &ShortTerm{
		messages: make([]domain.Message, 0, capacity),
		capacity: capacity,
	}
}

// AddMessage appends a turn, evicting the oldest when the window is full.
func (s *ShortTerm) AddMessage(role domain.Role, content string, metadata map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.messages) >= s.capacity {
		s.messages = s.messages[1:]
	}
	s.messages = append(s.messages, domain.Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	})
}

func (s *ShortTerm) AddUserMessage(content string) {
	s.AddMessage(domain.RoleUser, content, nil)
}

func (s *ShortTerm) AddAssistantMessage(content string) {
	s.AddMessage(domain.RoleAssistant, content, nil)
}

func (s *ShortTerm) AddSystemMessage(content string) {
	s.AddMessage(domain.RoleSystem, content, nil)
}

// GetMessages returns the most recent messages, oldest first. A positive
// limit caps the count; a non-empty role keeps only that role's turns.
func (s *ShortTerm) GetMessages(limit int, role domain.Role) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages
	if role != "" {
		filtered := make([]domain.Message, 0, len(msgs))
		for _, m := range msgs {
			if m.Role == role {
				filtered = append(filtered, m)
			}
		}
		msgs = filtered
	}

	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out
}

// ConversationContext renders the window as "role: content" lines for
// prompt assembly. System turns are skipped unless includeSystem is set.
func (s *ShortTerm) ConversationContext(includeSystem bool) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	for _, m := range s.messages {
		if m.Role == domain.RoleSystem && !includeSystem {
			continue
		}
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// RecentContext renders the newest turns that fit a rough token budget,
// oldest first. Token count is approximated as four characters per token.
func (s *ShortTerm) RecentContext(maxTokens int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if maxTokens <= 0 {
		maxTokens = 1000
	}
	budget := maxTokens * 4

	var lines []string
	used := 0
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		line := string(m.Role) + ": " + m.Content
		if used+len(line) > budget && len(lines) > 0 {
			break
		}
		lines = append(lines, line)
		used += len(line)
	}

	// Reverse back into chronological order.
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return strings.Join(lines, "\n")
}

// LastUserMessage returns the newest user turn, or nil if there is none.
func (s *ShortTerm) LastUserMessage() *domain.Message {
	return s.lastByRole(domain.RoleUser)
}

// LastAssistantMessage returns the newest assistant turn, or nil if there is none.
func (s *ShortTerm) LastAssistantMessage() *domain.Message {
	return s.lastByRole(domain.RoleAssistant)
}

func (s *ShortTerm) lastByRole(role domain.Role) *domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == role {
			m := s.messages[i]
			return &m
		}
	}
	return nil
}

func (s *ShortTerm) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = s.messages[:0]
}

func (s *ShortTerm) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Stats summarizes the window for session introspection endpoints.
func (s *ShortTerm) Stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[string]int{}
	for _, m := range s.messages {
		counts[string(m.Role)]++
	}

	stats := map[string]any{
		"total_messages": len(s.messages),
		"capacity":       s.capacity,
		"role_counts":    counts,
	}
	if len(s.messages) > 0 {
		stats["oldest_timestamp"] = s.messages[0].Timestamp
		stats["newest_timestamp"] = s.messages[len(s.messages)-1].Timestamp
	}
	return stats
}

// Export snapshots the window for persistence across restarts.
func (s *ShortTerm) Export() []domain.Message {
	return s.GetMessages(0, "")
}

// Import replaces the window contents, trimming to capacity from the front.
func (s *ShortTerm) Import(messages []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(messages) > s.capacity {
		messages = messages[len(messages)-s.capacity:]
	}
	s.messages = make([]domain.Message, len(messages))
	copy(s.messages, messages)
}
