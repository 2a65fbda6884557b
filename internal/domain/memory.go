package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type MemoryType string

// Memory types are an open set: new handler-specific types may be introduced
// without a schema change. These constants cover the types the core writes.
const (
	MemoryTypeFact         MemoryType = "fact"
	MemoryTypePreference   MemoryType = "preference"
	MemoryTypeExperience   MemoryType = "experience"
	MemoryTypeKnowledge    MemoryType = "knowledge"
	MemoryTypeGoal         MemoryType = "goal"
	MemoryTypeSkill        MemoryType = "skill"
	MemoryTypeRelationship MemoryType = "relationship"
	MemoryTypeMathSolution MemoryType = "math_solution"
	MemoryTypeResearch     MemoryType = "research"
	MemoryTypeConversation MemoryType = "conversation"
)

// Namespace isolates memories per (user, session). All vector store
// operations are scoped to exactly one namespace; there is no cross-user
// or cross-session retrieval path.
type Namespace struct {
	UserID    string
	SessionID string
}

// Collection returns the collection/index name for this namespace.
func (n Namespace) Collection() string {
	switch {
	case n.UserID != "" && n.SessionID != "":
		return fmt.Sprintf("user_%s_session_%s", n.UserID, n.SessionID)
	case n.UserID != "":
		return fmt.Sprintf("user_%s_global", n.UserID)
	default:
		return "global"
	}
}

// Memory is a durable long-term knowledge record.
// Invariants: LastAccessed >= CreatedAt; AccessCount never decreases.
type Memory struct {
	ID           uuid.UUID  `json:"id"`
	Content      string     `json:"content"`
	Type         MemoryType `json:"memory_type"`
	Importance   float64    `json:"importance"`
	Tags         []string   `json:"tags,omitempty"`
	Context      string     `json:"context,omitempty"`
	Source       string     `json:"source,omitempty"`
	Embedding    []float32  `json:"-"`
	AccessCount  int        `json:"access_count"`
	CreatedAt    time.Time  `json:"created_at"`
	LastAccessed time.Time  `json:"last_accessed"`
}

// MemoryWithScore pairs a memory with its cosine similarity to a query.
type MemoryWithScore struct {
	Memory
	Similarity float64 `json:"similarity"`
}

// ToMap flattens the record for transport to stores that only accept
// scalar payloads. FromMemoryMap reverses it field for field.
func (m *Memory) ToMap() map[string]any {
	return map[string]any{
		"id":            m.ID.String(),
		"content":       m.Content,
		"memory_type":   string(m.Type),
		"importance":    m.Importance,
		"tags":          append([]string(nil), m.Tags...),
		"context":       m.Context,
		"source":        m.Source,
		"access_count":  m.AccessCount,
		"created_at":    m.CreatedAt.Format(time.RFC3339Nano),
		"last_accessed": m.LastAccessed.Format(time.RFC3339Nano),
	}
}

// FromMemoryMap reconstructs a Memory from a ToMap payload.
func FromMemoryMap(data map[string]any) (*Memory, error) {
	m := &Memory{}

	if s, ok := data["id"].(string); ok && s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse memory id: %w", err)
		}
		m.ID = id
	}

	m.Content, _ = data["content"].(string)
	if s, ok := data["memory_type"].(string); ok {
		m.Type = MemoryType(s)
	}
	m.Importance = toFloat(data["importance"])
	m.Context, _ = data["context"].(string)
	m.Source, _ = data["source"].(string)
	m.AccessCount = int(toFloat(data["access_count"]))

	switch tags := data["tags"].(type) {
	case []string:
		m.Tags = append([]string(nil), tags...)
	case []any:
		for _, t := range tags {
			if s, ok := t.(string); ok {
				m.Tags = append(m.Tags, s)
			}
		}
	}

	var err error
	if m.CreatedAt, err = parseTimestamp(data["created_at"]); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if m.LastAccessed, err = parseTimestamp(data["last_accessed"]); err != nil {
		return nil, fmt.Errorf("parse last_accessed: %w", err)
	}

	return m, nil
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func parseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		if t == "" {
			return time.Time{}, nil
		}
		return time.Parse(time.RFC3339Nano, t)
	case nil:
		return time.Time{}, nil
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
}
