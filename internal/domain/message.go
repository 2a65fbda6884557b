package domain

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func ValidRole(r string) bool {
	switch Role(r) {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is one turn of conversation held in short-term memory.
type Message struct {
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ChatMessage is the minimal shape passed to LLM chat APIs.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
