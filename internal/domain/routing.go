package domain

type AgentType string

// The handler set is closed: every routing decision names one of these.
const (
	AgentMath     AgentType = "math"
	AgentResearch AgentType = "research"
	AgentOCR      AgentType = "ocr"
	AgentGeneral  AgentType = "general"
)

func ValidAgentType(t string) bool {
	switch AgentType(t) {
	case AgentMath, AgentResearch, AgentOCR, AgentGeneral:
		return true
	}
	return false
}

// AgentProfile describes one specialized handler for routing purposes.
// Profiles are built once at startup and never mutated afterwards.
type AgentProfile struct {
	Type         AgentType `json:"type"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Keywords     []string  `json:"keywords"`
	Examples     []string  `json:"examples"`
	Capabilities []string  `json:"capabilities"`

	// Embedding of description+keywords+examples, computed at registry load.
	// Nil when the embedding provider was unavailable; the router then
	// degrades to keyword-only scoring for this profile.
	Embedding []float32 `json:"-"`
}

// ContextAnalysis is the LLM-derived classification of a request.
type ContextAnalysis struct {
	Intent        string   `json:"intent"`
	Domain        string   `json:"domain"`
	Complexity    string   `json:"complexity"`
	RequiresTools []string `json:"requires_tools,omitempty"`
	Urgency       string   `json:"urgency,omitempty"`
	Language      string   `json:"language,omitempty"`
}

// DefaultContextAnalysis is the fallback used when the LLM is unavailable
// or returns an unparseable response.
func DefaultContextAnalysis() *ContextAnalysis {
	return &ContextAnalysis{Intent: "unknown", Domain: "general", Complexity: "medium"}
}

// ScoreBreakdown holds the per-candidate routing sub-scores.
type ScoreBreakdown struct {
	Semantic float64 `json:"semantic"`
	Keyword  float64 `json:"keyword"`
	Context  float64 `json:"context"`
	Final    float64 `json:"final"`
}

// RoutingDecision is the router's output for one request.
type RoutingDecision struct {
	AgentType  AgentType                    `json:"agent_type"`
	Confidence float64                      `json:"confidence"`
	Reasoning  string                       `json:"reasoning"`
	Scores     map[AgentType]ScoreBreakdown `json:"scores,omitempty"`
	Context    *ContextAnalysis             `json:"context,omitempty"`
	Fallback   bool                         `json:"fallback,omitempty"`
}
