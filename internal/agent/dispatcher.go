package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/quangvt/relay/internal/domain"
	"github.com/quangvt/relay/internal/memory"
)

var (
	ErrUnknownAgentType = errors.New("no handler registered for agent type")
)

const (
	// Memories retrieved before each handler invocation use a broad
	// threshold: weak matches are still useful as background context.
	dispatchMemoryTopK     = 3
	dispatchBroadThreshold = 0.3
	derivedMemoryMinLength = 100
)

// Router picks an agent for a prompt.
type Router interface {
	Route(ctx context.Context, prompt string) (*domain.RoutingDecision, error)
}

// Result is the outcome of one dispatched request.
type Result struct {
	AgentType  domain.AgentType `json:"agent_type"`
	Confidence float64          `json:"confidence"`
	Reasoning  string           `json:"reasoning"`
	Response   string           `json:"response"`
	Fallback   bool             `json:"fallback,omitempty"`
}

// Dispatcher runs the route → retrieve → invoke → remember loop. Handler
// failures become tagged response text; only validation errors propagate.
type Dispatcher struct {
	router         Router
	handlers       map[domain.AgentType]Handler
	sink           domain.DocumentSink
	sinkPageID     string
	broadThreshold float64
	logger         *zap.Logger
}

func NewDispatcher(router Router, handlers []Handler, sink domain.DocumentSink, sinkPageID string, logger *zap.Logger) *Dispatcher {
	byType := make(map[domain.AgentType]Handler, len(handlers))
	for _, h := range handlers {
		byType[h.Type()] = h
	}
	return &Dispatcher{
		router:         router,
		handlers:       byType,
		sink:           sink,
		sinkPageID:     sinkPageID,
		broadThreshold: dispatchBroadThreshold,
		logger:         logger,
	}
}

// SetBroadThreshold overrides the pre-handler recall cutoff.
func (d *Dispatcher) SetBroadThreshold(threshold float64) {
	if threshold > 0 {
		d.broadThreshold = threshold
	}
}

func (d *Dispatcher) Handle(ctx context.Context, session *Session, prompt string) (*Result, error) {
	decision, err := d.router.Route(ctx, prompt)
	if err != nil {
		return nil, err
	}

	handler, ok := d.handlers[decision.AgentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgentType, decision.AgentType)
	}

	req := HandlerRequest{
		Prompt:       prompt,
		Conversation: session.ShortTerm.ConversationContext(false),
	}

	if mt := handler.MemoryType(); mt != nil {
		memories, err := session.LongTerm.RetrieveMemories(ctx, prompt, memory.RetrieveOpts{
			TopK:       dispatchMemoryTopK,
			Threshold:  d.broadThreshold,
			MemoryType: mt,
		})
		if err != nil {
			d.logger.Warn("memory retrieval failed, continuing without context",
				zap.String("agent", string(decision.AgentType)),
				zap.Error(err))
		} else {
			req.Memories = memories
		}
	}

	session.ShortTerm.AddMessage(domain.RoleUser, prompt, map[string]any{
		"agent_type": string(decision.AgentType),
	})

	response, handlerErr := handler.Handle(ctx, req)
	if handlerErr != nil {
		d.logger.Warn("handler failed",
			zap.String("agent", string(decision.AgentType)),
			zap.Error(handlerErr))
		response = fmt.Sprintf("[%s agent] error: %v", decision.AgentType, handlerErr)
	} else {
		d.rememberResponse(ctx, session, decision.AgentType, prompt, response)
		d.appendToSink(ctx, decision.AgentType, response)
	}

	session.ShortTerm.AddMessage(domain.RoleAssistant, response, map[string]any{
		"agent_type":    string(decision.AgentType),
		"memory_stored": handlerErr == nil && len(response) >= derivedMemoryMinLength,
	})

	return &Result{
		AgentType:  decision.AgentType,
		Confidence: decision.Confidence,
		Reasoning:  decision.Reasoning,
		Response:   response,
		Fallback:   decision.Fallback,
	}, nil
}

// rememberResponse stores a derived long-term memory for substantial
// responses. Failures are logged and swallowed: memory is an enhancement,
// never a gate on answering.
func (d *Dispatcher) rememberResponse(ctx context.Context, session *Session, agentType domain.AgentType, prompt, response string) {
	if len(response) < derivedMemoryMinLength {
		return
	}

	var err error
	switch agentType {
	case domain.AgentMath:
		_, err = session.LongTerm.StoreMathSolution(ctx, prompt, response, "llm")
	case domain.AgentResearch:
		_, err = session.LongTerm.StoreResearchFinding(ctx, prompt, response, extractSources(response))
	case domain.AgentGeneral:
		content := fmt.Sprintf("Q: %s\nA: %s", prompt, response)
		_, err = session.LongTerm.StoreMemory(ctx, content, domain.MemoryTypeKnowledge, 0.6,
			[]string{"general", "qa"}, "General knowledge question", "general_agent")
	default:
		return
	}
	if err != nil {
		d.logger.Warn("failed to store derived memory",
			zap.String("agent", string(agentType)),
			zap.Error(err))
	}
}

// appendToSink writes OCR output to the external document sink,
// best-effort.
func (d *Dispatcher) appendToSink(ctx context.Context, agentType domain.AgentType, response string) {
	if agentType != domain.AgentOCR || d.sink == nil || d.sinkPageID == "" {
		return
	}
	if err := d.sink.Append(ctx, d.sinkPageID, response); err != nil {
		d.logger.Warn("document sink append failed", zap.Error(err))
	}
}

// extractSources pulls the links listed after a "Sources:" marker in a
// research answer.
func extractSources(answer string) []string {
	_, after, found := strings.Cut(answer, "Sources:")
	if !found {
		return nil
	}
	var sources []string
	for _, line := range strings.Split(after, "\n") {
		if l := strings.TrimSpace(line); l != "" {
			sources = append(sources, l)
		}
	}
	return sources
}
