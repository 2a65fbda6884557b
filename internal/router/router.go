package router

import (
	"context"
	"errors"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/quangvt/relay/internal/domain"
)

var (
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
)

// Scoring weights and reasoning thresholds. The blend favors semantic
// similarity, with keyword and context analysis as corroborating signals.
const (
	semanticWeight = 0.4
	keywordWeight  = 0.3
	contextWeight  = 0.3

	semanticReasonThreshold = 0.7
	keywordReasonThreshold  = 0.3
	contextReasonThreshold  = 0.5
)

// Router scores every registered agent profile against a request and picks
// the highest. Empty input is the only error; every internal failure
// degrades to a weaker signal rather than failing the request.
type Router struct {
	registry *Registry
	embedder domain.EmbeddingClient
	llm      domain.LLMClient
	logger   *zap.Logger
}

func New(registry *Registry, embedder domain.EmbeddingClient, llm domain.LLMClient, logger *zap.Logger) *Router {
	return &Router{
		registry: registry,
		embedder: embedder,
		llm:      llm,
		logger:   logger,
	}
}

// Route picks the best agent for a request. The decision always names a
// valid agent type; when every scoring signal is unavailable it falls back
// to the general agent with low confidence.
func (r *Router) Route(ctx context.Context, prompt string) (*domain.RoutingDecision, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	analysis := r.analyzeContext(ctx, prompt)
	promptVec := r.embedPrompt(ctx, prompt)

	scores := make(map[domain.AgentType]domain.ScoreBreakdown, len(r.registry.Profiles()))

	var best *domain.AgentProfile
	var bestScore domain.ScoreBreakdown
	anySignal := false

	for _, profile := range r.registry.Profiles() {
		semantic := r.semanticScore(promptVec, prompt, profile)
		keyword := keywordScore(prompt, profile)
		contextScore := contextScoreFor(analysis, profile.Type)

		final := semantic*semanticWeight + keyword*keywordWeight + contextScore*contextWeight
		breakdown := domain.ScoreBreakdown{
			Semantic: semantic,
			Keyword:  keyword,
			Context:  contextScore,
			Final:    final,
		}
		scores[profile.Type] = breakdown

		if semantic > 0 || keyword > 0 {
			anySignal = true
		}

		// Strict comparison keeps registration order as the tie-break.
		if best == nil || final > bestScore.Final {
			best = profile
			bestScore = breakdown
		}
	}

	if best == nil || (!anySignal && analysisIsDefault(analysis)) {
		// Nothing to go on at all: both providers down and no keyword hit.
		r.logger.Warn("routing signals unavailable, falling back to general agent")
		return &domain.RoutingDecision{
			AgentType:  domain.AgentGeneral,
			Confidence: 0.1,
			Reasoning:  "no routing signal available",
			Scores:     scores,
			Context:    analysis,
			Fallback:   true,
		}, nil
	}

	return &domain.RoutingDecision{
		AgentType:  best.Type,
		Confidence: bestScore.Final,
		Reasoning:  reasoning(bestScore),
		Scores:     scores,
		Context:    analysis,
	}, nil
}

func (r *Router) analyzeContext(ctx context.Context, prompt string) *domain.ContextAnalysis {
	analysis, err := r.llm.AnalyzeContext(ctx, prompt)
	if err != nil {
		r.logger.Warn("context analysis unavailable, using defaults", zap.Error(err))
		return domain.DefaultContextAnalysis()
	}
	return analysis
}

func (r *Router) embedPrompt(ctx context.Context, prompt string) []float32 {
	vec, err := r.embedder.Embed(ctx, prompt)
	if err != nil {
		r.logger.Warn("prompt embedding unavailable, falling back to keyword similarity", zap.Error(err))
		return nil
	}
	return vec
}

// semanticScore is the cosine similarity between the prompt and the profile
// embedding, clamped at zero. When either embedding is missing it proxies
// with the keyword ratio so the semantic term never silently drops out.
func (r *Router) semanticScore(promptVec []float32, prompt string, profile *domain.AgentProfile) float64 {
	if promptVec == nil || profile.Embedding == nil {
		return keywordScore(prompt, profile)
	}
	sim := cosine(promptVec, profile.Embedding)
	if sim < 0 {
		return 0
	}
	return sim
}

// keywordScore is the fraction of profile keywords found in the prompt.
func keywordScore(prompt string, profile *domain.AgentProfile) float64 {
	if len(profile.Keywords) == 0 {
		return 0
	}
	promptLower := strings.ToLower(prompt)
	matches := 0
	for _, kw := range profile.Keywords {
		if strings.Contains(promptLower, kw) {
			matches++
		}
	}
	return float64(matches) / float64(len(profile.Keywords))
}

// contextScoreFor maps the LLM context analysis onto an agent affinity.
func contextScoreFor(analysis *domain.ContextAnalysis, agent domain.AgentType) float64 {
	score := 0.0

	switch agent {
	case domain.AgentMath:
		if analysis.Intent == "solve" || analysis.Intent == "calculate" {
			score += 0.3
		}
		if analysis.Domain == "math" || analysis.Domain == "science" {
			score += 0.2
		}
		if analysis.Complexity == "complex" {
			score += 0.1
		}
	case domain.AgentResearch:
		if analysis.Intent == "research" || analysis.Intent == "learn" {
			score += 0.3
		}
		if analysis.Domain == "business" || analysis.Domain == "tech" || analysis.Domain == "science" {
			score += 0.2
		}
	case domain.AgentOCR:
		if analysis.Intent == "process" {
			score += 0.3
		}
	case domain.AgentGeneral:
		if analysis.Intent == "help" || analysis.Intent == "learn" {
			score += 0.3
		}
		// General always gets a baseline so it wins when nothing else fits.
		score += 0.1
	}

	return math.Min(score, 1.0)
}

func reasoning(s domain.ScoreBreakdown) string {
	var parts []string
	if s.Semantic > semanticReasonThreshold {
		parts = append(parts, "high semantic similarity")
	}
	if s.Keyword > keywordReasonThreshold {
		parts = append(parts, "strong keyword match")
	}
	if s.Context > contextReasonThreshold {
		parts = append(parts, "context fit")
	}
	if len(parts) == 0 {
		return "combined analysis"
	}
	return strings.Join(parts, "; ")
}

func analysisIsDefault(a *domain.ContextAnalysis) bool {
	d := domain.DefaultContextAnalysis()
	return a.Intent == d.Intent && a.Domain == d.Domain && a.Complexity == d.Complexity
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
