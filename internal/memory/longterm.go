package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quangvt/relay/internal/domain"
)

var (
	ErrContentEmpty = errors.New("memory content cannot be empty")
)

// RetrieveOpts bounds a long-term retrieval. Zero values fall back to the
// manager's defaults.
type RetrieveOpts struct {
	TopK          int
	Threshold     float64 // overrides the manager default when > 0
	MemoryType    *domain.MemoryType
	MinImportance float64
}

// LongTerm manages durable memories for one namespace. Storage and search
// delegate to the vector store; this layer owns validation, the similarity
// threshold default, and access bookkeeping.
type LongTerm struct {
	store     domain.VectorStore
	ns        domain.Namespace
	threshold float64
	logger    *zap.Logger
}

func NewLongTerm(store domain.VectorStore, ns domain.Namespace, threshold float64, logger *zap.Logger) *LongTerm {
	return &LongTerm{
		store:     store,
		ns:        ns,
		threshold: threshold,
		logger:    logger,
	}
}

func (l *LongTerm) Namespace() domain.Namespace {
	return l.ns
}

// StoreMemory persists a new memory. Importance is clamped to [0, 1].
func (l *LongTerm) StoreMemory(ctx context.Context, content string, memType domain.MemoryType, importance float64, tags []string, memContext, source string) (uuid.UUID, error) {
	if strings.TrimSpace(content) == "" {
		return uuid.Nil, ErrContentEmpty
	}

	if importance < 0 {
		importance = 0
	}
	if importance > 1 {
		importance = 1
	}
	if memType == "" {
		memType = domain.MemoryTypeKnowledge
	}
	if tags == nil {
		// The pgvector backend encodes a nil slice as SQL NULL, which the
		// NOT NULL tags column rejects.
		tags = []string{}
	}

	m := &domain.Memory{
		Content:    content,
		Type:       memType,
		Importance: importance,
		Tags:       tags,
		Context:    memContext,
		Source:     source,
	}

	id, err := l.store.Add(ctx, l.ns, m)
	if err != nil {
		return uuid.Nil, fmt.Errorf("store memory: %w", err)
	}

	l.logger.Debug("stored long-term memory",
		zap.String("memory_id", id.String()),
		zap.String("type", string(memType)),
		zap.Float64("importance", importance))
	return id, nil
}

// RetrieveMemories searches by similarity. The similarity threshold and
// type filter apply store-side; the importance floor applies here. Each
// returned memory gets its access counter bumped, best-effort.
func (l *LongTerm) RetrieveMemories(ctx context.Context, query string, opts RetrieveOpts) ([]domain.MemoryWithScore, error) {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = l.threshold
	}

	results, err := l.store.Search(ctx, l.ns, query, domain.SearchOpts{
		TopK:       opts.TopK,
		Threshold:  threshold,
		MemoryType: opts.MemoryType,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve memories: %w", err)
	}

	if opts.MinImportance > 0 {
		filtered := results[:0]
		for _, r := range results {
			if r.Importance >= opts.MinImportance {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	for i := range results {
		if err := l.store.RecordAccess(ctx, l.ns, results[i].ID); err != nil {
			l.logger.Warn("failed to record memory access",
				zap.String("memory_id", results[i].ID.String()),
				zap.Error(err))
			continue
		}
		results[i].AccessCount++
	}

	return results, nil
}

// StoreMathSolution records a solved problem as a math_solution memory.
func (l *LongTerm) StoreMathSolution(ctx context.Context, problem, solution, method string) (uuid.UUID, error) {
	content := fmt.Sprintf("Problem: %s\nSolution: %s", problem, solution)
	if method != "" {
		content += fmt.Sprintf("\nMethod: %s", method)
	}
	return l.StoreMemory(ctx, content, domain.MemoryTypeMathSolution, 0.8, []string{"math"}, "", "math_agent")
}

// StoreResearchFinding records a research result as a research memory.
func (l *LongTerm) StoreResearchFinding(ctx context.Context, topic, findings string, sources []string) (uuid.UUID, error) {
	content := fmt.Sprintf("Topic: %s\nFindings: %s", topic, findings)
	if len(sources) > 0 {
		content += fmt.Sprintf("\nSources: %s", strings.Join(sources, ", "))
	}
	return l.StoreMemory(ctx, content, domain.MemoryTypeResearch, 0.7, []string{"research"}, "", "research_agent")
}

// StoreConversationSummary records a distilled summary of a session.
func (l *LongTerm) StoreConversationSummary(ctx context.Context, summary string) (uuid.UUID, error) {
	return l.StoreMemory(ctx, summary, domain.MemoryTypeConversation, 0.6, []string{"conversation"}, "", "summarizer")
}

// GetMemory fetches one memory by ID. Direct fetches do not count as
// access; only similarity retrieval bumps the counter.
func (l *LongTerm) GetMemory(ctx context.Context, id uuid.UUID) (*domain.Memory, error) {
	return l.store.Get(ctx, l.ns, id)
}

func (l *LongTerm) DeleteMemory(ctx context.Context, id uuid.UUID) error {
	return l.store.Delete(ctx, l.ns, id)
}

func (l *LongTerm) ListAllMemories(ctx context.Context, limit int) ([]domain.Memory, error) {
	return l.store.List(ctx, l.ns, limit)
}

func (l *LongTerm) ClearAllMemories(ctx context.Context) error {
	if err := l.store.Clear(ctx, l.ns); err != nil {
		return fmt.Errorf("clear memories: %w", err)
	}
	l.logger.Info("cleared all long-term memories", zap.String("collection", l.ns.Collection()))
	return nil
}
