package vecstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/quangvt/relay/internal/domain"
)

// ChromemStore is the embedded vector store backend. It keeps one chromem
// collection per namespace for similarity search and a sidecar record map
// holding the authoritative memory metadata (access counts, timestamps),
// since chromem documents are not updatable in place.
type ChromemStore struct {
	db       *chromem.DB
	embedder domain.EmbeddingClient

	mu         sync.RWMutex
	namespaces map[string]*namespaceState // keyed by Namespace.Collection()
}

type namespaceState struct {
	col     *chromem.Collection
	records map[uuid.UUID]*domain.Memory
}

func NewChromemStore(embedder domain.EmbeddingClient) *ChromemStore {
	return &ChromemStore{
		db:         chromem.NewDB(),
		embedder:   embedder,
		namespaces: make(map[string]*namespaceState),
	}
}

func (s *ChromemStore) getOrCreateNamespace(ns domain.Namespace) (*namespaceState, error) {
	key := ns.Collection()

	s.mu.RLock()
	state, ok := s.namespaces[key]
	s.mu.RUnlock()
	if ok {
		return state, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.namespaces[key]; ok {
		return state, nil
	}

	// Embeddings are always supplied by us, so no embedding func is wired.
	col, err := s.db.CreateCollection(key, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection %s: %w", key, err)
	}

	state = &namespaceState{
		col:     col,
		records: make(map[uuid.UUID]*domain.Memory),
	}
	s.namespaces[key] = state
	return state, nil
}

func (s *ChromemStore) Add(ctx context.Context, ns domain.Namespace, m *domain.Memory) (uuid.UUID, error) {
	state, err := s.getOrCreateNamespace(ns)
	if err != nil {
		return uuid.Nil, err
	}

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.LastAccessed.IsZero() {
		m.LastAccessed = now
	}

	if len(m.Embedding) == 0 {
		vec, err := s.embedder.Embed(ctx, m.Content)
		if err != nil {
			return uuid.Nil, fmt.Errorf("embed memory content: %w", err)
		}
		m.Embedding = vec
	}

	doc := chromem.Document{
		ID:        m.ID.String(),
		Content:   m.Content,
		Embedding: m.Embedding,
		Metadata: map[string]string{
			"type": string(m.Type),
		},
	}
	if err := state.col.AddDocument(ctx, doc); err != nil {
		return uuid.Nil, fmt.Errorf("add document: %w", err)
	}

	s.mu.Lock()
	state.records[m.ID] = cloneMemory(m)
	s.mu.Unlock()

	return m.ID, nil
}

func (s *ChromemStore) Search(ctx context.Context, ns domain.Namespace, query string, opts domain.SearchOpts) ([]domain.MemoryWithScore, error) {
	state, err := s.getOrCreateNamespace(ns)
	if err != nil {
		return nil, err
	}

	if opts.TopK <= 0 {
		opts.TopK = 10
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var where map[string]string
	if opts.MemoryType != nil {
		where = map[string]string{"type": string(*opts.MemoryType)}
	}

	// chromem rejects nResults larger than the collection size.
	s.mu.RLock()
	size := len(state.records)
	s.mu.RUnlock()
	if size == 0 {
		return nil, nil
	}
	limit := opts.TopK
	if limit > size {
		limit = size
	}

	// chromem also rejects nResults above the filtered candidate count, so a
	// type filter may force retries at smaller limits.
	var results []chromem.Result
	for ; limit >= 1; limit-- {
		results, err = state.col.QueryEmbedding(ctx, queryVec, limit, where, nil)
		if err == nil {
			break
		}
		if strings.Contains(err.Error(), "nResults") {
			if limit == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("query collection: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []domain.MemoryWithScore
	for _, res := range results {
		if float64(res.Similarity) < opts.Threshold {
			continue
		}
		id, err := uuid.Parse(res.ID)
		if err != nil {
			continue
		}
		record, ok := state.records[id]
		if !ok {
			continue
		}
		matches = append(matches, domain.MemoryWithScore{
			Memory:     *cloneMemory(record),
			Similarity: float64(res.Similarity),
		})
	}
	return matches, nil
}

func (s *ChromemStore) Get(_ context.Context, ns domain.Namespace, id uuid.UUID) (*domain.Memory, error) {
	state, err := s.getOrCreateNamespace(ns)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := state.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneMemory(record), nil
}

func (s *ChromemStore) Delete(ctx context.Context, ns domain.Namespace, id uuid.UUID) error {
	state, err := s.getOrCreateNamespace(ns)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := state.records[id]; !ok {
		return ErrNotFound
	}
	if err := state.col.Delete(ctx, nil, nil, id.String()); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	delete(state.records, id)
	return nil
}

func (s *ChromemStore) List(_ context.Context, ns domain.Namespace, limit int) ([]domain.Memory, error) {
	state, err := s.getOrCreateNamespace(ns)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	memories := make([]domain.Memory, 0, len(state.records))
	for _, record := range state.records {
		memories = append(memories, *cloneMemory(record))
	}
	sort.Slice(memories, func(i, j int) bool {
		return memories[i].CreatedAt.After(memories[j].CreatedAt)
	})

	if limit > 0 && len(memories) > limit {
		memories = memories[:limit]
	}
	return memories, nil
}

func (s *ChromemStore) Clear(_ context.Context, ns domain.Namespace) error {
	key := ns.Collection()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.namespaces[key]; !ok {
		return nil
	}
	if err := s.db.DeleteCollection(key); err != nil {
		return fmt.Errorf("delete collection %s: %w", key, err)
	}
	delete(s.namespaces, key)
	return nil
}

func (s *ChromemStore) RecordAccess(_ context.Context, ns domain.Namespace, id uuid.UUID) error {
	state, err := s.getOrCreateNamespace(ns)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := state.records[id]
	if !ok {
		return ErrNotFound
	}
	record.AccessCount++
	record.LastAccessed = time.Now().UTC()
	return nil
}

func cloneMemory(m *domain.Memory) *domain.Memory {
	copied := *m
	if m.Tags != nil {
		copied.Tags = append([]string(nil), m.Tags...)
	}
	if m.Embedding != nil {
		copied.Embedding = append([]float32(nil), m.Embedding...)
	}
	return &copied
}
