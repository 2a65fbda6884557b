package domain

import (
	"context"

	"github.com/google/uuid"
)

// EmbeddingClient maps text to a fixed-dimension vector. Implementations
// must be deterministic for identical input so retrieval is reproducible.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// CompleteOpts tunes a single chat completion call.
type CompleteOpts struct {
	Temperature float32
	MaxTokens   int
}

// LLMClient is the chat completion service used for context analysis and
// as the engine behind the general/math/research handlers.
type LLMClient interface {
	Complete(ctx context.Context, messages []ChatMessage, opts CompleteOpts) (string, error)

	// AnalyzeContext classifies a request for routing. Implementations never
	// surface malformed model output: on any failure they return an error and
	// the caller falls back to DefaultContextAnalysis.
	AnalyzeContext(ctx context.Context, prompt string) (*ContextAnalysis, error)
}

// SearchOpts bounds a vector store similarity search.
type SearchOpts struct {
	TopK       int
	Threshold  float64     // minimum-inclusive cosine similarity cutoff
	MemoryType *MemoryType // optional store-side type filter
}

// VectorStore is a similarity-searchable collection of memories, namespaced
// per (user, session). Implementations embed content/queries internally via
// their EmbeddingClient.
type VectorStore interface {
	Add(ctx context.Context, ns Namespace, m *Memory) (uuid.UUID, error)
	Search(ctx context.Context, ns Namespace, query string, opts SearchOpts) ([]MemoryWithScore, error)
	Get(ctx context.Context, ns Namespace, id uuid.UUID) (*Memory, error)
	Delete(ctx context.Context, ns Namespace, id uuid.UUID) error
	List(ctx context.Context, ns Namespace, limit int) ([]Memory, error)
	Clear(ctx context.Context, ns Namespace) error

	// RecordAccess bumps access_count and last_accessed for a retrieved
	// record. Concurrent bumps may race (last-writer-wins); the counter is
	// best-effort, never a correctness requirement.
	RecordAccess(ctx context.Context, ns Namespace, id uuid.UUID) error
}

// DocumentSink is a write-only external document store (Notion-like).
// Appends are best-effort; a failed append never fails the request.
type DocumentSink interface {
	Append(ctx context.Context, pageID string, text string) error
}

// SearchResult is one organic web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// SearchClient performs web search for the research handler.
type SearchClient interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// OCRClient extracts text from an image file via an external OCR service.
type OCRClient interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}
