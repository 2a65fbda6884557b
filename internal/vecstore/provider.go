package vecstore

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quangvt/relay/internal/domain"
)

// Backend constants
const (
	BackendChromem  = "chromem"
	BackendPgvector = "pgvector"
)

// New creates a vector store for the configured backend. The pgvector
// backend requires a connection pool; chromem runs fully in-process.
func New(backend string, embedder domain.EmbeddingClient, db *pgxpool.Pool) (domain.VectorStore, error) {
	switch backend {
	case BackendChromem:
		return NewChromemStore(embedder), nil

	case BackendPgvector:
		if db == nil {
			return nil, fmt.Errorf("DATABASE_URL is required for pgvector backend")
		}
		return NewPgvectorStore(db, embedder), nil

	default:
		return nil, fmt.Errorf("unknown vector store backend: %s (valid options: chromem, pgvector)", backend)
	}
}
