package vecstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/quangvt/relay/internal/domain"
)

// PgvectorStore is the Postgres-backed vector store. All namespaces share
// the memories table; user_id and session_id columns scope every query.
type PgvectorStore struct {
	db       *pgxpool.Pool
	embedder domain.EmbeddingClient
}

func NewPgvectorStore(db *pgxpool.Pool, embedder domain.EmbeddingClient) *PgvectorStore {
	return &PgvectorStore{db: db, embedder: embedder}
}

func (s *PgvectorStore) Add(ctx context.Context, ns domain.Namespace, m *domain.Memory) (uuid.UUID, error) {
	if len(m.Embedding) == 0 {
		vec, err := s.embedder.Embed(ctx, m.Content)
		if err != nil {
			return uuid.Nil, fmt.Errorf("embed memory content: %w", err)
		}
		m.Embedding = vec
	}

	embedding := pgvector.NewVector(m.Embedding)

	err := s.db.QueryRow(ctx,
		`INSERT INTO memories (user_id, session_id, content, memory_type, importance, tags, context, source, embedding, access_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0)
		 RETURNING id, created_at, last_accessed`,
		ns.UserID, ns.SessionID, m.Content, m.Type, m.Importance, m.Tags, m.Context, m.Source, embedding,
	).Scan(&m.ID, &m.CreatedAt, &m.LastAccessed)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert memory: %w", err)
	}
	return m.ID, nil
}

func (s *PgvectorStore) Search(ctx context.Context, ns domain.Namespace, query string, opts domain.SearchOpts) ([]domain.MemoryWithScore, error) {
	if opts.TopK <= 0 {
		opts.TopK = 10
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	vec := pgvector.NewVector(queryVec)

	conditions := []string{"user_id = $1", "session_id = $2"}
	args := []any{ns.UserID, ns.SessionID}

	args = append(args, vec)
	vecParam := len(args)
	conditions = append(conditions, fmt.Sprintf("1 - (embedding <=> $%d) >= $%d", vecParam, vecParam+1))
	args = append(args, opts.Threshold)

	if opts.MemoryType != nil {
		conditions = append(conditions, fmt.Sprintf("memory_type = $%d", len(args)+1))
		args = append(args, string(*opts.MemoryType))
	}

	limitParam := len(args) + 1
	args = append(args, opts.TopK)

	sql := fmt.Sprintf(
		`SELECT id, content, memory_type, importance, tags, context, source, access_count, created_at, last_accessed,
		        1 - (embedding <=> $%d) AS score
		 FROM memories
		 WHERE %s
		 ORDER BY score DESC
		 LIMIT $%d`,
		vecParam,
		strings.Join(conditions, " AND "),
		limitParam,
	)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var results []domain.MemoryWithScore
	for rows.Next() {
		var ms domain.MemoryWithScore
		err := rows.Scan(
			&ms.ID, &ms.Content, &ms.Type, &ms.Importance, &ms.Tags, &ms.Context, &ms.Source,
			&ms.AccessCount, &ms.CreatedAt, &ms.LastAccessed,
			&ms.Similarity,
		)
		if err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		results = append(results, ms)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search rows: %w", err)
	}
	return results, nil
}

func (s *PgvectorStore) Get(ctx context.Context, ns domain.Namespace, id uuid.UUID) (*domain.Memory, error) {
	m := &domain.Memory{}
	err := s.db.QueryRow(ctx,
		`SELECT id, content, memory_type, importance, tags, context, source, access_count, created_at, last_accessed
		 FROM memories WHERE id = $1 AND user_id = $2 AND session_id = $3`,
		id, ns.UserID, ns.SessionID,
	).Scan(&m.ID, &m.Content, &m.Type, &m.Importance, &m.Tags, &m.Context, &m.Source, &m.AccessCount, &m.CreatedAt, &m.LastAccessed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *PgvectorStore) Delete(ctx context.Context, ns domain.Namespace, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM memories WHERE id = $1 AND user_id = $2 AND session_id = $3`,
		id, ns.UserID, ns.SessionID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgvectorStore) List(ctx context.Context, ns domain.Namespace, limit int) ([]domain.Memory, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, content, memory_type, importance, tags, context, source, access_count, created_at, last_accessed
		 FROM memories WHERE user_id = $1 AND session_id = $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		ns.UserID, ns.SessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []domain.Memory
	for rows.Next() {
		var m domain.Memory
		if err := rows.Scan(&m.ID, &m.Content, &m.Type, &m.Importance, &m.Tags, &m.Context, &m.Source, &m.AccessCount, &m.CreatedAt, &m.LastAccessed); err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

func (s *PgvectorStore) Clear(ctx context.Context, ns domain.Namespace) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM memories WHERE user_id = $1 AND session_id = $2`,
		ns.UserID, ns.SessionID,
	)
	return err
}

func (s *PgvectorStore) RecordAccess(ctx context.Context, ns domain.Namespace, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE memories
		 SET access_count = access_count + 1, last_accessed = NOW()
		 WHERE id = $1 AND user_id = $2 AND session_id = $3`,
		id, ns.UserID, ns.SessionID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
