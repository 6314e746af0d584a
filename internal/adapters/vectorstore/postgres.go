package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/longregen/creditexplain/internal/domain"
	"github.com/longregen/creditexplain/internal/domain/models"
)

const queryTimeout = 10 * time.Second

// PgxPool is the subset of pgxpool.Pool the store needs, extracted so
// tests can substitute a mock.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is a pgvector-backed passage index
type Postgres struct {
	pool PgxPool
}

// NewPostgres creates a Postgres vector store on the given pool
func NewPostgres(pool PgxPool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the chunk table and its index if missing
func (s *Postgres) EnsureSchema(ctx context.Context, dimensions int) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS creditexplain_chunks (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, dimensions),
		`CREATE INDEX IF NOT EXISTS creditexplain_chunks_metadata_idx ON creditexplain_chunks USING gin (metadata)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure chunk schema: %w", err)
		}
	}
	return nil
}

// Search returns up to k passages nearest to the query vector, ordered by
// increasing cosine distance. Filter entries are equality predicates on
// metadata fields.
func (s *Postgres) Search(ctx context.Context, vector []float32, k int, filter map[string]any) ([]models.Passage, error) {
	if len(vector) == 0 {
		return nil, domain.ErrEmptyEmbedding
	}
	if k <= 0 {
		k = 10
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT id, content, metadata, embedding <=> $1 AS distance
		FROM creditexplain_chunks`
	args := []any{pgvector.NewVector(vector)}

	if len(filter) > 0 {
		filterJSON, err := marshalFilter(filter)
		if err != nil {
			return nil, err
		}
		query += ` WHERE metadata @> $2`
		args = append(args, filterJSON)
	}

	query += fmt.Sprintf(` ORDER BY embedding <=> $1 LIMIT $%d`, len(args)+1)
	args = append(args, k)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	var passages []models.Passage
	for rows.Next() {
		var p models.Passage
		var metadata []byte
		if err := rows.Scan(&p.ID, &p.Text, &metadata, &p.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan passage: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode passage metadata: %w", err)
			}
		}
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	return passages, nil
}

// Upsert inserts or replaces chunk entries by ID
func (s *Postgres) Upsert(ctx context.Context, entries []models.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const query = `
		INSERT INTO creditexplain_chunks (id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding`

	for _, entry := range entries {
		metadata, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for %s: %w", entry.ID, err)
		}
		if _, err := s.pool.Exec(ctx, query, entry.ID, entry.Text, metadata, pgvector.NewVector(entry.Embedding)); err != nil {
			return fmt.Errorf("failed to upsert chunk %s: %w", entry.ID, err)
		}
	}

	return nil
}

// Count returns the number of indexed chunks
func (s *Postgres) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM creditexplain_chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// marshalFilter validates filter entries and renders them as a JSONB
// containment document. Only scalar values are meaningful as equality
// predicates.
func marshalFilter(filter map[string]any) ([]byte, error) {
	for key, value := range filter {
		if key == "" {
			return nil, fmt.Errorf("%w: empty filter key", domain.ErrInvalidFilter)
		}
		switch value.(type) {
		case string, bool, int, int32, int64, float32, float64, nil:
		default:
			return nil, fmt.Errorf("%w: filter value for %q must be a scalar", domain.ErrInvalidFilter, key)
		}
	}

	data, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFilter, err)
	}
	return data, nil
}
