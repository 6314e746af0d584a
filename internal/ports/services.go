package ports

import (
	"context"

	"github.com/longregen/creditexplain/internal/domain/models"
)

// Critic decides whether retrieval is warranted and grades candidate
// answers against their source passages. Implementations recover from
// malformed model output internally; a returned error means the call
// itself failed (transport, timeout, circuit open).
type Critic interface {
	Decide(ctx context.Context, query string) (models.RetrievalDecision, error)
	Score(ctx context.Context, query, answerText, passageText string) (models.CriticScores, error)
	ModelVersion() string
}

// Generator produces structured answers and follow-up questions.
type Generator interface {
	Answer(ctx context.Context, query string, passages []models.RankedPassage) (*models.Answer, error)
	FollowUps(ctx context.Context, query string, answer *models.Answer, passages []models.RankedPassage) ([]string, error)
	ModelVersion() string
}

// Embedder maps text to a dense vector. The index at insertion time is the
// source of truth for dimensionality and normalization. Empty input yields
// an empty vector without a remote call.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelVersion() string
}

// VectorIndex is a k-NN store over indexed passages. Search results are
// ordered by increasing distance, carry at most k items, and never repeat
// an ID within one call. Filter entries are equality predicates on metadata
// fields; an unknown field fails the call rather than being ignored.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, k int, filter map[string]any) ([]models.Passage, error)
	Upsert(ctx context.Context, entries []models.IndexEntry) error
	Count(ctx context.Context) (int, error)
}

// CrossEncoder re-ranks (query, passage) pairs. Output length is at most
// min(topN, len(passages)); ties keep their input order.
type CrossEncoder interface {
	Rerank(ctx context.Context, query string, passages []models.Passage, topN int) ([]models.RankedPassage, []float64, error)
}

// AuditSink durably appends one record per run. Write returns only after
// the record is flushed; it is safe for concurrent callers.
type AuditSink interface {
	Write(ctx context.Context, record *models.AuditRecord) (string, error)
	Get(runID string) (*models.AuditRecord, error)
}

// IDGenerator produces unique, prefixed identifiers.
type IDGenerator interface {
	RunID() string
	DocumentID() string
	ChunkID() string
}
