package domain

import "errors"

// Common domain errors
var (
	// Query errors
	ErrEmptyQuery = errors.New("query text is empty")

	// Retrieval errors
	ErrEmptyRetrieval = errors.New("no passages retrieved from vector index")
	ErrInvalidFilter  = errors.New("invalid metadata filter")
	ErrEmptyEmbedding = errors.New("embedding is empty")

	// Candidate errors
	ErrInsufficientSupport = errors.New("best candidate below support threshold")
	ErrProcessingFailure   = errors.New("all candidate processing failed")

	// Collaborator errors
	ErrLLMUnavailable    = errors.New("LLM service unavailable")
	ErrRerankFailed      = errors.New("cross-encoder rerank failed")
	ErrEmbeddingFailed   = errors.New("failed to generate embedding")
	ErrAuditWriteFailed  = errors.New("audit record write failed")
	ErrAuditNotFound     = errors.New("audit record not found")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrUnsupportedFormat = errors.New("unsupported document format")
)
