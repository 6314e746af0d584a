package ingest

import (
	"context"
	"fmt"
	"log"

	"github.com/longregen/creditexplain/internal/adapters/metrics"
	"github.com/longregen/creditexplain/internal/domain/models"
	"github.com/longregen/creditexplain/internal/ports"
)

// Embedding requests are batched so one oversized file cannot produce a
// single enormous API call.
const embedBatchSize = 64

// Indexer runs the full ingestion pipeline: load, redact, chunk, embed,
// upsert. One Indexer serves all uploads; its redactor accumulates the
// process-wide PII statistics.
type Indexer struct {
	loader   *Loader
	redactor *Redactor
	chunker  *Chunker
	embedder ports.Embedder
	index    ports.VectorIndex
	ids      ports.IDGenerator
}

func NewIndexer(embedder ports.Embedder, index ports.VectorIndex, ids ports.IDGenerator) *Indexer {
	return &Indexer{
		loader:   NewLoader(),
		redactor: NewRedactor(),
		chunker:  NewChunker(defaultChunkSize, defaultChunkOverlap),
		embedder: embedder,
		index:    index,
		ids:      ids,
	}
}

// Redactor exposes the shared redactor for the PII statistics surface.
func (ix *Indexer) Redactor() *Redactor {
	return ix.redactor
}

// IngestPath loads a file or directory and indexes everything in it,
// returning the number of chunks written.
func (ix *Indexer) IngestPath(ctx context.Context, path string) (int, error) {
	docs, err := ix.loader.LoadPath(path)
	if err != nil {
		return 0, err
	}
	return ix.IngestDocuments(ctx, docs)
}

// IngestDocuments redacts, chunks, embeds, and indexes the given documents.
func (ix *Indexer) IngestDocuments(ctx context.Context, docs []models.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	docID := ix.ids.DocumentID()
	var chunks []models.Document
	for _, doc := range docs {
		doc.Text = ix.redactor.Redact(doc.Text)
		for _, chunk := range ix.chunker.ChunkDocument(doc) {
			if _, ok := chunk.Metadata["doc_id"]; !ok {
				chunk.Metadata["doc_id"] = docID
			}
			chunks = append(chunks, chunk)
		}
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	indexed := 0
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}
		vectors, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return indexed, fmt.Errorf("embed batch at chunk %d: %w", start, err)
		}
		if len(vectors) != len(batch) {
			return indexed, fmt.Errorf("embed batch at chunk %d: got %d vectors for %d texts", start, len(vectors), len(batch))
		}

		entries := make([]models.IndexEntry, len(batch))
		for i, chunk := range batch {
			entries[i] = models.IndexEntry{
				ID:        ix.ids.ChunkID(),
				Text:      chunk.Text,
				Metadata:  chunk.Metadata,
				Embedding: vectors[i],
			}
		}
		if err := ix.index.Upsert(ctx, entries); err != nil {
			return indexed, fmt.Errorf("index batch at chunk %d: %w", start, err)
		}
		indexed += len(entries)
		metrics.ChunksIndexed.Add(float64(len(entries)))
	}

	metrics.DocumentsIngested.Add(float64(len(docs)))
	log.Printf("indexed %d chunks from %d documents", indexed, len(docs))
	return indexed, nil
}
