package models

// Passage is a single indexed chunk returned by the vector index.
// Distance is the raw score under the index metric; smaller is closer.
type Passage struct {
	ID       string         `json:"id"`
	Text     string         `json:"doc_text"`
	Metadata map[string]any `json:"metadata"`
	Distance float64        `json:"distance"`
}

// DocType returns the metadata doc_type, defaulting to "document".
func (p *Passage) DocType() string {
	if p.Metadata != nil {
		if t, ok := p.Metadata["doc_type"].(string); ok && t != "" {
			return t
		}
	}
	return "document"
}

// RankedPassage is a Passage after cross-encoder re-ranking.
// Higher RerankScore means more relevant; scores are only comparable
// within the rerank call that produced them.
type RankedPassage struct {
	Passage
	RerankScore float64 `json:"rerank_score"`
}

// IndexEntry is a passage ready for insertion into a vector index.
type IndexEntry struct {
	ID        string         `json:"id"`
	Text      string         `json:"doc_text"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float32      `json:"embedding"`
}
