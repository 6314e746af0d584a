package ingest

import (
	"strings"

	"github.com/longregen/creditexplain/internal/domain/models"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// Split boundaries in preference order. Paragraph breaks beat line breaks
// beat sentence ends beat words.
var chunkSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

// Chunker splits regulatory documents into overlapping chunks and tags each
// chunk with its content type and any section headings it carries.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = defaultChunkOverlap
	}
	return &Chunker{size: size, overlap: overlap}
}

// ChunkDocument splits one document into chunk documents. Each chunk inherits
// the source metadata and gains chunk_index, total_chunks, chunk_size_chars,
// chunk_type, and any article/section/clause/subsection headings found in its
// text.
func (c *Chunker) ChunkDocument(doc models.Document) []models.Document {
	pieces := c.Split(doc.Text)
	chunks := make([]models.Document, 0, len(pieces))
	for i, piece := range pieces {
		md := doc.CloneMetadata()
		md["chunk_index"] = i
		md["total_chunks"] = len(pieces)
		md["chunk_size_chars"] = len(piece)
		md["chunk_type"] = classifyChunk(piece)
		for k, v := range extractSections(piece) {
			md[k] = v
		}
		chunks = append(chunks, models.Document{Text: piece, Metadata: md})
	}
	return chunks
}

// Split breaks text into pieces of at most the chunk size, cutting at the
// strongest available boundary and carrying overlap between consecutive
// pieces.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= c.size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			chunk := strings.TrimSpace(text[start:])
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		cut := c.findCut(text, start, end)
		chunk := strings.TrimSpace(text[start:cut])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - c.overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}

// findCut picks the split position within (start, end], preferring the last
// occurrence of the strongest separator in the window. A boundary in the
// first half of the window is worse than a weaker one near the target size.
func (c *Chunker) findCut(text string, start, end int) int {
	window := text[start:end]
	minCut := len(window) / 2
	for _, sep := range chunkSeparators {
		if idx := strings.LastIndex(window, sep); idx > minCut {
			return start + idx + len(sep)
		}
	}
	return end
}

// classifyChunk labels the regulatory content of a chunk. Keyword checks run
// from most to least specific: a clause that both defines and requires is a
// definition.
func classifyChunk(text string) string {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "definition", "means", "shall mean"):
		return "definition"
	case containsAny(lower, "prohibit", "must not", "shall not"):
		return "prohibition"
	case containsAny(lower, "require", "must", "shall"):
		return "requirement"
	case containsAny(lower, "penalty", "fine", "sanction"):
		return "enforcement"
	case containsAny(lower, "exception", "provided that", "unless"):
		return "exception"
	default:
		return "general"
	}
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// extractSections pulls regulatory headings off the chunk's lines. The last
// heading of each kind wins, matching how headings scope the text after them.
func extractSections(text string) map[string]any {
	sections := make(map[string]any)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case hasHeading(line, "Article "):
			sections["article"] = line
		case hasHeading(line, "Section "):
			sections["section"] = line
		case hasHeading(line, "Clause "):
			sections["clause"] = line
		case hasHeading(line, "Subsection "):
			sections["subsection"] = line
		}
	}
	return sections
}

func hasHeading(line, prefix string) bool {
	return strings.HasPrefix(line, prefix) || strings.HasPrefix(line, strings.ToUpper(prefix))
}
