package models

// Document is a unit of source material on its way into the index: one PDF
// page, one JSON rule, one CSV row, or one extracted HTML article. Metadata
// travels with the text through redaction and chunking.
type Document struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// CloneMetadata returns a shallow copy of the document's metadata, never nil.
func (d *Document) CloneMetadata() map[string]any {
	out := make(map[string]any, len(d.Metadata))
	for k, v := range d.Metadata {
		out[k] = v
	}
	return out
}
