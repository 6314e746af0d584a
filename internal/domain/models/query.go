package models

import "strings"

// Query is a single user question posed to the pipeline. Immutable once built.
type Query struct {
	Text   string `json:"text"`
	CaseID string `json:"case_id,omitempty"`
}

// NewQuery trims the raw text and returns the query. Callers must reject
// queries whose Text is empty after trimming.
func NewQuery(text, caseID string) Query {
	return Query{Text: strings.TrimSpace(text), CaseID: caseID}
}

// IsEmpty reports whether the query carries no usable text.
func (q Query) IsEmpty() bool {
	return q.Text == ""
}
