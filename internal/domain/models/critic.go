package models

// RetrievalDecision is the critic's answer to "does this query need the
// corpus?". Malformed model replies default to Retrieve=true: retrieving for
// an out-of-domain query wastes a search, skipping it for an in-domain one
// loses the answer.
type RetrievalDecision struct {
	Retrieve bool   `json:"retrieve"`
	Notes    string `json:"notes,omitempty"`
}

// CriticScores grades a (query, answer, passage) triple. Each score is
// clamped to [0,1] on ingress; a missing or non-numeric field becomes 0.5.
type CriticScores struct {
	IsRel float64 `json:"isrel"`
	IsSup float64 `json:"issup"`
	IsUse float64 `json:"isuse"`
	Notes string  `json:"notes,omitempty"`
}

// SelectionWeights are the per-axis weights used to combine critic scores.
// They must sum to 1.0.
type SelectionWeights struct {
	IsRel float64
	IsSup float64
	IsUse float64
}

// DefaultSelectionWeights favor relevance, gate on support, and keep
// usefulness as a tiebreaker.
func DefaultSelectionWeights() SelectionWeights {
	return SelectionWeights{IsRel: 0.45, IsSup: 0.40, IsUse: 0.15}
}

// Combine computes the weighted combined score for a set of critic scores.
func (w SelectionWeights) Combine(s CriticScores) float64 {
	return w.IsRel*s.IsRel + w.IsSup*s.IsSup + w.IsUse*s.IsUse
}

// Candidate is a per-passage tuple produced during candidate evaluation.
// Index is the passage's post-rerank position, attached before any
// concurrent dispatch so selection stays deterministic.
type Candidate struct {
	Passage  RankedPassage
	Answer   *Answer
	Scores   CriticScores
	Combined float64
	Index    int
}
