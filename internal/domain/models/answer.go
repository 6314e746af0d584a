package models

// Confidence levels reported by the generator.
const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
	ConfidenceLow    = "LOW"
)

// Citation ties a claim in an explanation back to an indexed chunk.
type Citation struct {
	DocID       string `json:"doc_id"`
	ChunkID     string `json:"chunk_id,omitempty"`
	TextExcerpt string `json:"text_excerpt"`
}

// Answer is the generator's structured output. Defaults are applied when a
// model reply cannot be parsed, so an Answer is always well formed.
type Answer struct {
	Explanation       string     `json:"explanation"`
	Citations         []Citation `json:"citations"`
	Confidence        string     `json:"confidence"`
	FollowUpQuestions []string   `json:"follow_up_questions,omitempty"`
	ModelVersion      string     `json:"model_version,omitempty"`

	// Set on the insufficient-support branch, where the answer carries the
	// best attempt instead of a direct reply.
	Status       string   `json:"status,omitempty"`
	Message      string   `json:"message,omitempty"`
	BestAttempt  *Answer  `json:"best_attempt,omitempty"`
	SupportScore *float64 `json:"support_score,omitempty"`
}

// ValidConfidence reports whether s is one of the three recognized levels.
func ValidConfidence(s string) bool {
	return s == ConfidenceHigh || s == ConfidenceMedium || s == ConfidenceLow
}
