package models

import "time"

// Run statuses recorded in the audit trail.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error codes for terminal pipeline states.
const (
	ErrCodeBadRequest          = "bad_request"
	ErrCodeEmptyRetrieval      = "empty_retrieval"
	ErrCodeInsufficientSupport = "insufficient_support"
	ErrCodeProcessingFailure   = "processing_failure"
	ErrCodePipelineError       = "pipeline_error"
)

// CandidateProvenance captures what the pipeline knew about one retrieved
// candidate: where it ranked, and how the critic graded it.
type CandidateProvenance struct {
	CandidateID    string         `json:"candidate_id"`
	DocTextPreview string         `json:"doc_text_preview"`
	Metadata       map[string]any `json:"metadata"`
	RetrievalScore float64        `json:"retrieval_score"`
	RerankScore    *float64       `json:"rerank_score,omitempty"`
	IsRelScore     *float64       `json:"isrel_score,omitempty"`
	IsSupScore     *float64       `json:"issup_score,omitempty"`
	IsUseScore     *float64       `json:"isuse_score,omitempty"`
}

// ModelVersions records which models produced a run's outputs.
type ModelVersions struct {
	Critic    string `json:"critic,omitempty"`
	Generator string `json:"generator,omitempty"`
	Embedding string `json:"embedding,omitempty"`
}

// AuditRecord is the durable provenance of one pipeline run. Exactly one
// record is written per run, whatever the outcome.
type AuditRecord struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	CaseID    string    `json:"case_id,omitempty"`
	Query     string    `json:"query"`

	RetrievalDecision  RetrievalDecision `json:"retrieval_decision"`
	RetrievalPerformed bool              `json:"retrieval_performed"`

	RetrievedCount int                   `json:"retrieved_count"`
	TopCandidates  []CandidateProvenance `json:"top_candidates"`
	RerankScores   []float64             `json:"rerank_scores"`

	SelectedCandidateIndex  *int          `json:"selected_candidate_index,omitempty"`
	SelectedCandidateScores *CriticScores `json:"selected_candidate_scores,omitempty"`
	Confidence              string        `json:"confidence"`

	Result            *Answer  `json:"result"`
	FollowUpQuestions []string `json:"follow_up_questions"`

	LatencyS      float64       `json:"latency_s"`
	ModelVersions ModelVersions `json:"model_versions"`

	Error  string `json:"error,omitempty"`
	Status string `json:"status"`
}

// Response is what a run returns to the caller. The RunID and AuditID tie it
// back to the audit record.
type Response struct {
	RunID              string         `json:"run_id"`
	Answer             *Answer        `json:"answer"`
	ProvenanceMeta     map[string]any `json:"provenance_meta,omitempty"`
	AuditID            string         `json:"audit_id"`
	RetrievalPerformed bool           `json:"retrieval_performed"`
	ProcessingTime     float64        `json:"processing_time"`
	Error              string         `json:"error,omitempty"`
}
