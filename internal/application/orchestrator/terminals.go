package orchestrator

import (
	"context"
	"log"
	"time"

	"github.com/longregen/creditexplain/internal/adapters/metrics"
	"github.com/longregen/creditexplain/internal/domain/models"
)

// Canned answers for terminal error states. The wording is part of the
// user-facing contract.
const (
	emptyQueryExplanation = "Please provide a non-empty question."

	emptyRetrievalExplanation = "I couldn't find any relevant documents to answer your question. Please try rephrasing or ensure relevant documents are uploaded."

	insufficientSupportMessage = "The available documents don't provide sufficient support for a confident answer. You may need to provide additional documentation."

	processingFailureExplanation = "I encountered an error while processing the documents. Please try again or contact support if the issue persists."

	pipelineErrorExplanation = "A system error occurred while processing your request. Our team has been notified."
)

func cannedAnswer(explanation string) *models.Answer {
	return &models.Answer{
		Explanation: explanation,
		Citations:   []models.Citation{},
		Confidence:  models.ConfidenceLow,
	}
}

func (o *Orchestrator) terminalBadRequest(ctx context.Context, st *runState) *models.Response {
	return o.finish(ctx, st, terminal{
		answer:             cannedAnswer(emptyQueryExplanation),
		errCode:            models.ErrCodeBadRequest,
		retrievalPerformed: false,
	})
}

// generateWithoutContext answers directly when the critic decides the
// corpus has nothing to add
func (o *Orchestrator) generateWithoutContext(ctx context.Context, st *runState) *models.Response {
	answer, err := o.generator.Answer(ctx, st.query.Text, nil)
	if err != nil {
		log.Printf("run %s: context-free generation degraded: %v", st.runID, err)
	}

	return o.finish(ctx, st, terminal{
		answer:             answer,
		retrievalPerformed: false,
	})
}

func (o *Orchestrator) terminalEmptyRetrieval(ctx context.Context, st *runState) *models.Response {
	return o.finish(ctx, st, terminal{
		answer:             cannedAnswer(emptyRetrievalExplanation),
		errCode:            models.ErrCodeEmptyRetrieval,
		retrievalPerformed: true,
	})
}

func (o *Orchestrator) terminalInsufficientSupport(ctx context.Context, st *runState, best models.Candidate) *models.Response {
	issup := best.Scores.IsSup
	answer := &models.Answer{
		Status:       models.ErrCodeInsufficientSupport,
		Message:      insufficientSupportMessage,
		BestAttempt:  best.Answer,
		SupportScore: &issup,
		Citations:    []models.Citation{},
		Confidence:   models.ConfidenceLow,
	}

	return o.finish(ctx, st, terminal{
		answer:             answer,
		errCode:            models.ErrCodeInsufficientSupport,
		retrievalPerformed: true,
	})
}

func (o *Orchestrator) terminalProcessingFailure(ctx context.Context, st *runState) *models.Response {
	return o.finish(ctx, st, terminal{
		answer:             cannedAnswer(processingFailureExplanation),
		errCode:            models.ErrCodeProcessingFailure,
		retrievalPerformed: true,
	})
}

func (o *Orchestrator) terminalPipelineError(ctx context.Context, st *runState, cause error) *models.Response {
	log.Printf("run %s: pipeline error: %v", st.runID, cause)
	return o.finish(ctx, st, terminal{
		answer:             cannedAnswer(pipelineErrorExplanation),
		errCode:            models.ErrCodePipelineError,
		retrievalPerformed: false,
	})
}

func (o *Orchestrator) terminalSuccess(ctx context.Context, st *runState, best models.Candidate) *models.Response {
	return o.finish(ctx, st, terminal{
		answer:             best.Answer,
		retrievalPerformed: true,
		selected:           &best,
	})
}

// terminal describes one pipeline outcome
type terminal struct {
	answer             *models.Answer
	errCode            string
	retrievalPerformed bool
	selected           *models.Candidate
}

// finish assembles provenance, writes the audit record, and builds the
// response. It is the single exit point of every run: exactly one audit
// write happens here. An audit write failure is logged and reported as an
// empty audit_id, never as a failed run.
func (o *Orchestrator) finish(ctx context.Context, st *runState, t terminal) *models.Response {
	elapsed := time.Since(st.start).Seconds()

	status := models.StatusSuccess
	if t.errCode != "" {
		status = models.StatusError
	}

	confidence := "UNKNOWN"
	if t.answer != nil && t.answer.Confidence != "" {
		confidence = t.answer.Confidence
	}

	record := &models.AuditRecord{
		RunID:              st.runID,
		Timestamp:          st.started,
		CaseID:             st.query.CaseID,
		Query:              st.query.Text,
		RetrievalDecision:  st.decision,
		RetrievalPerformed: t.retrievalPerformed,
		Confidence:         confidence,
		Result:             t.answer,
		LatencyS:           elapsed,
		ModelVersions: models.ModelVersions{
			Critic:    o.critic.ModelVersion(),
			Generator: o.generator.ModelVersion(),
			Embedding: o.embedder.ModelVersion(),
		},
		Error:  t.errCode,
		Status: status,
	}
	if t.answer != nil {
		record.FollowUpQuestions = t.answer.FollowUpQuestions
	}
	if record.FollowUpQuestions == nil {
		record.FollowUpQuestions = []string{}
	}

	provenance := map[string]any{
		"retrieval_decision":  st.decision,
		"retrieval_performed": t.retrievalPerformed,
		"model_versions":      record.ModelVersions,
		"status":              status,
	}
	if t.errCode != "" {
		provenance["error"] = t.errCode
	}

	if t.retrievalPerformed {
		record.RetrievedCount = st.retrievedCount
		record.TopCandidates = o.candidateProvenance(st)
		record.RerankScores = st.rerankScores
		if record.RerankScores == nil {
			record.RerankScores = []float64{}
		}

		provenance["retrieval_count"] = st.retrievedCount
		provenance["rerank_scores"] = record.RerankScores
		if st.rerankFailed {
			provenance["rerank_failed"] = true
		}
		if st.partial {
			provenance["partial_completion"] = true
		}
	} else {
		record.TopCandidates = []models.CandidateProvenance{}
		record.RerankScores = []float64{}
	}

	if t.selected != nil {
		idx := t.selected.Index
		scores := t.selected.Scores
		record.SelectedCandidateIndex = &idx
		record.SelectedCandidateScores = &scores
		provenance["selected_candidate_index"] = idx
		provenance["selected_candidate_scores"] = scores
	}

	// the audit must be written even when the run deadline has expired
	auditID, err := o.audit.Write(context.WithoutCancel(ctx), record)
	if err != nil {
		log.Printf("run %s: audit write failed: %v", st.runID, err)
		metrics.AuditWriteFailures.Inc()
		auditID = ""
	}

	return &models.Response{
		RunID:              st.runID,
		Answer:             t.answer,
		ProvenanceMeta:     provenance,
		AuditID:            auditID,
		RetrievalPerformed: t.retrievalPerformed,
		ProcessingTime:     elapsed,
		Error:              t.errCode,
	}
}

// candidateProvenance snapshots the reranked passages with whatever scores
// each candidate earned. Dropped candidates keep their retrieval and rerank
// scores but no critic scores.
func (o *Orchestrator) candidateProvenance(st *runState) []models.CandidateProvenance {
	scoresByIndex := make(map[int]models.CriticScores, len(st.candidates))
	for _, c := range st.candidates {
		scoresByIndex[c.Index] = c.Scores
	}

	out := make([]models.CandidateProvenance, len(st.ranked))
	for i, p := range st.ranked {
		preview := models.TruncateChars(p.Text, auditPreviewLen)

		cp := models.CandidateProvenance{
			CandidateID:    p.ID,
			DocTextPreview: preview,
			Metadata:       p.Metadata,
			RetrievalScore: p.Distance,
		}
		if !st.rerankFailed {
			score := p.RerankScore
			cp.RerankScore = &score
		}
		if scores, ok := scoresByIndex[i]; ok {
			isrel, issup, isuse := scores.IsRel, scores.IsSup, scores.IsUse
			cp.IsRelScore = &isrel
			cp.IsSupScore = &issup
			cp.IsUseScore = &isuse
		}
		out[i] = cp
	}
	return out
}
