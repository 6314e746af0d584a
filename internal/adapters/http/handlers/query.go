package handlers

import (
	"context"
	"net/http"

	"github.com/longregen/creditexplain/internal/domain/models"
)

// Pipeline is the query execution surface the handler depends on.
type Pipeline interface {
	Run(ctx context.Context, query models.Query) *models.Response
}

type QueryHandler struct {
	pipeline Pipeline
}

func NewQueryHandler(pipeline Pipeline) *QueryHandler {
	return &QueryHandler{pipeline: pipeline}
}

type queryIn struct {
	Query  string `json:"query"`
	CaseID string `json:"case_id,omitempty"`
}

// queryResponse is the public shape: the pipeline's internals (run IDs,
// provenance, audit pointers) stay behind the audit endpoint.
type queryResponse struct {
	Explanation       string            `json:"explanation"`
	Citations         []models.Citation `json:"citations"`
	Confidence        string            `json:"confidence"`
	FollowUpQuestions []string          `json:"follow_up_questions"`
}

// Query handles POST /query. Every terminal pipeline state except a malformed
// request or an internal fault still produces a well-formed answer, so those
// return 200.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var in queryIn
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := h.pipeline.Run(r.Context(), models.NewQuery(in.Query, in.CaseID))

	switch resp.Error {
	case models.ErrCodeBadRequest:
		respondError(w, resp.Answer.Explanation, http.StatusBadRequest)
		return
	case models.ErrCodePipelineError:
		respondError(w, resp.Answer.Explanation, http.StatusInternalServerError)
		return
	}

	respondJSON(w, publicResponse(resp.Answer), http.StatusOK)
}

func publicResponse(answer *models.Answer) queryResponse {
	out := queryResponse{
		Explanation:       answer.Explanation,
		Citations:         answer.Citations,
		Confidence:        answer.Confidence,
		FollowUpQuestions: answer.FollowUpQuestions,
	}
	if out.Explanation == "" {
		if answer.Message != "" {
			out.Explanation = answer.Message
		} else {
			out.Explanation = "No explanation generated."
		}
	}
	if out.Citations == nil {
		out.Citations = []models.Citation{}
	}
	if out.Confidence == "" {
		out.Confidence = models.ConfidenceLow
	}
	if out.FollowUpQuestions == nil {
		out.FollowUpQuestions = []string{}
	}
	return out
}
