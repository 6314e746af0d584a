package handlers

import (
	"net/http"

	"github.com/longregen/creditexplain/internal/ingest"
)

type PIIHandler struct {
	redactor *ingest.Redactor
}

func NewPIIHandler(redactor *ingest.Redactor) *PIIHandler {
	return &PIIHandler{redactor: redactor}
}

// Stats handles GET /pii-stats, reporting what the redactor has stripped
// since the process started.
func (h *PIIHandler) Stats(w http.ResponseWriter, r *http.Request) {
	byClass := h.redactor.Stats()
	var total int64
	for _, n := range byClass {
		total += n
	}
	respondJSON(w, map[string]any{
		"total_redactions": total,
		"by_class":         byClass,
	}, http.StatusOK)
}
