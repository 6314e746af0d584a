package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/longregen/creditexplain/internal/domain"
	"github.com/longregen/creditexplain/internal/ports"
)

type AuditHandler struct {
	sink ports.AuditSink
}

func NewAuditHandler(sink ports.AuditSink) *AuditHandler {
	return &AuditHandler{sink: sink}
}

// Get handles GET /audit/{run_id}, returning the full provenance record of
// one pipeline run.
func (h *AuditHandler) Get(w http.ResponseWriter, r *http.Request) {
	record, err := h.sink.Get(chi.URLParam(r, "run_id"))
	if err != nil {
		if errors.Is(err, domain.ErrAuditNotFound) {
			respondError(w, "audit not found", http.StatusNotFound)
			return
		}
		slog.Error("audit lookup", "error", err)
		respondError(w, "failed to read audit record", http.StatusInternalServerError)
		return
	}
	respondJSON(w, record, http.StatusOK)
}
