package handlers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/longregen/creditexplain/internal/ports"
)

// Check probes one collaborator. It returns a human-readable message on
// success and an error when the collaborator is unusable.
type Check func(ctx context.Context) (string, error)

type HealthHandler struct {
	checks map[string]Check
}

func NewHealthHandler(checks map[string]Check) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// IndexCheck reports the vector index chunk count.
func IndexCheck(index ports.VectorIndex) Check {
	return func(ctx context.Context) (string, error) {
		count, err := index.Count(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d chunks indexed", count), nil
	}
}

// DirWritableCheck verifies the directory exists and accepts writes.
func DirWritableCheck(dir string) Check {
	return func(ctx context.Context) (string, error) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
		probe := filepath.Join(dir, ".health")
		if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
			return "", err
		}
		os.Remove(probe)
		return "writable", nil
	}
}

// EndpointCheck reports whether a remote collaborator has an endpoint
// configured. It deliberately makes no network call: upstream model
// services meter requests, and readiness here means "wired", not "warm".
func EndpointCheck(url string) Check {
	return func(ctx context.Context) (string, error) {
		if url == "" {
			return "", fmt.Errorf("no endpoint configured")
		}
		return fmt.Sprintf("configured: %s", url), nil
	}
}

// Liveness handles GET /health.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

type healthStatus struct {
	Status     string               `json:"status"` // "healthy" or "degraded"
	Timestamp  time.Time            `json:"timestamp"`
	Components map[string]component `json:"components"`
}

type component struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

// Detailed handles GET /health/detailed, running every registered check.
func (h *HealthHandler) Detailed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := healthStatus{
		Status:     "healthy",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]component),
	}

	for name, check := range h.checks {
		start := time.Now()
		msg, err := check(ctx)
		latency := time.Since(start).Milliseconds()
		if err != nil {
			status.Status = "degraded"
			status.Components[name] = component{
				Status:    "unhealthy",
				Message:   err.Error(),
				LatencyMs: latency,
			}
			continue
		}
		status.Components[name] = component{
			Status:    "healthy",
			Message:   msg,
			LatencyMs: latency,
		}
	}

	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, status, code)
}
