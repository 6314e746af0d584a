package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/longregen/creditexplain/internal/domain"
	"github.com/longregen/creditexplain/internal/domain/models"
)

const writeTimeout = 5 * time.Second

// Sink appends one JSON line per run to a daily audit file, and writes a
// per-run JSON file so individual records can be fetched back by run ID.
// Writes are serialized and flushed before returning.
type Sink struct {
	mu  sync.Mutex
	dir string
}

// NewSink creates a sink writing under dir, creating it if needed
func NewSink(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	return &Sink{dir: dir}, nil
}

// Write appends the record and returns the daily audit file path as the
// audit ID. It returns only after the data is flushed to disk.
func (s *Sink) Write(ctx context.Context, record *models.AuditRecord) (string, error) {
	if record == nil {
		return "", fmt.Errorf("%w: nil record", domain.ErrAuditWriteFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrAuditWriteFailed, err)
	}

	done := make(chan struct{})
	var path string
	var writeErr error
	go func() {
		defer close(done)
		s.mu.Lock()
		defer s.mu.Unlock()
		path, writeErr = s.append(record.RunID, data)
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", domain.ErrAuditWriteFailed, ctx.Err())
	case <-done:
	}
	if writeErr != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrAuditWriteFailed, writeErr)
	}

	return path, nil
}

// append writes the JSONL line and the per-run file. Caller holds the lock.
func (s *Sink) append(runID string, data []byte) (string, error) {
	daily := s.dailyFile()

	f, err := os.OpenFile(daily, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return "", err
	}
	if err := f.Sync(); err != nil {
		return "", err
	}

	if runID != "" {
		if err := os.WriteFile(s.runFile(runID), data, 0o644); err != nil {
			return "", err
		}
	}

	return daily, nil
}

// Get returns the record for a run, or ErrAuditNotFound
func (s *Sink) Get(runID string) (*models.AuditRecord, error) {
	// run IDs arrive from URL paths, so reject anything path-like
	if runID == "" || strings.ContainsAny(runID, "/\\.") {
		return nil, domain.ErrAuditNotFound
	}

	data, err := os.ReadFile(s.runFile(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrAuditNotFound
		}
		return nil, fmt.Errorf("failed to read audit record: %w", err)
	}

	var record models.AuditRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode audit record: %w", err)
	}
	return &record, nil
}

func (s *Sink) dailyFile() string {
	return filepath.Join(s.dir, fmt.Sprintf("audit_%s.jsonl", time.Now().Format("20060102")))
}

func (s *Sink) runFile(runID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("audit_%s.json", runID))
}
