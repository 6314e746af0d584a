package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/longregen/creditexplain/internal/domain"
	"github.com/longregen/creditexplain/internal/domain/models"
)

func testRecord(runID string) *models.AuditRecord {
	return &models.AuditRecord{
		RunID:              runID,
		Timestamp:          time.Now().UTC(),
		Query:              "what are the capital requirements?",
		RetrievalDecision:  models.RetrievalDecision{Retrieve: true, Notes: "in domain"},
		RetrievalPerformed: true,
		RetrievedCount:     3,
		TopCandidates: []models.CandidateProvenance{
			{CandidateID: "chunk_1", DocTextPreview: "preview", RetrievalScore: 0.12},
		},
		RerankScores:      []float64{0.9, 0.5, 0.1},
		Confidence:        models.ConfidenceHigh,
		Result:            &models.Answer{Explanation: "e", Citations: []models.Citation{}, Confidence: models.ConfidenceHigh},
		FollowUpQuestions: []string{"q1?"},
		LatencyS:          1.25,
		ModelVersions:     models.ModelVersions{Critic: "c", Generator: "g", Embedding: "e"},
		Status:            models.StatusSuccess,
	}
}

func TestWriteAppendsDailyLine(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewSink(dir)
	if err != nil {
		t.Fatal(err)
	}

	auditID, err := sink.Write(context.Background(), testRecord("run_abc"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	wantFile := filepath.Join(dir, fmt.Sprintf("audit_%s.jsonl", time.Now().Format("20060102")))
	if auditID != wantFile {
		t.Errorf("expected audit ID %q, got %q", wantFile, auditID)
	}

	f, err := os.Open(wantFile)
	if err != nil {
		t.Fatalf("daily file missing: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		lines++
		var record models.AuditRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines, err)
		}
		if record.RunID != "run_abc" {
			t.Errorf("unexpected run ID: %s", record.RunID)
		}
	}
	if lines != 1 {
		t.Errorf("expected 1 line, got %d", lines)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	sink, err := NewSink(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	original := testRecord("run_roundtrip")
	if _, err := sink.Write(context.Background(), original); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := sink.Get("run_roundtrip")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got.RunID != original.RunID || got.Query != original.Query {
		t.Errorf("round trip lost identity fields: %+v", got)
	}
	if got.RetrievedCount != original.RetrievedCount || len(got.TopCandidates) != 1 {
		t.Errorf("round trip lost retrieval fields: %+v", got)
	}
	if len(got.RerankScores) != 3 || got.RerankScores[0] != 0.9 {
		t.Errorf("round trip lost rerank scores: %v", got.RerankScores)
	}
	if got.Result == nil || got.Result.Explanation != "e" {
		t.Errorf("round trip lost result: %+v", got.Result)
	}
	if got.Status != models.StatusSuccess || got.LatencyS != 1.25 {
		t.Errorf("round trip lost status fields: %+v", got)
	}
}

func TestGetUnknownRun(t *testing.T) {
	sink, err := NewSink(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := sink.Get("run_missing"); !errors.Is(err, domain.ErrAuditNotFound) {
		t.Errorf("expected ErrAuditNotFound, got %v", err)
	}
}

func TestGetRejectsPathTraversal(t *testing.T) {
	sink, err := NewSink(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"", "../etc/passwd", "a/b", `a\b`, "run..id"} {
		if _, err := sink.Get(id); !errors.Is(err, domain.ErrAuditNotFound) {
			t.Errorf("id %q: expected ErrAuditNotFound, got %v", id, err)
		}
	}
}

func TestConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewSink(dir)
	if err != nil {
		t.Fatal(err)
	}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := sink.Write(context.Background(), testRecord(fmt.Sprintf("run_%d", i))); err != nil {
				t.Errorf("concurrent write %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	data, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("audit_%s.jsonl", time.Now().Format("20060102"))))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != n {
		t.Fatalf("expected %d lines, got %d", n, len(lines))
	}
	for i, line := range lines {
		var record models.AuditRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Errorf("line %d interleaved or corrupt: %v", i, err)
		}
	}
}

func TestWriteNilRecord(t *testing.T) {
	sink, err := NewSink(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := sink.Write(context.Background(), nil); !errors.Is(err, domain.ErrAuditWriteFailed) {
		t.Errorf("expected ErrAuditWriteFailed, got %v", err)
	}
}
