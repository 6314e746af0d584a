package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/longregen/creditexplain/internal/config"
	"github.com/longregen/creditexplain/internal/domain"
	"github.com/longregen/creditexplain/internal/domain/models"
	"github.com/longregen/creditexplain/internal/ingest"
)

type stubPipeline struct {
	resp *models.Response
}

func (s *stubPipeline) Run(ctx context.Context, query models.Query) *models.Response {
	return s.resp
}

type stubIndex struct {
	count int
	err   error
}

func (s *stubIndex) Search(ctx context.Context, vector []float32, k int, filter map[string]any) ([]models.Passage, error) {
	return nil, nil
}
func (s *stubIndex) Upsert(ctx context.Context, entries []models.IndexEntry) error { return nil }
func (s *stubIndex) Count(ctx context.Context) (int, error)                        { return s.count, s.err }

type stubAudit struct {
	record *models.AuditRecord
}

func (s *stubAudit) Write(ctx context.Context, record *models.AuditRecord) (string, error) {
	return "", nil
}

func (s *stubAudit) Get(runID string) (*models.AuditRecord, error) {
	if s.record != nil && s.record.RunID == runID {
		return s.record, nil
	}
	return nil, domain.ErrAuditNotFound
}

type serverOptions struct {
	pipeline *stubPipeline
	index    *stubIndex
	audit    *stubAudit
	redactor *ingest.Redactor
	cfg      *config.Config
}

func testServer(t *testing.T, opts serverOptions) *Server {
	t.Helper()
	if opts.pipeline == nil {
		opts.pipeline = &stubPipeline{resp: &models.Response{
			Answer: &models.Answer{
				Explanation: "Banks must maintain a 10% capital adequacy ratio.",
				Citations:   []models.Citation{{DocID: "d1", TextExcerpt: "ratio of 10%"}},
				Confidence:  models.ConfidenceHigh,
			},
		}}
	}
	if opts.index == nil {
		opts.index = &stubIndex{count: 42}
	}
	if opts.audit == nil {
		opts.audit = &stubAudit{}
	}
	if opts.redactor == nil {
		opts.redactor = ingest.NewRedactor()
	}
	if opts.cfg == nil {
		opts.cfg = config.DefaultConfig()
		opts.cfg.Documents.UploadDir = t.TempDir()
		opts.cfg.Audit.Dir = t.TempDir()
	}
	return NewServer(opts.cfg, opts.pipeline, opts.index, opts.audit, opts.redactor)
}

func doRequest(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestQueryEndpoint(t *testing.T) {
	srv := testServer(t, serverOptions{})

	body := strings.NewReader(`{"query": "What is the minimum capital ratio?"}`)
	rec := doRequest(srv, httptest.NewRequest(http.MethodPost, "/query", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Explanation       string            `json:"explanation"`
		Citations         []models.Citation `json:"citations"`
		Confidence        string            `json:"confidence"`
		FollowUpQuestions []string          `json:"follow_up_questions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Explanation, "capital adequacy") {
		t.Errorf("explanation = %q", resp.Explanation)
	}
	if len(resp.Citations) != 1 || resp.Confidence != models.ConfidenceHigh {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.FollowUpQuestions == nil {
		t.Error("follow_up_questions should be an empty list, not null")
	}
}

func TestQueryEndpointBadRequest(t *testing.T) {
	srv := testServer(t, serverOptions{pipeline: &stubPipeline{resp: &models.Response{
		Answer: &models.Answer{Explanation: "Please provide a non-empty question.", Confidence: models.ConfidenceLow},
		Error:  models.ErrCodeBadRequest,
	}}})

	rec := doRequest(srv, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query": ""}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestQueryEndpointPipelineError(t *testing.T) {
	srv := testServer(t, serverOptions{pipeline: &stubPipeline{resp: &models.Response{
		Answer: &models.Answer{Explanation: "A system error occurred while processing your request. Our team has been notified.", Confidence: models.ConfidenceLow},
		Error:  models.ErrCodePipelineError,
	}}})

	rec := doRequest(srv, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query": "x"}`)))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestQueryEndpointInsufficientSupportIsOK(t *testing.T) {
	srv := testServer(t, serverOptions{pipeline: &stubPipeline{resp: &models.Response{
		Answer: &models.Answer{
			Status:     models.ErrCodeInsufficientSupport,
			Message:    "The available documents don't provide sufficient support for a confident answer.",
			Confidence: models.ConfidenceLow,
		},
		Error: models.ErrCodeInsufficientSupport,
	}}})

	rec := doRequest(srv, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query": "x"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "sufficient support") {
		t.Errorf("message not surfaced: %s", rec.Body.String())
	}
}

func TestQueryEndpointMalformedBody(t *testing.T) {
	srv := testServer(t, serverOptions{})
	rec := doRequest(srv, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{not json`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func multipartBody(t *testing.T, filenames ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range filenames {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte("%PDF-1.4 test content")); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadAndListDocuments(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Documents.UploadDir = t.TempDir()
	srv := testServer(t, serverOptions{cfg: cfg})

	body, contentType := multipartBody(t, "basel_iii.pdf", "cbn_guidelines.pdf")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := doRequest(srv, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var uploadResp struct {
		Uploaded []string `json:"uploaded"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &uploadResp); err != nil {
		t.Fatal(err)
	}
	if len(uploadResp.Uploaded) != 2 {
		t.Fatalf("uploaded = %v", uploadResp.Uploaded)
	}

	rec = doRequest(srv, httptest.NewRequest(http.MethodGet, "/documents", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listResp struct {
		Documents []map[string]string `json:"documents"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listResp); err != nil {
		t.Fatal(err)
	}
	if len(listResp.Documents) != 2 || listResp.Documents[0]["filename"] != "basel_iii.pdf" {
		t.Errorf("documents = %v", listResp.Documents)
	}

	rec = doRequest(srv, httptest.NewRequest(http.MethodGet, "/documents/basel_iii.pdf", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metadata status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "size_bytes") {
		t.Errorf("metadata body = %s", rec.Body.String())
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	cfg := config.DefaultConfig()
	dir := t.TempDir()
	cfg.Documents.UploadDir = dir
	srv := testServer(t, serverOptions{cfg: cfg})

	body, contentType := multipartBody(t, "good.pdf", "malware.exe")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := doRequest(srv, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	// rejection happens before anything is written
	matches, _ := filepath.Glob(filepath.Join(dir, "*"))
	if len(matches) != 0 {
		t.Errorf("files written despite rejection: %v", matches)
	}
}

func TestDocumentMetadataNotFound(t *testing.T) {
	srv := testServer(t, serverOptions{})
	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/documents/missing.pdf", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAuditEndpoint(t *testing.T) {
	audit := &stubAudit{record: &models.AuditRecord{
		RunID:  "run_abc",
		Query:  "capital rules?",
		Status: models.StatusSuccess,
	}}
	srv := testServer(t, serverOptions{audit: audit})

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/audit/run_abc", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "run_abc") {
		t.Errorf("body = %s", rec.Body.String())
	}

	rec = doRequest(srv, httptest.NewRequest(http.MethodGet, "/audit/run_missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := testServer(t, serverOptions{index: &stubIndex{count: 7}})

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("liveness status = %d", rec.Code)
	}

	rec = doRequest(srv, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("detailed status = %d", rec.Code)
	}
	for _, want := range []string{"7 chunks indexed", "audit_dir", "llm", "embedding", "reranker"} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("detailed body missing %q: %s", want, rec.Body.String())
		}
	}
}

func TestHealthDetailedDegraded(t *testing.T) {
	srv := testServer(t, serverOptions{index: &stubIndex{err: errors.New("connection refused")}})

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "degraded") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestPIIStatsEndpoint(t *testing.T) {
	redactor := ingest.NewRedactor()
	redactor.Redact("reach me at someone@example.com")
	srv := testServer(t, serverOptions{redactor: redactor})

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/pii-stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		TotalRedactions int64            `json:"total_redactions"`
		ByClass         map[string]int64 `json:"by_class"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.TotalRedactions != 1 || resp.ByClass["EMAIL"] != 1 {
		t.Errorf("stats = %+v", resp)
	}
}

func TestCORS(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Documents.UploadDir = t.TempDir()
	cfg.Server.CORSOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	srv := testServer(t, serverOptions{cfg: cfg})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := doRequest(srv, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allowed origin header = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("credentials header = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = doRequest(srv, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin got header %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/query", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec = doRequest(srv, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
}

func TestCORSPreflightEchoesRequestedHeaders(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Documents.UploadDir = t.TempDir()
	cfg.Server.CORSOrigins = []string{"http://localhost:5173"}
	srv := testServer(t, serverOptions{cfg: cfg})

	req := httptest.NewRequest(http.MethodOptions, "/query", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, X-Request-Id")
	rec := doRequest(srv, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "Authorization, X-Request-Id" {
		t.Errorf("allow-headers = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "DELETE") {
		t.Errorf("allow-methods = %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t, serverOptions{})
	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "creditexplain_") {
		t.Error("expected creditexplain metrics in exposition")
	}
}
