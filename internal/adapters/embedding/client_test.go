package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func embeddingServer(t *testing.T, dims int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			vec := make([]float32, dims)
			vec[0] = float32(i + 1)
			data[i] = map[string]any{"index": i, "embedding": vec}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
}

func TestEmbed(t *testing.T) {
	server := embeddingServer(t, 4)
	defer server.Close()

	client := NewClient(server.URL, "", "test-embed", 4)
	vec, err := client.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != 4 {
		t.Errorf("expected 4 dimensions, got %d", len(vec))
	}
	if client.ModelVersion() != "test-embed" {
		t.Errorf("unexpected model version: %s", client.ModelVersion())
	}
}

func TestEmbedEmptyText(t *testing.T) {
	// No server: blank input must not reach the network, and must come
	// back as an empty vector so the caller skips the search entirely.
	client := NewClient("http://127.0.0.1:1", "", "test-embed", 384)
	vec, err := client.Embed(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Embed of blank text failed: %v", err)
	}
	if len(vec) != 0 {
		t.Errorf("expected empty vector for blank input, got %d dimensions", len(vec))
	}
}

func TestEmbedBatchOrder(t *testing.T) {
	server := embeddingServer(t, 4)
	defer server.Close()

	client := NewClient(server.URL, "", "test-embed", 4)
	vectors, err := client.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	for i, vec := range vectors {
		if vec[0] != float32(i+1) {
			t.Errorf("vector %d out of order: first component %f", i, vec[0])
		}
	}
}

func TestEmbedBatchEmpty(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "", "test-embed", 4)
	vectors, err := client.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch of empty input failed: %v", err)
	}
	if vectors != nil {
		t.Errorf("expected nil for empty input, got %v", vectors)
	}
}

func TestEmbedDimensionMismatch(t *testing.T) {
	server := embeddingServer(t, 8)
	defer server.Close()

	client := NewClient(server.URL, "", "test-embed", 4)
	_, err := client.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	if !strings.Contains(err.Error(), "dimensions") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEmbedServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "unknown model"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "missing-model", 4)
	_, err := client.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "curl") {
		t.Errorf("expected reproduction hint in error, got %q", err.Error())
	}
}
