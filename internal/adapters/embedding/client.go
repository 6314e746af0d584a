package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/longregen/creditexplain/internal/adapters/circuitbreaker"
	"github.com/longregen/creditexplain/internal/adapters/retry"
)

// Client talks to an OpenAI-compatible embeddings endpoint
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewClient creates an embedding client for the given endpoint and model
func NewClient(baseURL, apiKey, model string, dimensions int) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/v1")

	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		dimensions: dimensions,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		breaker: circuitbreaker.New("embedding", 5, 30*time.Second),
	}
}

// ModelVersion returns the embedding model identifier
func (c *Client) ModelVersion() string {
	return c.model
}

// Embed returns the embedding vector for a single text. Blank input yields
// an empty vector without a remote call; callers treat that as nothing to
// search for.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns embedding vectors for multiple texts in one call.
// Result order matches input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	url := c.baseURL + "/v1/embeddings"

	var embResp embeddingResponse
	err = c.breaker.Execute(func() error {
		return retry.WithBackoffHTTP(ctx, retry.HTTPConfig(), func() (int, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return 0, fmt.Errorf("failed to create request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")
			if c.apiKey != "" {
				req.Header.Set("Authorization", "Bearer "+c.apiKey)
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return 0, err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
				if retry.IsRetryableHTTPStatus(resp.StatusCode) {
					return resp.StatusCode, nil
				}
				return resp.StatusCode, fmt.Errorf("embedding request returned status %d: %s (try: %s)",
					resp.StatusCode, string(respBody), c.curlExample(len(texts)))
			}

			if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
				return resp.StatusCode, fmt.Errorf("failed to decode embedding response: %w", err)
			}
			return resp.StatusCode, nil
		})
	})
	if err != nil {
		return nil, err
	}

	if len(embResp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(embResp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range embResp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("embedding response index %d out of range", item.Index)
		}
		if c.dimensions > 0 && len(item.Embedding) != c.dimensions {
			return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(item.Embedding), c.dimensions)
		}
		vectors[item.Index] = item.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("embedding response missing vector for input %d", i)
		}
	}

	return vectors, nil
}

// curlExample renders a reproduction command for debugging endpoint failures
func (c *Client) curlExample(inputs int) string {
	return fmt.Sprintf(`curl -X POST %s/v1/embeddings -H 'Content-Type: application/json' -d '{"model": %q, "input": ["..."]}' (%d inputs)`,
		c.baseURL, c.model, inputs)
}
