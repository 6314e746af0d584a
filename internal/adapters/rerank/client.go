package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/longregen/creditexplain/internal/adapters/circuitbreaker"
	"github.com/longregen/creditexplain/internal/adapters/retry"
	"github.com/longregen/creditexplain/internal/domain/models"
)

// Client talks to a text-embeddings-inference style rerank endpoint
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// NewClient creates a rerank client for the given endpoint
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		breaker: circuitbreaker.New("rerank", 5, 30*time.Second),
	}
}

// Rerank scores passages against the query with the cross-encoder and
// returns the topN passages ordered by score descending, plus the full
// score list aligned with the input order. Ties keep input order.
func (c *Client) Rerank(ctx context.Context, query string, passages []models.Passage, topN int) ([]models.RankedPassage, []float64, error) {
	if len(passages) == 0 {
		return nil, nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	body, err := json.Marshal(rerankRequest{Query: query, Texts: texts})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	var results []rerankResult
	err = c.breaker.Execute(func() error {
		return retry.WithBackoffHTTP(ctx, retry.HTTPConfig(), func() (int, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
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
				return resp.StatusCode, fmt.Errorf("rerank returned status %d: %s", resp.StatusCode, string(respBody))
			}

			if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
				return resp.StatusCode, fmt.Errorf("failed to decode rerank response: %w", err)
			}
			return resp.StatusCode, nil
		})
	})
	if err != nil {
		return nil, nil, err
	}

	scores := make([]float64, len(passages))
	seen := make([]bool, len(passages))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(passages) {
			return nil, nil, fmt.Errorf("rerank response index %d out of range", r.Index)
		}
		scores[r.Index] = r.Score
		seen[r.Index] = true
	}
	for i := range seen {
		if !seen[i] {
			return nil, nil, fmt.Errorf("rerank response missing score for passage %d", i)
		}
	}

	order := make([]int, len(passages))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if topN > len(order) {
		topN = len(order)
	}
	ranked := make([]models.RankedPassage, topN)
	for i := 0; i < topN; i++ {
		idx := order[i]
		ranked[i] = models.RankedPassage{
			Passage:     passages[idx],
			RerankScore: scores[idx],
		}
	}

	return ranked, scores, nil
}
