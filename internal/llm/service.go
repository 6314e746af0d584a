package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/longregen/creditexplain/internal/adapters/circuitbreaker"
	"github.com/longregen/creditexplain/internal/adapters/metrics"
)

// Service wraps the chat client with a circuit breaker and per-call deadlines.
// The critic and generator each get their own Service so one failing role
// does not trip the breaker for the other.
type Service struct {
	client  *Client
	breaker *circuitbreaker.CircuitBreaker
	role    string
	model   string
	timeout time.Duration
}

// NewService creates a Service for the given role and model with the given
// call timeout. The role labels request metrics and names the breaker.
func NewService(client *Client, role, model string, timeout time.Duration) *Service {
	return &Service{
		client:  client,
		breaker: circuitbreaker.New("llm-"+role, 5, 30*time.Second),
		role:    role,
		model:   model,
		timeout: timeout,
	}
}

// Model returns the configured model identifier
func (s *Service) Model() string {
	return s.model
}

// Complete runs a chat completion and returns the first choice's content
func (s *Service) Complete(ctx context.Context, messages []Message, temperature float64, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	var content string
	err := s.breaker.Execute(func() error {
		resp, err := s.client.Chat(ctx, &ChatRequest{
			Model:       s.model,
			Messages:    messages,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no choices in response")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.LLMRequestsTotal.WithLabelValues(s.role, status).Inc()
	metrics.LLMRequestDuration.WithLabelValues(s.role).Observe(time.Since(start).Seconds())

	if err != nil {
		return "", fmt.Errorf("chat completion with %s failed: %w", s.model, err)
	}
	return content, nil
}
