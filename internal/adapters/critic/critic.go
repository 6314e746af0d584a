package critic

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/longregen/creditexplain/internal/domain/models"
	"github.com/longregen/creditexplain/internal/llm"
)

const (
	// long answers and passages are truncated to stay inside token limits
	maxScoreInputLen = 2000

	fallbackScore = 0.5
)

// Critic grades queries and candidate answers with an LLM. Malformed model
// output degrades to fallback values; a non-nil error accompanies fallback
// results only when the model call itself failed.
type Critic struct {
	svc *llm.Service
}

// New creates a Critic on top of the given chat service
func New(svc *llm.Service) *Critic {
	return &Critic{svc: svc}
}

// ModelVersion returns the critic model identifier
func (c *Critic) ModelVersion() string {
	return c.svc.Model()
}

// Decide determines whether the query warrants document retrieval.
// On failure the returned decision defaults to retrieving.
func (c *Critic) Decide(ctx context.Context, query string) (models.RetrievalDecision, error) {
	content, err := c.svc.Complete(ctx, []llm.Message{
		{Role: "user", Content: retrievePrompt(query)},
	}, 0.0, 0)
	if err != nil {
		log.Printf("retrieval decision failed: %v, using fallback", err)
		return models.RetrievalDecision{
			Retrieve: true,
			Notes:    fmt.Sprintf("Fallback due to error: %v", err),
		}, err
	}

	decision, err := parseDecision(content)
	if err != nil {
		log.Printf("retrieval decision unparseable: %v, using fallback", err)
		return models.RetrievalDecision{
			Retrieve: true,
			Notes:    fmt.Sprintf("Fallback due to error: %v", err),
		}, nil
	}

	return decision, nil
}

// Score grades a candidate answer against its source passage on relevance,
// support, and utility. On failure all three scores fall back to 0.5.
func (c *Critic) Score(ctx context.Context, query, answerText, passageText string) (models.CriticScores, error) {
	content, err := c.svc.Complete(ctx, []llm.Message{
		{Role: "user", Content: scorePrompt(query, truncate(answerText, maxScoreInputLen), truncate(passageText, maxScoreInputLen))},
	}, 0.0, 0)
	if err != nil {
		log.Printf("candidate scoring failed: %v, using fallback scores", err)
		return fallbackScores(err), err
	}

	scores, err := parseScores(content)
	if err != nil {
		log.Printf("candidate scores unparseable: %v, using fallback scores", err)
		return fallbackScores(err), nil
	}

	return scores, nil
}

func fallbackScores(err error) models.CriticScores {
	return models.CriticScores{
		IsRel: fallbackScore,
		IsSup: fallbackScore,
		IsUse: fallbackScore,
		Notes: fmt.Sprintf("Fallback due to error: %v", err),
	}
}

func truncate(s string, max int) string {
	return models.TruncateChars(s, max)
}

func parseDecision(content string) (models.RetrievalDecision, error) {
	raw, err := llm.ExtractJSONObject(content)
	if err != nil {
		return models.RetrievalDecision{}, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return models.RetrievalDecision{}, fmt.Errorf("invalid decision JSON: %w", err)
	}

	decision := models.RetrievalDecision{Retrieve: true}
	if rawRetrieve, ok := fields["retrieve"]; ok {
		var retrieve bool
		if err := json.Unmarshal(rawRetrieve, &retrieve); err != nil {
			return models.RetrievalDecision{}, fmt.Errorf("invalid retrieve field: %w", err)
		}
		decision.Retrieve = retrieve
	}
	if rawNotes, ok := fields["notes"]; ok {
		var notes string
		if err := json.Unmarshal(rawNotes, &notes); err == nil {
			decision.Notes = notes
		}
	}

	return decision, nil
}

func parseScores(content string) (models.CriticScores, error) {
	raw, err := llm.ExtractJSONObject(content)
	if err != nil {
		return models.CriticScores{}, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return models.CriticScores{}, fmt.Errorf("invalid score JSON: %w", err)
	}

	scores := models.CriticScores{
		IsRel: coerceScore(fields["isrel"]),
		IsSup: coerceScore(fields["issup"]),
		IsUse: coerceScore(fields["isuse"]),
	}
	if rawNotes, ok := fields["notes"]; ok {
		var notes string
		if err := json.Unmarshal(rawNotes, &notes); err == nil {
			scores.Notes = notes
		}
	}

	return scores, nil
}

// coerceScore accepts numbers and numeric strings, clamps to [0, 1], and
// falls back to 0.5 for anything missing or unparseable
func coerceScore(raw json.RawMessage) float64 {
	if raw == nil {
		return fallbackScore
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fallbackScore
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fallbackScore
		}
		f = parsed
	}

	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
