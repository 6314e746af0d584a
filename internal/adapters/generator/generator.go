package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/longregen/creditexplain/internal/domain/models"
	"github.com/longregen/creditexplain/internal/llm"
)

const (
	maxPassageLen    = 1000
	maxFollowUps     = 5
	defaultMaxTokens = 1024
)

// defaultFollowUps is returned whenever follow-up generation fails or
// yields nothing usable
var defaultFollowUps = []string{
	"What are the key terms or concepts mentioned in this regulation?",
	"How does this apply to different types of financial institutions?",
	"Are there any exceptions or special cases for this rule?",
	"What are the consequences of non-compliance with this regulation?",
	"Where can I find more detailed information about this topic?",
}

// Generator produces evidence-backed answers and follow-up questions with
// an LLM. Malformed model output degrades to fallback answers; a non-nil
// error accompanies the fallback only when the model call itself failed.
type Generator struct {
	svc       *llm.Service
	maxTokens int
}

// New creates a Generator on top of the given chat service. A non-positive
// maxTokens falls back to the default completion budget.
func New(svc *llm.Service, maxTokens int) *Generator {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Generator{svc: svc, maxTokens: maxTokens}
}

// ModelVersion returns the generator model identifier
func (g *Generator) ModelVersion() string {
	return g.svc.Model()
}

// Answer generates an answer for the query grounded in the given passages.
// On failure the returned answer is a low-confidence fallback.
func (g *Generator) Answer(ctx context.Context, query string, passages []models.RankedPassage) (*models.Answer, error) {
	block := formatPassagesBlock(passages)

	content, err := g.svc.Complete(ctx, []llm.Message{
		{Role: "user", Content: answerPrompt(query, block)},
	}, 0.0, g.maxTokens)
	if err != nil {
		log.Printf("answer generation failed: %v, using fallback", err)
		return fallbackAnswer(query, len(passages), g.svc.Model()), err
	}

	answer, err := parseAnswer(content, query)
	if err != nil {
		log.Printf("answer unparseable: %v, using fallback", err)
		return fallbackAnswer(query, len(passages), g.svc.Model()), nil
	}
	answer.ModelVersion = g.svc.Model()

	return answer, nil
}

// FollowUps generates follow-up questions from the answered query.
// Failures fall back to a fixed generic list.
func (g *Generator) FollowUps(ctx context.Context, query string, answer *models.Answer, passages []models.RankedPassage) ([]string, error) {
	explanation := ""
	confidence := "UNKNOWN"
	if answer != nil {
		explanation = answer.Explanation
		if answer.Confidence != "" {
			confidence = answer.Confidence
		}
	}

	content, err := g.svc.Complete(ctx, []llm.Message{
		{Role: "user", Content: followUpPrompt(query, explanation, len(passages), confidence)},
	}, 0.0, g.maxTokens)
	if err != nil {
		log.Printf("follow-up generation failed: %v, using defaults", err)
		return defaultQuestions(), err
	}

	questions, err := parseFollowUps(content)
	if err != nil || len(questions) == 0 {
		log.Printf("follow-up questions unparseable: %v, using defaults", err)
		return defaultQuestions(), nil
	}
	if len(questions) > maxFollowUps {
		questions = questions[:maxFollowUps]
	}

	return questions, nil
}

func defaultQuestions() []string {
	out := make([]string, len(defaultFollowUps))
	copy(out, defaultFollowUps)
	return out
}

// formatPassagesBlock renders passages for the prompt, one block per
// passage with its ID and document type
func formatPassagesBlock(passages []models.RankedPassage) string {
	if len(passages) == 0 {
		return "No relevant passages available."
	}

	var b strings.Builder
	for _, p := range passages {
		text := models.TruncateChars(p.Text, maxPassageLen)
		fmt.Fprintf(&b, "[ID: %s | Type: %s]\n%s\n\n", p.ID, p.DocType(), text)
	}
	return strings.TrimSpace(b.String())
}

func fallbackAnswer(query string, passageCount int, modelVersion string) *models.Answer {
	var explanation string
	if passageCount > 0 {
		explanation = fmt.Sprintf("I found relevant documents but encountered an error processing them for your query: '%s'. Please try again or rephrase your question.", query)
	} else {
		explanation = fmt.Sprintf("I couldn't find any relevant documents to answer your question: '%s'. Please try rephrasing or ensure relevant documents are uploaded.", query)
	}

	return &models.Answer{
		Explanation:  explanation,
		Citations:    []models.Citation{},
		Confidence:   models.ConfidenceLow,
		ModelVersion: modelVersion,
	}
}

// parseAnswer decodes and validates the model reply. Missing or invalid
// fields get defaults instead of failing the whole answer.
func parseAnswer(content, query string) (*models.Answer, error) {
	raw, err := llm.ExtractJSONObject(content)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Explanation string          `json:"explanation"`
		Citations   json.RawMessage `json:"citations"`
		Confidence  string          `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("invalid answer JSON: %w", err)
	}

	answer := &models.Answer{
		Explanation: parsed.Explanation,
		Citations:   []models.Citation{},
		Confidence:  models.ConfidenceMedium,
	}

	if answer.Explanation == "" {
		answer.Explanation = fmt.Sprintf("I couldn't generate a specific answer for '%s' based on the provided documents.", query)
	}

	if len(parsed.Citations) > 0 {
		var citations []models.Citation
		if err := json.Unmarshal(parsed.Citations, &citations); err == nil && citations != nil {
			answer.Citations = citations
		}
	}

	if models.ValidConfidence(parsed.Confidence) {
		answer.Confidence = parsed.Confidence
	}

	return answer, nil
}

func parseFollowUps(content string) ([]string, error) {
	raw, err := llm.ExtractJSONObject(content)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("invalid follow-up JSON: %w", err)
	}

	questions := make([]string, 0, len(parsed.Questions))
	for _, q := range parsed.Questions {
		if trimmed := strings.TrimSpace(q); trimmed != "" {
			questions = append(questions, trimmed)
		}
	}
	return questions, nil
}
