package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/curator/ai"
	"github.com/poiesic/curator/core"
)

// ErrNoAnswer is returned when the model never produced a parsable assessment.
var ErrNoAnswer = errors.New("model returned no usable assessment")

// Scorer implements ai.RelevanceScorer using OpenAI-compatible chat APIs.
type Scorer struct {
	client      llms.Model
	maxContent  int
	maxAttempts int
	logger      *slog.Logger
}

var _ ai.RelevanceScorer = (*Scorer)(nil)

// newScorer is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newScorer(config *ai.Config) (*Scorer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := newModel(config)
	if err != nil {
		return nil, err
	}

	return &Scorer{
		client:      client,
		maxContent:  config.MaxContent,
		maxAttempts: config.MaxAttempts,
		logger:      slog.Default().With("component", "openai-scorer"),
	}, nil
}

// NewScorer creates a relevance scorer using the provided configuration.
//
// Returns ai.RelevanceScorer interface to enforce abstraction.
func NewScorer(config *ai.Config) (ai.RelevanceScorer, error) {
	return newScorer(config)
}

// Score asks the model for an Assessment of the entry and returns its
// clamped relevance score.
func (s *Scorer) Score(ctx context.Context, entry *core.Entry) (float64, error) {
	assessment, err := s.Assess(ctx, entry)
	if err != nil {
		return 0, err
	}
	return core.ClampScore(assessment.RelevanceScore), nil
}

// Assess returns the model's full structured judgement of the entry.
func (s *Scorer) Assess(ctx context.Context, entry *core.Entry) (*ai.Assessment, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildSystemPrompt())},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(buildUserPrompt(entry, s.maxContent))},
		},
	}

	// Malformed JSON is re-requested; transport errors are not.
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		response, err := s.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			s.logger.Warn("failed to generate content", "attempt", attempt, "url", entry.URL, "err", err)
			return nil, err
		}
		if len(response.Choices) < 1 {
			lastErr = ErrNoAnswer
			continue
		}

		result, err := parseAssessment(response.Choices[0].Content)
		if err != nil {
			lastErr = err
			s.logger.Debug("error parsing scorer response", "attempt", attempt, "response", response.Choices[0].Content, "err", err)
			continue
		}
		return result, nil
	}

	s.logger.Warn("failed to parse scorer response after retries", "url", entry.URL, "err", lastErr)
	return nil, fmt.Errorf("%w: %w", ErrNoAnswer, lastErr)
}

// parseAssessment decodes a model response, repairing common JSON mistakes
// only when the raw text does not parse.
func parseAssessment(raw string) (*ai.Assessment, error) {
	text := stripFences(raw)
	var result ai.Assessment
	err := json.Unmarshal([]byte(text), &result)
	if err == nil {
		return &result, nil
	}
	if repaired := repairJSON(text); repaired != text {
		if json.Unmarshal([]byte(repaired), &result) == nil {
			return &result, nil
		}
	}
	return nil, err
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
