package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/curator/ai"
)

const (
	// maxPrevious bounds the history lines sent with a query request.
	maxPrevious = 5
	// minQueryLength drops fragments the model emits between queries.
	minQueryLength = 10
	// maxQueryLength drops rambling lines that are not search queries.
	maxQueryLength = 200
)

// ErrNoQueries is returned when the model never produced a usable query line.
var ErrNoQueries = errors.New("model returned no usable queries")

// QueryWriter implements ai.QueryWriter using OpenAI-compatible chat APIs.
type QueryWriter struct {
	client      llms.Model
	maxAttempts int
	temperature float64
	logger      *slog.Logger
}

var _ ai.QueryWriter = (*QueryWriter)(nil)

func newQueryWriter(config *ai.Config) (*QueryWriter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	client, err := newModel(config)
	if err != nil {
		return nil, err
	}
	return &QueryWriter{
		client:      client,
		maxAttempts: config.MaxAttempts,
		temperature: 0.7,
		logger:      slog.Default().With("component", "openai-queries"),
	}, nil
}

// NewQueryWriter creates a query writer using the provided configuration.
func NewQueryWriter(config *ai.Config) (ai.QueryWriter, error) {
	return newQueryWriter(config)
}

// WriteQueries asks the model for req.Count queries. Replies without a usable
// line are re-requested up to the configured attempt bound.
func (w *QueryWriter) WriteQueries(ctx context.Context, req ai.QueryRequest) ([]string, error) {
	if req.Count < 1 {
		req.Count = 5
	}
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(buildQueryPrompt(req, maxPrevious))},
		},
	}

	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		response, err := w.client.GenerateContent(ctx, content, llms.WithTemperature(w.temperature))
		if err != nil {
			w.logger.Warn("failed to generate queries", "attempt", attempt, "specialization", req.Specialization, "err", err)
			return nil, err
		}
		if len(response.Choices) < 1 {
			continue
		}
		queries := parseQueries(response.Choices[0].Content, req.Count)
		if len(queries) > 0 {
			return queries, nil
		}
		w.logger.Debug("no usable query lines", "attempt", attempt, "response", response.Choices[0].Content)
	}
	return nil, fmt.Errorf("%w: %s", ErrNoQueries, req.Specialization)
}

// parseQueries extracts at most n query lines from a model reply. List
// markers and quotes are stripped; questions, fragments and repeats are
// dropped.
func parseQueries(raw string, n int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(stripFences(raw), "\n") {
		q := cleanQueryLine(line)
		if len(q) < minQueryLength || len(q) > maxQueryLength || strings.Contains(q, "?") {
			continue
		}
		if strings.HasSuffix(q, ":") {
			continue
		}
		key := strings.ToLower(q)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
		if len(out) == n {
			break
		}
	}
	return out
}

func cleanQueryLine(line string) string {
	q := strings.TrimSpace(line)
	q = strings.TrimLeft(q, "-*•·> \t")
	// "1." / "2)" numbering
	if i := strings.IndexAny(q, ".)"); i > 0 && i <= 3 && isDigits(q[:i]) {
		q = q[i+1:]
	}
	q = strings.Trim(strings.TrimSpace(q), "\"'`")
	return strings.Join(strings.Fields(q), " ")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
