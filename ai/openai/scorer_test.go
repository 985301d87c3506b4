package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/curator/ai"
	"github.com/poiesic/curator/core"
)

// chatServer answers every chat completion request with the next reply.
// The last reply repeats once the list is used up.
func chatServer(t *testing.T, replies ...string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		n := int(calls.Add(1)) - 1
		if n >= len(replies) {
			n = len(replies) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1714000000,
			"model":   "gemma3:1b",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": replies[n]},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testEntry() *core.Entry {
	return &core.Entry{
		Title: "Drip irrigation trials in Maharashtra",
		Text:  "Field trials of drip irrigation for sugarcane across Maharashtra districts.",
		URL:   "https://icar.org.in/drip",
	}
}

func TestScorerScore(t *testing.T) {
	srv, calls := chatServer(t, `{"domain":"water","relevance_score":0.8,"geographic_relevance":["maharashtra"]}`)

	scorer, err := newScorer(ai.NewConfig(ai.WithHost(srv.URL)))
	require.NoError(t, err)

	score, err := scorer.Score(context.Background(), testEntry())
	require.NoError(t, err)
	assert.InDelta(t, 0.8, score, 1e-9)
	assert.Equal(t, int32(1), calls.Load())
}

func TestScorerAssessRetriesMalformed(t *testing.T) {
	srv, calls := chatServer(t,
		"I think this is relevant",
		"```json\n{\"domain\":\"water\", relevance_score\":0.6}\n```",
	)

	scorer, err := newScorer(ai.NewConfig(ai.WithHost(srv.URL)))
	require.NoError(t, err)

	a, err := scorer.Assess(context.Background(), testEntry())
	require.NoError(t, err)
	assert.Equal(t, "water", a.Domain)
	assert.InDelta(t, 0.6, a.RelevanceScore, 1e-9)
	assert.Equal(t, int32(2), calls.Load())
}

func TestScorerGivesUp(t *testing.T) {
	srv, calls := chatServer(t, "not json at all")

	scorer, err := newScorer(ai.NewConfig(ai.WithHost(srv.URL), ai.WithMaxAttempts(2)))
	require.NoError(t, err)

	_, err = scorer.Score(context.Background(), testEntry())
	assert.ErrorIs(t, err, ErrNoAnswer)
	assert.Equal(t, int32(2), calls.Load())
}

func TestScorerClampsScore(t *testing.T) {
	srv, _ := chatServer(t, `{"domain":"crops","relevance_score":7,"geographic_relevance":[]}`)

	scorer, err := newScorer(ai.NewConfig(ai.WithHost(srv.URL)))
	require.NoError(t, err)

	score, err := scorer.Score(context.Background(), testEntry())
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestNewScorerInvalidConfig(t *testing.T) {
	_, err := NewScorer(ai.NewConfig(ai.WithModel("")))
	assert.Error(t, err)
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "missing opening quote",
			in:   `{"domain":"crops", relevance_score":0.8}`,
			want: `{"domain":"crops", "relevance_score":0.8}`,
		},
		{
			name: "unquoted keys and trailing comma",
			in:   `{domain: "soil", relevance_score: 0.4,}`,
			want: `{"domain": "soil", "relevance_score": 0.4}`,
		},
		{
			name: "valid input unchanged",
			in:   `{"domain":"pest","relevance_score":0.2}`,
			want: `{"domain":"pest","relevance_score":0.2}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repairJSON(tt.in))
		})
	}
}

func TestParseAssessmentKeepsValidStrings(t *testing.T) {
	// The raw text parses, so commas and colons inside values are left alone.
	a, err := parseAssessment(`{"domain":"policy, note: x","relevance_score":0.5}`)
	require.NoError(t, err)
	assert.Equal(t, "policy, note: x", a.Domain)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "खेती", truncate("खेती और", 4))
	assert.Equal(t, "short", truncate("short", 10))
}
