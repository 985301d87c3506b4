package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/curator/ai"
	aimock "github.com/poiesic/curator/ai/mock"
	"github.com/poiesic/curator/core"
	"github.com/poiesic/curator/knowledge"
	"github.com/poiesic/curator/learning"
)

func llmSpec(budget int) core.AgentSpec {
	return core.AgentSpec{
		ID:             "agent-0",
		Specialization: "soil health",
		MaxSearches:    budget,
		Strategy:       core.StrategyLLM,
		Exploration:    0.1,
		Seed:           1,
	}
}

func TestLLMIssuesModelQueries(t *testing.T) {
	kb, err := knowledge.FromMap(map[string][]string{"soil": {"loam", "clay"}})
	require.NoError(t, err)

	batches := [][]string{
		{"soil carbon mapping Punjab", "soil  carbon mapping punjab", "zinc deficiency paddy Tamil Nadu"},
		{"biochar trials Kerala farms"},
	}
	writer := aimock.NewMockQueryWriter()
	writer.WriteFunc = func(context.Context, ai.QueryRequest) ([]string, error) {
		return batches[writer.CallCount()-1], nil
	}

	g, err := NewLLM(kb, llmSpec(3), WithQueryWriter(writer), WithBatchSize(3), WithTemplates("{term} research"))
	require.NoError(t, err)

	qs := drain(t, g, nil, 10)
	require.Len(t, qs, 3)
	assert.Equal(t, "soil carbon mapping Punjab", qs[0].Text)
	assert.Equal(t, "zinc deficiency paddy Tamil Nadu", qs[1].Text)
	assert.Equal(t, "biochar trials Kerala farms", qs[2].Text)
	for i, q := range qs {
		assert.Equal(t, core.StrategyLLM, q.Strategy)
		assert.Equal(t, LLMPattern, q.Pattern)
		assert.Equal(t, "soil health", q.Category)
		assert.Equal(t, i+1, q.Seq)
		assert.Equal(t, "agent-0", q.AgentID)
	}

	reqs := writer.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "soil health", reqs[0].Specialization)
	assert.Equal(t, []string{"soil"}, reqs[0].Focus)
	assert.Equal(t, 3, reqs[0].Count)
	assert.Empty(t, reqs[0].Previous)
	assert.Equal(t, []string{"soil carbon mapping Punjab", "zinc deficiency paddy Tamil Nadu"}, reqs[1].Previous)
}

func TestLLMFallsBackWhenModelFails(t *testing.T) {
	terms := []string{"rice", "wheat", "maize", "cotton", "millet", "pulses",
		"sugarcane", "jute", "tea", "coffee", "groundnut", "mustard"}
	kb, err := knowledge.FromMap(map[string][]string{"crop": terms})
	require.NoError(t, err)

	writer := aimock.NewMockQueryWriter()
	writer.WriteFunc = func(context.Context, ai.QueryRequest) ([]string, error) {
		return nil, errors.New("connection refused")
	}

	g, err := NewLLM(kb, llmSpec(4), WithQueryWriter(writer), WithTemplates("{term} research"))
	require.NoError(t, err)

	qs := drain(t, g, nil, 10)
	require.Len(t, qs, 4)
	seen := make(map[string]bool)
	for i, q := range qs {
		assert.Equal(t, core.StrategyAdaptive, q.Strategy)
		assert.Equal(t, "{term} research", q.Pattern)
		assert.Equal(t, "crop", q.Category)
		assert.Equal(t, i+1, q.Seq)
		assert.False(t, seen[q.Text], "repeated %q", q.Text)
		seen[q.Text] = true
	}
	assert.Equal(t, maxModelFailures, writer.CallCount(), "model is dropped after repeated failures")
	assert.False(t, g.ModelEnabled())
	assert.Equal(t, 4, g.Issued())
}

func TestLLMFallbackSkipsModelQueries(t *testing.T) {
	kb, err := knowledge.FromMap(map[string][]string{"crop": {"rice"}})
	require.NoError(t, err)

	writer := aimock.NewMockQueryWriter()
	writer.WriteFunc = func(context.Context, ai.QueryRequest) ([]string, error) {
		if writer.CallCount() == 1 {
			return []string{"rice research"}, nil
		}
		return []string{"Rice research"}, nil
	}

	g, err := NewLLM(kb, llmSpec(10), WithQueryWriter(writer), WithTemplates("{term} research", "{term} policy"))
	require.NoError(t, err)

	qs := drain(t, g, nil, 10)
	require.Len(t, qs, 2)
	assert.Equal(t, "rice research", qs[0].Text)
	assert.Equal(t, core.StrategyLLM, qs[0].Strategy)
	assert.Equal(t, "rice policy", qs[1].Text)
	assert.Equal(t, core.StrategyAdaptive, qs[1].Strategy)
}

func TestLLMExhaustedPatternUsesFallback(t *testing.T) {
	kb, err := knowledge.FromMap(map[string][]string{"crop": {"rice", "wheat"}})
	require.NoError(t, err)

	writer := aimock.NewMockQueryWriter("groundwater recharge Rajasthan villages")
	g, err := NewLLM(kb, llmSpec(5), WithQueryWriter(writer), WithTemplates("{term} research"))
	require.NoError(t, err)

	state := learning.NewState("agent-0")
	state.MarkExhausted(learning.PatternKey{Category: "soil health", Pattern: LLMPattern})

	q, err := g.Next(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, core.StrategyAdaptive, q.Strategy)
	assert.Zero(t, writer.CallCount())
	assert.False(t, g.ModelEnabled())
}

func TestLLMCanceledContext(t *testing.T) {
	kb, err := knowledge.FromMap(map[string][]string{"crop": {"rice"}})
	require.NoError(t, err)

	writer := aimock.NewMockQueryWriter()
	writer.WriteFunc = func(ctx context.Context, _ ai.QueryRequest) ([]string, error) {
		return nil, ctx.Err()
	}
	g, err := NewLLM(kb, llmSpec(5), WithQueryWriter(writer), WithTemplates("{term} research"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Next(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, g.Issued())
	assert.True(t, g.ModelEnabled())
}

func TestNewLLM(t *testing.T) {
	kb, err := knowledge.FromMap(map[string][]string{"crop": {"rice"}})
	require.NoError(t, err)

	_, err = NewLLM(kb, llmSpec(5), WithTemplates("{term} research"))
	assert.ErrorIs(t, err, ErrNoQueryWriter)

	g, err := New(kb, llmSpec(5), WithQueryWriter(aimock.NewMockQueryWriter()), WithTemplates("{term} research"))
	require.NoError(t, err)
	assert.IsType(t, &LLM{}, g)
}
