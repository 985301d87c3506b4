// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package curator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/curator/ai"
	aimock "github.com/poiesic/curator/ai/mock"
	"github.com/poiesic/curator/config"
	"github.com/poiesic/curator/core"
	"github.com/poiesic/curator/search/mock"
)

func testConfig(opts ...config.Option) *config.RunConfig {
	base := []config.Option{
		config.WithNumAgents(2),
		config.WithSearchesPerAgent(3),
		config.WithMaxConcurrentAgents(2),
		config.WithStrategy(core.StrategyStatic),
		config.WithRelevanceThreshold(0),
		config.WithFetchRetries(0, 0),
		config.WithSeed(42),
	}
	return config.NewConfig(append(base, opts...)...)
}

// echoClient returns one hit per query whose URL is derived from the query text.
func echoClient() *mock.Client {
	c := mock.NewClient()
	c.FetchFunc = func(_ context.Context, q core.Query, _ int) ([]core.RawHit, error) {
		return []core.RawHit{{
			URL:     "https://agri.example/" + url.PathEscape(q.Text),
			Title:   "Report on " + q.Text,
			Snippet: q.Text + " field trials and yields",
		}}, nil
	}
	return c
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Count(string(data), "\n")
}

func assertDistinctURLs(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	seen := make(map[string]bool)
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var e core.Entry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		assert.False(t, seen[e.URL], "duplicate url %s", e.URL)
		seen[e.URL] = true
	}
}

func TestFreshRunsNeverDuplicateOutput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.jsonl")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		c, err := Open(testConfig(),
			WithDataDir(filepath.Join(dir, "db")),
			WithOutput(output),
			WithSearchClient(echoClient()),
			WithReporter(func(core.RunStats) {}))
		require.NoError(t, err)
		stats, err := c.Run(ctx)
		require.NoError(t, err)
		require.NoError(t, c.Close())
		assert.Equal(t, int64(6), stats.EntriesCollected)
	}
	assert.Equal(t, 6, countLines(t, output))
	assertDistinctURLs(t, output)
}

func TestOpen(t *testing.T) {
	t.Run("creates curator with defaults", func(t *testing.T) {
		c, err := Open(testConfig(), WithDataDir(filepath.Join(t.TempDir(), "db")))
		require.NoError(t, err)
		defer c.Close()

		assert.NotNil(t, c.Knowledge())
		assert.NotNil(t, c.Repositories())
		assert.Equal(t, DefaultOutput, c.output)
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		_, err := Open(testConfig(config.WithNumAgents(0)))
		var ce *core.ConfigError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "num_agents", ce.Field)
	})

	t.Run("rejects unknown source", func(t *testing.T) {
		_, err := Open(testConfig(), WithSource("altavista"))
		assert.ErrorIs(t, err, ErrUnknownSource)
	})

	t.Run("llm strategy requires a model", func(t *testing.T) {
		_, err := Open(testConfig(config.WithStrategy(core.StrategyLLM)))
		var ce *core.ConfigError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "strategy", ce.Field)
		assert.ErrorIs(t, err, ErrNoModel)
	})

	t.Run("rejects invalid ai config", func(t *testing.T) {
		_, err := Open(testConfig(), WithAI(ai.NewConfig(ai.WithWeight(2))))
		var ce *core.ConfigError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "ai", ce.Field)
	})

	t.Run("error with invalid data dir", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		c, err := Open(testConfig(), WithDataDir(tmpFile))
		assert.Error(t, err)
		assert.Nil(t, c)
	})
}

func TestRunWritesEntriesAndPersists(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out", "curated.jsonl")
	c, err := Open(testConfig(),
		WithDataDir(filepath.Join(dir, "db")),
		WithOutput(output),
		WithSearchClient(echoClient()),
		WithReporter(func(core.RunStats) {}))
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	stats, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.SearchesIssued)
	assert.Equal(t, int64(6), stats.EntriesCollected)
	assert.Equal(t, 6, countLines(t, output))

	runs, err := c.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, stats.RunID, runs[0].RunID)

	seen, err := c.SeenCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, seen)

	snaps, err := c.Learning(ctx)
	require.NoError(t, err)
	assert.Len(t, snaps, 2)
}

func TestResumeSkipsKnownURLs(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "curated.jsonl")
	open := func(resume bool) *Curator {
		c, err := Open(testConfig(config.WithResume(resume)),
			WithDataDir(filepath.Join(dir, "db")),
			WithOutput(output),
			WithSearchClient(echoClient()),
			WithReporter(func(core.RunStats) {}))
		require.NoError(t, err)
		return c
	}
	ctx := context.Background()

	c := open(false)
	first, err := c.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.Equal(t, int64(6), first.EntriesCollected)

	c = open(true)
	second, err := c.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.Zero(t, second.EntriesCollected)
	assert.Equal(t, int64(6), second.Duplicates)
	assert.Equal(t, 6, countLines(t, output))

	// without resume the seen-set and the output start over
	c = open(false)
	defer c.Close()
	third, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), third.EntriesCollected)
	assert.Equal(t, 6, countLines(t, output))
	assertDistinctURLs(t, output)

	runs, err := c.Runs(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunAfterClose(t *testing.T) {
	c, err := Open(testConfig(), WithOutput(filepath.Join(t.TempDir(), "out.jsonl")))
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())

	_, err = c.Run(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRunBlendsProviderScore(t *testing.T) {
	scorer := aimock.NewMockScorer(0)
	provider := aimock.NewMockProviderWithScorer(scorer)
	output := filepath.Join(t.TempDir(), "out.jsonl")

	// the model rejects everything and carries the whole weight
	c, err := Open(testConfig(config.WithRelevanceThreshold(0.3)),
		WithOutput(output),
		WithSearchClient(echoClient()),
		WithProvider(provider, 1),
		WithReporter(func(core.RunStats) {}))
	require.NoError(t, err)

	stats, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.EntriesCollected)
	assert.Equal(t, int64(6), stats.BelowThreshold)
	assert.Equal(t, 6, scorer.CallCount())

	require.NoError(t, c.Close())
	assert.True(t, provider.(*aimock.MockProvider).Closed())
}

func TestRunWithModelQueries(t *testing.T) {
	var n atomic.Int64
	writer := aimock.NewMockQueryWriter()
	writer.WriteFunc = func(_ context.Context, req ai.QueryRequest) ([]string, error) {
		out := make([]string, req.Count)
		for i := range out {
			out[i] = fmt.Sprintf("%s field survey %d India", req.Specialization, n.Add(1))
		}
		return out, nil
	}
	output := filepath.Join(t.TempDir(), "out.jsonl")

	c, err := Open(testConfig(config.WithStrategy(core.StrategyLLM)),
		WithOutput(output),
		WithSearchClient(echoClient()),
		WithProvider(aimock.NewMockProviderWithWriter(writer), 0.5),
		WithReporter(func(core.RunStats) {}))
	require.NoError(t, err)
	defer c.Close()

	stats, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.EntriesCollected)
	assert.Equal(t, int64(6), stats.SearchesIssued)
	assert.Equal(t, 2, writer.CallCount(), "one batch per agent covers its budget")
	assert.Equal(t, 6, countLines(t, output))
	assertDistinctURLs(t, output)
}
