package coordinator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/poiesic/curator/agent"
	"github.com/poiesic/curator/config"
	"github.com/poiesic/curator/core"
	"github.com/poiesic/curator/dedup"
	"github.com/poiesic/curator/knowledge"
	"github.com/poiesic/curator/learning"
	"github.com/poiesic/curator/query"
	"github.com/poiesic/curator/search/mock"
	"github.com/poiesic/curator/sink"
	"github.com/poiesic/curator/storage/badger"
)

func extract(_ context.Context, hit core.RawHit, q core.Query) (*core.Entry, error) {
	return &core.Entry{
		Title:          "Title of " + hit.URL,
		Text:           hit.Snippet,
		URL:            hit.URL,
		SourceDomain:   core.DomainOf(hit.URL),
		RelevanceScore: 0.9,
		Query:          q,
	}, nil
}

type harness struct {
	kb     *knowledge.KnowledgeBase
	client *mock.Client
	sink   *sink.Memory
	index  *dedup.MemoryIndex
}

func newHarness(t *testing.T, terms int) *harness {
	t.Helper()
	list := make([]string, terms)
	for i := range list {
		list[i] = fmt.Sprintf("crop%d", i)
	}
	kb, err := knowledge.FromMap(map[string][]string{"crop": list})
	require.NoError(t, err)
	return &harness{
		kb:     kb,
		client: mock.NewClient(),
		sink:   sink.NewMemory(),
		index:  dedup.NewMemoryIndex(),
	}
}

func (h *harness) deps() Deps {
	return Deps{
		Knowledge: h.kb,
		Search:    h.client,
		Extractor: agent.ExtractorFunc(extract),
		Index:     h.index,
		Sink:      h.sink,
	}
}

// uniqueHits makes every fetch return one never-seen URL.
func (h *harness) uniqueHits(delay time.Duration) {
	var n atomic.Int64
	h.client.FetchFunc = func(ctx context.Context, q core.Query, _ int) ([]core.RawHit, error) {
		if delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		i := n.Add(1)
		return []core.RawHit{{URL: fmt.Sprintf("https://site%d.example/page", i), Snippet: q.Text}}, nil
	}
}

func testConfig(opts ...config.Option) *config.RunConfig {
	base := []config.Option{
		config.WithNumAgents(1),
		config.WithSearchesPerAgent(2),
		config.WithMaxConcurrentAgents(2),
		config.WithStrategy(core.StrategyStatic),
		config.WithFetchRetries(1, 0),
		config.WithProgressReportInterval(time.Hour),
	}
	return config.NewConfig(append(base, opts...)...)
}

func staticSpecs(n, budget int) []core.AgentSpec {
	specs := make([]core.AgentSpec, n)
	for i := range specs {
		specs[i] = core.AgentSpec{
			ID:             fmt.Sprintf("agent-%d", i),
			Specialization: "crop",
			MaxSearches:    budget,
			Strategy:       core.StrategyStatic,
			Seed:           1,
		}
	}
	return specs
}

func start(t *testing.T, cfg *config.RunConfig, deps Deps, specs []core.AgentSpec, opts ...Option) *Run {
	t.Helper()
	c, err := New(cfg, deps, append([]Option{WithReporter(func(core.RunStats) {})}, opts...)...)
	require.NoError(t, err)
	r, err := c.Start(context.Background(), specs)
	require.NoError(t, err)
	return r
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	h := newHarness(t, 1)

	_, err := New(testConfig(config.WithNumAgents(0)), h.deps())
	var ce *core.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "num_agents", ce.Field)

	deps := h.deps()
	deps.Sink = nil
	_, err = New(testConfig(), deps)
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestStartValidatesSpecs(t *testing.T) {
	h := newHarness(t, 1)
	c, err := New(testConfig(), h.deps())
	require.NoError(t, err)

	_, err = c.Start(context.Background(), nil)
	var ce *core.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, ErrNoSpecs)

	specs := staticSpecs(2, 1)
	specs[1].ID = specs[0].ID
	_, err = c.Start(context.Background(), specs)
	assert.ErrorIs(t, err, ErrDuplicateSpec)

	specs = staticSpecs(1, 0)
	_, err = c.Start(context.Background(), specs)
	assert.ErrorIs(t, err, core.ErrInvalidAgentSpec)
}

func TestRunCompletesAndAggregates(t *testing.T) {
	h := newHarness(t, 3)
	h.uniqueHits(0)

	r := start(t, testConfig(), h.deps(), staticSpecs(2, 3), WithRunID("run-1"))
	stats, err := r.Wait()
	require.NoError(t, err)

	assert.Equal(t, "run-1", stats.RunID)
	assert.Equal(t, StopExhausted, stats.StopReason)
	assert.False(t, stats.Aborted)
	assert.Equal(t, int64(6), stats.SearchesIssued)
	assert.Equal(t, int64(6), stats.EntriesCollected)
	assert.Equal(t, int64(6), stats.UniqueURLs)
	assert.Equal(t, int64(6), stats.UniqueDomains)
	assert.Equal(t, int64(2), stats.AgentsExhausted)
	assert.Equal(t, 6, h.sink.Len())
	assert.Equal(t, 1, h.sink.Flushes())

	require.Len(t, stats.Agents, 2)
	for i, s := range stats.Agents {
		assert.Equal(t, fmt.Sprintf("agent-%d", i), s.AgentID)
		assert.Equal(t, core.AgentExhausted, s.FinalState)
		assert.Equal(t, 3, s.Entries)
	}
	for _, st := range r.AgentStates() {
		assert.Equal(t, core.AgentExhausted, st)
	}
	assert.Equal(t, stats, r.Stats())
}

func TestConcurrencyIsBounded(t *testing.T) {
	h := newHarness(t, 3)
	var active, peak atomic.Int32
	h.client.FetchFunc = func(_ context.Context, _ core.Query, _ int) ([]core.RawHit, error) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return nil, nil
	}

	r := start(t, testConfig(), h.deps(), staticSpecs(5, 3))
	stats, err := r.Wait()
	require.NoError(t, err)

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int64(15), stats.SearchesIssued)
	assert.Equal(t, int64(5), stats.AgentsExhausted)
}

func TestSameURLIsEmittedOnce(t *testing.T) {
	h := newHarness(t, 1)
	h.client.SetResults("crop0", core.RawHit{URL: "https://fao.example/paddy", Snippet: "paddy"})

	r := start(t, testConfig(), h.deps(), staticSpecs(2, 1))
	stats, err := r.Wait()
	require.NoError(t, err)

	assert.Equal(t, 1, h.sink.Len())
	assert.Equal(t, int64(1), stats.EntriesCollected)
	assert.Equal(t, int64(1), stats.Duplicates)
	assert.Equal(t, int64(1), stats.UniqueURLs)
	assert.Equal(t, int64(2), stats.SearchesIssued)
}

func TestCancelStopsAgents(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := newHarness(t, 500)
	h.uniqueHits(2 * time.Millisecond)

	r := start(t, testConfig(), h.deps(), staticSpecs(3, 500))
	require.Eventually(t, func() bool { return h.client.CallCount() >= 4 }, time.Second, time.Millisecond)
	r.Cancel()

	stats, err := r.Wait()
	require.NoError(t, err)
	assert.Equal(t, StopCanceled, stats.StopReason)
	assert.False(t, stats.Aborted)
	assert.Less(t, stats.SearchesIssued, int64(1500))
	assert.Equal(t, int64(h.sink.Len()), stats.EntriesCollected)
	for _, s := range stats.Agents {
		assert.Equal(t, core.AgentStopped, s.FinalState, s.AgentID)
	}

	calls := h.client.CallCount()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, h.client.CallCount(), "no query after Wait")
}

func TestParentContextCancel(t *testing.T) {
	h := newHarness(t, 500)
	h.uniqueHits(2 * time.Millisecond)

	c, err := New(testConfig(), h.deps(), WithReporter(func(core.RunStats) {}))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	r, err := c.Start(ctx, staticSpecs(1, 500))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.client.CallCount() >= 2 }, time.Second, time.Millisecond)
	cancel()
	stats, err := r.Wait()
	require.NoError(t, err)
	assert.Equal(t, StopCanceled, stats.StopReason)
}

func TestWriteFailureAbortsRun(t *testing.T) {
	h := newHarness(t, 50)
	h.uniqueHits(0)
	h.sink.FailAfter = 3

	r := start(t, testConfig(), h.deps(), staticSpecs(2, 50))
	stats, err := r.Wait()

	var we *core.WriteError
	require.ErrorAs(t, err, &we)
	assert.True(t, stats.Aborted)
	assert.NotEmpty(t, stats.AbortReason)
	assert.Equal(t, StopAborted, stats.StopReason)
	assert.Equal(t, 3, h.sink.Len())
	assert.Equal(t, int64(3), stats.EntriesCollected)
	assert.Less(t, stats.SearchesIssued, int64(100))
	require.Len(t, stats.Agents, 2)
}

func TestAgentPanicAbortsRun(t *testing.T) {
	h := newHarness(t, 10)
	h.uniqueHits(0)
	deps := h.deps()
	deps.Extractor = agent.ExtractorFunc(func(context.Context, core.RawHit, core.Query) (*core.Entry, error) {
		panic("extractor blew up")
	})

	r := start(t, testConfig(), deps, staticSpecs(1, 5))
	stats, err := r.Wait()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "extractor blew up")
	assert.True(t, stats.Aborted)
	assert.Equal(t, StopAborted, stats.StopReason)
	require.Len(t, stats.Agents, 1)
	assert.Equal(t, "agent-0", stats.Agents[0].AgentID)
	assert.Equal(t, "crop", stats.Agents[0].Specialization)
	assert.Equal(t, core.AgentFailed, stats.Agents[0].FinalState)
}

func TestEntryCeilingStopsRun(t *testing.T) {
	h := newHarness(t, 200)
	h.uniqueHits(time.Millisecond)

	cfg := testConfig(config.WithCeilings(5, 0))
	cfg.CeilingCheckInterval = 2 * time.Millisecond

	r := start(t, cfg, h.deps(), staticSpecs(2, 200))
	stats, err := r.Wait()
	require.NoError(t, err)

	assert.Equal(t, StopMaxEntries, stats.StopReason)
	assert.GreaterOrEqual(t, stats.EntriesCollected, int64(5))
	assert.Less(t, stats.EntriesCollected, int64(400))
	assert.Equal(t, int64(h.sink.Len()), stats.EntriesCollected)
}

func TestDurationCeilingStopsRun(t *testing.T) {
	h := newHarness(t, 500)
	h.uniqueHits(2 * time.Millisecond)

	cfg := testConfig(config.WithCeilings(0, 20*time.Millisecond))
	cfg.CeilingCheckInterval = 2 * time.Millisecond

	r := start(t, cfg, h.deps(), staticSpecs(1, 500))
	stats, err := r.Wait()
	require.NoError(t, err)
	assert.Equal(t, StopMaxDuration, stats.StopReason)
	assert.Less(t, stats.SearchesIssued, int64(500))
}

func TestTransientRetryIsCounted(t *testing.T) {
	h := newHarness(t, 2)
	h.client.SetResults("crop0", core.RawHit{URL: "https://a.example/1"})
	h.client.SetResults("crop1", core.RawHit{URL: "https://b.example/1"})
	h.client.FailNext("crop1", core.NewTransientFetchError("crop1", errors.New("503 Service Unavailable")))

	r := start(t, testConfig(), h.deps(), staticSpecs(1, 2))
	stats, err := r.Wait()
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.Retries)
	assert.Zero(t, stats.FetchFailures)
	assert.Equal(t, int64(2), stats.SearchesIssued)
	assert.Equal(t, int64(2), stats.EntriesCollected)
}

func TestProgressReportEverySearches(t *testing.T) {
	h := newHarness(t, 4)
	h.uniqueHits(0)
	cfg := testConfig()
	cfg.ProgressReportEvery = 2

	var mu sync.Mutex
	var reports []core.RunStats
	r := start(t, cfg, h.deps(), staticSpecs(1, 4), WithReporter(func(s core.RunStats) {
		mu.Lock()
		defer mu.Unlock()
		reports = append(reports, s)
	}))
	stats, err := r.Wait()
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	// two periodic reports plus the final summary
	require.Len(t, reports, 3)
	assert.Equal(t, stats, reports[2])
	assert.Equal(t, StopExhausted, reports[2].StopReason)
}

func TestRunIsPersistedAndResumed(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()
	ctx := context.Background()

	h := newHarness(t, 2)
	h.uniqueHits(0)
	deps := h.deps()
	deps.Learning = repos.Learning()
	deps.Runs = repos.Runs()

	r := start(t, testConfig(), deps, staticSpecs(1, 2), WithRunID("run-1"))
	stats, err := r.Wait()
	require.NoError(t, err)

	saved, err := repos.Runs().GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, stats.EntriesCollected, saved.EntriesCollected)
	assert.Equal(t, StopExhausted, saved.StopReason)

	key := learning.PatternKey{Category: "crop", Pattern: query.StaticPattern}
	snap, err := repos.Learning().LoadSnapshot(ctx, "agent-0")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 2, snap.Patterns[key].Queries)

	// A resumed run continues from the stored statistics.
	h2 := newHarness(t, 2)
	h2.uniqueHits(0)
	deps2 := h2.deps()
	deps2.Learning = repos.Learning()
	deps2.Runs = repos.Runs()
	r = start(t, testConfig(config.WithResume(true)), deps2, staticSpecs(1, 2), WithRunID("run-2"))
	_, err = r.Wait()
	require.NoError(t, err)

	snap, err = repos.Learning().LoadSnapshot(ctx, "agent-0")
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Patterns[key].Queries)

	runs, err := repos.Runs().ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSharedLearningRuns(t *testing.T) {
	h := newHarness(t, 20)
	h.uniqueHits(time.Millisecond)

	r := start(t, testConfig(config.WithSharedLearning(2*time.Millisecond)), h.deps(), staticSpecs(2, 20))
	stats, err := r.Wait()
	require.NoError(t, err)
	assert.Equal(t, int64(40), stats.EntriesCollected)
}

func TestDefaultSpecs(t *testing.T) {
	cfg := testConfig(config.WithNumAgents(12), config.WithSeed(7))
	specs := DefaultSpecs(cfg, knowledge.Default())
	require.Len(t, specs, 12)

	l := len(knowledge.DefaultSpecializations)
	for i, s := range specs {
		assert.Equal(t, fmt.Sprintf("agent-%02d", i), s.ID)
		assert.Equal(t, knowledge.DefaultSpecializations[i%l].Name, s.Specialization)
		assert.Equal(t, uint64(7), s.Seed)
		assert.Equal(t, cfg.SearchesPerAgent, s.MaxSearches)
		require.NoError(t, core.ValidateAgentSpec(&s))
	}

	// 12 agents over 10 specializations: the first two are shared.
	assert.Equal(t, core.Shard{Index: 0, Count: 2}, specs[0].Shard)
	assert.Equal(t, core.Shard{Index: 1, Count: 2}, specs[10].Shard)
	assert.Equal(t, core.Shard{Index: 0, Count: 2}, specs[1].Shard)
	assert.Equal(t, core.Shard{Index: 1, Count: 2}, specs[11].Shard)
	assert.Zero(t, specs[2].Shard)
}

func TestProgressTracker(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100)

	tracker.Report(core.RunStats{SearchesIssued: 25, EntriesCollected: 7, Elapsed: time.Second})
	assert.Contains(t, buf.String(), "25/100")
	assert.Contains(t, buf.String(), "25.0%")
	assert.Contains(t, buf.String(), "7 entries")

	tracker.Finish(core.RunStats{SearchesIssued: 150, Elapsed: 2 * time.Second})
	output := buf.String()
	assert.Contains(t, output, "100/100", "searches are capped at the total")
	assert.True(t, strings.HasSuffix(output, "\n"), "finish should print newline")

	tracker.Report(core.RunStats{SearchesIssued: 10})
	assert.Equal(t, output, buf.String(), "reports after finish are ignored")
}

func TestProgressTrackerZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 0)
	tracker.Finish(core.RunStats{})
	assert.Contains(t, buf.String(), "0/0")
}
