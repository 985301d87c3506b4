package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/poiesic/curator/config"
	"github.com/poiesic/curator/core"
	"github.com/poiesic/curator/dedup"
	"github.com/poiesic/curator/learning"
	"github.com/poiesic/curator/query"
	"github.com/poiesic/curator/search"
	"github.com/poiesic/curator/sink"
)

// topDomains is the number of domains reported in an agent summary.
const topDomains = 5

// Extractor turns a raw hit into a scored entry.
type Extractor interface {
	Extract(ctx context.Context, hit core.RawHit, q core.Query) (*core.Entry, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, hit core.RawHit, q core.Query) (*core.Entry, error)

func (f ExtractorFunc) Extract(ctx context.Context, hit core.RawHit, q core.Query) (*core.Entry, error) {
	return f(ctx, hit, q)
}

// Deps are the collaborators of an agent. Index and Sink are shared by every
// agent of a run; Generator and State belong to this agent alone.
type Deps struct {
	Generator query.Generator
	Search    search.Client
	Extractor Extractor
	Index     dedup.Index
	Sink      sink.Sink

	// State is created empty when nil.
	State *learning.State
	// Monitor defaults to NoopMonitor.
	Monitor Monitor
}

// Agent runs the query, fetch, score, admit and emit loop of one AgentSpec.
type Agent struct {
	spec    core.AgentSpec
	deps    Deps
	state   atomic.Int32
	started atomic.Bool

	threshold    float64
	maxResults   int
	fetchTimeout time.Duration
	fetchRetries int
	retryDelay   time.Duration
	queryDelay   time.Duration
	maxFailures  int
	logger       *slog.Logger

	summary core.AgentSummary
}

// Option configures an Agent.
type Option func(*Agent)

// WithThreshold sets the minimum relevance score of emitted entries.
func WithThreshold(threshold float64) Option {
	return func(a *Agent) {
		a.threshold = threshold
	}
}

// WithMaxResults sets the hit limit passed to the search client.
func WithMaxResults(n int) Option {
	return func(a *Agent) {
		a.maxResults = n
	}
}

// WithFetchTimeout bounds every fetch attempt.
func WithFetchTimeout(d time.Duration) Option {
	return func(a *Agent) {
		a.fetchTimeout = d
	}
}

// WithRetries sets how often a transient fetch failure is retried and the
// base delay between attempts.
func WithRetries(retries int, delay time.Duration) Option {
	return func(a *Agent) {
		a.fetchRetries = retries
		a.retryDelay = delay
	}
}

// WithQueryDelay paces the agent between queries.
func WithQueryDelay(d time.Duration) Option {
	return func(a *Agent) {
		a.queryDelay = d
	}
}

// WithMaxPatternFailures sets the consecutive fetch failures after which a
// pattern is marked exhausted.
func WithMaxPatternFailures(n int) Option {
	return func(a *Agent) {
		a.maxFailures = n
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// ConfigOptions translates the per-agent settings of a run configuration.
func ConfigOptions(cfg *config.RunConfig) []Option {
	return []Option{
		WithThreshold(cfg.RelevanceThreshold),
		WithMaxResults(cfg.MaxSearchResults),
		WithFetchTimeout(cfg.FetchTimeout),
		WithRetries(cfg.FetchRetries, cfg.RetryDelay),
		WithQueryDelay(cfg.QueryDelay),
		WithMaxPatternFailures(cfg.MaxPatternFailures),
	}
}

// New creates an idle agent.
func New(spec core.AgentSpec, deps Deps, opts ...Option) (*Agent, error) {
	if err := core.ValidateAgentSpec(&spec); err != nil {
		return nil, err
	}
	switch {
	case deps.Generator == nil:
		return nil, fmt.Errorf("%w: generator", ErrMissingDependency)
	case deps.Search == nil:
		return nil, fmt.Errorf("%w: search client", ErrMissingDependency)
	case deps.Extractor == nil:
		return nil, fmt.Errorf("%w: extractor", ErrMissingDependency)
	case deps.Index == nil:
		return nil, fmt.Errorf("%w: dedup index", ErrMissingDependency)
	case deps.Sink == nil:
		return nil, fmt.Errorf("%w: sink", ErrMissingDependency)
	}
	if deps.State == nil {
		deps.State = learning.NewState(spec.ID)
	}
	if deps.Monitor == nil {
		deps.Monitor = NoopMonitor{}
	}

	a := &Agent{
		spec:         spec,
		deps:         deps,
		threshold:    0.3,
		maxResults:   30,
		fetchTimeout: 15 * time.Second,
		fetchRetries: 1,
		retryDelay:   time.Second,
		maxFailures:  3,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "agent", "agent", spec.ID, "spec", spec.Specialization)
	a.summary = core.AgentSummary{AgentID: spec.ID, Specialization: spec.Specialization}
	return a, nil
}

// Spec returns the agent's spec.
func (a *Agent) Spec() core.AgentSpec {
	return a.spec
}

// State returns the current step of the agent. Safe to call concurrently.
func (a *Agent) State() core.AgentState {
	return core.AgentState(a.state.Load())
}

// Learning returns the agent's learning state.
func (a *Agent) Learning() *learning.State {
	return a.deps.State
}

func (a *Agent) setState(to core.AgentState) {
	from := core.AgentState(a.state.Swap(int32(to)))
	if from != to {
		a.deps.Monitor.StateChanged(a.spec.ID, from, to)
	}
}

// Run executes the agent loop until the generator is exhausted, the budget
// is spent or ctx is canceled. A canceled agent ends in AgentStopped and
// returns nil. Only escalated failures are returned, as *core.WriteError.
// Run may be called once.
func (a *Agent) Run(ctx context.Context) (core.AgentSummary, error) {
	if !a.started.CompareAndSwap(false, true) {
		return a.summary, ErrAlreadyStarted
	}
	a.logger.Debug("agent started", "strategy", a.spec.Strategy, "budget", a.spec.MaxSearches)
	a.setState(core.AgentQuerying)

	err := a.loop(ctx)
	final := core.AgentExhausted
	switch {
	case core.IsFatal(err):
		final = core.AgentFailed
	case err != nil:
		// Cancellation. Anything else was contained in the loop.
		final = core.AgentStopped
		err = nil
	}
	a.setState(final)

	a.summary.FinalState = final
	a.summary.TopDomains = a.deps.State.TopDomains(topDomains)
	a.deps.Monitor.Finished(a.summary)

	if final == core.AgentFailed {
		a.logger.Error("agent failed", "searches", a.summary.Searches, "entries", a.summary.Entries, "err", err)
	} else {
		a.logger.Info("agent finished",
			"state", final,
			"searches", a.summary.Searches,
			"entries", a.summary.Entries,
			"fetch_failures", a.summary.FetchFailures,
			"top_domains", a.summary.TopDomains)
	}
	return a.summary, err
}

func (a *Agent) loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if a.summary.Searches >= a.spec.MaxSearches {
			return nil
		}

		a.setState(core.AgentQuerying)
		q, err := a.deps.Generator.Next(ctx, a.deps.State)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !errors.Is(err, query.ErrExhausted) {
				a.logger.Warn("query generation failed", "err", err)
			}
			return nil
		}

		if err := a.process(ctx, q); err != nil {
			return err
		}
		if err := a.pace(ctx); err != nil {
			return err
		}
	}
}

// process runs one query through fetch, scoring, admission and emission.
func (a *Agent) process(ctx context.Context, q core.Query) error {
	key := learning.PatternKey{Category: q.Category, Pattern: q.Pattern}
	a.deps.State.Begin(key, q.Seq)
	a.summary.Searches++
	a.deps.Monitor.QueryIssued(q)

	a.setState(core.AgentFetching)
	hits, err := a.fetch(ctx, q)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.summary.FetchFailures++
		a.deps.Monitor.FetchFailed(q, err)
		a.logger.Warn("fetch failed", "query", q.Text, "err", err)
		if a.deps.State.Fail(key, a.maxFailures) {
			a.logger.Info("pattern exhausted", "category", key.Category, "pattern", key.Pattern)
		}
		return nil
	}
	a.deps.Monitor.HitsFetched(q, len(hits))
	a.logger.Debug("hits fetched", "query", q.Text, "hits", len(hits))

	accepted := 0
	for _, hit := range hits {
		// Hits left over after cancellation are dropped.
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := a.handle(ctx, q, key, hit)
		if err != nil {
			return err
		}
		if ok {
			accepted++
		}
	}
	a.deps.State.Complete(key, accepted)
	return nil
}

func (a *Agent) fetch(ctx context.Context, q core.Query) ([]core.RawHit, error) {
	var hits []core.RawHit
	err := RetryWithBackoff(ctx, func(int) error {
		fetchCtx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
		defer cancel()
		h, err := a.deps.Search.Fetch(fetchCtx, q, a.maxResults)
		if err != nil {
			return search.Classify(q.Text, err)
		}
		hits = search.Truncate(h, a.maxResults)
		return nil
	}, a.fetchRetries+1, a.retryDelay, core.IsTransient, func(attempt int, err error) {
		a.deps.Monitor.FetchRetried(q, attempt, err)
		a.logger.Debug("retrying fetch", "query", q.Text, "attempt", attempt, "err", err)
	})
	return hits, err
}

// handle scores one hit and emits it when it passes the threshold and wins
// admission. It returns true when an entry was emitted.
func (a *Agent) handle(ctx context.Context, q core.Query, key learning.PatternKey, hit core.RawHit) (bool, error) {
	a.setState(core.AgentScoring)
	entry, err := a.deps.Extractor.Extract(ctx, hit, q)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		a.deps.Monitor.ExtractFailed(q, hit.URL, err)
		a.logger.Debug("hit dropped", "url", hit.URL, "err", err)
		return false, nil
	}
	if err := core.ValidateEntry(entry, a.threshold); err != nil {
		a.deps.State.Observe(key, learning.OutcomeLowScore, entry.RelevanceScore, entry.SourceDomain)
		a.deps.Monitor.BelowThreshold(entry)
		a.logger.Debug("below threshold", "url", entry.URL, "score", entry.RelevanceScore)
		return false, nil
	}

	a.setState(core.AgentAdmitting)
	won, err := a.deps.Index.TryAdmit(entry.URL, entry.Fingerprint)
	if err != nil {
		if errors.Is(err, core.ErrEmptyURL) || errors.Is(err, core.ErrInvalidURL) {
			a.deps.Monitor.ExtractFailed(q, entry.URL, err)
			return false, nil
		}
		return false, &core.WriteError{Err: fmt.Errorf("dedup index: %w", err)}
	}
	if !won {
		a.deps.State.Observe(key, learning.OutcomeDuplicate, entry.RelevanceScore, entry.SourceDomain)
		a.deps.Monitor.Duplicate(entry)
		return false, nil
	}

	// An admitted entry is always written, even when the run is being canceled.
	a.setState(core.AgentEmitting)
	if err := a.deps.Sink.Append(context.WithoutCancel(ctx), entry); err != nil {
		var we *core.WriteError
		if !errors.As(err, &we) {
			err = &core.WriteError{Err: err}
		}
		return false, err
	}
	a.summary.Entries++
	a.deps.State.Observe(key, learning.OutcomeAccepted, entry.RelevanceScore, entry.SourceDomain)
	a.deps.Monitor.EntryEmitted(entry)
	return true, nil
}

func (a *Agent) pace(ctx context.Context) error {
	if a.queryDelay <= 0 {
		return nil
	}
	a.setState(core.AgentQuerying)
	return sleep(ctx, Pace(a.queryDelay, a.deps.State.RecentSuccessRate()))
}
