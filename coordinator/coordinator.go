package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/curator/agent"
	"github.com/poiesic/curator/config"
	"github.com/poiesic/curator/core"
	"github.com/poiesic/curator/dedup"
	"github.com/poiesic/curator/knowledge"
	"github.com/poiesic/curator/learning"
	"github.com/poiesic/curator/query"
	"github.com/poiesic/curator/search"
	"github.com/poiesic/curator/sink"
	"github.com/poiesic/curator/storage"
)

// Deps are the collaborators shared by every agent of a run.
type Deps struct {
	Knowledge *knowledge.KnowledgeBase
	Search    search.Client
	Extractor agent.Extractor
	Index     dedup.Index
	Sink      sink.Sink

	// Learning persists per-spec learning snapshots. Optional.
	Learning storage.LearningRepository
	// Runs persists the final RunStats. Optional.
	Runs storage.RunRepository
}

// Coordinator schedules agents on a bounded worker pool.
type Coordinator struct {
	cfg       *config.RunConfig
	deps      Deps
	runID     string
	report    ReportFunc
	monitor   agent.Monitor
	queryOpts []query.Option
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRunID fixes the ID of started runs. By default every run gets a new UUID.
func WithRunID(id string) Option {
	return func(c *Coordinator) {
		c.runID = id
	}
}

// WithReporter receives periodic RunStats snapshots and the final summary.
// Defaults to LogReport.
func WithReporter(fn ReportFunc) Option {
	return func(c *Coordinator) {
		c.report = fn
	}
}

// WithMonitor observes agent events in addition to the run counters.
func WithMonitor(m agent.Monitor) Option {
	return func(c *Coordinator) {
		c.monitor = m
	}
}

// WithQueryOptions passes extra options to every query generator.
func WithQueryOptions(opts ...query.Option) Option {
	return func(c *Coordinator) {
		c.queryOpts = append(c.queryOpts, opts...)
	}
}

// WithClock sets the time source for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}

// New validates cfg and creates a Coordinator. Configuration problems are
// returned as *core.ConfigError.
func New(cfg *config.RunConfig, deps Deps, opts ...Option) (*Coordinator, error) {
	if cfg == nil {
		return nil, &core.ConfigError{Field: "config", Err: fmt.Errorf("%w: run config", ErrMissingDependency)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.Knowledge == nil:
		return nil, fmt.Errorf("%w: knowledge base", ErrMissingDependency)
	case deps.Search == nil:
		return nil, fmt.Errorf("%w: search client", ErrMissingDependency)
	case deps.Extractor == nil:
		return nil, fmt.Errorf("%w: extractor", ErrMissingDependency)
	case deps.Index == nil:
		return nil, fmt.Errorf("%w: dedup index", ErrMissingDependency)
	case deps.Sink == nil:
		return nil, fmt.Errorf("%w: sink", ErrMissingDependency)
	}

	c := &Coordinator{
		cfg:     cfg,
		deps:    deps,
		monitor: agent.NoopMonitor{},
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "coordinator")
	if c.report == nil {
		c.report = LogReport(c.logger)
	}
	return c, nil
}

// DefaultSpecs assigns the default specializations round-robin to
// cfg.NumAgents agents. Agents sharing a specialization split its static
// enumeration into disjoint shards.
func DefaultSpecs(cfg *config.RunConfig, kb *knowledge.KnowledgeBase) []core.AgentSpec {
	specializations := knowledge.DefaultSpecializations
	n, l := cfg.NumAgents, len(specializations)
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	specs := make([]core.AgentSpec, n)
	for i := range specs {
		sp := specializations[i%l]
		specs[i] = core.AgentSpec{
			ID:             fmt.Sprintf("agent-%02d", i),
			Specialization: sp.Name,
			Focus:          sp.Resolve(kb),
			MaxSearches:    cfg.SearchesPerAgent,
			Strategy:       cfg.Strategy,
			Exploration:    cfg.Exploration,
			Seed:           seed,
		}
		if count := (n - i%l + l - 1) / l; count > 1 {
			specs[i].Shard = core.Shard{Index: i / l, Count: count}
		}
	}
	return specs
}

// Start builds one agent per spec and schedules them. Agents beyond the
// pool size wait for a free worker. Start returns once scheduling began;
// use Run.Wait for the outcome. Knowledge base problems are returned as
// *core.LoadError.
func (c *Coordinator) Start(ctx context.Context, specs []core.AgentSpec) (*Run, error) {
	if len(specs) == 0 {
		return nil, &core.ConfigError{Field: "specs", Err: ErrNoSpecs}
	}
	ids := make(map[string]bool, len(specs))
	for i := range specs {
		if err := core.ValidateAgentSpec(&specs[i]); err != nil {
			return nil, &core.ConfigError{Field: "specs", Err: err}
		}
		if ids[specs[i].ID] {
			return nil, &core.ConfigError{Field: "specs", Err: fmt.Errorf("%w: %s", ErrDuplicateSpec, specs[i].ID)}
		}
		ids[specs[i].ID] = true
	}

	runID := c.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	runCtx, cancel := context.WithCancel(ctx)
	r := &Run{
		id:        runID,
		cfg:       c.cfg,
		deps:      c.deps,
		ctx:       runCtx,
		cancel:    cancel,
		counters:  &counters{},
		report:    c.report,
		now:       c.now,
		logger:    c.logger.With("run", runID),
		summaries: make([]core.AgentSummary, len(specs)),
		done:      make(chan struct{}),
	}
	monitor := &statsMonitor{c: r.counters, next: c.monitor}
	if every := int64(c.cfg.ProgressReportEvery); every > 0 {
		monitor.onQuery = func(n int64) {
			if n%every == 0 {
				r.emitReport()
			}
		}
	}

	queryOpts := append([]query.Option{query.WithLearning(c.cfg.EnableLearning)}, c.queryOpts...)
	for _, spec := range specs {
		gen, err := query.New(c.deps.Knowledge, spec, queryOpts...)
		if err != nil {
			cancel()
			return nil, err
		}
		state, err := c.loadState(ctx, spec.ID)
		if err != nil {
			cancel()
			return nil, err
		}
		a, err := agent.New(spec, agent.Deps{
			Generator: gen,
			Search:    c.deps.Search,
			Extractor: c.deps.Extractor,
			Index:     c.deps.Index,
			Sink:      c.deps.Sink,
			State:     state,
			Monitor:   monitor,
		}, append(agent.ConfigOptions(c.cfg), agent.WithLogger(c.logger))...)
		if err != nil {
			cancel()
			return nil, err
		}
		r.agents = append(r.agents, a)
		r.states = append(r.states, state)
	}
	if c.cfg.ShareLearning {
		r.shared = learning.NewShared()
	}

	pool, err := ants.NewPool(c.cfg.MaxConcurrentAgents,
		ants.WithLogger(&antsLoggerAdapter{logger: r.logger}),
		ants.WithPanicHandler(func(p any) {
			r.abort(fmt.Errorf("worker panic: %v", p))
		}),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	r.pool = pool

	r.started = c.now()
	r.logger.Info("run started",
		"agents", len(specs),
		"max_concurrent", c.cfg.MaxConcurrentAgents,
		"searches_per_agent", c.cfg.SearchesPerAgent,
		"strategy", c.cfg.Strategy,
		"learning", c.cfg.EnableLearning)
	go r.execute()
	return r, nil
}

// loadState restores the persisted learning of a spec when resuming.
func (c *Coordinator) loadState(ctx context.Context, id string) (*learning.State, error) {
	state := learning.NewState(id)
	if !c.cfg.Resume || c.deps.Learning == nil {
		return state, nil
	}
	snap, err := c.deps.Learning.LoadSnapshot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load learning state of %s: %w", id, err)
	}
	if snap != nil {
		state.Restore(*snap)
	}
	return state, nil
}
