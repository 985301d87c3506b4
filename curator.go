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


// Package curator collects agricultural documents from web search with a
// fleet of concurrent, self-tuning search agents and appends them to a JSONL file.
package curator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/poiesic/curator/ai"
	"github.com/poiesic/curator/ai/openai"
	"github.com/poiesic/curator/config"
	"github.com/poiesic/curator/coordinator"
	"github.com/poiesic/curator/core"
	"github.com/poiesic/curator/dedup"
	"github.com/poiesic/curator/extract"
	"github.com/poiesic/curator/knowledge"
	"github.com/poiesic/curator/learning"
	"github.com/poiesic/curator/query"
	"github.com/poiesic/curator/search"
	"github.com/poiesic/curator/search/ddg"
	"github.com/poiesic/curator/search/news"
	"github.com/poiesic/curator/sink"
	"github.com/poiesic/curator/storage"
	"github.com/poiesic/curator/storage/badger"
)

// Search sources accepted by WithSource.
const (
	SourceDDG   = "ddg"
	SourceNews  = "news"
	SourceMixed = "mixed"
)

// DefaultOutput is the JSONL file written when no output path is set.
const DefaultOutput = "curated.jsonl"

// Curator wires storage, search, extraction and output around a Coordinator.
type Curator struct {
	cfg       *config.RunConfig
	repos     storage.Repositories
	kb        *knowledge.KnowledgeBase
	client    search.Client
	extractor *extract.Extractor
	provider  ai.Provider
	output    string
	report    coordinator.ReportFunc
	logger    *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Option configures a Curator.
type Option func(*options)

type options struct {
	dataDir   string
	output    string
	source    string
	rps       float64
	burst     int
	pages     bool
	kb        *knowledge.KnowledgeBase
	client    search.Client
	aiConfig  *ai.Config
	provider  ai.Provider
	weight    float64
	report    coordinator.ReportFunc
	logger    *slog.Logger
	userAgent string
}

// WithDataDir stores the seen-set, learning snapshots and run summaries in
// dir. Without it everything is kept in memory and lost on Close.
func WithDataDir(dir string) Option {
	return func(o *options) {
		o.dataDir = dir
	}
}

// WithOutput sets the JSONL file entries are appended to.
func WithOutput(path string) Option {
	return func(o *options) {
		o.output = path
	}
}

// WithSource selects the search backend: SourceDDG, SourceNews or SourceMixed.
func WithSource(source string) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithRateLimit bounds search requests across all agents.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		o.rps = rps
		o.burst = burst
	}
}

// WithPageFetch makes the extractor download result pages for their text.
func WithPageFetch(enabled bool) Option {
	return func(o *options) {
		o.pages = enabled
	}
}

// WithUserAgent sets the User-Agent of every outgoing HTTP request.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// WithKnowledge replaces the embedded default knowledge base.
func WithKnowledge(kb *knowledge.KnowledgeBase) Option {
	return func(o *options) {
		o.kb = kb
	}
}

// WithSearchClient replaces the configured source. The client is used as is,
// without rate limiting.
func WithSearchClient(c search.Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithAI blends a language-model relevance score into the keyword score.
func WithAI(cfg *ai.Config) Option {
	return func(o *options) {
		o.aiConfig = cfg
	}
}

// WithProvider blends the scores of an already built provider into the
// keyword score, weight being the provider's share. The curator closes it.
func WithProvider(p ai.Provider, weight float64) Option {
	return func(o *options) {
		o.provider = p
		o.weight = weight
	}
}

// WithReporter receives progress snapshots and the final RunStats of every run.
func WithReporter(fn coordinator.ReportFunc) Option {
	return func(o *options) {
		o.report = fn
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Open validates cfg and builds the collaborators of a curation run.
func Open(cfg *config.RunConfig, opts ...Option) (*Curator, error) {
	o := &options{
		output: DefaultOutput,
		source: SourceDDG,
		rps:    1,
		burst:  2,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if o.output == "" {
		return nil, &core.ConfigError{Field: "output", Err: ErrNoOutput}
	}

	kb := o.kb
	if kb == nil {
		kb = knowledge.Default()
	}

	client := o.client
	if client == nil {
		var err error
		client, err = newSource(o)
		if err != nil {
			return nil, err
		}
	}

	extractOpts := []extract.Option{extract.WithLogger(o.logger.With("component", "extract"))}
	if o.pages {
		extractOpts = append(extractOpts, extract.WithPageFetcher(extract.NewHTTPPageFetcher(http.DefaultClient)))
	}
	provider, weight := o.provider, o.weight
	if provider == nil && o.aiConfig != nil {
		var err error
		provider, err = openai.NewProvider(o.aiConfig)
		if err != nil {
			return nil, &core.ConfigError{Field: "ai", Err: err}
		}
		weight = o.aiConfig.Weight
	}
	if cfg.Strategy == core.StrategyLLM && provider == nil {
		return nil, &core.ConfigError{Field: "strategy", Err: ErrNoModel}
	}
	if provider != nil {
		blend := extract.NewBlend(provider.Scorer(), extract.NewKeywordScorer(nil, nil), weight,
			o.logger.With("component", "scorer"))
		extractOpts = append(extractOpts, extract.WithScorer(blend))
	}

	var repos storage.Repositories
	var err error
	if o.dataDir == "" {
		repos, err = badger.NewMemoryRepositories()
	} else {
		repos, err = badger.Open(o.dataDir, o.logger)
	}
	if err != nil {
		if provider != nil {
			provider.Close()
		}
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	return &Curator{
		cfg:       cfg,
		repos:     repos,
		kb:        kb,
		client:    client,
		extractor: extract.New(kb, extractOpts...),
		provider:  provider,
		output:    o.output,
		report:    o.report,
		logger:    o.logger,
	}, nil
}

func newSource(o *options) (search.Client, error) {
	httpClient := http.DefaultClient
	ddgOpts := []ddg.Option{ddg.WithHTTPClient(httpClient), ddg.WithLogger(o.logger.With("component", "ddg"))}
	newsOpts := []news.Option{news.WithHTTPClient(httpClient), news.WithLogger(o.logger.With("component", "news"))}
	if o.userAgent != "" {
		ddgOpts = append(ddgOpts, ddg.WithUserAgent(o.userAgent))
	}

	var client search.Client
	switch strings.ToLower(o.source) {
	case SourceDDG:
		client = ddg.New(ddgOpts...)
	case SourceNews:
		client = news.New(newsOpts...)
	case SourceMixed:
		web, feed := ddg.New(ddgOpts...), news.New(newsOpts...)
		// every third query of an agent goes to the news feed
		client = search.ClientFunc(func(ctx context.Context, q core.Query, limit int) ([]core.RawHit, error) {
			if q.Seq%3 == 0 {
				return feed.Fetch(ctx, q, limit)
			}
			return web.Fetch(ctx, q, limit)
		})
	default:
		return nil, &core.ConfigError{Field: "source", Err: fmt.Errorf("%w: %q", ErrUnknownSource, o.source)}
	}
	return search.NewRateLimited(client, o.rps, o.burst), nil
}

// Config returns the run configuration.
func (c *Curator) Config() *config.RunConfig {
	return c.cfg
}

// Knowledge returns the knowledge base agents draw their terms from.
func (c *Curator) Knowledge() *knowledge.KnowledgeBase {
	return c.kb
}

// Repositories returns the storage behind the curator.
func (c *Curator) Repositories() storage.Repositories {
	return c.repos
}

// Run performs one curation run with the default agent specs and blocks
// until it finished. Canceling ctx stops the agents; the partial RunStats
// are returned with a nil error in that case.
func (c *Curator) Run(ctx context.Context) (core.RunStats, error) {
	return c.RunSpecs(ctx, coordinator.DefaultSpecs(c.cfg, c.kb))
}

// RunSpecs is Run with explicit agent specs.
func (c *Curator) RunSpecs(ctx context.Context, specs []core.AgentSpec) (core.RunStats, error) {
	if c.isClosed() {
		return core.RunStats{}, ErrClosed
	}
	runID := uuid.NewString()

	// A fresh run starts both the seen-set and the output over, so the file
	// never holds the same URL twice.
	out, err := sink.NewJSONL(c.output,
		sink.WithTruncate(!c.cfg.Resume),
		sink.WithLogger(c.logger.With("component", "sink", "path", c.output)))
	if err != nil {
		return core.RunStats{}, err
	}
	defer func() {
		if err := out.Close(); err != nil {
			c.logger.Error("failed to close output", "path", c.output, "err", err)
		}
	}()

	indexOpts := []dedup.Option{dedup.WithRunID(runID), dedup.WithLogger(c.logger.With("component", "dedup"))}
	if c.cfg.Resume {
		indexOpts = append(indexOpts, dedup.WithPreload())
	} else {
		indexOpts = append(indexOpts, dedup.WithReset())
	}
	index, err := dedup.NewPersistentIndex(context.WithoutCancel(ctx), c.repos.Seen(), indexOpts...)
	if err != nil {
		return core.RunStats{}, &core.LoadError{Source: "seen-set", Err: err}
	}

	coordOpts := []coordinator.Option{coordinator.WithRunID(runID), coordinator.WithLogger(c.logger)}
	if c.report != nil {
		coordOpts = append(coordOpts, coordinator.WithReporter(c.report))
	}
	if c.provider != nil {
		coordOpts = append(coordOpts, coordinator.WithQueryOptions(
			query.WithQueryWriter(c.provider.QueryWriter()),
			query.WithLogger(c.logger)))
	}
	coord, err := coordinator.New(c.cfg, coordinator.Deps{
		Knowledge: c.kb,
		Search:    c.client,
		Extractor: c.extractor,
		Index:     index,
		Sink:      out,
		Learning:  c.repos.Learning(),
		Runs:      c.repos.Runs(),
	}, coordOpts...)
	if err != nil {
		return core.RunStats{}, err
	}

	run, err := coord.Start(ctx, specs)
	if err != nil {
		return core.RunStats{}, err
	}
	return run.Wait()
}

// Runs lists persisted run summaries, most recent first. A limit <= 0
// returns every run.
func (c *Curator) Runs(ctx context.Context, limit int) ([]*core.RunStats, error) {
	return c.repos.Runs().ListRuns(ctx, limit)
}

// Learning lists the persisted learning snapshot of every agent spec.
func (c *Curator) Learning(ctx context.Context) ([]learning.Snapshot, error) {
	return c.repos.Learning().ListSnapshots(ctx)
}

// SeenCount returns the number of URLs in the persisted seen-set.
func (c *Curator) SeenCount(ctx context.Context) (int, error) {
	return c.repos.Seen().CountSeen(ctx)
}

// ResetSeen clears the persisted seen-set.
func (c *Curator) ResetSeen(ctx context.Context) error {
	return c.repos.Seen().ClearSeen(ctx)
}

func (c *Curator) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close releases the AI provider and the storage backend.
func (c *Curator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	var errs []error
	if c.provider != nil {
		if err := c.provider.Close(); err != nil {
			c.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if err := c.repos.Close(); err != nil {
		c.logger.Error("error closing storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
