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


package config

import (
	"errors"
	"time"

	"github.com/poiesic/curator/core"
)

// RunConfig holds the options recognized by a curation run.
type RunConfig struct {
	// NumAgents is the number of agent specs created for the run.
	NumAgents int

	// SearchesPerAgent caps the queries each agent may issue.
	SearchesPerAgent int

	// MaxSearchResults is the hit limit passed to the search client per query.
	MaxSearchResults int

	// MaxConcurrentAgents is the worker pool size.
	MaxConcurrentAgents int

	// RelevanceThreshold discards hits scoring below it. Must be within [0,1].
	RelevanceThreshold float64

	// EnableLearning turns on success-weighted pattern selection.
	// When false, adaptive agents rotate patterns least-recently-used first.
	EnableLearning bool

	// Strategy selects the query generation strategy for every agent.
	Strategy core.Strategy

	// Exploration is the weight floor given to every pattern, within [0,1].
	Exploration float64

	// ProgressReportInterval is the wall-clock interval between RunStats reports.
	ProgressReportInterval time.Duration

	// ProgressReportEvery additionally reports every N searches. Zero disables it.
	ProgressReportEvery int

	// FetchTimeout bounds every search call.
	FetchTimeout time.Duration

	// FetchRetries is the number of retries for transient fetch failures.
	FetchRetries int

	// RetryDelay is the base delay between fetch retries.
	RetryDelay time.Duration

	// QueryDelay paces an agent between queries. Scaled by its recent success rate.
	QueryDelay time.Duration

	// MaxPatternFailures marks a pattern exhausted after this many consecutive failures.
	MaxPatternFailures int

	// MaxEntries ends the run once this many entries were collected. Zero disables it.
	MaxEntries int64

	// MaxDuration ends the run after this wall-clock time. Zero disables it.
	MaxDuration time.Duration

	// CeilingCheckInterval is how often the entry ceiling is checked.
	CeilingCheckInterval time.Duration

	// ShareLearning folds agent learning into a shared state on MergeInterval.
	ShareLearning bool

	// MergeInterval is the interval between shared-learning merges.
	MergeInterval time.Duration

	// Resume reuses the persisted seen-set and learning snapshots.
	Resume bool

	// Seed makes pattern sampling reproducible. Zero picks a time-based seed.
	Seed uint64
}

// Option is a functional option for configuring a RunConfig.
type Option func(*RunConfig)

// WithNumAgents sets the number of agents.
func WithNumAgents(n int) Option {
	return func(c *RunConfig) {
		c.NumAgents = n
	}
}

// WithSearchesPerAgent sets the per-agent search budget.
func WithSearchesPerAgent(n int) Option {
	return func(c *RunConfig) {
		c.SearchesPerAgent = n
	}
}

// WithMaxSearchResults sets the per-query hit limit.
func WithMaxSearchResults(n int) Option {
	return func(c *RunConfig) {
		c.MaxSearchResults = n
	}
}

// WithMaxConcurrentAgents sets the worker pool size.
func WithMaxConcurrentAgents(n int) Option {
	return func(c *RunConfig) {
		c.MaxConcurrentAgents = n
	}
}

// WithRelevanceThreshold sets the minimum accepted relevance score.
func WithRelevanceThreshold(threshold float64) Option {
	return func(c *RunConfig) {
		c.RelevanceThreshold = threshold
	}
}

// WithLearning enables or disables adaptive weighting.
func WithLearning(enabled bool) Option {
	return func(c *RunConfig) {
		c.EnableLearning = enabled
	}
}

// WithStrategy sets the query strategy.
func WithStrategy(strategy core.Strategy) Option {
	return func(c *RunConfig) {
		c.Strategy = strategy
	}
}

// WithExploration sets the exploration floor.
func WithExploration(exploration float64) Option {
	return func(c *RunConfig) {
		c.Exploration = exploration
	}
}

// WithProgressReportInterval sets the reporting interval.
func WithProgressReportInterval(d time.Duration) Option {
	return func(c *RunConfig) {
		c.ProgressReportInterval = d
	}
}

// WithFetchTimeout sets the per-fetch timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *RunConfig) {
		c.FetchTimeout = d
	}
}

// WithFetchRetries sets the transient retry count and base delay.
func WithFetchRetries(retries int, delay time.Duration) Option {
	return func(c *RunConfig) {
		c.FetchRetries = retries
		c.RetryDelay = delay
	}
}

// WithQueryDelay sets the pacing delay between queries.
func WithQueryDelay(d time.Duration) Option {
	return func(c *RunConfig) {
		c.QueryDelay = d
	}
}

// WithCeilings sets the entry-count and wall-clock ceilings.
func WithCeilings(maxEntries int64, maxDuration time.Duration) Option {
	return func(c *RunConfig) {
		c.MaxEntries = maxEntries
		c.MaxDuration = maxDuration
	}
}

// WithSharedLearning enables cross-agent learning merges on the given interval.
func WithSharedLearning(interval time.Duration) Option {
	return func(c *RunConfig) {
		c.ShareLearning = true
		c.MergeInterval = interval
	}
}

// WithResume enables reuse of persisted state.
func WithResume(resume bool) Option {
	return func(c *RunConfig) {
		c.Resume = resume
	}
}

// WithSeed fixes the sampling seed.
func WithSeed(seed uint64) Option {
	return func(c *RunConfig) {
		c.Seed = seed
	}
}

// DefaultConfig returns a RunConfig with the stock defaults:
// 12 agents, 50 searches each, at most 6 running concurrently.
func DefaultConfig() *RunConfig {
	return &RunConfig{
		NumAgents:              12,
		SearchesPerAgent:       50,
		MaxSearchResults:       30,
		MaxConcurrentAgents:    6,
		RelevanceThreshold:     0.3,
		EnableLearning:         true,
		Strategy:               core.StrategyAdaptive,
		Exploration:            0.1,
		ProgressReportInterval: 30 * time.Second,
		ProgressReportEvery:    0,
		FetchTimeout:           15 * time.Second,
		FetchRetries:           1,
		RetryDelay:             time.Second,
		QueryDelay:             0,
		MaxPatternFailures:     3,
		CeilingCheckInterval:   250 * time.Millisecond,
		MergeInterval:          10 * time.Second,
	}
}

// NewConfig creates a RunConfig with the default values and applies the provided options.
func NewConfig(opts ...Option) *RunConfig {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks that the configuration is valid and complete.
// Errors are *core.ConfigError values naming the offending option.
func (c *RunConfig) Validate() error {
	switch {
	case c.NumAgents < 1:
		return invalid("num_agents", "must be at least 1")
	case c.SearchesPerAgent < 1:
		return invalid("searches_per_agent", "must be at least 1")
	case c.MaxSearchResults < 1:
		return invalid("max_search_results", "must be at least 1")
	case c.MaxConcurrentAgents < 1:
		return invalid("max_concurrent_agents", "must be at least 1")
	case !core.ValidScore(c.RelevanceThreshold):
		return invalid("relevance_threshold", "must be within [0,1]")
	case !c.Strategy.Valid():
		return &core.ConfigError{Field: "strategy", Err: core.ErrUnknownStrategy}
	case c.Exploration < 0 || c.Exploration > 1:
		return invalid("exploration", "must be within [0,1]")
	case c.ProgressReportInterval <= 0:
		return invalid("progress_report_interval", "must be positive")
	case c.ProgressReportEvery < 0:
		return invalid("progress_report_every", "must not be negative")
	case c.FetchTimeout <= 0:
		return invalid("fetch_timeout", "must be positive")
	case c.FetchRetries < 0:
		return invalid("fetch_retries", "must not be negative")
	case c.RetryDelay < 0:
		return invalid("retry_delay", "must not be negative")
	case c.QueryDelay < 0:
		return invalid("query_delay", "must not be negative")
	case c.MaxPatternFailures < 1:
		return invalid("max_pattern_failures", "must be at least 1")
	case c.MaxEntries < 0:
		return invalid("max_entries", "must not be negative")
	case c.MaxDuration < 0:
		return invalid("max_duration", "must not be negative")
	case c.CeilingCheckInterval <= 0:
		return invalid("ceiling_check_interval", "must be positive")
	case c.ShareLearning && c.MergeInterval <= 0:
		return invalid("merge_interval", "must be positive when share_learning is set")
	}
	return nil
}

func invalid(field, msg string) error {
	return &core.ConfigError{Field: field, Err: errors.New(msg)}
}
