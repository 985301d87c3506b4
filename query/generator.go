package query

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/poiesic/curator/ai"
	"github.com/poiesic/curator/core"
	"github.com/poiesic/curator/knowledge"
	"github.com/poiesic/curator/learning"
)

// Generator produces the queries of one agent.
//
// Next returns ErrExhausted once the agent's budget is spent or the strategy
// has nothing left to offer. ctx bounds any model call the strategy makes.
// A Generator never returns the same query text twice and is not safe for
// concurrent use; each agent owns its own.
type Generator interface {
	Next(ctx context.Context, state *learning.State) (core.Query, error)
	Issued() int
}

// Option configures generators.
type Option func(*options)

type options struct {
	templates []string
	learning  bool
	shuffle   bool
	writer    ai.QueryWriter
	batch     int
	now       func() time.Time
	logger    *slog.Logger
}

// WithTemplates replaces the adaptive pattern templates.
func WithTemplates(templates ...string) Option {
	return func(o *options) {
		o.templates = templates
	}
}

// WithLearning toggles success-weighted pattern selection for the adaptive
// strategy. Disabled, patterns rotate least-recently-used first.
func WithLearning(enabled bool) Option {
	return func(o *options) {
		o.learning = enabled
	}
}

// WithShuffle randomizes the enumeration order of the static strategy using
// the agent seed. The set of queries is unchanged.
func WithShuffle(enabled bool) Option {
	return func(o *options) {
		o.shuffle = enabled
	}
}

// WithQueryWriter sets the model the LLM strategy drafts queries with.
func WithQueryWriter(w ai.QueryWriter) Option {
	return func(o *options) {
		o.writer = w
	}
}

// WithBatchSize sets how many queries the LLM strategy requests per model
// call. Default: 5
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batch = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source used to stamp queries.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func defaultOptions() options {
	return options{
		templates: DefaultTemplates,
		learning:  true,
		batch:     5,
		now:       time.Now,
		logger:    slog.Default(),
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New builds the generator selected by spec.Strategy.
func New(kb *knowledge.KnowledgeBase, spec core.AgentSpec, opts ...Option) (Generator, error) {
	switch spec.Strategy {
	case core.StrategyStatic:
		return NewStatic(kb, spec, opts...)
	case core.StrategyAdaptive:
		return NewAdaptive(kb, spec, opts...)
	case core.StrategyLLM:
		return NewLLM(kb, spec, opts...)
	default:
		return nil, fmt.Errorf("agent %s: %w", spec.ID, core.ErrUnknownStrategy)
	}
}

// focusCategories returns the topic categories an agent draws terms from.
func focusCategories(kb *knowledge.KnowledgeBase, spec core.AgentSpec) ([]string, error) {
	if len(spec.Focus) > 0 {
		if err := kb.Require(spec.Focus...); err != nil {
			return nil, err
		}
		return spec.Focus, nil
	}
	topics := kb.Topics()
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}
	return topics, nil
}

// newRand seeds a generator-private source from the agent seed and id.
func newRand(spec core.AgentSpec) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(spec.ID))
	return rand.New(rand.NewPCG(spec.Seed, h.Sum64()))
}

// history tracks issued query text for per-agent dedup.
type history struct {
	seen map[string]struct{}
}

func newHistory() history {
	return history{seen: make(map[string]struct{})}
}

func normalizeQuery(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func (h history) has(text string) bool {
	_, ok := h.seen[strings.ToLower(text)]
	return ok
}

func (h history) add(text string) {
	h.seen[strings.ToLower(text)] = struct{}{}
}
