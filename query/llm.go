package query

import (
	"context"
	"log/slog"

	"github.com/poiesic/curator/ai"
	"github.com/poiesic/curator/core"
	"github.com/poiesic/curator/knowledge"
	"github.com/poiesic/curator/learning"
)

const (
	// LLMPattern is the pattern name recorded for model-drafted queries.
	LLMPattern = "llm"

	// maxModelFailures consecutive failed model calls switch the agent to its
	// fallback generator for the rest of the run.
	maxModelFailures = 3

	// historySize is the number of recent queries sent with each request.
	historySize = 10
)

// LLM drafts queries with a language model. The agent's recent queries go
// with every request so the model can avoid them. Whenever the model fails,
// returns only repeats, or its pattern was exhausted by fetch failures, the
// query comes from an Adaptive fallback instead.
type LLM struct {
	writer   ai.QueryWriter
	fallback *Adaptive
	spec     core.AgentSpec
	focus    []string
	key      learning.PatternKey
	pending  []string
	recent   []string
	failures int
	disabled bool
	issued   int
	hist     history
	opts     options
	logger   *slog.Logger
}

// NewLLM builds a model-backed generator. The query writer is passed with
// WithQueryWriter.
func NewLLM(kb *knowledge.KnowledgeBase, spec core.AgentSpec, opts ...Option) (*LLM, error) {
	if err := core.ValidateAgentSpec(&spec); err != nil {
		return nil, err
	}
	o := applyOptions(opts)
	if o.writer == nil {
		return nil, ErrNoQueryWriter
	}
	focus, err := focusCategories(kb, spec)
	if err != nil {
		return nil, err
	}
	fallback, err := NewAdaptive(kb, spec, opts...)
	if err != nil {
		return nil, err
	}

	category := spec.Specialization
	if category == "" {
		category = LLMPattern
	}
	return &LLM{
		writer:   o.writer,
		fallback: fallback,
		spec:     spec,
		focus:    focus,
		key:      learning.PatternKey{Category: category, Pattern: LLMPattern},
		hist:     newHistory(),
		opts:     o,
		logger:   o.logger.With("component", "query", "agent", spec.ID),
	}, nil
}

// Issued returns the number of queries returned so far.
func (l *LLM) Issued() int {
	return l.issued
}

// ModelEnabled reports whether queries are still requested from the model.
func (l *LLM) ModelEnabled() bool {
	return !l.disabled
}

// Next returns the next unissued model query, refilling the batch when it
// runs dry, or a fallback query when the model cannot supply one.
func (l *LLM) Next(ctx context.Context, state *learning.State) (core.Query, error) {
	if l.issued >= l.spec.MaxSearches {
		return core.Query{}, ErrExhausted
	}
	if err := ctx.Err(); err != nil {
		return core.Query{}, err
	}

	if l.useModel(state) {
		if text, ok := l.nextDrafted(); ok {
			return l.emit(text, core.StrategyLLM, l.key), nil
		}
		if err := l.refill(ctx); err != nil {
			if ctx.Err() != nil {
				return core.Query{}, ctx.Err()
			}
		} else if text, ok := l.nextDrafted(); ok {
			return l.emit(text, core.StrategyLLM, l.key), nil
		}
	}
	return l.nextFallback(ctx, state)
}

func (l *LLM) useModel(state *learning.State) bool {
	if l.disabled {
		return false
	}
	if state != nil && state.Exhausted(l.key) {
		l.disabled = true
		l.logger.Info("model queries exhausted, using templates")
		return false
	}
	return true
}

// nextDrafted pops pending model queries until one was not issued before.
func (l *LLM) nextDrafted() (string, bool) {
	for len(l.pending) > 0 {
		text := normalizeQuery(l.pending[0])
		l.pending = l.pending[1:]
		if text != "" && !l.hist.has(text) {
			return text, true
		}
	}
	return "", false
}

// refill requests a new batch. A failed call or a batch of repeats counts
// toward maxModelFailures.
func (l *LLM) refill(ctx context.Context) error {
	queries, err := l.writer.WriteQueries(ctx, ai.QueryRequest{
		Specialization: l.spec.Specialization,
		Focus:          l.focus,
		Previous:       append([]string(nil), l.recent...),
		Count:          l.opts.batch,
	})
	if err == nil {
		l.pending = queries
		fresh := false
		for _, q := range queries {
			if t := normalizeQuery(q); t != "" && !l.hist.has(t) {
				fresh = true
				break
			}
		}
		if fresh {
			l.failures = 0
			return nil
		}
		err = errNoFreshQueries
	}
	if ctx.Err() != nil {
		return err
	}

	l.failures++
	l.logger.Warn("model query generation failed, using templates", "failures", l.failures, "err", err)
	if l.failures >= maxModelFailures {
		l.disabled = true
		l.logger.Warn("model query generation disabled", "failures", l.failures)
	}
	return err
}

// nextFallback takes the next template query the model has not already
// produced.
func (l *LLM) nextFallback(ctx context.Context, state *learning.State) (core.Query, error) {
	for {
		q, err := l.fallback.Next(ctx, state)
		if err != nil {
			return core.Query{}, err
		}
		if l.hist.has(q.Text) {
			continue
		}
		return l.emit(q.Text, q.Strategy, learning.PatternKey{Category: q.Category, Pattern: q.Pattern}), nil
	}
}

func (l *LLM) emit(text string, strategy core.Strategy, key learning.PatternKey) core.Query {
	l.hist.add(text)
	l.issued++
	l.recent = append(l.recent, text)
	if len(l.recent) > historySize {
		l.recent = l.recent[len(l.recent)-historySize:]
	}
	return core.Query{
		Text:     text,
		AgentID:  l.spec.ID,
		Strategy: strategy,
		Pattern:  key.Pattern,
		Category: key.Category,
		Seq:      l.issued,
		IssuedAt: l.opts.now(),
	}
}
