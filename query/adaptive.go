package query

import (
	"context"
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/poiesic/curator/core"
	"github.com/poiesic/curator/knowledge"
	"github.com/poiesic/curator/learning"
)

const (
	// PlaceholderTerm is filled with a term of the pattern's focus category.
	PlaceholderTerm = "term"
	// PlaceholderTerm2 is filled with a second, different term of the focus category.
	PlaceholderTerm2 = "term2"

	// fillAttempts bounds how often a pattern is refilled when it produces an
	// already issued query before it is considered spent.
	fillAttempts = 8
)

// DefaultTemplates are the adaptive pattern templates. Placeholders name a
// knowledge base category, or {term}/{term2} for the pattern's focus category.
var DefaultTemplates = []string{
	"{term} {modifier} {region}",
	"{term} research {region} agriculture",
	"impact of {term} on {crop} yield {region}",
	"{term} vs {term2} {region} agriculture study",
	"historical analysis {term} {region} farming",
	"adoption of {technology} for {term} in {region}",
	"{institution} {term} research {region}",
	"{scheme} {term} implementation impact India",
	"{term} effect on farmer income {region}",
	"{term} best practices smallholder farmers {region}",
	"{term} {modifier} India",
}

var placeholderRE = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Placeholders returns the placeholder names of a template in order.
func Placeholders(template string) []string {
	matches := placeholderRE.FindAllStringSubmatch(template, -1)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m[1]
	}
	return out
}

// Adaptive fills pattern templates with knowledge base samples, picking the
// pattern by weighted sampling over learned success.
type Adaptive struct {
	kb       *knowledge.KnowledgeBase
	spec     core.AgentSpec
	keys     []learning.PatternKey
	lastUsed map[learning.PatternKey]int
	spent    map[learning.PatternKey]bool
	issued   int
	hist     history
	rng      *rand.Rand
	opts     options
}

// NewAdaptive builds the pattern set of an agent: every template usable with
// the knowledge base, crossed with each focus category.
func NewAdaptive(kb *knowledge.KnowledgeBase, spec core.AgentSpec, opts ...Option) (*Adaptive, error) {
	if err := core.ValidateAgentSpec(&spec); err != nil {
		return nil, err
	}
	focus, err := focusCategories(kb, spec)
	if err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	var keys []learning.PatternKey
	for _, category := range focus {
		for _, tmpl := range o.templates {
			if usable(kb, category, tmpl) {
				keys = append(keys, learning.PatternKey{Category: category, Pattern: tmpl})
			}
		}
	}
	if len(keys) == 0 {
		return nil, ErrNoTemplates
	}

	return &Adaptive{
		kb:       kb,
		spec:     spec,
		keys:     keys,
		lastUsed: make(map[learning.PatternKey]int),
		spent:    make(map[learning.PatternKey]bool),
		hist:     newHistory(),
		rng:      newRand(spec),
		opts:     o,
	}, nil
}

func usable(kb *knowledge.KnowledgeBase, category, tmpl string) bool {
	names := Placeholders(tmpl)
	if len(names) == 0 {
		return false
	}
	for _, name := range names {
		switch name {
		case PlaceholderTerm:
		case PlaceholderTerm2:
			if len(kb.Terms(category)) < 2 {
				return false
			}
		default:
			if !kb.Has(name) {
				return false
			}
		}
	}
	return true
}

// Patterns returns the pattern keys the agent selects from.
func (a *Adaptive) Patterns() []learning.PatternKey {
	out := make([]learning.PatternKey, len(a.keys))
	copy(out, a.keys)
	return out
}

// Issued returns the number of queries returned so far.
func (a *Adaptive) Issued() int {
	return a.issued
}

// Next selects a pattern, fills it and returns a query not issued before.
// Patterns that keep producing issued queries are dropped. state may be nil,
// in which case patterns rotate least-recently-used first.
func (a *Adaptive) Next(_ context.Context, state *learning.State) (core.Query, error) {
	if a.issued >= a.spec.MaxSearches {
		return core.Query{}, ErrExhausted
	}

	var view learning.View = learning.Snapshot{}
	if state != nil {
		view = state
	}
	var weights []float64
	if a.opts.learning && state != nil {
		weights = learning.ComputeWeights(a.keys, view, a.spec.Exploration)
	} else {
		weights = learning.UniformWeights(a.keys, view)
	}
	lastUsed := make([]int, len(a.keys))
	for i, k := range a.keys {
		lastUsed[i] = a.lastUsed[k]
		if a.spent[k] {
			weights[i] = 0
		}
	}

	for {
		idx := learning.Select(weights, lastUsed, a.rng.Float64())
		if idx < 0 {
			return core.Query{}, ErrExhausted
		}
		key := a.keys[idx]
		for attempt := 0; attempt < fillAttempts; attempt++ {
			text := a.fill(key)
			if text == "" || a.hist.has(text) {
				continue
			}
			a.hist.add(text)
			a.issued++
			a.lastUsed[key] = a.issued
			return core.Query{
				Text:     text,
				AgentID:  a.spec.ID,
				Strategy: core.StrategyAdaptive,
				Pattern:  key.Pattern,
				Category: key.Category,
				Seq:      a.issued,
				IssuedAt: a.opts.now(),
			}, nil
		}
		a.spent[key] = true
		weights[idx] = 0
	}
}

// fill substitutes every placeholder of the key's template. Terms already
// used in the same query are avoided when the category allows it.
func (a *Adaptive) fill(key learning.PatternKey) string {
	used := make(map[string]bool)
	var first string
	failed := false
	text := placeholderRE.ReplaceAllStringFunc(key.Pattern, func(m string) string {
		name := m[1 : len(m)-1]
		category := name
		if name == PlaceholderTerm || name == PlaceholderTerm2 {
			category = key.Category
		}
		term := a.pick(category, used)
		if term == "" {
			failed = true
			return ""
		}
		if name == PlaceholderTerm {
			first = term
		}
		used[strings.ToLower(term)] = true
		return term
	})
	if failed || first == "" && strings.Contains(key.Pattern, "{"+PlaceholderTerm+"}") {
		return ""
	}
	return normalizeQuery(text)
}

func (a *Adaptive) pick(category string, used map[string]bool) string {
	candidates := a.kb.Sample(category, 3, a.rng)
	for _, c := range candidates {
		if !used[strings.ToLower(c)] {
			return c
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return ""
}
