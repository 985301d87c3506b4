package query

import (
	"context"
	"strings"

	"github.com/poiesic/curator/core"
	"github.com/poiesic/curator/knowledge"
	"github.com/poiesic/curator/learning"
)

// StaticPattern is the pattern name recorded for enumerated queries.
const StaticPattern = "enumerated"

type combination struct {
	text     string
	category string
}

// Static enumerates topic term × region × modifier combinations once each.
type Static struct {
	spec   core.AgentSpec
	combos []combination
	pos    int
	issued int
	hist   history
	opts   options
}

// NewStatic precomputes the deduplicated combination list of an agent.
// A category without regions or modifiers in the knowledge base simply
// drops that axis. When spec.Shard is set only every Count-th combination,
// starting at Index, belongs to this agent.
func NewStatic(kb *knowledge.KnowledgeBase, spec core.AgentSpec, opts ...Option) (*Static, error) {
	if err := core.ValidateAgentSpec(&spec); err != nil {
		return nil, err
	}
	focus, err := focusCategories(kb, spec)
	if err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	regions := axis(kb, knowledge.CategoryRegion)
	modifiers := axis(kb, knowledge.CategoryModifier)

	seen := make(map[string]struct{})
	var all []combination
	for _, category := range focus {
		for _, term := range kb.Terms(category) {
			for _, region := range regions {
				for _, modifier := range modifiers {
					text := normalizeQuery(strings.Join([]string{term, region, modifier}, " "))
					key := strings.ToLower(text)
					if _, dup := seen[key]; dup {
						continue
					}
					seen[key] = struct{}{}
					all = append(all, combination{text: text, category: category})
				}
			}
		}
	}

	combos := all
	if spec.Shard.Count > 1 {
		combos = make([]combination, 0, len(all)/spec.Shard.Count+1)
		for i := spec.Shard.Index; i < len(all); i += spec.Shard.Count {
			combos = append(combos, all[i])
		}
	}
	if o.shuffle {
		rng := newRand(spec)
		rng.Shuffle(len(combos), func(i, j int) {
			combos[i], combos[j] = combos[j], combos[i]
		})
	}

	return &Static{
		spec:   spec,
		combos: combos,
		hist:   newHistory(),
		opts:   o,
	}, nil
}

func axis(kb *knowledge.KnowledgeBase, category string) []string {
	terms := kb.Terms(category)
	if len(terms) == 0 {
		return []string{""}
	}
	return terms
}

// Len returns the number of combinations assigned to the agent.
func (s *Static) Len() int {
	return len(s.combos)
}

// Issued returns the number of queries returned so far.
func (s *Static) Issued() int {
	return s.issued
}

// Next returns the next unissued combination. Combinations whose category
// pattern was exhausted in state are skipped. state may be nil.
func (s *Static) Next(_ context.Context, state *learning.State) (core.Query, error) {
	if s.issued >= s.spec.MaxSearches {
		return core.Query{}, ErrExhausted
	}
	for s.pos < len(s.combos) {
		c := s.combos[s.pos]
		s.pos++
		if state != nil && state.Exhausted(learning.PatternKey{Category: c.category, Pattern: StaticPattern}) {
			continue
		}
		if s.hist.has(c.text) {
			continue
		}
		s.hist.add(c.text)
		s.issued++
		return core.Query{
			Text:     c.text,
			AgentID:  s.spec.ID,
			Strategy: core.StrategyStatic,
			Pattern:  StaticPattern,
			Category: c.category,
			Seq:      s.issued,
			IssuedAt: s.opts.now(),
		}, nil
	}
	return core.Query{}, ErrExhausted
}
