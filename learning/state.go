package learning

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultAlpha is the smoothing factor of the relevance moving averages.
	DefaultAlpha = 0.3

	// recentWindow is the number of recent queries RecentSuccessRate looks at.
	recentWindow = 10
)

// PatternKey identifies a (category, pattern) pair.
type PatternKey struct {
	Category string
	Pattern  string
}

func (k PatternKey) String() string {
	return k.Category + "|" + k.Pattern
}

// MarshalText implements encoding.TextMarshaler so keys can index JSON objects.
func (k PatternKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PatternKey) UnmarshalText(text []byte) error {
	category, pattern, ok := strings.Cut(string(text), "|")
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidKey, text)
	}
	k.Category = category
	k.Pattern = pattern
	return nil
}

// PatternStats accumulates the outcomes of queries generated from one pattern.
type PatternStats struct {
	Queries    int     `json:"queries"`
	Productive int     `json:"productive"` // queries that yielded at least one accepted entry
	Accepted   int     `json:"accepted"`
	Duplicates int     `json:"duplicates"`
	LowScore   int     `json:"low_score"`
	Failures   int     `json:"failures"`
	Relevance  float64 `json:"relevance"` // moving average of accepted scores

	// Own-agent bookkeeping, never merged across agents.
	ConsecutiveFailures int  `json:"-"`
	Exhausted           bool `json:"-"`
	LastUsed            int  `json:"-"`
}

// SuccessRate is the Laplace-smoothed fraction of productive queries.
// An untried pattern scores 0.5.
func (p PatternStats) SuccessRate() float64 {
	return float64(p.Productive+1) / float64(p.Queries+2)
}

// DomainStats tracks result quality per source domain.
type DomainStats struct {
	Entries int     `json:"entries"`
	Quality float64 `json:"quality"`
}

// Snapshot is a point-in-time copy of learned statistics.
type Snapshot struct {
	AgentID   string                      `json:"agent_id"`
	Patterns  map[PatternKey]PatternStats `json:"patterns"`
	Domains   map[string]DomainStats      `json:"domains"`
	UpdatedAt time.Time                   `json:"updated_at"`
}

// Stats implements View.
func (s Snapshot) Stats(key PatternKey) PatternStats {
	return s.Patterns[key]
}

// View exposes pattern statistics to weight computation.
type View interface {
	Stats(key PatternKey) PatternStats
}

// Outcome classifies what happened to one hit.
type Outcome int

const (
	OutcomeAccepted Outcome = iota + 1
	OutcomeDuplicate
	OutcomeLowScore
)

// State is the learning state of one agent. Only the owning agent records
// outcomes; the coordinator reads snapshots and installs merged priors.
type State struct {
	mu       sync.Mutex
	agentID  string
	alpha    float64
	patterns map[PatternKey]*PatternStats
	domains  map[string]*DomainStats
	prior    Snapshot
	recent   []bool
}

// NewState creates an empty state for agentID.
func NewState(agentID string) *State {
	return &State{
		agentID:  agentID,
		alpha:    DefaultAlpha,
		patterns: make(map[PatternKey]*PatternStats),
		domains:  make(map[string]*DomainStats),
	}
}

// Restore seeds the state with a previously persisted snapshot. Exhaustion and
// failure streaks are not restored.
func (s *State) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range snap.Patterns {
		stats := v
		stats.ConsecutiveFailures = 0
		stats.Exhausted = false
		stats.LastUsed = 0
		s.patterns[k] = &stats
	}
	for d, v := range snap.Domains {
		stats := v
		s.domains[d] = &stats
	}
}

// AgentID returns the owning agent id.
func (s *State) AgentID() string {
	return s.agentID
}

func (s *State) pattern(key PatternKey) *PatternStats {
	p, ok := s.patterns[key]
	if !ok {
		p = &PatternStats{}
		s.patterns[key] = p
	}
	return p
}

// Begin records that a query for key was issued as the seq-th query of the agent.
func (s *State) Begin(key PatternKey, seq int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pattern(key)
	p.Queries++
	p.LastUsed = seq
}

// Observe records the outcome of a single hit.
func (s *State) Observe(key PatternKey, outcome Outcome, score float64, domain string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pattern(key)
	switch outcome {
	case OutcomeAccepted:
		if p.Accepted == 0 {
			p.Relevance = score
		} else {
			p.Relevance = s.alpha*score + (1-s.alpha)*p.Relevance
		}
		p.Accepted++
		if domain != "" {
			d, ok := s.domains[domain]
			if !ok {
				d = &DomainStats{Quality: score}
				s.domains[domain] = d
			} else {
				d.Quality = s.alpha*score + (1-s.alpha)*d.Quality
			}
			d.Entries++
		}
	case OutcomeDuplicate:
		p.Duplicates++
	case OutcomeLowScore:
		p.LowScore++
	}
}

// Complete closes a successfully fetched query. accepted is the number of
// entries it produced. The failure streak of key resets.
func (s *State) Complete(key PatternKey, accepted int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pattern(key)
	if accepted > 0 {
		p.Productive++
	}
	p.ConsecutiveFailures = 0
	s.pushRecent(accepted > 0)
}

// Fail records a fetch failure for key. It returns true when this failure
// made the pattern reach maxFailures consecutive failures and marked it exhausted.
func (s *State) Fail(key PatternKey, maxFailures int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pattern(key)
	p.Failures++
	p.ConsecutiveFailures++
	s.pushRecent(false)
	if !p.Exhausted && maxFailures > 0 && p.ConsecutiveFailures >= maxFailures {
		p.Exhausted = true
		return true
	}
	return false
}

// MarkExhausted removes key from further selection.
func (s *State) MarkExhausted(key PatternKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pattern(key).Exhausted = true
}

// Exhausted reports whether key was marked exhausted.
func (s *State) Exhausted(key PatternKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patterns[key]
	return ok && p.Exhausted
}

func (s *State) pushRecent(ok bool) {
	s.recent = append(s.recent, ok)
	if len(s.recent) > recentWindow {
		s.recent = s.recent[len(s.recent)-recentWindow:]
	}
}

// RecentSuccessRate is the fraction of the last queries that produced entries.
// It returns -1 before any query completed.
func (s *State) RecentSuccessRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.recent) == 0 {
		return -1
	}
	n := 0
	for _, ok := range s.recent {
		if ok {
			n++
		}
	}
	return float64(n) / float64(len(s.recent))
}

// Stats implements View: own statistics combined with the installed prior.
// Exhaustion and recency always come from the owning agent.
func (s *State) Stats(key PatternKey) PatternStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	var own PatternStats
	if p, ok := s.patterns[key]; ok {
		own = *p
	}
	prior, ok := s.prior.Patterns[key]
	if !ok {
		return own
	}
	merged := MergeStats(own, prior)
	merged.ConsecutiveFailures = own.ConsecutiveFailures
	merged.Exhausted = own.Exhausted
	merged.LastUsed = own.LastUsed
	return merged
}

// LastUsed returns the sequence number of the last query issued for key, 0 if never.
func (s *State) LastUsed(key PatternKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.patterns[key]; ok {
		return p.LastUsed
	}
	return 0
}

// SetPrior installs statistics learned by other agents.
func (s *State) SetPrior(prior Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prior = prior
}

// Snapshot copies the agent's own statistics. The prior is not included.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		AgentID:   s.agentID,
		Patterns:  make(map[PatternKey]PatternStats, len(s.patterns)),
		Domains:   make(map[string]DomainStats, len(s.domains)),
		UpdatedAt: time.Now(),
	}
	for k, v := range s.patterns {
		snap.Patterns[k] = *v
	}
	for k, v := range s.domains {
		snap.Domains[k] = *v
	}
	return snap
}

// TopDomains returns up to n domains ordered by quality, then entry count.
func (s *State) TopDomains(n int) []string {
	s.mu.Lock()
	type ranked struct {
		name string
		DomainStats
	}
	list := make([]ranked, 0, len(s.domains))
	for name, d := range s.domains {
		list = append(list, ranked{name, *d})
	}
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].Quality != list[j].Quality {
			return list[i].Quality > list[j].Quality
		}
		if list[i].Entries != list[j].Entries {
			return list[i].Entries > list[j].Entries
		}
		return list[i].name < list[j].name
	})
	if n > len(list) {
		n = len(list)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = list[i].name
	}
	return out
}

// MergeStats sums counts and averages relevance weighted by accepted entries.
// It is commutative and associative. Own-agent bookkeeping is dropped.
func MergeStats(a, b PatternStats) PatternStats {
	out := PatternStats{
		Queries:    a.Queries + b.Queries,
		Productive: a.Productive + b.Productive,
		Accepted:   a.Accepted + b.Accepted,
		Duplicates: a.Duplicates + b.Duplicates,
		LowScore:   a.LowScore + b.LowScore,
		Failures:   a.Failures + b.Failures,
	}
	if out.Accepted > 0 {
		out.Relevance = (a.Relevance*float64(a.Accepted) + b.Relevance*float64(b.Accepted)) / float64(out.Accepted)
	}
	return out
}

// MergeSnapshots folds snapshots into one. The result has no AgentID.
func MergeSnapshots(snaps ...Snapshot) Snapshot {
	out := Snapshot{
		Patterns: make(map[PatternKey]PatternStats),
		Domains:  make(map[string]DomainStats),
	}
	for _, snap := range snaps {
		for k, v := range snap.Patterns {
			out.Patterns[k] = MergeStats(out.Patterns[k], v)
		}
		for d, v := range snap.Domains {
			cur := out.Domains[d]
			total := cur.Entries + v.Entries
			if total > 0 {
				cur.Quality = (cur.Quality*float64(cur.Entries) + v.Quality*float64(v.Entries)) / float64(total)
			}
			cur.Entries = total
			out.Domains[d] = cur
		}
		if snap.UpdatedAt.After(out.UpdatedAt) {
			out.UpdatedAt = snap.UpdatedAt
		}
	}
	return out
}
