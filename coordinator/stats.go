package coordinator

import (
	"sync"
	"sync/atomic"

	"github.com/poiesic/curator/agent"
	"github.com/poiesic/curator/core"
)

// counters are the run-wide totals. Agents update them through the
// statsMonitor; reads while the run is active are approximate.
type counters struct {
	searches        atomic.Int64
	entries         atomic.Int64
	urls            atomic.Int64
	retries         atomic.Int64
	fetchFailures   atomic.Int64
	extractFailures atomic.Int64
	duplicates      atomic.Int64
	belowThreshold  atomic.Int64
	exhausted       atomic.Int64

	seen sync.Map // normalized URLs encountered in any hit
}

func (c *counters) sawURL(raw string) {
	key, err := core.NormalizeURL(raw)
	if err != nil {
		return
	}
	if _, loaded := c.seen.LoadOrStore(key, struct{}{}); !loaded {
		c.urls.Add(1)
	}
}

// statsMonitor folds agent events into counters and forwards them to next.
type statsMonitor struct {
	c       *counters
	next    agent.Monitor
	onQuery func(searches int64)
	onEntry func(entries int64)
}

var _ agent.Monitor = (*statsMonitor)(nil)

func (m *statsMonitor) StateChanged(agentID string, from, to core.AgentState) {
	m.next.StateChanged(agentID, from, to)
}

func (m *statsMonitor) QueryIssued(q core.Query) {
	n := m.c.searches.Add(1)
	m.next.QueryIssued(q)
	if m.onQuery != nil {
		m.onQuery(n)
	}
}

func (m *statsMonitor) FetchRetried(q core.Query, attempt int, err error) {
	m.c.retries.Add(1)
	m.next.FetchRetried(q, attempt, err)
}

func (m *statsMonitor) FetchFailed(q core.Query, err error) {
	m.c.fetchFailures.Add(1)
	m.next.FetchFailed(q, err)
}

func (m *statsMonitor) HitsFetched(q core.Query, hits int) {
	m.next.HitsFetched(q, hits)
}

func (m *statsMonitor) ExtractFailed(q core.Query, url string, err error) {
	m.c.extractFailures.Add(1)
	m.c.sawURL(url)
	m.next.ExtractFailed(q, url, err)
}

func (m *statsMonitor) BelowThreshold(entry *core.Entry) {
	m.c.belowThreshold.Add(1)
	m.c.sawURL(entry.URL)
	m.next.BelowThreshold(entry)
}

func (m *statsMonitor) Duplicate(entry *core.Entry) {
	m.c.duplicates.Add(1)
	m.c.sawURL(entry.URL)
	m.next.Duplicate(entry)
}

func (m *statsMonitor) EntryEmitted(entry *core.Entry) {
	n := m.c.entries.Add(1)
	m.c.sawURL(entry.URL)
	m.next.EntryEmitted(entry)
	if m.onEntry != nil {
		m.onEntry(n)
	}
}

func (m *statsMonitor) Finished(summary core.AgentSummary) {
	if summary.FinalState == core.AgentExhausted {
		m.c.exhausted.Add(1)
	}
	m.next.Finished(summary)
}
