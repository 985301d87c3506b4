package agent

import "github.com/poiesic/curator/core"

// Monitor provides hooks to observe agents. One monitor usually observes every
// agent of a run, so implementations must be safe for concurrent use.
type Monitor interface {
	StateChanged(agentID string, from, to core.AgentState)
	QueryIssued(q core.Query)
	FetchRetried(q core.Query, attempt int, err error)
	FetchFailed(q core.Query, err error)
	HitsFetched(q core.Query, hits int)
	ExtractFailed(q core.Query, url string, err error)
	BelowThreshold(entry *core.Entry)
	Duplicate(entry *core.Entry)
	EntryEmitted(entry *core.Entry)
	Finished(summary core.AgentSummary)
}

// NoopMonitor ignores every event. Embed it to implement a subset of Monitor.
type NoopMonitor struct{}

var _ Monitor = NoopMonitor{}

func (NoopMonitor) StateChanged(_ string, _, _ core.AgentState)   {}
func (NoopMonitor) QueryIssued(_ core.Query)                      {}
func (NoopMonitor) FetchRetried(_ core.Query, _ int, _ error)     {}
func (NoopMonitor) FetchFailed(_ core.Query, _ error)             {}
func (NoopMonitor) HitsFetched(_ core.Query, _ int)               {}
func (NoopMonitor) ExtractFailed(_ core.Query, _ string, _ error) {}
func (NoopMonitor) BelowThreshold(_ *core.Entry)                  {}
func (NoopMonitor) Duplicate(_ *core.Entry)                       {}
func (NoopMonitor) EntryEmitted(_ *core.Entry)                    {}
func (NoopMonitor) Finished(_ core.AgentSummary)                  {}
