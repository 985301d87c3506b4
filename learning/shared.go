package learning

import "sync"

// Shared is the cross-agent learning state. Each agent publishes its own
// snapshot; PriorFor merges everyone else's so an agent never counts its own
// outcomes twice.
type Shared struct {
	mu     sync.Mutex
	agents map[string]Snapshot
}

// NewShared creates an empty shared state.
func NewShared() *Shared {
	return &Shared{agents: make(map[string]Snapshot)}
}

// Publish replaces the snapshot of one agent.
func (s *Shared) Publish(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[snap.AgentID] = snap
}

// PriorFor merges the snapshots of every agent except agentID.
func (s *Shared) PriorFor(agentID string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	others := make([]Snapshot, 0, len(s.agents))
	for id, snap := range s.agents {
		if id != agentID {
			others = append(others, snap)
		}
	}
	return MergeSnapshots(others...)
}

// Merged folds every published snapshot.
func (s *Shared) Merged() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]Snapshot, 0, len(s.agents))
	for _, snap := range s.agents {
		all = append(all, snap)
	}
	return MergeSnapshots(all...)
}

// Sync publishes each state and installs the merged prior of the others on it.
func (s *Shared) Sync(states ...*State) {
	for _, st := range states {
		s.Publish(st.Snapshot())
	}
	for _, st := range states {
		st.SetPrior(s.PriorFor(st.AgentID()))
	}
}
