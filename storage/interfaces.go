package storage

import (
	"context"
	"time"

	"github.com/poiesic/curator/core"
	"github.com/poiesic/curator/learning"
)

// SeenRecord describes when and by which run a URL was first admitted.
type SeenRecord struct {
	URL         string           `json:"url"`
	Fingerprint core.Fingerprint `json:"fingerprint"`
	RunID       string           `json:"run_id"`
	AdmittedAt  time.Time        `json:"admitted_at"`
}

// SeenRepository persists the deduplication set across runs.
// Implementations must be thread-safe and support concurrent access.
type SeenRepository interface {
	// Admit records url and fingerprint in one transaction.
	// Returns false without writing anything when either is already present.
	// An empty fingerprint only checks the URL.
	Admit(ctx context.Context, rec SeenRecord) (bool, error)

	// ForEachSeen calls fn for every admitted record in URL order.
	// Iteration stops at the first error fn returns.
	ForEachSeen(ctx context.Context, fn func(rec SeenRecord) error) error

	// CountSeen returns the number of admitted URLs.
	CountSeen(ctx context.Context) (int, error)

	// ClearSeen removes every admitted URL and fingerprint.
	ClearSeen(ctx context.Context) error
}

// LearningRepository persists per-agent learning snapshots keyed by agent spec ID.
type LearningRepository interface {
	// SaveSnapshot stores snap under snap.AgentID, replacing any previous value.
	SaveSnapshot(ctx context.Context, snap learning.Snapshot) error

	// LoadSnapshot retrieves the snapshot of an agent.
	// Returns nil, nil if none exists.
	LoadSnapshot(ctx context.Context, agentID string) (*learning.Snapshot, error)

	// ListSnapshots returns every stored snapshot ordered by agent ID.
	ListSnapshots(ctx context.Context) ([]learning.Snapshot, error)
}

// RunRepository persists final run summaries.
type RunRepository interface {
	// SaveRun stores the summary of a run under stats.RunID.
	SaveRun(ctx context.Context, stats *core.RunStats) error

	// GetRun retrieves a run summary by ID.
	// Returns ErrNotFound if the run doesn't exist.
	GetRun(ctx context.Context, runID string) (*core.RunStats, error)

	// ListRuns retrieves up to limit run summaries, most recent first.
	// A limit <= 0 returns every run.
	ListRuns(ctx context.Context, limit int) ([]*core.RunStats, error)
}

// Repositories bundles the stores a curation run uses.
type Repositories interface {
	Seen() SeenRepository
	Learning() LearningRepository
	Runs() RunRepository

	// Close closes the storage backend and releases resources.
	Close() error
}
