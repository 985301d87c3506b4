package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/curator/core"
	"github.com/poiesic/curator/storage"
)

// PersistentIndex is a MemoryIndex that writes every admission through to a
// storage.SeenRepository, so later runs can resume without re-emitting URLs.
type PersistentIndex struct {
	mem    *MemoryIndex
	repo   storage.SeenRepository
	ctx    context.Context
	runID  string
	now    func() time.Time
	logger *slog.Logger
}

var _ Index = (*PersistentIndex)(nil)

// Option is a functional option for configuring a PersistentIndex.
type Option func(*PersistentIndex, *persistOptions)

type persistOptions struct {
	preload bool
	reset   bool
}

// WithRunID tags admitted records with the run that admitted them.
func WithRunID(runID string) Option {
	return func(p *PersistentIndex, _ *persistOptions) {
		p.runID = runID
	}
}

// WithPreload loads the persisted seen-set into memory at construction.
func WithPreload() Option {
	return func(_ *PersistentIndex, o *persistOptions) {
		o.preload = true
	}
}

// WithReset clears the persisted seen-set at construction.
func WithReset() Option {
	return func(_ *PersistentIndex, o *persistOptions) {
		o.reset = true
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *PersistentIndex, _ *persistOptions) {
		p.logger = logger
	}
}

// NewPersistentIndex creates a write-through index over repo. ctx bounds
// every storage call the index makes.
func NewPersistentIndex(ctx context.Context, repo storage.SeenRepository, opts ...Option) (*PersistentIndex, error) {
	p := &PersistentIndex{
		mem:    NewMemoryIndex(),
		repo:   repo,
		ctx:    ctx,
		now:    time.Now,
		logger: slog.Default().With("component", "dedup"),
	}
	var o persistOptions
	for _, opt := range opts {
		opt(p, &o)
	}

	if o.reset {
		if err := repo.ClearSeen(ctx); err != nil {
			return nil, fmt.Errorf("failed to reset seen set: %w", err)
		}
	}
	if o.preload && !o.reset {
		err := repo.ForEachSeen(ctx, func(rec storage.SeenRecord) error {
			p.mem.insertLocked(rec.URL, rec.Fingerprint, false)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load seen set: %w", err)
		}
		p.logger.Info("seen set loaded", "urls", p.mem.Len())
	}
	return p, nil
}

// TryAdmit implements Index. The persisted write happens under the index
// lock so the in-memory and stored sets never disagree about a winner.
func (p *PersistentIndex) TryAdmit(url string, fp core.Fingerprint) (bool, error) {
	normalized, err := core.NormalizeURL(url)
	if err != nil {
		return false, err
	}

	p.mem.mu.Lock()
	defer p.mem.mu.Unlock()
	if !p.mem.absentLocked(normalized, fp) {
		return false, nil
	}

	ok, err := p.repo.Admit(p.ctx, storage.SeenRecord{
		URL:         normalized,
		Fingerprint: fp,
		RunID:       p.runID,
		AdmittedAt:  p.now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to persist %s: %w", normalized, err)
	}
	p.mem.insertLocked(normalized, fp, ok)
	return ok, nil
}

// Len implements Index.
func (p *PersistentIndex) Len() int {
	return p.mem.Len()
}

// Domains implements Index.
func (p *PersistentIndex) Domains() int {
	return p.mem.Domains()
}
