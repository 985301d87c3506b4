package sink

import (
	"context"
	"sync"

	"github.com/poiesic/curator/core"
)

// Memory keeps appended entries in memory. It is used by tests and dry runs.
type Memory struct {
	mu      sync.Mutex
	entries []core.Entry
	closed  bool
	flushes int

	// FailAfter makes Append fail with a write error once this many entries
	// were stored. Zero disables it.
	FailAfter int
}

var _ Sink = (*Memory)(nil)

// NewMemory creates an empty memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

// Append stores a copy of entry.
func (m *Memory) Append(ctx context.Context, entry *core.Entry) error {
	if entry == nil {
		return writeError(ErrNilEntry)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return writeError(ErrClosed)
	}
	if m.FailAfter > 0 && len(m.entries) >= m.FailAfter {
		return writeError(ErrClosed)
	}
	e := *entry
	e.Tags = append([]string(nil), entry.Tags...)
	m.entries = append(m.entries, e)
	return nil
}

// Entries returns a copy of the stored entries in append order.
func (m *Memory) Entries() []core.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Entry(nil), m.entries...)
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	return nil
}

// Flushes returns how often Flush was called.
func (m *Memory) Flushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushes
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
