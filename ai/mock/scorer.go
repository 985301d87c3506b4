package mock

import (
	"context"
	"sync"

	"github.com/poiesic/curator/core"
)

// MockScorer is a test double for ai.RelevanceScorer.
// It allows custom behavior injection via function fields.
type MockScorer struct {
	// ScoreFunc is called by Score if set.
	// If nil, Score returns DefaultScore.
	ScoreFunc func(ctx context.Context, entry *core.Entry) (float64, error)

	// DefaultScore is returned when ScoreFunc is nil.
	DefaultScore float64

	mu        sync.Mutex
	callCount int
}

// NewMockScorer creates a mock scorer returning score for every entry.
// Note: Returns concrete type to allow test assertions.
func NewMockScorer(score float64) *MockScorer {
	return &MockScorer{DefaultScore: score}
}

// Score returns the injected or default score.
func (m *MockScorer) Score(ctx context.Context, entry *core.Entry) (float64, error) {
	m.mu.Lock()
	m.callCount++
	fn := m.ScoreFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, entry)
	}
	return m.DefaultScore, nil
}

// CallCount returns the number of times Score was called.
func (m *MockScorer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockScorer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.ScoreFunc = nil
}
