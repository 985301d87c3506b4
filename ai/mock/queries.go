package mock

import (
	"context"
	"sync"

	"github.com/poiesic/curator/ai"
)

// MockQueryWriter is a test double for ai.QueryWriter.
type MockQueryWriter struct {
	// WriteFunc is called by WriteQueries if set.
	// If nil, WriteQueries returns up to req.Count of Queries.
	WriteFunc func(ctx context.Context, req ai.QueryRequest) ([]string, error)

	// Queries is the fixed reply used when WriteFunc is nil.
	Queries []string

	mu        sync.Mutex
	callCount int
	requests  []ai.QueryRequest
}

// NewMockQueryWriter creates a mock writer replying with queries.
// Note: Returns concrete type to allow test assertions.
func NewMockQueryWriter(queries ...string) *MockQueryWriter {
	return &MockQueryWriter{Queries: queries}
}

// WriteQueries records the request and returns the injected or fixed reply.
func (m *MockQueryWriter) WriteQueries(ctx context.Context, req ai.QueryRequest) ([]string, error) {
	m.mu.Lock()
	m.callCount++
	req.Previous = append([]string(nil), req.Previous...)
	m.requests = append(m.requests, req)
	fn := m.WriteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	out := m.Queries
	if req.Count > 0 && len(out) > req.Count {
		out = out[:req.Count]
	}
	return append([]string(nil), out...), nil
}

// CallCount returns the number of times WriteQueries was called.
func (m *MockQueryWriter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Requests returns copies of every request received.
func (m *MockQueryWriter) Requests() []ai.QueryRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ai.QueryRequest(nil), m.requests...)
}

// Reset clears the call history and injected behavior.
func (m *MockQueryWriter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.requests = nil
	m.WriteFunc = nil
}
