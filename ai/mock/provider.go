// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package mock

import "github.com/poiesic/curator/ai"

// MockProvider is a test double for ai.Provider.
type MockProvider struct {
	scorer *MockScorer
	writer *MockQueryWriter
	closed bool
}

// NewMockProvider creates a new mock provider whose scorer returns score.
//
// Returns ai.Provider interface for consistency with production constructors.
// Use GetMockScorer() to access the concrete type for test assertions.
func NewMockProvider(score float64) ai.Provider {
	return &MockProvider{scorer: NewMockScorer(score), writer: NewMockQueryWriter()}
}

// NewMockProviderWithScorer creates a mock provider around a custom scorer.
func NewMockProviderWithScorer(scorer *MockScorer) ai.Provider {
	return &MockProvider{scorer: scorer, writer: NewMockQueryWriter()}
}

// NewMockProviderWithWriter creates a mock provider around a custom query
// writer and a scorer returning 1.
func NewMockProviderWithWriter(writer *MockQueryWriter) ai.Provider {
	return &MockProvider{scorer: NewMockScorer(1), writer: writer}
}

// Scorer returns the mock scorer.
func (p *MockProvider) Scorer() ai.RelevanceScorer {
	return p.scorer
}

// QueryWriter returns the mock query writer.
func (p *MockProvider) QueryWriter() ai.QueryWriter {
	return p.writer
}

// Close marks the provider closed.
func (p *MockProvider) Close() error {
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *MockProvider) Closed() bool {
	return p.closed
}

// GetMockQueryWriter returns the underlying mock query writer for test assertions.
func (p *MockProvider) GetMockQueryWriter() *MockQueryWriter {
	return p.writer
}

// GetMockScorer returns the underlying mock scorer for test assertions.
func (p *MockProvider) GetMockScorer() *MockScorer {
	return p.scorer
}
