package ai

import (
	"context"

	"github.com/poiesic/curator/core"
)

// RelevanceScorer rates how relevant an entry is to Indian agriculture.
// Implementations must be thread-safe for concurrent use.
type RelevanceScorer interface {
	// Score returns a relevance score in [0,1] for the entry's title and text.
	// Returns an error if the model could not be reached or never produced
	// a parsable answer.
	Score(ctx context.Context, entry *core.Entry) (float64, error)
}

// QueryRequest describes the search queries an agent asks a model for.
type QueryRequest struct {
	// Specialization is the agent's area, such as "soil health".
	Specialization string
	// Focus lists the knowledge base categories the agent covers.
	Focus []string
	// Previous holds the agent's most recent queries, oldest first.
	Previous []string
	// Count is the number of queries wanted.
	Count int
}

// QueryWriter drafts web search queries for an agent.
// Implementations must be thread-safe for concurrent use.
type QueryWriter interface {
	// WriteQueries returns up to req.Count query strings. Returns an error if
	// the model could not be reached or produced no usable line.
	WriteQueries(ctx context.Context, req QueryRequest) ([]string, error)
}

// Provider aggregates language-model services for convenient initialization and lifecycle management.
type Provider interface {
	// Scorer returns the relevance scoring service.
	// The returned RelevanceScorer is safe for concurrent use.
	Scorer() RelevanceScorer

	// QueryWriter returns the query drafting service.
	QueryWriter() QueryWriter

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
