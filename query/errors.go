package query

import "errors"

var (
	// ErrExhausted is the terminal "no more queries" signal of a generator.
	ErrExhausted = errors.New("query generator exhausted")

	// ErrNoTopics indicates the knowledge base has no topic categories to draw from.
	ErrNoTopics = errors.New("no topic categories")

	// ErrNoTemplates indicates no template can be filled from the knowledge base.
	ErrNoTemplates = errors.New("no usable pattern templates")

	// ErrNoQueryWriter indicates the LLM strategy was selected without a query writer.
	ErrNoQueryWriter = errors.New("no query writer configured")

	errNoFreshQueries = errors.New("model returned only issued queries")
)
