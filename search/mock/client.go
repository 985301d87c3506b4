// Package mock provides a scripted search.Client for tests.
package mock

import (
	"context"
	"sync"

	"github.com/poiesic/curator/core"
	"github.com/poiesic/curator/search"
)

// Client is a test double for search.Client. Hits are looked up by query
// text; FetchFunc, when set, replaces the lookup entirely.
type Client struct {
	// FetchFunc is called by Fetch if set.
	FetchFunc func(ctx context.Context, q core.Query, limit int) ([]core.RawHit, error)

	mu      sync.Mutex
	results map[string][]core.RawHit
	errs    map[string][]error
	queries []core.Query
}

var _ search.Client = (*Client)(nil)

// NewClient creates an empty scripted client. Unknown queries return no hits.
func NewClient() *Client {
	return &Client{
		results: make(map[string][]core.RawHit),
		errs:    make(map[string][]error),
	}
}

// SetResults scripts the hits returned for query text.
func (c *Client) SetResults(text string, hits ...core.RawHit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[text] = hits
}

// FailNext queues errors returned, in order, by the next fetches of text
// before the scripted hits are returned.
func (c *Client) FailNext(text string, errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[text] = append(c.errs[text], errs...)
}

// Fetch implements search.Client.
func (c *Client) Fetch(ctx context.Context, q core.Query, limit int) ([]core.RawHit, error) {
	c.mu.Lock()
	c.queries = append(c.queries, q)
	fn := c.FetchFunc
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fn != nil {
		return fn(ctx, q, limit)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if queued := c.errs[q.Text]; len(queued) > 0 {
		c.errs[q.Text] = queued[1:]
		return nil, queued[0]
	}
	hits := append([]core.RawHit(nil), c.results[q.Text]...)
	return search.Truncate(hits, limit), nil
}

// Queries returns every query received, in arrival order.
func (c *Client) Queries() []core.Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Query(nil), c.queries...)
}

// CallCount returns the number of Fetch calls.
func (c *Client) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queries)
}
