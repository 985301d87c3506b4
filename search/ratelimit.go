package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/poiesic/curator/core"
)

// DefaultBackoff is how long a RateLimited client pauses after the backend
// reports a rate limit.
const DefaultBackoff = 30 * time.Second

// RateLimited is a Client decorator that shares a token bucket across every
// caller, and pauses all callers after the backend signals ErrRateLimited.
type RateLimited struct {
	next    Client
	limiter *rate.Limiter
	backoff time.Duration

	mu      sync.Mutex
	retryAt time.Time
	now     func() time.Time
}

var _ Client = (*RateLimited)(nil)

// NewRateLimited wraps next with a limit of rps requests per second and the
// given burst. A non-positive rps disables the token bucket.
func NewRateLimited(next Client, rps float64, burst int) *RateLimited {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
		backoff: DefaultBackoff,
		now:     time.Now,
	}
}

// WithBackoff sets the pause applied after a rate-limit response.
func (r *RateLimited) WithBackoff(d time.Duration) *RateLimited {
	r.backoff = d
	return r
}

// Fetch implements Client.
func (r *RateLimited) Fetch(ctx context.Context, q core.Query, limit int) ([]core.RawHit, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	hits, err := r.next.Fetch(ctx, q, limit)
	if errors.Is(err, ErrRateLimited) {
		r.mu.Lock()
		r.retryAt = r.now().Add(r.backoff)
		r.mu.Unlock()
	}
	return hits, err
}

func (r *RateLimited) wait(ctx context.Context) error {
	r.mu.Lock()
	pause := r.retryAt.Sub(r.now())
	r.mu.Unlock()

	if pause > 0 {
		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return r.limiter.Wait(ctx)
}
