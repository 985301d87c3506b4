package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/poiesic/curator/core"
)

// Client fetches raw hits for a query. Implementations must be safe for
// concurrent use and should honor ctx for cancellation.
type Client interface {
	// Fetch returns at most limit hits. A zero-length result with a nil
	// error is a valid, empty answer.
	Fetch(ctx context.Context, q core.Query, limit int) ([]core.RawHit, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, q core.Query, limit int) ([]core.RawHit, error)

// Fetch implements Client.
func (f ClientFunc) Fetch(ctx context.Context, q core.Query, limit int) ([]core.RawHit, error) {
	return f(ctx, q, limit)
}

// TransientStatus reports whether an HTTP status is worth retrying.
func TransientStatus(code int) bool {
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return true
	case code >= 500:
		return true
	default:
		return false
	}
}

// StatusError converts a non-2xx HTTP status into a classified FetchError.
// It returns nil for 2xx.
func StatusError(query string, code int, status string) error {
	if code >= 200 && code < 300 {
		return nil
	}
	if status == "" {
		status = fmt.Sprintf("%d %s", code, http.StatusText(code))
	}
	err := fmt.Errorf("http %s", strings.TrimSpace(status))
	if code == http.StatusTooManyRequests {
		err = fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	if TransientStatus(code) {
		return core.NewTransientFetchError(query, err)
	}
	return core.NewPermanentFetchError(query, err)
}

// Classify wraps a transport error as a FetchError. Already classified
// errors and context cancellation pass through unchanged; timeouts and
// network failures are transient, anything else is permanent.
func Classify(query string, err error) error {
	if err == nil {
		return nil
	}
	var fe *core.FetchError
	if errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if core.IsTransient(err) || errors.Is(err, io.ErrUnexpectedEOF) {
		return core.NewTransientFetchError(query, err)
	}
	var oe *net.OpError
	if errors.As(err, &oe) {
		return core.NewTransientFetchError(query, err)
	}
	return core.NewPermanentFetchError(query, err)
}

// Truncate trims hits to at most limit entries. A non-positive limit keeps all.
func Truncate(hits []core.RawHit, limit int) []core.RawHit {
	if limit > 0 && len(hits) > limit {
		return hits[:limit]
	}
	return hits
}
