package sink

import (
	"context"

	"github.com/poiesic/curator/core"
)

// Sink is the append-only destination of accepted entries.
//
// Append must be safe for concurrent use and write each entry as one complete
// record. Failures are reported as *core.WriteError so callers can halt the
// run instead of dropping data.
type Sink interface {
	Append(ctx context.Context, entry *core.Entry) error
	Flush() error
	Close() error
}

func writeError(err error) error {
	if err == nil {
		return nil
	}
	return &core.WriteError{Err: err}
}
