package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/poiesic/curator/core"
)

// JSONL appends entries to a file, one JSON object per line.
type JSONL struct {
	mu      sync.Mutex
	f       *os.File
	w       *bufio.Writer
	path    string
	sync    bool
	trunc   bool
	closed  bool
	written int64
	logger  *slog.Logger
}

var _ Sink = (*JSONL)(nil)

// JSONLOption configures a JSONL sink.
type JSONLOption func(*JSONL)

// WithSync controls whether every Append is fsynced. Enabled by default.
// Disabled, records reach the disk on Flush and Close.
func WithSync(enabled bool) JSONLOption {
	return func(s *JSONL) {
		s.sync = enabled
	}
}

// WithTruncate discards the records already in the file when it is opened.
func WithTruncate(enabled bool) JSONLOption {
	return func(s *JSONL) {
		s.trunc = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) JSONLOption {
	return func(s *JSONL) {
		s.logger = logger
	}
}

// NewJSONL opens path for appending, creating it and its directory if needed.
// Existing records are kept unless WithTruncate is set.
func NewJSONL(path string, opts ...JSONLOption) (*JSONL, error) {
	s := &JSONL{
		path:   path,
		sync:   true,
		logger: slog.Default().With("component", "sink", "path", path),
	}
	for _, opt := range opts {
		opt(s)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, writeError(fmt.Errorf("failed to create output directory: %w", err))
		}
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if s.trunc {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, writeError(fmt.Errorf("failed to open output file: %w", err))
	}
	s.f = f
	s.w = bufio.NewWriter(f)
	return s, nil
}

// Path returns the output file path.
func (s *JSONL) Path() string {
	return s.path
}

// Written returns the number of records appended through this sink.
func (s *JSONL) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Append encodes entry outside the lock and writes the full line under it.
func (s *JSONL) Append(ctx context.Context, entry *core.Entry) error {
	if entry == nil {
		return writeError(ErrNilEntry)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return writeError(fmt.Errorf("failed to encode entry %s: %w", entry.URL, err))
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return writeError(ErrClosed)
	}
	if _, err := s.w.Write(line); err != nil {
		return writeError(err)
	}
	if s.sync {
		if err := s.flushLocked(true); err != nil {
			return writeError(err)
		}
	}
	s.written++
	return nil
}

func (s *JSONL) flushLocked(fsync bool) error {
	if err := s.w.Flush(); err != nil {
		return err
	}
	if fsync {
		return s.f.Sync()
	}
	return nil
}

// Flush writes buffered records and syncs the file.
func (s *JSONL) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return writeError(s.flushLocked(true))
}

// Close flushes and closes the file. Calling Close twice is a no-op.
func (s *JSONL) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	flushErr := s.flushLocked(true)
	closeErr := s.f.Close()
	s.logger.Debug("sink closed", "records", s.written)
	if flushErr != nil {
		return writeError(flushErr)
	}
	return writeError(closeErr)
}
