package coordinator

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/curator/core"
)

// ReportFunc receives RunStats snapshots. It is called from the reporter
// loop and from agent goroutines, so it must be safe for concurrent use.
type ReportFunc func(stats core.RunStats)

// LogReport returns a ReportFunc that logs each snapshot at Info level.
func LogReport(logger *slog.Logger) ReportFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(s core.RunStats) {
		logger.Info("progress",
			"run", s.RunID,
			"entries", s.EntriesCollected,
			"unique_urls", s.UniqueURLs,
			"unique_domains", s.UniqueDomains,
			"searches", s.SearchesIssued,
			"retries", s.Retries,
			"fetch_failures", s.FetchFailures,
			"elapsed", s.Elapsed.Round(time.Second))
	}
}

// ProgressTracker renders snapshots as a single updating line against the
// total search budget of a run.
type ProgressTracker struct {
	writer   io.Writer
	total    int64
	finished bool
	mu       sync.Mutex
}

// NewProgressTracker creates a new progress tracker.
// writer: where to write progress output (typically os.Stderr)
// total: total search budget of the run
func NewProgressTracker(writer io.Writer, total int64) *ProgressTracker {
	return &ProgressTracker{
		writer: writer,
		total:  total,
	}
}

// Report prints the snapshot. It is a ReportFunc.
func (p *ProgressTracker) Report(s core.RunStats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.report(s)
}

// Finish prints the final snapshot followed by a newline. Later reports are ignored.
func (p *ProgressTracker) Finish(s core.RunStats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.finished = true
	p.report(s)
	fmt.Fprintln(p.writer)
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressTracker) report(s core.RunStats) {
	current := s.SearchesIssued
	if p.total > 0 && current > p.total {
		current = p.total
	}

	rate := 0.0
	if secs := s.Elapsed.Seconds(); secs > 0 {
		rate = float64(current) / secs
	}

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rProgress: %d/%d searches (%.1f%%) - %d entries - %.1f searches/s",
		current, p.total, percentage, s.EntriesCollected, rate)
}
