package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/poiesic/curator/agent"
	"github.com/poiesic/curator/config"
	"github.com/poiesic/curator/core"
	"github.com/poiesic/curator/learning"
)

const (
	releaseTimeout = 10 * time.Second
	persistTimeout = 10 * time.Second
)

// Stop reasons recorded in RunStats.StopReason.
const (
	StopExhausted   = "exhausted"
	StopCanceled    = "canceled"
	StopMaxEntries  = "max_entries"
	StopMaxDuration = "max_duration"
	StopAborted     = "aborted"
)

// Run is the handle of a started run.
type Run struct {
	id       string
	cfg      *config.RunConfig
	deps     Deps
	agents   []*agent.Agent
	states   []*learning.State
	shared   *learning.Shared
	pool     *ants.Pool
	ctx      context.Context
	cancel   context.CancelFunc
	counters *counters
	report   ReportFunc
	now      func() time.Time
	started  time.Time
	logger   *slog.Logger

	mu        sync.Mutex
	summaries []core.AgentSummary
	reason    string
	fatal     error

	done  chan struct{}
	final core.RunStats
	err   error
}

// ID returns the run ID.
func (r *Run) ID() string {
	return r.id
}

// Done is closed once the run finished and its summary was persisted.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Cancel asks every agent to stop after its current fetch. Entries already
// admitted are still written. Cancel does not wait; use Wait.
func (r *Run) Cancel() {
	r.stop(StopCanceled)
}

// Wait blocks until the run finished and returns its final RunStats. The
// error is the escalated failure that aborted the run, if any. The stats
// reflect partial progress in every case.
func (r *Run) Wait() (core.RunStats, error) {
	<-r.done
	return r.final, r.err
}

// Stats returns a snapshot of the run counters. While the run is active the
// values are approximate; after Done they are the exact totals.
func (r *Run) Stats() core.RunStats {
	select {
	case <-r.done:
		return r.final
	default:
		return r.snapshot()
	}
}

// AgentStates returns the current state of every agent in spec order.
func (r *Run) AgentStates() []core.AgentState {
	out := make([]core.AgentState, len(r.agents))
	for i, a := range r.agents {
		out[i] = a.State()
	}
	return out
}

func (r *Run) stop(reason string) {
	r.mu.Lock()
	if r.reason == "" {
		r.reason = reason
	}
	r.mu.Unlock()
	r.cancel()
}

func (r *Run) abort(err error) {
	r.mu.Lock()
	if r.fatal == nil {
		r.fatal = err
		r.reason = StopAborted
		r.logger.Error("run aborted", "err", err)
	}
	r.mu.Unlock()
	r.cancel()
}

func (r *Run) fatalErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fatal
}

func (r *Run) snapshot() core.RunStats {
	c := r.counters
	return core.RunStats{
		RunID:            r.id,
		StartedAt:        r.started,
		EntriesCollected: c.entries.Load(),
		UniqueURLs:       c.urls.Load(),
		UniqueDomains:    int64(r.deps.Index.Domains()),
		SearchesIssued:   c.searches.Load(),
		Retries:          c.retries.Load(),
		FetchFailures:    c.fetchFailures.Load(),
		ExtractFailures:  c.extractFailures.Load(),
		Duplicates:       c.duplicates.Load(),
		BelowThreshold:   c.belowThreshold.Load(),
		AgentsExhausted:  c.exhausted.Load(),
		Elapsed:          r.now().Sub(r.started),
	}
}

func (r *Run) emitReport() {
	r.report(r.snapshot())
}

// execute runs the dispatcher and the auxiliary loops, then finalizes.
func (r *Run) execute() {
	defer close(r.done)

	agentsDone := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		defer close(agentsDone)
		return r.dispatch()
	})
	g.Go(func() error {
		r.reportLoop(agentsDone)
		return nil
	})
	g.Go(func() error {
		r.watchCeilings(agentsDone)
		return nil
	})
	if r.shared != nil {
		g.Go(func() error {
			r.mergeLoop(agentsDone)
			return nil
		})
	}
	r.err = g.Wait()

	if err := r.pool.ReleaseTimeout(releaseTimeout); err != nil {
		r.logger.Warn("worker pool did not drain", "err", err)
	}
	r.finish()
	r.cancel()
}

// dispatch submits agents in spec order. Submit blocks while every worker is
// busy, so at most MaxConcurrentAgents agents are active at a time.
func (r *Run) dispatch() error {
	var wg sync.WaitGroup
	for i, a := range r.agents {
		if r.ctx.Err() != nil {
			r.skip(i)
			continue
		}
		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					r.fail(i, fmt.Errorf("agent %s panicked: %v", a.Spec().ID, p))
				}
			}()
			summary, err := a.Run(r.ctx)
			r.record(i, summary)
			if err != nil {
				r.abort(err)
			}
		})
		if err != nil {
			wg.Done()
			r.skip(i)
			r.abort(fmt.Errorf("failed to schedule agent %s: %w", a.Spec().ID, err))
		}
	}
	wg.Wait()
	return r.fatalErr()
}

func (r *Run) record(i int, summary core.AgentSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries[i] = summary
}

// fail records an agent that died without returning a summary and aborts
// the run.
func (r *Run) fail(i int, err error) {
	spec := r.agents[i].Spec()
	r.record(i, core.AgentSummary{
		AgentID:        spec.ID,
		Specialization: spec.Specialization,
		FinalState:     core.AgentFailed,
	})
	r.abort(err)
}

// skip records an agent that never ran.
func (r *Run) skip(i int) {
	spec := r.agents[i].Spec()
	r.record(i, core.AgentSummary{
		AgentID:        spec.ID,
		Specialization: spec.Specialization,
		FinalState:     core.AgentStopped,
	})
}

func (r *Run) reportLoop(agentsDone <-chan struct{}) {
	ticker := time.NewTicker(r.cfg.ProgressReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-agentsDone:
			return
		case <-ticker.C:
			r.emitReport()
		}
	}
}

// watchCeilings checks the entry and wall-clock ceilings on a fixed interval.
// Entries emitted between two checks may overshoot MaxEntries.
func (r *Run) watchCeilings(agentsDone <-chan struct{}) {
	if r.cfg.MaxEntries <= 0 && r.cfg.MaxDuration <= 0 {
		return
	}
	ticker := time.NewTicker(r.cfg.CeilingCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-agentsDone:
			return
		case <-ticker.C:
			if limit := r.cfg.MaxEntries; limit > 0 && r.counters.entries.Load() >= limit {
				r.logger.Info("entry ceiling reached", "max_entries", limit)
				r.stop(StopMaxEntries)
				return
			}
			if limit := r.cfg.MaxDuration; limit > 0 && r.now().Sub(r.started) >= limit {
				r.logger.Info("duration ceiling reached", "max_duration", limit)
				r.stop(StopMaxDuration)
				return
			}
		}
	}
}

// mergeLoop folds every agent's learning into the shared state and installs
// the merged prior of the others on each agent.
func (r *Run) mergeLoop(agentsDone <-chan struct{}) {
	ticker := time.NewTicker(r.cfg.MergeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-agentsDone:
			return
		case <-ticker.C:
			r.shared.Sync(r.states...)
			r.logger.Debug("learning merged", "agents", len(r.states))
		}
	}
}

// finish flushes the sink, builds the final stats and persists them.
func (r *Run) finish() {
	if err := r.deps.Sink.Flush(); err != nil {
		var we *core.WriteError
		if !errors.As(err, &we) {
			err = &core.WriteError{Err: err}
		}
		r.abort(err)
		if r.err == nil {
			r.err = err
		}
	}

	stats := r.snapshot()
	r.mu.Lock()
	stats.Agents = append([]core.AgentSummary(nil), r.summaries...)
	reason := r.reason
	if r.fatal != nil {
		stats.Aborted = true
		stats.AbortReason = r.fatal.Error()
	}
	r.mu.Unlock()
	if reason == "" {
		reason = StopExhausted
		if r.ctx.Err() != nil {
			reason = StopCanceled
		}
	}
	stats.StopReason = reason

	r.persist(&stats)
	r.final = stats
	r.report(stats)

	r.logger.Info("run finished",
		"reason", reason,
		"entries", stats.EntriesCollected,
		"unique_domains", stats.UniqueDomains,
		"searches", stats.SearchesIssued,
		"retries", stats.Retries,
		"elapsed", stats.Elapsed.Round(time.Millisecond))
}

// persist stores learning snapshots and the run summary. Failures are logged;
// the entries themselves are already durable.
func (r *Run) persist(stats *core.RunStats) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), persistTimeout)
	defer cancel()

	if r.deps.Learning != nil {
		for _, st := range r.states {
			if err := r.deps.Learning.SaveSnapshot(ctx, st.Snapshot()); err != nil {
				r.logger.Warn("failed to save learning state", "agent", st.AgentID(), "err", err)
			}
		}
	}
	if r.deps.Runs != nil {
		if err := r.deps.Runs.SaveRun(ctx, stats); err != nil {
			r.logger.Warn("failed to save run summary", "err", err)
		}
	}
}
