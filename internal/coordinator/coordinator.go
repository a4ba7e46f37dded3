// Package coordinator executes collaboration runs: a set of agents
// scheduled under a sequential, parallel, conditional, or iterative
// strategy, with insight propagation between agents, barrier
// synchronization, and aggregation of all results into a single scored
// report.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dusk-indust/convene/internal/agent"
	"github.com/dusk-indust/convene/internal/barrier"
	"github.com/dusk-indust/convene/internal/knowledge"
	"github.com/dusk-indust/convene/internal/policy"
)

// RunRecorder archives a finished run and the knowledge items shared
// during it. Recording is best-effort: Orchestrate logs a recorder
// failure and still returns the report.
type RunRecorder interface {
	RecordRun(ctx context.Context, rep *AggregatedReport, items []knowledge.Item) error
}

// Coordinator is the public entry point for collaboration runs. It owns
// the knowledge store and barrier registry shared across its runs, wires
// progress reporting into the executor, and stamps timing on the
// aggregated result.
//
// Construct one Coordinator per orchestration session. Reusing it across
// runs retains shared knowledge; a fresh one starts clean.
type Coordinator struct {
	maxConcurrent int
	pol           policy.Policy
	logger        *slog.Logger

	executor   Executor
	aggregator Aggregator
	recorder   RunRecorder
	knowledge  *knowledge.Store
	barriers   *barrier.Registry
	progress   *ProgressReporter
}

// Option configures a Coordinator during construction.
type Option func(*Coordinator)

// WithPolicy replaces the default scoring policy.
func WithPolicy(pol policy.Policy) Option {
	return func(c *Coordinator) { c.pol = pol }
}

// WithMaxConcurrent sets the parallel concurrency ceiling. Values below
// one keep DefaultMaxConcurrent.
func WithMaxConcurrent(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxConcurrent = n
		}
	}
}

// WithLogger sets the logger used by the coordinator and its executor.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithKnowledgeStore substitutes a caller-owned store, for retaining
// shared knowledge across coordinators.
func WithKnowledgeStore(st *knowledge.Store) Option {
	return func(c *Coordinator) {
		if st != nil {
			c.knowledge = st
		}
	}
}

// WithExecutor replaces the default StrategyExecutor.
func WithExecutor(ex Executor) Option {
	return func(c *Coordinator) { c.executor = ex }
}

// WithAggregator replaces the default InsightAggregator.
func WithAggregator(ag Aggregator) Option {
	return func(c *Coordinator) { c.aggregator = ag }
}

// WithRecorder archives every finished run through rec.
func WithRecorder(rec RunRecorder) Option {
	return func(c *Coordinator) { c.recorder = rec }
}

// NewCoordinator creates a Coordinator with a fresh knowledge store,
// barrier registry, and progress reporter, then applies opts.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		maxConcurrent: DefaultMaxConcurrent,
		pol:           policy.Default(),
		logger:        slog.Default(),
		knowledge:     knowledge.NewStore(),
		barriers:      barrier.NewRegistry(),
		progress:      NewProgressReporter(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.executor == nil {
		c.executor = NewStrategyExecutor(c.maxConcurrent, c.knowledge, c.progress.Emit, c.logger)
	}
	if c.aggregator == nil {
		c.aggregator = NewInsightAggregator(c.pol)
	}
	return c
}

// Orchestrate performs one collaboration run and returns its aggregated
// report. Individual agent failures are folded into the report; the
// returned error is non-nil only for invalid descriptors, barrier
// timeouts, and context cancellation.
func (c *Coordinator) Orchestrate(ctx context.Context, d Descriptor, ec agent.ExecutionContext) (*AggregatedReport, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	d.ensureRunID()

	start := time.Now()
	c.logger.Info("run started",
		"run", d.RunID, "strategy", d.Strategy, "participants", len(d.Participants))
	c.progress.Emit(ProgressEvent{RunID: d.RunID, Status: ProgressWorking})

	reports, err := c.executor.Execute(ctx, d, ec)
	if err != nil {
		c.progress.Emit(ProgressEvent{RunID: d.RunID, Status: ProgressFailed, Message: err.Error()})
		return nil, err
	}

	if d.Barrier != nil {
		for _, rep := range reports {
			c.barriers.Arrive(d.Barrier.ID, rep.Agent)
		}
		if err := c.barriers.Wait(ctx, *d.Barrier); err != nil {
			c.progress.Emit(ProgressEvent{RunID: d.RunID, Status: ProgressFailed, Message: err.Error()})
			return nil, fmt.Errorf("run %s: %w", d.RunID, err)
		}
	}

	agg := c.aggregator.Aggregate(d, reports)
	agg.StartedAt = start
	agg.Elapsed = time.Since(start)

	if c.recorder != nil {
		if err := c.recorder.RecordRun(ctx, agg, c.knowledge.All()); err != nil {
			c.logger.Warn("run not archived", "run", d.RunID, "error", err)
		}
	}

	c.progress.Emit(ProgressEvent{RunID: d.RunID, Status: ProgressComplete})
	c.logger.Info("run finished",
		"run", d.RunID, "success", agg.Success, "insights", len(agg.Insights),
		"score", agg.QualityScore, "elapsed", agg.Elapsed)
	return agg, nil
}

// Knowledge returns the store holding insights shared between agents.
func (c *Coordinator) Knowledge() *knowledge.Store {
	return c.knowledge
}

// Barriers returns the registry agents rendezvous through.
func (c *Coordinator) Barriers() *barrier.Registry {
	return c.barriers
}

// Progress returns a channel that emits progress events.
func (c *Coordinator) Progress() <-chan ProgressEvent {
	return c.progress.Subscribe()
}

// Close shuts down the progress reporter. Call it after the last
// Orchestrate, once no further events are wanted.
func (c *Coordinator) Close() {
	c.progress.Close()
}
