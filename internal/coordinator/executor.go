package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dusk-indust/convene/internal/agent"
	"github.com/dusk-indust/convene/internal/knowledge"
)

// Executor runs a descriptor's participants under its strategy and
// returns one report per invocation, in execution order.
type Executor interface {
	Execute(ctx context.Context, d Descriptor, ec agent.ExecutionContext) ([]AgentReport, error)
}

// Compile-time interface check.
var _ Executor = (*StrategyExecutor)(nil)

// StrategyExecutor implements all four scheduling strategies. An agent
// failure never aborts the run: it is captured as a failed report with
// zero insights, and execution moves on. The only errors Execute returns
// are configuration problems and context cancellation.
//
// When constructed with a knowledge store, the executor injects each
// participant's targeted items into its context before invoking it and
// shares produced insights with the other participants afterwards. The
// injection reads a snapshot taken at run start, so within-run visibility
// is governed solely by each strategy's context-merge rule.
type StrategyExecutor struct {
	maxConcurrent int
	know          *knowledge.Store
	onProgress    func(ProgressEvent)
	logger        *slog.Logger
}

// NewStrategyExecutor creates an executor. maxConcurrent values below one
// fall back to DefaultMaxConcurrent; know, onProgress, and logger may be
// nil.
func NewStrategyExecutor(maxConcurrent int, know *knowledge.Store, onProgress func(ProgressEvent), logger *slog.Logger) *StrategyExecutor {
	if maxConcurrent < 1 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StrategyExecutor{
		maxConcurrent: maxConcurrent,
		know:          know,
		onProgress:    onProgress,
		logger:        logger,
	}
}

// Execute validates d and dispatches to the strategy implementation.
func (e *StrategyExecutor) Execute(ctx context.Context, d Descriptor, ec agent.ExecutionContext) ([]AgentReport, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	switch d.Strategy {
	case StrategySequential:
		return e.runSequential(ctx, d, ec)
	case StrategyParallel:
		return e.runParallel(ctx, d, ec)
	case StrategyConditional:
		return e.runConditional(ctx, d, ec)
	case StrategyIterative:
		return e.runIterative(ctx, d, ec)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, d.Strategy)
	}
}

// runSequential invokes participants one at a time. Each agent's insights
// are merged into the context seen by the agents after it; failed agents
// contribute nothing to that chain.
func (e *StrategyExecutor) runSequential(ctx context.Context, d Descriptor, ec agent.ExecutionContext) ([]AgentReport, error) {
	snap := e.snapshotKnowledge(&d)
	reports := make([]AgentReport, 0, len(d.Participants))
	current := ec
	for _, a := range d.Participants {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rep := e.invoke(ctx, &d, a, current.WithPrior(snap[a.Name()]), 0)
		reports = append(reports, rep)
		current = current.WithPrior(rep.Insights)
	}
	return reports, nil
}

// runConditional is sequential execution with an early exit: after every
// invocation the stop predicate sees all reports accumulated so far, and
// a true result ends the run without touching the remaining participants.
func (e *StrategyExecutor) runConditional(ctx context.Context, d Descriptor, ec agent.ExecutionContext) ([]AgentReport, error) {
	snap := e.snapshotKnowledge(&d)
	reports := make([]AgentReport, 0, len(d.Participants))
	current := ec
	for _, a := range d.Participants {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rep := e.invoke(ctx, &d, a, current.WithPrior(snap[a.Name()]), 0)
		reports = append(reports, rep)
		current = current.WithPrior(rep.Insights)
		if d.StopWhen(reports) {
			break
		}
	}
	return reports, nil
}

// runIterative repeats the full participant sequence until the stop
// predicate accepts an iteration or the iteration cap is reached. The
// predicate sees only the iteration that just finished; the merged
// context carries across iterations so later rounds observe earlier
// findings.
func (e *StrategyExecutor) runIterative(ctx context.Context, d Descriptor, ec agent.ExecutionContext) ([]AgentReport, error) {
	snap := e.snapshotKnowledge(&d)
	limit := d.maxIterations()
	all := make([]AgentReport, 0, limit*len(d.Participants))
	current := ec
	for iter := 1; iter <= limit; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.emit(ProgressEvent{RunID: d.RunID, Iteration: iter, Status: ProgressWorking})

		round := make([]AgentReport, 0, len(d.Participants))
		for _, a := range d.Participants {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rep := e.invoke(ctx, &d, a, current.WithPrior(snap[a.Name()]), iter)
			round = append(round, rep)
			current = current.WithPrior(rep.Insights)
		}
		all = append(all, round...)

		e.emit(ProgressEvent{RunID: d.RunID, Iteration: iter, Status: ProgressComplete})
		if d.StopWhen(round) {
			break
		}
	}
	return all, nil
}

// invoke runs a single agent, converting errors and panics into a failed
// report, and shares successful insights with the other participants.
func (e *StrategyExecutor) invoke(ctx context.Context, d *Descriptor, a agent.Agent, ec agent.ExecutionContext, iteration int) AgentReport {
	e.emit(ProgressEvent{RunID: d.RunID, Agent: a.Name(), Iteration: iteration, Status: ProgressWorking})

	start := time.Now()
	insights, err := runAgent(ctx, a, ec)
	rep := AgentReport{
		Agent:     a.Name(),
		Iteration: iteration,
		Elapsed:   time.Since(start),
	}
	if err != nil {
		rep.Err = err.Error()
		e.logger.Warn("agent failed", "run", d.RunID, "agent", rep.Agent, "error", err)
		e.emit(ProgressEvent{RunID: d.RunID, Agent: rep.Agent, Iteration: iteration, Status: ProgressFailed, Message: rep.Err})
		return rep
	}

	rep.Succeeded = true
	rep.Insights = insights
	e.shareInsights(d, rep)
	e.emit(ProgressEvent{RunID: d.RunID, Agent: rep.Agent, Iteration: iteration, Status: ProgressComplete})
	return rep
}

// runAgent calls a.Run with panic recovery so a misbehaving agent is
// reported like any other failure.
func runAgent(ctx context.Context, a agent.Agent, ec agent.ExecutionContext) (insights []agent.Insight, err error) {
	defer func() {
		if r := recover(); r != nil {
			insights = nil
			err = fmt.Errorf("agent %s panicked: %v", a.Name(), r)
		}
	}()
	return a.Run(ctx, ec)
}

// snapshotKnowledge captures, per participant, the insights already
// shared with it before the run started.
func (e *StrategyExecutor) snapshotKnowledge(d *Descriptor) map[string][]agent.Insight {
	if e.know == nil {
		return nil
	}
	snap := make(map[string][]agent.Insight)
	for _, name := range d.participantNames() {
		items := e.know.GetFor(name)
		if len(items) == 0 {
			continue
		}
		insights := make([]agent.Insight, 0, len(items))
		for _, it := range items {
			insights = append(insights, it.Insight)
		}
		snap[name] = insights
	}
	return snap
}

// shareInsights records a successful report's insights for every other
// participant in the run.
func (e *StrategyExecutor) shareInsights(d *Descriptor, rep AgentReport) {
	if e.know == nil || len(rep.Insights) == 0 {
		return
	}
	var targets []string
	for _, name := range d.participantNames() {
		if name != rep.Agent {
			targets = append(targets, name)
		}
	}
	if len(targets) > 0 {
		e.know.Share(rep.Agent, targets, rep.Insights)
	}
}

// emit sends a progress event if a callback is registered.
func (e *StrategyExecutor) emit(ev ProgressEvent) {
	if e.onProgress != nil {
		e.onProgress(ev)
	}
}
