package coordinator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/convene/internal/agent"
)

// runParallel dispatches every participant concurrently against the same
// immutable context, bounded by the executor's concurrency ceiling. Each
// report lands at its participant's slice index, so result ordering
// always matches Descriptor.Participants regardless of completion order.
// A failing agent never cancels its siblings.
func (e *StrategyExecutor) runParallel(ctx context.Context, d Descriptor, ec agent.ExecutionContext) ([]AgentReport, error) {
	snap := e.snapshotKnowledge(&d)
	reports := make([]AgentReport, len(d.Participants))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrent)

	for i, a := range d.Participants {
		e.emit(ProgressEvent{RunID: d.RunID, Agent: a.Name(), Status: ProgressPending})

		g.Go(func() error {
			reports[i] = e.invoke(gctx, &d, a, ec.WithPrior(snap[a.Name()]), 0)
			return nil // failures become failed reports, never group errors
		})
	}

	// No goroutine returns an error, so Wait only synchronizes.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}
