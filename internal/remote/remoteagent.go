package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/dusk-indust/convene/internal/agent"
)

// Compile-time interface check.
var _ agent.Agent = (*RemoteAgent)(nil)

// RemoteAgent adapts a remote endpoint to the agent interface so the
// coordinator schedules it like any local participant.
type RemoteAgent struct {
	name         string
	endpoint     string
	client       Client
	pollInterval time.Duration
}

// NewRemoteAgent wraps the agent served at endpoint. The name should
// match the card so insight attribution lines up across processes.
func NewRemoteAgent(name, endpoint string, c Client) *RemoteAgent {
	return &RemoteAgent{
		name:         name,
		endpoint:     endpoint,
		client:       c,
		pollInterval: 250 * time.Millisecond,
	}
}

// FromDiscovery builds a remote agent for every discovered endpoint.
func FromDiscovery(found []Discovery, c Client) []agent.Agent {
	agents := make([]agent.Agent, 0, len(found))
	for _, d := range found {
		agents = append(agents, NewRemoteAgent(d.Card.Name, d.Endpoint, c))
	}
	return agents
}

// Name returns the remote agent's display name.
func (r *RemoteAgent) Name() string { return r.name }

// Run submits a blocking analysis run and converts the terminal state
// into the local contract: completed yields insights, everything else an
// error. Servers that answer before the run is terminal get polled.
func (r *RemoteAgent) Run(ctx context.Context, ec agent.ExecutionContext) ([]agent.Insight, error) {
	run, err := r.client.StartRun(ctx, r.endpoint, RunRequest{
		Payload: ec.Payload,
		Prior:   ec.Prior,
		Block:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("remote agent %s: %w", r.name, err)
	}

	run, err = r.awaitTerminal(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("remote agent %s: %w", r.name, err)
	}

	switch run.State {
	case RunStateCompleted:
		return run.Insights, nil
	case RunStateCanceled:
		return nil, fmt.Errorf("remote agent %s: run %s canceled", r.name, run.ID)
	default:
		return nil, fmt.Errorf("remote agent %s: run %s failed: %s", r.name, run.ID, run.Error)
	}
}

// awaitTerminal polls until the run reaches a terminal state.
func (r *RemoteAgent) awaitTerminal(ctx context.Context, run *AnalysisRun) (*AnalysisRun, error) {
	if run.State.IsTerminal() {
		return run, nil
	}

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		next, err := r.client.PollRun(ctx, r.endpoint, PollRequest{ID: run.ID})
		if err != nil {
			return nil, err
		}
		if next.State.IsTerminal() {
			return next, nil
		}
	}
}
