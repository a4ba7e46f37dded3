package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dusk-indust/convene/internal/agent"
)

// Sentinel errors the dispatcher maps onto protocol error codes.
var (
	ErrRunNotFound      = errors.New("run not found")
	ErrRunNotCancelable = errors.New("run already terminal")
)

// Compile-time interface check.
var _ Handler = (*AgentHandler)(nil)

// AgentHandler serves one local agent. StartRun launches the agent in a
// goroutine scoped to the handler's base context, so runs survive the
// submitting HTTP request and non-blocking callers can poll or stream.
type AgentHandler struct {
	agent   agent.Agent
	runs    *RunStore
	baseCtx context.Context

	mu   sync.Mutex
	live map[string]*liveRun
}

// liveRun tracks cancellation and completion of an in-flight run.
type liveRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAgentHandler creates a handler serving a. Runs are bounded by
// baseCtx, not by the request context that submitted them.
func NewAgentHandler(baseCtx context.Context, a agent.Agent) *AgentHandler {
	return &AgentHandler{
		agent:   a,
		runs:    NewRunStore(),
		baseCtx: baseCtx,
		live:    make(map[string]*liveRun),
	}
}

// Card builds the agent card describing the served agent.
func (h *AgentHandler) Card(version string) AgentCard {
	name := h.agent.Name()
	return AgentCard{
		Name:         name,
		Description:  fmt.Sprintf("%s serving analysis runs", name),
		Version:      version,
		Capabilities: AgentCapabilities{Streaming: true},
		Skills: []AgentSkill{{
			ID:          "analysis",
			Name:        "analysis",
			Description: fmt.Sprintf("Run %s against a payload and collect its insights", name),
			Tags:        []string{"analysis"},
		}},
	}
}

// HandleStartRun registers a run and starts executing it. With req.Block
// set it waits for the terminal state; otherwise the submitted snapshot
// comes back immediately.
func (h *AgentHandler) HandleStartRun(ctx context.Context, req RunRequest) (*AnalysisRun, error) {
	now := time.Now()
	run := AnalysisRun{
		ID:          uuid.NewString(),
		Agent:       h.agent.Name(),
		State:       RunStateSubmitted,
		SubmittedAt: now,
		UpdatedAt:   now,
	}

	runCtx, cancel := context.WithCancel(h.baseCtx)
	lr := &liveRun{cancel: cancel, done: make(chan struct{})}

	h.mu.Lock()
	h.live[run.ID] = lr
	h.mu.Unlock()

	if err := h.runs.Create(run); err != nil {
		h.mu.Lock()
		delete(h.live, run.ID)
		h.mu.Unlock()
		cancel()
		return nil, err
	}

	go h.execute(runCtx, run.ID, req, lr)

	if req.Block {
		select {
		case <-lr.done:
		case <-ctx.Done():
			// The run keeps going; the caller can poll for it later.
			return nil, ctx.Err()
		}
	}
	return h.runs.Get(run.ID)
}

// execute drives one run to a terminal state.
func (h *AgentHandler) execute(ctx context.Context, runID string, req RunRequest, lr *liveRun) {
	defer close(lr.done)
	defer lr.cancel()

	h.transition(runID, func(r *AnalysisRun) { r.State = RunStateWorking })

	ec := agent.NewExecutionContext(runID, req.Payload).WithPrior(req.Prior)
	insights, err := h.invoke(ctx, ec)

	h.transition(runID, func(r *AnalysisRun) {
		if r.State.IsTerminal() {
			return // a cancel won the race
		}
		if err != nil {
			r.State = RunStateFailed
			r.Error = err.Error()
			return
		}
		r.State = RunStateCompleted
		r.Insights = insights
	})
}

// invoke calls the agent, converting a panic into an error so one broken
// agent cannot take the server down.
func (h *AgentHandler) invoke(ctx context.Context, ec agent.ExecutionContext) (insights []agent.Insight, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent panicked: %v", r)
		}
	}()
	return h.agent.Run(ctx, ec)
}

// transition applies fn to the run and stamps UpdatedAt.
func (h *AgentHandler) transition(runID string, fn func(*AnalysisRun)) {
	_ = h.runs.Update(runID, func(r *AnalysisRun) {
		fn(r)
		r.UpdatedAt = time.Now()
	})
}

// HandlePollRun returns the current snapshot of a run.
func (h *AgentHandler) HandlePollRun(ctx context.Context, req PollRequest) (*AnalysisRun, error) {
	run, err := h.runs.Get(req.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, req.ID)
	}
	return run, nil
}

// HandleListRuns returns runs matching the filter.
func (h *AgentHandler) HandleListRuns(ctx context.Context, req ListRunsRequest) (*ListRunsResponse, error) {
	return h.runs.List(req)
}

// HandleCancelRun marks a non-terminal run canceled and cancels its
// context. The executing goroutine may still be unwinding when this
// returns; the canceled state already sticks.
func (h *AgentHandler) HandleCancelRun(ctx context.Context, req CancelRequest) (*AnalysisRun, error) {
	run, err := h.runs.Get(req.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, req.ID)
	}
	if run.State.IsTerminal() {
		return nil, fmt.Errorf("%w: run %s is %s", ErrRunNotCancelable, req.ID, run.State)
	}

	h.transition(req.ID, func(r *AnalysisRun) {
		if !r.State.IsTerminal() {
			r.State = RunStateCanceled
		}
	})

	h.mu.Lock()
	lr := h.live[req.ID]
	h.mu.Unlock()
	if lr != nil {
		lr.cancel()
	}

	return h.runs.Get(req.ID)
}

// Subscribe replays a run's events: a working snapshot while in flight,
// then each insight, then the terminal snapshot. The channel closes when
// the replay is complete or ctx is cancelled.
func (h *AgentHandler) Subscribe(ctx context.Context, runID string) (<-chan StreamEvent, error) {
	if _, err := h.runs.Get(runID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	h.mu.Lock()
	lr := h.live[runID]
	h.mu.Unlock()

	ch := make(chan StreamEvent)
	go func() {
		defer close(ch)

		run, err := h.runs.Get(runID)
		if err != nil {
			return
		}

		if !run.State.IsTerminal() {
			if !sendEvent(ctx, ch, StreamEvent{Run: run}) {
				return
			}
			if lr == nil {
				return
			}
			select {
			case <-lr.done:
			case <-ctx.Done():
				return
			}
			if run, err = h.runs.Get(runID); err != nil {
				return
			}
		}

		for i := range run.Insights {
			in := run.Insights[i]
			if !sendEvent(ctx, ch, StreamEvent{Insight: &in}) {
				return
			}
		}
		sendEvent(ctx, ch, StreamEvent{Run: run})
	}()
	return ch, nil
}

func sendEvent(ctx context.Context, ch chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
