package remote

import (
	"context"
	"net/http"
)

// Handler processes incoming analysis requests for a served agent.
type Handler interface {
	// HandleStartRun submits a run. With req.Block set it returns only
	// once the run is terminal.
	HandleStartRun(ctx context.Context, req RunRequest) (*AnalysisRun, error)

	// HandlePollRun returns the current snapshot of a run.
	HandlePollRun(ctx context.Context, req PollRequest) (*AnalysisRun, error)

	// HandleListRuns returns runs matching the filter.
	HandleListRuns(ctx context.Context, req ListRunsRequest) (*ListRunsResponse, error)

	// HandleCancelRun cancels a non-terminal run.
	HandleCancelRun(ctx context.Context, req CancelRequest) (*AnalysisRun, error)

	// Subscribe returns a channel replaying a run's events from the
	// beginning; it closes once the run is terminal or ctx is cancelled.
	Subscribe(ctx context.Context, runID string) (<-chan StreamEvent, error)
}

// Server exposes one handler over HTTP: the agent card at the well-known
// URI and the analysis methods as JSON-RPC on the root path.
type Server struct {
	card    AgentCard
	handler Handler
	http    *http.Server
}

// NewServer creates a server for the given card and handler.
func NewServer(card AgentCard, handler Handler) *Server {
	return &Server{
		card:    card,
		handler: handler,
	}
}
