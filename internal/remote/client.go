package remote

import "context"

// Client is the caller side of the remote analysis protocol.
type Client interface {
	// StartRun submits an analysis run to the agent at endpoint. With
	// req.Block set, the call returns once the run is terminal.
	StartRun(ctx context.Context, endpoint string, req RunRequest) (*AnalysisRun, error)

	// PollRun retrieves the current snapshot of a run.
	PollRun(ctx context.Context, endpoint string, req PollRequest) (*AnalysisRun, error)

	// ListRuns queries runs tracked by the endpoint.
	ListRuns(ctx context.Context, endpoint string, req ListRunsRequest) (*ListRunsResponse, error)

	// CancelRun cancels a non-terminal run.
	CancelRun(ctx context.Context, endpoint string, req CancelRequest) (*AnalysisRun, error)

	// StreamRun opens an SSE stream replaying the run's events from the
	// beginning. The channel closes when the run is terminal, the stream
	// ends, or ctx is cancelled.
	StreamRun(ctx context.Context, endpoint string, runID string) (<-chan StreamEvent, error)

	// Discover fetches the agent card from the well-known URI.
	Discover(ctx context.Context, baseURL string) (*AgentCard, error)
}
