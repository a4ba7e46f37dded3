// Package remote lets agents participate in collaboration runs from
// another process. A Server exposes one local agent over JSON-RPC 2.0
// with SSE streaming; RemoteAgent wraps an endpoint behind the agent
// interface so the coordinator schedules it like any local participant.
package remote

import (
	"time"

	"github.com/dusk-indust/convene/internal/agent"
)

// RunState is the lifecycle state of a remote analysis run.
type RunState string

const (
	RunStateUnspecified RunState = ""
	RunStateSubmitted   RunState = "submitted"
	RunStateWorking     RunState = "working"
	RunStateCompleted   RunState = "completed"
	RunStateFailed      RunState = "failed"
	RunStateCanceled    RunState = "canceled"
)

// IsTerminal reports whether the state is final.
func (s RunState) IsTerminal() bool {
	switch s {
	case RunStateCompleted, RunStateFailed, RunStateCanceled:
		return true
	}
	return false
}

// AnalysisRun is one agent invocation tracked on the serving side. The
// server assigns the ID and hands it back as the ticket for polling,
// streaming, and cancellation.
type AnalysisRun struct {
	ID          string          `json:"id"`
	Agent       string          `json:"agent"`
	State       RunState        `json:"state"`
	Error       string          `json:"error,omitempty"`
	Insights    []agent.Insight `json:"insights,omitempty"`
	SubmittedAt time.Time       `json:"submittedAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// --- Agent Card Types ---

// AgentCard is the self-describing manifest served at the well-known URI.
type AgentCard struct {
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	Version      string            `json:"version"`
	Capabilities AgentCapabilities `json:"capabilities"`
	Skills       []AgentSkill      `json:"skills,omitempty"`
}

// AgentCapabilities declares which optional features the endpoint supports.
type AgentCapabilities struct {
	Streaming bool `json:"streaming"`
}

// AgentSkill declares a distinct capability of the served agent.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// --- Request / Response Types ---

// RunRequest starts an analysis run. Payload and Prior become the
// execution context the served agent receives. With Block set the server
// answers only once the run is terminal; otherwise the submitted snapshot
// comes back immediately and the caller polls or streams.
type RunRequest struct {
	Payload map[string]any  `json:"payload,omitempty"`
	Prior   []agent.Insight `json:"prior,omitempty"`
	Block   bool            `json:"block,omitempty"`
}

// PollRequest retrieves a run snapshot by ID.
type PollRequest struct {
	ID string `json:"id"`
}

// ListRunsRequest queries runs with filtering and pagination.
type ListRunsRequest struct {
	State     string `json:"state,omitempty"`
	PageSize  int    `json:"pageSize,omitempty"`
	PageToken string `json:"pageToken,omitempty"`
}

// ListRunsResponse is the paginated response for run listing.
type ListRunsResponse struct {
	Runs          []AnalysisRun `json:"runs"`
	TotalSize     int           `json:"totalSize"`
	NextPageToken string        `json:"nextPageToken,omitempty"`
}

// CancelRequest cancels a running analysis.
type CancelRequest struct {
	ID string `json:"id"`
}

// StreamRequest subscribes to a run's event stream.
type StreamRequest struct {
	ID string `json:"id"`
}

// StreamEvent is one event on a run's SSE stream. Exactly one of Run and
// Insight is set: Run carries state transitions, Insight one produced
// finding. Err is local to the reader and never crosses the wire.
type StreamEvent struct {
	Run     *AnalysisRun   `json:"run,omitempty"`
	Insight *agent.Insight `json:"insight,omitempty"`

	Err error `json:"-"`
}
