// Package lineage archives collaboration runs as a graph: which agents
// participated in which runs, which insights they produced, and which
// insights were shared with whom. Unlike the live knowledge store, the
// lineage graph is append-only history meant to outlive the process.
package lineage

import (
	"fmt"
	"time"

	"github.com/dusk-indust/convene/internal/agent"
)

// RunNode is one archived collaboration run.
type RunNode struct {
	ID           string        `json:"id"`
	Strategy     string        `json:"strategy"`
	Success      bool          `json:"success"`
	QualityScore int           `json:"qualityScore"`
	Iterations   int           `json:"iterations"`
	StartedAt    time.Time     `json:"startedAt"`
	Elapsed      time.Duration `json:"elapsed"`
}

// AgentNode is a participant, keyed by its display name. One node per agent
// across all runs.
type AgentNode struct {
	Name string `json:"name"`
}

// InsightNode is one produced insight. Seq preserves the order insights were
// reported in within the run.
type InsightNode struct {
	ID       string         `json:"id"`
	RunID    string         `json:"runId"`
	Agent    string         `json:"agent"`
	Seq      int            `json:"seq"`
	Severity agent.Severity `json:"severity"`
	Title    string         `json:"title"`
	Category string         `json:"category,omitempty"`
}

// InsightID builds the deterministic node ID for the seq-th insight of a run.
func InsightID(runID string, seq int) string {
	return fmt.Sprintf("%s#%d", runID, seq)
}

// EdgeKind labels a lineage relationship.
type EdgeKind string

const (
	// EdgeParticipated connects an agent to a run it took part in.
	EdgeParticipated EdgeKind = "PARTICIPATED"
	// EdgeProduced connects an agent to an insight it reported.
	EdgeProduced EdgeKind = "PRODUCED"
	// EdgeSharedWith connects an insight to an agent it was shared with
	// through the knowledge store.
	EdgeSharedWith EdgeKind = "SHARED_WITH"
)

// Edge is a directed lineage relationship. The ID spaces are: agent name for
// Agent nodes, run ID for Run nodes, InsightID for Insight nodes.
type Edge struct {
	SourceID string   `json:"sourceId"`
	TargetID string   `json:"targetId"`
	Kind     EdgeKind `json:"kind"`
}

// Stats summarizes a lineage graph.
type Stats struct {
	RunCount     int `json:"runCount"`
	AgentCount   int `json:"agentCount"`
	InsightCount int `json:"insightCount"`
	EdgeCount    int `json:"edgeCount"`
}
