package lineage

import (
	"context"
	"io"
)

// Store is the interface for the lineage graph backend.
// Implementations: KuzuStore (persistent, cgo), MemStore (default, testing).
type Store interface {
	io.Closer

	// Schema setup, called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Write operations. AddAgent is an upsert; the other adds expect unique
	// IDs.
	AddRun(ctx context.Context, node RunNode) error
	AddAgent(ctx context.Context, node AgentNode) error
	AddInsight(ctx context.Context, node InsightNode) error
	AddEdge(ctx context.Context, edge Edge) error

	// Read operations. GetRun returns nil when the run is unknown.
	GetRun(ctx context.Context, id string) (*RunNode, error)
	ListRuns(ctx context.Context, limit int) ([]RunNode, error)
	RunInsights(ctx context.Context, runID string) ([]InsightNode, error)
	SharedWith(ctx context.Context, agentName string) ([]InsightNode, error)

	// AllEdges returns every relationship in the graph, for renderers that
	// need the full topology.
	AllEdges(ctx context.Context) ([]Edge, error)

	Stats(ctx context.Context) (*Stats, error)
}
