package lineage

import (
	"context"
	"sort"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu       sync.RWMutex
	runs     map[string]RunNode
	agents   map[string]AgentNode
	insights map[string]InsightNode
	edges    []Edge
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		runs:     make(map[string]RunNode),
		agents:   make(map[string]AgentNode),
		insights: make(map[string]InsightNode),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// AddRun stores a run node keyed by its ID.
func (m *MemStore) AddRun(_ context.Context, node RunNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[node.ID] = node
	return nil
}

// AddAgent upserts an agent node keyed by name.
func (m *MemStore) AddAgent(_ context.Context, node AgentNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[node.Name] = node
	return nil
}

// AddInsight stores an insight node keyed by its ID.
func (m *MemStore) AddInsight(_ context.Context, node InsightNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insights[node.ID] = node
	return nil
}

// AddEdge appends an edge to the internal slice.
func (m *MemStore) AddEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = append(m.edges, edge)
	return nil
}

// GetRun returns the run node for the given ID, or nil if not found.
func (m *MemStore) GetRun(_ context.Context, id string) (*RunNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// ListRuns returns runs newest first, up to limit. A limit <= 0 returns all.
func (m *MemStore) ListRuns(_ context.Context, limit int) ([]RunNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]RunNode, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.After(runs[j].StartedAt)
		}
		return runs[i].ID < runs[j].ID
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// RunInsights returns a run's insights in production order.
func (m *MemStore) RunInsights(_ context.Context, runID string) ([]InsightNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []InsightNode
	for _, in := range m.insights {
		if in.RunID == runID {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// SharedWith returns the insights shared with an agent, in production order.
func (m *MemStore) SharedWith(_ context.Context, agentName string) ([]InsightNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []InsightNode
	for _, e := range m.edges {
		if e.Kind != EdgeSharedWith || e.TargetID != agentName {
			continue
		}
		if in, ok := m.insights[e.SourceID]; ok {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RunID != out[j].RunID {
			return out[i].RunID < out[j].RunID
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

// AllEdges returns a copy of every edge in insertion order.
func (m *MemStore) AllEdges(_ context.Context) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Edge, len(m.edges))
	copy(out, m.edges)
	return out, nil
}

// Stats reports node and edge counts.
func (m *MemStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &Stats{
		RunCount:     len(m.runs),
		AgentCount:   len(m.agents),
		InsightCount: len(m.insights),
		EdgeCount:    len(m.edges),
	}, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
