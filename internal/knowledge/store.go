// Package knowledge implements the shared-insight store that lets one agent
// hand findings to specific other agents outside the normal report flow.
package knowledge

import (
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/dusk-indust/convene/internal/agent"
)

// Item is one unit of shared insight: who shared it, who it was shared with,
// and the insight itself. Items are never mutated after creation.
type Item struct {
	Source   string        `json:"source"`
	Target   string        `json:"target"`
	Insight  agent.Insight `json:"insight"`
	SharedAt time.Time     `json:"sharedAt"`
}

// Store holds, per target agent, the ordered list of items shared with it.
// Entries are append-only for the lifetime of the store; Clear is the only
// way to drop them, and the coordinator never calls it on its own.
// Safe for concurrent use from parallel strategy branches.
type Store struct {
	mu    sync.RWMutex
	items map[string][]Item
}

// NewStore returns an empty Store ready for use.
func NewStore() *Store {
	return &Store{items: make(map[string][]Item)}
}

// Share appends one Item per (target, insight) pair, preserving insight
// order, timestamped at call time. A call with no insights is a no-op.
func (s *Store) Share(source string, targets []string, insights []agent.Insight) {
	if len(insights) == 0 || len(targets) == 0 {
		return
	}

	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, target := range targets {
		for _, in := range insights {
			s.items[target] = append(s.items[target], Item{
				Source:   source,
				Target:   target,
				Insight:  cloneInsight(in),
				SharedAt: now,
			})
		}
	}
}

// GetFor returns the items shared with target, in insertion order. The
// returned slice is a copy; callers may retain it without holding up
// concurrent shares. Returns an empty slice when nothing was shared.
func (s *Store) GetFor(target string) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.items[target]
	out := make([]Item, len(stored))
	copy(out, stored)
	return out
}

// Targets returns the sorted list of agent identifiers that have received
// at least one item.
func (s *Store) Targets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.items))
	for target := range s.items {
		out = append(out, target)
	}
	sort.Strings(out)
	return out
}

// All returns every stored item, grouped by target in Targets order and in
// insertion order within each target. Each item appears exactly once since
// Share files an item under a single target.
func (s *Store) All() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	targets := make([]string, 0, len(s.items))
	for target := range s.items {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	var out []Item
	for _, target := range targets {
		out = append(out, s.items[target]...)
	}
	return out
}

// Clear removes all stored items. Used between independent runs when the
// caller wants isolation.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string][]Item)
}

// cloneInsight copies the insight's data map so a producer mutating its own
// map after sharing cannot tear a stored item.
func cloneInsight(in agent.Insight) agent.Insight {
	if in.Data != nil {
		in.Data = maps.Clone(in.Data)
	}
	return in
}
