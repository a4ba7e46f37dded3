package remote

import (
	"fmt"
	"sync"

	"github.com/dusk-indust/convene/internal/agent"
)

// RunStore is a concurrency-safe in-memory store for server-side run
// tracking. Runs live in a map keyed by ID with a separate slice keeping
// insertion order for deterministic pagination.
type RunStore struct {
	mu       sync.RWMutex
	runs     map[string]*AnalysisRun
	orderIDs []string
}

// NewRunStore returns an initialized RunStore ready for use.
func NewRunStore() *RunStore {
	return &RunStore{
		runs:     make(map[string]*AnalysisRun),
		orderIDs: make([]string, 0),
	}
}

// Create stores a new run. It returns an error if a run with the same ID
// already exists.
func (s *RunStore) Create(run AnalysisRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run %q already exists", run.ID)
	}
	s.runs[run.ID] = &run
	s.orderIDs = append(s.orderIDs, run.ID)
	return nil
}

// Get returns a deep copy of the run with the given ID, or an error when
// unknown. The copy is safe to mutate without affecting the store.
func (s *RunStore) Get(id string) (*AnalysisRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %q not found", id)
	}
	return deepCopyRun(r), nil
}

// Update applies fn to the run identified by id under the write lock. The
// function receives the stored pointer, so mutations land in place.
func (s *RunStore) Update(id string, fn func(*AnalysisRun)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("run %q not found", id)
	}
	fn(r)
	return nil
}

// List returns runs matching the filter with pagination support.
//
// A non-empty State keeps only runs in that state. PageToken is the ID of
// the last run from the previous page; results resume after it in
// insertion order. PageSize <= 0 returns everything.
func (s *RunStore) List(filter ListRunsRequest) (*ListRunsResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	startIdx := 0
	if filter.PageToken != "" {
		found := false
		for i, id := range s.orderIDs {
			if id == filter.PageToken {
				startIdx = i + 1
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("invalid page token %q", filter.PageToken)
		}
	}

	var matched []AnalysisRun
	for i := startIdx; i < len(s.orderIDs); i++ {
		r := s.runs[s.orderIDs[i]]
		if !matchesFilter(r, filter) {
			continue
		}
		matched = append(matched, *deepCopyRun(r))
	}

	// Matches before the page start still count toward the total.
	totalBefore := 0
	for i := 0; i < startIdx; i++ {
		if matchesFilter(s.runs[s.orderIDs[i]], filter) {
			totalBefore++
		}
	}
	totalSize := totalBefore + len(matched)

	var nextPageToken string
	if filter.PageSize > 0 && len(matched) > filter.PageSize {
		nextPageToken = matched[filter.PageSize-1].ID
		matched = matched[:filter.PageSize]
	}

	if matched == nil {
		matched = []AnalysisRun{}
	}

	return &ListRunsResponse{
		Runs:          matched,
		TotalSize:     totalSize,
		NextPageToken: nextPageToken,
	}, nil
}

func matchesFilter(r *AnalysisRun, filter ListRunsRequest) bool {
	return filter.State == "" || string(r.State) == filter.State
}

// deepCopyRun returns an independent copy of src, including the insight
// slice and each insight's data map.
func deepCopyRun(src *AnalysisRun) *AnalysisRun {
	dst := *src
	if src.Insights != nil {
		dst.Insights = make([]agent.Insight, len(src.Insights))
		for i, in := range src.Insights {
			dst.Insights[i] = deepCopyInsight(in)
		}
	}
	return &dst
}

func deepCopyInsight(src agent.Insight) agent.Insight {
	dst := src
	if src.Data != nil {
		dst.Data = make(map[string]any, len(src.Data))
		for k, v := range src.Data {
			dst.Data[k] = v
		}
	}
	return dst
}
