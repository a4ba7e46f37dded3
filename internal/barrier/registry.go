// Package barrier provides named rendezvous points for collaboration runs.
// Agents signal arrival; waiters block until every required agent has
// arrived or a timeout elapses. The registry is deliberately decoupled from
// the strategy executor: no strategy invokes it implicitly.
package barrier

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// SyncBarrier describes one rendezvous point: which agents must arrive at
// the identified barrier, and how long a waiter is willing to block.
type SyncBarrier struct {
	ID       string        `json:"id"`
	Required []string      `json:"required"`
	Timeout  time.Duration `json:"timeout"`
}

// TimeoutError is returned by Wait when the timeout elapses before every
// required agent has arrived. Missing lists the absent agents, sorted.
type TimeoutError struct {
	Barrier string
	Timeout time.Duration
	Missing []string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("barrier %q: timed out after %s; missing agents: %s",
		e.Barrier, e.Timeout, strings.Join(e.Missing, ", "))
}

// Registry tracks arrivals per barrier identifier. Arrivals are recorded
// forever (until Clear), so a satisfied barrier releases every later waiter
// immediately: release is monotonic.
type Registry struct {
	mu      sync.Mutex
	arrived map[string]map[string]bool
	changed map[string]chan struct{}
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		arrived: make(map[string]map[string]bool),
		changed: make(map[string]chan struct{}),
	}
}

// Arrive records that agentID has reached barrierID and wakes any waiters.
// Arriving twice with the same agentID has no additional effect.
func (r *Registry) Arrive(barrierID, agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.arrived[barrierID]
	if set == nil {
		set = make(map[string]bool)
		r.arrived[barrierID] = set
	}
	if set[agentID] {
		return
	}
	set[agentID] = true

	// Broadcast by closing the current notification channel and installing
	// a fresh one for the next arrival.
	if ch, ok := r.changed[barrierID]; ok {
		close(ch)
	}
	r.changed[barrierID] = make(chan struct{})
}

// Arrived returns the sorted agent identifiers recorded at barrierID.
func (r *Registry) Arrived(barrierID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.arrived[barrierID]))
	for id := range r.arrived[barrierID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Wait blocks until every agent in b.Required has arrived at b.ID, the
// barrier timeout elapses, or ctx is cancelled. On timeout it returns a
// *TimeoutError naming the missing agents; on cancellation it returns the
// context's error. Multiple goroutines may wait on the same barrier and all
// release together once it is satisfied.
func (r *Registry) Wait(ctx context.Context, b SyncBarrier) error {
	deadline := time.Now().Add(b.Timeout)
	timer := time.NewTimer(b.Timeout)
	defer timer.Stop()

	for {
		missing, ch := r.missing(b)
		if len(missing) == 0 {
			return nil
		}
		if b.Timeout <= 0 || !time.Now().Before(deadline) {
			return &TimeoutError{Barrier: b.ID, Timeout: b.Timeout, Missing: missing}
		}

		select {
		case <-ch:
			// An arrival happened; re-check the required set.
		case <-timer.C:
			missing, _ = r.missing(b)
			if len(missing) == 0 {
				return nil
			}
			return &TimeoutError{Barrier: b.ID, Timeout: b.Timeout, Missing: missing}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// missing returns the sorted required agents not yet arrived at b.ID and
// the notification channel to block on for the next arrival.
func (r *Registry) missing(b SyncBarrier) ([]string, chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.arrived[b.ID]
	var missing []string
	for _, id := range b.Required {
		if !set[id] {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)

	ch, ok := r.changed[b.ID]
	if !ok {
		ch = make(chan struct{})
		r.changed[b.ID] = ch
	}
	return missing, ch
}

// Clear forgets all arrivals, releasing no one: waiters keep blocking until
// their agents re-arrive or their timeout fires. Used between independent
// runs when barrier identifiers are reused.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.arrived = make(map[string]map[string]bool)
}
