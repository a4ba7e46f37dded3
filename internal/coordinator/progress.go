package coordinator

import "fmt"

// ProgressStatus is the state of an agent or run reported by a
// ProgressEvent.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressFailed   ProgressStatus = "failed"
)

// ProgressEvent is emitted to the user while a run executes. Events with
// an empty Agent describe the run or, when Iteration is set, one
// iteration of it.
type ProgressEvent struct {
	RunID     string
	Agent     string
	Iteration int // 1-based under the iterative strategy, zero otherwise
	Status    ProgressStatus
	Message   string
}

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, 64),
	}
}

// Emit sends a progress event in a non-blocking fashion.
// If the channel is full, the event is silently dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	select {
	case pr.ch <- event:
	default:
		// Drop the event if the channel is full.
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	subject := event.Agent
	if subject == "" {
		subject = "run"
	}
	if event.Iteration > 0 {
		subject = fmt.Sprintf("%s (iteration %d)", subject, event.Iteration)
	}
	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("  ○ %s (pending)", subject)
	case ProgressWorking:
		return fmt.Sprintf("  ● %s...", subject)
	case ProgressComplete:
		return fmt.Sprintf("  ✓ %s complete", subject)
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", subject, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", subject)
	}
}
