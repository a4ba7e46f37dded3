package coordinator

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dusk-indust/convene/internal/agent"
	"github.com/dusk-indust/convene/internal/barrier"
)

// Strategy selects how a run's participants are scheduled.
type Strategy string

const (
	// StrategySequential runs participants one after another, feeding each
	// agent's insights into the context seen by the next.
	StrategySequential Strategy = "sequential"

	// StrategyParallel runs all participants concurrently against the same
	// immutable context, bounded by the executor's concurrency ceiling.
	StrategyParallel Strategy = "parallel"

	// StrategyConditional runs participants in order like sequential but
	// stops early once the descriptor's stop predicate is satisfied.
	StrategyConditional Strategy = "conditional"

	// StrategyIterative repeats the full participant sequence until the
	// stop predicate passes or MaxIterations is reached.
	StrategyIterative Strategy = "iterative"
)

// Valid reports whether s is one of the defined strategies.
func (s Strategy) Valid() bool {
	switch s {
	case StrategySequential, StrategyParallel, StrategyConditional, StrategyIterative:
		return true
	}
	return false
}

// ParseStrategy converts a user-supplied string into a Strategy.
func ParseStrategy(raw string) (Strategy, error) {
	s := Strategy(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, raw)
	}
	return s, nil
}

// DefaultMaxIterations bounds iterative runs whose descriptor does not
// set an explicit limit.
const DefaultMaxIterations = 5

// DefaultMaxConcurrent is the concurrency ceiling applied to parallel
// fan-out unless the executor is configured otherwise.
const DefaultMaxConcurrent = 5

// Configuration errors, returned synchronously before any participant
// runs. Agent failures are never returned this way; they are folded into
// the run's reports instead.
var (
	ErrNoParticipants    = errors.New("coordinator: descriptor has no participants")
	ErrUnknownStrategy   = errors.New("coordinator: unknown strategy")
	ErrPredicateRequired = errors.New("coordinator: strategy requires a stop predicate")
)

// ContinuationPredicate decides whether a run's stop condition is
// satisfied. Conditional runs evaluate it over all reports accumulated so
// far; iterative runs evaluate it over the reports of the iteration that
// just finished, never the full history.
type ContinuationPredicate func(reports []AgentReport) bool

// Descriptor describes one collaboration run. It is consumed once and
// never retained by the coordinator.
type Descriptor struct {
	// RunID identifies the run. Orchestrate assigns a fresh UUID when empty.
	RunID string

	// Participants run in slice order under the ordered strategies.
	// Duplicates are allowed and invoked once per occurrence.
	Participants []agent.Agent

	// Strategy selects the scheduling mode.
	Strategy Strategy

	// StopWhen is the continuation predicate. Required for the conditional
	// and iterative strategies, ignored by the others.
	StopWhen ContinuationPredicate

	// MaxIterations caps iterative runs. Values below one fall back to
	// DefaultMaxIterations so the loop always terminates.
	MaxIterations int

	// Barrier, when set, is waited on after the participants finish and
	// before aggregation. Every participant is marked as arrived first, so
	// the wait only blocks on agents outside this run.
	Barrier *barrier.SyncBarrier
}

// Validate reports configuration problems without running anything.
func (d *Descriptor) Validate() error {
	if len(d.Participants) == 0 {
		return ErrNoParticipants
	}
	if !d.Strategy.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, d.Strategy)
	}
	if d.StopWhen == nil && (d.Strategy == StrategyConditional || d.Strategy == StrategyIterative) {
		return fmt.Errorf("%w: %s", ErrPredicateRequired, d.Strategy)
	}
	return nil
}

func (d *Descriptor) maxIterations() int {
	if d.MaxIterations > 0 {
		return d.MaxIterations
	}
	return DefaultMaxIterations
}

func (d *Descriptor) ensureRunID() {
	if d.RunID == "" {
		d.RunID = uuid.NewString()
	}
}

// participantNames returns the unique participant names in first-seen order.
func (d *Descriptor) participantNames() []string {
	seen := make(map[string]bool, len(d.Participants))
	names := make([]string, 0, len(d.Participants))
	for _, a := range d.Participants {
		if name := a.Name(); !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// AgentReport is the outcome of a single agent invocation.
type AgentReport struct {
	// Agent is the reporting agent's name.
	Agent string `json:"agent"`

	// Insights produced on success; empty when the invocation failed.
	Insights []agent.Insight `json:"insights,omitempty"`

	// Succeeded is false when the agent returned an error or panicked.
	Succeeded bool `json:"succeeded"`

	// Err holds the failure message when Succeeded is false.
	Err string `json:"error,omitempty"`

	// Elapsed is the wall-clock duration of the invocation.
	Elapsed time.Duration `json:"elapsed"`

	// Iteration is the 1-based iteration number under the iterative
	// strategy and zero otherwise.
	Iteration int `json:"iteration,omitempty"`
}

// AggregatedReport is the final result of a collaboration run.
type AggregatedReport struct {
	RunID    string   `json:"runId"`
	Strategy Strategy `json:"strategy"`

	// Insights from every succeeding invocation, flattened in report order.
	Insights []agent.Insight `json:"insights"`

	// Reports holds one entry per invocation, in execution order.
	Reports []AgentReport `json:"reports"`

	// Success is true only when every invocation succeeded. A false value
	// with non-empty Insights is an expected partial-failure outcome, not
	// an error.
	Success bool `json:"success"`

	// QualityScore is the policy-weighted score over Insights, clamped at
	// zero.
	QualityScore int `json:"qualityScore"`

	// Conflicts lists contradictions detected between agents' insights.
	Conflicts []Conflict `json:"conflicts,omitempty"`

	// Iterations is the number of iterations an iterative run executed.
	Iterations int `json:"iterations,omitempty"`

	StartedAt time.Time     `json:"startedAt"`
	Elapsed   time.Duration `json:"elapsed"`
}

// FailedAgents returns the names of agents whose invocations failed, in
// report order without duplicates.
func (r *AggregatedReport) FailedAgents() []string {
	seen := make(map[string]bool)
	var failed []string
	for _, rep := range r.Reports {
		if !rep.Succeeded && !seen[rep.Agent] {
			seen[rep.Agent] = true
			failed = append(failed, rep.Agent)
		}
	}
	return failed
}

// SeverityCounts tallies the aggregated insights by severity.
func (r *AggregatedReport) SeverityCounts() map[agent.Severity]int {
	counts := make(map[agent.Severity]int)
	for _, ins := range r.Insights {
		counts[ins.Severity]++
	}
	return counts
}
