package agent

import (
	"context"
	"fmt"
)

// Compile-time interface check.
var _ Agent = (*BaseAgent)(nil)

// RunFunc is the function that specialist agents implement to produce
// insights from an execution context.
type RunFunc func(ctx context.Context, ec ExecutionContext) ([]Insight, error)

// BaseAgent provides shared boilerplate for specialist agents. Specialists
// embed BaseAgent and provide a RunFunc; BaseAgent validates the produced
// insights so downstream consumers never see an unknown severity.
type BaseAgent struct {
	name string
	run  RunFunc
}

// NewBaseAgent creates a BaseAgent with the given name and run function.
func NewBaseAgent(name string, run RunFunc) *BaseAgent {
	return &BaseAgent{name: name, run: run}
}

// Name returns the agent's identifier.
func (b *BaseAgent) Name() string {
	return b.name
}

// Run invokes the specialist's run function and normalizes its output.
// Insights with an unknown severity are downgraded to info rather than
// rejected, so a sloppy specialist still contributes its findings.
func (b *BaseAgent) Run(ctx context.Context, ec ExecutionContext) ([]Insight, error) {
	if b.run == nil {
		return nil, fmt.Errorf("agent %q has no run function", b.name)
	}

	insights, err := b.run(ctx, ec)
	if err != nil {
		return nil, err
	}

	for idx, in := range insights {
		if !in.Severity.Valid() {
			insights[idx].Severity = SeverityInfo
		}
	}
	return insights, nil
}
