package lineage

import (
	"context"
	"fmt"

	"github.com/dusk-indust/convene/internal/coordinator"
	"github.com/dusk-indust/convene/internal/knowledge"
)

// Recorder writes finished runs into a lineage store. It satisfies the
// coordinator's RunRecorder option, and the CLI calls it directly after
// standalone runs.
type Recorder struct {
	store Store
}

// NewRecorder creates a Recorder over a store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

var _ coordinator.RunRecorder = (*Recorder)(nil)

// RecordRun archives one aggregated report plus the knowledge items that were
// shared along the way. Items that do not match an insight of this run (for
// example, carry-overs from earlier runs in a shared store) are skipped.
func (r *Recorder) RecordRun(ctx context.Context, rep *coordinator.AggregatedReport, items []knowledge.Item) error {
	if rep == nil {
		return fmt.Errorf("lineage: nil report")
	}

	run := RunNode{
		ID:           rep.RunID,
		Strategy:     string(rep.Strategy),
		Success:      rep.Success,
		QualityScore: rep.QualityScore,
		Iterations:   rep.Iterations,
		StartedAt:    rep.StartedAt,
		Elapsed:      rep.Elapsed,
	}
	if err := r.store.AddRun(ctx, run); err != nil {
		return fmt.Errorf("lineage: add run %s: %w", rep.RunID, err)
	}

	// Insight node IDs by (source agent, title), for matching shared items.
	produced := make(map[string]string)

	seq := 0
	seenAgents := make(map[string]bool)
	for _, agentRep := range rep.Reports {
		if !seenAgents[agentRep.Agent] {
			seenAgents[agentRep.Agent] = true
			if err := r.store.AddAgent(ctx, AgentNode{Name: agentRep.Agent}); err != nil {
				return fmt.Errorf("lineage: add agent %s: %w", agentRep.Agent, err)
			}
			if err := r.store.AddEdge(ctx, Edge{
				SourceID: agentRep.Agent,
				TargetID: rep.RunID,
				Kind:     EdgeParticipated,
			}); err != nil {
				return fmt.Errorf("lineage: participated edge: %w", err)
			}
		}

		for _, in := range agentRep.Insights {
			node := InsightNode{
				ID:       InsightID(rep.RunID, seq),
				RunID:    rep.RunID,
				Agent:    agentRep.Agent,
				Seq:      seq,
				Severity: in.Severity,
				Title:    in.Title,
				Category: in.Category,
			}
			seq++

			if err := r.store.AddInsight(ctx, node); err != nil {
				return fmt.Errorf("lineage: add insight %s: %w", node.ID, err)
			}
			if err := r.store.AddEdge(ctx, Edge{
				SourceID: agentRep.Agent,
				TargetID: node.ID,
				Kind:     EdgeProduced,
			}); err != nil {
				return fmt.Errorf("lineage: produced edge: %w", err)
			}
			produced[shareKey(agentRep.Agent, in.Title)] = node.ID
		}
	}

	for _, item := range items {
		insightID, ok := produced[shareKey(item.Source, item.Insight.Title)]
		if !ok {
			continue // shared in an earlier run
		}
		// The target may have been skipped by a short-circuiting strategy
		// and so have no report; make sure its node exists.
		if !seenAgents[item.Target] {
			seenAgents[item.Target] = true
			if err := r.store.AddAgent(ctx, AgentNode{Name: item.Target}); err != nil {
				return fmt.Errorf("lineage: add agent %s: %w", item.Target, err)
			}
		}
		if err := r.store.AddEdge(ctx, Edge{
			SourceID: insightID,
			TargetID: item.Target,
			Kind:     EdgeSharedWith,
		}); err != nil {
			return fmt.Errorf("lineage: shared edge: %w", err)
		}
	}

	return nil
}

func shareKey(source, title string) string {
	return source + "\x00" + title
}
