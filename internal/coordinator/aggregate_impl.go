package coordinator

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/convene/internal/agent"
	"github.com/dusk-indust/convene/internal/policy"
)

// Compile-time interface check.
var _ Aggregator = (*InsightAggregator)(nil)

// InsightAggregator flattens reports in execution order, scores the run
// against a policy, and scans for contradictions between agents.
type InsightAggregator struct {
	score policy.Score
}

// NewInsightAggregator creates an aggregator that scores with pol's
// severity weights.
func NewInsightAggregator(pol policy.Policy) *InsightAggregator {
	return &InsightAggregator{score: pol.Score}
}

// Aggregate builds the final report from the executor's output. Success
// requires every invocation to have succeeded; failed invocations
// contribute no insights but still count against success.
func (ia *InsightAggregator) Aggregate(d Descriptor, reports []AgentReport) *AggregatedReport {
	agg := &AggregatedReport{
		RunID:    d.RunID,
		Strategy: d.Strategy,
		Insights: make([]agent.Insight, 0, len(reports)),
		Reports:  reports,
		Success:  true,
	}
	for _, rep := range reports {
		if !rep.Succeeded {
			agg.Success = false
			continue
		}
		agg.Insights = append(agg.Insights, rep.Insights...)
	}
	for _, rep := range reports {
		if rep.Iteration > agg.Iterations {
			agg.Iterations = rep.Iteration
		}
	}
	agg.QualityScore = ia.scoreInsights(agg.Insights)
	agg.Conflicts = findConflicts(reports)
	return agg
}

// scoreInsights converts the flattened insights into a quality score:
// the policy base minus each insight's severity weight, floored at zero.
func (ia *InsightAggregator) scoreInsights(insights []agent.Insight) int {
	score := ia.score.Base
	for _, ins := range insights {
		score -= ia.score.Weight(string(ins.Severity), ins.Category)
	}
	if score < 0 {
		score = 0
	}
	return score
}

// findConflicts reports pairs of agents that rate the same finding title
// at different severities. Titles are compared case-insensitively after
// trimming; untitled insights are skipped.
func findConflicts(reports []AgentReport) []Conflict {
	type claim struct {
		agent    string
		severity agent.Severity
	}

	byTopic := make(map[string][]claim)
	var order []string
	for _, rep := range reports {
		for _, ins := range rep.Insights {
			topic := strings.ToLower(strings.TrimSpace(ins.Title))
			if topic == "" {
				continue
			}
			if _, seen := byTopic[topic]; !seen {
				order = append(order, topic)
			}
			byTopic[topic] = append(byTopic[topic], claim{agent: rep.Agent, severity: ins.Severity})
		}
	}

	var conflicts []Conflict
	for _, topic := range order {
		claims := byTopic[topic]
		for i := 0; i < len(claims); i++ {
			for j := i + 1; j < len(claims); j++ {
				a, b := claims[i], claims[j]
				if a.agent == b.agent || a.severity == b.severity {
					continue
				}
				conflicts = append(conflicts, Conflict{
					AgentA: a.agent,
					AgentB: b.agent,
					Topic:  topic,
					Description: fmt.Sprintf("%s rates %q as %s but %s rates it as %s",
						a.agent, topic, a.severity, b.agent, b.severity),
				})
			}
		}
	}
	return conflicts
}
