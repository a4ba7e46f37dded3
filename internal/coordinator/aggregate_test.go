package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/convene/internal/agent"
	"github.com/dusk-indust/convene/internal/policy"
)

func newTestAggregator() *InsightAggregator {
	return NewInsightAggregator(policy.Default())
}

func successfulReport(name string, insights ...agent.Insight) AgentReport {
	return AgentReport{Agent: name, Insights: insights, Succeeded: true}
}

func TestInsightAggregator_FlattensInReportOrder(t *testing.T) {
	first := agent.NewInsight(agent.SeverityError, "sql injection in login")
	second := agent.NewInsight(agent.SeverityWarning, "no caching layer")
	third := agent.NewInsight(agent.SeverityInfo, "twelve factor config")

	agg := newTestAggregator().Aggregate(Descriptor{RunID: "run-1", Strategy: StrategySequential}, []AgentReport{
		successfulReport("security", first),
		successfulReport("architect", second, third),
	})

	require.Len(t, agg.Insights, 3)
	assert.Equal(t, "sql injection in login", agg.Insights[0].Title)
	assert.Equal(t, "no caching layer", agg.Insights[1].Title)
	assert.Equal(t, "twelve factor config", agg.Insights[2].Title)
	assert.Equal(t, "run-1", agg.RunID)
	assert.Equal(t, StrategySequential, agg.Strategy)
}

func TestInsightAggregator_SuccessRequiresEveryAgent(t *testing.T) {
	ia := newTestAggregator()

	allGood := ia.Aggregate(Descriptor{}, []AgentReport{
		successfulReport("alpha"),
		successfulReport("beta"),
	})
	assert.True(t, allGood.Success)

	oneBad := ia.Aggregate(Descriptor{}, []AgentReport{
		successfulReport("alpha", agent.NewInsight(agent.SeverityInfo, "looks fine")),
		{Agent: "beta", Succeeded: false, Err: "timeout"},
	})
	assert.False(t, oneBad.Success)
	// Partial failure still surfaces the successful agent's findings.
	require.Len(t, oneBad.Insights, 1)
	assert.Equal(t, []string{"beta"}, oneBad.FailedAgents())
}

func TestInsightAggregator_QualityScoreWeightsSeverities(t *testing.T) {
	agg := newTestAggregator().Aggregate(Descriptor{}, []AgentReport{
		successfulReport("security",
			agent.NewInsight(agent.SeverityError, "hardcoded credential").WithCategory("security")),
		successfulReport("reviewer",
			agent.NewInsight(agent.SeverityError, "nil dereference"),
			agent.NewInsight(agent.SeverityWarning, "long function")),
		successfulReport("devops",
			agent.NewInsight(agent.SeverityInfo, "pipeline uses cache")),
	})

	// 100 - 20 (security error) - 10 (error) - 3 (warning) - 1 (info).
	assert.Equal(t, 66, agg.QualityScore)
}

func TestInsightAggregator_QualityScoreFloorsAtZero(t *testing.T) {
	findings := make([]agent.Insight, 11)
	for i := range findings {
		findings[i] = agent.NewInsight(agent.SeverityError, "broken invariant")
	}

	agg := newTestAggregator().Aggregate(Descriptor{}, []AgentReport{
		successfulReport("reviewer", findings...),
	})

	assert.Equal(t, 0, agg.QualityScore)
}

func TestInsightAggregator_CountsIterations(t *testing.T) {
	agg := newTestAggregator().Aggregate(Descriptor{Strategy: StrategyIterative}, []AgentReport{
		{Agent: "alpha", Succeeded: true, Iteration: 1},
		{Agent: "beta", Succeeded: true, Iteration: 1},
		{Agent: "alpha", Succeeded: true, Iteration: 2},
		{Agent: "beta", Succeeded: true, Iteration: 2},
	})

	assert.Equal(t, 2, agg.Iterations)
}

func TestFindConflicts_SeverityDisagreement(t *testing.T) {
	conflicts := findConflicts([]AgentReport{
		successfulReport("security", agent.NewInsight(agent.SeverityError, "Unpinned Base Image")),
		successfulReport("devops", agent.NewInsight(agent.SeverityInfo, "unpinned base image")),
	})

	require.Len(t, conflicts, 1)
	assert.Equal(t, "security", conflicts[0].AgentA)
	assert.Equal(t, "devops", conflicts[0].AgentB)
	assert.Equal(t, "unpinned base image", conflicts[0].Topic)
	assert.Contains(t, conflicts[0].Description, "security rates")
}

func TestFindConflicts_NoConflictOnAgreementOrSameAgent(t *testing.T) {
	agreement := findConflicts([]AgentReport{
		successfulReport("security", agent.NewInsight(agent.SeverityError, "weak cipher")),
		successfulReport("reviewer", agent.NewInsight(agent.SeverityError, "weak cipher")),
	})
	assert.Empty(t, agreement)

	selfRepeat := findConflicts([]AgentReport{
		successfulReport("reviewer",
			agent.NewInsight(agent.SeverityError, "weak cipher"),
			agent.NewInsight(agent.SeverityInfo, "weak cipher")),
	})
	assert.Empty(t, selfRepeat)
}

func TestAggregatedReport_SeverityCounts(t *testing.T) {
	agg := newTestAggregator().Aggregate(Descriptor{}, []AgentReport{
		successfulReport("alpha",
			agent.NewInsight(agent.SeverityError, "a"),
			agent.NewInsight(agent.SeverityError, "b"),
			agent.NewInsight(agent.SeverityInfo, "c")),
	})

	counts := agg.SeverityCounts()
	assert.Equal(t, 2, counts[agent.SeverityError])
	assert.Equal(t, 0, counts[agent.SeverityWarning])
	assert.Equal(t, 1, counts[agent.SeverityInfo])
}
