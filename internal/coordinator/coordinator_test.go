package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/convene/internal/agent"
	"github.com/dusk-indust/convene/internal/barrier"
	"github.com/dusk-indust/convene/internal/policy"
)

func newTestCoordinator(opts ...Option) *Coordinator {
	return NewCoordinator(append([]Option{WithLogger(testLogger())}, opts...)...)
}

// TestCoordinator_SequentialReviewScenario walks a three-specialist review:
// the security agent reports an error, the others report milder findings,
// and the aggregated report keeps ordering, success, and scoring intact.
func TestCoordinator_SequentialReviewScenario(t *testing.T) {
	security := emits(agent.NameSecurity,
		agent.NewInsight(agent.SeverityError, "hardcoded credential in config").WithCategory("security"))
	architect := emits(agent.NameArchitect,
		agent.NewInsight(agent.SeverityWarning, "handlers bypass the service layer"))
	devops := &scriptedAgent{name: agent.NameDevOps, run: func(context.Context, agent.ExecutionContext) ([]agent.Insight, error) {
		time.Sleep(2 * time.Millisecond)
		return []agent.Insight{agent.NewInsight(agent.SeverityInfo, "builds are reproducible")}, nil
	}}

	c := newTestCoordinator()
	defer c.Close()

	agg, err := c.Orchestrate(context.Background(), Descriptor{
		Participants: participants(security, architect, devops),
		Strategy:     StrategySequential,
	}, agent.NewExecutionContext("pr-314", map[string]any{"repoPath": "."}))

	require.NoError(t, err)
	require.Len(t, agg.Reports, 3)
	require.NotEmpty(t, agg.Insights)

	assert.Equal(t, "hardcoded credential in config", agg.Insights[0].Title)
	assert.True(t, agg.Success)
	// 100 - 20 (security error) - 3 (warning) - 1 (info).
	assert.Equal(t, 76, agg.QualityScore)

	assert.False(t, agg.StartedAt.IsZero())
	assert.Greater(t, agg.Elapsed, time.Duration(0))
}

func TestCoordinator_AssignsAndPreservesRunID(t *testing.T) {
	c := newTestCoordinator()
	defer c.Close()

	assigned, err := c.Orchestrate(context.Background(), Descriptor{
		Participants: participants(emits("alpha")),
		Strategy:     StrategySequential,
	}, agent.ExecutionContext{})
	require.NoError(t, err)
	_, parseErr := uuid.Parse(assigned.RunID)
	assert.NoError(t, parseErr, "generated run IDs are UUIDs")

	kept, err := c.Orchestrate(context.Background(), Descriptor{
		RunID:        "release-review-7",
		Participants: participants(emits("alpha")),
		Strategy:     StrategySequential,
	}, agent.ExecutionContext{})
	require.NoError(t, err)
	assert.Equal(t, "release-review-7", kept.RunID)
}

func TestCoordinator_ConfigurationErrorsAreSynchronous(t *testing.T) {
	c := newTestCoordinator()
	defer c.Close()

	agg, err := c.Orchestrate(context.Background(), Descriptor{
		Strategy: StrategySequential,
	}, agent.ExecutionContext{})

	require.ErrorIs(t, err, ErrNoParticipants)
	assert.Nil(t, agg)
}

func TestCoordinator_PartialFailureIsNotAnError(t *testing.T) {
	c := newTestCoordinator()
	defer c.Close()

	agg, err := c.Orchestrate(context.Background(), Descriptor{
		Participants: participants(
			emits("alpha", agent.NewInsight(agent.SeverityWarning, "stale dependency")),
			fails("beta", "scanner unavailable"),
		),
		Strategy: StrategyParallel,
	}, agent.ExecutionContext{})

	require.NoError(t, err)
	assert.False(t, agg.Success)
	require.Len(t, agg.Insights, 1)
	assert.Equal(t, []string{"beta"}, agg.FailedAgents())
}

func TestCoordinator_BarrierReleasesWhenParticipantsArrive(t *testing.T) {
	c := newTestCoordinator()
	defer c.Close()

	agg, err := c.Orchestrate(context.Background(), Descriptor{
		Participants: participants(emits("alpha"), emits("beta")),
		Strategy:     StrategyParallel,
		Barrier: &barrier.SyncBarrier{
			ID:       "review-gate",
			Required: []string{"alpha", "beta"},
			Timeout:  500 * time.Millisecond,
		},
	}, agent.ExecutionContext{})

	require.NoError(t, err)
	assert.True(t, agg.Success)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, c.Barriers().Arrived("review-gate"))
}

func TestCoordinator_BarrierTimeoutNamesMissingAgent(t *testing.T) {
	c := newTestCoordinator()
	defer c.Close()

	_, err := c.Orchestrate(context.Background(), Descriptor{
		Participants: participants(emits("alpha")),
		Strategy:     StrategySequential,
		Barrier: &barrier.SyncBarrier{
			ID:       "signoff",
			Required: []string{"alpha", "external-auditor"},
			Timeout:  60 * time.Millisecond,
		},
	}, agent.ExecutionContext{})

	var timeout *barrier.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, []string{"external-auditor"}, timeout.Missing)
}

func TestCoordinator_KnowledgePersistsAcrossRuns(t *testing.T) {
	c := newTestCoordinator()
	defer c.Close()

	finding := agent.NewInsight(agent.SeverityWarning, "retry loop lacks backoff")
	_, err := c.Orchestrate(context.Background(), Descriptor{
		Participants: participants(emits("alpha", finding), emits("beta")),
		Strategy:     StrategySequential,
	}, agent.ExecutionContext{})
	require.NoError(t, err)

	var betaPrior []agent.Insight
	beta := &scriptedAgent{name: "beta", run: func(_ context.Context, ec agent.ExecutionContext) ([]agent.Insight, error) {
		betaPrior = append([]agent.Insight(nil), ec.Prior...)
		return nil, nil
	}}
	_, err = c.Orchestrate(context.Background(), Descriptor{
		Participants: participants(beta),
		Strategy:     StrategySequential,
	}, agent.ExecutionContext{})
	require.NoError(t, err)

	// Alpha's first-run finding reaches beta's second run through the store.
	require.Len(t, betaPrior, 1)
	assert.Equal(t, "retry loop lacks backoff", betaPrior[0].Title)

	c.Knowledge().Clear()
	assert.Empty(t, c.Knowledge().GetFor("beta"))
}

func TestCoordinator_ProgressEventsObservable(t *testing.T) {
	c := newTestCoordinator()
	events := c.Progress()

	_, err := c.Orchestrate(context.Background(), Descriptor{
		RunID:        "run-42",
		Participants: participants(emits("alpha")),
		Strategy:     StrategySequential,
	}, agent.ExecutionContext{})
	require.NoError(t, err)
	c.Close()

	var runStatuses []ProgressStatus
	sawAgentEvent := false
	for ev := range events {
		assert.Equal(t, "run-42", ev.RunID)
		if ev.Agent == "" {
			runStatuses = append(runStatuses, ev.Status)
		} else {
			sawAgentEvent = true
		}
	}
	assert.Equal(t, []ProgressStatus{ProgressWorking, ProgressComplete}, runStatuses)
	assert.True(t, sawAgentEvent)
}

func TestCoordinator_CustomPolicyChangesScore(t *testing.T) {
	pol := policy.Default()
	pol.Score.Warning = 30

	c := newTestCoordinator(WithPolicy(pol))
	defer c.Close()

	agg, err := c.Orchestrate(context.Background(), Descriptor{
		Participants: participants(emits("alpha", agent.NewInsight(agent.SeverityWarning, "noisy logs"))),
		Strategy:     StrategySequential,
	}, agent.ExecutionContext{})

	require.NoError(t, err)
	assert.Equal(t, 70, agg.QualityScore)
}
