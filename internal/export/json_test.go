package export

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/convene/internal/agent"
	"github.com/dusk-indust/convene/internal/coordinator"
)

func reviewRunReport() *coordinator.AggregatedReport {
	secInsights := []agent.Insight{
		agent.NewInsight(agent.SeverityError, "hardcoded credential").
			WithCategory("security").
			With("file", "config.go").
			With("line", 42),
	}
	revInsights := []agent.Insight{
		agent.NewInsight(agent.SeverityWarning, "long function").WithCategory("quality"),
	}

	return &coordinator.AggregatedReport{
		RunID:    "run-export",
		Strategy: coordinator.StrategyParallel,
		Insights: append(append([]agent.Insight{}, secInsights...), revInsights...),
		Reports: []coordinator.AgentReport{
			{Agent: agent.NameSecurity, Insights: secInsights, Succeeded: true, Elapsed: 80 * time.Millisecond},
			{Agent: agent.NameReviewer, Insights: revInsights, Succeeded: true, Elapsed: 45 * time.Millisecond},
			{Agent: agent.NameDevOps, Succeeded: false, Err: "cannot access repo path", Elapsed: 5 * time.Millisecond},
		},
		Success:      false,
		QualityScore: 58,
		Conflicts: []coordinator.Conflict{
			{
				AgentA:      agent.NameSecurity,
				AgentB:      agent.NameReviewer,
				Topic:       "long function",
				Description: "reported at different severities",
			},
		},
		StartedAt: time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC),
		Elapsed:   130 * time.Millisecond,
	}
}

func TestExportRun(t *testing.T) {
	out := ExportRun(reviewRunReport())

	assert.Equal(t, "run-export", out.RunID)
	assert.Equal(t, "parallel", out.Strategy)
	assert.False(t, out.Success)
	assert.Equal(t, 58, out.QualityScore)
	assert.Equal(t, "2026-04-02T10:00:00Z", out.StartedAt)
	assert.Equal(t, int64(130), out.ElapsedMS)
	assert.NotEmpty(t, out.ExportedAt)

	require.Len(t, out.Agents, 3)
	assert.Equal(t, agent.NameSecurity, out.Agents[0].Name)
	assert.True(t, out.Agents[0].Succeeded)
	assert.Equal(t, 1, out.Agents[0].Insights)
	assert.Equal(t, int64(80), out.Agents[0].ElapsedMS)
	assert.Equal(t, agent.NameDevOps, out.Agents[2].Name)
	assert.False(t, out.Agents[2].Succeeded)
	assert.Equal(t, "cannot access repo path", out.Agents[2].Error)

	require.Len(t, out.Insights, 2, "failed agents contribute no insights")
	assert.Equal(t, agent.NameSecurity, out.Insights[0].Agent, "insight keeps its producer")
	assert.Equal(t, "error", out.Insights[0].Severity)
	assert.Equal(t, "hardcoded credential", out.Insights[0].Title)
	assert.Equal(t, "config.go", out.Insights[0].Data["file"])
	assert.Equal(t, agent.NameReviewer, out.Insights[1].Agent)

	require.Len(t, out.Conflicts, 1)
	assert.Equal(t, "long function", out.Conflicts[0].Topic)
}

func TestExportRun_IterativeCarriesIterations(t *testing.T) {
	rep := &coordinator.AggregatedReport{
		RunID:      "run-iter",
		Strategy:   coordinator.StrategyIterative,
		Iterations: 3,
		Reports: []coordinator.AgentReport{
			{Agent: agent.NameReviewer, Succeeded: true, Iteration: 1},
			{Agent: agent.NameReviewer, Succeeded: true, Iteration: 2},
			{Agent: agent.NameReviewer, Succeeded: true, Iteration: 3},
		},
		Success: true,
	}

	out := ExportRun(rep)

	assert.Equal(t, 3, out.Iterations)
	require.Len(t, out.Agents, 3)
	assert.Equal(t, 1, out.Agents[0].Iteration)
	assert.Equal(t, 3, out.Agents[2].Iteration)
}

func TestMarshalRun(t *testing.T) {
	data, err := MarshalRun(reviewRunReport())
	require.NoError(t, err)

	assert.Equal(t, byte('\n'), data[len(data)-1])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-export", decoded["runId"])
	assert.Equal(t, "parallel", decoded["strategy"])
	assert.Equal(t, float64(58), decoded["qualityScore"])

	agents, ok := decoded["agents"].([]any)
	require.True(t, ok)
	assert.Len(t, agents, 3)

	insights, ok := decoded["insights"].([]any)
	require.True(t, ok)
	require.Len(t, insights, 2)
	first, ok := insights[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "error", first["severity"])
}
