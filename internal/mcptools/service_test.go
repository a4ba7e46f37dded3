package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/convene/internal/agent"
	"github.com/dusk-indust/convene/internal/coordinator"
	"github.com/dusk-indust/convene/internal/export"
	"github.com/dusk-indust/convene/internal/status"
)

// stubTeam is a TeamBuilder test double that returns fixed agents and
// records what it was asked to build.
type stubTeam struct {
	agents []agent.Agent
	err    error

	repoPath string
	roles    []agent.Role
}

func (st *stubTeam) build(repoPath string, roles []agent.Role) ([]agent.Agent, error) {
	st.repoPath = repoPath
	st.roles = roles
	if st.err != nil {
		return nil, st.err
	}
	return st.agents, nil
}

// emits creates an agent returning the given insights on every call.
func emits(name string, insights ...agent.Insight) agent.Agent {
	return agent.NewBaseAgent(name, func(context.Context, agent.ExecutionContext) ([]agent.Insight, error) {
		return insights, nil
	})
}

// fails creates an agent that errors on every call.
func fails(name, msg string) agent.Agent {
	return agent.NewBaseAgent(name, func(context.Context, agent.ExecutionContext) ([]agent.Insight, error) {
		return nil, errors.New(msg)
	})
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestService builds a CoordinatorService over a throwaway history dir.
func newTestService(t *testing.T, team TeamBuilder) *CoordinatorService {
	t.Helper()
	return NewCoordinatorService(team, ServiceConfig{
		RepoPath:   "/repo",
		HistoryDir: t.TempDir(),
		Logger:     testLogger(),
	})
}

// archivedReport is a minimal finished run for seeding the history dir.
func archivedReport(runID string, started time.Time) *coordinator.AggregatedReport {
	finding := agent.NewInsight(agent.SeverityWarning, "oversized function").WithCategory("maintainability")
	return &coordinator.AggregatedReport{
		RunID:    runID,
		Strategy: coordinator.StrategyParallel,
		Insights: []agent.Insight{finding},
		Reports: []coordinator.AgentReport{
			{Agent: agent.NameReviewer, Insights: []agent.Insight{finding}, Succeeded: true},
		},
		Success:      true,
		QualityScore: 88,
		StartedAt:    started,
		Elapsed:      42 * time.Millisecond,
	}
}

func TestRunCollaboration(t *testing.T) {
	team := &stubTeam{agents: []agent.Agent{
		emits(agent.NameSecurity, agent.NewInsight(agent.SeverityError, "hardcoded credential").WithCategory("security")),
		emits(agent.NameReviewer, agent.NewInsight(agent.SeverityWarning, "oversized function")),
	}}
	svc := newTestService(t, team.build)

	_, out, err := svc.RunCollaboration(context.Background(), nil, RunCollaborationInput{
		Strategy: "sequential",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, "sequential", out.Strategy)
	assert.True(t, out.Success)
	assert.Equal(t, 2, out.InsightCount)
	assert.Equal(t, []string{agent.NameSecurity, agent.NameReviewer}, out.Agents)
	assert.Empty(t, out.FailedAgents)
	assert.NotEmpty(t, out.Elapsed)

	// The configured repo path applies when the call names none, and no
	// roles means the builder decides the team.
	assert.Equal(t, "/repo", team.repoPath)
	assert.Empty(t, team.roles)

	// The run is archived where the output says it is.
	require.NotEmpty(t, out.ArchivePath)
	_, statErr := os.Stat(out.ArchivePath)
	require.NoError(t, statErr)

	rep, err := status.LoadRun(svc.cfg.HistoryDir, out.RunID)
	require.NoError(t, err)
	assert.Equal(t, out.RunID, rep.RunID)
	assert.Len(t, rep.Insights, 2)
}

func TestRunCollaboration_RequestReachesTeamBuilder(t *testing.T) {
	team := &stubTeam{agents: []agent.Agent{emits(agent.NameSecurity)}}
	svc := newTestService(t, team.build)

	_, _, err := svc.RunCollaboration(context.Background(), nil, RunCollaborationInput{
		RepoPath: "/elsewhere",
		Agents:   []string{"security", "reviewer"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/elsewhere", team.repoPath)
	assert.Equal(t, []agent.Role{agent.RoleSecurity, agent.RoleReviewer}, team.roles)
}

func TestRunCollaboration_MissingRepoPath(t *testing.T) {
	team := &stubTeam{agents: []agent.Agent{emits(agent.NameSecurity)}}
	svc := NewCoordinatorService(team.build, ServiceConfig{
		HistoryDir: t.TempDir(),
		Logger:     testLogger(),
	})

	_, _, err := svc.RunCollaboration(context.Background(), nil, RunCollaborationInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repoPath is required")
}

func TestRunCollaboration_UnknownStrategy(t *testing.T) {
	team := &stubTeam{agents: []agent.Agent{emits(agent.NameSecurity)}}
	svc := newTestService(t, team.build)

	_, _, err := svc.RunCollaboration(context.Background(), nil, RunCollaborationInput{
		Strategy: "mob",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, coordinator.ErrUnknownStrategy)
}

func TestRunCollaboration_TeamBuilderError(t *testing.T) {
	team := &stubTeam{err: errors.New(`no factory registered for role "oracle"`)}
	svc := newTestService(t, team.build)

	_, _, err := svc.RunCollaboration(context.Background(), nil, RunCollaborationInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build team")
	assert.Contains(t, err.Error(), "oracle")
}

func TestRunCollaboration_FailedAgentIsReportedNotFatal(t *testing.T) {
	team := &stubTeam{agents: []agent.Agent{
		emits(agent.NameSecurity, agent.NewInsight(agent.SeverityInfo, "no security issues found")),
		fails(agent.NameDevOps, "tree walk failed"),
	}}
	svc := newTestService(t, team.build)

	_, out, err := svc.RunCollaboration(context.Background(), nil, RunCollaborationInput{})
	require.NoError(t, err, "agent failures fold into the report")

	assert.False(t, out.Success)
	assert.Equal(t, 1, out.InsightCount)
	assert.Equal(t, []string{agent.NameDevOps}, out.FailedAgents)
}

func TestRunCollaboration_IterativeStopsAtTargetScore(t *testing.T) {
	score := agent.NewInsight(agent.SeverityInfo, "review score").With(agent.DataKeyScore, 92)
	team := &stubTeam{agents: []agent.Agent{emits(agent.NameReviewer, score)}}
	svc := newTestService(t, team.build)

	_, out, err := svc.RunCollaboration(context.Background(), nil, RunCollaborationInput{
		Strategy:      "iterative",
		MaxIterations: 4,
		TargetScore:   80,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Iterations, "a score above target stops the loop after one iteration")
}

func TestRunCollaboration_IterativeExhaustsBudget(t *testing.T) {
	score := agent.NewInsight(agent.SeverityInfo, "review score").With(agent.DataKeyScore, 15)
	team := &stubTeam{agents: []agent.Agent{emits(agent.NameReviewer, score)}}
	svc := newTestService(t, team.build)

	_, out, err := svc.RunCollaboration(context.Background(), nil, RunCollaborationInput{
		Strategy:      "iterative",
		MaxIterations: 2,
		TargetScore:   80,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Iterations)
}

func TestGetRun(t *testing.T) {
	team := &stubTeam{}
	svc := newTestService(t, team.build)

	_, err := status.SaveRun(svc.cfg.HistoryDir, archivedReport("run-a", time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	_, err = status.SaveRun(svc.cfg.HistoryDir, archivedReport("run-b", time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	t.Run("by id", func(t *testing.T) {
		_, out, err := svc.GetRun(context.Background(), nil, GetRunInput{RunID: "run-a"})
		require.NoError(t, err)
		require.NotNil(t, out.Run)
		assert.Equal(t, "run-a", out.Run.RunID)
		require.Len(t, out.Run.Agents, 1)
		assert.Equal(t, agent.NameReviewer, out.Run.Agents[0].Name)
	})

	t.Run("empty id means latest", func(t *testing.T) {
		_, out, err := svc.GetRun(context.Background(), nil, GetRunInput{})
		require.NoError(t, err)
		require.NotNil(t, out.Run)
		assert.Equal(t, "run-b", out.Run.RunID)
	})
}

func TestGetRun_NotFound(t *testing.T) {
	svc := newTestService(t, (&stubTeam{}).build)

	_, _, err := svc.GetRun(context.Background(), nil, GetRunInput{RunID: "run-missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListRuns(t *testing.T) {
	svc := newTestService(t, (&stubTeam{}).build)

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-old", "run-mid", "run-new"} {
		_, err := status.SaveRun(svc.cfg.HistoryDir, archivedReport(id, base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}

	_, out, err := svc.ListRuns(context.Background(), nil, ListRunsInput{Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, out.Total, "total counts the whole archive, not the page")
	require.Len(t, out.Runs, 2)
	assert.Equal(t, "run-new", out.Runs[0].RunID)
	assert.Equal(t, "run-mid", out.Runs[1].RunID)
}

func TestListRuns_EmptyHistory(t *testing.T) {
	svc := newTestService(t, (&stubTeam{}).build)

	_, out, err := svc.ListRuns(context.Background(), nil, ListRunsInput{})
	require.NoError(t, err)
	assert.Empty(t, out.Runs)
	assert.Zero(t, out.Total)
}

func TestExportRun(t *testing.T) {
	svc := newTestService(t, (&stubTeam{}).build)

	_, err := status.SaveRun(svc.cfg.HistoryDir, archivedReport("run-x", time.Date(2026, 5, 3, 9, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	t.Run("json is the default format", func(t *testing.T) {
		_, out, err := svc.ExportRun(context.Background(), nil, ExportRunInput{RunID: "run-x"})
		require.NoError(t, err)
		assert.Equal(t, "json", out.Format)

		var exported export.RunExport
		require.NoError(t, json.Unmarshal([]byte(out.Content), &exported))
		assert.Equal(t, "run-x", exported.RunID)
	})

	t.Run("mermaid", func(t *testing.T) {
		_, out, err := svc.ExportRun(context.Background(), nil, ExportRunInput{RunID: "run-x", Format: "mermaid"})
		require.NoError(t, err)
		assert.Equal(t, "mermaid", out.Format)
		assert.True(t, strings.HasPrefix(out.Content, "sequenceDiagram"))
		assert.Contains(t, out.Content, agent.NameReviewer)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, err := svc.ExportRun(context.Background(), nil, ExportRunInput{RunID: "run-x", Format: "svg"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown format "svg"`)
	})
}
