package mcptools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/convene/internal/agent"
	"github.com/dusk-indust/convene/internal/codescan"
	"github.com/dusk-indust/convene/internal/coordinator"
	"github.com/dusk-indust/convene/internal/export"
	"github.com/dusk-indust/convene/internal/policy"
	"github.com/dusk-indust/convene/internal/specialist"
	"github.com/dusk-indust/convene/internal/status"
)

// defaultRunLimit bounds list_runs responses when the caller sets no limit.
const defaultRunLimit = 20

// TeamBuilder constructs the participants for one collaboration over a
// repository. Tests substitute stub teams.
type TeamBuilder func(repoPath string, roles []agent.Role) ([]agent.Agent, error)

// SpecialistTeam returns a TeamBuilder that registers the built-in
// specialists on a fresh registry per run, over a workspace rooted at the
// requested repository. Scans skip the excluded directory names and, when
// langs is non-empty, cover only those languages. With no roles it spawns
// the full default team.
func SpecialistTeam(pol policy.Policy, langs []codescan.Language, excludes ...string) TeamBuilder {
	return func(repoPath string, roles []agent.Role) ([]agent.Agent, error) {
		ws := specialist.NewWorkspace(repoPath, pol, excludes...).OnlyLanguages(langs...)
		reg := agent.NewRegistry()
		if err := specialist.RegisterDefaults(reg, ws); err != nil {
			return nil, err
		}
		return reg.SpawnAll(roles...)
	}
}

// ServiceConfig carries the defaults a CoordinatorService applies to the
// collaborations it runs.
type ServiceConfig struct {
	// RepoPath is reviewed when a tool call names no repository.
	RepoPath string

	// HistoryDir is where finished runs are archived and looked up.
	// Empty means status.DefaultHistoryDir.
	HistoryDir string

	// Policy weights insight scoring and supplies the default stop
	// threshold for conditional and iterative runs.
	Policy policy.Policy

	// MaxConcurrent caps parallel fan-out. Zero keeps the coordinator
	// default.
	MaxConcurrent int

	// Recorder, when set, archives every run into the lineage graph.
	Recorder coordinator.RunRecorder

	Logger *slog.Logger
}

// CoordinatorService handles MCP tool calls for collaboration runs. Every
// run_collaboration call gets a fresh coordinator, so knowledge shared
// during one run never reaches the next.
type CoordinatorService struct {
	team TeamBuilder
	cfg  ServiceConfig
}

// NewCoordinatorService creates a CoordinatorService with the given team
// builder and defaults.
func NewCoordinatorService(team TeamBuilder, cfg ServiceConfig) *CoordinatorService {
	if cfg.HistoryDir == "" {
		cfg.HistoryDir = status.DefaultHistoryDir
	}
	if cfg.Policy.Score == (policy.Score{}) {
		cfg.Policy = policy.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &CoordinatorService{team: team, cfg: cfg}
}

// RunCollaboration executes one collaboration run against a repository and
// archives the aggregated report.
func (s *CoordinatorService) RunCollaboration(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunCollaborationInput,
) (*mcp.CallToolResult, RunCollaborationOutput, error) {
	repoPath := input.RepoPath
	if repoPath == "" {
		repoPath = s.cfg.RepoPath
	}
	if repoPath == "" {
		return nil, RunCollaborationOutput{}, fmt.Errorf("repoPath is required")
	}

	strategy := coordinator.StrategyParallel
	if input.Strategy != "" {
		var err error
		strategy, err = coordinator.ParseStrategy(input.Strategy)
		if err != nil {
			return nil, RunCollaborationOutput{}, err
		}
	}

	roles := make([]agent.Role, len(input.Agents))
	for i, raw := range input.Agents {
		roles[i] = agent.Role(raw)
	}

	participants, err := s.team(repoPath, roles)
	if err != nil {
		return nil, RunCollaborationOutput{}, fmt.Errorf("build team: %w", err)
	}

	d := coordinator.Descriptor{
		Participants:  participants,
		Strategy:      strategy,
		MaxIterations: input.MaxIterations,
	}
	if strategy == coordinator.StrategyConditional || strategy == coordinator.StrategyIterative {
		target := input.TargetScore
		if target <= 0 {
			target = s.cfg.Policy.Iteration.QualityThreshold
		}
		d.StopWhen = coordinator.ScoreAtLeast(target)
	}

	opts := []coordinator.Option{
		coordinator.WithPolicy(s.cfg.Policy),
		coordinator.WithLogger(s.cfg.Logger),
	}
	if s.cfg.MaxConcurrent > 0 {
		opts = append(opts, coordinator.WithMaxConcurrent(s.cfg.MaxConcurrent))
	}
	if s.cfg.Recorder != nil {
		opts = append(opts, coordinator.WithRecorder(s.cfg.Recorder))
	}
	coord := coordinator.NewCoordinator(opts...)
	defer coord.Close()

	ec := agent.NewExecutionContext(uuid.NewString(), map[string]any{
		"repoPath": repoPath,
	})

	rep, err := coord.Orchestrate(ctx, d, ec)
	if err != nil {
		return nil, RunCollaborationOutput{}, err
	}

	sum := status.Summarize(rep)
	out := RunCollaborationOutput{
		RunID:        sum.RunID,
		Strategy:     string(sum.Strategy),
		Success:      sum.Success,
		QualityScore: sum.QualityScore,
		InsightCount: sum.InsightCount,
		Agents:       sum.Agents,
		FailedAgents: sum.FailedAgents,
		Conflicts:    len(rep.Conflicts),
		Iterations:   rep.Iterations,
		Elapsed:      rep.Elapsed.Round(time.Millisecond).String(),
	}

	// Archiving is best-effort, like the coordinator's own recorder: the
	// caller still gets the run result when the history dir is unwritable.
	path, err := status.SaveRun(s.cfg.HistoryDir, rep)
	if err != nil {
		s.cfg.Logger.Warn("run not archived", "run", rep.RunID, "error", err)
	} else {
		out.ArchivePath = path
	}

	return nil, out, nil
}

// GetRun fetches one archived run in its export shape.
func (s *CoordinatorService) GetRun(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetRunInput,
) (*mcp.CallToolResult, GetRunOutput, error) {
	rep, err := s.loadRun(input.RunID)
	if err != nil {
		return nil, GetRunOutput{}, err
	}
	return nil, GetRunOutput{Run: export.ExportRun(rep)}, nil
}

// ListRuns lists archived runs, newest first.
func (s *CoordinatorService) ListRuns(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ListRunsInput,
) (*mcp.CallToolResult, ListRunsOutput, error) {
	summaries, err := status.ListRuns(s.cfg.HistoryDir)
	if err != nil {
		return nil, ListRunsOutput{}, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultRunLimit
	}

	total := len(summaries)
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return nil, ListRunsOutput{Runs: summaries, Total: total}, nil
}

// ExportRun renders an archived run as indented JSON or a mermaid sequence
// diagram.
func (s *CoordinatorService) ExportRun(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ExportRunInput,
) (*mcp.CallToolResult, ExportRunOutput, error) {
	format := input.Format
	if format == "" {
		format = "json"
	}

	rep, err := s.loadRun(input.RunID)
	if err != nil {
		return nil, ExportRunOutput{}, err
	}

	switch format {
	case "json":
		data, err := export.MarshalRun(rep)
		if err != nil {
			return nil, ExportRunOutput{}, err
		}
		return nil, ExportRunOutput{Format: format, Content: string(data)}, nil
	case "mermaid":
		return nil, ExportRunOutput{Format: format, Content: export.GenerateMermaid(rep)}, nil
	default:
		return nil, ExportRunOutput{}, fmt.Errorf("unknown format %q (want json or mermaid)", input.Format)
	}
}

// loadRun resolves a run ID to its archived report, defaulting to the most
// recent run when the ID is empty.
func (s *CoordinatorService) loadRun(runID string) (*coordinator.AggregatedReport, error) {
	if runID == "" {
		return status.LatestRun(s.cfg.HistoryDir)
	}
	return status.LoadRun(s.cfg.HistoryDir, runID)
}
