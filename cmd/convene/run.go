package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/dusk-indust/convene/internal/agent"
	"github.com/dusk-indust/convene/internal/codescan"
	"github.com/dusk-indust/convene/internal/config"
	"github.com/dusk-indust/convene/internal/coordinator"
	"github.com/dusk-indust/convene/internal/lineage"
	"github.com/dusk-indust/convene/internal/policy"
	"github.com/dusk-indust/convene/internal/remote"
	"github.com/dusk-indust/convene/internal/specialist"
	"github.com/dusk-indust/convene/internal/status"
)

// runRun reviews a repository with a specialist team and archives the
// finished run.
func runRun(projectRoot string, args []string) error {
	fs := flag.NewFlagSet("convene run", flag.ContinueOnError)
	repoFlag := fs.String("repo", "", "repository to review (default: repoPath from convene.yml, else the project root)")
	strategyFlag := fs.String("strategy", "", "sequential, parallel, conditional, or iterative (default: parallel)")
	agentsFlag := fs.String("agents", "", "comma-separated roles: security,reviewer,architect,devops (default: all)")
	iterations := fs.Int("iterations", 0, "iteration cap for the iterative strategy")
	targetScore := fs.Int("target-score", 0, "score at which conditional and iterative runs stop (default: policy threshold)")
	verboseFlag := fs.Bool("verbose", false, "stream per-agent progress while the run executes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(projectRoot)
	if err != nil {
		return err
	}
	pol, err := loadPolicy(projectRoot, cfg)
	if err != nil {
		return err
	}
	langs, err := scanLanguages(cfg)
	if err != nil {
		return err
	}

	strategy, err := coordinator.ParseStrategy(
		firstNonEmpty(*strategyFlag, cfg.Strategy, string(coordinator.StrategyParallel)))
	if err != nil {
		return err
	}

	roleNames := splitList(*agentsFlag)
	if len(roleNames) == 0 {
		roleNames = cfg.Agents
	}
	roles := make([]agent.Role, 0, len(roleNames))
	for _, name := range roleNames {
		roles = append(roles, agent.Role(name))
	}

	verbose := *verboseFlag || cfg.Verbose

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := resolveRepo(projectRoot, *repoFlag, cfg)
	participants, err := buildTeam(ctx, repo, pol, langs, cfg, roles)
	if err != nil {
		return err
	}

	maxIterations := *iterations
	if maxIterations == 0 {
		maxIterations = cfg.MaxIterations
	}

	d := coordinator.Descriptor{
		Participants:  participants,
		Strategy:      strategy,
		MaxIterations: maxIterations,
	}
	if strategy == coordinator.StrategyConditional || strategy == coordinator.StrategyIterative {
		threshold := *targetScore
		if threshold == 0 {
			threshold = pol.Iteration.QualityThreshold
		}
		d.StopWhen = coordinator.ScoreAtLeast(threshold)
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := []coordinator.Option{
		coordinator.WithPolicy(pol),
		coordinator.WithLogger(logger),
	}
	if cfg.MaxConcurrent > 0 {
		opts = append(opts, coordinator.WithMaxConcurrent(cfg.MaxConcurrent))
	}
	if store, err := openLineage(projectRoot); err != nil {
		fmt.Fprintf(os.Stderr, "warning: lineage graph unavailable: %v\n", err)
	} else if store != nil {
		defer store.Close()
		opts = append(opts, coordinator.WithRecorder(lineage.NewRecorder(store)))
	}

	coord := coordinator.NewCoordinator(opts...)

	watch := make(chan struct{})
	if verbose {
		events := coord.Progress()
		go func() {
			defer close(watch)
			for ev := range events {
				fmt.Println(coordinator.FormatProgress(ev))
			}
		}()
	} else {
		close(watch)
	}

	ec := agent.NewExecutionContext(uuid.NewString(), map[string]any{"repoPath": repo})
	rep, err := coord.Orchestrate(ctx, d, ec)
	coord.Close()
	<-watch
	if err != nil {
		return err
	}

	printReport(rep)

	path, err := status.SaveRun(historyDir(projectRoot, cfg), rep)
	if err != nil {
		return fmt.Errorf("archive run: %w", err)
	}
	fmt.Printf("\narchived to %s\n", path)
	return nil
}

// buildTeam spawns the local specialists and joins any remote agents whose
// configured endpoints answer the discovery probe. Endpoints that stay
// silent are reported but do not fail the run.
func buildTeam(ctx context.Context, repo string, pol policy.Policy, langs []codescan.Language, cfg *config.ProjectConfig, roles []agent.Role) ([]agent.Agent, error) {
	ws := specialist.NewWorkspace(repo, pol, cfg.ExcludeDirs...).OnlyLanguages(langs...)
	reg := agent.NewRegistry()
	if err := specialist.RegisterDefaults(reg, ws); err != nil {
		return nil, err
	}
	team, err := reg.SpawnAll(roles...)
	if err != nil {
		return nil, err
	}

	if len(cfg.RemoteEndpoints) > 0 {
		client := remote.NewHTTPClient()
		found := remote.Discover(ctx, client, cfg.RemoteEndpoints, 0)
		for _, d := range found {
			fmt.Printf("discovered %s at %s\n", d.Card.Name, d.Endpoint)
		}
		if silent := len(cfg.RemoteEndpoints) - len(found); silent > 0 {
			fmt.Fprintf(os.Stderr, "warning: %d remote endpoint(s) did not answer\n", silent)
		}
		team = append(team, remote.FromDiscovery(found, client)...)
	}
	return team, nil
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
