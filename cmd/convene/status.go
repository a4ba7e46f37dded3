package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/dusk-indust/convene/internal/agent"
	"github.com/dusk-indust/convene/internal/config"
	"github.com/dusk-indust/convene/internal/coordinator"
	"github.com/dusk-indust/convene/internal/status"
)

// runStatus lists archived runs, or shows one in detail when a run ID is
// given.
func runStatus(projectRoot string, args []string) error {
	fs := flag.NewFlagSet("convene status", flag.ContinueOnError)
	limit := fs.Int("n", 10, "number of runs to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(projectRoot)
	if err != nil {
		return err
	}
	dir := historyDir(projectRoot, cfg)

	if runID := fs.Arg(0); runID != "" {
		rep, err := status.LoadRun(dir, runID)
		if err != nil {
			return err
		}
		printReport(rep)
		return nil
	}
	return printRunList(dir, *limit)
}

func printRunList(dir string, limit int) error {
	summaries, err := status.ListRuns(dir)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No runs archived.")
		fmt.Println("Run 'convene run' to start one.")
		return nil
	}

	for i, sum := range summaries {
		if limit > 0 && i >= limit {
			fmt.Printf("  ... (%d more)\n", len(summaries)-limit)
			break
		}
		verdict := "ok  "
		if !sum.Success {
			verdict = "FAIL"
		}
		fmt.Printf("%s  %s  %-11s  score %3d  %2d insights  %s\n",
			sum.StartedAt.Local().Format("2006-01-02 15:04"), verdict, sum.Strategy,
			sum.QualityScore, sum.InsightCount, sum.RunID)
	}
	return nil
}

// printReport renders an aggregated report with per-agent detail. Shared
// by 'run' for the live result and 'status <id>' for archived ones.
func printReport(rep *coordinator.AggregatedReport) {
	verdict := "succeeded"
	if !rep.Success {
		verdict = "failed"
	}
	fmt.Printf("Run %s (%s) %s in %s\n", rep.RunID, rep.Strategy, verdict, rep.Elapsed.Round(time.Millisecond))

	counts := rep.SeverityCounts()
	fmt.Printf("  score %d, %d insights (%d error, %d warning, %d info)\n",
		rep.QualityScore, len(rep.Insights),
		counts[agent.SeverityError], counts[agent.SeverityWarning], counts[agent.SeverityInfo])
	if rep.Iterations > 0 {
		fmt.Printf("  iterations: %d\n", rep.Iterations)
	}
	fmt.Println()

	for _, r := range rep.Reports {
		head := r.Agent
		if r.Iteration > 0 {
			head = fmt.Sprintf("%s (iteration %d)", r.Agent, r.Iteration)
		}
		if !r.Succeeded {
			fmt.Printf("  ✗ %s: %s\n", head, r.Err)
			continue
		}
		fmt.Printf("  ✓ %s: %d insights in %s\n", head, len(r.Insights), r.Elapsed.Round(time.Millisecond))
		for _, ins := range r.Insights {
			fmt.Printf("      [%s] %s%s\n", ins.Severity, ins.Title, insightLocation(ins))
		}
	}

	if len(rep.Conflicts) > 0 {
		fmt.Println()
		for _, c := range rep.Conflicts {
			fmt.Printf("  ! conflict: %s\n", c.Description)
		}
	}
}

// insightLocation renders the file and line an insight points at, when the
// scan recorded them. Lines from archived runs arrive as float64 after the
// JSON round trip.
func insightLocation(ins agent.Insight) string {
	file, ok := ins.Data["file"].(string)
	if !ok || file == "" {
		return ""
	}
	switch line := ins.Data["line"].(type) {
	case int:
		return fmt.Sprintf(" (%s:%d)", file, line)
	case float64:
		return fmt.Sprintf(" (%s:%d)", file, int(line))
	}
	return fmt.Sprintf(" (%s)", file)
}
