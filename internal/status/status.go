// Package status persists finished collaboration runs as JSON files and
// answers questions about them: which runs exist, which is newest, what a
// given run produced. It is the backend for the status and export commands
// and for the MCP run-inspection tools.
package status

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dusk-indust/convene/internal/coordinator"
)

// DefaultHistoryDir is where runs land unless the project config says
// otherwise, relative to the working directory.
const DefaultHistoryDir = ".convene/runs"

// RunSummary is the listing view of one archived run.
type RunSummary struct {
	RunID        string               `json:"runId"`
	Strategy     coordinator.Strategy `json:"strategy"`
	Success      bool                 `json:"success"`
	QualityScore int                  `json:"qualityScore"`
	InsightCount int                  `json:"insightCount"`
	Agents       []string             `json:"agents,omitempty"`
	FailedAgents []string             `json:"failedAgents,omitempty"`
	StartedAt    time.Time            `json:"startedAt"`
	Elapsed      time.Duration        `json:"elapsed"`
}

// Summarize reduces a full report to its listing view.
func Summarize(rep *coordinator.AggregatedReport) RunSummary {
	seen := make(map[string]bool, len(rep.Reports))
	var agents []string
	for _, r := range rep.Reports {
		if !seen[r.Agent] {
			seen[r.Agent] = true
			agents = append(agents, r.Agent)
		}
	}
	return RunSummary{
		RunID:        rep.RunID,
		Strategy:     rep.Strategy,
		Success:      rep.Success,
		QualityScore: rep.QualityScore,
		InsightCount: len(rep.Insights),
		Agents:       agents,
		FailedAgents: rep.FailedAgents(),
		StartedAt:    rep.StartedAt,
		Elapsed:      rep.Elapsed,
	}
}

// SaveRun writes the report to dir as <runID>.json, creating dir as
// needed, and returns the file path.
func SaveRun(dir string, rep *coordinator.AggregatedReport) (string, error) {
	if rep == nil || rep.RunID == "" {
		return "", fmt.Errorf("status: report has no run ID")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("status: create history dir: %w", err)
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("status: marshal run %s: %w", rep.RunID, err)
	}

	path := filepath.Join(dir, rep.RunID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("status: write run %s: %w", rep.RunID, err)
	}
	return path, nil
}

// LoadRun reads one archived run by ID.
func LoadRun(dir, runID string) (*coordinator.AggregatedReport, error) {
	path := filepath.Join(dir, runID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("status: run %s not found in %s", runID, dir)
		}
		return nil, fmt.Errorf("status: read run %s: %w", runID, err)
	}
	var rep coordinator.AggregatedReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("status: parse run %s: %w", runID, err)
	}
	return &rep, nil
}

// ListRuns summarizes every archived run in dir, newest first. A missing
// directory means no runs, not an error; unreadable or corrupt entries are
// skipped.
func ListRuns(dir string) ([]RunSummary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("status: read history dir: %w", err)
	}

	var runs []RunSummary
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		runID := strings.TrimSuffix(entry.Name(), ".json")
		rep, err := LoadRun(dir, runID)
		if err != nil {
			continue
		}
		runs = append(runs, Summarize(rep))
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}

// LatestRun loads the most recently started archived run.
func LatestRun(dir string) (*coordinator.AggregatedReport, error) {
	runs, err := ListRuns(dir)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("status: no runs archived in %s", dir)
	}
	return LoadRun(dir, runs[0].RunID)
}
