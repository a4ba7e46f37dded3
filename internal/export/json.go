// Package export renders finished collaboration runs for consumption
// outside the process: a stable JSON shape for tooling and Mermaid
// diagrams for humans.
package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dusk-indust/convene/internal/coordinator"
)

// RunExport is the top-level JSON export structure. Field names are part
// of the tool contract; add fields rather than renaming.
type RunExport struct {
	RunID        string           `json:"runId"`
	Strategy     string           `json:"strategy"`
	ExportedAt   string           `json:"exportedAt"`
	Success      bool             `json:"success"`
	QualityScore int              `json:"qualityScore"`
	Iterations   int              `json:"iterations,omitempty"`
	StartedAt    string           `json:"startedAt"`
	ElapsedMS    int64            `json:"elapsedMs"`
	Agents       []AgentExport    `json:"agents"`
	Insights     []InsightExport  `json:"insights"`
	Conflicts    []ConflictExport `json:"conflicts,omitempty"`
}

// AgentExport describes one agent invocation.
type AgentExport struct {
	Name      string `json:"name"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
	Insights  int    `json:"insights"`
	ElapsedMS int64  `json:"elapsedMs"`
	Iteration int    `json:"iteration,omitempty"`
}

// InsightExport is one insight with its producing agent attached, since
// the flattened report loses that attribution.
type InsightExport struct {
	Agent    string         `json:"agent"`
	Severity string         `json:"severity"`
	Title    string         `json:"title"`
	Category string         `json:"category,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// ConflictExport is a disagreement between two agents.
type ConflictExport struct {
	AgentA      string `json:"agentA"`
	AgentB      string `json:"agentB"`
	Topic       string `json:"topic"`
	Description string `json:"description"`
}

// ExportRun builds a RunExport from a finished report.
func ExportRun(rep *coordinator.AggregatedReport) *RunExport {
	out := &RunExport{
		RunID:        rep.RunID,
		Strategy:     string(rep.Strategy),
		ExportedAt:   time.Now().UTC().Format(time.RFC3339),
		Success:      rep.Success,
		QualityScore: rep.QualityScore,
		Iterations:   rep.Iterations,
		StartedAt:    rep.StartedAt.UTC().Format(time.RFC3339),
		ElapsedMS:    rep.Elapsed.Milliseconds(),
	}

	for _, r := range rep.Reports {
		out.Agents = append(out.Agents, AgentExport{
			Name:      r.Agent,
			Succeeded: r.Succeeded,
			Error:     r.Err,
			Insights:  len(r.Insights),
			ElapsedMS: r.Elapsed.Milliseconds(),
			Iteration: r.Iteration,
		})
		for _, ins := range r.Insights {
			out.Insights = append(out.Insights, InsightExport{
				Agent:    r.Agent,
				Severity: string(ins.Severity),
				Title:    ins.Title,
				Category: ins.Category,
				Data:     ins.Data,
			})
		}
	}

	for _, c := range rep.Conflicts {
		out.Conflicts = append(out.Conflicts, ConflictExport(c))
	}

	return out
}

// MarshalRun renders the report as indented JSON.
func MarshalRun(rep *coordinator.AggregatedReport) ([]byte, error) {
	data, err := json.MarshalIndent(ExportRun(rep), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: marshal run %s: %w", rep.RunID, err)
	}
	return append(data, '\n'), nil
}
