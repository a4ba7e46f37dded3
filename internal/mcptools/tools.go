package mcptools

import (
	"github.com/dusk-indust/convene/internal/export"
	"github.com/dusk-indust/convene/internal/status"
)

// --- MCP Tool Types ---
// These structs define the JSON schema for each MCP tool's input and
// output. The MCP Go SDK auto-generates JSON schemas from struct tags.

// RunCollaborationInput is the input for the run_collaboration MCP tool.
type RunCollaborationInput struct {
	RepoPath      string   `json:"repoPath,omitempty" jsonschema:"path to the repository to review (default: the server's configured repository)"`
	Strategy      string   `json:"strategy,omitempty" jsonschema:"scheduling strategy: sequential, parallel, conditional, or iterative (default: parallel)"`
	Agents        []string `json:"agents,omitempty" jsonschema:"agent roles to include: security, reviewer, architect, devops (default: all)"`
	MaxIterations int      `json:"maxIterations,omitempty" jsonschema:"iteration cap for the iterative strategy (default: 5)"`
	TargetScore   int      `json:"targetScore,omitempty" jsonschema:"quality score at which conditional and iterative runs stop (default: the policy threshold)"`
}

// RunCollaborationOutput is the result of the run_collaboration MCP tool.
type RunCollaborationOutput struct {
	RunID        string   `json:"runId"`
	Strategy     string   `json:"strategy"`
	Success      bool     `json:"success"`
	QualityScore int      `json:"qualityScore"`
	InsightCount int      `json:"insightCount"`
	Agents       []string `json:"agents"`
	FailedAgents []string `json:"failedAgents,omitempty"`
	Conflicts    int      `json:"conflicts,omitempty"`
	Iterations   int      `json:"iterations,omitempty"`
	Elapsed      string   `json:"elapsed"`
	ArchivePath  string   `json:"archivePath,omitempty"`
}

// GetRunInput is the input for the get_run MCP tool.
type GetRunInput struct {
	RunID string `json:"runId,omitempty" jsonschema:"run to fetch (default: the most recent archived run)"`
}

// GetRunOutput is the result of the get_run MCP tool.
type GetRunOutput struct {
	Run *export.RunExport `json:"run"`
}

// ListRunsInput is the input for the list_runs MCP tool.
type ListRunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs to return, newest first (default: 20)"`
}

// ListRunsOutput is the result of the list_runs MCP tool.
type ListRunsOutput struct {
	Runs  []status.RunSummary `json:"runs"`
	Total int                 `json:"total"`
}

// ExportRunInput is the input for the export_run MCP tool.
type ExportRunInput struct {
	RunID  string `json:"runId,omitempty" jsonschema:"run to export (default: the most recent archived run)"`
	Format string `json:"format,omitempty" jsonschema:"output format: json or mermaid (default: json)"`
}

// ExportRunOutput is the result of the export_run MCP tool.
type ExportRunOutput struct {
	Format  string `json:"format"`
	Content string `json:"content"`
}
