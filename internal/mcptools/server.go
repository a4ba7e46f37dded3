package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewConveneMCPServer creates an MCP server with the 4 collaboration tools
// registered: run_collaboration, get_run, list_runs, and export_run.
func NewConveneMCPServer(svc *CoordinatorService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "convene",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_collaboration",
		Description: "Run a multi-agent review of a repository. Schedules the specialist agents under the chosen strategy, shares insights between them, and returns the scored summary of the aggregated report.",
	}, svc.RunCollaboration)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_run",
		Description: "Fetch one archived collaboration run with every agent's insights. Defaults to the most recent run.",
	}, svc.GetRun)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_runs",
		Description: "List archived collaboration runs, newest first, with per-run success, score, and participant summaries.",
	}, svc.ListRuns)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_run",
		Description: "Render an archived run as indented JSON or a mermaid sequence diagram of the agent interactions.",
	}, svc.ExportRun)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP tools over streamable HTTP on addr, shutting down
// gracefully when the context is cancelled.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
