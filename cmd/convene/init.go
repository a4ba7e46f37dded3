package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dusk-indust/convene/internal/scaffold"
)

// mcpConfig represents the structure of a .mcp.json file.
type mcpConfig struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// conveneMCPEntry is the MCP server configuration for the convene binary.
var conveneMCPEntry = json.RawMessage(`{
  "type": "stdio",
  "command": "convene",
  "args": ["--serve-mcp"]
}`)

// runInit installs the starter configuration and MCP registration into the
// project directory.
func runInit(projectRoot string, args []string) error {
	fs := flag.NewFlagSet("convene init", flag.ContinueOnError)
	force := fs.Bool("force", false, "overwrite files that already exist")
	if err := fs.Parse(args); err != nil {
		return err
	}

	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}

	starters := []struct {
		src  string
		dest string
	}{
		{"starter/convene.yml", filepath.Join(abs, "convene.yml")},
		{"starter/policy.yml", filepath.Join(abs, ".convene", "policy.yml")},
	}
	for _, s := range starters {
		if err := installStarter(abs, s.src, s.dest, *force); err != nil {
			return err
		}
	}

	if err := mergeMCPConfig(filepath.Join(abs, ".mcp.json"), *force); err != nil {
		return err
	}

	fmt.Println("\nSetup complete. Run 'convene run' to review this repository.")
	return nil
}

// installStarter copies one embedded starter file into place, skipping
// existing files unless force is set.
func installStarter(base, src, dest string, force bool) error {
	if !force {
		if _, err := os.Stat(dest); err == nil {
			fmt.Printf("  skipped %s (exists, use --force to overwrite)\n", dotRelative(base, dest))
			return nil
		}
	}

	data, err := scaffold.StarterFS.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading embedded %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}

	fmt.Printf("  created %s\n", dotRelative(base, dest))
	return nil
}

// mergeMCPConfig creates or merges the convene entry into .mcp.json.
func mergeMCPConfig(mcpPath string, force bool) error {
	var cfg mcpConfig

	data, err := os.ReadFile(mcpPath)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", mcpPath, err)
		}
	}

	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]json.RawMessage)
	}

	if _, exists := cfg.MCPServers["convene"]; exists && !force {
		fmt.Printf("  skipped .mcp.json convene entry (exists, use --force to overwrite)\n")
		return nil
	}

	cfg.MCPServers["convene"] = conveneMCPEntry

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling .mcp.json: %w", err)
	}

	if err := os.WriteFile(mcpPath, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", mcpPath, err)
	}

	action := "created"
	if data != nil {
		action = "updated"
	}
	fmt.Printf("  %s .mcp.json with convene MCP server\n", action)
	return nil
}

// dotRelative returns a display path relative to the project root,
// prefixed with "./".
func dotRelative(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return "./" + rel
}
