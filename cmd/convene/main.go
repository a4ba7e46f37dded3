// Command convene reviews a repository with a coordinated team of
// specialist agents. Finished runs are archived under .convene/runs; the
// same collaborations are reachable as MCP tools via --serve-mcp, and a
// single specialist can be exposed to remote coordinators with serve-agent.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dusk-indust/convene/internal/codescan"
	"github.com/dusk-indust/convene/internal/config"
	"github.com/dusk-indust/convene/internal/policy"
	"github.com/dusk-indust/convene/internal/status"
)

// CLI flags parsed before the subcommand.
type cliFlags struct {
	ProjectRoot string
	MCPAddr     string
	ServeMCP    bool
	Version     bool
}

// version is set by goreleaser at build time.
var version = "dev"

const usageHeader = `usage: convene [flags] <command> [command flags]

Commands:
  run          review a repository with a specialist team
  status       list archived runs, or show one in detail
  export       print an archived run as JSON or a mermaid diagram
  init         write convene.yml and register the MCP server in .mcp.json
  serve-agent  expose one specialist over HTTP for remote coordinators

Flags:
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var flags cliFlags

	fs := flag.NewFlagSet("convene", flag.ContinueOnError)
	fs.StringVar(&flags.ProjectRoot, "project-root", ".", "directory holding convene.yml and the run archive")
	fs.StringVar(&flags.MCPAddr, "mcp-addr", "", "serve MCP over streamable HTTP on this address instead of stdio")
	fs.BoolVar(&flags.ServeMCP, "serve-mcp", false, "run as MCP server for coding-agent integration")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usageHeader)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Println(version)
		return nil
	}
	if flags.ServeMCP || flags.MCPAddr != "" {
		return runServeMCP(flags.ProjectRoot, flags.MCPAddr)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return fmt.Errorf("missing command")
	}

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "run":
		return runRun(flags.ProjectRoot, cmdArgs)
	case "status":
		return runStatus(flags.ProjectRoot, cmdArgs)
	case "export":
		return runExport(flags.ProjectRoot, cmdArgs)
	case "init":
		return runInit(flags.ProjectRoot, cmdArgs)
	case "serve-agent":
		return runServeAgent(flags.ProjectRoot, cmdArgs)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// loadPolicy overlays the project's policy file, when one is configured,
// on the built-in defaults.
func loadPolicy(projectRoot string, cfg *config.ProjectConfig) (policy.Policy, error) {
	if cfg.PolicyFile == "" {
		return policy.Default(), nil
	}
	return policy.LoadFile(resolvePath(projectRoot, cfg.PolicyFile))
}

// historyDir is where this project's finished runs are archived.
func historyDir(projectRoot string, cfg *config.ProjectConfig) string {
	if cfg.HistoryDir != "" {
		return resolvePath(projectRoot, cfg.HistoryDir)
	}
	return filepath.Join(projectRoot, status.DefaultHistoryDir)
}

// resolveRepo picks the repository under review: the -repo flag wins, then
// repoPath from convene.yml, then the project root itself.
func resolveRepo(projectRoot, flagRepo string, cfg *config.ProjectConfig) string {
	if flagRepo != "" {
		return flagRepo
	}
	if cfg.RepoPath != "" {
		return resolvePath(projectRoot, cfg.RepoPath)
	}
	return projectRoot
}

// scanLanguages converts the configured language names to scanner
// languages. Unknown names are an error.
func scanLanguages(cfg *config.ProjectConfig) ([]codescan.Language, error) {
	var langs []codescan.Language
	for _, name := range cfg.Languages {
		lang, ok := codescan.ParseLanguage(name)
		if !ok {
			return nil, fmt.Errorf("config: unknown language %q (want go, python, typescript, or rust)", name)
		}
		langs = append(langs, lang)
	}
	return langs, nil
}

// resolvePath resolves a config-relative path against the project root.
func resolvePath(projectRoot, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(projectRoot, path)
}
