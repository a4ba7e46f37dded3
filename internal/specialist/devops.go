package specialist

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dusk-indust/convene/internal/agent"
)

// CategoryDevOps tags insights about build, packaging, and CI setup.
const CategoryDevOps = "devops"

// skipDirs is the set of directory names to skip when walking a project tree.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".venv":        true,
	"dist":         true,
	"build":        true,
	".next":        true,
	"target":       true,
}

// knownConfigFiles lists config file names that indicate platform/tooling
// choices.
var knownConfigFiles = []string{
	"go.mod",
	"go.sum",
	"package.json",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"Cargo.toml",
	"Cargo.lock",
	"pyproject.toml",
	"requirements.txt",
	"Makefile",
	"Dockerfile",
	"docker-compose.yml",
	"docker-compose.yaml",
	".dockerignore",
	"tsconfig.json",
	"flake.nix",
}

// DevOps reviews the operational surface of a workspace: container build
// hygiene and CI presence. It reads the tree directly instead of the
// tree-sitter scan since its subjects are config files, not source.
type DevOps struct {
	*agent.BaseAgent
	ws *Workspace
}

// NewDevOps creates the devops engineer over a workspace.
func NewDevOps(ws *Workspace) *DevOps {
	d := &DevOps{ws: ws}
	d.BaseAgent = agent.NewBaseAgent(agent.NameDevOps, d.run)
	return d
}

func (d *DevOps) run(ctx context.Context, _ agent.ExecutionContext) ([]agent.Insight, error) {
	configFiles, hasCI, err := d.surveyTree(ctx)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(configFiles))
	for _, cf := range configFiles {
		present[filepath.Base(cf)] = true
	}

	var insights []agent.Insight

	if present["Dockerfile"] && !present[".dockerignore"] {
		insights = append(insights, agent.NewInsight(agent.SeverityWarning,
			"Dockerfile without .dockerignore sends the whole tree as build context").
			WithCategory(CategoryDevOps).
			With("rule", "missing-dockerignore"))
	}

	if !hasCI {
		insights = append(insights, agent.NewInsight(agent.SeverityWarning,
			"no CI workflow found under .github/workflows").
			WithCategory(CategoryDevOps).
			With("rule", "missing-ci"))
	}

	if present["docker-compose.yml"] || present["docker-compose.yaml"] {
		insights = append(insights, agent.NewInsight(agent.SeverityInfo,
			"compose stack detected").
			WithCategory(CategoryDevOps).
			With("rule", "compose-present"))
	}

	insights = append(insights, agent.NewInsight(agent.SeverityInfo,
		fmt.Sprintf("%d build and tooling config files", len(configFiles))).
		WithCategory(CategoryDevOps).
		With("configFiles", configFiles))

	return insights, nil
}

// surveyTree walks the workspace collecting known config files and checking
// for CI workflow definitions.
func (d *DevOps) surveyTree(ctx context.Context) (configFiles []string, hasCI bool, err error) {
	root := d.ws.Path()
	if _, err := os.Stat(root); err != nil {
		return nil, false, fmt.Errorf("cannot access repo path: %w", err)
	}

	knownSet := make(map[string]bool, len(knownConfigFiles))
	for _, cf := range knownConfigFiles {
		knownSet[cf] = true
	}

	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip entries we cannot read
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		name := entry.Name()
		if entry.IsDir() {
			// .github must stay walkable for workflow detection.
			if skipDirs[name] || (strings.HasPrefix(name, ".") && path != root && name != ".github") {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if knownSet[name] {
			configFiles = append(configFiles, rel)
		}

		ext := filepath.Ext(name)
		if strings.HasPrefix(rel, ".github/workflows/") && (ext == ".yml" || ext == ".yaml") {
			hasCI = true
		}

		return nil
	})
	if walkErr != nil {
		return nil, false, fmt.Errorf("survey %s: %w", root, walkErr)
	}

	return configFiles, hasCI, nil
}
