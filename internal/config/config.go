// Package config loads project-level settings from convene.yml. The file
// is optional; every field has a usable zero value so a repository without
// one still runs with defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectConfig holds project-level settings loaded from convene.yml.
// Command-line flags override any value set here.
type ProjectConfig struct {
	// Strategy is the default scheduling mode for runs started without an
	// explicit one: sequential, parallel, conditional, or iterative.
	Strategy string `yaml:"strategy,omitempty"`

	// Agents lists the participants by registry name. Empty means the full
	// default team.
	Agents []string `yaml:"agents,omitempty"`

	// RepoPath is the tree handed to the scanners when the command line
	// does not name one. Relative paths resolve against the config dir.
	RepoPath string `yaml:"repoPath,omitempty"`

	MaxIterations int `yaml:"maxIterations,omitempty"`
	MaxConcurrent int `yaml:"maxConcurrent,omitempty"`

	// ExcludeDirs are directory names skipped during repository scans, on
	// top of the built-in skip list.
	ExcludeDirs []string `yaml:"excludeDirs,omitempty"`

	// Languages restricts scanning to the named languages ("go", "python",
	// "typescript", "rust"). Empty scans everything supported.
	Languages []string `yaml:"languages,omitempty"`

	// PolicyFile points at a YAML fragment overlaid on the built-in score
	// and review policy.
	PolicyFile string `yaml:"policyFile,omitempty"`

	// RemoteEndpoints are base URLs probed for remote agents before a run.
	RemoteEndpoints []string `yaml:"remoteEndpoints,omitempty"`

	// HistoryDir overrides where finished runs are written. Defaults to
	// .convene/runs under the working directory.
	HistoryDir string `yaml:"historyDir,omitempty"`

	Verbose bool `yaml:"verbose,omitempty"`
}

// Load attempts to read convene.yml or convene.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"convene.yml", "convene.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}
