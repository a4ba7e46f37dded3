// Package specialist implements the built-in review team: security expert,
// code reviewer, architect, and devops engineer. Each specialist is an
// agent.Agent over a shared Workspace; what it knows about the other
// specialists' findings arrives only through the execution context the
// coordinator hands it.
//
// The implementations live here rather than in internal/agent because they
// depend on codescan, which itself imports internal/agent for the severity
// and insight vocabulary.
package specialist

import (
	"context"
	"sync"

	"github.com/dusk-indust/convene/internal/agent"
	"github.com/dusk-indust/convene/internal/codescan"
	"github.com/dusk-indust/convene/internal/policy"
)

// Workspace is the repository a team reviews. The tree-sitter scan is lazy
// and shared: the first specialist to need it pays for it, the rest reuse
// the result. Sharing raw scan data does not leak findings between agents;
// insights still travel only through the coordinator.
type Workspace struct {
	repoPath string
	excludes []string
	langs    []codescan.Language
	pol      policy.Policy
	scanner  codescan.Scanner

	once sync.Once
	repo *codescan.RepoScan
	err  error
}

// NewWorkspace creates a Workspace over a repository path. The excludes are
// directory names skipped during the scan, on top of the always-skipped set.
func NewWorkspace(repoPath string, pol policy.Policy, excludes ...string) *Workspace {
	return &Workspace{
		repoPath: repoPath,
		excludes: excludes,
		pol:      pol,
		scanner:  codescan.NewTreeSitterScanner(pol),
	}
}

// OnlyLanguages restricts the scan to the given languages and returns the
// workspace for chaining. It must be called before the first Scan; with no
// arguments every supported language is scanned.
func (w *Workspace) OnlyLanguages(langs ...codescan.Language) *Workspace {
	w.langs = langs
	return w
}

// Scan returns the repository scan, running it on first use. The context of
// the first caller bounds the walk; later callers get the cached result.
func (w *Workspace) Scan(ctx context.Context) (*codescan.RepoScan, error) {
	w.once.Do(func() {
		w.repo, w.err = codescan.ScanTree(ctx, w.scanner, w.repoPath, w.excludes, w.langs...)
	})
	return w.repo, w.err
}

// Path returns the repository path under review.
func (w *Workspace) Path() string {
	return w.repoPath
}

// Policy returns the review policy the workspace was built with.
func (w *Workspace) Policy() policy.Policy {
	return w.pol
}

// findingInsight converts a scan finding into an insight, carrying the
// location and rule in the data map.
func findingInsight(f codescan.Finding) agent.Insight {
	return agent.NewInsight(f.Severity, f.Message).
		WithCategory(f.Category).
		With("rule", f.Rule).
		With("file", f.Path).
		With("line", f.Line)
}
