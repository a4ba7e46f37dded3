package codescan

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Resolver rewrites raw import specifiers into repo-relative file paths that
// match FileScan.Path values, so the dependency graph only contains edges
// between files that were actually scanned. Imports of external packages and
// the standard library resolve to nothing and are dropped by callers.
type Resolver struct {
	fileSet   map[string]bool
	dirIndex  map[string][]string
	goModPath string
}

// NewResolver builds a Resolver from a repository scan. It reads go.mod under
// the scan root, when present, to recognize module-internal Go imports.
func NewResolver(repo *RepoScan) *Resolver {
	r := &Resolver{
		fileSet:  make(map[string]bool, len(repo.Files)),
		dirIndex: make(map[string][]string),
	}

	for _, f := range repo.Files {
		r.fileSet[f.Path] = true
		dir := filepath.Dir(f.Path)
		r.dirIndex[dir] = append(r.dirIndex[dir], f.Path)
	}

	r.goModPath = readGoModulePath(filepath.Join(repo.Root, "go.mod"))

	return r
}

// Resolve maps one import from sourceFile to a repo-relative file path.
// The second return value is false for external or unresolvable imports.
func (r *Resolver) Resolve(imp Import, sourceFile string, lang Language) (string, bool) {
	switch lang {
	case LangGo:
		return r.resolveGo(imp.Path)
	case LangTypeScript:
		return r.resolveTS(imp.Path, sourceFile)
	case LangPython:
		return r.resolvePython(imp.Path, sourceFile)
	case LangRust:
		return r.resolveRust(imp.Path, sourceFile)
	default:
		return "", false
	}
}

// --- Go resolution ---

func (r *Resolver) resolveGo(importPath string) (string, bool) {
	if r.goModPath == "" {
		return "", false
	}
	if !strings.HasPrefix(importPath, r.goModPath) {
		return "", false // stdlib or external module
	}

	relDir := strings.TrimPrefix(importPath, r.goModPath)
	relDir = strings.TrimPrefix(relDir, "/")
	if relDir == "" {
		relDir = "."
	}

	// Pick the first non-test .go file in that directory, sorted for
	// determinism.
	files := r.dirIndex[relDir]
	if len(files) == 0 {
		return "", false
	}
	sorted := make([]string, len(files))
	copy(sorted, files)
	sort.Strings(sorted)
	for _, f := range sorted {
		if strings.HasSuffix(f, ".go") && !strings.HasSuffix(f, "_test.go") {
			return f, true
		}
	}
	return "", false
}

// --- TypeScript resolution ---

var tsExtensions = []string{".ts", ".tsx", "/index.ts", "/index.tsx"}

func (r *Resolver) resolveTS(importPath, sourceFile string) (string, bool) {
	if !strings.HasPrefix(importPath, "./") && !strings.HasPrefix(importPath, "../") {
		return "", false // package import
	}
	sourceDir := filepath.Dir(sourceFile)
	base := filepath.Clean(filepath.Join(sourceDir, importPath))
	return r.probeFile(filepath.ToSlash(base), tsExtensions)
}

// --- Python resolution ---

func (r *Resolver) resolvePython(importPath, sourceFile string) (string, bool) {
	if strings.HasPrefix(importPath, ".") {
		return r.resolvePythonRelative(importPath, sourceFile)
	}

	// Absolute dotted import, probed from the repo root. Covers layouts where
	// the repo root is on sys.path, e.g. "core.governance" → core/governance.py.
	relPath := strings.ReplaceAll(importPath, ".", "/")
	return r.probeFile(relPath, []string{".py", "/__init__.py"})
}

func (r *Resolver) resolvePythonRelative(importPath, sourceFile string) (string, bool) {
	// Count leading dots: one dot is the current package, each extra dot
	// walks one directory up.
	dots := 0
	for _, c := range importPath {
		if c != '.' {
			break
		}
		dots++
	}

	baseDir := filepath.Dir(sourceFile)
	for i := 1; i < dots; i++ {
		baseDir = filepath.Dir(baseDir)
	}

	modulePart := importPath[dots:]
	if modulePart == "" {
		return r.probeFile(filepath.ToSlash(filepath.Join(baseDir, "__init__")), []string{".py"})
	}

	relPath := strings.ReplaceAll(modulePart, ".", "/")
	base := filepath.Join(baseDir, relPath)
	return r.probeFile(filepath.ToSlash(base), []string{".py", "/__init__.py"})
}

// --- Rust resolution ---

func (r *Resolver) resolveRust(importPath, sourceFile string) (string, bool) {
	// Strip use-list braces: "crate::model::{Repo, User}" → "crate::model".
	if idx := strings.Index(importPath, "::{"); idx != -1 {
		importPath = importPath[:idx]
	}

	switch {
	case strings.HasPrefix(importPath, "crate::"):
		modulePath := strings.TrimPrefix(importPath, "crate::")
		relPath := strings.ReplaceAll(modulePath, "::", "/")

		candidates := []string{
			filepath.Join("src", relPath),
			relPath,
		}
		if srcDir := findCrateRoot(sourceFile); srcDir != "" {
			candidates = append(candidates, filepath.Join(srcDir, relPath))
		}
		for _, base := range candidates {
			if resolved, ok := r.probeFile(filepath.ToSlash(base), []string{".rs", "/mod.rs"}); ok {
				return resolved, true
			}
		}
		return "", false

	case strings.HasPrefix(importPath, "self::"):
		modulePath := strings.TrimPrefix(importPath, "self::")
		relPath := strings.ReplaceAll(modulePath, "::", "/")
		base := filepath.Join(filepath.Dir(sourceFile), relPath)
		return r.probeFile(filepath.ToSlash(base), []string{".rs", "/mod.rs"})

	case strings.HasPrefix(importPath, "super::"):
		modulePath := strings.TrimPrefix(importPath, "super::")
		relPath := strings.ReplaceAll(modulePath, "::", "/")
		base := filepath.Join(filepath.Dir(filepath.Dir(sourceFile)), relPath)
		return r.probeFile(filepath.ToSlash(base), []string{".rs", "/mod.rs"})

	default:
		return "", false // external crate
	}
}

// findCrateRoot walks up from a file path to find the nearest "src" directory,
// which is the conventional Rust crate source root.
func findCrateRoot(filePath string) string {
	dir := filepath.Dir(filePath)
	for dir != "." && dir != "/" && dir != "" {
		if filepath.Base(dir) == "src" {
			return dir
		}
		dir = filepath.Dir(dir)
	}
	return ""
}

// --- Shared helpers ---

// probeFile checks if basePath (with any of the given extensions appended)
// exists in the known file set. No filesystem I/O.
func (r *Resolver) probeFile(basePath string, extensions []string) (string, bool) {
	if r.fileSet[basePath] {
		return basePath, true
	}
	for _, ext := range extensions {
		candidate := basePath + ext
		if r.fileSet[candidate] {
			return candidate, true
		}
	}
	return "", false
}

// readGoModulePath returns the module path declared in a go.mod file, or the
// empty string when the file is missing or malformed.
func readGoModulePath(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if rest, ok := strings.CutPrefix(line, "module "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}
