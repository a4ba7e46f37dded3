package codescan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// alwaysSkipDirs are directory names never worth scanning. Callers add
// repo-specific exclusions on top via ScanTree's excludes argument.
var alwaysSkipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"target":       true,
	"dist":         true,
	"__pycache__":  true,
	".venv":        true,
}

// RepoScan aggregates the per-file scans of one repository tree.
type RepoScan struct {
	Root  string      `json:"root"`
	Files []*FileScan `json:"files"`
}

// ScanTree walks root, scans every supported source file, and returns the
// aggregate. When only is non-empty the walk is restricted to those
// languages. Unreadable and unparseable files are skipped rather than failing
// the whole walk; a missing or non-directory root is an error.
func ScanTree(ctx context.Context, scanner Scanner, root string, excludes []string, only ...Language) (*RepoScan, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot access repo path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repo path is not a directory: %s", root)
	}

	excludeSet := make(map[string]bool, len(excludes))
	for _, d := range excludes {
		excludeSet[d] = true
	}
	langSet := make(map[Language]bool, len(only))
	for _, lang := range only {
		langSet[lang] = true
	}

	repo := &RepoScan{Root: root}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if alwaysSkipDirs[name] || excludeSet[name] {
				return filepath.SkipDir
			}
			return nil
		}

		lang, ok := DetectLanguage(filepath.Ext(path))
		if !ok {
			return nil
		}
		if len(langSet) > 0 && !langSet[lang] {
			return nil
		}

		source, err := os.ReadFile(path)
		if err != nil {
			return nil // skip unreadable files
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			relPath = path
		}
		relPath = filepath.ToSlash(relPath)

		scan, err := scanner.Scan(ctx, relPath, source, lang)
		if err != nil {
			return nil // skip unparseable files
		}
		repo.Files = append(repo.Files, scan)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return repo, nil
}

// Findings flattens every file's findings in walk order.
func (r *RepoScan) Findings() []Finding {
	var all []Finding
	for _, f := range r.Files {
		all = append(all, f.Findings...)
	}
	return all
}

// FindingsInCategory returns the findings whose category matches.
func (r *RepoScan) FindingsInCategory(category string) []Finding {
	var out []Finding
	for _, f := range r.Findings() {
		if f.Category == category {
			out = append(out, f)
		}
	}
	return out
}

// TotalLOC sums the line counts of every scanned file.
func (r *RepoScan) TotalLOC() int {
	total := 0
	for _, f := range r.Files {
		total += f.LOC
	}
	return total
}

// FilesByLanguage counts scanned files per language.
func (r *RepoScan) FilesByLanguage() map[Language]int {
	counts := make(map[Language]int)
	for _, f := range r.Files {
		counts[f.Language]++
	}
	return counts
}
