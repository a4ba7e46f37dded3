package codescan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/convene/internal/policy"
)

// writeTree materializes a map of relative path to content under a temp dir.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestScanTree(t *testing.T) {
	root := writeTree(t, map[string]string{
		"go.mod": "module example.com/fix\n\ngo 1.25.0\n",
		"main.go": `package main

import (
	"fmt"

	"example.com/fix/store"
)

func main() {
	fmt.Println(store.Open())
	panic("unreachable")
}
`,
		"store/store.go": `package store

const apiKey = "sk-embedded"

func Open() string { return apiKey }
`,
		"node_modules/junk.ts": "var x = 1;\n",
		"docs/readme.md":       "# docs\n",
		"broken/skip.py":       "import os\n",
	})

	scanner := NewTreeSitterScanner(policy.Default())
	defer scanner.Close()

	repo, err := ScanTree(context.Background(), scanner, root, []string{"broken"})
	require.NoError(t, err)
	require.NotNil(t, repo)

	paths := make([]string, 0, len(repo.Files))
	for _, f := range repo.Files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"main.go", "store/store.go"}, paths,
		"markdown ignored, node_modules and excluded dirs skipped")

	assert.Equal(t, map[Language]int{LangGo: 2}, repo.FilesByLanguage())
	assert.Greater(t, repo.TotalLOC(), 0)

	security := repo.FindingsInCategory(CategorySecurity)
	require.Len(t, security, 1)
	assert.Equal(t, RuleHardcodedCredential, security[0].Rule)
	assert.Equal(t, "store/store.go", security[0].Path)

	reliability := repo.FindingsInCategory(CategoryReliability)
	require.Len(t, reliability, 1)
	assert.Equal(t, RulePanicCall, reliability[0].Rule)

	// The walk output feeds straight into the dependency graph.
	g := BuildDependencyGraph(repo)
	assert.Equal(t, []string{"store/store.go"}, g.Dependencies("main.go"))
	assert.Empty(t, g.Cycles())
}

func TestScanTree_LanguageRestriction(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.go":   "package main\n\nfunc main() {}\n",
		"tool.py":   "import sys\n",
		"ui/app.ts": "const x = 1;\n",
	})

	scanner := NewTreeSitterScanner(policy.Default())
	defer scanner.Close()

	repo, err := ScanTree(context.Background(), scanner, root, nil, LangGo, LangPython)
	require.NoError(t, err)
	assert.Equal(t, map[Language]int{LangGo: 1, LangPython: 1}, repo.FilesByLanguage())
}

func TestParseLanguage(t *testing.T) {
	lang, ok := ParseLanguage("typescript")
	require.True(t, ok)
	assert.Equal(t, LangTypeScript, lang)

	_, ok = ParseLanguage("cobol")
	assert.False(t, ok)
}

func TestScanTree_MissingRoot(t *testing.T) {
	scanner := NewTreeSitterScanner(policy.Default())
	defer scanner.Close()

	_, err := ScanTree(context.Background(), scanner, filepath.Join(t.TempDir(), "absent"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access repo path")
}

func TestScanTree_CancelledContext(t *testing.T) {
	root := writeTree(t, map[string]string{"main.go": "package main\n"})

	scanner := NewTreeSitterScanner(policy.Default())
	defer scanner.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ScanTree(ctx, scanner, root, nil)
	require.ErrorIs(t, err, context.Canceled)
}
