package codescan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pyFile(path string, imports ...string) *FileScan {
	f := &FileScan{Path: path, Language: LangPython}
	for _, imp := range imports {
		f.Imports = append(f.Imports, Import{Path: imp})
	}
	return f
}

func TestDependencyGraph_Cycles(t *testing.T) {
	repo := repoWithGoMod(t, "",
		pyFile("a.py", ".b"),
		pyFile("b.py", ".a"),
		pyFile("c.py", ".a"),
	)

	g := BuildDependencyGraph(repo)

	cycles := g.Cycles()
	require.Len(t, cycles, 1, "a<->b is the only cycle")
	assert.Equal(t, []string{"a.py", "b.py"}, cycles[0])
}

func TestDependencyGraph_ThreeNodeCycle(t *testing.T) {
	repo := repoWithGoMod(t, "",
		pyFile("x.py", ".y"),
		pyFile("y.py", ".z"),
		pyFile("z.py", ".x"),
	)

	g := BuildDependencyGraph(repo)

	cycles := g.Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"x.py", "y.py", "z.py"}, cycles[0], "cycle starts at its smallest member")
}

func TestDependencyGraph_NoCycles(t *testing.T) {
	repo := repoWithGoMod(t, "",
		pyFile("a.py", ".b", ".c"),
		pyFile("b.py", ".c"),
		pyFile("c.py"),
	)

	g := BuildDependencyGraph(repo)

	assert.Empty(t, g.Cycles())
	assert.Equal(t, []string{"b.py", "c.py"}, g.Dependencies("a.py"))
}

func TestDependencyGraph_FanIn(t *testing.T) {
	repo := repoWithGoMod(t, "",
		pyFile("a.py", ".shared"),
		pyFile("b.py", ".shared"),
		pyFile("shared.py"),
	)

	g := BuildDependencyGraph(repo)

	fanIn := g.FanIn()
	assert.Equal(t, 2, fanIn["shared.py"])
	assert.NotContains(t, fanIn, "a.py", "files nothing imports are absent")
}

func TestDependencyGraph_DedupesAndSkipsSelfEdges(t *testing.T) {
	repo := repoWithGoMod(t, "",
		pyFile("a.py", ".b", ".b", ".a"),
		pyFile("b.py"),
	)

	g := BuildDependencyGraph(repo)

	assert.Equal(t, []string{"b.py"}, g.Dependencies("a.py"))
	assert.Empty(t, g.Cycles(), "a self import is not a cycle")
}

func TestDependencyGraph_UnresolvableImportsDropped(t *testing.T) {
	repo := repoWithGoMod(t, "",
		pyFile("a.py", "os", "json", ".b"),
		pyFile("b.py"),
	)

	g := BuildDependencyGraph(repo)

	assert.Equal(t, []string{"b.py"}, g.Dependencies("a.py"))
}
