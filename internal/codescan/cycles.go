package codescan

import (
	"sort"
	"strings"
)

// DependencyGraph is the file-level import graph of a scanned repository.
// Edges point from the importing file to the imported file; only imports that
// resolve to scanned files appear.
type DependencyGraph struct {
	nodes []string            // sorted
	adj   map[string][]string // sorted, deduped
}

// BuildDependencyGraph resolves every file's imports against the scan and
// assembles the directed graph.
func BuildDependencyGraph(repo *RepoScan) *DependencyGraph {
	resolver := NewResolver(repo)

	g := &DependencyGraph{adj: make(map[string][]string, len(repo.Files))}

	for _, f := range repo.Files {
		seen := make(map[string]bool)
		for _, imp := range f.Imports {
			target, ok := resolver.Resolve(imp, f.Path, f.Language)
			if !ok || target == f.Path || seen[target] {
				continue
			}
			seen[target] = true
			g.adj[f.Path] = append(g.adj[f.Path], target)
		}
		g.nodes = append(g.nodes, f.Path)
	}

	sort.Strings(g.nodes)
	for _, neighbors := range g.adj {
		sort.Strings(neighbors)
	}

	return g
}

// Dependencies returns the files that path imports, sorted.
func (g *DependencyGraph) Dependencies(path string) []string {
	return g.adj[path]
}

// FanIn counts, per file, how many other files import it. Files nothing
// imports are absent from the map.
func (g *DependencyGraph) FanIn() map[string]int {
	counts := make(map[string]int)
	for _, neighbors := range g.adj {
		for _, n := range neighbors {
			counts[n]++
		}
	}
	return counts
}

// Cycles returns every distinct import cycle as a slice of file paths in
// import order, starting from the lexicographically smallest member. Cycles
// are sorted by their first member.
func (g *DependencyGraph) Cycles() [][]string {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)

	state := make(map[string]int, len(g.nodes))
	var stack []string
	var cycles [][]string
	seen := make(map[string]bool)

	var visit func(node string)
	visit = func(node string) {
		state[node] = inStack
		stack = append(stack, node)

		for _, next := range g.adj[node] {
			switch state[next] {
			case unvisited:
				visit(next)
			case inStack:
				// Slice the cycle out of the current stack.
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == next {
						cycle := canonicalCycle(stack[i:])
						key := strings.Join(cycle, "\x00")
						if !seen[key] {
							seen[key] = true
							cycles = append(cycles, cycle)
						}
						break
					}
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[node] = done
	}

	for _, node := range g.nodes {
		if state[node] == unvisited {
			visit(node)
		}
	}

	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i][0] < cycles[j][0]
	})
	return cycles
}

// canonicalCycle rotates a cycle so its lexicographically smallest member
// comes first, making equal cycles found from different entry points compare
// equal.
func canonicalCycle(cycle []string) []string {
	min := 0
	for i, p := range cycle {
		if p < cycle[min] {
			min = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[min:]...)
	out = append(out, cycle[:min]...)
	return out
}
