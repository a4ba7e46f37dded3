package specialist

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/convene/internal/agent"
	"github.com/dusk-indust/convene/internal/codescan"
)

// CategoryArchitecture tags insights about the dependency structure.
const CategoryArchitecture = "architecture"

// hubFanInThreshold is the number of importers above which a file is
// reported as a coupling hub.
const hubFanInThreshold = 5

// Architect reports on the dependency structure of a workspace: import
// cycles and files with high fan-in.
type Architect struct {
	*agent.BaseAgent
	ws *Workspace
}

// NewArchitect creates the architect over a workspace.
func NewArchitect(ws *Workspace) *Architect {
	a := &Architect{ws: ws}
	a.BaseAgent = agent.NewBaseAgent(agent.NameArchitect, a.run)
	return a
}

func (a *Architect) run(ctx context.Context, _ agent.ExecutionContext) ([]agent.Insight, error) {
	repo, err := a.ws.Scan(ctx)
	if err != nil {
		return nil, err
	}

	graph := codescan.BuildDependencyGraph(repo)

	var insights []agent.Insight

	cycles := graph.Cycles()
	for _, cycle := range cycles {
		insights = append(insights, agent.NewInsight(agent.SeverityError,
			"import cycle: "+strings.Join(cycle, " -> ")).
			WithCategory(CategoryArchitecture).
			With("cycle", cycle))
	}

	fanIn := graph.FanIn()
	hubs := make([]string, 0, len(fanIn))
	for file, importers := range fanIn {
		if importers >= hubFanInThreshold {
			hubs = append(hubs, file)
		}
	}
	sort.Strings(hubs)
	for _, file := range hubs {
		insights = append(insights, agent.NewInsight(agent.SeverityWarning,
			fmt.Sprintf("%s is imported by %d files", file, fanIn[file])).
			WithCategory(CategoryArchitecture).
			With("file", file).
			With("fanIn", fanIn[file]))
	}

	if len(cycles) == 0 {
		insights = append(insights, agent.NewInsight(agent.SeverityInfo,
			fmt.Sprintf("no import cycles across %d files", len(repo.Files))).
			WithCategory(CategoryArchitecture).
			With("files", len(repo.Files)))
	}

	return insights, nil
}
