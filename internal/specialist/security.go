package specialist

import (
	"context"

	"github.com/dusk-indust/convene/internal/agent"
	"github.com/dusk-indust/convene/internal/codescan"
)

// Security reports the security findings of a workspace scan: hardcoded
// credentials, dangerous calls, and unsafe blocks.
type Security struct {
	*agent.BaseAgent
	ws *Workspace
}

// NewSecurity creates the security expert over a workspace.
func NewSecurity(ws *Workspace) *Security {
	s := &Security{ws: ws}
	s.BaseAgent = agent.NewBaseAgent(agent.NameSecurity, s.run)
	return s
}

func (s *Security) run(ctx context.Context, _ agent.ExecutionContext) ([]agent.Insight, error) {
	repo, err := s.ws.Scan(ctx)
	if err != nil {
		return nil, err
	}

	findings := repo.FindingsInCategory(codescan.CategorySecurity)
	insights := make([]agent.Insight, 0, len(findings)+1)
	for _, f := range findings {
		insights = append(insights, findingInsight(f))
	}

	if len(findings) == 0 {
		insights = append(insights, agent.NewInsight(agent.SeverityInfo, "no security findings").
			WithCategory(codescan.CategorySecurity).
			With("filesScanned", len(repo.Files)))
	}
	return insights, nil
}
