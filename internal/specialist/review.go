package specialist

import (
	"context"
	"fmt"

	"github.com/dusk-indust/convene/internal/agent"
	"github.com/dusk-indust/convene/internal/codescan"
)

// Reviewer reports quality and reliability findings and scores the workspace
// against the review policy. The score lands in the summary insight's data
// under agent.DataKeyScore, where iteration predicates can read it.
type Reviewer struct {
	*agent.BaseAgent
	ws *Workspace
}

// NewReviewer creates the code reviewer over a workspace.
func NewReviewer(ws *Workspace) *Reviewer {
	r := &Reviewer{ws: ws}
	r.BaseAgent = agent.NewBaseAgent(agent.NameReviewer, r.run)
	return r
}

func (r *Reviewer) run(ctx context.Context, ec agent.ExecutionContext) ([]agent.Insight, error) {
	repo, err := r.ws.Scan(ctx)
	if err != nil {
		return nil, err
	}

	var findings []codescan.Finding
	findings = append(findings, repo.FindingsInCategory(codescan.CategoryQuality)...)
	findings = append(findings, repo.FindingsInCategory(codescan.CategoryReliability)...)

	insights := make([]agent.Insight, 0, len(findings)+1)
	for _, f := range findings {
		insights = append(insights, findingInsight(f))
	}

	score := r.score(findings)
	summarySev := agent.SeverityInfo
	if score < r.ws.Policy().Score.Base/2 {
		summarySev = agent.SeverityWarning
	}
	insights = append(insights, agent.NewInsight(summarySev,
		fmt.Sprintf("review score %d/%d", score, r.ws.Policy().Score.Base)).
		WithCategory(codescan.CategoryQuality).
		With(agent.DataKeyScore, score).
		With("findings", len(findings)).
		With("filesReviewed", len(repo.Files)).
		With("priorInsights", len(ec.Prior)))

	return insights, nil
}

// score starts from the policy base and deducts each finding's weight,
// flooring at zero.
func (r *Reviewer) score(findings []codescan.Finding) int {
	sc := r.ws.Policy().Score
	score := sc.Base
	for _, f := range findings {
		score -= sc.Weight(string(f.Severity), f.Category)
	}
	if score < 0 {
		score = 0
	}
	return score
}
