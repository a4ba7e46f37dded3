package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/convene/internal/agent"
	"github.com/dusk-indust/convene/internal/coordinator"
	"github.com/dusk-indust/convene/internal/lineage"
)

// maxNoteInsights bounds how many insight titles a per-agent note shows
// before collapsing the rest into a count.
const maxNoteInsights = 3

// GenerateMermaid renders one run as a Mermaid sequence diagram: the
// coordinator dispatching each participant in execution order, with the
// reported insights summarized in notes.
func GenerateMermaid(rep *coordinator.AggregatedReport) string {
	var sb strings.Builder
	sb.WriteString("sequenceDiagram\n")
	sb.WriteString("  participant C as Coordinator\n")

	// Declare participants once, in first-seen order.
	seen := make(map[string]bool)
	for _, r := range rep.Reports {
		if !seen[r.Agent] {
			seen[r.Agent] = true
			sb.WriteString(fmt.Sprintf("  participant %s\n", mermaidID(r.Agent)))
		}
	}

	iteration := 0
	for _, r := range rep.Reports {
		if r.Iteration > 0 && r.Iteration != iteration {
			iteration = r.Iteration
			sb.WriteString(fmt.Sprintf("  Note over C: iteration %d\n", iteration))
		}

		id := mermaidID(r.Agent)
		sb.WriteString(fmt.Sprintf("  C->>%s: analyze\n", id))

		if !r.Succeeded {
			sb.WriteString(fmt.Sprintf("  %s--xC: %s\n", id, mermaidLabel(r.Err, 60)))
			continue
		}

		sb.WriteString(fmt.Sprintf("  %s-->>C: %d insight%s\n", id, len(r.Insights), plural(len(r.Insights))))
		if note := insightNote(r.Insights); note != "" {
			sb.WriteString(fmt.Sprintf("  Note over %s: %s\n", id, note))
		}
	}

	verdict := fmt.Sprintf("score %d", rep.QualityScore)
	if !rep.Success {
		verdict += ", partial failure"
	}
	sb.WriteString(fmt.Sprintf("  Note over C: %s\n", verdict))

	return sb.String()
}

// GenerateLineageMermaid renders the lineage graph as a Mermaid graph TD:
// runs and their insights as nodes, participation and sharing as edges.
// limit bounds the number of runs included, newest first.
func GenerateLineageMermaid(ctx context.Context, store lineage.Store, limit int) (string, error) {
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return "", fmt.Errorf("export: list runs: %w", err)
	}

	edges, err := store.AllEdges(ctx)
	if err != nil {
		return "", fmt.Errorf("export: list edges: %w", err)
	}

	// Node → ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(key string) string {
		if id, ok := nodeIDs[key]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[key] = id
		return id
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	included := make(map[string]bool, len(runs))
	for _, r := range runs {
		included[r.ID] = true
		label := fmt.Sprintf("%.12s (%s, %d)", r.ID, r.Strategy, r.QualityScore)
		sb.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", getID(r.ID), label))

		insights, err := store.RunInsights(ctx, r.ID)
		if err != nil {
			return "", fmt.Errorf("export: run insights: %w", err)
		}
		for _, in := range insights {
			label := severityGlyph(in.Severity) + " " + mermaidLabel(in.Title, 40)
			sb.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", getID(in.ID), label))
		}
	}

	// Agents surface implicitly through their edges; declare each once so
	// the shape differs from runs and insights.
	declaredAgents := make(map[string]bool)
	declareAgent := func(name string) string {
		id := getID("agent:" + name)
		if !declaredAgents[name] {
			declaredAgents[name] = true
			sb.WriteString(fmt.Sprintf("  %s((\"%s\"))\n", id, mermaidLabel(name, 30)))
		}
		return id
	}

	for _, e := range edges {
		switch e.Kind {
		case lineage.EdgeParticipated:
			if !included[e.TargetID] {
				continue
			}
			sb.WriteString(fmt.Sprintf("  %s --> %s\n", declareAgent(e.SourceID), getID(e.TargetID)))
		case lineage.EdgeProduced:
			if !includedInsight(e.TargetID, included) {
				continue
			}
			sb.WriteString(fmt.Sprintf("  %s --> %s\n", declareAgent(e.SourceID), getID(e.TargetID)))
		case lineage.EdgeSharedWith:
			if !includedInsight(e.SourceID, included) {
				continue
			}
			sb.WriteString(fmt.Sprintf("  %s -.-> %s\n", getID(e.SourceID), declareAgent(e.TargetID)))
		}
	}

	return sb.String(), nil
}

// includedInsight reports whether an insight ID belongs to one of the
// included runs. Insight IDs are "<runID>#<seq>".
func includedInsight(insightID string, included map[string]bool) bool {
	runID, _, ok := strings.Cut(insightID, "#")
	return ok && included[runID]
}

// insightNote renders up to maxNoteInsights titles, one per line.
func insightNote(insights []agent.Insight) string {
	if len(insights) == 0 {
		return ""
	}
	var parts []string
	for i, in := range insights {
		if i == maxNoteInsights {
			parts = append(parts, fmt.Sprintf("and %d more", len(insights)-maxNoteInsights))
			break
		}
		parts = append(parts, severityGlyph(in.Severity)+" "+mermaidLabel(in.Title, 40))
	}
	return strings.Join(parts, "<br/>")
}

// severityGlyph returns the diagram marker for a severity.
func severityGlyph(sev agent.Severity) string {
	switch sev {
	case agent.SeverityError:
		return "[x]"
	case agent.SeverityWarning:
		return "[!]"
	default:
		return "[i]"
	}
}

// mermaidID turns an agent name into a bare Mermaid identifier.
func mermaidID(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "Agent"
	}
	return b.String()
}

// mermaidLabel strips characters that break Mermaid labels and truncates.
func mermaidLabel(s string, max int) string {
	s = strings.NewReplacer("\"", "'", "\n", " ", "<", "(", ">", ")", "[", "(", "]", ")").Replace(s)
	if max > 0 && len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// plural returns "s" for counts other than one.
func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
