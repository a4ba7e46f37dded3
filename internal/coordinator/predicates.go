package coordinator

import "github.com/dusk-indust/convene/internal/agent"

// AllSucceeded is a predicate satisfied when every evaluated report
// succeeded. It is never satisfied by an empty report set.
func AllSucceeded(reports []AgentReport) bool {
	for _, rep := range reports {
		if !rep.Succeeded {
			return false
		}
	}
	return len(reports) > 0
}

// HasSeverity returns a predicate satisfied once any insight at or above
// min appears in the evaluated reports.
func HasSeverity(min agent.Severity) ContinuationPredicate {
	return func(reports []AgentReport) bool {
		for _, rep := range reports {
			for _, ins := range rep.Insights {
				if ins.Severity.Rank() >= min.Rank() {
					return true
				}
			}
		}
		return false
	}
}

// ScoreAtLeast returns a predicate satisfied once any evaluated insight
// carries a score datum at or above threshold.
func ScoreAtLeast(threshold int) ContinuationPredicate {
	return func(reports []AgentReport) bool {
		for _, rep := range reports {
			for _, ins := range rep.Insights {
				v, ok := ins.Data[agent.DataKeyScore]
				if !ok {
					continue
				}
				if score, ok := asInt(v); ok && score >= threshold {
					return true
				}
			}
		}
		return false
	}
}

// asInt widens the numeric types a score datum may arrive as, including
// float64 from JSON decoding.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float32:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
