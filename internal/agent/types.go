package agent

import (
	"maps"
	"time"
)

// --- Enums ---

// Severity classifies how serious an insight is.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError:
		return true
	}
	return false
}

// Rank orders severities for rollups: error > warning > info.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

// --- Core Types ---

// Insight is one diagnostic finding produced by an agent. Immutable once
// produced; With returns copies rather than mutating in place.
type Insight struct {
	Severity Severity       `json:"severity"`
	Title    string         `json:"title"`
	Category string         `json:"category,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// DataKeyScore is the conventional Data key under which agents report a
// numeric quality score. Continuation predicates look it up by this name.
const DataKeyScore = "score"

// NewInsight creates an Insight with the given severity and title.
func NewInsight(sev Severity, title string) Insight {
	return Insight{Severity: sev, Title: title}
}

// WithCategory returns a copy of the insight with the category set.
func (i Insight) WithCategory(category string) Insight {
	i.Category = category
	return i
}

// With returns a copy of the insight with the data key set. The data map is
// cloned so the original insight is never mutated.
func (i Insight) With(key string, value any) Insight {
	data := make(map[string]any, len(i.Data)+1)
	maps.Copy(data, i.Data)
	data[key] = value
	i.Data = data
	return i
}

// ExecutionContext is the immutable value handed to every agent invocation
// within one collaboration run. The coordinator never inspects Payload; the
// only field it extends is Prior, and it does so copy-on-mutate via WithPrior.
type ExecutionContext struct {
	RequestID string         `json:"requestId"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`

	// Prior holds insights visible to the agent before it runs: findings
	// from participants that ran earlier under the ordered strategies,
	// plus any knowledge-store items targeted at the agent before the run
	// started. Under parallel only the latter appear; sibling results are
	// never visible mid-run.
	Prior []Insight `json:"prior,omitempty"`
}

// NewExecutionContext creates an ExecutionContext stamped with the current time.
func NewExecutionContext(requestID string, payload map[string]any) ExecutionContext {
	return ExecutionContext{
		RequestID: requestID,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// WithPrior returns a new context whose Prior list is this context's list
// plus the given insights. The receiver is not modified and the backing
// slice is not shared, so earlier context values stay safe to read from
// other goroutines.
func (ec ExecutionContext) WithPrior(insights []Insight) ExecutionContext {
	if len(insights) == 0 {
		return ec
	}
	merged := make([]Insight, 0, len(ec.Prior)+len(insights))
	merged = append(merged, ec.Prior...)
	merged = append(merged, insights...)
	ec.Prior = merged
	return ec
}

// PayloadString returns the payload value for key if it is a string,
// or "" otherwise. Agents use this for well-known keys like "repoPath".
func (ec ExecutionContext) PayloadString(key string) string {
	if ec.Payload == nil {
		return ""
	}
	s, _ := ec.Payload[key].(string)
	return s
}
