package coordinator

// Conflict is a contradiction detected between two agents' findings
// during aggregation.
type Conflict struct {
	// AgentA and AgentB are the disagreeing agents.
	AgentA string `json:"agentA"`
	AgentB string `json:"agentB"`

	// Topic is the normalized finding title both agents reported on.
	Topic string `json:"topic"`

	// Description states what the disagreement is.
	Description string `json:"description"`
}

// Aggregator combines per-invocation reports into the final run report.
// Timing fields are stamped by the caller, not the aggregator.
type Aggregator interface {
	Aggregate(d Descriptor, reports []AgentReport) *AggregatedReport
}
