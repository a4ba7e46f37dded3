package agent

import (
	"context"
)

// Agent is the interface that all collaboration participants implement.
// The strategy executor is the only caller of Run; agents never call back
// into the coordinator except through handles explicitly passed to them.
type Agent interface {
	// Name returns the agent's identifier, unique within one run.
	Name() string

	// Run analyzes the execution context and returns the insights found.
	// A returned error marks the invocation as failed; the coordinator
	// converts it into a failed report instead of propagating it.
	Run(ctx context.Context, ec ExecutionContext) ([]Insight, error)
}

// Role identifies a specialist agent type.
type Role string

const (
	RoleSecurity  Role = "security"
	RoleReviewer  Role = "reviewer"
	RoleArchitect Role = "architect"
	RoleDevOps    Role = "devops"
)

// Specialist display names, matching the roles above.
const (
	NameSecurity  = "SecurityExpert"
	NameReviewer  = "CodeReviewer"
	NameArchitect = "Architect"
	NameDevOps    = "DevOpsEngineer"
)
