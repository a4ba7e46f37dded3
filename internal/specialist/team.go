package specialist

import (
	"github.com/dusk-indust/convene/internal/agent"
)

// RegisterDefaults binds the four built-in specialists to their roles on a
// registry, all sharing the given workspace.
func RegisterDefaults(reg *agent.Registry, ws *Workspace) error {
	factories := map[agent.Role]agent.Factory{
		agent.RoleSecurity:  func() agent.Agent { return NewSecurity(ws) },
		agent.RoleReviewer:  func() agent.Agent { return NewReviewer(ws) },
		agent.RoleArchitect: func() agent.Agent { return NewArchitect(ws) },
		agent.RoleDevOps:    func() agent.Agent { return NewDevOps(ws) },
	}
	for _, role := range agent.DefaultRoles {
		if err := reg.Register(role, factories[role]); err != nil {
			return err
		}
	}
	return nil
}

// DefaultTeam returns the four built-in specialists over one workspace, in
// agent.DefaultRoles order.
func DefaultTeam(ws *Workspace) []agent.Agent {
	return []agent.Agent{
		NewSecurity(ws),
		NewReviewer(ws),
		NewArchitect(ws),
		NewDevOps(ws),
	}
}
