package agent

import (
	"fmt"
	"sort"
	"sync"
)

// Factory is a constructor that creates an Agent.
type Factory func() Agent

// DefaultRoles is the order teams are spawned in when no explicit role list
// is given. Security runs first so its findings reach the others under the
// ordered strategies.
var DefaultRoles = []Role{RoleSecurity, RoleReviewer, RoleArchitect, RoleDevOps}

// Registry maps agent roles to their factory constructors. Packages that
// implement specialists register their factories here; callers spawn agents
// by role without importing the implementation package.
type Registry struct {
	mu        sync.Mutex
	factories map[Role]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Role]Factory)}
}

// Register binds a role to a factory. Registering a role twice is an error;
// a team with two agents under one role would produce ambiguous reports.
func (r *Registry) Register(role Role, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("nil factory for role %q", role)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[role]; exists {
		return fmt.Errorf("role %q already registered", role)
	}
	r.factories[role] = factory
	return nil
}

// Spawn creates a single agent by role using the registered factory.
func (r *Registry) Spawn(role Role) (Agent, error) {
	r.mu.Lock()
	factory, ok := r.factories[role]
	r.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("no factory registered for role %q", role)
	}
	return factory(), nil
}

// SpawnAll creates one agent per role, in the given order. With no roles it
// spawns every registered role in DefaultRoles order, skipping unregistered
// ones.
func (r *Registry) SpawnAll(roles ...Role) ([]Agent, error) {
	if len(roles) == 0 {
		r.mu.Lock()
		for _, role := range DefaultRoles {
			if _, ok := r.factories[role]; ok {
				roles = append(roles, role)
			}
		}
		r.mu.Unlock()
	}

	agents := make([]Agent, 0, len(roles))
	for _, role := range roles {
		ag, err := r.Spawn(role)
		if err != nil {
			return nil, err
		}
		agents = append(agents, ag)
	}
	return agents, nil
}

// Roles returns the registered roles, sorted.
func (r *Registry) Roles() []Role {
	r.mu.Lock()
	defer r.mu.Unlock()

	roles := make([]Role, 0, len(r.factories))
	for role := range r.factories {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}
