package authz

import (
	"sort"
	"sync"

	"github.com/odyssey-erp/odyssey-auth/internal/role"
)

// snapshot is one immutable cache generation. Snapshots are built off to the
// side and published wholesale, so readers observe a fully old or fully new
// role set, never a mix.
type snapshot struct {
	app   role.App
	roles map[string]role.Role
}

type roleCache struct {
	mu   sync.RWMutex
	snap *snapshot
}

func (c *roleCache) replace(app role.App, roles map[string]role.Role) {
	c.mu.Lock()
	c.snap = &snapshot{app: app, roles: roles}
	c.mu.Unlock()
}

func (c *roleCache) current() *snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// get returns a deep copy so callers can never mutate the published
// snapshot.
func (c *roleCache) get(name string) (role.Role, bool) {
	snap := c.current()
	if snap == nil {
		return role.Role{}, false
	}
	r, ok := snap.roles[name]
	if !ok {
		return role.Role{}, false
	}
	return r.Clone(), true
}

func (c *roleCache) app() (role.App, bool) {
	snap := c.current()
	if snap == nil {
		return role.App{}, false
	}
	return snap.app.Clone(), true
}

func (c *roleCache) list() []role.Role {
	snap := c.current()
	if snap == nil {
		return []role.Role{}
	}
	out := make([]role.Role, 0, len(snap.roles))
	for _, r := range snap.roles {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *roleCache) size() int {
	snap := c.current()
	if snap == nil {
		return 0
	}
	return len(snap.roles)
}
