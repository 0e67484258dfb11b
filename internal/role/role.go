package role

import "time"

// LocalRole is the role name reserved for the built-in fallback role.
const LocalRole = "local-default"

// Role is a named permission tree granted to subjects of one application.
type Role struct {
	ID        string    `json:"id,omitempty"`
	App       string    `json:"app"`
	Name      string    `json:"name"`
	Items     RoleItems `json:"items"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// DefaultRole returns the local fallback role skeleton with no grants.
func DefaultRole() Role {
	return Role{Name: LocalRole}
}

// Clone returns a deep copy that shares no state with the receiver.
func (r Role) Clone() Role {
	c := r
	c.Items = r.Items.Clone()
	return c
}
