package role

import "time"

// LocalApp is the application name assumed when none is configured.
const LocalApp = "local"

// App is a tenant application. Its DefaultRole tree is the template every
// role of the application is aligned against when templates change.
type App struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name"`
	Version     uint64    `json:"version"`
	DefaultRole RoleItems `json:"defaultRole"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

// DefaultApp returns the local application with the built-in CRUD template.
func DefaultApp() App {
	return App{Name: LocalApp, Version: 1, DefaultRole: Local()}
}

// Clone returns a deep copy that shares no state with the receiver.
func (a App) Clone() App {
	c := a
	c.DefaultRole = a.DefaultRole.Clone()
	return c
}
