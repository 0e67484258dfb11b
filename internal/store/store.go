// Package store defines the persistence boundary for applications and roles.
// Implementations live in the driver subpackages (mongostore, pgstore,
// memstore); the core only consumes the read and watch operations, the write
// operations back the operator tooling.
package store

import (
	"context"
	"errors"

	"github.com/odyssey-erp/odyssey-auth/internal/role"
)

var (
	// ErrAppNotFound indicates the named application has no document.
	ErrAppNotFound = errors.New("store: app not found")
	// ErrNotFound indicates the addressed role has no document.
	ErrNotFound = errors.New("store: role not found")
	// ErrIteratorDone signals a fully consumed iterator.
	ErrIteratorDone = errors.New("store: iterator done")
)

// Store is the contract every driver implements.
type Store interface {
	// FindAppByName returns the application document for name, or
	// ErrAppNotFound.
	FindAppByName(ctx context.Context, name string) (role.App, error)

	// ListRolesByApp streams every role belonging to the application.
	ListRolesByApp(ctx context.Context, appID string) (RoleIterator, error)

	// WatchRoles subscribes to change notifications for the roles
	// collection. The returned watcher stays open until closed or the
	// context ends.
	WatchRoles(ctx context.Context) (Watcher, error)

	// UpdateRoleItems replaces the permission tree of one role.
	UpdateRoleItems(ctx context.Context, roleID string, items role.RoleItems) error

	// InsertApp stores a new application document and returns its id.
	InsertApp(ctx context.Context, a role.App) (string, error)

	// InsertRole stores a new role document and returns its id.
	InsertRole(ctx context.Context, r role.Role) (string, error)
}

// RoleIterator yields roles one at a time. Next returns ErrIteratorDone once
// the underlying cursor is exhausted; Close releases it early.
type RoleIterator interface {
	Next(ctx context.Context) (role.Role, error)
	Close(ctx context.Context) error
}

// Watcher delivers role change events. The Events channel closes when the
// subscription ends; Err reports why.
type Watcher interface {
	Events() <-chan Event
	Err() error
	Close(ctx context.Context) error
}

// Event describes one role change. Consumers treat arrival as the signal;
// Op exists for logging only.
type Event struct {
	Op string
}
