// Package authz composes stored roles into effective permission sets. It
// owns the in-memory role cache, the synchronization task keeping that cache
// aligned with the store, and the HTTP surface exposing both.
package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-auth/internal/observability"
	"github.com/odyssey-erp/odyssey-auth/internal/role"
	"github.com/odyssey-erp/odyssey-auth/internal/store"
)

// Auth resolves role names against the cached role set of one application.
type Auth struct {
	store   store.Store
	logger  *slog.Logger
	metrics *observability.AuthMetrics
	appName string

	cache roleCache
	group singleflight.Group
}

// New builds the facade for the named application. The cache starts empty;
// call Refresh or start a Syncer before serving lookups.
func New(st store.Store, appName string, logger *slog.Logger, metrics *observability.AuthMetrics) *Auth {
	if appName == "" {
		appName = role.LocalApp
	}
	return &Auth{
		store:   st,
		logger:  logger,
		metrics: metrics,
		appName: appName,
	}
}

// AppName returns the application this facade serves.
func (a *Auth) AppName() string { return a.appName }

// Refresh reloads the application and all of its roles from the store and
// swaps the cache wholesale. Concurrent calls collapse into one store
// round-trip; on any error the cache keeps its previous contents.
func (a *Auth) Refresh(ctx context.Context) error {
	ch := a.group.DoChan("refresh", func() (interface{}, error) {
		return nil, a.refresh(ctx)
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (a *Auth) refresh(ctx context.Context) error {
	app, err := a.store.FindAppByName(ctx, a.appName)
	if err != nil {
		a.metrics.RefreshFailed()
		return fmt.Errorf("authz: find app %q: %w", a.appName, err)
	}

	it, err := a.store.ListRolesByApp(ctx, app.ID)
	if err != nil {
		a.metrics.RefreshFailed()
		return fmt.Errorf("authz: list roles: %w", err)
	}
	defer it.Close(ctx)

	roles := make(map[string]role.Role)
	for {
		r, err := it.Next(ctx)
		if errors.Is(err, store.ErrIteratorDone) {
			break
		}
		if err != nil {
			a.metrics.RefreshFailed()
			return fmt.Errorf("authz: read role: %w", err)
		}
		roles[r.Name] = r
	}

	a.cache.replace(app, roles)
	a.metrics.RefreshSucceeded(len(roles))
	a.logger.Debug("role cache refreshed",
		slog.String("app", app.Name),
		slog.Int("roles", len(roles)))
	return nil
}

// EffectiveRoleItems unions the named roles, in order, into one permission
// tree. Names missing from the cache are skipped without error; the Add
// algebra makes later roles win for values present in earlier ones.
func (a *Auth) EffectiveRoleItems(names []string) role.RoleItems {
	var acc role.RoleItems
	for _, name := range names {
		r, ok := a.cache.get(name)
		if !ok {
			continue
		}
		r.Items.Add(&acc)
	}
	return acc
}

// Resolve computes the effective permissions of the named roles and looks
// the path up in the resulting tree.
func (a *Auth) Resolve(names []string, path string) (role.DataValue, error) {
	v, err := a.EffectiveRoleItems(names).FindValue(path)
	switch {
	case err == nil:
		a.metrics.CheckResolved("ok")
	case errors.Is(err, role.ErrMissingValue), errors.Is(err, role.ErrInvalidAuthPath):
		a.metrics.CheckResolved("not_found")
	default:
		a.metrics.CheckResolved("invalid")
	}
	return v, err
}

// App returns the cached application document.
func (a *Auth) App() (role.App, bool) { return a.cache.app() }

// Role returns one cached role by name.
func (a *Auth) Role(name string) (role.Role, bool) { return a.cache.get(name) }

// Roles returns all cached roles ordered by name.
func (a *Auth) Roles() []role.Role { return a.cache.list() }

// CachedRoles reports how many roles the current snapshot holds.
func (a *Auth) CachedRoles() int { return a.cache.size() }
