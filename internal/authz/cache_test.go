package authz

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-auth/internal/role"
)

func TestCacheStartsEmpty(t *testing.T) {
	var c roleCache

	_, ok := c.get("any")
	require.False(t, ok)
	_, ok = c.app()
	require.False(t, ok)
	require.Empty(t, c.list())
	require.Zero(t, c.size())
}

func TestCacheReturnsClones(t *testing.T) {
	var c roleCache
	c.replace(role.DefaultApp(), map[string]role.Role{
		"b": {Name: "b"},
		"a": {Name: "a", Items: role.Local()},
	})

	got, ok := c.get("a")
	require.True(t, ok)
	got.Items[0].Values[0].Data = role.Boolean(false)

	again, ok := c.get("a")
	require.True(t, ok)
	require.Equal(t, role.Boolean(true), again.Items[0].Values[0].Data,
		"mutating a returned role must not touch the snapshot")

	app, ok := c.app()
	require.True(t, ok)
	app.DefaultRole[0].Name = "tampered"
	freshApp, _ := c.app()
	require.Equal(t, "users", freshApp.DefaultRole[0].Name)
}

func TestCacheListSortedByName(t *testing.T) {
	var c roleCache
	c.replace(role.DefaultApp(), map[string]role.Role{
		"zebra": {Name: "zebra"},
		"alpha": {Name: "alpha"},
		"mango": {Name: "mango"},
	})

	names := make([]string, 0, 3)
	for _, r := range c.list() {
		names = append(names, r.Name)
	}
	require.Equal(t, []string{"alpha", "mango", "zebra"}, names)
	require.Equal(t, 3, c.size())
}

func TestCacheReplaceSwapsWholesale(t *testing.T) {
	var c roleCache
	c.replace(role.DefaultApp(), map[string]role.Role{"old": {Name: "old"}})
	c.replace(role.DefaultApp(), map[string]role.Role{"new": {Name: "new"}})

	_, ok := c.get("old")
	require.False(t, ok, "replaced snapshots must not leak previous roles")
	_, ok = c.get("new")
	require.True(t, ok)
}
