package authz

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-auth/internal/role"
	"github.com/odyssey-erp/odyssey-auth/internal/store/memstore"
)

const testAdminPermission = "/roles/update.boolean"

type handlerEnv struct {
	store  *memstore.Store
	appID  string
	auth   *Auth
	syncer *Syncer
	router *chi.Mux
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	st, appID := seedStore(t)
	logger := discardLogger()

	a := New(st, "", logger, nil)
	require.NoError(t, a.Refresh(context.Background()))

	s := NewSyncer(a, logger)
	s.record(nil)

	h := NewHandler(logger, a, s)
	mw := NewMiddleware(logger, a)

	r := chi.NewRouter()
	h.MountRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(mw.Require(testAdminPermission))
		h.MountAdminRoutes(r)
	})

	return &handlerEnv{store: st, appID: appID, auth: a, syncer: s, router: r}
}

func (env *handlerEnv) do(method, target, body string, roles string) *httptest.ResponseRecorder {
	var rd *strings.Reader
	if body != "" {
		rd = strings.NewReader(body)
	} else {
		rd = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, rd)
	if roles != "" {
		req.Header.Set(RoleHeader, roles)
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

func TestCheckResolvesTypedValue(t *testing.T) {
	env := newHandlerEnv(t)

	rr := env.do(http.MethodPost, "/v1/check",
		`{"roles":["local-default"],"path":"/users/create.boolean"}`, "")

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t,
		`{"path":"/users/create.boolean","value":{"boolean":true}}`,
		rr.Body.String())
}

func TestCheckStatusMapping(t *testing.T) {
	env := newHandlerEnv(t)
	insertRole(t, env.store, env.appID, "metered", quotaTree(5))
	require.NoError(t, env.auth.Refresh(context.Background()))

	cases := []struct {
		name string
		body string
		want int
	}{
		{"unknown value", `{"roles":["local-default"],"path":"/users/nuke.boolean"}`, http.StatusNotFound},
		{"unknown item", `{"roles":["local-default"],"path":"/nothing/create.boolean"}`, http.StatusNotFound},
		{"wrong kind", `{"roles":["metered"],"path":"/api/quota.boolean"}`, http.StatusUnprocessableEntity},
		{"no parent", `{"roles":["local-default"],"path":"create.boolean"}`, http.StatusBadRequest},
		{"missing extension", `{"roles":["local-default"],"path":"/users/create"}`, http.StatusBadRequest},
		{"empty path", `{"roles":["local-default"],"path":""}`, http.StatusBadRequest},
		{"malformed body", `{"roles":`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.do(http.MethodPost, "/v1/check", tc.body, "")
			require.Equal(t, tc.want, rr.Code, "body: %s", rr.Body.String())
		})
	}
}

func TestPermissionsReturnsEffectiveTree(t *testing.T) {
	env := newHandlerEnv(t)

	rr := env.do(http.MethodPost, "/v1/permissions", `{"roles":["local-default"]}`, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Items role.RoleItems `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 3)
	users := resp.Items.Find("users")
	require.NotNil(t, users)
	require.Equal(t, role.Boolean(true), users.Values.Find("create").Data)
}

func TestPermissionsWithNoRolesIsEmpty(t *testing.T) {
	env := newHandlerEnv(t)

	rr := env.do(http.MethodPost, "/v1/permissions", `{"roles":[]}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"items":[]}`, rr.Body.String())
}

func TestListAndGetRoles(t *testing.T) {
	env := newHandlerEnv(t)

	rr := env.do(http.MethodGet, "/v1/roles", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var listResp struct {
		Roles []role.Role `json:"roles"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listResp))
	require.Len(t, listResp.Roles, 1)
	require.Equal(t, role.LocalRole, listResp.Roles[0].Name)

	rr = env.do(http.MethodGet, "/v1/roles/"+role.LocalRole, "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var single role.Role
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &single))
	require.Equal(t, role.LocalRole, single.Name)
	require.NotEmpty(t, single.ID)

	rr = env.do(http.MethodGet, "/v1/roles/ghost", "", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetApp(t *testing.T) {
	env := newHandlerEnv(t)

	rr := env.do(http.MethodGet, "/v1/app", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var app role.App
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &app))
	require.Equal(t, role.LocalApp, app.Name)
	require.Equal(t, uint64(1), app.Version)
	require.NotEmpty(t, app.DefaultRole)
}

func TestSyncHealthReflectsState(t *testing.T) {
	env := newHandlerEnv(t)

	rr := env.do(http.MethodGet, "/v1/sync/health", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var st Status
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
	require.True(t, st.Healthy)
	require.False(t, st.LastRefresh.IsZero())

	env.syncer.record(errors.New("store offline"))
	rr = env.do(http.MethodGet, "/v1/sync/health", "", "")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
	require.False(t, st.Healthy)
	require.Contains(t, st.LastError, "store offline")
}

func TestCreateUpdateResolveRoundTrip(t *testing.T) {
	env := newHandlerEnv(t)
	ctx := context.Background()

	rr := env.do(http.MethodPost, "/v1/roles",
		`{"name":"editors","items":[{"name":"api","values":[{"name":"quota","integer":5}]}]}`,
		role.LocalRole)
	require.Equal(t, http.StatusCreated, rr.Code, "body: %s", rr.Body.String())
	var created role.Role
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	require.Equal(t, "editors", created.Name)

	require.NoError(t, env.auth.Refresh(ctx))

	rr = env.do(http.MethodPost, "/v1/roles",
		`{"name":"editors","items":[]}`, role.LocalRole)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = env.do(http.MethodPut, "/v1/roles/editors/items",
		`{"items":[{"name":"api","values":[{"name":"quota","integer":9}]}]}`,
		role.LocalRole)
	require.Equal(t, http.StatusNoContent, rr.Code, "body: %s", rr.Body.String())

	require.NoError(t, env.auth.Refresh(ctx))
	v, err := env.auth.Resolve([]string{"editors"}, "/api/quota.integer")
	require.NoError(t, err)
	require.Equal(t, role.Integer(9), v)
}

func TestUpdateUnknownRoleIs404(t *testing.T) {
	env := newHandlerEnv(t)

	rr := env.do(http.MethodPut, "/v1/roles/ghost/items", `{"items":[]}`, role.LocalRole)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestResyncReloadsCache(t *testing.T) {
	env := newHandlerEnv(t)
	insertRole(t, env.store, env.appID, "fresh", role.Local())

	_, ok := env.auth.Role("fresh")
	require.False(t, ok)

	rr := env.do(http.MethodPost, "/v1/admin/resync", "", role.LocalRole)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"roles":2}`, rr.Body.String())

	_, ok = env.auth.Role("fresh")
	require.True(t, ok)
}

func TestCreateRoleValidation(t *testing.T) {
	env := newHandlerEnv(t)

	rr := env.do(http.MethodPost, "/v1/roles", `{"name":"","items":[]}`, role.LocalRole)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "errors")
}
