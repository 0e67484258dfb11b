package authz

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-auth/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-auth/internal/role"
	"github.com/odyssey-erp/odyssey-auth/internal/store"
)

// Handler wires HTTP endpoints for permission checks and role management.
type Handler struct {
	logger    *slog.Logger
	auth      *Auth
	syncer    *Syncer
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, auth *Auth, syncer *Syncer) *Handler {
	return &Handler{
		logger:    logger,
		auth:      auth,
		syncer:    syncer,
		validator: validator.New(),
	}
}

// MountRoutes registers the read-side routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/v1/check", h.check)
	r.Post("/v1/permissions", h.permissions)
	r.Get("/v1/roles", h.listRoles)
	r.Get("/v1/roles/{name}", h.getRole)
	r.Get("/v1/app", h.getApp)
	r.Get("/v1/sync/health", h.syncHealth)
}

// MountAdminRoutes registers the mutating routes. Callers are expected to
// wrap these behind Middleware.Require.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Post("/v1/roles", h.createRole)
	r.Put("/v1/roles/{name}/items", h.updateRoleItems)
	r.Post("/v1/admin/resync", h.resync)
}

type checkRequest struct {
	Roles []string `json:"roles" validate:"dive,required"`
	Path  string   `json:"path" validate:"required"`
}

type checkResponse struct {
	Path  string           `json:"path"`
	Value role.TaggedValue `json:"value"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, fieldErrors(err))
		return
	}

	v, err := h.auth.Resolve(req.Roles, req.Path)
	if err != nil {
		h.respondResolutionError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, checkResponse{Path: req.Path, Value: role.TaggedValue{Data: v}})
}

type permissionsRequest struct {
	Roles []string `json:"roles" validate:"dive,required"`
}

type permissionsResponse struct {
	Items role.RoleItems `json:"items"`
}

func (h *Handler) permissions(w http.ResponseWriter, r *http.Request) {
	var req permissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, fieldErrors(err))
		return
	}
	httpx.JSON(w, http.StatusOK, permissionsResponse{Items: h.auth.EffectiveRoleItems(req.Roles)})
}

type listRolesResponse struct {
	Roles []role.Role `json:"roles"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, listRolesResponse{Roles: h.auth.Roles()})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rle, ok := h.auth.Role(name)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Role Not Found", fmt.Sprintf("role %q is not in the cache", name))
		return
	}
	httpx.JSON(w, http.StatusOK, rle)
}

func (h *Handler) getApp(w http.ResponseWriter, r *http.Request) {
	app, ok := h.auth.App()
	if !ok {
		httpx.Problem(w, http.StatusServiceUnavailable, "Cache Not Ready", "the application document has not been loaded yet")
		return
	}
	httpx.JSON(w, http.StatusOK, app)
}

func (h *Handler) syncHealth(w http.ResponseWriter, r *http.Request) {
	st := h.syncer.Status()
	code := http.StatusOK
	if !st.Healthy {
		code = http.StatusServiceUnavailable
	}
	httpx.JSON(w, code, st)
}

type createRoleRequest struct {
	Name  string         `json:"name" validate:"required"`
	Items role.RoleItems `json:"items"`
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, fieldErrors(err))
		return
	}

	app, ok := h.auth.App()
	if !ok {
		httpx.Problem(w, http.StatusServiceUnavailable, "Cache Not Ready", "the application document has not been loaded yet")
		return
	}
	if _, exists := h.auth.Role(req.Name); exists {
		httpx.Problem(w, http.StatusConflict, "Duplicate Role", fmt.Sprintf("role %q already exists", req.Name))
		return
	}

	id, err := h.auth.store.InsertRole(r.Context(), role.Role{
		App:   app.ID,
		Name:  req.Name,
		Items: req.Items,
	})
	if err != nil {
		h.logger.Error("insert role", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, role.Role{ID: id, App: app.ID, Name: req.Name, Items: req.Items})
}

type updateRoleItemsRequest struct {
	Items role.RoleItems `json:"items"`
}

func (h *Handler) updateRoleItems(w http.ResponseWriter, r *http.Request) {
	var req updateRoleItemsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "request body must be valid JSON")
		return
	}

	name := chi.URLParam(r, "name")
	cached, ok := h.auth.Role(name)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Role Not Found", fmt.Sprintf("role %q is not in the cache", name))
		return
	}

	if err := h.auth.store.UpdateRoleItems(r.Context(), cached.ID, req.Items); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Role Not Found", fmt.Sprintf("role %q is no longer stored", name))
			return
		}
		h.logger.Error("update role items", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resyncResponse struct {
	Roles int `json:"roles"`
}

func (h *Handler) resync(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Refresh(r.Context()); err != nil {
		h.logger.Error("forced resync", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Refresh Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, resyncResponse{Roles: h.auth.CachedRoles()})
}

// respondResolutionError maps path-resolution failures to problem responses:
// unknown segments or values read as 404, malformed paths as 400 and a
// present value of the wrong kind as 422.
func (h *Handler) respondResolutionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, role.ErrInvalidAuthPath), errors.Is(err, role.ErrMissingValue):
		httpx.Problem(w, http.StatusNotFound, "Permission Not Found", err.Error())
	case errors.Is(err, role.ErrInvalidDataValueType):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Type Mismatch", err.Error())
	default:
		httpx.Problem(w, http.StatusBadRequest, "Invalid Path", err.Error())
	}
}

func fieldErrors(err error) map[string]string {
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fieldErr := range verrs {
			fields[fieldErr.Field()] = fieldErr.Error()
		}
		return fields
	}
	fields["general"] = err.Error()
	return fields
}
