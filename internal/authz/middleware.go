package authz

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-auth/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-auth/internal/role"
)

// RoleHeader carries the caller's comma-separated role names, set by the
// authenticating gateway in front of this service.
const RoleHeader = "X-Auth-Roles"

// Middleware guards routes behind permission paths resolved against the
// role cache.
type Middleware struct {
	logger *slog.Logger
	auth   *Auth
}

// NewMiddleware constructs a Middleware instance.
func NewMiddleware(logger *slog.Logger, auth *Auth) *Middleware {
	return &Middleware{logger: logger, auth: auth}
}

// Require admits a request only when the presented roles resolve the given
// path to a true boolean grant. Everything else is rejected.
func (m *Middleware) Require(path string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			names := splitRoles(r.Header.Get(RoleHeader))
			if len(names) == 0 {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no roles presented")
				return
			}
			v, err := m.auth.Resolve(names, path)
			if err != nil || v != role.Boolean(true) {
				m.logger.Debug("permission denied",
					slog.String("path", path),
					slog.Any("roles", names))
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "permission "+path+" not granted")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func splitRoles(header string) []string {
	parts := strings.Split(header, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}
