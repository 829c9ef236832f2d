package rbac

import (
	"log/slog"
	"net/http"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/observability"
	"github.com/firewatch/firewatch/internal/platform/httpx"
	"github.com/firewatch/firewatch/internal/shared"
)

const gateRoles = "roles"

// Middleware wires role gates for HTTP handlers. It expects the principal to
// have been resolved already.
type Middleware struct {
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// RequireRoles admits ADMIN and the listed roles.
func (m Middleware) RequireRoles(roles ...access.Role) func(http.Handler) http.Handler {
	allowed := make(map[access.Role]struct{}, len(roles)+1)
	allowed[access.RoleAdmin] = struct{}{}
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := shared.PrincipalFromContext(r.Context())
			if p == nil {
				m.Metrics.ObserveDenial(gateRoles)
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			if _, ok := allowed[p.Role]; !ok {
				m.Metrics.ObserveDenial(gateRoles)
				if m.Logger != nil {
					m.Logger.Debug("rbac deny", slog.String("role", string(p.Role)), slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCreate admits the roles allowed to create instances under pol.
func (m Middleware) RequireCreate(pol access.Policy) func(http.Handler) http.Handler {
	var roles []access.Role
	for _, role := range access.Roles() {
		if pol.CanCreate(role) {
			roles = append(roles, role)
		}
	}
	return m.RequireRoles(roles...)
}
