package auth

import (
	"net/http"

	"github.com/firewatch/firewatch/internal/platform/httpx"
	"github.com/firewatch/firewatch/internal/shared"
)

// Middleware resolves the caller at the HTTP boundary.
type Middleware struct {
	Resolver *Resolver
}

// RequirePrincipal rejects unauthenticated requests and stores the principal
// on the request context for handlers to pass on explicitly.
func (m Middleware) RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := m.Resolver.Resolve(r)
		if p == nil {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), p)))
	})
}
