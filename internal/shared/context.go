package shared

import (
	"context"

	"github.com/firewatch/firewatch/internal/access"
)

type (
	sessionContextKey   struct{}
	principalContextKey struct{}
)

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithPrincipal stores the resolved caller at the HTTP boundary.
func ContextWithPrincipal(ctx context.Context, p *access.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the caller resolved for this request, or nil.
func PrincipalFromContext(ctx context.Context) *access.Principal {
	p, _ := ctx.Value(principalContextKey{}).(*access.Principal)
	return p
}

// CallerFromContext returns the resolved caller or ErrUnauthenticated.
func CallerFromContext(ctx context.Context) (access.Principal, error) {
	p := PrincipalFromContext(ctx)
	if p == nil {
		return access.Principal{}, ErrUnauthenticated
	}
	return *p, nil
}
