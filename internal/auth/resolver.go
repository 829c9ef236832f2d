package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/shared"
)

// AccountLookup loads the account behind a session or token subject.
type AccountLookup interface {
	FindByID(ctx context.Context, id string) (*Account, error)
}

// Resolver turns an inbound request into a principal. It returns nil on any
// failure and never a partially populated principal.
type Resolver struct {
	accounts AccountLookup
	tokens   *TokenIssuer
	logger   *slog.Logger
	lookups  singleflight.Group
}

// NewResolver constructs a Resolver.
func NewResolver(accounts AccountLookup, tokens *TokenIssuer, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{accounts: accounts, tokens: tokens, logger: logger}
}

// Resolve identifies the caller by bearer token, falling back to the session
// only when no Authorization header is present.
func (r *Resolver) Resolve(req *http.Request) *access.Principal {
	userID, ok := r.subject(req)
	if !ok || userID == "" {
		return nil
	}
	// The lookup is shared with concurrent requests for the same subject and
	// must not fail because the first of them went away.
	ctx := context.WithoutCancel(req.Context())
	v, err, _ := r.lookups.Do(userID, func() (any, error) {
		return r.accounts.FindByID(ctx, userID)
	})
	if err != nil {
		r.logger.Debug("resolve principal", slog.String("user_id", userID), slog.Any("error", err))
		return nil
	}
	account, _ := v.(*Account)
	return account.Principal()
}

func (r *Resolver) subject(req *http.Request) (string, bool) {
	if header := req.Header.Get("Authorization"); header != "" {
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || r.tokens == nil {
			return "", false
		}
		sub, err := r.tokens.Subject(strings.TrimSpace(raw))
		if err != nil {
			return "", false
		}
		return sub, true
	}
	sess := shared.SessionFromContext(req.Context())
	if sess == nil {
		return "", false
	}
	return strings.TrimSpace(sess.User()), true
}

// IsBearer reports whether the request authenticates with a bearer token.
func IsBearer(req *http.Request) bool {
	return strings.HasPrefix(req.Header.Get("Authorization"), "Bearer ")
}
