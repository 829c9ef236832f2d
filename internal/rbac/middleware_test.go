package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/observability"
	"github.com/firewatch/firewatch/internal/shared"
)

func serve(t *testing.T, gate func(http.Handler) http.Handler, p *access.Principal) int {
	t.Helper()
	h := gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/devices", nil)
	if p != nil {
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), p))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireRoles(t *testing.T) {
	m := Middleware{Metrics: observability.NewMetrics()}
	gate := m.RequireRoles(access.RoleProviderL1)

	assert.Equal(t, http.StatusUnauthorized, serve(t, gate, nil))
	assert.Equal(t, http.StatusForbidden, serve(t, gate, &access.Principal{ID: "u", Role: access.RoleCustomerL1}))
	assert.Equal(t, http.StatusOK, serve(t, gate, &access.Principal{ID: "u", Role: access.RoleProviderL1}))
	assert.Equal(t, http.StatusOK, serve(t, gate, &access.Principal{ID: "u", Role: access.RoleAdmin}))
}

func TestRequireCreateFollowsPolicy(t *testing.T) {
	gate := Middleware{}.RequireCreate(access.Devices)

	assert.Equal(t, http.StatusOK, serve(t, gate, &access.Principal{ID: "u", Role: access.RoleCustomerL1}))
	assert.Equal(t, http.StatusForbidden, serve(t, gate, &access.Principal{ID: "u", Role: access.RoleCustomerL2}))
	assert.Equal(t, http.StatusForbidden, serve(t, gate, &access.Principal{ID: "u", Role: access.RoleGuest}))
}

func TestRequireCreateNotificationsIsAdminOnly(t *testing.T) {
	gate := Middleware{}.RequireCreate(access.Notifications)

	for _, role := range access.Roles() {
		want := http.StatusForbidden
		if role == access.RoleAdmin {
			want = http.StatusOK
		}
		assert.Equal(t, want, serve(t, gate, &access.Principal{ID: "u", Role: role}), role)
	}
}
