package acl

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yanizio/storefront/internal/flags"
	"github.com/yanizio/storefront/internal/identity"
	"github.com/yanizio/storefront/internal/reqctx"
	"github.com/yanizio/storefront/internal/tenant"
)

type stubStore struct {
	allowed bool
	err     error
	gotSite uint64
	gotRole string
}

func (s *stubStore) Allowed(_ context.Context, siteID uint64, role, _, _ string) (bool, error) {
	s.gotSite, s.gotRole = siteID, role
	return s.allowed, s.err
}

func serve(h http.Handler, rc *reqctx.RequestContext) int {
	r := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if rc != nil {
		r = r.WithContext(reqctx.WithContext(r.Context(), rc))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec.Code
}

var (
	acme      = &tenant.Tenant{ID: "acme", SiteID: 7}
	okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	admin     = identity.Principal{ID: "a-1", Role: identity.RoleAdmin, Method: identity.MethodToken}
	buyer     = identity.Principal{ID: "c-1", Role: identity.RoleCustomer, Method: identity.MethodSession}
)

func TestRequireRole(t *testing.T) {
	h := RequireRole(identity.RoleAdmin)(okHandler)

	assert.Equal(t, http.StatusOK, serve(h, reqctx.New(admin, acme, flags.Snapshot{}, nil)))
	assert.Equal(t, http.StatusForbidden, serve(h, reqctx.New(buyer, acme, flags.Snapshot{}, nil)))
	assert.Equal(t, http.StatusUnauthorized, serve(h, reqctx.New(identity.Anonymous(), acme, flags.Snapshot{}, nil)))
	assert.Equal(t, http.StatusInternalServerError, serve(h, nil))
}

func TestRequireRole_PanicsWithoutRoles(t *testing.T) {
	assert.Panics(t, func() { RequireRole() })
}

func TestRequirePermission(t *testing.T) {
	st := &stubStore{allowed: true}
	h := RequirePermission(st, "reports", "view", nil)(okHandler)

	assert.Equal(t, http.StatusOK, serve(h, reqctx.New(admin, acme, flags.Snapshot{}, nil)))
	assert.Equal(t, uint64(7), st.gotSite)
	assert.Equal(t, "admin", st.gotRole)

	st.allowed = false
	assert.Equal(t, http.StatusForbidden, serve(h, reqctx.New(buyer, acme, flags.Snapshot{}, nil)))

	st.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, serve(h, reqctx.New(admin, acme, flags.Snapshot{}, nil)))

	assert.Equal(t, http.StatusInternalServerError, serve(h, reqctx.New(admin, nil, flags.Snapshot{}, nil)))
	assert.Equal(t, http.StatusUnauthorized, serve(h, reqctx.New(identity.Anonymous(), acme, flags.Snapshot{}, nil)))
}
