package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/component"
	"github.com/yanizio/storefront/internal/flags"
	"github.com/yanizio/storefront/internal/identity"
	"github.com/yanizio/storefront/internal/reqctx"
	"github.com/yanizio/storefront/internal/requestinfo"
	"github.com/yanizio/storefront/internal/session"
	"github.com/yanizio/storefront/internal/tenant"
	"github.com/yanizio/storefront/internal/tenant/meta"
)

const routerFlags = `
flags:
  - name: betaCheckout
    kind: targeted
    percentage: 10
  - name: newNav
    kind: boolean
    on: true
  - name: debugContext
    kind: environment
    environments: [staging]
`

var (
	jwtSecret = []byte("router-test-secret-router-test-secret")
	cookieKey = []byte("0123456789abcdef0123456789abcdef")
)

// memSessions is an in-memory component.SessionWriter.
type memSessions struct {
	mu   sync.Mutex
	recs map[string]session.Record
}

func (m *memSessions) Lookup(_ context.Context, id string) (session.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return session.Record{}, session.ErrNotFound
	}
	return rec, nil
}

func (m *memSessions) Put(_ context.Context, id string, rec session.Record, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[id] = rec
	return nil
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, id)
	return nil
}

type allowAll bool

func (a allowAll) Allowed(context.Context, uint64, string, string, string) (bool, error) {
	return bool(a), nil
}

type harness struct {
	handler  http.Handler
	tokens   *identity.TokenVerifier
	sessions *memSessions
}

func newHarness(t *testing.T, environment string, acl allowAll) *harness {
	t.Helper()
	tv, err := identity.NewTokenVerifier(jwtSecret, "")
	require.NoError(t, err)
	codec, err := session.NewCodec("sf_session", cookieKey)
	require.NoError(t, err)
	static, err := flags.ParseFile([]byte(routerFlags))
	require.NoError(t, err)

	sessions := &memSessions{recs: map[string]session.Record{}}
	dir := tenant.NewDirectory([]meta.Record{
		{ID: 1, Slug: "acme", Host: "acme.shop.test", Title: "Acme", Locale: "en_US"},
		{ID: 2, Slug: "globex", Host: "globex.shop.test", Title: "Globex", Locale: "de_DE"},
	})
	tenants := tenant.NewResolver(dir, tenant.Options{BaseDomain: "shop.test"}, nil)
	ids := identity.NewResolver(tv, codec, sessions, nil)

	asm := reqctx.NewAssembler(reqctx.Config{
		Identity:     ids,
		Tenants:      tenants,
		Flags:        flags.NewEvaluator(flags.Layered{Layers: []flags.Source{static}}, environment, nil),
		CookieName:   "sf_session",
		TenantHeader: tenant.DefaultHeader,
	})

	h := buildRouter(component.Env{
		Assembler: asm,
		ACL:       acl,
		Identity:  ids,
		Sessions:  sessions,
		Cookies:   codec,
		Log:       zap.NewNop(),
	}, routerOptions{KnownHost: tenants.KnownHost, Info: requestinfo.Options{}})

	return &harness{handler: h, tokens: tv, sessions: sessions}
}

func (h *harness) bearer(t *testing.T, sub, role, tenantID string) string {
	t.Helper()
	tok, err := h.tokens.Sign(identity.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role:     role,
		TenantID: tenantID,
	})
	require.NoError(t, err)
	return "Bearer " + tok
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRouter_HealthAndSecurityHeaders(t *testing.T) {
	h := newHarness(t, "production", true)
	rec := h.do(httptest.NewRequest(http.MethodGet, "http://acme.shop.test/healthz", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRouter_CatalogAnonymous(t *testing.T) {
	h := newHarness(t, "production", true)
	rec := h.do(httptest.NewRequest(http.MethodGet, "http://acme.shop.test/catalog", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "acme", body["tenant"])
	assert.Equal(t, "anonymous", body["viewer"])
	assert.Equal(t, true, body["new_nav"])
	assert.Equal(t, false, body["internals"])
	assert.NotEmpty(t, rec.Header().Get(requestinfo.HeaderRequestID))
}

func TestRouter_CatalogWithoutTenant(t *testing.T) {
	h := newHarness(t, "production", true)
	rec := h.do(httptest.NewRequest(http.MethodGet, "http://localhost/catalog", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing", decode(t, rec)["reason"])
}

func TestRouter_CatalogUnknownTenantHeader(t *testing.T) {
	h := newHarness(t, "production", true)
	req := httptest.NewRequest(http.MethodGet, "http://localhost/catalog", nil)
	req.Header.Set(tenant.DefaultHeader, "initech")
	rec := h.do(req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_CheckoutRequiresAuth(t *testing.T) {
	h := newHarness(t, "production", true)
	rec := h.do(httptest.NewRequest(http.MethodGet, "http://acme.shop.test/checkout", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
}

func TestRouter_CheckoutFlowFollowsRollout(t *testing.T) {
	h := newHarness(t, "production", true)
	for i := 0; i < 20; i++ {
		sub := fmt.Sprintf("u-%d", i)
		req := httptest.NewRequest(http.MethodGet, "http://acme.shop.test/checkout", nil)
		req.Header.Set("Authorization", h.bearer(t, sub, "customer", ""))
		rec := h.do(req)
		require.Equal(t, http.StatusOK, rec.Code)

		want := "classic"
		if flags.InRollout(10, flags.Bucket("betaCheckout", sub)) {
			want = "beta"
		}
		assert.Equal(t, want, decode(t, rec)["flow"], sub)
	}
}

func TestRouter_AdminGates(t *testing.T) {
	h := newHarness(t, "production", true)

	req := httptest.NewRequest(http.MethodGet, "http://acme.shop.test/admin", nil)
	req.Header.Set("Authorization", h.bearer(t, "u-1", "customer", ""))
	assert.Equal(t, http.StatusForbidden, h.do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "http://acme.shop.test/admin", nil)
	req.Header.Set("Authorization", h.bearer(t, "root", "admin", ""))
	rec := h.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "root", decode(t, rec)["admin"])
}

func TestRouter_AdminDeniedByACL(t *testing.T) {
	h := newHarness(t, "production", false)
	req := httptest.NewRequest(http.MethodGet, "http://acme.shop.test/admin", nil)
	req.Header.Set("Authorization", h.bearer(t, "root", "admin", ""))
	assert.Equal(t, http.StatusForbidden, h.do(req).Code)
}

func TestRouter_DebugContextByEnvironment(t *testing.T) {
	prod := newHarness(t, "production", true)
	rec := prod.do(httptest.NewRequest(http.MethodGet, "http://acme.shop.test/debug/context", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	staging := newHarness(t, "staging", true)
	req := httptest.NewRequest(http.MethodGet, "http://acme.shop.test/debug/context", nil)
	req.Header.Set("Authorization", staging.bearer(t, "u-9", "customer", ""))
	rec = staging.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer "))
}

func TestRouter_SessionExchangeAndLogout(t *testing.T) {
	h := newHarness(t, "production", true)

	req := httptest.NewRequest(http.MethodPost, "http://acme.shop.test/auth/session", nil)
	req.Header.Set("Authorization", h.bearer(t, "u-7", "customer", "acme"))
	rec := h.do(req)
	require.Equal(t, http.StatusCreated, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Len(t, h.sessions.recs, 1)

	// The cookie alone now authenticates checkout.
	req = httptest.NewRequest(http.MethodGet, "http://acme.shop.test/checkout", nil)
	req.AddCookie(cookies[0])
	rec = h.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-7", decode(t, rec)["principal"])

	req = httptest.NewRequest(http.MethodPost, "http://acme.shop.test/auth/logout", nil)
	req.AddCookie(cookies[0])
	assert.Equal(t, http.StatusNoContent, h.do(req).Code)
	assert.Empty(t, h.sessions.recs)

	req = httptest.NewRequest(http.MethodGet, "http://acme.shop.test/checkout", nil)
	req.AddCookie(cookies[0])
	assert.Equal(t, http.StatusUnauthorized, h.do(req).Code)
}

func TestRouter_SessionReplayedOnForeignTenant(t *testing.T) {
	h := newHarness(t, "production", true)
	h.sessions.recs["s-admin"] = session.Record{Subject: "u-1", Role: "admin", TenantID: "acme"}
	codec, err := session.NewCodec("sf_session", cookieKey)
	require.NoError(t, err)
	cookie := &http.Cookie{Name: "sf_session", Value: codec.Sign("s-admin")}

	req := httptest.NewRequest(http.MethodGet, "http://acme.shop.test/admin", nil)
	req.AddCookie(cookie)
	assert.Equal(t, http.StatusOK, h.do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "http://globex.shop.test/admin", nil)
	req.AddCookie(cookie)
	rec := h.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "conflict", decode(t, rec)["reason"])
}

func TestRouter_SessionExchangeNeedsToken(t *testing.T) {
	h := newHarness(t, "production", true)
	h.sessions.recs["s-1"] = session.Record{Subject: "u-1", Role: "customer"}
	codec, err := session.NewCodec("sf_session", cookieKey)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "http://acme.shop.test/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: "sf_session", Value: codec.Sign("s-1")})
	assert.Equal(t, http.StatusBadRequest, h.do(req).Code)
}

func TestRouter_Metrics(t *testing.T) {
	h := newHarness(t, "production", true)
	h.do(httptest.NewRequest(http.MethodGet, "http://acme.shop.test/catalog", nil))
	rec := h.do(httptest.NewRequest(http.MethodGet, "http://acme.shop.test/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "request_context_assembly_total")
}
