package tenant

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/storefront/internal/tenant/meta"
)

func testDirectory() *Directory {
	return NewDirectory([]meta.Record{
		{ID: 1, Slug: "acme", Host: "acme.shop.test", Title: "Acme", Locale: "en_US"},
		{ID: 2, Slug: "globex", Host: "shop.globex.com", Title: "Globex", Locale: "de_DE"},
		{ID: 3, Slug: "initech", Host: "initech.shop.test", Title: "Initech", Locale: "en_GB"},
	})
}

func newTestResolver(opts Options) *Resolver {
	if opts.BaseDomain == "" {
		opts.BaseDomain = "shop.test"
	}
	return NewResolver(testDirectory(), opts, nil)
}

func reasonOf(t *testing.T, err error) Reason {
	t.Helper()
	var re *ResolutionError
	require.True(t, errors.As(err, &re), "want *ResolutionError, got %v", err)
	require.ErrorIs(t, err, ErrTenantResolutionFailed)
	return re.Reason
}

func TestResolve_SingleSources(t *testing.T) {
	r := newTestResolver(Options{})
	cases := []struct {
		name string
		in   Inputs
		id   string
		src  Source
	}{
		{"header", Inputs{Header: "Globex"}, "globex", SourceHeader},
		{"token", Inputs{TokenClaim: "initech"}, "initech", SourceToken},
		{"subdomain label", Inputs{Host: "acme.shop.test:8443"}, "acme", SourceSubdomain},
		{"custom domain", Inputs{Host: "shop.globex.com"}, "globex", SourceSubdomain},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ten, err := r.Resolve(context.Background(), tc.in, true)
			require.NoError(t, err)
			require.NotNil(t, ten)
			assert.Equal(t, tc.id, ten.ID)
			assert.Equal(t, tc.src, ten.Source)
		})
	}
}

func TestResolve_NothingPresent(t *testing.T) {
	r := newTestResolver(Options{})

	ten, err := r.Resolve(context.Background(), Inputs{Host: "localhost"}, false)
	require.NoError(t, err)
	assert.Nil(t, ten)

	_, err = r.Resolve(context.Background(), Inputs{Host: "shop.test"}, true)
	assert.Equal(t, ReasonMissing, reasonOf(t, err))
}

func TestResolve_UnknownValue(t *testing.T) {
	r := newTestResolver(Options{})

	_, err := r.Resolve(context.Background(), Inputs{Header: "nope"}, false)
	assert.Equal(t, ReasonUnknown, reasonOf(t, err))

	var re *ResolutionError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusNotFound, re.Status())
	assert.Equal(t, SourceHeader, re.Source)

	_, err = r.Resolve(context.Background(), Inputs{Host: "ghost.shop.test"}, false)
	assert.Equal(t, ReasonUnknown, reasonOf(t, err))
}

func TestResolve_AgreeingSources(t *testing.T) {
	r := newTestResolver(Options{})

	ten, err := r.Resolve(context.Background(),
		Inputs{TokenClaim: "acme", Header: "acme", Host: "acme.shop.test"}, true)
	require.NoError(t, err)
	assert.Equal(t, "acme", ten.ID)
	assert.Equal(t, SourceToken, ten.Source)
}

func TestResolve_ConflictStrict(t *testing.T) {
	r := newTestResolver(Options{})

	_, err := r.Resolve(context.Background(),
		Inputs{Header: "globex", Host: "acme.shop.test"}, true)
	assert.Equal(t, ReasonConflict, reasonOf(t, err))

	var re *ResolutionError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusBadRequest, re.Status())
}

func TestResolve_ConflictLenientFirstWins(t *testing.T) {
	r := newTestResolver(Options{
		Precedence: []Source{SourceSubdomain, SourceHeader},
		Lenient:    true,
	})

	ten, err := r.Resolve(context.Background(),
		Inputs{Header: "globex", Host: "acme.shop.test"}, true)
	require.NoError(t, err)
	assert.Equal(t, "acme", ten.ID)
	assert.Equal(t, SourceSubdomain, ten.Source)
}

func TestResolve_PrecedenceOmitsSource(t *testing.T) {
	r := newTestResolver(Options{Precedence: []Source{SourceSubdomain}})

	ten, err := r.Resolve(context.Background(),
		Inputs{Header: "globex", Host: "acme.shop.test"}, true)
	require.NoError(t, err)
	assert.Equal(t, "acme", ten.ID)
}

func TestResolve_Deterministic(t *testing.T) {
	r := newTestResolver(Options{})
	in := Inputs{Header: "acme", Host: "acme.shop.test"}

	first, err := r.Resolve(context.Background(), in, true)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := r.Resolve(context.Background(), in, true)
		require.NoError(t, err)
		assert.Equal(t, *first, *again)
	}
}

func TestResolve_ReturnsCopy(t *testing.T) {
	r := newTestResolver(Options{})

	ten, err := r.Resolve(context.Background(), Inputs{Header: "acme"}, true)
	require.NoError(t, err)
	ten.Title = "mutated"

	again, err := r.Resolve(context.Background(), Inputs{Header: "acme"}, true)
	require.NoError(t, err)
	assert.Equal(t, "Acme", again.Title)
}

func TestResolve_CancelledContext(t *testing.T) {
	r := newTestResolver(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, Inputs{Header: "acme"}, true)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInputsFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://acme.shop.test/catalog", nil)
	req.Header.Set("X-Store", "  acme ")

	in := InputsFromRequest(req, "X-Store")
	assert.Equal(t, "acme", in.Header)
	assert.Equal(t, "acme.shop.test", in.Host)
	assert.Empty(t, in.TokenClaim)
}

func TestParsePrecedence(t *testing.T) {
	got, err := ParsePrecedence(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPrecedence, got)

	got, err = ParsePrecedence([]string{"header", "subdomain"})
	require.NoError(t, err)
	assert.Equal(t, []Source{SourceHeader, SourceSubdomain}, got)

	_, err = ParsePrecedence([]string{"cookie"})
	assert.Error(t, err)
	_, err = ParsePrecedence([]string{"header", "header"})
	assert.Error(t, err)
}

func TestDirectory_InitOnce(t *testing.T) {
	d := testDirectory()
	d.Init([]meta.Record{{ID: 9, Slug: "late", Host: "late.shop.test"}})

	_, ok := d.ByID("late")
	assert.False(t, ok)
	assert.Equal(t, 3, d.Len())

	ten, ok := d.ByHost("ACME.shop.test:80")
	require.True(t, ok)
	assert.Equal(t, uint64(1), ten.SiteID)
}

func TestSubdomainLabel(t *testing.T) {
	assert.Equal(t, "acme", subdomainLabel("acme.shop.test", "shop.test"))
	assert.Equal(t, "acme", subdomainLabel("ACME.shop.test:443", ".shop.test"))
	assert.Empty(t, subdomainLabel("a.b.shop.test", "shop.test"))
	assert.Empty(t, subdomainLabel("shop.test", "shop.test"))
	assert.Empty(t, subdomainLabel("acme.other.test", "shop.test"))
	assert.Empty(t, subdomainLabel("acme.shop.test", ""))
}
