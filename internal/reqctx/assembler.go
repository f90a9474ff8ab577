// internal/reqctx/assembler.go
//
// Context Assembler.
//
// Context
// -------
// Assemble builds a RequestContext in three steps:
//
//  1. Capture request metadata (or reuse what requestinfo.Enrich stored)
//     and read the bearer token's tenant claim.  Both are CPU-only.
//  2. Resolve identity and tenant concurrently.  Neither depends on the
//     other, and identity may wait on the session store.
//  3. Evaluate the flag snapshot for the resolved principal and tenant.
//
// A session's tenant binding is applied after identity resolves, and any
// principal bound to a tenant is refused inside a different one.
//
// If the request context is cancelled at any point the partial result is
// discarded and the context error is returned.  When both lookups fail,
// the authentication error wins, so an anonymous caller probing an
// unknown tenant learns nothing about which tenants exist.
//
// Notes
// -----
// • Assembly outcomes and latency are exported to Prometheus.
// • Oxford commas, two spaces after periods.
package reqctx

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/storefront/internal/flags"
	"github.com/yanizio/storefront/internal/identity"
	"github.com/yanizio/storefront/internal/logger"
	"github.com/yanizio/storefront/internal/metrics"
	"github.com/yanizio/storefront/internal/requestinfo"
	"github.com/yanizio/storefront/internal/tenant"
)

// Route declares what a handler needs.
type Route struct {
	RequireAuth   bool
	RequireTenant bool
}

// IdentityResolver is satisfied by *identity.Resolver.
type IdentityResolver interface {
	Resolve(ctx context.Context, creds identity.Credentials, required bool) (identity.Principal, error)
	TokenTenant(raw string) string
}

// TenantResolver is satisfied by *tenant.Resolver.
type TenantResolver interface {
	Resolve(ctx context.Context, in tenant.Inputs, required bool) (*tenant.Tenant, error)
}

// FlagEvaluator is satisfied by *flags.Evaluator.
type FlagEvaluator interface {
	Snapshot(ctx context.Context, p identity.Principal, t *tenant.Tenant) flags.Snapshot
}

// Config wires an Assembler.
type Config struct {
	Identity     IdentityResolver
	Tenants      TenantResolver
	Flags        FlagEvaluator
	CookieName   string
	TenantHeader string
	Info         requestinfo.Options
	Logger       *zap.Logger
}

// Assembler is safe for concurrent use.
type Assembler struct {
	cfg Config
	log *zap.Logger
}

// NewAssembler returns an assembler over cfg.
func NewAssembler(cfg Config) *Assembler {
	return &Assembler{cfg: cfg, log: logger.Or(cfg.Logger)}
}

// Assemble builds the RequestContext for r.  The returned error is one of
// identity.ErrAuthenticationRequired, a *tenant.ResolutionError, or the
// context error.
func (a *Assembler) Assemble(ctx context.Context, r *http.Request, route Route) (rc *RequestContext, err error) {
	start := time.Now()
	defer func() {
		metrics.ContextAssemblySeconds.Observe(time.Since(start).Seconds())
		metrics.ContextAssemblyTotal.WithLabelValues(outcome(err)).Inc()
	}()

	info := requestinfo.FromContext(r.Context())
	if info == nil {
		info = requestinfo.Capture(r, a.cfg.Info)
	}

	creds := identity.CredentialsFromRequest(r, a.cfg.CookieName)
	in := tenant.InputsFromRequest(r, a.cfg.TenantHeader)
	in.TokenClaim = a.cfg.Identity.TokenTenant(creds.BearerToken)

	var (
		principal        identity.Principal
		ten              *tenant.Tenant
		idErr, tenantErr error
		g                errgroup.Group
	)
	g.Go(func() error {
		principal, idErr = a.cfg.Identity.Resolve(ctx, creds, route.RequireAuth)
		return idErr
	})
	g.Go(func() error {
		ten, tenantErr = a.cfg.Tenants.Resolve(ctx, in, route.RequireTenant)
		return tenantErr
	})
	_ = g.Wait()

	// A session carries its tenant binding server-side, so it is only known
	// now.  Apply it as the token source, the same as a bearer claim.
	if idErr == nil && principal.TenantClaim != "" && in.TokenClaim == "" {
		in.TokenClaim = principal.TenantClaim
		ten, tenantErr = a.cfg.Tenants.Resolve(ctx, in, route.RequireTenant)
	}

	if err := pickError(idErr, tenantErr); err != nil {
		return nil, err
	}
	if err := a.checkBinding(principal, ten); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := a.cfg.Flags.Snapshot(ctx, principal, ten)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return New(principal, ten, snap, info), nil
}

// checkBinding rejects a principal bound to one tenant acting inside
// another.  It holds even when the precedence list omits the token source.
func (a *Assembler) checkBinding(p identity.Principal, t *tenant.Tenant) error {
	if p.TenantClaim == "" || t == nil || strings.EqualFold(p.TenantClaim, t.ID) {
		return nil
	}
	a.log.Info("principal bound to another tenant",
		zap.Bool("audit", true),
		zap.String("principal", p.ID),
		zap.String("bound", p.TenantClaim),
		zap.String("tenant", t.ID))
	return &tenant.ResolutionError{Reason: tenant.ReasonConflict, Source: tenant.SourceToken, Value: p.TenantClaim}
}

// pickError orders concurrent failures: authentication, then tenant, then
// anything else (cancellation included).
func pickError(idErr, tenantErr error) error {
	switch {
	case errors.Is(idErr, identity.ErrAuthenticationRequired):
		return idErr
	case errors.Is(tenantErr, tenant.ErrTenantResolutionFailed):
		return tenantErr
	case idErr != nil:
		return idErr
	default:
		return tenantErr
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, identity.ErrAuthenticationRequired):
		return metrics.OutcomeUnauthorized
	case errors.Is(err, tenant.ErrTenantResolutionFailed):
		return metrics.OutcomeNoTenant
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeError
	}
}
