// Package reqctx assembles and carries the per-request RequestContext.
//
// A RequestContext bundles who is calling (identity.Principal), which
// storefront they address (tenant.Tenant), which features are on
// (flags.Snapshot), and what the transport told us (requestinfo).  It is
// built once by the Assembler before any handler runs and is read-only
// afterwards; every accessor returns a copy.
package reqctx

import (
	"context"
	"encoding/json"

	"github.com/yanizio/storefront/internal/flags"
	"github.com/yanizio/storefront/internal/identity"
	"github.com/yanizio/storefront/internal/requestinfo"
	"github.com/yanizio/storefront/internal/tenant"
)

// RequestContext is the immutable per-request aggregate.
type RequestContext struct {
	principal identity.Principal
	tenant    *tenant.Tenant
	flags     flags.Snapshot
	info      *requestinfo.RequestInfo
}

// New builds a RequestContext directly.  Handlers get theirs from the
// Assembler; New exists for tools and tests that need a fixed context.
func New(p identity.Principal, t *tenant.Tenant, snap flags.Snapshot, info *requestinfo.RequestInfo) *RequestContext {
	if t != nil {
		cp := *t
		t = &cp
	}
	return &RequestContext{principal: p, tenant: t, flags: snap, info: info}
}

// Principal returns the caller.
func (rc *RequestContext) Principal() identity.Principal { return rc.principal }

// Tenant returns a copy of the resolved tenant, or nil on tenant-optional
// routes where none was present.
func (rc *RequestContext) Tenant() *tenant.Tenant {
	if rc.tenant == nil {
		return nil
	}
	t := *rc.tenant
	return &t
}

// TenantID is "" when no tenant was resolved.
func (rc *RequestContext) TenantID() string {
	if rc.tenant == nil {
		return ""
	}
	return rc.tenant.ID
}

// Flags returns the snapshot evaluated at assembly.
func (rc *RequestContext) Flags() flags.Snapshot { return rc.flags }

// Flag is shorthand for Flags().Enabled(name).
func (rc *RequestContext) Flag(name string) bool { return rc.flags.Enabled(name) }

// Info returns a copy of the request metadata.
func (rc *RequestContext) Info() requestinfo.RequestInfo {
	if rc.info == nil {
		return requestinfo.RequestInfo{}
	}
	out := *rc.info
	out.Headers = rc.info.Headers.Clone()
	return out
}

// CanSeeInternal reports whether schema fields marked internal may be
// resolved for this caller.  Only admins qualify.
func (rc *RequestContext) CanSeeInternal() bool { return rc.principal.IsAdmin() }

// MarshalJSON renders the context for debug endpoints.  Credential
// headers are redacted.
func (rc *RequestContext) MarshalJSON() ([]byte, error) {
	var req any
	if rc.info != nil {
		req = struct {
			*requestinfo.RequestInfo
			Headers map[string][]string `json:"headers"`
		}{rc.info, rc.info.RedactedHeaders()}
	}
	return json.Marshal(struct {
		Principal      identity.Principal `json:"principal"`
		Tenant         *tenant.Tenant     `json:"tenant"`
		Flags          flags.Snapshot     `json:"flags"`
		CanSeeInternal bool               `json:"can_see_internal"`
		Request        any                `json:"request"`
	}{rc.principal, rc.tenant, rc.flags, rc.CanSeeInternal(), req})
}

//
// context.Context plumbing
//

type ctxKey struct{}

// WithContext stores rc in ctx.
func WithContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// FromContext returns the RequestContext stored by the middleware, or nil.
func FromContext(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(ctxKey{}).(*RequestContext)
	return rc
}

// MustFromContext panics when the middleware did not run.  Use it only in
// handlers mounted behind Middleware.
func MustFromContext(ctx context.Context) *RequestContext {
	rc := FromContext(ctx)
	if rc == nil {
		panic("reqctx: no RequestContext in context; is the middleware mounted?")
	}
	return rc
}
