// internal/tenant/resolver.go
//
// Tenant Resolver.
//
// Context
// -------
// Each source is consulted in precedence order:
//
//	token      tenant_id claim of a verified bearer token → ByID
//	header     configured header (default X-Tenant-ID)     → ByID
//	subdomain  exact host match, else <label>.<base_domain> → ByID
//
// A source is "present" when it carries a value.  A present value that
// names no tenant fails with ReasonUnknown.  Two present sources naming
// different tenants fail with ReasonConflict, unless the resolver is
// lenient, in which case the first source in order wins and later ones
// are not consulted.
//
// Notes
// -----
// • No I/O: the directory is in memory, so ctx is only checked up front.
// • Oxford commas, two spaces after periods.
package tenant

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/logger"
)

// DefaultHeader carries an explicit tenant id.
const DefaultHeader = "X-Tenant-ID"

// Inputs are the raw per-request values the resolver looks at.
type Inputs struct {
	Header     string
	TokenClaim string
	Host       string
}

// InputsFromRequest reads the tenant header and host.  TokenClaim is
// filled by the caller from the verified bearer token.
func InputsFromRequest(r *http.Request, header string) Inputs {
	if header == "" {
		header = DefaultHeader
	}
	return Inputs{
		Header: strings.TrimSpace(r.Header.Get(header)),
		Host:   r.Host,
	}
}

// Options tune a Resolver.
type Options struct {
	Precedence []Source
	Lenient    bool
	BaseDomain string
}

// Resolver is safe for concurrent use.
type Resolver struct {
	dir  *Directory
	opts Options
	log  *zap.Logger
}

// NewResolver returns a resolver over dir.  Empty precedence means
// DefaultPrecedence.
func NewResolver(dir *Directory, opts Options, log *zap.Logger) *Resolver {
	if len(opts.Precedence) == 0 {
		opts.Precedence = DefaultPrecedence
	}
	return &Resolver{dir: dir, opts: opts, log: logger.Or(log)}
}

// Resolve returns the tenant for in.  It returns (nil, nil) when no source
// is present and required is false.
func (r *Resolver) Resolve(ctx context.Context, in Inputs, required bool) (*Tenant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var winner *Tenant
	for _, src := range r.opts.Precedence {
		value, t, present, found := r.lookup(src, in)
		if !present {
			continue
		}
		if !found {
			r.log.Debug("tenant lookup miss",
				zap.String("source", string(src)), zap.String("value", value))
			return nil, &ResolutionError{Reason: ReasonUnknown, Source: src, Value: value}
		}
		if winner == nil {
			t.Source = src
			winner = &t
			if r.opts.Lenient {
				break
			}
			continue
		}
		if winner.ID != t.ID {
			r.log.Info("tenant sources disagree",
				zap.String("first", string(winner.Source)),
				zap.String("first_id", winner.ID),
				zap.String("source", string(src)),
				zap.String("id", t.ID))
			return nil, &ResolutionError{Reason: ReasonConflict, Source: src, Value: value}
		}
	}

	if winner == nil && required {
		return nil, &ResolutionError{Reason: ReasonMissing}
	}
	return winner, nil
}

// lookup evaluates one source.  present reports whether the request
// carried a value for it, found whether that value names a tenant.
func (r *Resolver) lookup(src Source, in Inputs) (value string, t Tenant, present, found bool) {
	switch src {
	case SourceToken:
		value = strings.ToLower(strings.TrimSpace(in.TokenClaim))
		if value == "" {
			return value, t, false, false
		}
		t, found = r.dir.ByID(value)
		return value, t, true, found

	case SourceHeader:
		value = strings.ToLower(in.Header)
		if value == "" {
			return value, t, false, false
		}
		t, found = r.dir.ByID(value)
		return value, t, true, found

	case SourceSubdomain:
		if in.Host == "" {
			return "", t, false, false
		}
		if t, found = r.dir.ByHost(in.Host); found {
			return stripPort(in.Host), t, true, true
		}
		// Hosts outside the base domain (health checks, raw IPs) are
		// treated as carrying no tenant.
		value = subdomainLabel(in.Host, r.opts.BaseDomain)
		if value == "" {
			return value, t, false, false
		}
		t, found = r.dir.ByID(value)
		return value, t, true, found
	}
	return "", t, false, false
}

// KnownHost reports whether host maps to a tenant through the subdomain
// source.  Used by the HTTPS redirect to avoid redirecting stray hosts.
func (r *Resolver) KnownHost(host string) bool {
	_, _, present, found := r.lookup(SourceSubdomain, Inputs{Host: host})
	return present && found
}
