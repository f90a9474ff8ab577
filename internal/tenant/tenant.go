// Package tenant resolves which storefront a request is addressed to.
//
// Tenants come from a Directory, an immutable snapshot of the active rows
// in the control-plane `site` table.  A Resolver consults up to three
// request sources (token claim, header, subdomain) in a configured order
// and returns a *Tenant tagged with the source that produced it.
package tenant

import (
	"errors"
	"fmt"
	"net/http"
)

// Source names where a tenant id came from.
type Source string

const (
	SourceToken     Source = "token"
	SourceHeader    Source = "header"
	SourceSubdomain Source = "subdomain"
)

// DefaultPrecedence is the order sources are consulted when none is
// configured.
var DefaultPrecedence = []Source{SourceToken, SourceHeader, SourceSubdomain}

// ParsePrecedence converts configured source names.
func ParsePrecedence(names []string) ([]Source, error) {
	if len(names) == 0 {
		return append([]Source(nil), DefaultPrecedence...), nil
	}
	out := make([]Source, 0, len(names))
	seen := make(map[Source]bool, len(names))
	for _, n := range names {
		s := Source(n)
		switch s {
		case SourceToken, SourceHeader, SourceSubdomain:
		default:
			return nil, fmt.Errorf("tenant: unknown source %q", n)
		}
		if seen[s] {
			return nil, fmt.Errorf("tenant: source %q listed twice", n)
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}

// Tenant is one storefront.  Values handed to callers are copies; the
// directory's own entries are never exposed.
type Tenant struct {
	ID     string `json:"id"` // public slug
	SiteID uint64 `json:"site_id"`
	Host   string `json:"host"`
	Title  string `json:"title"`
	Locale string `json:"locale"`
	Source Source `json:"source"`
}

//
// Errors
//

// ErrTenantResolutionFailed matches every *ResolutionError via errors.Is.
var ErrTenantResolutionFailed = errors.New("tenant resolution failed")

// Reason classifies a resolution failure.
type Reason string

const (
	ReasonMissing  Reason = "missing"  // required, but no source present
	ReasonUnknown  Reason = "unknown"  // a source named a tenant that does not exist
	ReasonConflict Reason = "conflict" // sources named different tenants
)

// ResolutionError describes why a tenant could not be resolved.
type ResolutionError struct {
	Reason Reason
	Source Source // empty for ReasonMissing
	Value  string
}

func (e *ResolutionError) Error() string {
	switch e.Reason {
	case ReasonUnknown:
		return fmt.Sprintf("%v: unknown tenant %q from %s", ErrTenantResolutionFailed, e.Value, e.Source)
	case ReasonConflict:
		return fmt.Sprintf("%v: %s names %q which conflicts with an earlier source", ErrTenantResolutionFailed, e.Source, e.Value)
	default:
		return fmt.Sprintf("%v: no tenant in request", ErrTenantResolutionFailed)
	}
}

// Is lets errors.Is(err, ErrTenantResolutionFailed) match.
func (e *ResolutionError) Is(target error) bool { return target == ErrTenantResolutionFailed }

// Status is the HTTP status a handler should answer with.
func (e *ResolutionError) Status() int {
	if e.Reason == ReasonUnknown {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}
