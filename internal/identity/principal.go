// Package identity derives the caller's Principal from request credentials.
//
// A Principal is a small value type.  It is built once per request by
// Resolver.Resolve and never mutated; handlers receive it through the
// assembled request context.
package identity

// Role is the coarse authorization class of a principal.
type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleCustomer  Role = "customer"
	RoleAdmin     Role = "admin"
)

// ParseRole maps a stored or claimed role string onto Role.  Anything
// other than "admin" on an authenticated principal is a customer.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleCustomer
}

// Method records how the principal authenticated.
type Method string

const (
	MethodNone    Method = "none"
	MethodSession Method = "session"
	MethodToken   Method = "token"
)

// Principal is the resolved identity of the caller.
type Principal struct {
	ID          string `json:"id"`
	Role        Role   `json:"role"`
	Method      Method `json:"method"`
	TenantClaim string `json:"tenant_claim,omitempty"` // tenant bound to the credential, if any
}

// Anonymous returns the unauthenticated principal.
func Anonymous() Principal {
	return Principal{Role: RoleAnonymous, Method: MethodNone}
}

// IsAnonymous reports whether no credential was accepted.
func (p Principal) IsAnonymous() bool { return p.Role == RoleAnonymous }

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
