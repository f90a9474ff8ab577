// internal/identity/resolver.go
//
// Identity Resolver.
//
// Context
// -------
// Resolve turns raw credentials into a Principal.  Credentials are tried in
// a fixed order and the first valid one wins:
//
//  1. `Authorization: Bearer <jwt>`  → MethodToken
//  2. signed session cookie → Store  → MethodSession
//
// Rejected credentials never fail the request on their own.  They are
// audit-logged and the caller falls back to the anonymous principal,
// unless the route requires authentication, in which case Resolve returns
// ErrAuthenticationRequired.
//
// Notes
// -----
// • Session-store outages look like a missing session to the caller but
//   are logged at WARN so they stand out from ordinary expiry.
// • A cancelled ctx is returned as-is; the assembler treats it as an abort.
// • Oxford commas, two spaces after periods.
package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/logger"
	"github.com/yanizio/storefront/internal/metrics"
	"github.com/yanizio/storefront/internal/session"
)

// ErrAuthenticationRequired is returned when a route needs a principal and
// none could be resolved.
var ErrAuthenticationRequired = errors.New("authentication required")

// Credentials are the raw, unverified inputs.
type Credentials struct {
	BearerToken   string
	SessionCookie string
}

// CredentialsFromRequest extracts the bearer token and session cookie.
func CredentialsFromRequest(r *http.Request, cookieName string) Credentials {
	var c Credentials
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		c.BearerToken = strings.TrimSpace(h[7:])
	}
	if ck, err := r.Cookie(cookieName); err == nil {
		c.SessionCookie = ck.Value
	}
	return c
}

// Resolver is safe for concurrent use.
type Resolver struct {
	tokens   *TokenVerifier
	cookies  *session.Codec
	sessions session.Store
	log      *zap.Logger
}

// NewResolver wires the verifier, cookie codec, and session store.  Any of
// them may be nil to disable that credential kind.
func NewResolver(tokens *TokenVerifier, cookies *session.Codec, sessions session.Store, log *zap.Logger) *Resolver {
	return &Resolver{
		tokens:   tokens,
		cookies:  cookies,
		sessions: sessions,
		log:      logger.Or(log),
	}
}

// Resolve returns the principal for creds.  See the file header for the
// fallback rules.
func (res *Resolver) Resolve(ctx context.Context, creds Credentials, required bool) (Principal, error) {
	if p, ok := res.fromToken(creds.BearerToken); ok {
		return p, nil
	}

	p, ok, err := res.fromSession(ctx, creds.SessionCookie)
	if err != nil {
		return Principal{}, err
	}
	if ok {
		return p, nil
	}

	if required {
		return Principal{}, ErrAuthenticationRequired
	}
	return Anonymous(), nil
}

// TokenTenant returns the tenant claim of a valid bearer token, or "".
// It performs no I/O.
func (res *Resolver) TokenTenant(raw string) string {
	if raw == "" || res.tokens == nil {
		return ""
	}
	claims, err := res.tokens.Verify(raw)
	if err != nil {
		return ""
	}
	return claims.TenantID
}

func (res *Resolver) fromToken(raw string) (Principal, bool) {
	if raw == "" || res.tokens == nil {
		return Principal{}, false
	}
	claims, err := res.tokens.Verify(raw)
	if err != nil {
		res.audit(MethodToken, "invalid bearer token", err)
		return Principal{}, false
	}
	return Principal{
		ID:          claims.Subject,
		Role:        ParseRole(claims.Role),
		Method:      MethodToken,
		TenantClaim: claims.TenantID,
	}, true
}

func (res *Resolver) fromSession(ctx context.Context, cookie string) (Principal, bool, error) {
	if cookie == "" || res.cookies == nil || res.sessions == nil {
		return Principal{}, false, nil
	}
	id, ok := res.cookies.Verify(cookie)
	if !ok {
		res.audit(MethodSession, "session cookie signature mismatch", nil)
		return Principal{}, false, nil
	}

	rec, err := res.sessions.Lookup(ctx, id)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return Principal{}, false, ctx.Err()
	case errors.Is(err, session.ErrNotFound):
		res.audit(MethodSession, "unknown or expired session", nil)
		return Principal{}, false, nil
	default:
		res.log.Warn("session store lookup failed", zap.Error(err))
		return Principal{}, false, nil
	}

	return Principal{
		ID:          rec.Subject,
		Role:        ParseRole(rec.Role),
		Method:      MethodSession,
		TenantClaim: rec.TenantID,
	}, true, nil
}

func (res *Resolver) audit(m Method, msg string, err error) {
	metrics.InvalidCredentialsTotal.WithLabelValues(string(m)).Inc()
	fields := []zap.Field{zap.Bool("audit", true), zap.String("method", string(m))}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	res.log.Info(msg, fields...)
}
