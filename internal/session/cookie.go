// internal/session/cookie.go
//
// Signed session cookies.
//
// Context
//   The browser only ever holds an opaque session id.  Everything the
//   identity resolver needs (subject, role, tenant) lives server-side in the
//   session Store.  The cookie value is
//
//      base64url( id | HMAC_SHA256(key, id) )
//
//   so a forged or truncated id is rejected before any store round-trip.
//
// Workflow
//   •  Codec.Issue(w, r, id) → sets the cookie after login.
//   •  Codec.Read(r)         → returns the verified id, or ok == false.
//   •  Codec.Clear(w)        → expires the cookie on logout.
//
//------------------------------------------------------------------------------

package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// MinKeyLen is the shortest HMAC key NewCodec accepts.
const MinKeyLen = 32

// DefaultLifetime is how long browsers keep the cookie.
const DefaultLifetime = 14 * 24 * time.Hour

// ErrShortKey is returned by NewCodec for keys under MinKeyLen bytes.
var ErrShortKey = errors.New("session: cookie key must be at least 32 bytes")

// Codec signs and verifies session cookies.  Safe for concurrent use.
type Codec struct {
	name     string
	key      []byte
	lifetime time.Duration
}

// NewCodec builds a Codec for the named cookie.
func NewCodec(name string, key []byte) (*Codec, error) {
	if len(key) < MinKeyLen {
		return nil, ErrShortKey
	}
	return &Codec{name: name, key: key, lifetime: DefaultLifetime}, nil
}

// Name returns the cookie name.
func (c *Codec) Name() string { return c.name }

// NewID returns a fresh random session id.
func NewID() string { return uuid.NewString() }

// Sign returns the cookie value for id.
func (c *Codec) Sign(id string) string {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(id))

	buf := make([]byte, 0, len(id)+sha256.Size)
	buf = append(buf, id...)
	buf = append(buf, mac.Sum(nil)...)
	return base64.RawURLEncoding.EncodeToString(buf)
}

// Verify returns the id carried by value when the signature checks out.
func (c *Codec) Verify(value string) (string, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(raw) <= sha256.Size {
		return "", false
	}
	id, sig := raw[:len(raw)-sha256.Size], raw[len(raw)-sha256.Size:]

	mac := hmac.New(sha256.New, c.key)
	mac.Write(id)
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return "", false
	}
	return string(id), true
}

// Issue sets the signed session cookie.
func (c *Codec) Issue(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    c.Sign(id),
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil, // only send over HTTPS
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(c.lifetime),
	})
}

// Clear expires the session cookie.
func (c *Codec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// Read returns the verified session id from r.
//
// ok == false when the cookie is missing, empty, or tampered with.
func (c *Codec) Read(r *http.Request) (id string, ok bool) {
	ck, err := r.Cookie(c.name)
	if err != nil || ck.Value == "" {
		return "", false
	}
	return c.Verify(ck.Value)
}
