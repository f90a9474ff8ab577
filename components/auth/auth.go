// components/auth/auth.go
//
// Session endpoints.
//
// Context
// -------
// API clients authenticate with bearer tokens.  Browser flows trade a
// freshly issued token for a session cookie once, then ride the cookie:
//
//	POST /auth/session  (Bearer)  → 201, Set-Cookie
//	POST /auth/logout   (Cookie)  → 204, cookie cleared, session deleted
//
//------------------------------------------------------------------------------

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/component"
	"github.com/yanizio/storefront/internal/identity"
	"github.com/yanizio/storefront/internal/logger"
	"github.com/yanizio/storefront/internal/reqctx"
	"github.com/yanizio/storefront/internal/session"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component encapsulates the session exchange.
type Component struct {
	env component.Env
	log *zap.Logger
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "auth" }

// Mount registers the auth routes.  Without a session store the component
// mounts nothing.
func (c *Component) Mount(r chi.Router, env component.Env) {
	if env.Sessions == nil || env.Cookies == nil {
		return
	}
	c.env = env
	c.log = logger.Or(env.Log)

	r.With(reqctx.Middleware(env.Assembler, reqctx.Route{RequireAuth: true}, env.Log)).
		Post("/auth/session", c.handleSession)
	r.Post("/auth/logout", c.handleLogout)
}

// Register component at program start.
func init() { component.Register(&Component{}) }

/*──────────────────────────── Handlers ─────────────────────────────────────*/

func (c *Component) handleSession(w http.ResponseWriter, r *http.Request) {
	rc := reqctx.MustFromContext(r.Context())
	p := rc.Principal()
	if p.Method != identity.MethodToken {
		component.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error": "a bearer token is required to open a session",
		})
		return
	}

	tenantID := p.TenantClaim
	if tenantID == "" {
		tenantID = rc.TenantID()
	}

	id := session.NewID()
	rec := session.Record{Subject: p.ID, Role: string(p.Role), TenantID: tenantID}
	if err := c.env.Sessions.Put(r.Context(), id, rec, session.DefaultLifetime); err != nil {
		c.log.Error("session put", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	c.env.Cookies.Issue(w, r, id)

	component.WriteJSON(w, http.StatusCreated, map[string]string{
		"subject": p.ID,
		"tenant":  tenantID,
	})
}

func (c *Component) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id, ok := c.env.Cookies.Read(r); ok {
		if err := c.env.Sessions.Delete(r.Context(), id); err != nil {
			c.log.Warn("session delete", zap.Error(err))
		}
	}
	c.env.Cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}
