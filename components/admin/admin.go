// components/admin/admin.go
//
// Admin dashboard stub.  Two gates stack on top of the request context:
// the admin role, then the tenant's role_acl row for admin/view.
//
//------------------------------------------------------------------------------

package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/storefront/internal/acl"
	"github.com/yanizio/storefront/internal/component"
	"github.com/yanizio/storefront/internal/identity"
	"github.com/yanizio/storefront/internal/reqctx"
)

var _ component.Component = (*Component)(nil)

// Component serves GET /admin.
type Component struct{}

// Name returns the canonical component key.
func (c *Component) Name() string { return "admin" }

// Mount registers the admin route.
func (c *Component) Mount(r chi.Router, env component.Env) {
	route := reqctx.Route{RequireAuth: true, RequireTenant: true}
	r.Group(func(g chi.Router) {
		g.Use(reqctx.Middleware(env.Assembler, route, env.Log))
		g.Use(acl.RequireRole(identity.RoleAdmin))
		if env.ACL != nil {
			g.Use(acl.RequirePermission(env.ACL, "admin", "view", env.Log))
		}
		g.Get("/admin", c.handleAdmin)
	})
}

func init() { component.Register(&Component{}) }

func (c *Component) handleAdmin(w http.ResponseWriter, r *http.Request) {
	rc := reqctx.MustFromContext(r.Context())
	snap := rc.Flags()

	flagsOut := make(map[string]bool, len(snap.Names()))
	for _, n := range snap.Names() {
		flagsOut[n] = snap.Enabled(n)
	}

	component.WriteJSON(w, http.StatusOK, map[string]any{
		"tenant":   rc.Tenant(),
		"admin":    rc.Principal().ID,
		"flags":    flagsOut,
		"degraded": snap.Degraded(),
	})
}
