// components/catalog/catalog.go
//
// Public catalog endpoint.  Anonymous callers are welcome; a tenant is
// required so the response can be scoped to one storefront.
//
//------------------------------------------------------------------------------

package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/storefront/internal/component"
	"github.com/yanizio/storefront/internal/reqctx"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component serves GET /catalog.
type Component struct{}

// Name returns the canonical component key.
func (c *Component) Name() string { return "catalog" }

// Mount registers the catalog route.
func (c *Component) Mount(r chi.Router, env component.Env) {
	r.With(reqctx.Middleware(env.Assembler, reqctx.Route{RequireTenant: true}, env.Log)).
		Get("/catalog", c.handleCatalog)
}

// Register component at program start.
func init() { component.Register(&Component{}) }

/*──────────────────────────── Handlers ─────────────────────────────────────*/

type catalogResponse struct {
	Tenant    string `json:"tenant"`
	Title     string `json:"title"`
	Locale    string `json:"locale"`
	Viewer    string `json:"viewer"`
	NewNav    bool   `json:"new_nav"`
	Internals bool   `json:"internals"`
}

func (c *Component) handleCatalog(w http.ResponseWriter, r *http.Request) {
	rc := reqctx.MustFromContext(r.Context())
	t := rc.Tenant()

	component.WriteJSON(w, http.StatusOK, catalogResponse{
		Tenant:    t.ID,
		Title:     t.Title,
		Locale:    t.Locale,
		Viewer:    string(rc.Principal().Role),
		NewNav:    rc.Flag("newNav"),
		Internals: rc.CanSeeInternal(),
	})
}
