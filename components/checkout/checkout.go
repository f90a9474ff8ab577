// components/checkout/checkout.go
//
// Checkout entry point.  Requires an authenticated principal and a tenant,
// and reports which checkout flow the caller gets from the betaCheckout
// rollout.
//
//------------------------------------------------------------------------------

package checkout

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/storefront/internal/component"
	"github.com/yanizio/storefront/internal/flags"
	"github.com/yanizio/storefront/internal/reqctx"
)

// FlagBeta gates the new checkout flow.
const FlagBeta = "betaCheckout"

var _ component.Component = (*Component)(nil)

// Component serves GET /checkout.
type Component struct{}

// Name returns the canonical component key.
func (c *Component) Name() string { return "checkout" }

// Mount registers the checkout route.
func (c *Component) Mount(r chi.Router, env component.Env) {
	route := reqctx.Route{RequireAuth: true, RequireTenant: true}
	r.With(reqctx.Middleware(env.Assembler, route, env.Log)).
		Get("/checkout", c.handleCheckout)
}

func init() { component.Register(&Component{}) }

type checkoutResponse struct {
	Tenant    string         `json:"tenant"`
	Principal string         `json:"principal"`
	Flow      string         `json:"flow"`
	Decision  flags.Decision `json:"decision"`
}

func (c *Component) handleCheckout(w http.ResponseWriter, r *http.Request) {
	rc := reqctx.MustFromContext(r.Context())
	dec := rc.Flags().Decision(FlagBeta)

	flow := "classic"
	if dec.Enabled {
		flow = "beta"
		if dec.Variant != "" {
			flow = "beta-" + dec.Variant
		}
	}

	component.WriteJSON(w, http.StatusOK, checkoutResponse{
		Tenant:    rc.TenantID(),
		Principal: rc.Principal().ID,
		Flow:      flow,
		Decision:  dec,
	})
}
