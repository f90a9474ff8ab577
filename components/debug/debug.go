// components/debug/debug.go
//
// Echoes the assembled RequestContext as JSON.  The route is only live
// where the debugContext flag is on (normally an environment gate for
// development and staging); elsewhere it answers 404.
package debug

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/storefront/internal/component"
	"github.com/yanizio/storefront/internal/reqctx"
)

// FlagDebug gates the endpoint.
const FlagDebug = "debugContext"

var _ component.Component = (*Component)(nil)

// Component serves GET /debug/context.
type Component struct{}

func (c *Component) Name() string { return "debug" }

func (c *Component) Mount(r chi.Router, env component.Env) {
	r.With(reqctx.Middleware(env.Assembler, reqctx.Route{}, env.Log)).
		Get("/debug/context", handler)
}

func init() { component.Register(&Component{}) }

// handler writes the context with credentials redacted.
func handler(w http.ResponseWriter, r *http.Request) {
	rc := reqctx.MustFromContext(r.Context())
	if !rc.Flag(FlagDebug) {
		http.NotFound(w, r)
		return
	}
	component.WriteJSON(w, http.StatusOK, rc)
}
