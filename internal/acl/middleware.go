// internal/acl/middleware.go
//
// Chi middleware helpers that enforce RBAC over the assembled
// RequestContext.  Both helpers must be mounted after reqctx.Middleware.

package acl

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/identity"
	"github.com/yanizio/storefront/internal/logger"
	"github.com/yanizio/storefront/internal/reqctx"
)

// RequireRole ensures the caller holds ANY of the supplied roles.
func RequireRole(roles ...identity.Role) func(http.Handler) http.Handler {
	if len(roles) == 0 {
		panic("acl.RequireRole: at least one role must be supplied")
	}
	allowSet := make(map[identity.Role]struct{}, len(roles))
	for _, r := range roles {
		allowSet[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := reqctx.FromContext(r.Context())
			if rc == nil {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			p := rc.Principal()
			if p.IsAnonymous() {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if _, ok := allowSet[p.Role]; !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission verifies that the caller's role allows component/action
// within the resolved tenant.
func RequirePermission(store Store, component, action string, log *zap.Logger) func(http.Handler) http.Handler {
	log = logger.Or(log)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := reqctx.FromContext(r.Context())
			if rc == nil || rc.Tenant() == nil {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			p := rc.Principal()
			if p.IsAnonymous() {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			allowed, err := store.Allowed(r.Context(), rc.Tenant().SiteID, string(p.Role), component, action)
			if err != nil {
				log.Error("acl role allowed", zap.Error(err),
					zap.String("component", component), zap.String("action", action))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if !allowed {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
