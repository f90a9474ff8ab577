package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanizio/storefront/internal/component"
	"github.com/yanizio/storefront/internal/middleware"
	"github.com/yanizio/storefront/internal/requestinfo"

	_ "github.com/yanizio/storefront/components/admin"
	_ "github.com/yanizio/storefront/components/auth"
	_ "github.com/yanizio/storefront/components/catalog"
	_ "github.com/yanizio/storefront/components/checkout"
	_ "github.com/yanizio/storefront/components/debug"
)

// routerOptions carries the knobs buildRouter needs beyond the Env.
type routerOptions struct {
	ForceHTTPS bool
	KnownHost  middleware.HostChecker
	Info       requestinfo.Options
	Limiter    *middleware.RateLimiter
}

// buildRouter assembles the middleware chain and mounts every component.
//
//	Recoverer → Security → ForceHTTPS → Enrich → RateLimit → component routes
//
// /metrics and /healthz sit outside the request-context machinery.
func buildRouter(env component.Env, opts routerOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.Security)
	if opts.ForceHTTPS {
		r.Use(middleware.ForceHTTPS(opts.KnownHost))
	}

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Group(func(app chi.Router) {
		app.Use(requestinfo.Enrich(opts.Info, env.Log))
		if opts.Limiter != nil {
			app.Use(opts.Limiter.Middleware)
		}
		component.MountAll(app, env)
	})
	return r
}
