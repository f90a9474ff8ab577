// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  cmd/web imports the
// components for their side effect and calls MountAll on the root router.
//
// A component declares its own request-context requirements: Mount()
// wraps each route group in reqctx.Middleware with the reqctx.Route it
// needs, so a public catalog page and an admin page can live side by side
// under one router.

package component

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/acl"
	"github.com/yanizio/storefront/internal/identity"
	"github.com/yanizio/storefront/internal/reqctx"
	"github.com/yanizio/storefront/internal/session"
)

// SessionWriter is the write half of the session store.
type SessionWriter interface {
	session.Store
	Put(ctx context.Context, id string, rec session.Record, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// Env carries the shared services components build their routes from.
type Env struct {
	Assembler *reqctx.Assembler
	ACL       acl.Store
	Identity  *identity.Resolver
	Sessions  SessionWriter
	Cookies   *session.Codec
	Log       *zap.Logger
}

// Component contract.
//
// Mount() should register every endpoint of the component on r, e.g:
//
//	r.With(reqctx.Middleware(env.Assembler, reqctx.Route{RequireTenant: true}, env.Log)).
//	    Get("/catalog", getCatalog)
//
// Components share one router, so paths must not overlap.
type Component interface {
	Name() string
	Mount(r chi.Router, env Env)
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component ordered by name.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// MountAll attaches every registered component to r.
func MountAll(r chi.Router, env Env) {
	for _, c := range All() {
		c.Mount(r, env)
	}
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
