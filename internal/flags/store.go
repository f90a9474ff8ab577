package flags

import (
	"context"
	"fmt"
)

// Source yields definitions for one scope.  An empty tenantID asks for
// global definitions; any other value asks for that tenant's overrides
// only.
type Source interface {
	Load(ctx context.Context, tenantID string) ([]Definition, error)
}

// Store yields the effective definitions for a tenant.
type Store interface {
	Definitions(ctx context.Context, tenantID string) (map[string]Definition, error)
}

// Layered merges sources.  Every layer's global definitions are applied
// first, in order, then every layer's tenant overrides, so a tenant
// override always beats a global definition of the same name.
type Layered struct {
	Layers []Source
}

var _ Store = Layered{}

// Definitions implements Store.
func (l Layered) Definitions(ctx context.Context, tenantID string) (map[string]Definition, error) {
	out := make(map[string]Definition)
	scopes := []string{""}
	if tenantID != "" {
		scopes = append(scopes, tenantID)
	}
	for _, scope := range scopes {
		for i, src := range l.Layers {
			defs, err := src.Load(ctx, scope)
			if err != nil {
				return nil, fmt.Errorf("flag layer %d scope %q: %w", i, scope, err)
			}
			for _, d := range defs {
				out[d.Name] = d
			}
		}
	}
	return out, nil
}
