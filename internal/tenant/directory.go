// internal/tenant/directory.go
//
// Process-wide tenant directory.
//
// Context
// -------
// The directory is built once at startup from `meta.AllActive` and never
// changes afterwards.  Lookups are plain map reads, so the Resolver can be
// called from any goroutine without locks.  Adding a storefront requires
// a restart (or a fresh Directory swapped in by the caller).
//
// Notes
// -----
// • Hosts are stored lower-case without a port.
// • Oxford commas, two spaces after periods.
package tenant

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/storefront/internal/metrics"
	"github.com/yanizio/storefront/internal/tenant/meta"
)

// Directory indexes tenants by slug and by host.
type Directory struct {
	once   sync.Once
	byID   map[string]Tenant
	byHost map[string]string // host → slug
}

// NewDirectory builds a directory from site rows.
func NewDirectory(recs []meta.Record) *Directory {
	d := &Directory{}
	d.Init(recs)
	return d
}

// Load reads the active sites and builds a directory.
func Load(ctx context.Context, db *sqlx.DB) (*Directory, error) {
	recs, err := meta.AllActive(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("load tenant directory: %w", err)
	}
	return NewDirectory(recs), nil
}

// Init populates the directory.  Only the first call has any effect.
func (d *Directory) Init(recs []meta.Record) {
	d.once.Do(func() {
		d.byID = make(map[string]Tenant, len(recs))
		d.byHost = make(map[string]string, len(recs))
		for _, r := range recs {
			slug := strings.ToLower(r.Slug)
			d.byID[slug] = Tenant{
				ID:     slug,
				SiteID: r.ID,
				Host:   strings.ToLower(r.Host),
				Title:  r.Title,
				Locale: r.Locale,
			}
			if r.Host != "" {
				d.byHost[strings.ToLower(r.Host)] = slug
			}
		}
		metrics.TenantDirectorySize.Set(float64(len(d.byID)))
	})
}

// ByID returns the tenant with the given slug.
func (d *Directory) ByID(id string) (Tenant, bool) {
	t, ok := d.byID[strings.ToLower(id)]
	return t, ok
}

// ByHost returns the tenant whose canonical host is h.
func (d *Directory) ByHost(h string) (Tenant, bool) {
	id, ok := d.byHost[strings.ToLower(stripPort(h))]
	if !ok {
		return Tenant{}, false
	}
	return d.byID[id], true
}

// Len is the number of tenants.
func (d *Directory) Len() int { return len(d.byID) }
