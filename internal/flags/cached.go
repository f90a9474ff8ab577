// internal/flags/cached.go
//
// Per-tenant definition cache.
//
// Context
// -------
// CachedStore sits in front of a slow Source (the feature_flag table) and
// keeps one entry per scope ("" for globals, otherwise a tenant id):
//
//   - Entries are reloaded once older than ttl.  That bounds how long a
//     flag change takes to reach every replica.
//   - Concurrent misses for one scope share a single load (singleflight).
//   - When a reload fails and a previous entry exists, the stale entry is
//     served and the error is logged.
//   - The evictor drops scopes that were not read for idleTTL, and the
//     least recently used ones once the map exceeds maxEntries.
//
// Notes
// -----
// • Loads run on a context detached from the triggering request, bounded
//   by loadTimeout, so one cancelled request cannot fail its peers.
// • Oxford commas, two spaces after periods.
package flags

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/storefront/internal/logger"
	"github.com/yanizio/storefront/internal/metrics"
)

// Cache defaults.
const (
	DefaultIdleTTL    = 30 * time.Minute
	DefaultMaxEntries = 1000
	EvictInterval     = 5 * time.Minute
	loadTimeout       = 2 * time.Second
)

type entry struct {
	defs     []Definition
	loadedAt int64 // UnixNano
	lastSeen int64 // UnixNano, atomic
}

// CachedStore is a caching Source.
type CachedStore struct {
	src        Source
	ttl        time.Duration
	idleTTL    time.Duration
	maxEntries int
	log        *zap.Logger

	sfg singleflight.Group
	m   sync.Map // scope → *entry

	now func() time.Time
}

var _ Source = (*CachedStore)(nil)

// NewCachedStore wraps src.  Zero idleTTL or maxEntries select defaults.
func NewCachedStore(src Source, ttl, idleTTL time.Duration, maxEntries int, log *zap.Logger) *CachedStore {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &CachedStore{
		src:        src,
		ttl:        ttl,
		idleTTL:    idleTTL,
		maxEntries: maxEntries,
		log:        logger.Or(log),
		now:        time.Now,
	}
}

// Load implements Source.
func (c *CachedStore) Load(ctx context.Context, scope string) ([]Definition, error) {
	now := c.now().UnixNano()
	stale, hit := c.lookup(scope, now)
	if hit != nil {
		return hit.defs, nil
	}

	v, err, _ := c.sfg.Do(scope, func() (interface{}, error) {
		// Double-check after the singleflight barrier.
		if _, hit := c.lookup(scope, c.now().UnixNano()); hit != nil {
			return hit.defs, nil
		}

		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		defs, err := c.src.Load(lctx, scope)
		if err != nil {
			return nil, err
		}

		t := c.now().UnixNano()
		if _, loaded := c.m.Swap(scope, &entry{defs: defs, loadedAt: t, lastSeen: t}); !loaded {
			metrics.FlagCacheEntries.Inc()
		}
		metrics.FlagCacheLoadTotal.Inc()
		return defs, nil
	})
	if err != nil {
		if stale != nil {
			c.log.Warn("flag reload failed, serving stale definitions",
				zap.String("scope", scope), zap.Error(err))
			return stale.defs, nil
		}
		return nil, err
	}
	return v.([]Definition), nil
}

// lookup returns (entry, nil) when an entry exists but is older than ttl,
// and (entry, entry) when it is fresh.
func (c *CachedStore) lookup(scope string, now int64) (stale, fresh *entry) {
	v, ok := c.m.Load(scope)
	if !ok {
		return nil, nil
	}
	ent := v.(*entry)
	atomic.StoreInt64(&ent.lastSeen, now)
	if time.Duration(now-ent.loadedAt) < c.ttl {
		return ent, ent
	}
	return ent, nil
}

// Len is the number of cached scopes.
func (c *CachedStore) Len() int {
	n := 0
	c.m.Range(func(_, _ any) bool { n++; return true })
	return n
}
