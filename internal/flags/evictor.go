// evictor.go houses the eviction loop for CachedStore.  Every
// EvictInterval it scans the map and removes:
//
//   - scopes idle longer than idleTTL
//   - least-recently-used scopes when map size exceeds maxEntries
//
// Each eviction is logged at debug and updates Prometheus counters.
package flags

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/metrics"
)

// Run evicts on every tick until ctx is done.
func (c *CachedStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = EvictInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.evict()
		}
	}
}

func (c *CachedStore) evict() {
	now := c.now().UnixNano()
	var count int

	// ----------------------------------------------------------------
	// Idle eviction pass
	// ----------------------------------------------------------------
	c.m.Range(func(key, value any) bool {
		ent := value.(*entry)
		idle := time.Duration(now - atomic.LoadInt64(&ent.lastSeen))
		if idle > c.idleTTL {
			c.remove(key.(string), "idle")
			return true
		}
		count++
		return true
	})

	// ----------------------------------------------------------------
	// LRU eviction pass
	// ----------------------------------------------------------------
	if count <= c.maxEntries {
		return
	}
	type kv struct {
		key string
		at  int64
	}
	all := make([]kv, 0, count)
	c.m.Range(func(key, value any) bool {
		all = append(all, kv{key: key.(string), at: atomic.LoadInt64(&value.(*entry).lastSeen)})
		return true
	})
	sort.Slice(all, func(i, j int) bool { return all[i].at < all[j].at })
	for i := 0; i < len(all)-c.maxEntries; i++ {
		c.remove(all[i].key, "lru")
	}
}

func (c *CachedStore) remove(scope, why string) {
	if _, ok := c.m.LoadAndDelete(scope); !ok {
		return
	}
	c.log.Debug("flag scope evicted", zap.String("scope", scope), zap.String("why", why))
	metrics.FlagCacheEvictTotal.Inc()
	metrics.FlagCacheEntries.Dec()
}
