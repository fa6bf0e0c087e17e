// Package cache memoizes routing decisions.
package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"

	"github.com/shardgate/shardgate/pkg/config"
	"github.com/shardgate/shardgate/pkg/models/sgerror"
	"github.com/shardgate/shardgate/pkg/sglog"
	"github.com/shardgate/shardgate/router/route"
)

type entry struct {
	rc       *route.RouteContext
	insertAt time.Time
}

type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Loads     uint64
	Size      int
}

// RouteCache is a bounded LRU of route contexts with optional TTL. Concurrent
// lookups of one missing key run a single computation. A disabled cache
// computes every time.
type RouteCache struct {
	enabled bool
	ttl     time.Duration
	now     func() time.Time

	entries *lru.Cache
	flights singleflight.Group

	// mu orders flight stores against invalidation; a flight stores its
	// result only if gen did not move while it was computing
	mu  sync.Mutex
	gen uint64

	hits      *atomic.Uint64
	misses    *atomic.Uint64
	evictions *atomic.Uint64
	loads     *atomic.Uint64
}

func New(opts config.ShardingCacheOptions) (*RouteCache, error) {
	ttl, err := opts.TTLDuration()
	if err != nil {
		return nil, err
	}
	size := opts.MaximumSize
	if size <= 0 {
		size = config.DefaultCacheSize
	}
	if opts.InitialCapacity > size {
		sglog.Zero.Debug().
			Int("initial capacity", opts.InitialCapacity).
			Int("maximum size", size).
			Msg("route cache initial capacity exceeds maximum size")
	}

	c := &RouteCache{
		enabled:   opts.Enabled,
		ttl:       ttl,
		now:       time.Now,
		hits:      atomic.NewUint64(0),
		misses:    atomic.NewUint64(0),
		evictions: atomic.NewUint64(0),
		loads:     atomic.NewUint64(0),
	}
	c.entries, err = lru.New(size)
	if err != nil {
		return nil, sgerror.Newf(sgerror.SG_CONFIG, "route cache: %w", err)
	}
	return c, nil
}

// SetClock replaces the time source used for TTL checks.
func (c *RouteCache) SetClock(now func() time.Time) {
	c.now = now
}

func (c *RouteCache) Enabled() bool { return c.enabled }

func (c *RouteCache) lookup(key Key) (*route.RouteContext, bool) {
	v, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	e := v.(*entry)
	if c.ttl > 0 && c.now().Sub(e.insertAt) >= c.ttl {
		c.entries.Remove(key)
		return nil, false
	}
	return e.rc, true
}

// GetOrCompute returns the cached route of key, calling compute on a miss.
// Errors of compute are returned to every waiter and never cached.
func (c *RouteCache) GetOrCompute(ctx context.Context, key Key, compute func() (*route.RouteContext, error)) (*route.RouteContext, error) {
	if !c.enabled {
		return compute()
	}

	if rc, ok := c.lookup(key); ok {
		c.hits.Inc()
		return rc, nil
	}
	c.misses.Inc()

	ch := c.flights.DoChan(key.String(), func() (any, error) {
		// a flight for the key may have finished right before this one started
		if rc, ok := c.lookup(key); ok {
			return rc, nil
		}
		c.mu.Lock()
		gen := c.gen
		c.mu.Unlock()

		c.loads.Inc()
		rc, err := compute()
		if err != nil {
			return nil, err
		}
		c.store(key, gen, rc)
		return rc, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			sglog.Zero.Debug().Uint64("key", key.Fingerprint()).Msg("route computation shared")
		}
		return res.Val.(*route.RouteContext), nil
	}
}

func (c *RouteCache) store(key Key, gen uint64, rc *route.RouteContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		sglog.Zero.Debug().Uint64("key", key.Fingerprint()).Msg("route computed before invalidation, not cached")
		return
	}
	if evicted := c.entries.Add(key, &entry{rc: rc, insertAt: c.now()}); evicted {
		c.evictions.Inc()
	}
}

// Invalidate drops key. A computation of key already running is not cached,
// and later lookups start a new one.
func (c *RouteCache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries.Remove(key)
	c.flights.Forget(key.String())
}

// Purge drops every entry. Running computations are not cached.
func (c *RouteCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries.Purge()
}

func (c *RouteCache) Len() int {
	return c.entries.Len()
}

func (c *RouteCache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Loads:     c.loads.Load(),
		Size:      c.entries.Len(),
	}
}
