package evictcache

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Krishna8167/evictcache/cache"
	"github.com/Krishna8167/evictcache/timer"
)

/*
Cache is a thread-safe facade over one of the eviction cores in package
cache (LRU, LRU-K, LFU or ARC), adding:

- Per-key TTL (Time-To-Live)
- Active expiration driven by a hierarchical timer wheel
- Lazy expiration on read
- Runtime statistics, optionally exported as Prometheus metrics

================================================================================
ARCHITECTURAL OVERVIEW
================================================================================

The cores in package cache are deliberately single-threaded: every
operation may relink internal structure, so there is no useful read-only
path to hand an RLock. This facade owns exactly one core behind a mutex
and serializes all access to it, which keeps the cores simple and the
locking story in one place.

TTL bookkeeping lives here, not in the core. Each Set with a positive TTL
schedules the key on a timer.Wheel; a background janitor advances the
wheel by wall-clock deltas and removes whatever fired. Between janitor
passes, reads check the key's deadline themselves, so expired data is
never returned regardless of janitor timing.

================================================================================
EXPIRATION STRATEGY
================================================================================

1. Lazy Expiration
  - Get/Peek treat a past-deadline key as a miss and remove it.

2. Active Expiration
  - The janitor feeds elapsed wall-clock time to the wheel and evicts
    the keys whose timers fired, so untouched entries cannot accumulate.

The wheel gives active expiration O(1) scheduling and O(ticks) firing,
instead of the O(n) full scan a plain ticker sweep needs.
*/
type Cache[K comparable, V any] struct {
	mu sync.Mutex

	core  cache.Interface[K, V]
	wheel *timer.Wheel[expiry[K]]
	ttl   map[K]ttlState
	step  time.Duration

	layout     []WheelLevel
	interval   time.Duration
	registerer prometheus.Registerer
	stopChan   chan struct{}
	stopOnce   sync.Once
	lastTick   time.Time

	stats  Stats
	logger *zap.Logger
}

// ErrNilCore is returned by New when no policy core is supplied.
var ErrNilCore = errors.New("evictcache: nil policy core")

// expiry is what the facade schedules on its wheel: the key to drop and
// its delay in wheel ticks, fixed at scheduling time.
type expiry[K comparable] struct {
	key   K
	delay uint64
}

func (e expiry[K]) When() uint64 { return e.delay }

// ttlState tracks one key's pending expiry: the wheel timer to cancel on
// overwrite or delete, and the absolute deadline for the lazy read check.
type ttlState struct {
	id       uint64
	deadline int64
}

/*
New wraps core in a configured facade.

INITIALIZATION STEPS:
1. Apply user-provided options.
2. Build the expiry wheel from the configured (or default) layout.
3. Register Prometheus collectors, if a registerer was supplied.
4. Start the background janitor (if a cleanup interval is set).

If no cleanup interval is configured, the janitor does not run and the
cache relies on lazy expiration plus the wheel advancing on writes.
*/
func New[K comparable, V any](core cache.Interface[K, V], opts ...Option[K, V]) (*Cache[K, V], error) {
	if core == nil {
		return nil, ErrNilCore
	}

	c := &Cache[K, V]{
		core:     core,
		ttl:      make(map[K]ttlState),
		stopChan: make(chan struct{}),
		logger:   zap.NewNop(),
		lastTick: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if len(c.layout) == 0 {
		c.layout = DefaultWheelLayout()
	}
	wheel := timer.NewWheel[expiry[K]]()
	for _, level := range c.layout {
		if err := wheel.AppendTimerWheel(level.Slots, uint64(level.Step/time.Millisecond), level.Name); err != nil {
			return nil, errors.Wrap(err, "evictcache: building expiry wheel")
		}
	}
	c.wheel = wheel
	c.step = c.layout[len(c.layout)-1].Step

	if c.registerer != nil {
		if err := c.registerer.Register(newCollector(c)); err != nil {
			return nil, errors.Wrap(err, "evictcache: registering metrics")
		}
	}

	c.startJanitor()
	return c, nil
}

/*
Set inserts or updates a key.

BEHAVIOR:

 1. Elapsed wall-clock time is fed to the wheel first, so any deadline
    that already passed is honored before the write.
 2. The value goes to the policy core; a capacity victim's pending timer
    is cancelled along with it.
 3. Any previous timer for the key is cancelled, then a new one is
    scheduled when ttl > 0. A ttl <= 0 stores the key without expiry.
*/
func (c *Cache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.advanceLocked(now)

	r := c.core.CaptureInsert(key, value)
	if r.Evicted {
		c.dropTimerLocked(r.EvictedKey)
		c.stats.Evictions++
		c.logger.Debug("capacity eviction", zap.Int("len", c.core.Len()))
	}

	c.dropTimerLocked(key)
	if ttl > 0 {
		ticks := uint64(ttl / c.step)
		if ticks == 0 {
			ticks = 1
		}
		id := c.wheel.AddTimer(expiry[K]{key: key, delay: ticks})
		c.ttl[key] = ttlState{id: id, deadline: now.Add(ttl).UnixMilli()}
	}
}

/*
Get retrieves a value.

The key's own deadline is checked before the core is consulted (lazy
expiration), so a stale entry is reported as a miss and removed even if
the janitor has not reached it yet. A live hit updates the core's
recency/frequency ordering, which is why this takes the exclusive lock.
*/
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.expireLazyLocked(key) {
		c.stats.Misses++
		var zero V
		return zero, false
	}

	v, ok := c.core.Get(key)
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	return v, ok
}

// Peek reads without touching the core's ordering or the hit/miss
// counters. Expired entries are still removed rather than returned.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.expireLazyLocked(key) {
		var zero V
		return zero, false
	}
	return c.core.Peek(key)
}

// Contains reports presence without ordering side effects.
func (c *Cache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.expireLazyLocked(key) {
		return false
	}
	return c.core.ContainsKey(key)
}

// Delete removes a key and cancels its pending expiry. Missing keys are
// safely ignored.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	c.dropTimerLocked(key)
	c.core.Remove(key)
	c.mu.Unlock()
}

// Len reports the wrapped core's current entry count.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.core.Len()
}

// Cap reports the wrapped core's current capacity.
func (c *Cache[K, V]) Cap() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.core.Cap()
}

// expireLazyLocked drops key if its deadline has passed, reporting whether
// it did.
func (c *Cache[K, V]) expireLazyLocked(key K) bool {
	st, ok := c.ttl[key]
	if !ok || time.Now().UnixMilli() < st.deadline {
		return false
	}
	c.wheel.DelTimer(st.id)
	delete(c.ttl, key)
	c.core.Remove(key)
	c.stats.Expirations++
	return true
}

func (c *Cache[K, V]) dropTimerLocked(key K) {
	if st, ok := c.ttl[key]; ok {
		c.wheel.DelTimer(st.id)
		delete(c.ttl, key)
	}
}

// advanceLocked feeds whole elapsed ticks to the wheel and removes every
// key whose timer fired. The sub-tick remainder stays on the clock so no
// time is lost between passes.
func (c *Cache[K, V]) advanceLocked(now time.Time) {
	delta := now.Sub(c.lastTick)
	if delta < c.step {
		return
	}
	whole := delta - delta%c.step
	c.lastTick = c.lastTick.Add(whole)

	for _, e := range c.wheel.UpdateDeltatime(uint64(whole / time.Millisecond)) {
		if _, ok := c.ttl[e.key]; !ok {
			continue
		}
		delete(c.ttl, e.key)
		if _, removed := c.core.Remove(e.key); removed {
			c.stats.Expirations++
			c.logger.Debug("expired", zap.Int("len", c.core.Len()))
		}
	}
}
