package evictcache

import (
	"time"

	"go.uber.org/zap"
)

/*
startJanitor launches the background expiration worker.

================================================================================
EXECUTION MODEL
================================================================================

  - If interval <= 0:
    → Active cleanup is disabled.
    → The cache relies on lazy expiration plus the wheel advancing
    whenever a write happens.

  - If interval > 0:
    → A time.Ticker drives a dedicated goroutine.
    → On each tick, the elapsed wall-clock time is fed to the timer
    wheel and every fired key is removed from the core.

Unlike a scan-everything sweeper, each pass costs O(ticks elapsed +
timers fired) — entries without a TTL are never visited at all.

stopChan is the lifecycle signal; the ticker is stopped before the
goroutine exits so neither leaks past Stop.
*/
func (c *Cache[K, V]) startJanitor() {
	if c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	c.logger.Debug("janitor started", zap.Duration("interval", c.interval))

	go func() {
		for {
			select {
			case <-ticker.C:
				c.deleteExpired()
			case <-c.stopChan:
				ticker.Stop()
				return
			}
		}
	}()
}

// deleteExpired is one janitor pass: advance the wheel to now and let
// advanceLocked drop whatever fired.
func (c *Cache[K, V]) deleteExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advanceLocked(time.Now())
}

/*
Stop terminates the background janitor.

Closing stopChan tells the goroutine to stop its ticker and return, so no
goroutine or ticker outlives the cache. Stop is idempotent: calling it
again (or calling it on a cache that never started a janitor) is a no-op.
*/
func (c *Cache[K, V]) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
		c.logger.Debug("janitor stopped")
	})
}
