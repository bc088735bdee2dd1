package evictcache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

/*
Option configures a Cache at construction time.

This is the functional options pattern: New accepts a variadic list of
Option values, each of which mutates the Cache before it goes live:

	c, err := evictcache.New[string, int](
	    cache.New[string, int](1024),
	    evictcache.WithCleanupInterval[string, int](time.Second),
	)

Adding configuration never changes New's signature, and the zero
configuration (no janitor, nop logger, default wheel) stays valid.
*/
type Option[K comparable, V any] func(*Cache[K, V])

// WithCleanupInterval enables the background janitor and sets how often it
// advances the expiry wheel. Without this option the janitor does not run.
func WithCleanupInterval[K comparable, V any](d time.Duration) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.interval = d
	}
}

// WithLogger attaches a zap logger. Lifecycle and eviction events are
// reported at Debug; the default is a nop logger.
func WithLogger[K comparable, V any](logger *zap.Logger) Option[K, V] {
	return func(c *Cache[K, V]) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithWheelLayout overrides the expiry wheel hierarchy. Levels are given
// coarsest first and each level's Slots×Step must equal the previous
// level's Step; New fails otherwise. The finest level's Step becomes the
// expiry resolution.
func WithWheelLayout[K comparable, V any](levels ...WheelLevel) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.layout = levels
	}
}

// WithStatsRegisterer registers the cache's Prometheus collector with reg
// during New.
func WithStatsRegisterer[K comparable, V any](reg prometheus.Registerer) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.registerer = reg
	}
}

// WheelLevel describes one ring of the expiry wheel.
type WheelLevel struct {
	Slots int
	Step  time.Duration
	Name  string
}

// DefaultWheelLayout spans a day at 10ms resolution: hours → minutes →
// seconds → jiffies, each level's span composing exactly into its
// parent's step.
func DefaultWheelLayout() []WheelLevel {
	return []WheelLevel{
		{Slots: 24, Step: time.Hour, Name: "hours"},
		{Slots: 60, Step: time.Minute, Name: "minutes"},
		{Slots: 60, Step: time.Second, Name: "seconds"},
		{Slots: 100, Step: 10 * time.Millisecond, Name: "jiffies"},
	}
}
