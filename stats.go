package evictcache

import "github.com/prometheus/client_golang/prometheus"

/*
Stats tracks the cache's operational counters:

- Hits        → Get found a live entry
- Misses      → Get found nothing, or found an expired entry
- Evictions   → entries displaced by capacity pressure
- Expirations → entries dropped because their TTL passed

All four are mutated under the Cache lock; Stats() returns a snapshot
under the same lock, so a reader always sees a consistent set.

hit ratio = Hits / (Hits + Misses)
*/
type Stats struct {
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Expirations uint64
}

// Stats returns a consistent snapshot of the counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// collector exposes a Cache's counters and current length as Prometheus
// metrics. It holds descriptors only; values are read fresh from the
// cache on every scrape, so there is no second set of counters to keep in
// sync.
type collector[K comparable, V any] struct {
	c *Cache[K, V]

	hits        *prometheus.Desc
	misses      *prometheus.Desc
	evictions   *prometheus.Desc
	expirations *prometheus.Desc
	entries     *prometheus.Desc
}

func newCollector[K comparable, V any](c *Cache[K, V]) *collector[K, V] {
	return &collector[K, V]{
		c: c,
		hits: prometheus.NewDesc(
			"evictcache_hits_total", "Lookups that found a live entry.", nil, nil),
		misses: prometheus.NewDesc(
			"evictcache_misses_total", "Lookups that found nothing or an expired entry.", nil, nil),
		evictions: prometheus.NewDesc(
			"evictcache_evictions_total", "Entries displaced by capacity pressure.", nil, nil),
		expirations: prometheus.NewDesc(
			"evictcache_expirations_total", "Entries dropped because their TTL passed.", nil, nil),
		entries: prometheus.NewDesc(
			"evictcache_entries", "Current number of live entries.", nil, nil),
	}
}

func (col *collector[K, V]) Describe(ch chan<- *prometheus.Desc) {
	ch <- col.hits
	ch <- col.misses
	ch <- col.evictions
	ch <- col.expirations
	ch <- col.entries
}

func (col *collector[K, V]) Collect(ch chan<- prometheus.Metric) {
	s := col.c.Stats()
	ch <- prometheus.MustNewConstMetric(col.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(col.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(col.evictions, prometheus.CounterValue, float64(s.Evictions))
	ch <- prometheus.MustNewConstMetric(col.expirations, prometheus.CounterValue, float64(s.Expirations))
	ch <- prometheus.MustNewConstMetric(col.entries, prometheus.GaugeValue, float64(col.c.Len()))
}
