package evictcache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krishna8167/evictcache/cache"
)

func TestSetAndGet(t *testing.T) {
	c, err := New(cache.New[string, string](16))
	require.NoError(t, err)
	defer c.Stop()

	c.Set("a", "b", 5*time.Second)

	v, found := c.Get("a")
	require.True(t, found)
	require.Equal(t, "b", v)
}

func TestDelete(t *testing.T) {
	c, err := New(cache.New[string, int](16))
	require.NoError(t, err)
	defer c.Stop()

	c.Set("a", 1, 0)
	c.Delete("a")
	_, found := c.Get("a")
	require.False(t, found)

	// Deleting a missing key is safely ignored.
	c.Delete("missing")
}

func TestNoTTLNeverExpires(t *testing.T) {
	c, err := New(cache.New[string, int](16),
		WithCleanupInterval[string, int](10*time.Millisecond))
	require.NoError(t, err)
	defer c.Stop()

	c.Set("a", 1, 0)
	time.Sleep(50 * time.Millisecond)

	_, found := c.Get("a")
	require.True(t, found, "key without TTL must persist")
}

func TestLazyExpiration(t *testing.T) {
	// No janitor: the deadline check on read is the only line of defense
	// and must hold on its own.
	c, err := New(cache.New[string, int](16))
	require.NoError(t, err)
	defer c.Stop()

	c.Set("a", 1, 20*time.Millisecond)
	time.Sleep(35 * time.Millisecond)

	_, found := c.Get("a")
	require.False(t, found, "expired key must read as a miss")
	require.Equal(t, 0, c.Len())

	s := c.Stats()
	assert.Equal(t, uint64(1), s.Expirations)
	assert.Equal(t, uint64(1), s.Misses)
}

func TestActiveExpiration(t *testing.T) {
	c, err := New(cache.New[string, int](16),
		WithCleanupInterval[string, int](10*time.Millisecond))
	require.NoError(t, err)
	defer c.Stop()

	c.Set("a", 1, 30*time.Millisecond)
	c.Set("b", 2, 30*time.Millisecond)

	// The janitor alone must clear both without any read touching them.
	require.Eventually(t, func() bool { return c.Len() == 0 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(2), c.Stats().Expirations)
}

func TestOverwriteCancelsTTL(t *testing.T) {
	c, err := New(cache.New[string, int](16))
	require.NoError(t, err)
	defer c.Stop()

	c.Set("a", 1, 20*time.Millisecond)
	c.Set("a", 2, 0) // overwrite without TTL must cancel the old timer

	time.Sleep(35 * time.Millisecond)
	c.Set("other", 0, 0) // advances the wheel past the stale deadline

	v, found := c.Get("a")
	require.True(t, found, "overwritten key must not expire on the old deadline")
	require.Equal(t, 2, v)
}

func TestCapacityEvictionDropsTimer(t *testing.T) {
	c, err := New(cache.New[string, int](2))
	require.NoError(t, err)
	defer c.Stop()

	c.Set("a", 1, 30*time.Millisecond)
	c.Set("b", 2, 0)
	c.Set("c", 3, 0) // evicts a; its pending timer must die with it

	require.Equal(t, uint64(1), c.Stats().Evictions)
	require.Equal(t, 2, c.Len())

	time.Sleep(40 * time.Millisecond)
	c.Set("d", 4, 0) // advance the wheel; a's stale timer must not fire

	assert.Equal(t, uint64(0), c.Stats().Expirations)
}

func TestStatsCounters(t *testing.T) {
	c, err := New(cache.New[string, int](4))
	require.NoError(t, err)
	defer c.Stop()

	c.Set("a", 1, 0)
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	assert.Equal(t, uint64(2), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)

	// Peek must not move the counters.
	c.Peek("a")
	c.Peek("missing")
	assert.Equal(t, s, c.Stats())
}

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(cache.New[string, int](4),
		WithStatsRegisterer[string, int](reg))
	require.NoError(t, err)
	defer c.Stop()

	c.Set("a", 1, 0)
	c.Get("a")
	c.Get("missing")

	families, err := reg.Gather()
	require.NoError(t, err)

	got := map[string]float64{}
	for _, mf := range families {
		got[mf.GetName()] = mf.GetMetric()[0].GetCounter().GetValue() +
			mf.GetMetric()[0].GetGauge().GetValue()
	}
	assert.Equal(t, 1.0, got["evictcache_hits_total"])
	assert.Equal(t, 1.0, got["evictcache_misses_total"])
	assert.Equal(t, 1.0, got["evictcache_entries"])
}

func TestFacadeOverEveryCore(t *testing.T) {
	cores := map[string]cache.Interface[string, int]{
		"lru":  cache.New[string, int](8),
		"lruk": cache.NewLRUK[string, int](8),
		"lfu":  cache.NewLFU[string, int](8),
		"arc":  cache.NewARC[string, int](8),
	}
	for name, core := range cores {
		t.Run(name, func(t *testing.T) {
			c, err := New(core)
			require.NoError(t, err)
			defer c.Stop()

			c.Set("k", 42, 0)
			v, found := c.Get("k")
			require.True(t, found)
			require.Equal(t, 42, v)
			require.True(t, c.Contains("k"))

			c.Delete("k")
			require.False(t, c.Contains("k"))
		})
	}
}

func TestConcurrentAccess(t *testing.T) {
	c, err := New(cache.New[string, int](64),
		WithCleanupInterval[string, int](5*time.Millisecond))
	require.NoError(t, err)
	defer c.Stop()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", i%32)
				switch i % 3 {
				case 0:
					c.Set(key, g*1000+i, 20*time.Millisecond)
				case 1:
					c.Get(key)
				default:
					c.Delete(key)
				}
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 64)
}

func TestStopIdempotent(t *testing.T) {
	c, err := New(cache.New[string, int](4),
		WithCleanupInterval[string, int](time.Millisecond))
	require.NoError(t, err)

	c.Stop()
	c.Stop() // second call must not panic

	// A janitor-less cache can be stopped too.
	c2, err := New(cache.New[string, int](4))
	require.NoError(t, err)
	c2.Stop()
}

func TestNilCore(t *testing.T) {
	_, err := New[string, int](nil)
	require.ErrorIs(t, err, ErrNilCore)
}

func TestBadWheelLayout(t *testing.T) {
	_, err := New(cache.New[string, int](4),
		WithWheelLayout[string, int](
			WheelLevel{Slots: 60, Step: time.Minute, Name: "minutes"},
			WheelLevel{Slots: 10, Step: time.Second, Name: "misaligned"},
		))
	require.Error(t, err, "a non-composing layout must be rejected")
}
