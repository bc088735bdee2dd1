package evictcache

import (
	"fmt"
	"testing"
	"time"

	"github.com/Krishna8167/evictcache/cache"
)

/*
Benchmarks cover the two facade hot paths and the bare cores underneath
them, so the cost of the mutex + TTL bookkeeping layer is visible next to
the raw policy cost.

Run with:

    go test -bench=. -benchmem
*/

func BenchmarkSet(b *testing.B) {
	c, _ := New(cache.New[string, int](1024))
	defer c.Stop()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Set("key", i, 5*time.Second)
	}
}

func BenchmarkGet(b *testing.B) {
	c, _ := New(cache.New[string, int](1024))
	defer c.Stop()
	c.Set("key", 1, 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get("key")
	}
}

func BenchmarkSetUniqueKeys(b *testing.B) {
	c, _ := New(cache.New[string, int](1024))
	defer c.Stop()

	keys := make([]string, 4096)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Set(keys[i%len(keys)], i, 0)
	}
}

func BenchmarkCoreLRUInsert(b *testing.B) {
	l := cache.New[int, int](1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.Insert(i, i)
	}
}

func BenchmarkCoreLFUGet(b *testing.B) {
	l := cache.NewLFU[int, int](1024)
	for i := 0; i < 1024; i++ {
		l.Insert(i, i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.Get(i % 1024)
	}
}

func BenchmarkCoreARCGet(b *testing.B) {
	a := cache.NewARC[int, int](1024)
	for i := 0; i < 1024; i++ {
		a.Insert(i, i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.Get(i % 1024)
	}
}
