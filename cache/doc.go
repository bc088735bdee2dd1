// Package cache implements the eviction-cache family: LRU, LRU-K, LFU and
// an adaptive LRU/LFU composite (ARC). Every policy shares the same node
// pool and hash-index idiom and exposes the same operation set through
// Interface.
//
// None of the types in this package synchronize internally. A single
// goroutine owns a cache at a time; callers that need concurrent access
// should wrap an Interface value the way package evictcache wraps one.
package cache
