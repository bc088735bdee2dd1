package cache

// ARC adaptively splits capacity between a recency-ordered cache and a
// frequency-ordered one. Each of the two mains is shadowed by a ghost list
// holding recently evicted entries; a hit on a ghost widens the main it
// shadows by one entry and narrows the other, so the live split drifts
// toward whichever policy is currently winning. Values are preserved in
// the ghosts, so a ghost hit restores the entry without a re-fetch.
//
// Every sub-cache is sized at cap, so the total length bound is 4*cap and
// the living (non-ghost) bound drifts around 2*cap.
type ARC[K comparable, V any] struct {
	mainLRU  *LRU[K, V]
	ghostLRU *LRU[K, V]

	mainLFU  *LFU[K, V]
	ghostLFU *LRU[K, V]

	cap int
}

// NewARC returns an adaptive cache whose four sub-caches each hold up to
// capacity entries.
func NewARC[K comparable, V any](capacity int) *ARC[K, V] {
	return NewARCWithHasher[K, V](capacity, NewDefaultHasher[K]())
}

// NewARCWithHasher is like NewARC but with an explicit hash function,
// shared by all four sub-caches.
func NewARCWithHasher[K comparable, V any](capacity int, hasher Hasher[K]) *ARC[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &ARC[K, V]{
		mainLRU:  WithHasher[K, V](capacity, hasher),
		ghostLRU: WithHasher[K, V](capacity, hasher),
		mainLFU:  NewLFUWithHasher[K, V](capacity, hasher),
		ghostLFU: WithHasher[K, V](capacity, hasher),
		cap:      capacity,
	}
}

// NewARCStrict is like NewARC but rejects an invalid capacity instead of
// clamping it.
func NewARCStrict[K comparable, V any](capacity int) (*ARC[K, V], error) {
	if capacity < 1 {
		return nil, wrapf(ErrInvalidCapacity, "arc: capacity %d", capacity)
	}
	return NewARC[K, V](capacity), nil
}

// Len is the sum of all four sub-cache lengths, ghosts included.
func (a *ARC[K, V]) Len() int {
	return a.mainLRU.Len() + a.mainLFU.Len() + a.ghostLRU.Len() + a.ghostLFU.Len()
}

func (a *ARC[K, V]) Cap() int      { return a.cap }
func (a *ARC[K, V]) IsEmpty() bool { return a.Len() == 0 }

func (a *ARC[K, V]) Clear() {
	a.mainLRU.Clear()
	a.ghostLRU.Clear()
	a.mainLFU.Clear()
	a.ghostLFU.Clear()
}

func (a *ARC[K, V]) Reserve(n int) {
	a.cap += n
	a.mainLRU.Reserve(n)
	a.ghostLRU.Reserve(n)
	a.mainLFU.Reserve(n)
	a.ghostLFU.Reserve(n)
}

func (a *ARC[K, V]) FullIncrease() {
	a.cap++
	a.mainLRU.FullIncrease()
	a.ghostLRU.FullIncrease()
	a.mainLFU.FullIncrease()
	a.ghostLFU.FullIncrease()
}

func (a *ARC[K, V]) FullDecrease() {
	if a.cap <= 1 {
		return
	}
	a.cap--
	a.mainLRU.FullDecrease()
	a.ghostLRU.FullDecrease()
	a.mainLFU.FullDecrease()
	a.ghostLFU.FullDecrease()
}

// ContainsKey reports presence in the living caches only; ghost entries
// are adaptation signal, not readable state.
func (a *ARC[K, V]) ContainsKey(key K) bool {
	return a.mainLRU.ContainsKey(key) || a.mainLFU.ContainsKey(key)
}

// Peek reads from the living caches without any promotion, relink or
// adaptation side effect.
func (a *ARC[K, V]) Peek(key K) (V, bool) {
	if v, ok := a.mainLRU.Peek(key); ok {
		return v, true
	}
	return a.mainLFU.Peek(key)
}

// spillLRU installs k/v into mainLRU, depositing any displaced victim into
// ghostLRU.
func (a *ARC[K, V]) spillLRU(key K, value V) {
	r := a.mainLRU.CaptureInsert(key, value)
	if r.Evicted {
		a.ghostLRU.Insert(r.EvictedKey, r.EvictedValue)
	}
}

// spillLFU is spillLRU's counterpart for the frequency side.
func (a *ARC[K, V]) spillLFU(key K, value V) {
	r := a.mainLFU.CaptureInsert(key, value)
	if r.Evicted {
		a.ghostLFU.Insert(r.EvictedKey, r.EvictedValue)
	}
}

// access is the adaptive read path:
//
//  1. a mainLRU hit is the entry's second access overall, so it promotes
//     to mainLFU;
//  2. a ghostLFU hit widens the frequency side by one entry at the
//     recency side's expense, then revives the entry into mainLFU;
//  3. a ghostLRU hit adapts the other direction and revives into mainLRU;
//  4. otherwise the entry is either resident in mainLFU or absent.
//
// The capacity nudge happens strictly before the revival insert so the
// widened main absorbs the entry without displacing one of its own.
func (a *ARC[K, V]) access(key K) (*V, bool) {
	if v, ok := a.mainLRU.Remove(key); ok {
		a.spillLFU(key, v)
		return a.mainLFU.GetMut(key)
	}

	if v, ok := a.ghostLFU.Remove(key); ok {
		a.mainLFU.FullIncrease()
		a.mainLRU.FullDecrease()
		a.spillLFU(key, v)
		return a.mainLFU.GetMut(key)
	}

	if v, ok := a.ghostLRU.Remove(key); ok {
		a.mainLRU.FullIncrease()
		a.mainLFU.FullDecrease()
		a.spillLRU(key, v)
		return a.mainLRU.GetMut(key)
	}

	return a.mainLFU.GetMut(key)
}

func (a *ARC[K, V]) Get(key K) (V, bool) {
	p, ok := a.access(key)
	if !ok {
		var zero V
		return zero, false
	}
	return *p, true
}

func (a *ARC[K, V]) GetMut(key K) (*V, bool) {
	return a.access(key)
}

// GetChecked is like Get but reports a miss as a wrapped error, for
// callers threading error returns instead of ok booleans.
func (a *ARC[K, V]) GetChecked(key K) (V, error) {
	v, ok := a.Get(key)
	if !ok {
		return v, wrapf(ErrKeyNotFound, "arc: get %v", key)
	}
	return v, nil
}

// MustGet is the indexing form of Get: absence is caller misuse and
// panics rather than returning an error.
func (a *ARC[K, V]) MustGet(key K) V {
	v, err := a.GetChecked(key)
	if err != nil {
		panic(err)
	}
	return v
}

func (a *ARC[K, V]) Insert(key K, value V) (V, bool) {
	r := a.CaptureInsert(key, value)
	return r.OldValue, r.Replaced
}

// CaptureInsert writes through mainLRU. A displaced victim lands in
// ghostLRU; only whatever ghostLRU in turn drops on the floor is reported
// as the captured eviction, since everything else is still resident
// somewhere in the composite.
func (a *ARC[K, V]) CaptureInsert(key K, value V) CaptureResult[K, V] {
	// A key may live in exactly one sub-cache. A write to a key currently
	// on the frequency side stays there; a ghosted key is forgotten before
	// the fresh insert so it cannot surface twice.
	if a.mainLFU.ContainsKey(key) {
		old, _ := a.mainLFU.Insert(key, value)
		return CaptureResult[K, V]{Replaced: true, OldValue: old}
	}
	a.ghostLRU.Remove(key)
	a.ghostLFU.Remove(key)

	r := a.mainLRU.CaptureInsert(key, value)
	if !r.Evicted {
		return r
	}
	g := a.ghostLRU.CaptureInsert(r.EvictedKey, r.EvictedValue)
	return CaptureResult[K, V]{
		Replaced:     r.Replaced,
		OldValue:     r.OldValue,
		Evicted:      g.Evicted,
		EvictedKey:   g.EvictedKey,
		EvictedValue: g.EvictedValue,
	}
}

func (a *ARC[K, V]) GetOrInsert(key K, factory func() V) V {
	return *a.GetOrInsertMut(key, factory)
}

// GetOrInsertMut is like GetOrInsert but exposes the stored value by
// pointer. A hit drives the same adaptive read path as GetMut; a miss
// installs the factory value on the recency side.
func (a *ARC[K, V]) GetOrInsertMut(key K, factory func() V) *V {
	if p, ok := a.access(key); ok {
		return p
	}
	a.spillLRU(key, factory())
	p, _ := a.mainLRU.GetMut(key)
	return p
}

// Remove drops the entry from whichever living cache holds it. Ghost
// entries are not addressable; they age out of their bounded lists on
// their own.
func (a *ARC[K, V]) Remove(key K) (V, bool) {
	if v, ok := a.mainLRU.Remove(key); ok {
		return v, true
	}
	return a.mainLFU.Remove(key)
}

// Pop removes and returns the most-favored living entry, draining the
// recency side before the frequency side.
func (a *ARC[K, V]) Pop() (Entry[K, V], bool) {
	if a.mainLRU.Len() != 0 {
		return a.mainLRU.Pop()
	}
	return a.mainLFU.Pop()
}

// PopBack removes and returns the least-favored living entry.
func (a *ARC[K, V]) PopBack() (Entry[K, V], bool) {
	if a.mainLRU.Len() != 0 {
		return a.mainLRU.PopBack()
	}
	return a.mainLFU.PopBack()
}

// Retain filters the living caches. The ghosts carry no semantics a
// predicate over live entries could meaningfully keep or drop.
func (a *ARC[K, V]) Retain(keep func(K, V) bool) {
	a.mainLRU.Retain(keep)
	a.mainLFU.Retain(keep)
}

// Keys returns the living keys, recency portion first.
func (a *ARC[K, V]) Keys() []K {
	keys := make([]K, 0, a.mainLRU.Len()+a.mainLFU.Len())
	it := a.Iter()
	for e, ok := it.Next(); ok; e, ok = it.Next() {
		keys = append(keys, e.Key)
	}
	return keys
}

// Values returns the living values in the same order as Keys.
func (a *ARC[K, V]) Values() []V {
	values := make([]V, 0, a.mainLRU.Len()+a.mainLFU.Len())
	it := a.Iter()
	for e, ok := it.Next(); ok; e, ok = it.Next() {
		values = append(values, e.Value)
	}
	return values
}

// Iter yields the LRU portion (MRU→LRU) then the LFU portion (band
// descending). The backward direction is the exact reverse.
func (a *ARC[K, V]) Iter() Iterator[K, V] {
	return &arcIterator[K, V]{lru: a.mainLRU.Iter(), lfu: a.mainLFU.Iter()}
}

type arcIterator[K comparable, V any] struct {
	lru Iterator[K, V]
	lfu Iterator[K, V]
}

func (it *arcIterator[K, V]) Next() (Entry[K, V], bool) {
	if e, ok := it.lru.Next(); ok {
		return e, true
	}
	return it.lfu.Next()
}

func (it *arcIterator[K, V]) NextBack() (Entry[K, V], bool) {
	if e, ok := it.lfu.NextBack(); ok {
		return e, true
	}
	return it.lru.NextBack()
}
