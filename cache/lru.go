package cache

import "time"

// DefaultCheckStep is the default interval between periodic TTL sweeps.
const DefaultCheckStep = 120 * time.Second

// LRU is a capacity-bounded recency cache with optional per-entry TTL. It
// implements Interface.
//
// The node pool is rooted in two sentinels, head and tail; head.next is
// MRU, tail.prev is LRU. Eviction recycles the victim node's storage in
// place instead of allocating a new one.
type LRU[K comparable, V any] struct {
	index map[K]*node[K, V]
	head  *node[K, V]
	tail  *node[K, V]
	cap   int

	hasher Hasher[K]

	// hasTTL gates the periodic sweep-on-insert behavior. It is set once
	// any TTL-aware constructor or insert path is used.
	hasTTL    bool
	checkNext int64
	checkStep int64
}

// New returns an LRU cache clamped to at least one entry of capacity.
func New[K comparable, V any](capacity int) *LRU[K, V] {
	return WithHasher[K, V](capacity, NewDefaultHasher[K]())
}

// WithHasher is like New but with an explicit hash function.
func WithHasher[K comparable, V any](capacity int, hasher Hasher[K]) *LRU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	head := newSentinel[K, V]()
	tail := newSentinel[K, V]()
	linkSentinels(head, tail)
	return &LRU[K, V]{
		index:     make(map[K]*node[K, V], capacity),
		head:      head,
		tail:      tail,
		cap:       capacity,
		hasher:    hasher,
		checkStep: int64(DefaultCheckStep / time.Millisecond),
	}
}

// NewStrict is like New but rejects an invalid capacity instead of
// clamping it.
func NewStrict[K comparable, V any](capacity int) (*LRU[K, V], error) {
	if capacity < 1 {
		return nil, wrapf(ErrInvalidCapacity, "lru: capacity %d", capacity)
	}
	return New[K, V](capacity), nil
}

// NewWithTTL is like New but enables the periodic sweep-on-insert pass
// immediately, even before the first TTL'd entry is inserted.
func NewWithTTL[K comparable, V any](capacity int) *LRU[K, V] {
	l := New[K, V](capacity)
	l.hasTTL = true
	return l
}

// SetCheckStep overrides the periodic sweep interval (default
// DefaultCheckStep).
func (l *LRU[K, V]) SetCheckStep(d time.Duration) {
	l.checkStep = int64(d / time.Millisecond)
}

func (l *LRU[K, V]) Len() int      { return len(l.index) }
func (l *LRU[K, V]) Cap() int      { return l.cap }
func (l *LRU[K, V]) IsEmpty() bool { return len(l.index) == 0 }

func (l *LRU[K, V]) Clear() {
	l.index = make(map[K]*node[K, V])
	linkSentinels(l.head, l.tail)
}

func (l *LRU[K, V]) Reserve(n int) { l.cap += n }
func (l *LRU[K, V]) FullIncrease() { l.cap++ }
func (l *LRU[K, V]) FullDecrease() {
	if l.cap > 1 {
		l.cap--
	}
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// expired reports whether n's deadline has passed. expireAt == 0 means
// "never expires".
func (l *LRU[K, V]) expired(n *node[K, V]) bool {
	return n.expireAt != 0 && nowMillis() >= n.expireAt
}

// clearExpire performs the periodic full sweep, walking LRU→MRU (tail
// toward head) and dropping any expired node. It is invoked at the top of
// every insert path when hasTTL is set and the next scheduled sweep time
// has arrived.
func (l *LRU[K, V]) clearExpire() {
	if !l.hasTTL {
		return
	}
	now := nowMillis()
	if now < l.checkNext {
		return
	}
	for n := l.tail.prev; n != l.head; {
		prev := n.prev
		if l.expired(n) {
			l.removeNode(n)
		}
		n = prev
	}
	l.checkNext = now + l.checkStep
}

func (l *LRU[K, V]) removeNode(n *node[K, V]) {
	delete(l.index, n.key)
	detach(n)
}

func (l *LRU[K, V]) ContainsKey(key K) bool {
	n, ok := l.index[key]
	if !ok {
		return false
	}
	if l.expired(n) {
		l.removeNode(n)
		return false
	}
	return true
}

func (l *LRU[K, V]) Peek(key K) (V, bool) {
	n, ok := l.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	if l.expired(n) {
		l.removeNode(n)
		var zero V
		return zero, false
	}
	return n.value, true
}

// PeekUsual returns the MRU entry without relinking it.
func (l *LRU[K, V]) PeekUsual() (Entry[K, V], bool) {
	return l.peekEnd(l.head.next)
}

// PeekUnusual returns the LRU entry without relinking it.
func (l *LRU[K, V]) PeekUnusual() (Entry[K, V], bool) {
	return l.peekEnd(l.tail.prev)
}

func (l *LRU[K, V]) peekEnd(n *node[K, V]) (Entry[K, V], bool) {
	if n == l.head || n == l.tail {
		return Entry[K, V]{}, false
	}
	return Entry[K, V]{Key: n.key, Value: n.value}, true
}

func (l *LRU[K, V]) getNode(key K) (*node[K, V], bool) {
	n, ok := l.index[key]
	if !ok {
		return nil, false
	}
	if l.expired(n) {
		l.removeNode(n)
		return nil, false
	}
	moveToFront(l.head, n)
	return n, true
}

func (l *LRU[K, V]) Get(key K) (V, bool) {
	n, ok := l.getNode(key)
	if !ok {
		var zero V
		return zero, false
	}
	return n.value, true
}

func (l *LRU[K, V]) GetMut(key K) (*V, bool) {
	n, ok := l.getNode(key)
	if !ok {
		return nil, false
	}
	return &n.value, true
}

// GetChecked is like Get but reports a miss as a wrapped error, for
// callers threading error returns instead of ok booleans.
func (l *LRU[K, V]) GetChecked(key K) (V, error) {
	v, ok := l.Get(key)
	if !ok {
		return v, wrapf(ErrKeyNotFound, "lru: get %v", key)
	}
	return v, nil
}

// MustGet is the indexing form of Get: absence is caller misuse and
// panics rather than returning an error.
func (l *LRU[K, V]) MustGet(key K) V {
	v, err := l.GetChecked(key)
	if err != nil {
		panic(err)
	}
	return v
}

// Insert installs k/v with no expiry. If k already existed its old value
// is returned.
func (l *LRU[K, V]) Insert(key K, value V) (V, bool) {
	old, _, hadOld, _ := l.insert(key, value, 0)
	return old, hadOld
}

// InsertWithTTL installs k/v with an absolute expiry ttl from now. A
// ttl <= 0 is a no-op returning (zero, false).
func (l *LRU[K, V]) InsertWithTTL(key K, value V, ttl time.Duration) (V, bool) {
	if ttl <= 0 {
		var zero V
		return zero, false
	}
	l.hasTTL = true
	old, _, hadOld, _ := l.insert(key, value, nowMillis()+int64(ttl/time.Millisecond))
	return old, hadOld
}

func (l *LRU[K, V]) CaptureInsert(key K, value V) CaptureResult[K, V] {
	old, evicted, hadOld, wasEvicted := l.insert(key, value, 0)
	return captureResult(old, hadOld, evicted, wasEvicted)
}

// CaptureInsertWithTTL is the capture form of InsertWithTTL.
func (l *LRU[K, V]) CaptureInsertWithTTL(key K, value V, ttl time.Duration) (CaptureResult[K, V], bool) {
	if ttl <= 0 {
		return CaptureResult[K, V]{}, false
	}
	l.hasTTL = true
	old, evicted, hadOld, wasEvicted := l.insert(key, value, nowMillis()+int64(ttl/time.Millisecond))
	return captureResult(old, hadOld, evicted, wasEvicted), true
}

func captureResult[K comparable, V any](old V, hadOld bool, evicted Entry[K, V], wasEvicted bool) CaptureResult[K, V] {
	return CaptureResult[K, V]{
		Replaced:     hadOld,
		OldValue:     old,
		Evicted:      wasEvicted,
		EvictedKey:   evicted.Key,
		EvictedValue: evicted.Value,
	}
}

// insert is the shared write path: it sweeps expired entries first, then
// either swaps an existing node in place and relinks it to MRU, or
// recycles the current victim (or allocates) for a brand new key.
func (l *LRU[K, V]) insert(key K, value V, expireAt int64) (old V, evicted Entry[K, V], hadOld bool, wasEvicted bool) {
	l.clearExpire()

	if n, ok := l.index[key]; ok {
		old = n.value
		n.value = value
		n.expireAt = expireAt
		moveToFront(l.head, n)
		return old, Entry[K, V]{}, true, false
	}

	if len(l.index) >= l.cap {
		victim := l.tail.prev
		if victim != l.head {
			delete(l.index, victim.key)
			evicted = Entry[K, V]{Key: victim.key, Value: victim.value}
			wasEvicted = true
			victim.key = key
			victim.value = value
			victim.expireAt = expireAt
			victim.times = 0
			moveToFront(l.head, victim)
			l.index[key] = victim
			return old, evicted, false, wasEvicted
		}
	}

	n := &node[K, V]{key: key, value: value, expireAt: expireAt}
	attachFront(l.head, n)
	l.index[key] = n
	return old, Entry[K, V]{}, false, false
}

func (l *LRU[K, V]) GetOrInsert(key K, factory func() V) V {
	return *l.GetOrInsertMut(key, factory)
}

// GetOrInsertMut is like GetOrInsert but exposes the stored value by
// pointer so callers can mutate it in place.
func (l *LRU[K, V]) GetOrInsertMut(key K, factory func() V) *V {
	if n, ok := l.getNode(key); ok {
		return &n.value
	}
	l.Insert(key, factory())
	return &l.index[key].value
}

func (l *LRU[K, V]) Remove(key K) (V, bool) {
	n, ok := l.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	v := n.value
	l.removeNode(n)
	return v, true
}

// RemoveWithTTL is an alias for Remove; removing an entry already drops
// whatever TTL it had.
func (l *LRU[K, V]) RemoveWithTTL(key K) (V, bool) { return l.Remove(key) }

func (l *LRU[K, V]) SetTTL(key K, ttl time.Duration) bool {
	n, ok := l.getNode(key)
	if !ok {
		return false
	}
	l.hasTTL = true
	if ttl <= 0 {
		n.expireAt = 0
	} else {
		n.expireAt = nowMillis() + int64(ttl/time.Millisecond)
	}
	return true
}

func (l *LRU[K, V]) GetTTL(key K) (time.Duration, bool) {
	n, ok := l.getNode(key)
	if !ok {
		return 0, false
	}
	if n.expireAt == 0 {
		return 0, true
	}
	remaining := n.expireAt - nowMillis()
	if remaining < 0 {
		remaining = 0
	}
	return time.Duration(remaining) * time.Millisecond, true
}

func (l *LRU[K, V]) DelTTL(key K) bool {
	n, ok := l.getNode(key)
	if !ok {
		return false
	}
	n.expireAt = 0
	return true
}

// PopUsual removes and returns the MRU entry.
func (l *LRU[K, V]) PopUsual() (Entry[K, V], bool) { return l.pop(l.head.next) }

// PopUnusual removes and returns the LRU entry.
func (l *LRU[K, V]) PopUnusual() (Entry[K, V], bool) { return l.pop(l.tail.prev) }

func (l *LRU[K, V]) pop(n *node[K, V]) (Entry[K, V], bool) {
	if n == l.head || n == l.tail {
		return Entry[K, V]{}, false
	}
	e := Entry[K, V]{Key: n.key, Value: n.value}
	l.removeNode(n)
	return e, true
}

func (l *LRU[K, V]) Pop() (Entry[K, V], bool)     { return l.PopUsual() }
func (l *LRU[K, V]) PopBack() (Entry[K, V], bool) { return l.PopUnusual() }

// Retain drops every entry for which keep returns false, visiting
// MRU→LRU.
func (l *LRU[K, V]) Retain(keep func(K, V) bool) {
	for n := l.head.next; n != l.tail; {
		next := n.next
		if !keep(n.key, n.value) {
			l.removeNode(n)
		}
		n = next
	}
}

// Keys returns the keys in MRU→LRU order.
func (l *LRU[K, V]) Keys() []K {
	keys := make([]K, 0, len(l.index))
	for n := l.head.next; n != l.tail; n = n.next {
		keys = append(keys, n.key)
	}
	return keys
}

// Values returns the values in MRU→LRU order.
func (l *LRU[K, V]) Values() []V {
	values := make([]V, 0, len(l.index))
	for n := l.head.next; n != l.tail; n = n.next {
		values = append(values, n.value)
	}
	return values
}

// Iter returns a DoubleEndedIterator-shaped cursor, MRU→LRU forward and
// LRU→MRU backward.
func (l *LRU[K, V]) Iter() Iterator[K, V] {
	return &lruIterator[K, V]{fwd: l.head, back: l.tail}
}

type lruIterator[K comparable, V any] struct {
	fwd, back *node[K, V]
}

func (it *lruIterator[K, V]) Next() (Entry[K, V], bool) {
	if it.fwd.next == it.back {
		return Entry[K, V]{}, false
	}
	it.fwd = it.fwd.next
	return Entry[K, V]{Key: it.fwd.key, Value: it.fwd.value}, true
}

func (it *lruIterator[K, V]) NextBack() (Entry[K, V], bool) {
	if it.back.prev == it.fwd {
		return Entry[K, V]{}, false
	}
	it.back = it.back.prev
	return Entry[K, V]{Key: it.back.key, Value: it.back.value}, true
}
