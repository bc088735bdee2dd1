package cache

// DefaultK is the default access-count threshold at which a cold entry is
// promoted to the hot list.
const DefaultK = 10

// LRUK is a two-tier LRU: entries stay on a cold list ordered by recency
// until their access count reaches K, then migrate to a hot list, also
// ordered by recency. Eviction always prefers the cold list; it only
// touches the hot list when cold is empty.
type LRUK[K comparable, V any] struct {
	index map[K]*node[K, V]
	cap   int
	k     uint64

	head, tail       *node[K, V] // cold list sentinels
	headHot, tailHot *node[K, V] // hot list sentinels

	coldCount int
	hasher    Hasher[K]
}

// NewLRUK creates an LRU-K cache with the default K (10).
func NewLRUK[K comparable, V any](capacity int) *LRUK[K, V] {
	return NewLRUKWithK[K, V](capacity, DefaultK)
}

// NewLRUKWithHasher is like NewLRUKWithK but with an explicit hash
// function.
func NewLRUKWithHasher[K comparable, V any](capacity int, k uint64, hasher Hasher[K]) *LRUK[K, V] {
	l := NewLRUKWithK[K, V](capacity, k)
	l.hasher = hasher
	return l
}

// NewLRUKWithK creates an LRU-K cache with an explicit promotion
// threshold.
func NewLRUKWithK[K comparable, V any](capacity int, k uint64) *LRUK[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	if k == 0 {
		k = DefaultK
	}
	head, tail := newSentinel[K, V](), newSentinel[K, V]()
	linkSentinels(head, tail)
	headHot, tailHot := newSentinel[K, V](), newSentinel[K, V]()
	linkSentinels(headHot, tailHot)
	return &LRUK[K, V]{
		index:   make(map[K]*node[K, V], capacity),
		cap:     capacity,
		k:       k,
		head:    head,
		tail:    tail,
		headHot: headHot,
		tailHot: tailHot,
		hasher:  NewDefaultHasher[K](),
	}
}

// NewLRUKStrict is like NewLRUKWithK but rejects an invalid capacity
// instead of clamping it.
func NewLRUKStrict[K comparable, V any](capacity int, k uint64) (*LRUK[K, V], error) {
	if capacity < 1 {
		return nil, wrapf(ErrInvalidCapacity, "lruk: capacity %d", capacity)
	}
	return NewLRUKWithK[K, V](capacity, k), nil
}

func (l *LRUK[K, V]) Len() int      { return len(l.index) }
func (l *LRUK[K, V]) Cap() int      { return l.cap }
func (l *LRUK[K, V]) IsEmpty() bool { return len(l.index) == 0 }

func (l *LRUK[K, V]) Clear() {
	l.index = make(map[K]*node[K, V])
	linkSentinels(l.head, l.tail)
	linkSentinels(l.headHot, l.tailHot)
	l.coldCount = 0
}

func (l *LRUK[K, V]) Reserve(n int) { l.cap += n }
func (l *LRUK[K, V]) FullIncrease() { l.cap++ }
func (l *LRUK[K, V]) FullDecrease() {
	if l.cap > 1 {
		l.cap--
	}
}

// detachNode removes n from whichever list it currently occupies,
// decrementing coldCount when it was on the cold list.
func (l *LRUK[K, V]) detachNode(n *node[K, V]) {
	if !n.hot {
		l.coldCount--
	}
	detach(n)
}

// attachNode increments n's access counter and (re)homes it at the MRU
// position of whichever list its new counter value belongs to.
func (l *LRUK[K, V]) attachNode(n *node[K, V]) {
	n.times++
	if n.times >= l.k {
		n.hot = true
		attachFront(l.headHot, n)
	} else {
		n.hot = false
		l.coldCount++
		attachFront(l.head, n)
	}
}

func (l *LRUK[K, V]) touch(n *node[K, V]) {
	l.detachNode(n)
	l.attachNode(n)
}

func (l *LRUK[K, V]) ContainsKey(key K) bool {
	_, ok := l.index[key]
	return ok
}

func (l *LRUK[K, V]) Peek(key K) (V, bool) {
	n, ok := l.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	return n.value, true
}

func (l *LRUK[K, V]) Get(key K) (V, bool) {
	n, ok := l.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	l.touch(n)
	return n.value, true
}

func (l *LRUK[K, V]) GetMut(key K) (*V, bool) {
	n, ok := l.index[key]
	if !ok {
		return nil, false
	}
	l.touch(n)
	return &n.value, true
}

// GetChecked is like Get but reports a miss as a wrapped error, for
// callers threading error returns instead of ok booleans.
func (l *LRUK[K, V]) GetChecked(key K) (V, error) {
	v, ok := l.Get(key)
	if !ok {
		return v, wrapf(ErrKeyNotFound, "lruk: get %v", key)
	}
	return v, nil
}

// MustGet is the indexing form of Get: absence is caller misuse and
// panics rather than returning an error.
func (l *LRUK[K, V]) MustGet(key K) V {
	v, err := l.GetChecked(key)
	if err != nil {
		panic(err)
	}
	return v
}

func (l *LRUK[K, V]) Insert(key K, value V) (V, bool) {
	old, _, hadOld, _ := l.insert(key, value)
	return old, hadOld
}

func (l *LRUK[K, V]) CaptureInsert(key K, value V) CaptureResult[K, V] {
	old, evicted, hadOld, wasEvicted := l.insert(key, value)
	return captureResult(old, hadOld, evicted, wasEvicted)
}

// victim picks the eviction target: the LRU end of cold if cold is
// non-empty, otherwise the LRU end of hot.
func (l *LRUK[K, V]) victim() *node[K, V] {
	if l.coldCount > 0 {
		return l.tail.prev
	}
	return l.tailHot.prev
}

func (l *LRUK[K, V]) insert(key K, value V) (old V, evicted Entry[K, V], hadOld bool, wasEvicted bool) {
	if n, ok := l.index[key]; ok {
		old = n.value
		n.value = value
		l.touch(n)
		return old, Entry[K, V]{}, true, false
	}

	if len(l.index) >= l.cap {
		v := l.victim()
		if v != l.head && v != l.headHot {
			delete(l.index, v.key)
			evicted = Entry[K, V]{Key: v.key, Value: v.value}
			wasEvicted = true
			l.detachNode(v)
			v.key = key
			v.value = value
			v.times = 0
			l.attachNode(v)
			l.index[key] = v
			return old, evicted, false, wasEvicted
		}
	}

	n := &node[K, V]{key: key, value: value}
	l.attachNode(n)
	l.index[key] = n
	return old, Entry[K, V]{}, false, false
}

func (l *LRUK[K, V]) GetOrInsert(key K, factory func() V) V {
	return *l.GetOrInsertMut(key, factory)
}

// GetOrInsertMut is like GetOrInsert but exposes the stored value by
// pointer so callers can mutate it in place.
func (l *LRUK[K, V]) GetOrInsertMut(key K, factory func() V) *V {
	if p, ok := l.GetMut(key); ok {
		return p
	}
	l.Insert(key, factory())
	return &l.index[key].value
}

func (l *LRUK[K, V]) Remove(key K) (V, bool) {
	n, ok := l.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	v := n.value
	delete(l.index, n.key)
	l.detachNode(n)
	return v, true
}

// Pop removes and returns the MRU entry: the hot list's MRU if hot is
// non-empty, otherwise the cold list's MRU.
func (l *LRUK[K, V]) Pop() (Entry[K, V], bool) {
	var n *node[K, V]
	if len(l.index)-l.coldCount > 0 {
		n = l.headHot.next
	} else {
		n = l.head.next
	}
	return l.popNode(n)
}

// PopBack removes and returns the least-favored entry: cold's LRU end if
// cold is non-empty, otherwise hot's LRU end.
func (l *LRUK[K, V]) PopBack() (Entry[K, V], bool) {
	return l.popNode(l.victim())
}

func (l *LRUK[K, V]) popNode(n *node[K, V]) (Entry[K, V], bool) {
	if n == nil || n == l.head || n == l.tail || n == l.headHot || n == l.tailHot {
		return Entry[K, V]{}, false
	}
	e := Entry[K, V]{Key: n.key, Value: n.value}
	delete(l.index, n.key)
	l.detachNode(n)
	return e, true
}

// Retain drops every entry for which keep returns false, visiting the
// cold list then the hot list, each MRU→LRU.
func (l *LRUK[K, V]) Retain(keep func(K, V) bool) {
	for n := l.head.next; n != l.tail; {
		next := n.next
		if !keep(n.key, n.value) {
			delete(l.index, n.key)
			l.detachNode(n)
		}
		n = next
	}
	for n := l.headHot.next; n != l.tailHot; {
		next := n.next
		if !keep(n.key, n.value) {
			delete(l.index, n.key)
			l.detachNode(n)
		}
		n = next
	}
}

// Keys returns the keys in iteration order: the cold list then the hot
// list, each MRU→LRU.
func (l *LRUK[K, V]) Keys() []K {
	keys := make([]K, 0, len(l.index))
	for n := l.head.next; n != l.tail; n = n.next {
		keys = append(keys, n.key)
	}
	for n := l.headHot.next; n != l.tailHot; n = n.next {
		keys = append(keys, n.key)
	}
	return keys
}

// Values returns the values in the same order as Keys.
func (l *LRUK[K, V]) Values() []V {
	values := make([]V, 0, len(l.index))
	for n := l.head.next; n != l.tail; n = n.next {
		values = append(values, n.value)
	}
	for n := l.headHot.next; n != l.tailHot; n = n.next {
		values = append(values, n.value)
	}
	return values
}

// Iter visits the cold list (MRU→LRU) then the hot list (MRU→LRU);
// NextBack walks the same sequence from the other end.
func (l *LRUK[K, V]) Iter() Iterator[K, V] {
	return &lrukIterator[K, V]{
		coldFwd: l.head, coldBack: l.tail,
		hotFwd: l.headHot, hotBack: l.tailHot,
	}
}

type lrukIterator[K comparable, V any] struct {
	coldDone          bool
	coldFwd, coldBack *node[K, V]
	hotFwd, hotBack   *node[K, V]
}

func (it *lrukIterator[K, V]) Next() (Entry[K, V], bool) {
	if !it.coldDone {
		if it.coldFwd.next != it.coldBack {
			it.coldFwd = it.coldFwd.next
			return Entry[K, V]{Key: it.coldFwd.key, Value: it.coldFwd.value}, true
		}
		it.coldDone = true
	}
	if it.hotFwd.next != it.hotBack {
		it.hotFwd = it.hotFwd.next
		return Entry[K, V]{Key: it.hotFwd.key, Value: it.hotFwd.value}, true
	}
	return Entry[K, V]{}, false
}

func (it *lrukIterator[K, V]) NextBack() (Entry[K, V], bool) {
	if it.hotBack.prev != it.hotFwd {
		it.hotBack = it.hotBack.prev
		return Entry[K, V]{Key: it.hotBack.key, Value: it.hotBack.value}, true
	}
	if it.coldBack.prev != it.coldFwd {
		it.coldBack = it.coldBack.prev
		return Entry[K, V]{Key: it.coldBack.key, Value: it.coldBack.value}, true
	}
	return Entry[K, V]{}, false
}
