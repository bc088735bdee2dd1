package cache

// DefaultLFUCount is the counter value freshly inserted entries settle at
// after their first access-accounting pass. Starting above zero keeps a
// brand-new entry from being the very next victim.
const DefaultLFUCount = 5

// DefaultReduceCount is the global visit threshold that triggers an aging
// pass halving every counter.
const DefaultReduceCount = 1_000_000

// maxBand is the top frequency band, the catch-all above one million.
const maxBand uint8 = 19

// freqBand compresses a raw access counter into one of 20 bands so the
// band→keyset map stays small regardless of how hot an entry gets. The
// cut points are empirical; any monotone non-decreasing step function
// would preserve the cache's invariants.
func freqBand(times uint64) uint8 {
	switch {
	case times <= 10:
		return uint8(times)
	case times <= 20:
		return 11
	case times <= 50:
		return 12
	case times <= 100:
		return 13
	case times <= 500:
		return 14
	case times <= 1000:
		return 15
	case times <= 10_000:
		return 16
	case times <= 100_000:
		return 17
	case times <= 1_000_000:
		return 18
	default:
		return maxBand
	}
}

type lfuEntry[K comparable, V any] struct {
	key     K
	value   V
	counter uint64
	band    uint8
}

// LFU is a frequency-banded cache: entries are grouped by a compressed
// frequency band rather than an exact counter, bounding the number of
// non-empty buckets regardless of how skewed access patterns get.
type LFU[K comparable, V any] struct {
	index map[K]*lfuEntry[K, V]
	bands map[uint8]map[K]struct{}
	cap   int

	maxFreq uint8

	visitCount   uint64
	defaultCount uint64
	reduceCount  uint64

	hasher Hasher[K]
}

// NewLFU returns an LFU cache with the default initial-count (5) and
// aging threshold (1,000,000).
func NewLFU[K comparable, V any](capacity int) *LFU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LFU[K, V]{
		index:        make(map[K]*lfuEntry[K, V], capacity),
		bands:        make(map[uint8]map[K]struct{}),
		cap:          capacity,
		defaultCount: DefaultLFUCount,
		reduceCount:  DefaultReduceCount,
		hasher:       NewDefaultHasher[K](),
	}
}

// NewLFUStrict is like NewLFU but rejects an invalid capacity instead of
// clamping it.
func NewLFUStrict[K comparable, V any](capacity int) (*LFU[K, V], error) {
	if capacity < 1 {
		return nil, wrapf(ErrInvalidCapacity, "lfu: capacity %d", capacity)
	}
	return NewLFU[K, V](capacity), nil
}

// NewLFUWithHasher is like NewLFU but with an explicit hash function.
func NewLFUWithHasher[K comparable, V any](capacity int, hasher Hasher[K]) *LFU[K, V] {
	l := NewLFU[K, V](capacity)
	l.hasher = hasher
	return l
}

// SetDefaultCount overrides the initial counter policy for freshly
// inserted entries.
func (l *LFU[K, V]) SetDefaultCount(n uint64) { l.defaultCount = n }

// SetReduceCount overrides the aging threshold.
func (l *LFU[K, V]) SetReduceCount(n uint64) { l.reduceCount = n }

func (l *LFU[K, V]) Len() int      { return len(l.index) }
func (l *LFU[K, V]) Cap() int      { return l.cap }
func (l *LFU[K, V]) IsEmpty() bool { return len(l.index) == 0 }

func (l *LFU[K, V]) Clear() {
	l.index = make(map[K]*lfuEntry[K, V])
	l.bands = make(map[uint8]map[K]struct{})
	l.maxFreq = 0
	l.visitCount = 0
}

func (l *LFU[K, V]) Reserve(n int) { l.cap += n }
func (l *LFU[K, V]) FullIncrease() { l.cap++ }
func (l *LFU[K, V]) FullDecrease() {
	if l.cap > 1 {
		l.cap--
	}
}

func (l *LFU[K, V]) addToBand(key K, band uint8) {
	set, ok := l.bands[band]
	if !ok {
		set = make(map[K]struct{})
		l.bands[band] = set
	}
	set[key] = struct{}{}
	if band > l.maxFreq {
		l.maxFreq = band
	}
}

func (l *LFU[K, V]) removeFromBand(key K, band uint8) {
	set, ok := l.bands[band]
	if !ok {
		return
	}
	delete(set, key)
	if len(set) == 0 {
		delete(l.bands, band)
		if band == l.maxFreq {
			l.lowerMaxFreq()
		}
	}
}

// lowerMaxFreq re-derives maxFreq after the band it pointed at emptied
// out. maxFreq is only an accelerator for eviction scans, so recomputing
// it lazily here keeps those scans tight without needing an exact
// invariant after every single removal.
func (l *LFU[K, V]) lowerMaxFreq() {
	for b := l.maxFreq; ; b-- {
		if _, ok := l.bands[b]; ok {
			l.maxFreq = b
			return
		}
		if b == 0 {
			l.maxFreq = 0
			return
		}
	}
}

// bump increments e's counter, rebuckets it if its band changed, and runs
// the periodic aging pass if the global visit threshold was reached.
func (l *LFU[K, V]) bump(e *lfuEntry[K, V]) {
	e.counter++
	l.visitCount++
	if newBand := freqBand(e.counter); newBand != e.band {
		l.removeFromBand(e.key, e.band)
		e.band = newBand
		l.addToBand(e.key, newBand)
	}
	l.checkReduce()
}

// checkReduce halves every entry's counter in one O(n) pass once
// visitCount reaches reduceCount, providing decay without per-entry
// timestamps.
func (l *LFU[K, V]) checkReduce() {
	if l.reduceCount == 0 || l.visitCount < l.reduceCount {
		return
	}
	l.bands = make(map[uint8]map[K]struct{})
	l.maxFreq = 0
	for _, e := range l.index {
		e.counter /= 2
		e.band = freqBand(e.counter)
		l.addToBand(e.key, e.band)
	}
	l.visitCount = 0
}

func (l *LFU[K, V]) ContainsKey(key K) bool {
	_, ok := l.index[key]
	return ok
}

// Peek returns the value without any access-accounting side effect.
func (l *LFU[K, V]) Peek(key K) (V, bool) {
	e, ok := l.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// GetVisit returns the raw counter without any side effect.
func (l *LFU[K, V]) GetVisit(key K) (uint64, bool) {
	e, ok := l.index[key]
	if !ok {
		return 0, false
	}
	return e.counter, true
}

// Get returns the value and bumps its frequency. Get always has the
// side effect; Peek/GetVisit never do.
func (l *LFU[K, V]) Get(key K) (V, bool) {
	e, ok := l.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	l.bump(e)
	return e.value, true
}

func (l *LFU[K, V]) GetMut(key K) (*V, bool) {
	e, ok := l.index[key]
	if !ok {
		return nil, false
	}
	l.bump(e)
	return &e.value, true
}

// GetChecked is like Get but reports a miss as a wrapped error, for
// callers threading error returns instead of ok booleans.
func (l *LFU[K, V]) GetChecked(key K) (V, error) {
	v, ok := l.Get(key)
	if !ok {
		return v, wrapf(ErrKeyNotFound, "lfu: get %v", key)
	}
	return v, nil
}

// MustGet is the indexing form of Get: absence is caller misuse and
// panics rather than returning an error.
func (l *LFU[K, V]) MustGet(key K) V {
	v, err := l.GetChecked(key)
	if err != nil {
		panic(err)
	}
	return v
}

func (l *LFU[K, V]) newEntry(key K, value V) *lfuEntry[K, V] {
	var counter uint64
	if l.defaultCount > 0 {
		counter = l.defaultCount - 1
	}
	e := &lfuEntry[K, V]{key: key, value: value, counter: counter, band: freqBand(counter)}
	l.addToBand(key, e.band)
	l.index[key] = e
	l.bump(e)
	return e
}

func (l *LFU[K, V]) Insert(key K, value V) (V, bool) {
	old, _, hadOld, _ := l.insert(key, value)
	return old, hadOld
}

func (l *LFU[K, V]) CaptureInsert(key K, value V) CaptureResult[K, V] {
	old, evicted, hadOld, wasEvicted := l.insert(key, value)
	return captureResult(old, hadOld, evicted, wasEvicted)
}

func (l *LFU[K, V]) insert(key K, value V) (old V, evicted Entry[K, V], hadOld bool, wasEvicted bool) {
	if e, ok := l.index[key]; ok {
		old = e.value
		e.value = value
		l.bump(e)
		return old, Entry[K, V]{}, true, false
	}

	if len(l.index) >= l.cap {
		if vk, vok := l.pickVictim(); vok {
			ve := l.index[vk]
			evicted = Entry[K, V]{Key: vk, Value: ve.value}
			wasEvicted = true
			l.removeFromBand(vk, ve.band)
			delete(l.index, vk)
		}
	}

	l.newEntry(key, value)
	return old, evicted, false, wasEvicted
}

func (l *LFU[K, V]) GetOrInsert(key K, factory func() V) V {
	return *l.GetOrInsertMut(key, factory)
}

// GetOrInsertMut is like GetOrInsert but exposes the stored value by
// pointer so callers can mutate it in place.
func (l *LFU[K, V]) GetOrInsertMut(key K, factory func() V) *V {
	if p, ok := l.GetMut(key); ok {
		return p
	}
	l.Insert(key, factory())
	return &l.index[key].value
}

func (l *LFU[K, V]) Remove(key K) (V, bool) {
	e, ok := l.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	l.removeFromBand(key, e.band)
	delete(l.index, key)
	return e.value, true
}

// pickVictim scans bands ascending from 0, inclusive of maxFreq,
// returning the first key found in the lowest non-empty band. The scan
// must include maxFreq: when every entry sits in the top band there is
// nothing below it to evict.
func (l *LFU[K, V]) pickVictim() (K, bool) {
	for b := uint8(0); b <= l.maxFreq; b++ {
		for k := range l.bands[b] {
			return k, true
		}
	}
	var zero K
	return zero, false
}

// Pop returns the most-frequent entry (scanning bands downward from
// maxFreq).
func (l *LFU[K, V]) Pop() (Entry[K, V], bool) {
	for b := l.maxFreq; ; b-- {
		for k := range l.bands[b] {
			e := l.index[k]
			entry := Entry[K, V]{Key: k, Value: e.value}
			l.removeFromBand(k, e.band)
			delete(l.index, k)
			return entry, true
		}
		if b == 0 {
			break
		}
	}
	return Entry[K, V]{}, false
}

// PopBack returns the least-frequent entry (scanning bands upward from 0).
func (l *LFU[K, V]) PopBack() (Entry[K, V], bool) {
	k, ok := l.pickVictim()
	if !ok {
		return Entry[K, V]{}, false
	}
	e := l.index[k]
	entry := Entry[K, V]{Key: k, Value: e.value}
	l.removeFromBand(k, e.band)
	delete(l.index, k)
	return entry, true
}

// Retain drops every entry for which keep returns false, visiting entries
// by descending frequency band (the order of Keys).
func (l *LFU[K, V]) Retain(keep func(K, V) bool) {
	for _, k := range l.Keys() {
		e := l.index[k]
		if !keep(k, e.value) {
			l.removeFromBand(k, e.band)
			delete(l.index, k)
		}
	}
}

// Keys returns the keys in descending frequency-band order.
func (l *LFU[K, V]) Keys() []K {
	keys := make([]K, 0, len(l.index))
	for b := l.maxFreq; ; b-- {
		for k := range l.bands[b] {
			keys = append(keys, k)
		}
		if b == 0 {
			break
		}
	}
	return keys
}

// Values returns the values in the same order as Keys.
func (l *LFU[K, V]) Values() []V {
	values := make([]V, 0, len(l.index))
	for _, k := range l.Keys() {
		values = append(values, l.index[k].value)
	}
	return values
}

// Iter visits entries by descending frequency band, unspecified order
// within a band.
func (l *LFU[K, V]) Iter() Iterator[K, V] {
	return &lfuIterator[K, V]{l: l, bands: l.Keys()}
}

type lfuIterator[K comparable, V any] struct {
	l      *LFU[K, V]
	bands  []K
	fwd    int
	back   int
	inited bool
}

func (it *lfuIterator[K, V]) init() {
	if !it.inited {
		it.back = len(it.bands)
		it.inited = true
	}
}

func (it *lfuIterator[K, V]) Next() (Entry[K, V], bool) {
	it.init()
	if it.fwd >= it.back {
		return Entry[K, V]{}, false
	}
	k := it.bands[it.fwd]
	it.fwd++
	e := it.l.index[k]
	return Entry[K, V]{Key: k, Value: e.value}, true
}

func (it *lfuIterator[K, V]) NextBack() (Entry[K, V], bool) {
	it.init()
	if it.fwd >= it.back {
		return Entry[K, V]{}, false
	}
	it.back--
	k := it.bands[it.back]
	e := it.l.index[k]
	return Entry[K, V]{Key: k, Value: e.value}, true
}
