package cache

import "testing"

// checkLRUKInvariants verifies the split-list bookkeeping: every hot node
// carries a counter at or above the threshold, every cold node below it,
// and the two lists together cover the index exactly.
func checkLRUKInvariants[K comparable, V any](t *testing.T, l *LRUK[K, V]) {
	t.Helper()
	cold, hot := 0, 0
	for n := l.head.next; n != l.tail; n = n.next {
		cold++
		if n.times >= l.k {
			t.Fatalf("cold node %v has counter %d >= K %d", n.key, n.times, l.k)
		}
	}
	for n := l.headHot.next; n != l.tailHot; n = n.next {
		hot++
		if n.times < l.k {
			t.Fatalf("hot node %v has counter %d < K %d", n.key, n.times, l.k)
		}
	}
	if cold != l.coldCount {
		t.Fatalf("cold list holds %d, counter says %d", cold, l.coldCount)
	}
	if cold+hot != l.Len() {
		t.Fatalf("cold %d + hot %d != len %d", cold, hot, l.Len())
	}
}

func TestLRUKPromotion(t *testing.T) {
	l := NewLRUKWithK[string, string](3, 3)

	l.Insert("this", "lruk")
	for i := 0; i < 3; i++ {
		if _, ok := l.Get("this"); !ok {
			t.Fatal("expected hit")
		}
	}
	l.Insert("hello", "algo")
	l.Insert("auth", "tick")
	if l.Len() != 3 {
		t.Fatalf("expected len 3, got %d", l.Len())
	}
	checkLRUKInvariants(t, l)

	// The hot entry must not be the victim: eviction prefers the cold
	// list, whose LRU end is "hello".
	l.Insert("auth1", "tick2")
	if _, ok := l.Peek("hello"); ok {
		t.Fatal("expected cold LRU hello evicted")
	}
	if v, ok := l.Get("this"); !ok || v != "lruk" {
		t.Fatal("promoted entry must survive cold eviction")
	}
	checkLRUKInvariants(t, l)
}

func TestLRUKEvictsHotWhenColdEmpty(t *testing.T) {
	l := NewLRUKWithK[int, int](2, 1)

	// K=1 promotes on the very first attach, so the cold list stays
	// empty and eviction must fall back to the hot LRU end.
	l.Insert(1, 1)
	l.Insert(2, 2)
	l.Insert(3, 3)

	if _, ok := l.Peek(1); ok {
		t.Fatal("expected hot LRU 1 evicted")
	}
	if !l.ContainsKey(2) || !l.ContainsKey(3) {
		t.Fatal("expected 2 and 3 to survive")
	}
	checkLRUKInvariants(t, l)
}

func TestLRUKRecycleResetsCounter(t *testing.T) {
	l := NewLRUKWithK[int, int](2, 3)

	l.Insert(1, 1)
	l.Get(1)
	l.Get(1) // counter now 3: hot
	l.Insert(2, 2)
	l.Insert(3, 3) // evicts 2, recycling its node

	// The recycled node must restart counting from scratch.
	if n := l.index[3]; n.times != 1 {
		t.Fatalf("recycled node counter %d, expected 1", n.times)
	}
	checkLRUKInvariants(t, l)
}

func TestLRUKDefaultThreshold(t *testing.T) {
	l := NewLRUK[int, int](4)
	if l.k != DefaultK {
		t.Fatalf("expected default K %d, got %d", DefaultK, l.k)
	}
}

func TestLRUKPops(t *testing.T) {
	l := NewLRUKWithK[int, string](4, 2)

	l.Insert(1, "a")
	l.Get(1) // promote
	l.Insert(2, "b")
	l.Insert(3, "c")

	// Pop favors the hot MRU; PopBack the cold LRU.
	if e, ok := l.Pop(); !ok || e.Key != 1 {
		t.Fatalf("expected hot MRU 1, got %v", e)
	}
	if e, ok := l.PopBack(); !ok || e.Key != 2 {
		t.Fatalf("expected cold LRU 2, got %v", e)
	}
	if l.Len() != 1 {
		t.Fatalf("expected one entry left, got %d", l.Len())
	}
}

func TestLRUKIterColdThenHot(t *testing.T) {
	l := NewLRUKWithK[int, int](4, 2)

	l.Insert(1, 1)
	l.Get(1) // hot
	l.Insert(2, 2)
	l.Insert(3, 3)

	var keys []int
	it := l.Iter()
	for e, ok := it.Next(); ok; e, ok = it.Next() {
		keys = append(keys, e.Key)
	}
	// Cold portion MRU→LRU first (3, 2), then hot (1).
	if len(keys) != 3 || keys[0] != 3 || keys[1] != 2 || keys[2] != 1 {
		t.Fatalf("expected [3 2 1], got %v", keys)
	}

	it = l.Iter()
	if e, ok := it.NextBack(); !ok || e.Key != 1 {
		t.Fatalf("backward walk must start at the hot end, got %v", e)
	}

	if keys := l.Keys(); len(keys) != 3 || keys[0] != 3 {
		t.Fatalf("Keys out of order: %v", keys)
	}
}

func TestLRUKGetOrInsertMut(t *testing.T) {
	l := NewLRUKWithK[string, int](4, 2)

	p := l.GetOrInsertMut("a", func() int { return 1 })
	*p = 5
	if v, _ := l.Peek("a"); v != 5 {
		t.Fatalf("mutation through the pointer must stick, got %d", v)
	}
	if v := l.GetOrInsert("a", func() int { return 9 }); v != 5 {
		t.Fatalf("factory must not run on hit, got %d", v)
	}
	checkLRUKInvariants(t, l)
}

func TestLRUKStrictConstructionAndMustGet(t *testing.T) {
	if _, err := NewLRUKStrict[string, int](0, 2); err == nil {
		t.Fatal("expected invalid-capacity error")
	}
	l, err := NewLRUKStrict[string, int](2, 2)
	if err != nil {
		t.Fatalf("valid capacity rejected: %v", err)
	}

	l.Insert("a", 1)
	if v := l.MustGet("a"); v != 1 {
		t.Fatalf("expected 1, got %d", v)
	}
	if _, err := l.GetChecked("missing"); err == nil {
		t.Fatal("expected miss error")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("MustGet on a missing key must panic")
		}
	}()
	l.MustGet("missing")
}

func TestLRUKRetain(t *testing.T) {
	l := NewLRUKWithK[int, int](6, 2)
	for i := 1; i <= 5; i++ {
		l.Insert(i, i)
	}
	l.Get(1)
	l.Get(2)

	l.Retain(func(k, _ int) bool { return k != 2 && k != 4 })

	if l.Len() != 3 {
		t.Fatalf("expected 3 survivors, got %d", l.Len())
	}
	if l.ContainsKey(2) || l.ContainsKey(4) {
		t.Fatal("dropped keys still present")
	}
	checkLRUKInvariants(t, l)
}
