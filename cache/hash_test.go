package cache

import "testing"

func TestDefaultHasherStable(t *testing.T) {
	h := NewDefaultHasher[string]()
	if h.Sum64("key") != h.Sum64("key") {
		t.Fatal("hash of the same key must be stable")
	}
	if h.Sum64("a") == h.Sum64("b") {
		t.Fatal("distinct short keys should not collide")
	}

	hb := NewDefaultHasher[any]()
	if hb.Sum64([]byte("key")) != h.Sum64("key") {
		t.Fatal("string and byte views of a key must hash alike")
	}

	hi := NewDefaultHasher[int]()
	if hi.Sum64(42) != hi.Sum64(42) {
		t.Fatal("non-string keys must hash stably")
	}
}
