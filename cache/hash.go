package cache

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Hasher is a pluggable hash function over keys. Go's builtin map already
// hashes comparable keys on its own, so Hasher has no bearing on the
// correctness of the hash index itself; it backs the WithHasher family of
// constructors for callers that need a stable, explicit hash — e.g. to
// shard keys across several caches.
type Hasher[K comparable] interface {
	Sum64(key K) uint64
}

// defaultHasher hashes string and []byte keys directly with xxHash64, and
// any other key through its fmt.Sprint representation. It
// is not on any hot path that affects correctness or the node/index
// structures; it backs only the optional Hasher-consuming APIs (e.g. a
// future sharded cache built on top of these cores).
type defaultHasher[K comparable] struct{}

// NewDefaultHasher returns the xxHash64-backed Hasher used when a
// constructor's WithHasher option is not supplied.
func NewDefaultHasher[K comparable]() Hasher[K] {
	return defaultHasher[K]{}
}

func (defaultHasher[K]) Sum64(key K) uint64 {
	switch k := any(key).(type) {
	case string:
		return xxhash.Sum64String(k)
	case []byte:
		return xxhash.Sum64(k)
	default:
		return xxhash.Sum64String(fmt.Sprint(key))
	}
}
