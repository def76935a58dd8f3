// Package cache implements a sharded, reference-counted LRU cache used by
// the read path for blocks and metadata. Grounded directly on leveldb's
// util/cache.cc: the two-list (in-use/lru) reference-tracking design, the
// open-chained power-of-two hash table with its "pointer to slot"
// technique, and the 16-way shard fan-out keyed by the hash's high bits
// are all carried over structurally; only the host-language idiom changes
// (Go structs and a sync.Mutex in place of placement-new'd C structs and
// a port::Mutex).
package cache

// Deleter is invoked exactly once, on the goroutine that drops an entry's
// last reference, when that entry's value is no longer reachable through
// the cache.
type Deleter func(key []byte, value any)

// Handle is an opaque outstanding reference to a cached entry. It must be
// released exactly once via Shard.Release (or Sharded.Release).
type Handle struct {
	value   any
	deleter Deleter
	charge  int
	key     []byte
	hash    uint32

	refs     int
	inCache  bool
	nextHash *Handle

	// lru/inUse circular doubly linked list pointers.
	next *Handle
	prev *Handle
}

// Key returns the handle's key bytes. Valid for the lifetime of the
// handle, independent of whether it is still in the cache.
func (h *Handle) Key() []byte {
	return h.key
}

// Value returns the handle's cached payload.
func (h *Handle) Value() any {
	return h.value
}
