package cache

import "sync"

// Shard is a single partition of the sharded cache: capacity-bounded,
// reference-counted, with two sentinel-headed circular doubly linked lists
// (lru, inUse) and a handleTable index. This is a direct translation of
// leveldb's LRUCache (util/cache.cc); Sharded (sharded.go) fans requests
// out to 16 of these by the key's hash.
type Shard struct {
	mu       sync.Mutex
	capacity int
	usage    int

	// lru holds entries not currently referenced by any caller, ordered
	// oldest (lru.next) to newest (lru.prev); new arrivals are appended
	// just before the lru sentinel.
	lru Handle
	// inUse holds entries referenced by callers (refs >= 2, in a cache),
	// in no particular order; used only for the destruction invariant
	// check (every outstanding handle must be released before Close).
	inUse Handle

	table *handleTable
}

// NewShard returns an empty shard with the given capacity (in charge
// units). A capacity of 0 disables caching entirely: Insert still returns
// a usable handle, but it is never added to the table or lists.
func NewShard(capacity int) *Shard {
	s := &Shard{capacity: capacity, table: newHandleTable()}
	s.lru.next, s.lru.prev = &s.lru, &s.lru
	s.inUse.next, s.inUse.prev = &s.inUse, &s.inUse
	return s
}

// Insert adds (key, value) to the shard with the given charge and deleter,
// returning a handle the caller owns (one reference). If an entry with
// the same key already exists, it is evicted in favor of the new one. If
// inserting charge pushes usage over capacity, the oldest lru entries are
// evicted until usage fits or the lru list is empty.
func (s *Shard) Insert(key []byte, hash uint32, value any, charge int, deleter Deleter) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := &Handle{
		value:   value,
		deleter: deleter,
		charge:  charge,
		key:     append([]byte(nil), key...),
		hash:    hash,
		refs:    1, // the handle returned to the caller
	}

	if s.capacity > 0 {
		h.refs++ // the cache's own reference
		h.inCache = true
		s.lruAppend(&s.inUse, h)
		s.usage += charge
		s.finishErase(s.table.insert(h))
	}

	for s.usage > s.capacity && s.lru.next != &s.lru {
		old := s.lru.next
		s.finishErase(s.table.remove(old.key, old.hash))
	}

	return h
}

// Lookup returns a new reference to the entry for (key, hash), or nil if
// absent.
func (s *Shard) Lookup(key []byte, hash uint32) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.table.lookup(key, hash)
	if h != nil {
		s.ref(h)
	}
	return h
}

// Release drops one reference on handle, potentially moving it from
// in-use to lru, or invoking its deleter and freeing it.
func (s *Shard) Release(handle *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unref(handle)
}

// Erase removes any entry for (key, hash) from the cache. Outstanding
// handles remain valid (and uncached) until their holders Release them.
func (s *Shard) Erase(key []byte, hash uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishErase(s.table.remove(key, hash))
}

// Prune evicts every entry currently on the lru list (i.e. every cached
// entry with no outstanding external reference).
func (s *Shard) Prune() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.lru.next != &s.lru {
		e := s.lru.next
		s.finishErase(s.table.remove(e.key, e.hash))
	}
}

// TotalCharge returns the sum of charges of entries currently in the
// cache.
func (s *Shard) TotalCharge() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

// Close tears the shard down: every handle with no external reference is
// finalized. It panics if any handle is still on the in-use list — every
// caller must Release its handles before Close, the same invariant
// leveldb's ~LRUCache asserts.
func (s *Shard) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inUse.next != &s.inUse {
		panic("cache: Close with outstanding in-use handles")
	}
	for e := s.lru.next; e != &s.lru; {
		next := e.next
		e.inCache = false
		s.unref(e)
		e = next
	}
}

// ref increments handle's refcount, moving it from lru to inUse if this
// is the transition from a single (cache-only) reference to shared use.
func (s *Shard) ref(h *Handle) {
	if h.refs == 1 && h.inCache {
		s.lruRemove(h)
		s.lruAppend(&s.inUse, h)
	}
	h.refs++
}

// unref decrements handle's refcount. At zero, it invokes the deleter and
// discards the handle. At the transition to exactly one reference while
// still cached, it moves from inUse back to lru.
func (s *Shard) unref(h *Handle) {
	if h.refs <= 0 {
		panic("cache: Release of a handle with no outstanding references")
	}
	h.refs--
	switch {
	case h.refs == 0:
		if h.inCache {
			panic("cache: handle reached zero refs while still in cache")
		}
		if h.deleter != nil {
			h.deleter(h.key, h.value)
		}
	case h.inCache && h.refs == 1:
		s.lruRemove(h)
		s.lruAppend(&s.lru, h)
	}
}

// finishErase completes removing h from the cache: h has already been
// unlinked from the hash table (h may be nil, meaning there was nothing
// to erase). It unlinks h from whichever list it's on, clears inCache,
// adjusts usage, and drops the cache's own reference.
func (s *Shard) finishErase(h *Handle) bool {
	if h == nil {
		return false
	}
	s.lruRemove(h)
	h.inCache = false
	s.usage -= h.charge
	s.unref(h)
	return true
}

func (s *Shard) lruRemove(e *Handle) {
	e.next.prev = e.prev
	e.prev.next = e.next
}

// lruAppend makes e the newest entry on list by inserting it just before
// list's sentinel.
func (s *Shard) lruAppend(list, e *Handle) {
	e.next = list
	e.prev = list.prev
	e.prev.next = e
	e.next.prev = e
}
