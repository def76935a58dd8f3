// Package skiplist implements the memtable's ordered index: a probabilistic
// ordered map over opaque byte strings with lock-free readers and a
// single-writer insert path, grounded on leveldb's db/skiplist.h and
// generalized to an injectable comparator so any external collaborator can
// supply its own user-key ordering.
//
// Keys are opaque — the skiplist never interprets them beyond comparing —
// so the memtable embeds both the internal key and its value inside the
// byte string it inserts (see pkg/memtable). Node headers live on the Go
// heap rather than inside the shared arena: forward pointers are published
// with atomic.Pointer's release semantics and read with its acquire
// semantics, which gives the skiplist leveldb's lock-free-read guarantee
// without unsafe placement-new tricks over arena bytes. The arena itself
// still owns every key's byte storage (see pkg/arena, pkg/memtable), which
// is where most of a memtable's memory actually lives: the key bytes, not
// the O(1) per-node header.
package skiplist

import (
	"github.com/zhangyunhao116/fastrand"
	"sync/atomic"
)

const (
	maxHeight = 12
	branching = 4
)

// Comparator orders two opaque keys. It must be a strict total order and
// must be stable for the lifetime of a List.
type Comparator func(a, b []byte) int

type node struct {
	key  []byte
	next []atomic.Pointer[node]
}

func newNode(key []byte, height int) *node {
	return &node{key: key, next: make([]atomic.Pointer[node], height)}
}

func (n *node) loadNext(level int) *node {
	return n.next[level].Load()
}

func (n *node) storeNext(level int, v *node) {
	n.next[level].Store(v)
}

// List is a skiplist keyed by opaque byte strings; the keys themselves
// carry whatever payload the caller embedded in them. At most one writer
// may call Insert at a time; any number of readers may concurrently use
// Contains and Iterators.
type List struct {
	cmp    Comparator
	head   *node
	height atomic.Int32 // current max level in use, 1-indexed
}

// New returns an empty list ordered by cmp.
func New(cmp Comparator) *List {
	l := &List{cmp: cmp, head: newNode(nil, maxHeight)}
	l.height.Store(1)
	return l
}

func (l *List) randomHeight() int {
	h := 1
	for h < maxHeight && fastrand.Uint32n(branching) == 0 {
		h++
	}
	return h
}

// findGreaterOrEqual walks the list, populating prev (if non-nil) with the
// last node at each level known to sort strictly before key, and returns
// the first node sorting at-or-after key (nil at the end of the list).
func (l *List) findGreaterOrEqual(key []byte, prev []*node) *node {
	x := l.head
	level := int(l.height.Load()) - 1
	for {
		next := x.loadNext(level)
		if next != nil && l.cmp(next.key, key) < 0 {
			x = next
			continue
		}
		if prev != nil {
			prev[level] = x
		}
		if level == 0 {
			return next
		}
		level--
	}
}

// findLessThan returns the last node in the list that sorts strictly
// before key, or head if none does.
func (l *List) findLessThan(key []byte) *node {
	x := l.head
	level := int(l.height.Load()) - 1
	for {
		next := x.loadNext(level)
		if next != nil && l.cmp(next.key, key) < 0 {
			x = next
			continue
		}
		if level == 0 {
			return x
		}
		level--
	}
}

// findLast returns the last node in the list, or head if the list is empty.
func (l *List) findLast() *node {
	x := l.head
	level := int(l.height.Load()) - 1
	for {
		next := x.loadNext(level)
		if next != nil {
			x = next
			continue
		}
		if level == 0 {
			return x
		}
		level--
	}
}

// Insert adds key to the list. The caller guarantees key does not already
// compare equal to any key already present (the memtable enforces this by
// construction via strictly increasing sequence numbers). Not safe to call
// concurrently with another Insert.
func (l *List) Insert(key []byte) {
	var prev [maxHeight]*node
	_ = l.findGreaterOrEqual(key, prev[:])

	height := l.randomHeight()
	if curHeight := int(l.height.Load()); height > curHeight {
		for i := curHeight; i < height; i++ {
			prev[i] = l.head
		}
		l.height.Store(int32(height))
	}

	x := newNode(key, height)
	for i := 0; i < height; i++ {
		// x is not yet reachable by any reader, so plain stores here are
		// fine; only the predecessor's publication needs release ordering.
		x.next[i].Store(prev[i].loadNext(i))
		prev[i].storeNext(i, x)
	}
}

// Contains reports whether key is present in the list.
func (l *List) Contains(key []byte) bool {
	x := l.findGreaterOrEqual(key, nil)
	return x != nil && l.cmp(x.key, key) == 0
}

// Iterator walks the list in ascending comparator order. The zero value is
// not valid; use List.NewIterator.
type Iterator struct {
	list *List
	node *node
}

// NewIterator returns an iterator positioned before the first entry.
func (l *List) NewIterator() *Iterator {
	return &Iterator{list: l}
}

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator) Valid() bool {
	return it.node != nil
}

// Key returns the key at the iterator's current position. Valid must be true.
func (it *Iterator) Key() []byte {
	return it.node.key
}

// Next advances to the next entry. Valid must be true.
func (it *Iterator) Next() {
	it.node = it.node.loadNext(0)
}

// Prev moves to the previous entry. Valid must be true.
func (it *Iterator) Prev() {
	it.node = it.list.findLessThan(it.node.key)
	if it.node == it.list.head {
		it.node = nil
	}
}

// Seek moves to the first entry with a key at or after target.
func (it *Iterator) Seek(target []byte) {
	it.node = it.list.findGreaterOrEqual(target, nil)
}

// SeekToFirst moves to the first entry in the list.
func (it *Iterator) SeekToFirst() {
	it.node = it.list.head.loadNext(0)
}

// SeekToLast moves to the last entry in the list, or invalidates the
// iterator if the list is empty.
func (it *Iterator) SeekToLast() {
	last := it.list.findLast()
	if last == it.list.head {
		it.node = nil
		return
	}
	it.node = last
}
