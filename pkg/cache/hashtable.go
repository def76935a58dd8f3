package cache

import "bytes"

// handleTable is the open-chained, power-of-two hash table from leveldb's
// util/cache.cc HandleTable: each bucket holds the head of a singly linked
// list threaded through Handle.nextHash. Insert and Remove locate the
// bucket slot that points at the target (the head pointer itself, or some
// handle's nextHash field) via a pointer-to-the-pointer, which unifies the
// head and interior-of-chain cases into one piece of code — in Go this is
// a pointer to a *Handle field.
type handleTable struct {
	length uint32
	elems  uint32
	list   []*Handle
}

func newHandleTable() *handleTable {
	t := &handleTable{}
	t.resize()
	return t
}

func (t *handleTable) lookup(key []byte, hash uint32) *Handle {
	return *t.findPointer(key, hash)
}

// insert replaces any handle with an equal key in place and returns the
// prior handle occupying that key, if any. It grows the table once the
// load factor exceeds 1 (elems > length), doubling length until it is at
// least the new element count.
func (t *handleTable) insert(h *Handle) *Handle {
	ptr := t.findPointer(h.key, h.hash)
	old := *ptr
	if old != nil {
		h.nextHash = old.nextHash
	} else {
		h.nextHash = nil
	}
	*ptr = h
	if old == nil {
		t.elems++
		if t.elems > t.length {
			t.resize()
		}
	}
	return old
}

func (t *handleTable) remove(key []byte, hash uint32) *Handle {
	ptr := t.findPointer(key, hash)
	result := *ptr
	if result != nil {
		*ptr = result.nextHash
		t.elems--
	}
	return result
}

// findPointer returns a pointer to the slot that holds (or would hold) the
// handle matching (key, hash): either a bucket head in t.list, or the
// nextHash field of the chain entry preceding the match.
func (t *handleTable) findPointer(key []byte, hash uint32) **Handle {
	slot := &t.list[hash&(t.length-1)]
	for *slot != nil && ((*slot).hash != hash || !bytes.Equal((*slot).key, key)) {
		slot = &(*slot).nextHash
	}
	return slot
}

func (t *handleTable) resize() {
	newLength := uint32(4)
	for newLength < t.elems {
		newLength *= 2
	}
	newList := make([]*Handle, newLength)
	var count uint32
	for _, head := range t.list {
		h := head
		for h != nil {
			next := h.nextHash
			idx := h.hash & (newLength - 1)
			h.nextHash = newList[idx]
			newList[idx] = h
			h = next
			count++
		}
	}
	t.list = newList
	t.length = newLength
}
