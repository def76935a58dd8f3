package memtable

import (
	"lsmdb/pkg/dbformat"
	"lsmdb/pkg/iterator"
	"lsmdb/pkg/types"
)

// UserIterator adapts a memtable Iterator to the pkg/iterator.Iterator
// contract: Key returns user keys rather than internal keys, so callers
// can range over a memtable the same way they would any other ordered
// source. Older versions and tombstones are not filtered out.
type UserIterator struct {
	it *Iterator
}

var _ iterator.Iterator = (*UserIterator)(nil)

// NewUserIterator wraps mt's entries for user-key-level iteration. Seek
// probes at the maximum sequence number, so it lands on the newest version
// of the target key; First, Last, Next and Prev visit every stored version
// of every user key, newest first within a key, and a tombstone shows up
// as an entry with an empty Value.
func NewUserIterator(mt *Memtable) *UserIterator {
	return &UserIterator{it: mt.NewIterator()}
}

func (u *UserIterator) Seek(target types.Key) {
	u.it.Seek(target, types.MaxSequenceNumber)
}

func (u *UserIterator) First() { u.it.SeekToFirst() }
func (u *UserIterator) Last()  { u.it.SeekToLast() }
func (u *UserIterator) Next()  { u.it.Next() }
func (u *UserIterator) Prev()  { u.it.Prev() }
func (u *UserIterator) Valid() bool { return u.it.Valid() }

func (u *UserIterator) Key() types.Key {
	ikey := u.it.Key()
	userKey, _, _, ok := dbformat.ParseInternalKey(ikey)
	if !ok {
		panic("memtable: malformed entry in index")
	}
	return userKey
}

func (u *UserIterator) Value() types.Value { return u.it.Value() }

// Close is a no-op: a UserIterator holds no resources beyond the
// memtable's own arena and index, which the caller's Ref/Unref govern.
func (u *UserIterator) Close() error { return nil }
