// Package memtable implements the ordered, multi-version in-memory table
// that sits on top of an arena (pkg/arena) and a skiplist (pkg/skiplist):
// it encodes versioned entries into arena bytes and indexes them, answering
// point lookups by walking back to the newest version at or before a query
// sequence. Grounded on leveldb's db/memtable.{h,cc}; keeps the
// reference-counted, single-writer shape of that design, backed by an
// arena and a custom skiplist in place of an off-the-shelf concurrent map.
package memtable

import (
	"encoding/binary"
	"sync/atomic"

	"lsmdb/pkg/arena"
	"lsmdb/pkg/dbformat"
	"lsmdb/pkg/skiplist"
	"lsmdb/pkg/types"
)

// GetResult distinguishes the three outcomes of a Get: the memtable may
// hold nothing for the key (Miss, meaning the caller should consult a
// deeper layer), hold a live value (Found), or hold a tombstone that is
// itself authoritative (Deleted — the caller must not fall through).
type GetResult int

const (
	Miss GetResult = iota
	Found
	Deleted
)

// Memtable is an ordered, multi-version, reference-counted table. The
// initial reference count is zero; callers must call Ref at least once
// before using it and Unref exactly as many times once done. It is never
// copied: only a *Memtable is ever passed around.
type Memtable struct {
	userCmp dbformat.Comparator
	arena   *arena.Arena
	list    *skiplist.List
	refs    atomic.Int32
}

// New returns a memtable ordering user keys with cmp (bytewise order if cmp
// is nil). The returned memtable has a reference count of zero.
func New(cmp dbformat.Comparator) *Memtable {
	if cmp == nil {
		cmp = dbformat.BytewiseCompare
	}
	mt := &Memtable{userCmp: cmp, arena: arena.New()}
	mt.list = skiplist.New(func(a, b []byte) int {
		ak, _ := stripMemtableKeyLen(a)
		bk, _ := stripMemtableKeyLen(b)
		return dbformat.Compare(ak, bk, mt.userCmp)
	})
	return mt
}

// Ref increases the reference count.
func (mt *Memtable) Ref() {
	mt.refs.Add(1)
}

// Unref decreases the reference count. Going negative is a programming
// error and panics; in Go the arena and index are reclaimed by the garbage
// collector once the last reference is dropped, rather than by an explicit
// destructor, but the refcount discipline itself, and the requirement
// that callers stop using the memtable once their Unref brings it to zero,
// is unchanged.
func (mt *Memtable) Unref() {
	if mt.refs.Add(-1) < 0 {
		panic("memtable: reference count went negative")
	}
}

// ApproximateMemoryUsage returns an estimate of the bytes of data the
// memtable's arena holds. Safe to call while Add is in progress elsewhere.
func (mt *Memtable) ApproximateMemoryUsage() uint64 {
	return mt.arena.MemoryUsage()
}

// Add inserts a versioned entry: it constructs
// varstring(userKey ++ trailer(seq, typ)) ++ varstring(value) in the
// arena and indexes it. The caller (typically a write-batch replay
// handler, see pkg/batch) is responsible for assigning strictly increasing
// sequence numbers; Add itself performs no synchronization and must be
// externally serialized against other Add calls.
func (mt *Memtable) Add(seq types.SequenceNumber, typ types.ValueType, userKey, value types.Key) {
	ikeyLen := len(userKey) + 8
	valLen := len(value)

	var keyLenBuf, valLenBuf [binary.MaxVarintLen32]byte
	keyLenN := binary.PutUvarint(keyLenBuf[:], uint64(ikeyLen))
	valLenN := binary.PutUvarint(valLenBuf[:], uint64(valLen))

	total := keyLenN + ikeyLen + valLenN + valLen
	buf := mt.arena.Allocate(total)

	n := copy(buf, keyLenBuf[:keyLenN])
	n += copy(buf[n:], userKey)
	binary.LittleEndian.PutUint64(buf[n:n+8], dbformat.PackTrailer(seq, typ))
	n += 8
	n += copy(buf[n:], valLenBuf[:valLenN])
	copy(buf[n:], value)

	mt.list.Insert(buf)
}

// Get looks up the newest version of lk's user key at or before lk's
// sequence number. It returns Found with the value, Deleted if the
// newest applicable entry is a tombstone, or Miss if no entry for the
// user key exists at or before that sequence.
func (mt *Memtable) Get(lk *dbformat.LookupKey) ([]byte, GetResult) {
	it := mt.list.NewIterator()
	it.Seek(lk.MemtableKey())
	if !it.Valid() {
		return nil, Miss
	}

	ikey, rest := stripMemtableKeyLen(it.Key())
	userKey, _, typ, ok := dbformat.ParseInternalKey(ikey)
	if !ok || mt.userCmp(userKey, lk.UserKey()) != 0 {
		return nil, Miss
	}

	switch typ {
	case types.TypeValue:
		val, _, ok := dbformat.GetVarstring(rest)
		if !ok {
			return nil, Miss
		}
		return val, Found
	default: // types.TypeDeletion
		return nil, Deleted
	}
}

// stripMemtableKeyLen splits a raw entry stored in the index into its
// internal-key bytes and the remainder (the value's varstring framing).
func stripMemtableKeyLen(entry []byte) (ikey, rest []byte) {
	ikey, rest, ok := dbformat.GetVarstring(entry)
	if !ok {
		// Every entry the memtable itself inserts is well-formed; a
		// malformed entry here means arena/skiplist corruption, not a
		// recoverable input error.
		panic("memtable: malformed entry in index")
	}
	return ikey, rest
}

// Iterator yields the memtable's entries in internal-key order, decoding
// the length-prefixed framing back into internal-key and value views.
type Iterator struct {
	inner *skiplist.Iterator
}

// NewIterator returns an iterator over the memtable's entries. The caller
// must keep a reference on the memtable (Ref/Unref) for as long as the
// iterator is live.
func (mt *Memtable) NewIterator() *Iterator {
	return &Iterator{inner: mt.list.NewIterator()}
}

func (it *Iterator) Valid() bool    { return it.inner.Valid() }
func (it *Iterator) SeekToFirst()   { it.inner.SeekToFirst() }
func (it *Iterator) SeekToLast()    { it.inner.SeekToLast() }
func (it *Iterator) Next()          { it.inner.Next() }
func (it *Iterator) Prev()          { it.inner.Prev() }

// Seek moves to the first entry whose internal key sorts at or after a
// lookup key built from (userKey, seq) — i.e. the newest version of
// userKey at or before seq, if present.
func (it *Iterator) Seek(userKey types.Key, seq types.SequenceNumber) {
	it.inner.Seek(dbformat.NewLookupKey(userKey, seq).MemtableKey())
}

// Key returns the current entry's internal key (user key ++ trailer).
func (it *Iterator) Key() []byte {
	ikey, _ := stripMemtableKeyLen(it.inner.Key())
	return ikey
}

// Value returns the current entry's value bytes (empty for a tombstone).
func (it *Iterator) Value() []byte {
	_, rest := stripMemtableKeyLen(it.inner.Key())
	val, _, ok := dbformat.GetVarstring(rest)
	if !ok {
		panic("memtable: malformed entry in index")
	}
	return val
}
