// Package dbformat implements the on-heap wire shapes that the memtable and
// write batch share: internal keys (user key + sequence/type trailer),
// lookup keys used to probe the ordered index, and the varint-length-
// prefixed ("varstring") framing used by both the skiplist entries and the
// write-batch record stream.
package dbformat

import (
	"bytes"
	"encoding/binary"

	"lsmdb/pkg/types"
)

// trailerSize is the width, in bytes, of the internal-key trailer: a 56-bit
// sequence number packed with an 8-bit value-type tag.
const trailerSize = 8

// PackTrailer packs (seq, typ) into the 8-byte little-endian trailer value
// appended to every internal key: (sequence << 8) | type.
func PackTrailer(seq types.SequenceNumber, typ types.ValueType) uint64 {
	return uint64(seq)<<8 | uint64(typ)
}

// UnpackTrailer splits a trailer value back into its sequence and type.
func UnpackTrailer(trailer uint64) (types.SequenceNumber, types.ValueType) {
	return types.SequenceNumber(trailer >> 8), types.ValueType(trailer & 0xff)
}

// AppendInternalKey appends the internal-key encoding of (userKey, seq, typ)
// to dst and returns the extended slice: userKey bytes followed by the
// 8-byte little-endian trailer.
func AppendInternalKey(dst []byte, userKey types.Key, seq types.SequenceNumber, typ types.ValueType) []byte {
	dst = append(dst, userKey...)
	var trailer [trailerSize]byte
	binary.LittleEndian.PutUint64(trailer[:], PackTrailer(seq, typ))
	return append(dst, trailer[:]...)
}

// ParseInternalKey splits an internal key into its user-key prefix and
// trailer. It returns false if ik is shorter than a trailer.
func ParseInternalKey(ik []byte) (userKey types.Key, seq types.SequenceNumber, typ types.ValueType, ok bool) {
	if len(ik) < trailerSize {
		return nil, 0, 0, false
	}
	n := len(ik) - trailerSize
	trailer := binary.LittleEndian.Uint64(ik[n:])
	seq, typ = UnpackTrailer(trailer)
	return ik[:n], seq, typ, true
}

// UserKey strips the trailer from an internal key, returning the raw user
// key bytes. Panics if ik is shorter than a trailer — callers only ever
// apply this to well-formed internal keys pulled back out of the index.
func UserKey(ik []byte) types.Key {
	return ik[:len(ik)-trailerSize]
}

// Comparator orders two user keys. External collaborators (the database
// layer, in the full system) supply their own total order; this core only
// requires that it be deterministic and consistent for a table's lifetime.
type Comparator func(a, b []byte) int

// Compare orders internal keys the way the ordered index must: user-key
// bytes ascending by cmp, ties broken by sequence number descending so
// that newer versions of the same user key sort before older ones.
func Compare(a, b []byte, cmp Comparator) int {
	au, bu := UserKey(a), UserKey(b)
	if c := cmp(au, bu); c != 0 {
		return c
	}
	at := binary.LittleEndian.Uint64(a[len(a)-trailerSize:])
	bt := binary.LittleEndian.Uint64(b[len(b)-trailerSize:])
	// Trailer packs sequence in the high bits, so a larger raw trailer value
	// means a newer (higher-sequence) entry for ties at the type level too;
	// descending sequence means descending trailer, i.e. bigger sorts first.
	switch {
	case at > bt:
		return -1
	case at < bt:
		return 1
	default:
		return 0
	}
}

// BytewiseCompare is the default user-key comparator: plain lexicographic
// byte order. External collaborators may supply their own total order; the
// core only requires a deterministic comparator here and in the skiplist.
func BytewiseCompare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// LookupKey is a length-prefixed internal key built to probe the memtable
// for "the newest version of userKey at or before seq". Tagging the query
// with the maximum value type ensures it sorts before (is "newer than")
// every real entry at the same (userKey, seq) pair, so a skiplist seek
// lands exactly on the first real entry that qualifies.
type LookupKey struct {
	// rep holds varint32(len(ikey)) ++ ikey, mirroring the memtable's own
	// entry framing so the two can be compared/seeked with the same codec.
	rep []byte
	// ikeyStart is the offset of the internal key within rep (past the
	// varint length prefix).
	ikeyStart int
}

// NewLookupKey builds a lookup key for userKey at sequence seq.
func NewLookupKey(userKey types.Key, seq types.SequenceNumber) *LookupKey {
	ikeyLen := len(userKey) + trailerSize
	var lenBuf [binary.MaxVarintLen32]byte
	n := binary.PutUvarint(lenBuf[:], uint64(ikeyLen))

	rep := make([]byte, 0, n+ikeyLen)
	rep = append(rep, lenBuf[:n]...)
	ikeyStart := len(rep)
	rep = AppendInternalKey(rep, userKey, seq, types.ValueType(0xff))

	return &LookupKey{rep: rep, ikeyStart: ikeyStart}
}

// MemtableKey returns the full varstring-framed key as stored in the
// skiplist: varint32(len) ++ internal_key.
func (lk *LookupKey) MemtableKey() []byte {
	return lk.rep
}

// InternalKey returns just the internal-key bytes, without the length
// prefix.
func (lk *LookupKey) InternalKey() []byte {
	return lk.rep[lk.ikeyStart:]
}

// UserKey returns the raw user key the lookup targets.
func (lk *LookupKey) UserKey() types.Key {
	return UserKey(lk.InternalKey())
}

// AppendVarstring appends a varint32-length-prefixed copy of s to dst.
func AppendVarstring(dst []byte, s []byte) []byte {
	var lenBuf [binary.MaxVarintLen32]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(s)))
	dst = append(dst, lenBuf[:n]...)
	return append(dst, s...)
}

// GetVarstring reads a varint32-length-prefixed byte string from the front
// of src, returning the string and the unconsumed remainder. ok is false if
// src is truncated.
func GetVarstring(src []byte) (s []byte, rest []byte, ok bool) {
	length, n := binary.Uvarint(src)
	if n <= 0 {
		return nil, src, false
	}
	src = src[n:]
	if uint64(len(src)) < length {
		return nil, src, false
	}
	return src[:length], src[length:], true
}
