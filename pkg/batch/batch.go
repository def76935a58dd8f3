// Package batch implements the atomic write batch: a self-describing
// byte-encoded sequence of Put/Delete records that is the canonical unit
// of durability and replay. Grounded on leveldb's db/write_batch.cc and
// include/leveldb/write_batch.h, implementing the WriteBatch interface
// concretely rather than leaving it abstract.
package batch

import (
	"encoding/binary"
	"fmt"

	"lsmdb/pkg/dbformat"
	"lsmdb/pkg/dberrors"
	"lsmdb/pkg/types"
)

// headerSize is the fixed 12-byte header: an 8-byte little-endian sequence
// number followed by a 4-byte little-endian record count.
const headerSize = 12

const (
	tagDelete byte = 0
	tagPut    byte = 1
)

// Handler receives the records a Batch replays via Iterate. The memtable
// inserter (pkg/batch/memtableinserter.go) is the canonical implementation,
// but the batch itself is oblivious to what a Handler does with a record —
// any consumer with this shape can replay a batch.
type Handler interface {
	Put(key, value types.Key)
	Delete(key types.Key)
}

// WriteBatch groups multiple mutations to be applied atomically. Const
// (read-only) methods are safe for concurrent use; Put, Delete, Clear,
// Append, SetSequence, SetCount, and SetContents require exclusive access.
type WriteBatch struct {
	rep []byte
}

// New returns an empty batch: a bare 12-byte header with sequence 0 and
// count 0.
func New() *WriteBatch {
	b := &WriteBatch{}
	b.Clear()
	return b
}

// Clear resets the batch to a bare 12-byte header.
func (b *WriteBatch) Clear() {
	b.rep = make([]byte, headerSize)
}

// ApproximateSize returns the batch's encoded length in bytes.
func (b *WriteBatch) ApproximateSize() int {
	return len(b.rep)
}

// Sequence returns the batch's header sequence number.
func (b *WriteBatch) Sequence() types.SequenceNumber {
	return types.SequenceNumber(binary.LittleEndian.Uint64(b.rep[0:8]))
}

// SetSequence overwrites the batch's header sequence number.
func (b *WriteBatch) SetSequence(seq types.SequenceNumber) {
	binary.LittleEndian.PutUint64(b.rep[0:8], uint64(seq))
}

// Count returns the batch's header record count.
func (b *WriteBatch) Count() int {
	return int(binary.LittleEndian.Uint32(b.rep[8:12]))
}

// SetCount overwrites the batch's header record count.
func (b *WriteBatch) SetCount(n int) {
	binary.LittleEndian.PutUint32(b.rep[8:12], uint32(n))
}

// Put appends a tagged Put record and increments the header count.
func (b *WriteBatch) Put(key, value types.Key) {
	b.SetCount(b.Count() + 1)
	b.rep = append(b.rep, tagPut)
	b.rep = dbformat.AppendVarstring(b.rep, key)
	b.rep = dbformat.AppendVarstring(b.rep, value)
}

// Delete appends a tagged Delete record and increments the header count.
func (b *WriteBatch) Delete(key types.Key) {
	b.SetCount(b.Count() + 1)
	b.rep = append(b.rep, tagDelete)
	b.rep = dbformat.AppendVarstring(b.rep, key)
}

// Append concatenates other's records onto b (header stripped) and adds
// the two batches' counts.
func (b *WriteBatch) Append(other *WriteBatch) {
	b.SetCount(b.Count() + other.Count())
	b.rep = append(b.rep, other.rep[headerSize:]...)
}

// SetContents replaces the batch's entire buffer. contents must be at
// least headerSize bytes; violating this precondition is a programming
// error and panics, matching leveldb's assert-based contract.
func (b *WriteBatch) SetContents(contents []byte) {
	if len(contents) < headerSize {
		panic("batch: SetContents requires at least a 12-byte header")
	}
	b.rep = append([]byte(nil), contents...)
}

// Contents returns the batch's raw encoded bytes.
func (b *WriteBatch) Contents() []byte {
	return b.rep
}

// Iterate walks the batch's records in order, dispatching each to
// handler.Put or handler.Delete. It returns a *dberrors.Corrupt error
// (and aborts) if the buffer is too small, a record is truncated, an
// unknown tag is encountered, or the number of records parsed does not
// match the header's count.
func (b *WriteBatch) Iterate(handler Handler) error {
	if len(b.rep) < headerSize {
		return &dberrors.Corrupt{Reason: "too small"}
	}

	input := b.rep[headerSize:]
	found := 0
	for len(input) > 0 {
		found++
		tag := input[0]
		input = input[1:]

		switch tag {
		case tagPut:
			key, rest, ok := dbformat.GetVarstring(input)
			if !ok {
				return &dberrors.Corrupt{Reason: "bad Put"}
			}
			input = rest
			value, rest, ok := dbformat.GetVarstring(input)
			if !ok {
				return &dberrors.Corrupt{Reason: "bad Put"}
			}
			input = rest
			handler.Put(key, value)
		case tagDelete:
			key, rest, ok := dbformat.GetVarstring(input)
			if !ok {
				return &dberrors.Corrupt{Reason: "bad Delete"}
			}
			input = rest
			handler.Delete(key)
		default:
			return &dberrors.Corrupt{Reason: fmt.Sprintf("unknown tag %d", tag)}
		}
	}

	if found != b.Count() {
		return &dberrors.Corrupt{Reason: "wrong count"}
	}
	return nil
}
