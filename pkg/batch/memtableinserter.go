package batch

import (
	"lsmdb/pkg/types"
)

// memtableTarget is the subset of *memtable.Memtable that MemtableInserter
// needs. Kept as a local interface (rather than importing pkg/memtable
// directly) so the batch package stays oblivious to what it replays into —
// exactly the decoupling leveldb's write_batch.cc calls out: "this keeps
// the batch oblivious to the memtable and vice versa."
type memtableTarget interface {
	Add(seq types.SequenceNumber, typ types.ValueType, userKey, value types.Key)
}

// MemtableInserter is a Handler that replays a batch's records into a
// memtable, assigning each record the next sequence number starting from
// the batch's header sequence. Build one per replay: sequence is not
// reset between calls.
type MemtableInserter struct {
	sequence types.SequenceNumber
	target   memtableTarget
}

// NewMemtableInserter returns a handler that assigns sequence numbers
// starting at startSeq (typically b.Sequence() for the batch being
// replayed) and calls target.Add for each record.
func NewMemtableInserter(startSeq types.SequenceNumber, target memtableTarget) *MemtableInserter {
	return &MemtableInserter{sequence: startSeq, target: target}
}

func (m *MemtableInserter) Put(key, value types.Key) {
	m.target.Add(m.sequence, types.TypeValue, key, value)
	m.sequence++
}

func (m *MemtableInserter) Delete(key types.Key) {
	m.target.Add(m.sequence, types.TypeDeletion, key, nil)
	m.sequence++
}

// InsertInto replays b into target, assigning sequence numbers starting at
// b.Sequence(). It is the Go analogue of leveldb's
// WriteBatchInternal::InsertInto.
func InsertInto(b *WriteBatch, target memtableTarget) error {
	inserter := NewMemtableInserter(b.Sequence(), target)
	return b.Iterate(inserter)
}
