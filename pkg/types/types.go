// Package types holds the byte-level vocabulary shared by the write path:
// memtable, write batch, and cache all speak in terms of these aliases
// rather than raw []byte/uint64, so call sites read as what they mean.
package types

// Key is an immutable byte slice type alias used for clarity.
type Key = []byte

// Value is an immutable byte slice type alias used for clarity.
type Value = []byte

// SequenceNumber is a monotonically increasing write-order counter. Only the
// low 56 bits are significant; it is packed into the internal-key trailer
// alongside a ValueType tag.
type SequenceNumber uint64

// ValueType tags a record as a live value or a tombstone. It occupies the
// low 8 bits of an internal-key trailer.
type ValueType uint8

const (
	// TypeDeletion marks a tombstone: the key is considered absent from this
	// sequence number onward, shadowing any earlier PUT for the same key.
	TypeDeletion ValueType = 0
	// TypeValue marks a live value.
	TypeValue ValueType = 1
)

// MaxSequenceNumber is the largest sequence representable in the 56-bit
// trailer field; lookup keys are built with this value standing in for
// "newest survives" truncated to the caller's desired read sequence.
const MaxSequenceNumber SequenceNumber = (1 << 56) - 1
