// Package arena implements a bump-pointer byte allocator for the memtable's
// internal nodes and keys: it never frees individual allocations, only the
// whole arena at once, trading per-entry GC pressure for one long-lived set
// of backing blocks. Grounded on leveldb's util/arena.h and the pack's own
// chunked allocators (AzkZzz04-kivi's Arena, weaviate's keyArena).
package arena

import (
	"sync/atomic"
)

// blockSize is the size of a normal block; requests over a quarter of this
// get their own dedicated block instead of eating into shared space.
const blockSize = 4096

// minAlign is the minimum alignment for AllocateAligned; on every
// platform Go runs on, 8 bytes covers the worst case (pointer width and
// float64 width both divide it).
const minAlign = 8

// Arena is a bump-pointer allocator. The zero value is ready to use. An
// Arena is owned by exactly one writer: AllocateAligned callers must not
// race each other, but bytes already handed out are immutable and may be
// read concurrently from any number of goroutines.
type Arena struct {
	// current block
	buf       []byte
	remaining int

	// blocks tracks every block this arena has allocated, purely so total
	// size can be reported; the blocks themselves are never individually
	// freed — they're reclaimed in bulk when the arena becomes garbage.
	blocks [][]byte

	memoryUsage atomic.Uint64
}

// New returns a ready-to-use Arena with no blocks allocated yet.
func New() *Arena {
	return &Arena{}
}

// Allocate returns a span of exactly n bytes with arena lifetime. n must be
// positive — zero-byte allocations are a programming error in this core's
// callers (everything it stores has a nonzero length-prefixed key and
// possibly-empty-but-never-absent value, which is represented by a 0-length
// slice from a 1-byte allocation's subslice, not by calling Allocate(0)).
func (a *Arena) Allocate(n int) []byte {
	if n <= 0 {
		panic("arena: allocation size must be positive")
	}
	if n <= a.remaining {
		result := a.buf[:n:n]
		a.buf = a.buf[n:]
		a.remaining -= n
		return result
	}
	return a.allocateFallback(n)
}

// AllocateAligned returns a span of exactly n bytes aligned to
// max(8, pointer size). Like Allocate, n must be positive.
func (a *Arena) AllocateAligned(n int) []byte {
	if n <= 0 {
		panic("arena: allocation size must be positive")
	}

	// Freshly allocated blocks (see allocateNewBlock) are always aligned
	// to minAlign since make([]byte, ...) aligns to the platform word size
	// or better, so only the current block's bump pointer needs padding.
	currentAddr := sliceAddr(a.buf)
	slop := 0
	if mod := currentAddr & uintptr(minAlign-1); mod != 0 {
		slop = minAlign - int(mod)
	}
	needed := n + slop
	if needed <= a.remaining {
		a.buf = a.buf[slop:]
		a.remaining -= slop
		result := a.buf[:n:n]
		a.buf = a.buf[n:]
		a.remaining -= n
		return result
	}
	return a.allocateFallback(n)
}

// allocateFallback implements the "large or fresh block" branch shared by
// Allocate and AllocateAligned: requests bigger than a quarter of blockSize
// get their own dedicated block (without disturbing whatever's left of the
// current block); everything else discards the current block's leftover
// and starts a fresh blockSize-byte block.
func (a *Arena) allocateFallback(n int) []byte {
	if n > blockSize/4 {
		return a.allocateNewBlock(n)
	}

	a.buf = a.allocateNewBlock(blockSize)
	a.remaining = blockSize - n
	result := a.buf[:n:n]
	a.buf = a.buf[n:]
	return result
}

func (a *Arena) allocateNewBlock(size int) []byte {
	block := make([]byte, size)
	a.blocks = append(a.blocks, block)
	a.memoryUsage.Add(uint64(size))
	return block
}

// MemoryUsage returns an estimate of the total bytes of blocks this arena
// holds. Safe to call concurrently with writers; it is published with
// relaxed ordering and may lag the most recent allocation.
func (a *Arena) MemoryUsage() uint64 {
	return a.memoryUsage.Load()
}
