package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deletedSet(deleted *[]string) Deleter {
	return func(key []byte, value any) {
		*deleted = append(*deleted, string(key))
	}
}

func TestInsertLookupRoundTrip(t *testing.T) {
	c := New(1000)
	defer c.Close()

	h := c.Insert([]byte("a"), 1, 10, nil)
	defer c.Release(h)

	got := c.Lookup([]byte("a"))
	require.NotNil(t, got, "Lookup(a) should hit")
	defer c.Release(got)
	assert.Equal(t, 1, got.Value())
}

func TestLookupMiss(t *testing.T) {
	c := New(1000)
	defer c.Close()
	assert.Nil(t, c.Lookup([]byte("missing")))
}

// A single shard's capacity-bound eviction: once total charge exceeds
// capacity, the oldest unreferenced entry is evicted first.
func TestShardEvictsOldestWhenOverCapacity(t *testing.T) {
	var deleted []string
	s := NewShard(10)

	h1 := s.Insert([]byte("a"), 1, "a", 5, deletedSet(&deleted))
	s.Release(h1)
	h2 := s.Insert([]byte("b"), 2, "b", 5, deletedSet(&deleted))
	s.Release(h2)

	// Usage is now 10, at capacity; inserting "c" (charge 5) must evict
	// "a" (the oldest lru entry) to stay within capacity.
	h3 := s.Insert([]byte("c"), 3, "c", 5, deletedSet(&deleted))
	defer s.Release(h3)

	assert.Nil(t, s.Lookup([]byte("a"), 1), "a should have been evicted")
	require.Equal(t, []string{"a"}, deleted)

	got := s.Lookup([]byte("b"), 2)
	require.NotNil(t, got, "b should still be cached")
	s.Release(got)
}

// An entry with an outstanding reference is never evicted, even when the
// shard is over capacity; eviction only pulls from the lru (unreferenced)
// list.
func TestShardRetainsReferencedEntryUnderPressure(t *testing.T) {
	var deleted []string
	s := NewShard(10)

	h1 := s.Insert([]byte("a"), 1, "a", 5, deletedSet(&deleted))
	// a is held open: never released before the next inserts.

	h2 := s.Insert([]byte("b"), 2, "b", 5, deletedSet(&deleted))
	s.Release(h2)

	// Pushes usage to 15 against a capacity of 10; only unreferenced "b"
	// is evictable, so "a" must survive despite being older.
	h3 := s.Insert([]byte("c"), 3, "c", 5, deletedSet(&deleted))
	defer s.Release(h3)

	require.Equal(t, []string{"b"}, deleted)
	s.Release(h1)

	got := s.Lookup([]byte("a"), 1)
	require.NotNil(t, got, "a should still be cached after release")
	s.Release(got)
}

func TestEraseRunsDeleterOnceLastRefDrops(t *testing.T) {
	var deleted []string
	s := NewShard(1000)

	h := s.Insert([]byte("a"), 1, "a", 1, deletedSet(&deleted))
	s.Erase([]byte("a"), 1)
	assert.Empty(t, deleted, "deleter should not run while a handle is still outstanding")

	s.Release(h)
	assert.Len(t, deleted, 1, "deleter should run once the last handle is released")
	assert.Nil(t, s.Lookup([]byte("a"), 1), "erased entry should not be found")
}

func TestReInsertEvictsPriorEntryWithSameKey(t *testing.T) {
	var deleted []string
	s := NewShard(1000)

	h1 := s.Insert([]byte("a"), 1, "v1", 1, deletedSet(&deleted))
	s.Release(h1)
	h2 := s.Insert([]byte("a"), 1, "v2", 1, deletedSet(&deleted))
	defer s.Release(h2)

	require.Len(t, deleted, 1, "the old v1 entry should be torn down")
	got := s.Lookup([]byte("a"), 1)
	defer s.Release(got)
	assert.Equal(t, "v2", got.Value())
}

func TestPruneEvictsOnlyUnreferencedEntries(t *testing.T) {
	s := NewShard(1000)
	h1 := s.Insert([]byte("a"), 1, "a", 1, nil)
	h2 := s.Insert([]byte("b"), 2, "b", 1, nil)
	s.Release(h2)

	s.Prune()

	assert.Nil(t, s.Lookup([]byte("b"), 2), "b should have been pruned")
	got := s.Lookup([]byte("a"), 1)
	require.NotNil(t, got, "a is still referenced, Prune must not touch it")
	s.Release(got)
	s.Release(h1)
}

func TestShardedFansOutAcrossShards(t *testing.T) {
	c := New(16000)
	defer c.Close()

	for i := 0; i < 256; i++ {
		key := []byte{byte(i)}
		h := c.Insert(key, i, 1, nil)
		c.Release(h)
	}
	assert.Equal(t, 256, c.TotalCharge())

	used := 0
	for _, s := range c.shards {
		if s.TotalCharge() > 0 {
			used++
		}
	}
	assert.Greater(t, used, 1, "entries should be spread over more than one shard")
}

func TestNewIDIsMonotonicAndUnique(t *testing.T) {
	c := New(10)
	defer c.Close()
	seen := map[uint64]bool{}
	var last uint64
	for i := 0; i < 100; i++ {
		id := c.NewID()
		require.False(t, seen[id], "NewID() returned duplicate %d", id)
		require.Greater(t, id, last, "NewID() went backwards")
		seen[id] = true
		last = id
	}
}

func TestReleaseBelowZeroPanics(t *testing.T) {
	s := NewShard(10)
	h := s.Insert([]byte("a"), 1, "a", 1, nil)
	s.Release(h)
	assert.Panics(t, func() { s.Release(h) })
}

func TestCloseWithOutstandingHandlePanics(t *testing.T) {
	s := NewShard(10)
	s.Insert([]byte("a"), 1, "a", 1, nil)
	assert.Panics(t, func() { s.Close() })
}
