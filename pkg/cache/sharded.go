package cache

import "sync"

const (
	numShardBits = 4
	numShards    = 1 << numShardBits
)

// hashSeed is an arbitrary fixed seed; any fixed value works, it only
// needs to stay constant for the life of the process since the hash is
// never persisted.
const hashSeed uint32 = 0

// Sharded is a cache fanned out across numShards independent Shards,
// selected by the top numShardBits bits of the key's hash, so that
// concurrent callers touching different keys rarely contend on the same
// shard mutex. Grounded on leveldb's ShardedLRUCache (util/cache.cc).
type Sharded struct {
	shards [numShards]*Shard

	idMu   sync.Mutex
	lastID uint64
}

// New returns a sharded cache with the given total capacity, split evenly
// (rounded up) across numShards shards.
func New(capacity int) *Sharded {
	perShard := (capacity + (numShards - 1)) / numShards
	c := &Sharded{}
	for i := range c.shards {
		c.shards[i] = NewShard(perShard)
	}
	return c
}

func (c *Sharded) shardFor(hash uint32) *Shard {
	return c.shards[hash>>(32-numShardBits)]
}

// HashKey computes the hash used to place key, exposed so callers can
// precompute it once and reuse it across Insert/Lookup/Erase for the
// same key.
func HashKey(key []byte) uint32 {
	return Hash(key, hashSeed)
}

func (c *Sharded) Insert(key []byte, value any, charge int, deleter Deleter) *Handle {
	hash := HashKey(key)
	return c.shardFor(hash).Insert(key, hash, value, charge, deleter)
}

func (c *Sharded) Lookup(key []byte) *Handle {
	hash := HashKey(key)
	return c.shardFor(hash).Lookup(key, hash)
}

func (c *Sharded) Release(handle *Handle) {
	c.shardFor(handle.hash).Release(handle)
}

func (c *Sharded) Erase(key []byte) {
	hash := HashKey(key)
	c.shardFor(hash).Erase(key, hash)
}

// Prune evicts every entry with no outstanding reference, across every
// shard.
func (c *Sharded) Prune() {
	for _, s := range c.shards {
		s.Prune()
	}
}

// TotalCharge sums the charge of every entry currently cached, across
// every shard.
func (c *Sharded) TotalCharge() int {
	var total int
	for _, s := range c.shards {
		total += s.TotalCharge()
	}
	return total
}

// Close tears down every shard. It panics if any shard still has
// outstanding in-use handles.
func (c *Sharded) Close() {
	for _, s := range c.shards {
		s.Close()
	}
}

// NewID returns a new numeric ID, unique and increasing within this cache
// (each Sharded keeps its own counter), for callers that
// want to partition this cache's key space between independent owners
// (e.g. each giving its entries a distinct key prefix).
func (c *Sharded) NewID() uint64 {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	c.lastID++
	return c.lastID
}
