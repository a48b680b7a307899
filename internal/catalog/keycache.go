package catalog

import "hash/fnv"

// keyCacheBuckets is the fixed bucket count for the property-key cache of
// spec.md §3 ("fixed-bucket open hash table, each bucket holding at most one
// entry"). Sized generously for typical label/property-key cardinalities;
// collisions simply evict the older entry rather than chaining, per spec.
const keyCacheBuckets = 4096

// cacheEntry is one cached property-key interning, per spec.md §3: "{key_id,
// key_string, last_used, usage_count}".
type cacheEntry struct {
	occupied   bool
	keyID      int64
	key        string
	lastUsed   int64
	usageCount int64
}

// keyCache is the in-process property-key interning cache. It is not
// thread-safe (spec.md §5: "accessed only from the owning handle's thread.
// Its counters are not thread-safe and do not need to be"); callers
// serialize access via catalog.Manager's own mutex instead, since a single
// Manager may in practice be driven from more than one goroutine even though
// the spec's threading model assumes one.
type keyCache struct {
	buckets []cacheEntry
	clock   int64
	hits     int64
	misses   int64
	insertions int64
}

func newKeyCache() *keyCache {
	return &keyCache{buckets: make([]cacheEntry, keyCacheBuckets)}
}

func (c *keyCache) bucket(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % keyCacheBuckets)
}

// lookup returns (keyID, true) on a cache hit, or (0, false) on a miss. Both
// outcomes update the relevant counter per spec.md §4.3.
func (c *keyCache) lookup(key string) (int64, bool) {
	b := c.bucket(key)
	e := &c.buckets[b]
	if e.occupied && e.key == key {
		c.clock++
		e.lastUsed = c.clock
		e.usageCount++
		c.hits++
		return e.keyID, true
	}
	c.misses++
	return 0, false
}

// insert records a freshly-interned (key, keyID) pair, replacing whatever
// previously occupied its bucket.
func (c *keyCache) insert(key string, keyID int64) {
	b := c.bucket(key)
	c.clock++
	c.buckets[b] = cacheEntry{occupied: true, keyID: keyID, key: key, lastUsed: c.clock, usageCount: 1}
	c.insertions++
}

// Stats mirrors the teacher's IndexStats-style reporting structs
// (pkg/storage/schema.go IndexStats) for the property-key cache's counters.
type Stats struct {
	Hits       int64
	Misses     int64
	Insertions int64
}

func (c *keyCache) stats() Stats {
	return Stats{Hits: c.hits, Misses: c.misses, Insertions: c.insertions}
}
