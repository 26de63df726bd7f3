package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DefaultTTL is the lifetime an entry is considered fresh for before lazy
// expiry-on-read evicts it (spec.md section 4.D).
const DefaultTTL = 30 * time.Second

// DefaultCapacity is the maximum number of logical names the cache holds
// before the least-recently-used entry is evicted to make room.
const DefaultCapacity = 100

// shardCount is the number of independently-locked buckets the entry map
// is split across. A fixed power of two keeps shardFor a cheap mask
// instead of a modulo, and is plenty of fan-out for the per-process
// module counts spec.md section 4.D targets.
const shardCount = 32

// shard is one independently-locked bucket of the entry map. Per-key
// write exclusion (spec.md section 4.D: "writers are serialized per
// key") falls out of hashing a name to exactly one shard and never
// taking more than one shard's lock at a time from Get/Put/Invalidate.
type shard struct {
	mu    sync.Mutex
	items map[string]Entry
}

// Cache is a concurrency-safe, TTL+LRU store of Entry values keyed by
// logical module name. The zero value is not usable; construct with New.
//
// Two distinct shared resources are protected independently, per spec.md
// section 4.D/5: the entry map is sharded by key, so Get/Put/Invalidate on
// different names never block each other and writes to the same name are
// serialized by that name's shard lock alone; LRU recency is a separate
// container/list guarded by its own mutex, touched only for an O(1)
// MoveToFront/PushFront/Remove — a short critical section independent of
// AST size. A single shared lock protecting both together (what this
// package used before) is exactly the architecture the spec rules out.
type Cache struct {
	ttl      time.Duration
	capacity int
	shards   [shardCount]*shard

	lruMu    sync.Mutex
	lru      *list.List // front = most recently used; elements hold a name (string)
	lruIndex map[string]*list.Element
}

// New constructs a cache with the given TTL and capacity. A capacity <= 0
// falls back to DefaultCapacity; a ttl <= 0 falls back to DefaultTTL.
func New(ttl time.Duration, capacity int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache{
		ttl:      ttl,
		capacity: capacity,
		lru:      list.New(),
		lruIndex: make(map[string]*list.Element),
	}
	for i := range c.shards {
		c.shards[i] = &shard{items: make(map[string]Entry)}
	}
	return c
}

// shardFor returns the shard responsible for name. xxhash is the same
// non-cryptographic hash the service layer already uses for source
// fingerprints; only even distribution across shards is needed here,
// never collision resistance.
func (c *Cache) shardFor(name string) *shard {
	return c.shards[xxhash.Sum64String(name)%shardCount]
}

// Get returns the entry cached for name, along with whether it was present
// and not expired. A hit refreshes the entry's LRU recency but never its
// CachedAt timestamp — TTL is measured from the most recent Put of name,
// not from last access, per spec.md section 4.D (this is a TTL cache, not an idle
// timeout).
func (c *Cache) Get(name string) (Entry, bool) {
	sh := c.shardFor(name)

	sh.mu.Lock()
	entry, ok := sh.items[name]
	if !ok {
		sh.mu.Unlock()
		return Entry{}, false
	}
	expired := time.Since(entry.CachedAt) > c.ttl
	if expired {
		delete(sh.items, name)
	}
	sh.mu.Unlock()

	if expired {
		c.removeLRU(name)
		return Entry{}, false
	}

	c.touchLRU(name)
	return entry, true
}

// Put stores entry under name, stamping CachedAt to now, evicting the
// least-recently-used entry first if the cache is at capacity and name is
// not already present. Putting an existing name refreshes its value and
// recency without counting against capacity.
func (c *Cache) Put(name string, entry Entry) {
	entry.CachedAt = time.Now()
	sh := c.shardFor(name)

	sh.mu.Lock()
	_, existed := sh.items[name]
	sh.items[name] = entry
	sh.mu.Unlock()

	if existed {
		c.touchLRU(name)
		return
	}
	c.admitLRU(name)
}

// Invalidate drops the cached entry for name, if any, dropping its strong
// AST reference immediately so the garbage collector can reclaim it even
// if other cached entries still reference related, unrelated subtrees.
func (c *Cache) Invalidate(name string) {
	sh := c.shardFor(name)
	sh.mu.Lock()
	_, ok := sh.items[name]
	delete(sh.items, name)
	sh.mu.Unlock()

	if ok {
		c.removeLRU(name)
	}
}

// Clear empties the cache entirely.
func (c *Cache) Clear() {
	for _, sh := range c.shards {
		sh.mu.Lock()
		sh.items = make(map[string]Entry)
		sh.mu.Unlock()
	}

	c.lruMu.Lock()
	c.lru.Init()
	c.lruIndex = make(map[string]*list.Element)
	c.lruMu.Unlock()
}

// Size returns the number of entries currently held, including any that
// are stale but not yet lazily evicted by a Get. Approximate under
// concurrent mutation: the LRU index is the authority on count, and it is
// always updated under its own short critical section, but a Put/Get
// racing this call can still observe a size one lower or higher than the
// one ultimately settled on.
func (c *Cache) Size() int {
	c.lruMu.Lock()
	defer c.lruMu.Unlock()
	return len(c.lruIndex)
}

// touchLRU moves name to the front of the recency list if it is present.
func (c *Cache) touchLRU(name string) {
	c.lruMu.Lock()
	defer c.lruMu.Unlock()
	if el, ok := c.lruIndex[name]; ok {
		c.lru.MoveToFront(el)
	}
}

// removeLRU drops name from the recency list if it is present.
func (c *Cache) removeLRU(name string) {
	c.lruMu.Lock()
	defer c.lruMu.Unlock()
	if el, ok := c.lruIndex[name]; ok {
		c.lru.Remove(el)
		delete(c.lruIndex, name)
	}
}

// admitLRU reserves a recency-list slot for a brand new name, evicting the
// least-recently-used name first if the cache is already at capacity. The
// length check, the eviction, and the insert all happen under one lruMu
// acquisition, so the list's size invariant (never more than capacity
// entries) has no window in which a concurrent Put on a different new
// name could observe stale capacity information and both over-admit.
func (c *Cache) admitLRU(name string) {
	c.lruMu.Lock()
	defer c.lruMu.Unlock()

	// A concurrent Put of the same new name may already have admitted it.
	if el, ok := c.lruIndex[name]; ok {
		c.lru.MoveToFront(el)
		return
	}

	if len(c.lruIndex) >= c.capacity {
		if back := c.lru.Back(); back != nil {
			victim := back.Value.(string)
			c.lru.Remove(back)
			delete(c.lruIndex, victim)

			vsh := c.shardFor(victim)
			vsh.mu.Lock()
			delete(vsh.items, victim)
			vsh.mu.Unlock()
		}
	}

	el := c.lru.PushFront(name)
	c.lruIndex[name] = el
}
