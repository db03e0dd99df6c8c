package cache

import (
	"container/list"
	"sync"
	"time"
)

// Config sizes the response cache.
type Config struct {
	// MaxBytes caps total stored response bytes.
	MaxBytes int64

	// TTL is the entry lifetime. Expired entries are treated as absent.
	TTL time.Duration
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Entries int
	Bytes   int64
}

// entry is one stored response.
type entry struct {
	fingerprint Fingerprint
	body        []byte
	createdAt   time.Time
	size        int64
	hitCount    uint64
	element     *list.Element
}

// Cache is a byte-bounded LRU of serialized responses with TTL expiry.
// The mutex guards only map and list operations; it is never held across
// I/O.
type Cache struct {
	cfg Config

	mu      sync.Mutex
	entries map[Fingerprint]*entry
	order   *list.List // front = most recently used
	bytes   int64
	hits    uint64
	misses  uint64

	now func() time.Time
}

// New builds an empty cache.
func New(cfg Config) *Cache {
	return &Cache{
		cfg:     cfg,
		entries: make(map[Fingerprint]*entry),
		order:   list.New(),
		now:     time.Now,
	}
}

// Get returns the stored response body for fp, or false on miss. Expired
// entries count as misses and are removed on the spot.
func (c *Cache) Get(fp Fingerprint) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[fp]
	if !ok {
		c.misses++
		return nil, false
	}

	if c.expiredLocked(e) {
		c.removeLocked(e)
		c.misses++
		return nil, false
	}

	e.hitCount++
	c.hits++
	c.order.MoveToFront(e.element)
	return e.body, true
}

// Touch counts a share of fp's entry without copying its body, used when
// a coalesced waiter consumed the owner's result. No-op when the entry is
// absent (nondeterministic requests are coalesced but never stored).
func (c *Cache) Touch(fp Fingerprint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[fp]; ok && !c.expiredLocked(e) {
		e.hitCount++
		c.hits++
		c.order.MoveToFront(e.element)
	}
}

// HitCount reports how many times fp has been served from the cache.
func (c *Cache) HitCount(fp Fingerprint) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[fp]; ok {
		return e.hitCount
	}
	return 0
}

// Put stores a response body under fp, evicting least-recently-used
// entries until the byte budget holds. Bodies larger than the whole budget
// are not stored.
func (c *Cache) Put(fp Fingerprint, body []byte) {
	size := int64(len(body))
	if size == 0 || size > c.cfg.MaxBytes {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[fp]; ok {
		c.removeLocked(old)
	}

	for c.bytes+size > c.cfg.MaxBytes {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest.Value.(*entry))
	}

	e := &entry{
		fingerprint: fp,
		body:        body,
		createdAt:   c.now(),
		size:        size,
	}
	e.element = c.order.PushFront(e)
	c.entries[fp] = e
	c.bytes += size
}

// Sweep removes every expired entry. The janitor calls this on a schedule
// so long-idle entries do not pin memory until the next access.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		e := elem.Value.(*entry)
		if c.expiredLocked(e) {
			c.removeLocked(e)
			removed++
		}
		elem = prev
	}
	return removed
}

// Snapshot returns current cache statistics.
func (c *Cache) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:    c.hits,
		Misses:  c.misses,
		Entries: len(c.entries),
		Bytes:   c.bytes,
	}
}

func (c *Cache) expiredLocked(e *entry) bool {
	return c.cfg.TTL > 0 && c.now().Sub(e.createdAt) >= c.cfg.TTL
}

func (c *Cache) removeLocked(e *entry) {
	delete(c.entries, e.fingerprint)
	c.order.Remove(e.element)
	c.bytes -= e.size
}
