package ratelimit

import (
	"container/list"
	"sync"
	"time"
)

// maxTrackedIdentities bounds the per-identity bucket map. When full, the
// least recently used identity is discarded; its next request starts a
// fresh (full) bucket, which errs on the side of admission.
const maxTrackedIdentities = 16384

// Decision is the outcome of an admission check.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// RetryAfter is the wait the caller should observe before retrying
	// a denied request. Zero when allowed.
	RetryAfter time.Duration
}

// Store is the admission backend: one token-bucket universe keyed by
// identity. The in-process implementation below is the default; a
// coordinated limiter plugs in here without touching callers.
type Store interface {
	// Take consumes cost tokens for identity, reporting denial wait.
	Take(identity string, cost int64) (bool, time.Duration)
}

// Config sizes the limiter.
type Config struct {
	// RatePerSec is the sustained refill rate per identity.
	RatePerSec float64

	// Burst is the bucket capacity per identity.
	Burst int64
}

// Limiter is the admission gate used by the request handler.
type Limiter struct {
	store Store
}

// NewLimiter builds a limiter over the in-process store.
func NewLimiter(cfg Config) *Limiter {
	return &Limiter{store: newMemoryStore(cfg)}
}

// NewLimiterWithStore builds a limiter over a caller-supplied store.
func NewLimiterWithStore(store Store) *Limiter {
	return &Limiter{store: store}
}

// Check admits or denies a request of the given cost for an identity.
func (l *Limiter) Check(identity string, cost int64) Decision {
	allowed, wait := l.store.Take(identity, cost)
	return Decision{Allowed: allowed, RetryAfter: wait}
}

// memoryStore is the single-process Store: per-identity buckets with LRU
// discard of idle identities.
type memoryStore struct {
	cfg     Config
	mu      sync.Mutex
	buckets map[string]*bucketEntry
	order   *list.List
}

type bucketEntry struct {
	bucket  *TokenBucket
	element *list.Element
}

func newMemoryStore(cfg Config) *memoryStore {
	return &memoryStore{
		cfg:     cfg,
		buckets: make(map[string]*bucketEntry),
		order:   list.New(),
	}
}

// Take implements Store.
func (s *memoryStore) Take(identity string, cost int64) (bool, time.Duration) {
	s.mu.Lock()
	entry, ok := s.buckets[identity]
	if !ok {
		if len(s.buckets) >= maxTrackedIdentities {
			oldest := s.order.Back()
			if oldest != nil {
				delete(s.buckets, oldest.Value.(string))
				s.order.Remove(oldest)
			}
		}
		entry = &bucketEntry{
			bucket:  NewTokenBucket(s.cfg.Burst, s.cfg.RatePerSec),
			element: s.order.PushFront(identity),
		}
		s.buckets[identity] = entry
	} else {
		s.order.MoveToFront(entry.element)
	}
	bucket := entry.bucket
	s.mu.Unlock()

	// The bucket has its own lock; the map lock is never held across it.
	return bucket.Take(cost)
}
