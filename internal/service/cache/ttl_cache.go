package cache

import (
	"context"
	"sync"
	"time"
)

// TTL is a read-through cache. A read of a fresh key returns the stored
// value; a read of an empty or stale key recomputes synchronously. At most
// one recompute per key runs at a time, and callers queued behind it reuse
// its result.
type TTL[T any] struct {
	name       string
	ttl        time.Duration
	now        Clock
	observer   Observer
	maxEntries int

	mu      sync.Mutex
	entries map[string]*Entry[T]
	locks   map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func New[T any](name string, ttl time.Duration, opts ...Option) *TTL[T] {
	o := options{now: time.Now, observer: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTL[T]{
		name:       name,
		ttl:        ttl,
		now:        o.now,
		observer:   o.observer,
		maxEntries: o.maxEntries,
		entries:    make(map[string]*Entry[T]),
		locks:      make(map[string]*keyLock),
	}
}

// Get returns the cached value for key, computing it when needed. A failed
// compute leaves the previous entry untouched and returns the error.
func (c *TTL[T]) Get(ctx context.Context, key string, compute func(context.Context) (T, error)) (T, error) {
	if v, ok := c.fresh(key); ok {
		c.observer.CacheHit(c.name)
		return v, nil
	}

	var zero T
	l, err := c.acquire(ctx, key)
	if err != nil {
		return zero, err
	}
	defer c.release(key, l)

	// a concurrent caller may have refreshed the key while we waited
	if v, ok := c.fresh(key); ok {
		c.observer.CacheHit(c.name)
		return v, nil
	}
	c.observer.CacheMiss(c.name)

	start := c.now()
	v, err := compute(ctx)
	c.observer.Recompute(c.name, c.now().Sub(start), err)
	if err != nil {
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}

// Set stores v with a fresh timestamp.
func (c *TTL[T]) Set(key string, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if _, ok := c.entries[key]; !ok && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evict(now)
	}
	c.entries[key] = &Entry[T]{Key: key, Value: v, ComputedAt: now, TTL: c.ttl}
}

// evict makes room for one entry. Caller holds c.mu.
func (c *TTL[T]) evict(now time.Time) {
	var oldest *Entry[T]
	for k, e := range c.entries {
		if !now.Before(e.ExpiresAt()) {
			delete(c.entries, k)
			continue
		}
		if oldest == nil || e.ComputedAt.Before(oldest.ComputedAt) {
			oldest = e
		}
	}
	if len(c.entries) >= c.maxEntries && oldest != nil {
		delete(c.entries, oldest.Key)
	}
}

// Peek returns the stored entry without recomputing, along with its state.
func (c *TTL[T]) Peek(key string) (*Entry[T], State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, StateEmpty
	}
	cp := *e
	if c.now().Before(e.ExpiresAt()) {
		return &cp, StateFresh
	}
	return &cp, StateStale
}

func (c *TTL[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *TTL[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *TTL[T]) fresh(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.ExpiresAt()) {
		return zero, false
	}
	return e.Value, true
}

func (c *TTL[T]) acquire(ctx context.Context, key string) (*keyLock, error) {
	c.mu.Lock()
	l, ok := c.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		c.locks[key] = l
	}
	l.refs++
	c.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return l, nil
	case <-ctx.Done():
		c.drop(key, l)
		return nil, ctx.Err()
	}
}

func (c *TTL[T]) release(key string, l *keyLock) {
	<-l.ch
	c.drop(key, l)
}

func (c *TTL[T]) drop(key string, l *keyLock) {
	c.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(c.locks, key)
	}
	c.mu.Unlock()
}
