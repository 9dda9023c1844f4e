package cache

import "time"

// Clock lets tests drive expiry deterministically.
type Clock func() time.Time

// Observer receives cache outcomes, typically for metrics.
type Observer interface {
	CacheHit(name string)
	CacheMiss(name string)
	Recompute(name string, took time.Duration, err error)
}

// State is the lifecycle of one key: EMPTY -> FRESH -> STALE -> FRESH.
type State int

const (
	StateEmpty State = iota
	StateFresh
	StateStale
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	default:
		return "empty"
	}
}

// Entry is a stored value with the moment it was computed.
type Entry[T any] struct {
	Key        string
	Value      T
	ComputedAt time.Time
	TTL        time.Duration
}

// ExpiresAt is the first instant at which the entry is stale.
func (e *Entry[T]) ExpiresAt() time.Time { return e.ComputedAt.Add(e.TTL) }

type options struct {
	now        Clock
	observer   Observer
	maxEntries int
}

type Option func(*options)

func WithClock(c Clock) Option {
	return func(o *options) {
		o.now = c
	}
}

// WithMaxEntries bounds the number of stored keys. Inserting past the
// bound drops stale entries first, then the oldest one.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		o.maxEntries = n
	}
}

func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

type nopObserver struct{}

func (nopObserver) CacheHit(string)                        {}
func (nopObserver) CacheMiss(string)                       {}
func (nopObserver) Recompute(string, time.Duration, error) {}
