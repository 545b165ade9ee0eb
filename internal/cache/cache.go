// Package cache is the two-tier stale-while-revalidate cache in front of the
// feed read paths. Entries carry a fresh horizon and a longer stale horizon;
// stale hits answer immediately and refresh in the background, and a failing
// refresh degrades to the stale payload instead of failing the read.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultFreshTTL is how long an entry answers without any refresh.
	DefaultFreshTTL = 2 * time.Minute
	// DefaultStaleTTL is how long past creation a stale entry may still be
	// served while a refresh runs.
	DefaultStaleTTL = 10 * time.Minute
)

// Loader produces a payload for a fingerprint, typically by hitting storage
// or re-running a pipeline slice.
type Loader[T any] func(ctx context.Context) (T, error)

// Result carries the payload plus the flags the read API surfaces.
type Result[T any] struct {
	Payload T
	// Cached is true when the payload came from the cache rather than a
	// blocking load.
	Cached bool
	// Degraded is true when the loader failed and the stale payload was
	// served instead.
	Degraded bool
}

type entry[T any] struct {
	payload    T
	freshUntil time.Time
	staleUntil time.Time
}

type Cache[T any] struct {
	mu         sync.Mutex
	entries    map[string]*entry[T]
	refreshing map[string]bool

	group    singleflight.Group
	freshTTL time.Duration
	staleTTL time.Duration
	now      func() time.Time
}

type Option[T any] func(*Cache[T])

func WithTTLs[T any](fresh, stale time.Duration) Option[T] {
	return func(c *Cache[T]) {
		c.freshTTL = fresh
		c.staleTTL = stale
	}
}

func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *Cache[T]) { c.now = now }
}

func New[T any](opts ...Option[T]) *Cache[T] {
	c := &Cache[T]{
		entries:    make(map[string]*entry[T]),
		refreshing: make(map[string]bool),
		freshTTL:   DefaultFreshTTL,
		staleTTL:   DefaultStaleTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrRefresh is the main read path.
//
// Fresh entries answer immediately. Stale entries answer immediately and kick
// off one background refresh; concurrent stale readers never start a second
// one. Expired or missing entries block on the loader, collapsed per
// fingerprint so a thundering herd runs it once. A loader failure over a
// surviving payload serves that payload with Degraded set; a failure with
// nothing cached propagates.
func (c *Cache[T]) GetOrRefresh(ctx context.Context, fingerprint string, loader Loader[T]) (Result[T], error) {
	now := c.now()

	c.mu.Lock()
	e, ok := c.entries[fingerprint]
	if ok && now.Before(e.freshUntil) {
		payload := e.payload
		c.mu.Unlock()
		return Result[T]{Payload: payload, Cached: true}, nil
	}
	if ok && now.Before(e.staleUntil) {
		payload := e.payload
		c.startRefreshLocked(fingerprint, loader)
		c.mu.Unlock()
		return Result[T]{Payload: payload, Cached: true}, nil
	}
	c.mu.Unlock()

	return c.loadBlocking(ctx, fingerprint, loader)
}

// startRefreshLocked launches the background refresh for a stale hit unless
// one is already running. Caller holds the lock.
func (c *Cache[T]) startRefreshLocked(fingerprint string, loader Loader[T]) {
	if c.refreshing[fingerprint] {
		return
	}
	c.refreshing[fingerprint] = true

	go func() {
		defer func() {
			c.mu.Lock()
			delete(c.refreshing, fingerprint)
			c.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		payload, err := loader(ctx)
		if err != nil {
			slog.Warn("Background cache refresh failed, keeping stale entry",
				"fingerprint", fingerprint, "error", err)
			return
		}
		c.Prime(fingerprint, payload)
	}()
}

func (c *Cache[T]) loadBlocking(ctx context.Context, fingerprint string, loader Loader[T]) (Result[T], error) {
	v, err, _ := c.group.Do(fingerprint, func() (any, error) {
		payload, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		c.Prime(fingerprint, payload)
		return payload, nil
	})
	if err == nil {
		return Result[T]{Payload: v.(T)}, nil
	}

	// Loader failed: fall back to whatever payload survives, flagged degraded.
	c.mu.Lock()
	e, ok := c.entries[fingerprint]
	c.mu.Unlock()
	if ok {
		slog.Warn("Cache load failed, serving degraded payload",
			"fingerprint", fingerprint, "error", err)
		return Result[T]{Payload: e.payload, Cached: true, Degraded: true}, nil
	}
	var zero T
	return Result[T]{Payload: zero}, err
}

// Prime installs a payload with full fresh and stale horizons. The ingestion
// cycle uses it to publish recomputed feeds without waiting for a read.
func (c *Cache[T]) Prime(fingerprint string, payload T) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fingerprint] = &entry[T]{
		payload:    payload,
		freshUntil: now.Add(c.freshTTL),
		staleUntil: now.Add(c.staleTTL),
	}
}

// Invalidate expires an entry's freshness while keeping the payload
// serveable as stale, so the next read triggers a refresh without losing the
// ability to answer.
func (c *Cache[T]) Invalidate(fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[fingerprint]; ok {
		e.freshUntil = c.now()
	}
}

// Remove drops an entry entirely, including its stale fallback.
func (c *Cache[T]) Remove(fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, fingerprint)
}

// Len reports how many entries are held, expired ones included.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
