// Package querycache is the process-wide owned state container for remote
// collections: cached values, authoritative refreshes that can be cancelled,
// and change notifications for observers.
package querycache

import (
	"context"
	"errors"
	"sync"

	"github.com/patrickmn/go-cache"
)

// ErrRefreshCancelled is returned to refresh waiters when the refresh was
// superseded and no cached value exists to fall back on.
var ErrRefreshCancelled = errors.New("querycache: refresh cancelled")

// Fetcher loads the authoritative value for a key.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Listener observes every value written to the cache.
type Listener[T any] func(key string, value T)

// Cache holds values of type T by key. Stored values are shared between
// readers and must be treated as immutable; writers replace them with Set.
type Cache[T any] struct {
	store *cache.Cache

	mu     sync.Mutex
	states map[string]*queryState

	listenersMu  sync.RWMutex
	listeners    map[uint64]Listener[T]
	nextListener uint64
}

type queryState struct {
	// generation moves on every direct write; a refresh started under an
	// older generation must not overwrite the newer value.
	generation uint64
	stale      bool
	inflight   *refreshCall
}

type refreshCall struct {
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}

	value      any
	err        error
	superseded bool
}

func New[T any]() *Cache[T] {
	return &Cache[T]{
		store:     cache.New(cache.NoExpiration, 0),
		states:    make(map[string]*queryState),
		listeners: make(map[uint64]Listener[T]),
	}
}

func (c *Cache[T]) state(key string) *queryState {
	st, ok := c.states[key]
	if !ok {
		st = &queryState{}
		c.states[key] = st
	}
	return st
}

// Get returns the cached value without triggering a refresh.
func (c *Cache[T]) Get(key string) (T, bool) {
	var zero T
	x, found := c.store.Get(key)
	if !found {
		return zero, false
	}
	return x.(T), true
}

// Set writes a value directly, superseding any in-flight refresh of the key.
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	st := c.state(key)
	st.generation++
	st.stale = false
	if call := st.inflight; call != nil {
		st.inflight = nil
		call.cancel()
	}
	c.store.Set(key, value, cache.NoExpiration)
	c.mu.Unlock()

	c.notify(key, value)
}

// Remove drops the key and supersedes any in-flight refresh.
func (c *Cache[T]) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state(key)
	st.generation++
	if call := st.inflight; call != nil {
		st.inflight = nil
		call.cancel()
	}
	c.store.Delete(key)
}

// Invalidate marks the key stale so the next Fetch goes to the source.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state(key).stale = true
}

// Fetch returns the cached value when it is fresh, otherwise refreshes it.
func (c *Cache[T]) Fetch(ctx context.Context, key string, fetch Fetcher[T]) (T, error) {
	c.mu.Lock()
	st := c.state(key)
	stale := st.stale
	c.mu.Unlock()

	if !stale {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
	}
	return c.Refresh(ctx, key, fetch)
}

// Refresh loads the key from the source of truth. Concurrent refreshes of the
// same key share one fetch. The fetch is detached from the caller's
// cancellation so that one impatient caller cannot abort it for the others;
// it only stops early through Cancel, Set or Remove.
func (c *Cache[T]) Refresh(ctx context.Context, key string, fetch Fetcher[T]) (T, error) {
	c.mu.Lock()
	st := c.state(key)
	if call := st.inflight; call != nil {
		c.mu.Unlock()
		return c.wait(ctx, key, call)
	}

	fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	call := &refreshCall{
		generation: st.generation,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	st.inflight = call
	c.mu.Unlock()

	go c.run(fctx, key, call, fetch)

	return c.wait(ctx, key, call)
}

func (c *Cache[T]) run(ctx context.Context, key string, call *refreshCall, fetch Fetcher[T]) {
	value, err := fetch(ctx)

	c.mu.Lock()
	st := c.state(key)
	superseded := st.generation != call.generation || ctx.Err() != nil
	if st.inflight == call {
		st.inflight = nil
	}
	stored := !superseded && err == nil
	if stored {
		st.stale = false
		c.store.Set(key, value, cache.NoExpiration)
	}
	call.value, call.err, call.superseded = value, err, superseded
	c.mu.Unlock()

	call.cancel()
	if stored {
		c.notify(key, value)
	}
	close(call.done)
}

func (c *Cache[T]) wait(ctx context.Context, key string, call *refreshCall) (T, error) {
	var zero T
	select {
	case <-call.done:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	if call.superseded {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		return zero, ErrRefreshCancelled
	}
	if call.err != nil {
		return zero, call.err
	}
	return call.value.(T), nil
}

// Cancel aborts the in-flight refresh of key, if any, and waits until its
// fetch has returned. Its result is discarded.
func (c *Cache[T]) Cancel(ctx context.Context, key string) error {
	c.mu.Lock()
	st := c.state(key)
	call := st.inflight
	if call == nil {
		c.mu.Unlock()
		return nil
	}
	st.inflight = nil
	call.cancel()
	c.mu.Unlock()

	select {
	case <-call.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refreshing reports whether a refresh of key is in flight.
func (c *Cache[T]) Refreshing(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[key]
	return ok && st.inflight != nil
}

// Subscribe registers fn for every stored value and returns its removal func.
func (c *Cache[T]) Subscribe(fn Listener[T]) func() {
	c.listenersMu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

func (c *Cache[T]) notify(key string, value T) {
	c.listenersMu.RLock()
	listeners := make([]Listener[T], 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.listenersMu.RUnlock()

	for _, l := range listeners {
		l(key, value)
	}
}

// Close cancels every in-flight refresh and drops all values. Used on
// shutdown.
func (c *Cache[T]) Close() {
	c.mu.Lock()
	for _, st := range c.states {
		if st.inflight != nil {
			st.inflight.cancel()
			st.inflight = nil
		}
		st.generation++
	}
	c.mu.Unlock()

	c.store.Flush()
}
