// Package mutation runs remote writes optimistically against a shared cached
// collection: the local effect is applied before the remote call, rolled back
// to a snapshot if the call fails, and the collection is always resynchronised
// from the source once the call settles.
package mutation

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Behaviors are the injected steps of one optimistic write over a state of
// type S. Snapshot, Remote and Resync are required; the rest are optional.
type Behaviors[S any] struct {
	// Prepare runs first, typically cancelling an in-flight refresh of the
	// same collection so a stale read cannot race the optimistic write.
	Prepare func(ctx context.Context) error
	// Snapshot captures the state that Rollback restores.
	Snapshot func() S
	// Apply performs the optimistic local effect.
	Apply func(snapshot S)
	// Remote performs the write against the source of truth.
	Remote func(ctx context.Context) error
	// Rollback restores the snapshot after Remote failed.
	Rollback func(snapshot S)
	// Resync reloads the state from the source of truth; it runs on every
	// settlement, success or failure.
	Resync func(ctx context.Context) error

	OnSuccess func()
	OnError   func(err error)
}

// Hooks observe the protocol. All fields are optional.
type Hooks struct {
	OnSettled     func(key string, err error, elapsed time.Duration)
	OnRollback    func(key string, err error)
	OnResyncError func(key string, err error)
}

// Coordinator serialises invocations per key. Two writes to the same logical
// resource never overlap; writes to different keys run concurrently.
type Coordinator[S any] struct {
	hooks Hooks

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewCoordinator[S any](hooks Hooks) *Coordinator[S] {
	return &Coordinator[S]{
		hooks: hooks,
		locks: make(map[string]*keyLock),
	}
}

// Execute runs the optimistic protocol for key and returns the Remote error
// unchanged. Prepare errors abort before any local effect. Resync errors are
// reported through Hooks and never replace the Remote result.
func (c *Coordinator[S]) Execute(ctx context.Context, key string, b Behaviors[S]) error {
	if b.Snapshot == nil || b.Remote == nil || b.Resync == nil {
		return fmt.Errorf("mutation %q: snapshot, remote and resync are required", key)
	}

	if err := c.lock(ctx, key); err != nil {
		return err
	}
	defer c.unlock(key)

	started := time.Now()

	if b.Prepare != nil {
		if err := b.Prepare(ctx); err != nil {
			return fmt.Errorf("mutation %q: prepare: %w", key, err)
		}
	}

	snapshot := b.Snapshot()
	if b.Apply != nil {
		b.Apply(snapshot)
	}

	err := b.Remote(ctx)
	if err != nil {
		if b.Rollback != nil {
			b.Rollback(snapshot)
		}
		if c.hooks.OnRollback != nil {
			c.hooks.OnRollback(key, err)
		}
		if b.OnError != nil {
			b.OnError(err)
		}
	} else if b.OnSuccess != nil {
		b.OnSuccess()
	}

	// settlement: resync even when the caller has gone away
	if rerr := b.Resync(context.WithoutCancel(ctx)); rerr != nil && c.hooks.OnResyncError != nil {
		c.hooks.OnResyncError(key, rerr)
	}

	if c.hooks.OnSettled != nil {
		c.hooks.OnSettled(key, err, time.Since(started))
	}
	return err
}

func (c *Coordinator[S]) lock(ctx context.Context, key string) error {
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
		return nil
	case <-ctx.Done():
		c.release(key, l)
		return ctx.Err()
	}
}

func (c *Coordinator[S]) unlock(key string) {
	c.mu.Lock()
	l := c.locks[key]
	c.mu.Unlock()

	<-l.ch
	c.release(key, l)
}

func (c *Coordinator[S]) release(key string, l *keyLock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(c.locks, key)
	}
}

// InFlight reports whether an invocation holds or waits for key.
func (c *Coordinator[S]) InFlight(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.locks[key]
	return ok
}
