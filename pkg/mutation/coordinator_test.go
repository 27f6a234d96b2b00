package mutation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct{ id string }

// state stands in for a shared cached collection.
type state struct {
	mu    sync.Mutex
	items []item
}

func (s *state) get() []item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items
}

func (s *state) set(items []item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
}

func ids(items []item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.id
	}
	return out
}

func deleteBehaviors(s *state, target string, remote func(ctx context.Context) error, source func() []item) Behaviors[[]item] {
	return Behaviors[[]item]{
		Snapshot: s.get,
		Apply: func(snapshot []item) {
			s.set(Without(snapshot, func(it item) bool { return it.id == target }))
		},
		Remote:   remote,
		Rollback: s.set,
		Resync: func(ctx context.Context) error {
			s.set(source())
			return nil
		},
	}
}

func TestExecuteAppliesOptimisticallyBeforeRemote(t *testing.T) {
	s := &state{items: []item{{"1"}, {"2"}, {"3"}}}
	c := NewCoordinator[[]item](Hooks{})

	var seenDuringRemote []string
	remote := func(ctx context.Context) error {
		seenDuringRemote = ids(s.get())
		return nil
	}
	source := func() []item { return []item{{"1"}, {"3"}} }

	err := c.Execute(context.Background(), "assistants", deleteBehaviors(s, "2", remote, source))
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "3"}, seenDuringRemote)
	assert.Equal(t, []string{"1", "3"}, ids(s.get()))
}

func TestExecuteRollsBackToSnapshotOnFailure(t *testing.T) {
	original := []item{{"a"}, {"b"}, {"c"}, {"d"}}
	s := &state{items: original}
	boom := errors.New("store busy")

	var rolledBack atomic.Bool
	var onError error
	c := NewCoordinator[[]item](Hooks{
		OnRollback: func(key string, err error) { rolledBack.Store(true) },
	})

	b := deleteBehaviors(s, "c", func(ctx context.Context) error { return boom }, func() []item { return original })
	var resyncSaw []string
	b.Resync = func(ctx context.Context) error {
		// the rollback must be complete before settlement
		resyncSaw = ids(s.get())
		return nil
	}
	b.OnError = func(err error) { onError = err }

	err := c.Execute(context.Background(), "assistants", b)

	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, onError, boom)
	assert.True(t, rolledBack.Load())
	assert.Equal(t, []string{"a", "b", "c", "d"}, resyncSaw)
	assert.Equal(t, ids(original), ids(s.get()))
}

func TestExecuteResyncsOnEverySettlement(t *testing.T) {
	tests := []struct {
		name      string
		remoteErr error
	}{
		{"success", nil},
		{"failure", errors.New("not found")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &state{items: []item{{"1"}}}
			var resynced int
			var settledErr error
			c := NewCoordinator[[]item](Hooks{
				OnSettled: func(key string, err error, elapsed time.Duration) { settledErr = err },
			})

			b := deleteBehaviors(s, "1", func(ctx context.Context) error { return tt.remoteErr }, nil)
			b.Resync = func(ctx context.Context) error {
				resynced++
				return nil
			}

			err := c.Execute(context.Background(), "k", b)
			assert.Equal(t, tt.remoteErr, err)
			assert.Equal(t, tt.remoteErr, settledErr)
			assert.Equal(t, 1, resynced)
		})
	}
}

func TestExecuteResyncErrorDoesNotMaskResult(t *testing.T) {
	s := &state{items: []item{{"1"}}}
	var resyncErr error
	c := NewCoordinator[[]item](Hooks{
		OnResyncError: func(key string, err error) { resyncErr = err },
	})

	b := deleteBehaviors(s, "1", func(ctx context.Context) error { return nil }, nil)
	b.Resync = func(ctx context.Context) error { return errors.New("list failed") }
	var succeeded bool
	b.OnSuccess = func() { succeeded = true }

	err := c.Execute(context.Background(), "k", b)
	assert.NoError(t, err)
	assert.True(t, succeeded)
	assert.EqualError(t, resyncErr, "list failed")
}

func TestExecutePrepareFailureLeavesStateUntouched(t *testing.T) {
	s := &state{items: []item{{"1"}, {"2"}}}
	c := NewCoordinator[[]item](Hooks{})

	var remoteCalled bool
	b := deleteBehaviors(s, "1", func(ctx context.Context) error {
		remoteCalled = true
		return nil
	}, nil)
	b.Prepare = func(ctx context.Context) error { return context.DeadlineExceeded }

	err := c.Execute(context.Background(), "k", b)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, remoteCalled)
	assert.Equal(t, []string{"1", "2"}, ids(s.get()))
}

func TestExecuteRequiresCoreBehaviors(t *testing.T) {
	c := NewCoordinator[[]item](Hooks{})
	err := c.Execute(context.Background(), "k", Behaviors[[]item]{})
	assert.Error(t, err)
}

func TestExecuteSerialisesSameKey(t *testing.T) {
	c := NewCoordinator[int](Hooks{})
	var active, maxActive atomic.Int32

	run := func() error {
		return c.Execute(context.Background(), "assistants", Behaviors[int]{
			Snapshot: func() int { return 0 },
			Remote: func(ctx context.Context) error {
				n := active.Add(1)
				for {
					m := maxActive.Load()
					if n <= m || maxActive.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				active.Add(-1)
				return nil
			},
			Resync: func(ctx context.Context) error { return nil },
		})
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, run())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive.Load())
	assert.False(t, c.InFlight("assistants"))
}

func TestExecuteHonoursContextWhileWaitingForKey(t *testing.T) {
	c := NewCoordinator[int](Hooks{})
	release := make(chan struct{})
	entered := make(chan struct{})

	go func() {
		_ = c.Execute(context.Background(), "k", Behaviors[int]{
			Snapshot: func() int { return 0 },
			Remote: func(ctx context.Context) error {
				close(entered)
				<-release
				return nil
			},
			Resync: func(ctx context.Context) error { return nil },
		})
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := c.Execute(ctx, "k", Behaviors[int]{
		Snapshot: func() int { return 0 },
		Remote:   func(ctx context.Context) error { return nil },
		Resync:   func(ctx context.Context) error { return nil },
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	assert.Eventually(t, func() bool { return !c.InFlight("k") }, time.Second, time.Millisecond)
}

func TestWithoutAndReplaceDoNotMutateInput(t *testing.T) {
	in := []item{{"1"}, {"2"}, {"3"}}

	out := Without(in, func(it item) bool { return it.id == "2" })
	assert.Equal(t, []string{"1", "3"}, ids(out))
	assert.Equal(t, []string{"1", "2", "3"}, ids(in))

	replaced := Replace(in, func(it item) bool { return it.id == "3" }, item{"x"})
	assert.Equal(t, []string{"1", "2", "x"}, ids(replaced))
	assert.Equal(t, []string{"1", "2", "3"}, ids(in))
}
