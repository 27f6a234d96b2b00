package querycache

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

func TestFetchCachesUntilInvalidated(t *testing.T) {
	c := New[[]string]()
	var calls atomic.Int32
	fetch := func(ctx context.Context) ([]string, error) {
		calls.Add(1)
		return []string{"1", "2"}, nil
	}

	v, err := c.Fetch(context.Background(), "assistants", fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, v)

	_, err = c.Fetch(context.Background(), "assistants", fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	c.Invalidate("assistants")
	_, err = c.Fetch(context.Background(), "assistants", fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRefreshSharesInflightFetch(t *testing.T) {
	c := New[int]()
	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(ctx context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 3)
	refresh := func(i int) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Refresh(context.Background(), "k", fetch)
			assert.NoError(t, err)
			results[i] = v
		}()
	}

	refresh(0)
	assert.Eventually(t, func() bool { return c.Refreshing("k") }, time.Second, time.Millisecond)
	refresh(1)
	refresh(2)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []int{7, 7, 7}, results)
}

func TestCancelDiscardsRefreshResult(t *testing.T) {
	c := New[[]string]()
	c.Set("assistants", []string{"1", "2", "3"})

	started := make(chan struct{})
	fetch := func(ctx context.Context) ([]string, error) {
		close(started)
		<-ctx.Done()
		// a stale read that must never land in the cache
		return []string{"stale"}, nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		v, err := c.Refresh(context.Background(), "assistants", fetch)
		assert.NoError(t, err)
		assert.Equal(t, []string{"1", "2", "3"}, v)
	}()

	<-started
	require.NoError(t, c.Cancel(context.Background(), "assistants"))
	assert.False(t, c.Refreshing("assistants"))

	v, ok := c.Get("assistants")
	require.True(t, ok)
	assert.Equal(t, []string{"1", "2", "3"}, v)
	<-done
}

func TestSetSupersedesInflightRefresh(t *testing.T) {
	c := New[string]()
	release := make(chan struct{})
	fetch := func(ctx context.Context) (string, error) {
		<-release
		return "from-source", nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		v, err := c.Refresh(context.Background(), "k", fetch)
		assert.NoError(t, err)
		assert.Equal(t, "direct", v)
	}()

	assert.Eventually(t, func() bool { return c.Refreshing("k") }, time.Second, time.Millisecond)
	c.Set("k", "direct")
	close(release)
	<-done

	v, _ := c.Get("k")
	assert.Equal(t, "direct", v)
}

func TestRefreshErrorKeepsPreviousValue(t *testing.T) {
	c := New[int]()
	c.Set("k", 1)
	boom := errors.New("boom")

	_, err := c.Refresh(context.Background(), "k", func(ctx context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestCancelledRefreshWithoutValue(t *testing.T) {
	c := New[int]()
	started := make(chan struct{})
	fetch := func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Refresh(context.Background(), "k", fetch)
		errCh <- err
	}()

	<-started
	require.NoError(t, c.Cancel(context.Background(), "k"))
	assert.ErrorIs(t, <-errCh, ErrRefreshCancelled)
}

func TestSubscribeReceivesWrites(t *testing.T) {
	c := New[int]()
	var mu sync.Mutex
	var seen []int
	unsubscribe := c.Subscribe(func(key string, value int) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, value)
	})

	c.Set("k", 1)
	_, err := c.Refresh(context.Background(), "k", func(ctx context.Context) (int, error) { return 2, nil })
	require.NoError(t, err)

	unsubscribe()
	c.Set("k", 3)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2}, seen)
}

func TestRemoveAndClose(t *testing.T) {
	c := New[int]()
	c.Set("a", 1)
	c.Set("b", 2)

	c.Remove("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Close()
	_, ok = c.Get("b")
	assert.False(t, ok)
}
