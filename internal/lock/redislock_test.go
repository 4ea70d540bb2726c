package lock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-lavado/internal/lock"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestWithLockSerializesDraftMutations(t *testing.T) {
	_, client := newClient(t)

	locker := lock.Locker{R: client, Prefix: "draft-lock", RetryBackoff: 5 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var order []string
	var mu sync.Mutex
	firstDone := make(chan struct{})
	releaseFirst := make(chan struct{})

	go func() {
		err := locker.WithLock(ctx, "d-1", 100*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "first")
			mu.Unlock()
			close(firstDone)
			<-releaseFirst
			return nil
		})
		require.NoError(t, err)
	}()

	<-firstDone

	go func() {
		err := locker.WithLock(ctx, "d-1", 100*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)
	}()

	close(releaseFirst)
	time.Sleep(20 * time.Millisecond)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first", "second"}, order)
}

func TestWithLockGivesUpAfterWait(t *testing.T) {
	mr, client := newClient(t)
	require.NoError(t, mr.Set("draft-lock:d-2", "someone-else"))

	locker := lock.Locker{R: client, Prefix: "draft-lock", RetryBackoff: 5 * time.Millisecond, Wait: 30 * time.Millisecond}
	called := false
	err := locker.WithLock(context.Background(), "d-2", time.Second, func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, lock.ErrNotAcquired)
	require.False(t, called)
}

func TestWithLockReleasesOnError(t *testing.T) {
	mr, client := newClient(t)
	locker := lock.Locker{R: client, Prefix: "draft-lock"}

	err := locker.WithLock(context.Background(), "d-3", time.Second, func(context.Context) error {
		require.True(t, mr.Exists("draft-lock:d-3"))
		return context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, mr.Exists("draft-lock:d-3"))
}

func TestWithLockBoundsCallbackByLease(t *testing.T) {
	_, client := newClient(t)
	locker := lock.Locker{R: client, Prefix: "draft-lock"}

	err := locker.WithLock(context.Background(), "d-4", 20*time.Millisecond, func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithLockKeepsForeignLease(t *testing.T) {
	mr, client := newClient(t)
	locker := lock.Locker{R: client, Prefix: "draft-lock"}

	err := locker.WithLock(context.Background(), "d-5", time.Second, func(context.Context) error {
		// another holder took over after our lease expired
		require.NoError(t, mr.Set("draft-lock:d-5", "other"))
		return nil
	})
	require.NoError(t, err)
	got, err := mr.Get("draft-lock:d-5")
	require.NoError(t, err)
	require.Equal(t, "other", got)
}
