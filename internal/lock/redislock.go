package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the lock could not be taken within Wait.
var ErrNotAcquired = errors.New("lock: not acquired")

const (
	defaultTTL     = 30 * time.Second
	defaultBackoff = 50 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lease never removes a lock taken over by another holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`)

// Locker serialises work on one key across API instances with a Redis lease.
type Locker struct {
	R            *redis.Client
	Prefix       string
	RetryBackoff time.Duration
	// Wait bounds how long WithLock retries. Zero waits until ctx is done.
	Wait time.Duration
}

// WithLock runs fn while holding the lease on key. fn receives a context that
// ends when the lease does, so its writes never outlive the lock. The lease
// is released when fn returns, whatever the outcome.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	key = l.key(key)
	token := uuid.NewString()

	if err := l.acquire(ctx, key, token, ttl); err != nil {
		return err
	}
	defer l.release(key, token)

	leaseCtx, cancel := context.WithTimeout(ctx, ttl)
	defer cancel()
	return fn(leaseCtx)
}

func (l Locker) acquire(ctx context.Context, key, token string, ttl time.Duration) error {
	backoff := l.RetryBackoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	var deadline <-chan time.Time
	if l.Wait > 0 {
		t := time.NewTimer(l.Wait)
		defer t.Stop()
		deadline = t.C
	}
	retry := time.NewTimer(backoff)
	retry.Stop()
	defer retry.Stop()

	for {
		ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return fmt.Errorf("lock: acquire %s: %w", key, err)
		}
		if ok {
			return nil
		}
		retry.Reset(backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("%w: %s", ErrNotAcquired, key)
		case <-retry.C:
		}
	}
}

// release runs on its own context: the caller's may already be cancelled.
func (l Locker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = releaseScript.Run(ctx, l.R, []string{key}, token).Err()
}

func (l Locker) key(k string) string {
	if l.Prefix == "" {
		return k
	}
	return l.Prefix + ":" + k
}
