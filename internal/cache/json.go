package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const purgeBatch = 200

// JSON stores JSON documents in Redis under one key prefix with a fixed TTL.
// A nil *JSON or one without a client behaves as an always-empty cache.
type JSON struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewJSON constructs a cache helper. A nil client disables caching.
func NewJSON(client *redis.Client, prefix string, ttl time.Duration) *JSON {
	return &JSON{client: client, prefix: prefix, ttl: ttl}
}

func (c *JSON) enabled() bool { return c != nil && c.client != nil }

// Key joins parts with ":" under the cache prefix.
func (c *JSON) Key(parts ...any) string {
	var b strings.Builder
	if c != nil {
		b.WriteString(c.prefix)
	}
	for _, part := range parts {
		if b.Len() > 0 {
			b.WriteByte(':')
		}
		fmt.Fprint(&b, part)
	}
	return b.String()
}

// Get decodes the document at key into dst and reports whether it was there.
// An undecodable document is dropped and reported as an error.
func (c *JSON) Get(ctx context.Context, key string, dst any) (bool, error) {
	if !c.enabled() || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		_ = c.client.Del(ctx, key).Err()
		return false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores v at key for the cache TTL.
func (c *JSON) Set(ctx context.Context, key string, v any) error {
	if !c.enabled() || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Delete removes the given keys.
func (c *JSON) Delete(ctx context.Context, keys ...string) error {
	if !c.enabled() || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Purge removes every key under the cache prefix and returns how many were deleted.
func (c *JSON) Purge(ctx context.Context) (int, error) {
	if !c.enabled() {
		return 0, nil
	}
	return purgePrefix(ctx, c.client, c.prefix)
}

// Remember returns the cached value at key, or calls load and caches its
// result. Cache failures never fail the call; they go to warn when set.
func Remember[T any](ctx context.Context, c *JSON, key string, load func(context.Context) (T, error), warn func(error)) (T, error) {
	var v T
	hit, err := c.Get(ctx, key, &v)
	if hit {
		return v, nil
	}
	if err != nil && warn != nil {
		warn(err)
	}
	v, err = load(ctx)
	if err != nil {
		return v, err
	}
	if err := c.Set(ctx, key, v); err != nil && warn != nil {
		warn(err)
	}
	return v, nil
}

// purgePrefix deletes the keys matching prefix:* in batches, walking the
// keyspace with SCAN instead of KEYS.
func purgePrefix(ctx context.Context, client *redis.Client, prefix string) (int, error) {
	if client == nil || prefix == "" {
		return 0, nil
	}
	var (
		deleted int
		batch   = make([]string, 0, purgeBatch)
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := client.Unlink(ctx, batch...).Result()
		deleted += int(n)
		batch = batch[:0]
		return err
	}
	iter := client.Scan(ctx, 0, prefix+":*", purgeBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == purgeBatch {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	return deleted, flush()
}
