package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store keeps draft sessions.
type Store interface {
	Load(ctx context.Context, id uuid.UUID) (Session, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// RedisStore keeps each session as one JSON value that expires after TTL of
// inactivity.
type RedisStore struct {
	R      *redis.Client
	Prefix string
	TTL    time.Duration
}

func (s RedisStore) key(id uuid.UUID) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "draft"
	}
	return prefix + ":" + id.String()
}

// Load returns the session with id.
func (s RedisStore) Load(ctx context.Context, id uuid.UUID) (Session, error) {
	data, err := s.R.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("load draft: %w", err)
	}
	var out Session
	if err := json.Unmarshal(data, &out); err != nil {
		return Session{}, fmt.Errorf("decode draft: %w", err)
	}
	return out, nil
}

// Save writes the whole session in a single SET and refreshes its TTL.
func (s RedisStore) Save(ctx context.Context, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if err := s.R.Set(ctx, s.key(sess.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Delete discards the session. Missing sessions are not an error.
func (s RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.R.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}
