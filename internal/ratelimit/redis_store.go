package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/schoolgate/schoolgate/internal/database"
	"github.com/schoolgate/schoolgate/internal/model"
)

const redisKeyPrefix = "ratelimit:entry:"

// RedisStore persists rate limit entries in Redis so lockouts survive
// restarts and are shared across instances.
type RedisStore struct {
	rdb *database.Redis
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore
func NewRedisStore(rdb *database.Redis) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Get retrieves an entry, or (nil, nil) when none exists
func (s *RedisStore) Get(ctx context.Context, key string) (*model.RateLimitEntry, error) {
	raw, err := s.rdb.GetString(ctx, redisKeyPrefix+key)
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry model.RateLimitEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("decode rate limit entry: %w", err)
	}
	return &entry, nil
}

// Put stores an entry with the given TTL
func (s *RedisStore) Put(ctx context.Context, key string, entry *model.RateLimitEntry, ttl time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode rate limit entry: %w", err)
	}
	if err := s.rdb.SetWithTTL(ctx, redisKeyPrefix+key, raw, ttl); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes an entry
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Delete(ctx, redisKeyPrefix+key); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
