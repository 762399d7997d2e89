package csrf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/schoolgate/schoolgate/internal/database"
)

const redisKeyPrefix = "csrf:token:"

type storedToken struct {
	Value    string    `json:"value"`
	IssuedAt time.Time `json:"issuedAt"`
}

// RedisStore keeps session-scoped tokens in Redis
type RedisStore struct {
	rdb *database.Redis
}

var _ TokenStore = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore
func NewRedisStore(rdb *database.Redis) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Get retrieves the session's token
func (s *RedisStore) Get(ctx context.Context, sessionID string) (string, time.Time, error) {
	raw, err := s.rdb.GetString(ctx, redisKeyPrefix+sessionID)
	if errors.Is(err, redis.Nil) {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("redis get: %w", err)
	}

	var token storedToken
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return "", time.Time{}, fmt.Errorf("decode csrf token: %w", err)
	}
	return token.Value, token.IssuedAt, nil
}

// Put stores the session's token with the given TTL
func (s *RedisStore) Put(ctx context.Context, sessionID, value string, issuedAt time.Time, ttl time.Duration) error {
	raw, err := json.Marshal(storedToken{Value: value, IssuedAt: issuedAt})
	if err != nil {
		return fmt.Errorf("encode csrf token: %w", err)
	}
	if err := s.rdb.SetWithTTL(ctx, redisKeyPrefix+sessionID, raw, ttl); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes the session's token
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Delete(ctx, redisKeyPrefix+sessionID); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// MemoryStore keeps tokens in process memory. Tests and redis-less runs.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]storedToken
}

var _ TokenStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]storedToken)}
}

// Get retrieves the session's token
func (s *MemoryStore) Get(_ context.Context, sessionID string) (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[sessionID]
	if !ok {
		return "", time.Time{}, nil
	}
	return token.Value, token.IssuedAt, nil
}

// Put stores the session's token
func (s *MemoryStore) Put(_ context.Context, sessionID, value string, issuedAt time.Time, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[sessionID] = storedToken{Value: value, IssuedAt: issuedAt}
	return nil
}

// Delete removes the session's token
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, sessionID)
	return nil
}
