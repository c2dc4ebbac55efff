// Package cache keeps JSON-encoded read models in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrMiss is returned by a Store when the key does not exist
var ErrMiss = errors.New("cache miss")

// DefaultTTL applies when a caller passes a non-positive ttl; entries always expire.
const DefaultTTL = 5 * time.Minute

// Store is the byte-level backend of a Cache
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Cache namespaces keys under a prefix and never fails a read because of the backend.
// A Cache without a store executes every loader directly.
type Cache struct {
	store  Store
	prefix string
	logger zerolog.Logger
}

// New creates a Cache on top of store
func New(store Store, prefix string, logger zerolog.Logger) *Cache {
	return &Cache{store: store, prefix: prefix, logger: logger}
}

// Nop returns a Cache that stores nothing
func Nop() *Cache {
	return &Cache{logger: zerolog.Nop()}
}

// Key joins parts under the cache prefix
func (c *Cache) Key(parts ...string) string {
	return c.prefix + ":" + strings.Join(parts, ":")
}

// CacheOrExecute fills dest from the cache, or runs load, stores its result and decodes
// it into dest. Backend errors are logged and fall through to load. A ttl <= 0 means
// DefaultTTL.
func (c *Cache) CacheOrExecute(ctx context.Context, key string, dest any, ttl time.Duration, load func() (any, error)) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if c.store != nil {
		raw, err := c.store.Get(ctx, key)
		switch {
		case err == nil:
			if err := json.Unmarshal(raw, dest); err == nil {
				return nil
			}
			c.logger.Warn().Str("key", key).Msg("Discarding undecodable cache entry")
		case !errors.Is(err, ErrMiss):
			c.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
	}

	value, err := load()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	if c.store != nil {
		if err := c.store.Set(ctx, key, raw, ttl); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
		}
	}
	return json.Unmarshal(raw, dest)
}

// SafeDelete removes keys, logging instead of failing when the backend is unavailable
func (c *Cache) SafeDelete(ctx context.Context, keys ...string) {
	if c.store == nil || len(keys) == 0 {
		return
	}
	if err := c.store.Del(ctx, keys...); err != nil {
		c.logger.Warn().Err(err).Strs("keys", keys).Msg("Cache invalidation failed")
	}
}

// RedisStore adapts a go-redis client to Store
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get implements Store
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return raw, err
}

// Set implements Store
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Del implements Store
func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}
