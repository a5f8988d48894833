package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// keyPrefix namespaces quotegate entries in a shared Redis instance.
const keyPrefix = "quotegate:"

// Redis is a Store backed by a shared Redis instance. Expiration is delegated
// to Redis TTLs, so DeleteExpired has nothing to sweep.
type Redis struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedis creates a Redis-backed store and verifies connectivity.
func NewRedis(ctx context.Context, addr, password string, db int, log zerolog.Logger) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Redis{
		rdb: rdb,
		log: log.With().Str("component", "redis_cache").Logger(),
	}, nil
}

// Get returns the value for key if present. Redis drops expired keys itself.
func (r *Redis) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	data, err := r.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return json.RawMessage(data), true, nil
}

// Set stores value under key with the given TTL.
func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %s: %w", key, err)
	}

	if err := r.rdb.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes a key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis evicts expired keys natively.
func (r *Redis) DeleteExpired(ctx context.Context) (int, error) {
	return 0, nil
}

// Len counts live quotegate keys.
func (r *Redis) Len(ctx context.Context) (int, error) {
	n := 0
	iter := r.rdb.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return n, nil
}

// Close shuts down the Redis client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
