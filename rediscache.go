package studyquiz

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "studyquiz:questions:"

// RedisCache shares question sets between several server processes
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisCache connects to Redis and checks the connection
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func redisKey(digest string) string {
	return redisKeyPrefix + digest
}

// Get returns the payload stored under digest
func (r *RedisCache) Get(ctx context.Context, digest string) ([]byte, bool, error) {
	payload, err := r.client.Get(ctx, redisKey(digest)).Bytes()
	if err != nil {
		r.misses.Add(1)
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	r.hits.Add(1)
	return payload, true, nil
}

// Set stores payload under digest. A zero TTL keeps the key forever.
func (r *RedisCache) Set(ctx context.Context, digest string, payload []byte) error {
	if err := r.client.Set(ctx, redisKey(digest), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Stats counts the keys under the cache prefix
func (r *RedisCache) Stats(ctx context.Context) (CacheStats, error) {
	var count int64
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return CacheStats{}, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return CacheStats{
		Backend: CacheBackendRedis,
		Entries: count,
		Hits:    r.hits.Load(),
		Misses:  r.misses.Load(),
	}, nil
}

// Clear deletes every key under the cache prefix
func (r *RedisCache) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Close closes the client
func (r *RedisCache) Close() error {
	return r.client.Close()
}
