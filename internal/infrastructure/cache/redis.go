// Package cache is the Redis-backed JSON cache in front of tenant membership
// lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"matchmap/internal/config"
	"matchmap/internal/observability"
	"matchmap/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL  = 5 * time.Minute
	deleteBatch = 100
)

var ErrUnavailable = errors.New("cache unavailable")

// Redis degrades to a miss-only cache when the server is unreachable or
// disabled. A nil *Redis is valid and always misses.
type Redis struct {
	client *redis.Client
	logger logger.Logger
	ttl    time.Duration

	warned atomic.Bool
}

func NewRedis(cfg config.RedisConfig, log logger.Logger) *Redis {
	log = logger.OrNop(log).WithFields(map[string]interface{}{"component": "cache"})
	if !cfg.Enabled {
		log.Info("redis disabled, membership cache bypassed", nil)
		return &Redis{logger: log, ttl: cfg.TTL}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, membership cache bypassed", map[string]interface{}{"error": err})
		_ = client.Close()
		return &Redis{logger: log, ttl: cfg.TTL}
	}
	return &Redis{client: client, logger: log, ttl: cfg.TTL}
}

// NewFromClient wraps an existing client without pinging it.
func NewFromClient(client *redis.Client, ttl time.Duration, log logger.Logger) *Redis {
	return &Redis{client: client, logger: logger.OrNop(log), ttl: ttl}
}

func (r *Redis) enabled() bool {
	return r != nil && r.client != nil
}

// fail logs the first backend error only; every later call would repeat it.
func (r *Redis) fail(op string, err error) error {
	if r.warned.CompareAndSwap(false, true) {
		r.logger.Warn("redis error, continuing without cache", map[string]interface{}{"op": op, "error": err})
	}
	return err
}

func (r *Redis) Ping(ctx context.Context) error {
	if !r.enabled() {
		return ErrUnavailable
	}
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	if !r.enabled() {
		return nil
	}
	return r.client.Close()
}

// GetJSON decodes key into out and reports whether it was present.
func (r *Redis) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	if !r.enabled() {
		return false, nil
	}
	b, err := r.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil) || (err == nil && len(b) == 0):
		observability.CacheLookups.WithLabelValues(observability.CacheMiss).Inc()
		return false, nil
	case err != nil:
		observability.CacheLookups.WithLabelValues(observability.CacheError).Inc()
		return false, r.fail("get", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		observability.CacheLookups.WithLabelValues(observability.CacheError).Inc()
		return false, err
	}
	observability.CacheLookups.WithLabelValues(observability.CacheHit).Inc()
	return true, nil
}

// SetJSON stores value under key. ttl <= 0 uses the configured default.
func (r *Redis) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !r.enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = r.ttl
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, b, ttl).Err(); err != nil {
		return r.fail("set", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if !r.enabled() {
		return nil
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return r.fail("del", err)
	}
	return nil
}

// DeleteByPattern removes every key matching a SCAN glob. Keys are collected
// before the first DEL so the cursor never walks a keyspace that is shrinking.
func (r *Redis) DeleteByPattern(ctx context.Context, pattern string) error {
	if !r.enabled() {
		return nil
	}
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil
	}

	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, deleteBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return r.fail("scan", err)
	}

	for batch := range slices.Chunk(keys, deleteBatch) {
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return r.fail("del", err)
		}
	}
	return nil
}
