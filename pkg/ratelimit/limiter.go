// Package ratelimit provides fixed-window request limiters keyed by
// client, backed by Redis when shared state is available.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether one more request for key fits the window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Limit() int
	Window() time.Duration
}

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisLimiter counts requests per key and window slot in Redis, so all
// instances share one quota.
type RedisLimiter struct {
	limit  int
	window time.Duration
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// validateQuota rejects windows that truncate to zero milliseconds, the
// unit slots are counted in.
func validateQuota(limit int, window time.Duration) error {
	if limit <= 0 {
		return errors.New("rate limiter requires a positive limit")
	}
	if window < time.Millisecond {
		return errors.New("rate limiter window must be at least 1ms")
	}
	return nil
}

func NewRedisLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) (*RedisLimiter, error) {
	if err := validateQuota(limit, window); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.New("rate limiter redis client is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "handswers:ratelimit"
	}
	return &RedisLimiter{limit: limit, window: window, client: client, prefix: prefix, now: time.Now}, nil
}

func (l *RedisLimiter) Limit() int            { return l.limit }
func (l *RedisLimiter) Window() time.Duration { return l.window }

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}
	windowMs := l.window.Milliseconds()
	slot := l.now().UTC().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	count, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, windowMs).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}
	return count <= int64(l.limit), nil
}

// MemoryLimiter is the single-process fallback used when no Redis is
// configured.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	slot  int64
	count int
}

func NewMemoryLimiter(limit int, window time.Duration) (*MemoryLimiter, error) {
	if err := validateQuota(limit, window); err != nil {
		return nil, err
	}
	return &MemoryLimiter{limit: limit, window: window, now: time.Now, buckets: make(map[string]*bucket)}, nil
}

func (l *MemoryLimiter) Limit() int            { return l.limit }
func (l *MemoryLimiter) Window() time.Duration { return l.window }

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	slot := l.now().UnixMilli() / l.window.Milliseconds()

	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok || b.slot != slot {
		// Drop stale buckets while we hold the lock.
		if len(l.buckets) > 10000 {
			for k, old := range l.buckets {
				if old.slot != slot {
					delete(l.buckets, k)
				}
			}
		}
		b = &bucket{slot: slot}
		l.buckets[key] = b
	}
	b.count++
	return b.count <= l.limit, nil
}

var (
	_ Limiter = (*RedisLimiter)(nil)
	_ Limiter = (*MemoryLimiter)(nil)
)
