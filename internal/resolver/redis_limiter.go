package resolver

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a distributed counterpart to MemoryLimiter: it shares
// rate-limit state across every resolver instance pointed at the same
// Redis, using a fixed-window counter instead of a token bucket (a
// sliding/leaky bucket needs a Lua script or sorted set to stay atomic
// across instances; a window counter is one INCR plus one conditional EXPIRE).
type RedisLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	ctx    context.Context
}

// NewRedisLimiter returns a limiter admitting up to limit queries per
// window per client address, backed by addr (a Redis server or, in tests,
// a miniredis instance).
func NewRedisLimiter(addr string, limit int64, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		limit:  limit,
		window: window,
		ctx:    context.Background(),
	}
}

// Allow reports whether a query from addr may proceed in the current
// window. On a Redis error it fails open, since a rate limiter that
// outages the resolver is worse than one that under-enforces.
func (l *RedisLimiter) Allow(addr string) bool {
	key := "stubdns:ratelimit:" + addr
	count, err := l.client.Incr(l.ctx, key).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		l.client.Expire(l.ctx, key, l.window)
	}
	return count <= l.limit
}

// Ping verifies connectivity to the backing Redis instance.
func (l *RedisLimiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection pool.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
