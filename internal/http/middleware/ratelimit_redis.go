package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "smm:ratelimit:"

// RedisLimiter is a fixed-window limiter backed by Redis INCR/EXPIRE, so all
// replicas share one budget per client. At most Limit requests per key are
// allowed in each Window.
type RedisLimiter struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewRedisLimiter builds a RedisLimiter. limit <= 0 is coerced to 1 and a
// non-positive window defaults to one second.
func NewRedisLimiter(client redis.Cmdable, limit int, window time.Duration) *RedisLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &RedisLimiter{client: client, limit: int64(limit), window: window, now: time.Now}
}

// Allow increments the counter of the current window for key. The first hit
// of a window sets the key's expiry to twice the window so abandoned counters
// disappear on their own.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	slot := l.now().UnixNano() / int64(l.window)
	k := redisKeyPrefix + key + ":" + strconv.FormatInt(slot, 10)

	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := l.client.Expire(ctx, k, 2*l.window).Err(); err != nil {
			return false, err
		}
	}
	return n <= l.limit, nil
}
