package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Limiter abstracts rate accounting for the middleware.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, limit int64, remaining int64, reset time.Time, err error)
}

// RedisLimiter wraps ulule/limiter with a Redis-backed store.
type RedisLimiter struct {
	instance *limiter.Limiter
}

// NewRedisLimiter builds a limiter allowing max events per window.
func NewRedisLimiter(client *redis.Client, prefix string, window time.Duration, max int64) (*RedisLimiter, error) {
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return nil, fmt.Errorf("ratelimit: create store: %w", err)
	}
	rate := limiter.Rate{Period: window, Limit: max}
	return &RedisLimiter{instance: limiter.New(store, rate)}, nil
}

// Allow registers one event for the key and reports whether it fits.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, int64, int64, time.Time, error) {
	lctx, err := l.instance.Get(ctx, key)
	if err != nil {
		return false, 0, 0, time.Time{}, err
	}
	return !lctx.Reached, lctx.Limit, lctx.Remaining, time.Unix(lctx.Reset, 0), nil
}
