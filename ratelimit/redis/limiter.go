// Package redislimiter implements a fixed-window rate limiter on Redis, for
// multi-instance deployments where counts must be shared.
package redislimiter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limit configures a named bucket: at most Limit events per Window.
type Limit struct {
	Limit  int
	Window time.Duration
}

type Limiter struct {
	rdb    *redis.Client
	limits map[string]Limit
}

func New(rdb *redis.Client, limits map[string]Limit) *Limiter {
	return &Limiter{rdb: rdb, limits: limits}
}

func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	lim, ok := l.limits[bucket]
	if !ok {
		lim, ok = l.limits["default"]
		if !ok {
			return true, nil
		}
	}
	if lim.Limit <= 0 || lim.Window <= 0 {
		return true, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// INCR then set the expiry on first increment. The count and its TTL do
	// not need to be perfectly atomic for a fixed window.
	n, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, key, lim.Window).Err(); err != nil {
			return false, err
		}
	}
	return n <= int64(lim.Limit), nil
}
