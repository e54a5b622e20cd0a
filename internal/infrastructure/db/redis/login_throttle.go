package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle limits login attempts per key within a fixed window.
// Key format: ratelimit:login:<key>
type LoginThrottle struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
}

// NewLoginThrottle creates a LoginThrottle wrapping the given Redis client.
func NewLoginThrottle(client *redis.Client, maxAttempts int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{client: client, maxAttempts: int64(maxAttempts), window: window}
}

// Allow counts an attempt for key and reports whether it is within the limit.
// The window starts with the first attempt and is not extended by later ones.
// A counter found without an expiry gets one, so an earlier failed EXPIRE
// cannot lock the key out for good.
func (t *LoginThrottle) Allow(ctx context.Context, key string) (bool, error) {
	if t.maxAttempts <= 0 {
		return true, nil
	}

	k := t.key(key)
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		ttl = pipe.TTL(ctx, k)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("login throttle: %w", err)
	}

	// -1: the key exists without an expiry.
	if ttl.Val() == -1 {
		if err := t.client.Expire(ctx, k, t.window).Err(); err != nil {
			return false, fmt.Errorf("login throttle: %w", err)
		}
	}
	return incr.Val() <= t.maxAttempts, nil
}

// Reset clears the attempt counter for key.
func (t *LoginThrottle) Reset(ctx context.Context, key string) error {
	return t.client.Del(ctx, t.key(key)).Err()
}

func (t *LoginThrottle) key(key string) string {
	return fmt.Sprintf("ratelimit:login:%s", key)
}
