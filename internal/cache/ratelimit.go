package cache

import (
	"context"
	"fmt"
	"time"

	"Mazraaty/storage/redis"
)

const ratelimitPrefix = "ratelimit"

// IncrementWindow bumps the fixed-window counter for a tenant and returns the
// new count. The window expires on its own, so a cold key starts a new window.
func IncrementWindow(ctx context.Context, tenantID string, window time.Duration) (int64, error) {
	slot := time.Now().Unix() / int64(window.Seconds())
	key := redis.Key(ratelimitPrefix, tenantID, fmt.Sprintf("%d", slot))

	pipe := redis.Client().Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment rate limit window: %w", err)
	}

	return incr.Val(), nil
}
