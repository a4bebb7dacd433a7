package cache

import (
	"context"
	"fmt"
	"time"

	"Mazraaty/storage/redis"
)

const cancelPrefix = "cancel"

// Cancellation is checked right before each provider call. The flag lives in
// redis so every worker sees it without a DB read on the hot path.

// MarkCancelled flags a notification as cancelled. TTL should outlive the
// notification's own TTL.
func MarkCancelled(ctx context.Context, notificationID int64, ttl time.Duration) error {
	key := redis.Key(cancelPrefix, fmt.Sprintf("%d", notificationID))
	return redis.Client().Set(ctx, key, 1, ttl).Err()
}

// IsCancelled reports whether the notification was cancelled.
func IsCancelled(ctx context.Context, notificationID int64) (bool, error) {
	key := redis.Key(cancelPrefix, fmt.Sprintf("%d", notificationID))
	result, err := redis.Client().Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check cancel flag: %w", err)
	}
	return result > 0, nil
}
