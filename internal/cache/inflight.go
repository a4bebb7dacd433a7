package cache

import (
	"context"
	"fmt"
	"time"

	"Mazraaty/storage/redis"
)

const inflightPrefix = "inflight"

// At most one attempt per (notification, recipient, channel) may be in
// flight at a time, across all worker processes.

func inflightKey(notificationID int64, recipientID int64, channel string) string {
	return redis.Key(inflightPrefix,
		fmt.Sprintf("%d", notificationID),
		fmt.Sprintf("%d", recipientID),
		channel,
	)
}

// TryAcquireInFlight claims the in-flight slot for one delivery leg. The TTL
// bounds how long a crashed worker can hold the slot.
func TryAcquireInFlight(ctx context.Context, notificationID, recipientID int64, channel string, ttl time.Duration) (bool, error) {
	result, err := redis.Client().SetNX(ctx, inflightKey(notificationID, recipientID, channel), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire in-flight slot: %w", err)
	}
	return result, nil
}

// ReleaseInFlight frees the slot once the attempt reaches a terminal state
// or is scheduled for retry.
func ReleaseInFlight(ctx context.Context, notificationID, recipientID int64, channel string) error {
	return redis.Client().Del(ctx, inflightKey(notificationID, recipientID, channel)).Err()
}
