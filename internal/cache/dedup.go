package cache

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"Mazraaty/storage/redis"
)

const dedupPrefix = "dedup"

// The database unique index is the source of truth for deduplication; redis
// only short-circuits the common case so repeated submissions skip a DB
// round-trip.

// LookupDedup returns the public notification ID previously stored for the
// (tenant, dedup key hash) pair, or "" on a miss.
func LookupDedup(ctx context.Context, tenantID, keyHash string) (string, error) {
	key := redis.Key(dedupPrefix, tenantID, keyHash)
	val, err := redis.Client().Get(ctx, key).Result()
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up dedup key: %w", err)
	}
	return val, nil
}

// StoreDedup caches the winning notification ID for the dedup key.
func StoreDedup(ctx context.Context, tenantID, keyHash, notificationID string, ttl time.Duration) error {
	key := redis.Key(dedupPrefix, tenantID, keyHash)
	return redis.Client().Set(ctx, key, notificationID, ttl).Err()
}
