package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mediakeep/mediakeep/pkg/interfaces"
)

const invalidationChannel = "mediakeep.cache.invalidations"

// RedisInvalidator drops a profile's cached content views from Redis and
// announces the invalidation so other instances drop their local copies.
type RedisInvalidator struct {
	client *redis.Client
	logger interfaces.Logger
}

// NewRedisInvalidator creates an invalidator on an existing Redis client.
func NewRedisInvalidator(client *redis.Client, logger interfaces.Logger) *RedisInvalidator {
	return &RedisInvalidator{client: client, logger: logger}
}

// InvalidateProfile deletes every cached view keyed under the profile.
func (r *RedisInvalidator) InvalidateProfile(ctx context.Context, profileID int64) error {
	pattern := fmt.Sprintf("profile:%d:*", profileID)

	var deleted int64
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		n, err := r.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return fmt.Errorf("failed to delete cache key %s: %w", iter.Val(), err)
		}
		deleted += n
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	if err := r.client.Publish(ctx, invalidationChannel, fmt.Sprintf("%d", profileID)).Err(); err != nil {
		return fmt.Errorf("failed to announce invalidation: %w", err)
	}

	r.logger.Debug("profile cache invalidated",
		interfaces.Int64("profile_id", profileID),
		interfaces.Int64("keys_deleted", deleted))
	return nil
}
