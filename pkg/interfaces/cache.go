package interfaces

import (
	"context"
	"time"
)

// Cache defines a generic caching interface.
type Cache interface {
	// Get retrieves a value from the cache
	Get(ctx context.Context, key string) (interface{}, error)

	// Set stores a value in the cache with a TTL
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a value from the cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from the cache
	Clear(ctx context.Context) error
}

// ProfileCacheInvalidator drops the cached content view for a profile.
// Implementations are best-effort; callers log failures and move on.
type ProfileCacheInvalidator interface {
	// InvalidateProfile invalidates all cached views for the given profile
	InvalidateProfile(ctx context.Context, profileID int64) error
}
