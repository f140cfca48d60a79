package cache

import (
	"context"
	"fmt"

	"github.com/mediakeep/mediakeep/pkg/utils"
)

// MemoryInvalidator drops a profile's cached views from the process-local
// cache. Used when Redis is disabled.
type MemoryInvalidator struct {
	cache *utils.InMemoryCache
}

// NewMemoryInvalidator creates an invalidator on a local cache.
func NewMemoryInvalidator(cache *utils.InMemoryCache) *MemoryInvalidator {
	return &MemoryInvalidator{cache: cache}
}

// InvalidateProfile deletes every cached view keyed under the profile.
func (m *MemoryInvalidator) InvalidateProfile(ctx context.Context, profileID int64) error {
	return m.cache.DeletePrefix(ctx, fmt.Sprintf("profile:%d:", profileID))
}
