package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediakeep/mediakeep/internal/infrastructure/cache"
	"github.com/mediakeep/mediakeep/pkg/utils"
)

func TestMemoryInvalidatorDropsOnlyTheProfile(t *testing.T) {
	ctx := context.Background()
	store := utils.NewInMemoryCache()
	defer store.Close()

	require.NoError(t, store.Set(ctx, "profile:42:shows", "a", time.Minute))
	require.NoError(t, store.Set(ctx, "profile:42:movies", "b", time.Minute))
	require.NoError(t, store.Set(ctx, "profile:7:shows", "c", time.Minute))

	invalidator := cache.NewMemoryInvalidator(store)
	require.NoError(t, invalidator.InvalidateProfile(ctx, 42))

	_, err := store.Get(ctx, "profile:42:shows")
	assert.ErrorIs(t, err, utils.ErrCacheMiss)
	_, err = store.Get(ctx, "profile:42:movies")
	assert.ErrorIs(t, err, utils.ErrCacheMiss)

	val, err := store.Get(ctx, "profile:7:shows")
	assert.NoError(t, err)
	assert.Equal(t, "c", val)
}
