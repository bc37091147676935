package authz

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*PermissionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewPermissionCache(client, time.Minute), mr
}

func TestCacheLoadsOnceAndServesHits(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(ctx context.Context) ([]string, error) {
		loads++
		return []string{"view_assets"}, nil
	}

	perms, err := cache.Effective(ctx, 7, loader)
	require.NoError(t, err)
	assert.Equal(t, []string{"view_assets"}, perms)
	assert.Equal(t, 1, loads)

	perms, err = cache.Effective(ctx, 7, loader)
	require.NoError(t, err)
	assert.Equal(t, []string{"view_assets"}, perms)
	assert.Equal(t, 1, loads, "second read must hit the cache")
}

func TestBumpRetiresCachedSets(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	old := []string{"view_assets"}
	fresh := []string{"view_assets", "manage_assets"}
	current := old
	loader := func(ctx context.Context) ([]string, error) {
		out := make([]string, len(current))
		copy(out, current)
		return out, nil
	}

	perms, err := cache.Effective(ctx, 7, loader)
	require.NoError(t, err)
	assert.Equal(t, old, perms)

	// Simulate a registry update followed by the mandatory version bump.
	current = fresh
	require.NoError(t, cache.Bump(ctx))

	perms, err = cache.Effective(ctx, 7, loader)
	require.NoError(t, err)
	assert.Equal(t, fresh, perms, "a check after the bump must see the new set")
}

func TestCacheNeverServesTornSets(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loader := func(ctx context.Context) ([]string, error) {
		return []string{"view_assets", "view_maintenance"}, nil
	}
	perms, err := cache.Effective(ctx, 3, loader)
	require.NoError(t, err)
	// The whole set is stored as one JSON value: a reader gets the old
	// value or the new value, never a mixture.
	assert.ElementsMatch(t, []string{"view_assets", "view_maintenance"}, perms)
}

func TestCacheDegradesToLoaderWhenRedisDown(t *testing.T) {
	cache, mr := newTestCache(t)
	mr.Close()

	perms, err := cache.Effective(context.Background(), 7, func(ctx context.Context) ([]string, error) {
		return []string{"view_assets"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"view_assets"}, perms)
}

func TestNilCacheDelegatesToLoader(t *testing.T) {
	var cache *PermissionCache
	perms, err := cache.Effective(context.Background(), 1, func(ctx context.Context) ([]string, error) {
		return []string{"view_assets"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"view_assets"}, perms)
	require.NoError(t, cache.Bump(context.Background()))
}
