package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const versionKey = "authz:version"

// PermissionCache caches resolved permission sets in Redis behind a version
// counter. Registry and binding mutations Bump the version, which retires
// every cached set at once: a check after the bump can only see keys built
// with the new version, so no torn or stale set crosses an update epoch.
//
// The cache is an optimization. When Redis is unreachable, reads fall
// through to the registry; only registry failures deny.
type PermissionCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewPermissionCache instantiates the cache helper. A nil client disables
// caching entirely.
func NewPermissionCache(client *redis.Client, ttl time.Duration) *PermissionCache {
	return &PermissionCache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising it when missing.
func (c *PermissionCache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, versionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, versionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Bump invalidates all cached permission sets by incrementing the version.
// It completes before returning, so the write that triggered it is visible
// to every subsequent check.
func (c *PermissionCache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, versionKey).Err()
}

// Effective returns the cached permission set for the position, loading and
// caching it on a miss. Concurrent misses for the same position collapse to
// a single loader call.
func (c *PermissionCache) Effective(ctx context.Context, positionID int64, loader func(context.Context) ([]string, error)) ([]string, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	ver, err := c.Version(ctx)
	if err != nil {
		// Redis degraded: serve from the registry.
		return loader(ctx)
	}
	key := fmt.Sprintf("authz:pos:%d:%d", positionID, ver)

	if payload, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var perms []string
		if err := json.Unmarshal(payload, &perms); err == nil {
			return perms, nil
		}
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		perms, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(perms); err == nil {
			_ = c.client.Set(ctx, key, raw, c.ttl).Err()
		}
		return perms, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}
