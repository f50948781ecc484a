package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// CacheManager groups the cache helpers used by the repositories
type CacheManager struct {
	client *redis.Client

	Room  *CacheHelper
	User  *CacheHelper
	Stats *CacheHelper
}

// NewCacheManager creates cache manager with all cache helpers. A nil client
// yields helpers that miss on every read and ignore writes.
func NewCacheManager(client *redis.Client) *CacheManager {
	return &CacheManager{
		client: client,
		Room:   NewCacheHelper(client, RoomCacheConfig.Prefix),
		User:   NewCacheHelper(client, UserCacheConfig.Prefix),
		Stats:  NewCacheHelper(client, StatsCacheConfig.Prefix),
	}
}

// HealthCheck verifies cache connectivity
func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	if cm.client == nil {
		return ErrCacheNotAvailable
	}

	if _, err := cm.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}

	return nil
}
