package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern invalidates a cache pattern, logging instead of failing
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes cache keys, logging instead of failing
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// RoomKey is the cache key of a single room summary
func RoomKey(roomID uint) string {
	return fmt.Sprintf("id:%d", roomID)
}

// IdentityKey is the cache key of the identity resolved for a user
func IdentityKey(userID uint) string {
	return fmt.Sprintf("identity:%d", userID)
}

// InvalidateRoomCache drops a room and every cached room listing
func InvalidateRoomCache(ctx context.Context, cm *CacheManager, roomID uint) {
	SafeDelete(ctx, cm.Room, RoomKey(roomID))
	SafeInvalidatePattern(ctx, cm.Room, "list:*")
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("room:%d:*", roomID))
}

// InvalidateAllRooms drops every cached room, used when a host renames
func InvalidateAllRooms(ctx context.Context, cm *CacheManager) {
	SafeInvalidatePattern(ctx, cm.Room, "*")
}
