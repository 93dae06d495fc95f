package cache

import (
	"context"
	"fmt"
	"time"
)

// Key formats. Guard state (bans, blocks, school codes) is deliberately never
// cached: every write re-reads it from the relational store.
const (
	UserRoomsKeyPrefix  = "user:%d:rooms"
	RoomMembersPrefix   = "room:%d:members"
	UnreadSummaryPrefix = "user:%d:unread"
)

// TTLs for the cached read models.
const (
	RoomListTTL    = 2 * time.Minute
	RoomMembersTTL = 2 * time.Minute
	UnreadTTL      = 30 * time.Second
)

// UserRoomsKey caches the caller's room list.
func UserRoomsKey(userID uint) string {
	return fmt.Sprintf(UserRoomsKeyPrefix, userID)
}

// RoomMembersKey caches a room's member id set.
func RoomMembersKey(roomID uint) string {
	return fmt.Sprintf(RoomMembersPrefix, roomID)
}

// UnreadSummaryKey caches a user's unread summary.
func UnreadSummaryKey(userID uint) string {
	return fmt.Sprintf(UnreadSummaryPrefix, userID)
}

// Invalidate deletes a key, best-effort.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateUserRooms drops the cached room list and unread summary for a user.
func InvalidateUserRooms(ctx context.Context, userID uint) {
	Invalidate(ctx, UserRoomsKey(userID))
	Invalidate(ctx, UnreadSummaryKey(userID))
}

// InvalidateRoom drops room-scoped read models and the room lists of the
// given member ids.
func InvalidateRoom(ctx context.Context, roomID uint, memberIDs ...uint) {
	Invalidate(ctx, RoomMembersKey(roomID))
	for _, id := range memberIDs {
		InvalidateUserRooms(ctx, id)
	}
}
