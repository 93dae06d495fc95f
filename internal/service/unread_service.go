package service

import (
	"context"

	"homeroom/internal/cache"
	"homeroom/internal/models"
	"homeroom/internal/repository"
)

// RoomUnread is one row of the unread summary.
type RoomUnread struct {
	RoomID      uint   `json:"room_id"`
	RoomName    string `json:"room_name"`
	UnreadCount int64  `json:"unread_count"`
}

// UnreadSummary aggregates unread counts across the user's rooms.
type UnreadSummary struct {
	Total int64        `json:"total"`
	Rooms []RoomUnread `json:"rooms"`
}

// UnreadService maintains per-member read cursors and derives unread
// counts from them.
type UnreadService struct {
	roomRepo    repository.RoomRepository
	messageRepo repository.MessageRepository
}

// NewUnreadService returns a new UnreadService.
func NewUnreadService(roomRepo repository.RoomRepository, messageRepo repository.MessageRepository) *UnreadService {
	return &UnreadService{roomRepo: roomRepo, messageRepo: messageRepo}
}

// MarkRead advances the caller's cursor to the room's current maximum
// message id: "read everything up to now", not a specific message.
func (s *UnreadService) MarkRead(ctx context.Context, roomID, userID uint) error {
	member, err := s.roomRepo.IsMember(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !member {
		return models.NewForbiddenError("You are not a member of this room")
	}

	maxID, err := s.messageRepo.MaxMessageID(ctx, roomID)
	if err != nil {
		return err
	}
	if maxID == 0 {
		return nil
	}
	if err := s.roomRepo.SetLastRead(ctx, roomID, userID, maxID); err != nil {
		return err
	}
	cache.Invalidate(ctx, cache.UnreadSummaryKey(userID))
	return nil
}

// Count returns the total number of unread messages across all rooms.
// Own messages, hidden messages and messages from blocked senders never
// count.
func (s *UnreadService) Count(ctx context.Context, userID uint) (int64, error) {
	summary, err := s.Summary(ctx, userID)
	if err != nil {
		return 0, err
	}
	return summary.Total, nil
}

// Summary returns per-room unread counts. Served cache-aside with a short
// TTL; MarkRead invalidates it.
func (s *UnreadService) Summary(ctx context.Context, userID uint) (*UnreadSummary, error) {
	var summary UnreadSummary
	err := cache.Aside(ctx, cache.UnreadSummaryKey(userID), &summary, cache.UnreadTTL, func() error {
		return s.computeSummary(ctx, userID, &summary)
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *UnreadService) computeSummary(ctx context.Context, userID uint, summary *UnreadSummary) error {
	rooms, err := s.roomRepo.FindUserRooms(ctx, userID)
	if err != nil {
		return err
	}

	summary.Rooms = make([]RoomUnread, 0, len(rooms))
	for _, room := range rooms {
		var cursor uint
		for _, m := range room.Members {
			if m.UserID == userID && m.LastReadMessageID != nil {
				cursor = *m.LastReadMessageID
			}
		}
		count, err := s.messageRepo.CountAfter(ctx, room.ID, userID, cursor)
		if err != nil {
			return err
		}
		summary.Total += count
		summary.Rooms = append(summary.Rooms, RoomUnread{
			RoomID:      room.ID,
			RoomName:    room.Name,
			UnreadCount: count,
		})
	}
	return nil
}
