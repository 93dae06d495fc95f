package repository

import (
	"context"
	"errors"

	"homeroom/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoomRepository defines persistence operations for chat rooms and membership.
type RoomRepository interface {
	CreateRoomWithMembers(ctx context.Context, room *models.ChatRoom, memberIDs []uint) error
	GetRoom(ctx context.Context, id uint) (*models.ChatRoom, error)
	GetByPairKey(ctx context.Context, pairKey string) (*models.ChatRoom, error)
	FindUserRooms(ctx context.Context, userID uint) ([]models.ChatRoom, error)
	AddMember(ctx context.Context, roomID, userID uint) error
	RemoveMember(ctx context.Context, roomID, userID uint) error
	GetMember(ctx context.Context, roomID, userID uint) (*models.RoomMember, error)
	MemberIDs(ctx context.Context, roomID uint) ([]uint, error)
	MemberCount(ctx context.Context, roomID uint) (int64, error)
	IsMember(ctx context.Context, roomID, userID uint) (bool, error)
	Rename(ctx context.Context, roomID uint, name string) error
	PromoteToGroup(ctx context.Context, roomID uint) error
	SetLastRead(ctx context.Context, roomID, userID, messageID uint) error
	DeleteRoomCascade(ctx context.Context, roomID uint) error
}

type roomRepository struct {
	db *gorm.DB
}

// NewRoomRepository returns a new RoomRepository implementation.
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

// CreateRoomWithMembers inserts the room and its initial membership in one
// transaction. A pair-key collision means another request created the same
// direct room concurrently; the caller resolves it via GetByPairKey.
func (r *roomRepository) CreateRoomWithMembers(ctx context.Context, room *models.ChatRoom, memberIDs []uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		members := make([]models.RoomMember, 0, len(memberIDs))
		for _, id := range memberIDs {
			members = append(members, models.RoomMember{RoomID: room.ID, UserID: id})
		}
		if len(members) > 0 {
			if err := tx.Create(&members).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if IsUniqueConstraintError(err) {
			return models.NewConflictError("Room already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *roomRepository) GetRoom(ctx context.Context, id uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := r.db.WithContext(ctx).
		Preload("Members").
		Preload("Members.User").
		First(&room, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Room", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &room, nil
}

func (r *roomRepository) GetByPairKey(ctx context.Context, pairKey string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := r.db.WithContext(ctx).
		Preload("Members").
		Where("pair_key = ?", pairKey).
		First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &room, nil
}

func (r *roomRepository) FindUserRooms(ctx context.Context, userID uint) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	if err := r.db.WithContext(ctx).
		Joins("JOIN room_members ON room_members.room_id = chat_rooms.id").
		Where("room_members.user_id = ?", userID).
		Preload("Members").
		Preload("Members.User").
		Order("chat_rooms.updated_at DESC").
		Find(&rooms).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rooms, nil
}

// AddMember is idempotent; re-adding an existing member is a no-op.
func (r *roomRepository) AddMember(ctx context.Context, roomID, userID uint) error {
	member := models.RoomMember{RoomID: roomID, UserID: userID}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&member).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *roomRepository) RemoveMember(ctx context.Context, roomID, userID uint) error {
	res := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&models.RoomMember{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Membership", roomID)
	}
	return nil
}

func (r *roomRepository) GetMember(ctx context.Context, roomID, userID uint) (*models.RoomMember, error) {
	var member models.RoomMember
	if err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &member, nil
}

func (r *roomRepository) MemberIDs(ctx context.Context, roomID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.RoomMember{}).
		Where("room_id = ?", roomID).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *roomRepository) MemberCount(ctx context.Context, roomID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.RoomMember{}).
		Where("room_id = ?", roomID).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *roomRepository) IsMember(ctx context.Context, roomID, userID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *roomRepository) Rename(ctx context.Context, roomID uint, name string) error {
	res := r.db.WithContext(ctx).
		Model(&models.ChatRoom{}).
		Where("id = ?", roomID).
		Update("name", name)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Room", roomID)
	}
	return nil
}

// PromoteToGroup flips a 1:1 or self room to a group room. The pair key is
// released so the original pair can open a fresh direct room later; the
// promotion is never reversed.
func (r *roomRepository) PromoteToGroup(ctx context.Context, roomID uint) error {
	res := r.db.WithContext(ctx).
		Model(&models.ChatRoom{}).
		Where("id = ?", roomID).
		Updates(map[string]interface{}{"is_group": true, "is_self": false, "pair_key": nil})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Room", roomID)
	}
	return nil
}

// SetLastRead advances the member's read cursor. It never moves backwards.
func (r *roomRepository) SetLastRead(ctx context.Context, roomID, userID, messageID uint) error {
	if err := r.db.WithContext(ctx).
		Model(&models.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Where("last_read_message_id IS NULL OR last_read_message_id < ?", messageID).
		Update("last_read_message_id", messageID).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// DeleteRoomCascade removes the room and everything hanging off it:
// memberships, messages, hides, polls, votes and reports.
func (r *roomRepository) DeleteRoomCascade(ctx context.Context, roomID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var messageIDs []uint
		if err := tx.Model(&models.ChatMessage{}).
			Where("room_id = ?", roomID).
			Pluck("id", &messageIDs).Error; err != nil {
			return err
		}
		if len(messageIDs) > 0 {
			if err := tx.Where("message_id IN ?", messageIDs).Delete(&models.PollVote{}).Error; err != nil {
				return err
			}
			if err := tx.Where("message_id IN ?", messageIDs).Delete(&models.MessagePoll{}).Error; err != nil {
				return err
			}
			if err := tx.Where("message_id IN ?", messageIDs).Delete(&models.MessageHide{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&models.ChatReport{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&models.RoomMember{}).Error; err != nil {
			return err
		}
		// Release the pair key before the soft delete. The unique index
		// would otherwise keep blocking the pair from reopening a room.
		if err := tx.Model(&models.ChatRoom{}).
			Where("id = ?", roomID).
			Update("pair_key", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ChatRoom{}, roomID).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
