package repository

import (
	"context"
	"errors"

	"homeroom/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRepository defines persistence operations for chat messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
	CreateBatch(ctx context.Context, msgs []models.ChatMessage) error
	GetByID(ctx context.Context, id uint) (*models.ChatMessage, error)
	ListForUser(ctx context.Context, roomID, viewerID uint, limit, offset int) ([]models.ChatMessage, error)
	HardDelete(ctx context.Context, id uint) error
	Hide(ctx context.Context, messageID, userID uint) error
	MaxMessageID(ctx context.Context, roomID uint) (uint, error)
	CountAfter(ctx context.Context, roomID, viewerID uint, afterID uint) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository returns a new MessageRepository implementation.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.ChatMessage) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Poll", "Sender").Create(msg).Error; err != nil {
			return err
		}
		if msg.Poll != nil {
			msg.Poll.MessageID = msg.ID
			if err := tx.Create(msg.Poll).Error; err != nil {
				return err
			}
		}
		// Touch the room so the room list orders by latest activity.
		return tx.Model(&models.ChatRoom{}).
			Where("id = ?", msg.RoomID).
			Update("updated_at", msg.CreatedAt).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *messageRepository) CreateBatch(ctx context.Context, msgs []models.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range msgs {
			if err := tx.Omit("Poll", "Sender").Create(&msgs[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uint) (*models.ChatMessage, error) {
	var msg models.ChatMessage
	if err := r.db.WithContext(ctx).
		Preload("Poll").
		Preload("Sender").
		First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Message", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &msg, nil
}

// ListForUser returns the room's messages as the viewer sees them: messages
// the viewer has hidden and messages from senders in a block relation with
// the viewer are excluded. Newest first.
func (r *messageRepository) ListForUser(ctx context.Context, roomID, viewerID uint, limit, offset int) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	q := r.db.WithContext(ctx).
		Preload("Poll").
		Preload("Sender").
		Where("room_id = ?", roomID).
		Where("id NOT IN (?)", r.db.Model(&models.MessageHide{}).
			Select("message_id").
			Where("user_id = ?", viewerID)).
		Where("sender_id NOT IN (?)", r.db.Model(&models.UserBlock{}).
			Select("blocked_id").
			Where("blocker_id = ?", viewerID)).
		Where("sender_id NOT IN (?)", r.db.Model(&models.UserBlock{}).
			Select("blocker_id").
			Where("blocked_id = ?", viewerID)).
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}

// HardDelete removes the message row along with its hides, poll and votes.
func (r *messageRepository) HardDelete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&models.PollVote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id = ?", id).Delete(&models.MessagePoll{}).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id = ?", id).Delete(&models.MessageHide{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ChatMessage{}, id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Hide records a per-viewer removal. Idempotent.
func (r *messageRepository) Hide(ctx context.Context, messageID, userID uint) error {
	hide := models.MessageHide{MessageID: messageID, UserID: userID}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&hide).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *messageRepository) MaxMessageID(ctx context.Context, roomID uint) (uint, error) {
	var maxID *uint
	if err := r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("room_id = ?", roomID).
		Select("MAX(id)").
		Scan(&maxID).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	if maxID == nil {
		return 0, nil
	}
	return *maxID, nil
}

// CountAfter counts messages the viewer has not read yet, excluding the
// viewer's own messages, hidden messages and messages in a block relation.
func (r *messageRepository) CountAfter(ctx context.Context, roomID, viewerID uint, afterID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("room_id = ?", roomID).
		Where("id > ?", afterID).
		Where("sender_id <> ?", viewerID).
		Where("id NOT IN (?)", r.db.Model(&models.MessageHide{}).
			Select("message_id").
			Where("user_id = ?", viewerID)).
		Where("sender_id NOT IN (?)", r.db.Model(&models.UserBlock{}).
			Select("blocked_id").
			Where("blocker_id = ?", viewerID)).
		Where("sender_id NOT IN (?)", r.db.Model(&models.UserBlock{}).
			Select("blocker_id").
			Where("blocked_id = ?", viewerID)).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
