package repository

import (
	"context"

	"homeroom/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SocialRepository defines persistence operations for blocks and friendships.
type SocialRepository interface {
	Block(ctx context.Context, blockerID, blockedID uint) error
	Unblock(ctx context.Context, blockerID, blockedID uint) error
	HasBlockEither(ctx context.Context, a, b uint) (bool, error)
	BlockedIDs(ctx context.Context, userID uint) ([]uint, error)
	ListBlocks(ctx context.Context, blockerID uint) ([]models.UserBlock, error)
	AddFriend(ctx context.Context, userID, friendID uint) error
	RemoveFriend(ctx context.Context, userID, friendID uint) error
	ListFriends(ctx context.Context, userID uint) ([]models.Friend, error)
	AreFriends(ctx context.Context, userID, friendID uint) (bool, error)
}

type socialRepository struct {
	db *gorm.DB
}

// NewSocialRepository returns a new SocialRepository implementation.
func NewSocialRepository(db *gorm.DB) SocialRepository {
	return &socialRepository{db: db}
}

// Block records a one-way block edge. Re-blocking is a no-op.
func (r *socialRepository) Block(ctx context.Context, blockerID, blockedID uint) error {
	block := models.UserBlock{BlockerID: blockerID, BlockedID: blockedID}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&block).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *socialRepository) Unblock(ctx context.Context, blockerID, blockedID uint) error {
	res := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.UserBlock{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Block", blockedID)
	}
	return nil
}

// HasBlockEither reports whether a block exists in either direction
// between the two users.
func (r *socialRepository) HasBlockEither(ctx context.Context, a, b uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.UserBlock{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// BlockedIDs returns every user the given user is in a block relation
// with, in either direction.
func (r *socialRepository) BlockedIDs(ctx context.Context, userID uint) ([]uint, error) {
	var out []uint
	if err := r.db.WithContext(ctx).
		Model(&models.UserBlock{}).
		Where("blocker_id = ?", userID).
		Pluck("blocked_id", &out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	var reverse []uint
	if err := r.db.WithContext(ctx).
		Model(&models.UserBlock{}).
		Where("blocked_id = ?", userID).
		Pluck("blocker_id", &reverse).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	seen := make(map[uint]struct{}, len(out))
	for _, id := range out {
		seen[id] = struct{}{}
	}
	for _, id := range reverse {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
			seen[id] = struct{}{}
		}
	}
	return out, nil
}

func (r *socialRepository) ListBlocks(ctx context.Context, blockerID uint) ([]models.UserBlock, error) {
	var blocks []models.UserBlock
	if err := r.db.WithContext(ctx).
		Preload("Blocked").
		Where("blocker_id = ?", blockerID).
		Order("created_at DESC").
		Find(&blocks).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return blocks, nil
}

// AddFriend writes both directions of the edge so lookups stay single-sided.
func (r *socialRepository) AddFriend(ctx context.Context, userID, friendID uint) error {
	edges := []models.Friend{
		{UserID: userID, FriendID: friendID},
		{UserID: friendID, FriendID: userID},
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&edges).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *socialRepository) RemoveFriend(ctx context.Context, userID, friendID uint) error {
	res := r.db.WithContext(ctx).
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
			userID, friendID, friendID, userID).
		Delete(&models.Friend{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Friendship", friendID)
	}
	return nil
}

func (r *socialRepository) ListFriends(ctx context.Context, userID uint) ([]models.Friend, error) {
	var friends []models.Friend
	if err := r.db.WithContext(ctx).
		Preload("FriendUser").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&friends).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return friends, nil
}

func (r *socialRepository) AreFriends(ctx context.Context, userID, friendID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Friend{}).
		Where("user_id = ? AND friend_id = ?", userID, friendID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}
