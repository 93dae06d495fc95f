package service

import (
	"context"

	"homeroom/internal/models"
	"homeroom/internal/repository"
)

// SocialService provides block toggling and friendship management. Friend
// edges are informational only and never gate authorization; block edges
// feed the moderation guard.
type SocialService struct {
	socialRepo repository.SocialRepository
	userRepo   repository.UserRepository
}

// NewSocialService returns a new SocialService.
func NewSocialService(socialRepo repository.SocialRepository, userRepo repository.UserRepository) *SocialService {
	return &SocialService{socialRepo: socialRepo, userRepo: userRepo}
}

// ToggleBlock flips the block edge from the caller to the target: blocked
// users get unblocked, everyone else gets blocked. Returns the resulting
// state.
func (s *SocialService) ToggleBlock(ctx context.Context, blockerID, targetID uint) (blocked bool, err error) {
	if blockerID == targetID {
		return false, models.NewValidationError("You cannot block yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return false, err
	}

	blocks, err := s.socialRepo.ListBlocks(ctx, blockerID)
	if err != nil {
		return false, err
	}
	for _, b := range blocks {
		if b.BlockedID == targetID {
			if err := s.socialRepo.Unblock(ctx, blockerID, targetID); err != nil {
				return false, err
			}
			return false, nil
		}
	}

	if err := s.socialRepo.Block(ctx, blockerID, targetID); err != nil {
		return false, err
	}
	return true, nil
}

// ListBlocks returns the caller's outgoing blocks.
func (s *SocialService) ListBlocks(ctx context.Context, blockerID uint) ([]models.UserBlock, error) {
	return s.socialRepo.ListBlocks(ctx, blockerID)
}

// AddFriend records a mutual friendship edge. Blocked pairings are
// rejected.
func (s *SocialService) AddFriend(ctx context.Context, userID, friendID uint) error {
	if userID == friendID {
		return models.NewValidationError("You cannot friend yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, friendID); err != nil {
		return err
	}
	blocked, err := s.socialRepo.HasBlockEither(ctx, userID, friendID)
	if err != nil {
		return err
	}
	if blocked {
		return models.NewForbiddenError("You cannot interact with this user")
	}
	return s.socialRepo.AddFriend(ctx, userID, friendID)
}

// RemoveFriend drops the mutual friendship edge.
func (s *SocialService) RemoveFriend(ctx context.Context, userID, friendID uint) error {
	return s.socialRepo.RemoveFriend(ctx, userID, friendID)
}

// ListFriends returns the caller's friends.
func (s *SocialService) ListFriends(ctx context.Context, userID uint) ([]models.Friend, error) {
	return s.socialRepo.ListFriends(ctx, userID)
}
