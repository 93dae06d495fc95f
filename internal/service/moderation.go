// Package service provides application business logic (rooms, messages,
// polls, moderation, reports).
package service

import (
	"context"
	"time"

	"homeroom/internal/models"
	"homeroom/internal/repository"
)

// ModerationService is the shared interaction guard. Mutating chat
// operations run through it before touching state; reads never do.
type ModerationService struct {
	userRepo   repository.UserRepository
	socialRepo repository.SocialRepository
	now        func() time.Time
}

// NewModerationService returns a new ModerationService.
func NewModerationService(userRepo repository.UserRepository, socialRepo repository.SocialRepository) *ModerationService {
	return &ModerationService{
		userRepo:   userRepo,
		socialRepo: socialRepo,
		now:        time.Now,
	}
}

// EnsureActive rejects actors whose ban is currently in effect. Ban state
// is evaluated at call time; a lapsed ban passes without any writeback.
func (s *ModerationService) EnsureActive(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	status := user.EvaluateBan(s.now())
	if status.Banned {
		return nil, models.NewForbiddenError("Your account is currently banned")
	}
	return user, nil
}

// EnsureCanPair rejects the pairing when either side has blocked the
// other. Applied before opening a direct room.
func (s *ModerationService) EnsureCanPair(ctx context.Context, actorID, targetID uint) error {
	if actorID == targetID {
		return nil
	}
	blocked, err := s.socialRepo.HasBlockEither(ctx, actorID, targetID)
	if err != nil {
		return err
	}
	if blocked {
		return models.NewForbiddenError("You cannot interact with this user")
	}
	return nil
}

// GuardRoomWrite applies the 1:1 write gate: the sender and the other
// member must still share a school and must not be in a block relation.
// Group rooms pass untouched whatever their size, a two-member group
// included. The school check is retroactive: a room valid at creation
// becomes write-restricted the moment an affiliation changes.
func (s *ModerationService) GuardRoomWrite(ctx context.Context, sender *models.User, room *models.ChatRoom) error {
	if room.IsGroup {
		return nil
	}

	var otherID uint
	for _, m := range room.Members {
		if m.UserID != sender.ID {
			otherID = m.UserID
			break
		}
	}
	if otherID == 0 {
		// Self room.
		return nil
	}

	if err := s.EnsureCanPair(ctx, sender.ID, otherID); err != nil {
		return err
	}

	other, err := s.userRepo.GetByID(ctx, otherID)
	if err != nil {
		return err
	}
	if sender.SchoolCode != other.SchoolCode {
		return models.NewForbiddenError("You are no longer at the same school as this user")
	}
	return nil
}

// BanUser applies an admin ban. Permanent bans clear the timestamp; timed
// bans record when the clock started.
func (s *ModerationService) BanUser(ctx context.Context, targetID uint, kind models.BanKind, reason string) error {
	if !kind.Valid() {
		return models.NewValidationError("Unknown ban kind")
	}
	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target.IsAdmin() {
		return models.NewForbiddenError("Admins cannot be banned")
	}
	return s.userRepo.SetBan(ctx, targetID, kind, reason, s.now())
}

// UnbanUser lifts any ban, permanent or timed. This is the only path that
// zeroes the ban fields.
func (s *ModerationService) UnbanUser(ctx context.Context, targetID uint) error {
	return s.userRepo.ClearBan(ctx, targetID)
}
