package repository

import (
	"context"
	"errors"
	"math"
	"time"

	"homeroom/internal/models"

	"gorm.io/gorm"
)

// PollRepository defines persistence operations for message polls and votes.
type PollRepository interface {
	GetPoll(ctx context.Context, messageID uint) (*models.MessagePoll, error)
	GetVote(ctx context.Context, messageID, userID uint) (*models.PollVote, error)
	CreateVote(ctx context.Context, vote *models.PollVote) error
	DeleteVote(ctx context.Context, messageID, userID uint) error
	Close(ctx context.Context, messageID uint, closedAt time.Time) error
	Tally(ctx context.Context, poll *models.MessagePoll) ([]models.PollOptionTally, error)
}

type pollRepository struct {
	db *gorm.DB
}

// NewPollRepository returns a new PollRepository implementation.
func NewPollRepository(db *gorm.DB) PollRepository {
	return &pollRepository{db: db}
}

func (r *pollRepository) GetPoll(ctx context.Context, messageID uint) (*models.MessagePoll, error) {
	var poll models.MessagePoll
	if err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		First(&poll).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Poll", messageID)
		}
		return nil, models.NewInternalError(err)
	}
	return &poll, nil
}

func (r *pollRepository) GetVote(ctx context.Context, messageID, userID uint) (*models.PollVote, error) {
	var vote models.PollVote
	if err := r.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ?", messageID, userID).
		First(&vote).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &vote, nil
}

// CreateVote inserts the voter's single vote. The composite primary key
// turns a second vote into a conflict.
func (r *pollRepository) CreateVote(ctx context.Context, vote *models.PollVote) error {
	if err := r.db.WithContext(ctx).Create(vote).Error; err != nil {
		if IsUniqueConstraintError(err) {
			return models.NewConflictError("Already voted")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *pollRepository) DeleteVote(ctx context.Context, messageID, userID uint) error {
	res := r.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ?", messageID, userID).
		Delete(&models.PollVote{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Vote", messageID)
	}
	return nil
}

// Close stamps the poll closed. A closed_at in the future is only a
// schedule, so it is pulled forward; closing an already-closed poll is a
// no-op and keeps the original timestamp.
func (r *pollRepository) Close(ctx context.Context, messageID uint, closedAt time.Time) error {
	if err := r.db.WithContext(ctx).
		Model(&models.MessagePoll{}).
		Where("message_id = ?", messageID).
		Where("closed_at IS NULL OR closed_at > ?", closedAt).
		Update("closed_at", closedAt).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Tally aggregates votes per option. Every declared option appears in the
// result, zero-vote options included. Voter identities are withheld for
// anonymous polls.
func (r *pollRepository) Tally(ctx context.Context, poll *models.MessagePoll) ([]models.PollOptionTally, error) {
	var votes []models.PollVote
	if err := r.db.WithContext(ctx).
		Where("message_id = ?", poll.MessageID).
		Order("created_at ASC").
		Find(&votes).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	byOption := make(map[string][]uint, len(poll.Options))
	for _, v := range votes {
		byOption[v.OptionID] = append(byOption[v.OptionID], v.UserID)
	}
	total := len(votes)

	tallies := make([]models.PollOptionTally, 0, len(poll.Options))
	for _, opt := range poll.Options {
		voters := byOption[opt.OptionID]
		t := models.PollOptionTally{
			OptionID: opt.OptionID,
			Text:     opt.Text,
			Votes:    int64(len(voters)),
		}
		if total > 0 {
			t.Percent = math.Round(float64(len(voters))/float64(total)*1000) / 10
		}
		if !poll.Anonymous {
			t.VoterIDs = voters
		}
		tallies = append(tallies, t)
	}
	return tallies, nil
}
