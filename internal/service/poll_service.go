package service

import (
	"context"
	"strings"
	"time"

	"homeroom/internal/middleware"
	"homeroom/internal/models"
	"homeroom/internal/notifications"
	"homeroom/internal/repository"

	"github.com/google/uuid"
)

const (
	maxPollTitleLen  = 200
	maxPollOptions   = 10
	maxPollOptionLen = 100
)

// CreatePollInput is the input for creating a poll message.
type CreatePollInput struct {
	SenderID  uint
	RoomID    uint
	Title     string
	Options   []string
	Anonymous bool
	ClosesAt  *time.Time
}

// PollResult is the derived read-time view of a poll.
type PollResult struct {
	MessageID  uint                     `json:"message_id"`
	Title      string                   `json:"title"`
	Anonymous  bool                     `json:"anonymous"`
	Closed     bool                     `json:"closed"`
	ClosedAt   *time.Time               `json:"closed_at,omitempty"`
	TotalVotes int64                    `json:"total_votes"`
	Options    []models.PollOptionTally `json:"options"`
	MyOptionID string                   `json:"my_option_id,omitempty"`
}

// PollService provides the poll state machine: create, vote, unvote,
// close, tally.
type PollService struct {
	pollRepo    repository.PollRepository
	messageRepo repository.MessageRepository
	roomRepo    repository.RoomRepository
	moderation  *ModerationService
	publisher   notifications.Publisher
	now         func() time.Time
}

// NewPollService returns a new PollService.
func NewPollService(
	pollRepo repository.PollRepository,
	messageRepo repository.MessageRepository,
	roomRepo repository.RoomRepository,
	moderation *ModerationService,
	publisher notifications.Publisher,
) *PollService {
	return &PollService{
		pollRepo:    pollRepo,
		messageRepo: messageRepo,
		roomRepo:    roomRepo,
		moderation:  moderation,
		publisher:   publisher,
		now:         time.Now,
	}
}

// Create embeds a new poll in a poll-type message. Once created the option
// list and anonymity flag are immutable; only closedAt and votes change.
func (s *PollService) Create(ctx context.Context, in CreatePollInput) (*models.ChatMessage, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewValidationError("Poll title cannot be empty")
	}
	if len(title) > maxPollTitleLen {
		return nil, models.NewValidationError("Poll title is too long")
	}
	if len(in.Options) < 2 {
		return nil, models.NewValidationError("Polls need at least two options")
	}
	if len(in.Options) > maxPollOptions {
		return nil, models.NewValidationError("Too many poll options")
	}
	if in.ClosesAt != nil && in.ClosesAt.Before(s.now()) {
		return nil, models.NewValidationError("Poll close time is in the past")
	}

	options := make(models.PollOptions, 0, len(in.Options))
	for _, text := range in.Options {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, models.NewValidationError("Poll options cannot be empty")
		}
		if len(text) > maxPollOptionLen {
			return nil, models.NewValidationError("Poll option is too long")
		}
		options = append(options, models.PollOption{
			OptionID: uuid.NewString(),
			Text:     text,
		})
	}

	sender, err := s.moderation.EnsureActive(ctx, in.SenderID)
	if err != nil {
		return nil, err
	}
	room, err := s.roomRepo.GetRoom(ctx, in.RoomID)
	if err != nil {
		return nil, err
	}
	if !room.HasMember(in.SenderID) {
		return nil, models.NewForbiddenError("You are not a member of this room")
	}
	if err := s.moderation.GuardRoomWrite(ctx, sender, room); err != nil {
		return nil, err
	}

	msg := &models.ChatMessage{
		RoomID:   in.RoomID,
		SenderID: in.SenderID,
		Type:     models.MessageTypePoll,
		Content:  title,
		Poll: &models.MessagePoll{
			Title:     title,
			Anonymous: in.Anonymous,
			ClosedAt:  in.ClosesAt,
			Options:   options,
		},
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	middleware.ChatMessagesSent.WithLabelValues(string(models.MessageTypePoll)).Inc()
	_ = s.publisher.PublishRoom(ctx, in.RoomID, notifications.Event{
		Type:    notifications.EventMessageNew,
		Payload: msg,
	})
	return msg, nil
}

// Vote records the caller's single vote. Closedness is evaluated lazily
// against the current time. A second vote without an intervening unvote is
// a conflict, not a silent replacement.
func (s *PollService) Vote(ctx context.Context, messageID, userID uint, optionID string) error {
	poll, err := s.guardPollAccess(ctx, messageID, userID)
	if err != nil {
		return err
	}
	if poll.ClosedNow(s.now()) {
		return models.NewValidationError("Poll is closed")
	}
	if !poll.HasOption(optionID) {
		return models.NewValidationError("Unknown poll option")
	}

	if err := s.pollRepo.CreateVote(ctx, &models.PollVote{
		MessageID: messageID,
		UserID:    userID,
		OptionID:  optionID,
	}); err != nil {
		return err
	}

	_ = s.publishPollEvent(ctx, messageID, notifications.EventPollVote)
	return nil
}

// Unvote removes the caller's vote; rejected once the poll is closed.
func (s *PollService) Unvote(ctx context.Context, messageID, userID uint) error {
	poll, err := s.guardPollAccess(ctx, messageID, userID)
	if err != nil {
		return err
	}
	if poll.ClosedNow(s.now()) {
		return models.NewValidationError("Poll is closed")
	}
	if err := s.pollRepo.DeleteVote(ctx, messageID, userID); err != nil {
		return err
	}

	_ = s.publishPollEvent(ctx, messageID, notifications.EventPollVote)
	return nil
}

// Close ends the poll immediately, overriding any scheduled close time.
// Owner-only; closing an already-closed poll is a no-op.
func (s *PollService) Close(ctx context.Context, messageID, userID uint) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.Poll == nil {
		return models.NewNotFoundError("Poll", messageID)
	}
	if msg.SenderID != userID {
		return models.NewForbiddenError("Only the poll owner can close it")
	}
	if err := s.pollRepo.Close(ctx, messageID, s.now()); err != nil {
		return err
	}

	_ = s.publisher.PublishRoom(ctx, msg.RoomID, notifications.Event{
		Type:    notifications.EventPollClosed,
		Payload: map[string]interface{}{"message_id": messageID},
	})
	return nil
}

// Results computes the derived tally: per-option counts and percentages,
// zero-division guarded, voter identities withheld for anonymous polls.
func (s *PollService) Results(ctx context.Context, messageID, userID uint) (*PollResult, error) {
	poll, err := s.guardPollAccess(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}
	tallies, err := s.pollRepo.Tally(ctx, poll)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, t := range tallies {
		total += t.Votes
	}

	result := &PollResult{
		MessageID:  messageID,
		Title:      poll.Title,
		Anonymous:  poll.Anonymous,
		Closed:     poll.ClosedNow(s.now()),
		ClosedAt:   poll.ClosedAt,
		TotalVotes: total,
		Options:    tallies,
	}
	if vote, err := s.pollRepo.GetVote(ctx, messageID, userID); err != nil {
		return nil, err
	} else if vote != nil {
		result.MyOptionID = vote.OptionID
	}
	return result, nil
}

// guardPollAccess loads the poll and verifies the caller is a member of
// the room the poll message lives in.
func (s *PollService) guardPollAccess(ctx context.Context, messageID, userID uint) (*models.MessagePoll, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Poll == nil {
		return nil, models.NewNotFoundError("Poll", messageID)
	}
	member, err := s.roomRepo.IsMember(ctx, msg.RoomID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, models.NewForbiddenError("You are not a member of this room")
	}
	return msg.Poll, nil
}

func (s *PollService) publishPollEvent(ctx context.Context, messageID uint, eventType string) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	return s.publisher.PublishRoom(ctx, msg.RoomID, notifications.Event{
		Type:    eventType,
		Payload: map[string]interface{}{"message_id": messageID},
	})
}
