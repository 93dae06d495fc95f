package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"homeroom/internal/cache"
	"homeroom/internal/middleware"
	"homeroom/internal/models"
	"homeroom/internal/notifications"
	"homeroom/internal/objectstore"
	"homeroom/internal/repository"
)

const (
	maxMessageContentLen = 10000
	maxBulkImages        = 10

	// Messages younger than this are removed for everyone on delete;
	// older ones are only hidden from the deleter. A hard business rule,
	// not configurable per room.
	hardDeleteWindow = 24 * time.Hour
)

// SendMessageInput is the input for sending a single message.
type SendMessageInput struct {
	SenderID uint
	RoomID   uint
	Type     models.MessageType
	Content  string
	FileURL  string
}

// DeleteOutcome reports how a delete request was resolved.
type DeleteOutcome string

const (
	// DeletedForAll means the row was removed for every member.
	DeletedForAll DeleteOutcome = "deleted_for_all"
	// DeletedForMe means the message was hidden from the deleter only.
	DeletedForMe DeleteOutcome = "deleted_for_me"
)

// MessageService provides message append, listing and the delete policy.
type MessageService struct {
	messageRepo repository.MessageRepository
	roomRepo    repository.RoomRepository
	moderation  *ModerationService
	publisher   notifications.Publisher
	blobs       objectstore.Store
	now         func() time.Time
}

// NewMessageService returns a new MessageService.
func NewMessageService(
	messageRepo repository.MessageRepository,
	roomRepo repository.RoomRepository,
	moderation *ModerationService,
	publisher notifications.Publisher,
	blobs objectstore.Store,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		roomRepo:    roomRepo,
		moderation:  moderation,
		publisher:   publisher,
		blobs:       blobs,
		now:         time.Now,
	}
}

// Send appends one immutable message after the full guard chain: active
// membership, ban, block and school-affiliation.
func (s *MessageService) Send(ctx context.Context, in SendMessageInput) (*models.ChatMessage, error) {
	if !in.Type.Valid() || in.Type == models.MessageTypePoll {
		return nil, models.NewValidationError("Invalid message type")
	}
	sender, room, err := s.guardSend(ctx, in.SenderID, in.RoomID)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(in.Content)
	if content == "" && in.FileURL == "" {
		return nil, models.NewValidationError("Message content cannot be empty")
	}
	if len(content) > maxMessageContentLen {
		return nil, models.NewValidationError("Message content is too long")
	}
	if (in.Type == models.MessageTypeImage || in.Type == models.MessageTypeFile) && in.FileURL == "" {
		return nil, models.NewValidationError("File messages require a file reference")
	}

	msg := &models.ChatMessage{
		RoomID:   in.RoomID,
		SenderID: sender.ID,
		Type:     in.Type,
		Content:  content,
		FileURL:  in.FileURL,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	middleware.ChatMessagesSent.WithLabelValues(string(in.Type)).Inc()
	s.fanOut(ctx, room, notifications.Event{Type: notifications.EventMessageNew, Payload: msg})
	cache.InvalidateRoom(ctx, room.ID, room.MemberIDs()...)
	return msg, nil
}

// SendNotice appends a notice message; the guard chain matches Send.
func (s *MessageService) SendNotice(ctx context.Context, senderID, roomID uint, content string) (*models.ChatMessage, error) {
	return s.Send(ctx, SendMessageInput{
		SenderID: senderID,
		RoomID:   roomID,
		Type:     models.MessageTypeNotice,
		Content:  content,
	})
}

// SendBulkImages runs the guard chain once and appends one image message
// per URL in a single transaction.
func (s *MessageService) SendBulkImages(ctx context.Context, senderID, roomID uint, fileURLs []string) ([]models.ChatMessage, error) {
	if len(fileURLs) == 0 {
		return nil, models.NewValidationError("No images provided")
	}
	if len(fileURLs) > maxBulkImages {
		return nil, models.NewValidationError("Too many images in one batch")
	}
	sender, room, err := s.guardSend(ctx, senderID, roomID)
	if err != nil {
		return nil, err
	}

	msgs := make([]models.ChatMessage, 0, len(fileURLs))
	for _, url := range fileURLs {
		if url == "" {
			return nil, models.NewValidationError("Empty file reference in batch")
		}
		msgs = append(msgs, models.ChatMessage{
			RoomID:   roomID,
			SenderID: sender.ID,
			Type:     models.MessageTypeImage,
			FileURL:  url,
		})
	}
	if err := s.messageRepo.CreateBatch(ctx, msgs); err != nil {
		return nil, err
	}

	middleware.ChatMessagesSent.WithLabelValues(string(models.MessageTypeImage)).Add(float64(len(msgs)))
	for i := range msgs {
		s.fanOut(ctx, room, notifications.Event{Type: notifications.EventMessageNew, Payload: &msgs[i]})
	}
	cache.InvalidateRoom(ctx, room.ID, room.MemberIDs()...)
	return msgs, nil
}

// List returns the room's messages as the viewer sees them. Reads are not
// gated by ban status.
func (s *MessageService) List(ctx context.Context, roomID, viewerID uint, limit, offset int) ([]models.ChatMessage, error) {
	member, err := s.roomRepo.IsMember(ctx, roomID, viewerID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, models.NewForbiddenError("You are not a member of this room")
	}
	return s.messageRepo.ListForUser(ctx, roomID, viewerID, limit, offset)
}

// Delete resolves a sender's delete request against the 24-hour window:
// young messages are removed for everyone (including any backing blob),
// old ones are merely hidden from the deleter.
func (s *MessageService) Delete(ctx context.Context, messageID, actorID uint) (DeleteOutcome, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return "", err
	}
	if msg.SenderID != actorID {
		return "", models.NewForbiddenError("Only the sender can delete a message")
	}

	if s.now().Sub(msg.CreatedAt) > hardDeleteWindow {
		if err := s.messageRepo.Hide(ctx, messageID, actorID); err != nil {
			return "", err
		}
		return DeletedForMe, nil
	}

	if err := s.hardDelete(ctx, msg); err != nil {
		return "", err
	}
	return DeletedForAll, nil
}

// DeleteNotice removes a notice. Sender-only, hard delete regardless of
// age, and the ban gate applies even to deleting one's own prior notice.
func (s *MessageService) DeleteNotice(ctx context.Context, messageID, actorID uint) error {
	if _, err := s.moderation.EnsureActive(ctx, actorID); err != nil {
		return err
	}
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.Type != models.MessageTypeNotice {
		return models.NewValidationError("Message is not a notice")
	}
	if msg.SenderID != actorID {
		return models.NewForbiddenError("Only the sender can delete a notice")
	}
	return s.hardDelete(ctx, msg)
}

func (s *MessageService) hardDelete(ctx context.Context, msg *models.ChatMessage) error {
	if err := s.messageRepo.HardDelete(ctx, msg.ID); err != nil {
		return err
	}
	if msg.FileURL != "" && s.blobs != nil {
		// Best effort: the row is gone either way.
		if err := s.blobs.Delete(ctx, msg.FileURL); err != nil {
			slog.WarnContext(ctx, "blob purge failed", "message_id", msg.ID, "error", err)
		}
	}
	_ = s.publisher.PublishRoom(ctx, msg.RoomID, notifications.Event{
		Type:    notifications.EventMessageDeleted,
		Payload: map[string]interface{}{"message_id": msg.ID},
	})
	return nil
}

// guardSend runs the full mutating-write guard chain and returns the
// loaded sender and room.
func (s *MessageService) guardSend(ctx context.Context, senderID, roomID uint) (*models.User, *models.ChatRoom, error) {
	sender, err := s.moderation.EnsureActive(ctx, senderID)
	if err != nil {
		return nil, nil, err
	}
	room, err := s.roomRepo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	if !room.HasMember(senderID) {
		return nil, nil, models.NewForbiddenError("You are not a member of this room")
	}
	if err := s.moderation.GuardRoomWrite(ctx, sender, room); err != nil {
		return nil, nil, err
	}
	return sender, room, nil
}

func (s *MessageService) fanOut(ctx context.Context, room *models.ChatRoom, event notifications.Event) {
	if err := s.publisher.PublishRoom(ctx, room.ID, event); err != nil {
		slog.WarnContext(ctx, "room event publish failed", "room_id", room.ID, "error", err)
	}
	for _, id := range room.MemberIDs() {
		_ = s.publisher.PublishUser(ctx, id, event)
	}
}
