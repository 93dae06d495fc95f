package service

import (
	"context"
	"strings"
	"time"

	"homeroom/internal/cache"
	"homeroom/internal/models"
	"homeroom/internal/notifications"
	"homeroom/internal/repository"
)

const (
	maxRoomNameLen = 80
	selfRoomName   = "self-chat"
)

// CreateRoomInput is the input for creating (or deduplicating) a room.
type CreateRoomInput struct {
	CreatorID uint
	Name      string
	IsGroup   bool
	MemberIDs []uint
}

// RoomService provides room lifecycle and membership logic.
type RoomService struct {
	roomRepo    repository.RoomRepository
	messageRepo repository.MessageRepository
	moderation  *ModerationService
	publisher   notifications.Publisher
	now         func() time.Time
}

// NewRoomService returns a new RoomService.
func NewRoomService(
	roomRepo repository.RoomRepository,
	messageRepo repository.MessageRepository,
	moderation *ModerationService,
	publisher notifications.Publisher,
) *RoomService {
	return &RoomService{
		roomRepo:    roomRepo,
		messageRepo: messageRepo,
		moderation:  moderation,
		publisher:   publisher,
		now:         time.Now,
	}
}

// CreateRoom creates a room, or returns the existing one when the member
// set identifies a room that already exists. The creator is folded into
// the member set first, then the set is classified:
//
//   - exactly {creator}: self chat, idempotent per creator
//   - exactly two members, group not requested: 1:1, deduplicated by
//     membership identity regardless of member order
//   - anything else: a fresh group room
//
// The pair-key unique index closes the check-then-insert race: a loser of
// a concurrent duplicate create fetches the winner's room instead of
// erroring.
//
// The second return value reports whether the room was freshly created;
// a dedup hit returns the existing room with false.
func (s *RoomService) CreateRoom(ctx context.Context, in CreateRoomInput) (*models.ChatRoom, bool, error) {
	if _, err := s.moderation.EnsureActive(ctx, in.CreatorID); err != nil {
		return nil, false, err
	}

	members := dedupeMembers(in.CreatorID, in.MemberIDs)

	switch {
	case len(members) == 1:
		return s.openKeyedRoom(ctx, &models.ChatRoom{
			Name:      selfRoomName,
			IsSelf:    true,
			CreatorID: in.CreatorID,
		}, models.SelfPairKey(in.CreatorID), members)

	case len(members) == 2 && !in.IsGroup:
		other := members[0]
		if other == in.CreatorID {
			other = members[1]
		}
		if err := s.moderation.EnsureCanPair(ctx, in.CreatorID, other); err != nil {
			return nil, false, err
		}
		return s.openKeyedRoom(ctx, &models.ChatRoom{
			Name:      strings.TrimSpace(in.Name),
			CreatorID: in.CreatorID,
		}, models.DirectPairKey(in.CreatorID, other), members)

	default:
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, false, models.NewValidationError("Group rooms require a name")
		}
		if len(name) > maxRoomNameLen {
			return nil, false, models.NewValidationError("Room name is too long")
		}
		room := &models.ChatRoom{Name: name, IsGroup: true, CreatorID: in.CreatorID}
		if err := s.roomRepo.CreateRoomWithMembers(ctx, room, members); err != nil {
			return nil, false, err
		}
		cache.InvalidateRoom(ctx, room.ID, members...)
		loaded, err := s.roomRepo.GetRoom(ctx, room.ID)
		return loaded, true, err
	}
}

// openKeyedRoom creates a pair-keyed room (self or 1:1), returning the
// existing room (created=false) when one already holds the key.
func (s *RoomService) openKeyedRoom(ctx context.Context, room *models.ChatRoom, pairKey string, memberIDs []uint) (*models.ChatRoom, bool, error) {
	if existing, err := s.roomRepo.GetByPairKey(ctx, pairKey); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}

	room.PairKey = &pairKey
	err := s.roomRepo.CreateRoomWithMembers(ctx, room, memberIDs)
	if models.IsConflict(err) {
		existing, getErr := s.roomRepo.GetByPairKey(ctx, pairKey)
		if getErr != nil {
			return nil, false, getErr
		}
		if existing != nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	if err != nil {
		return nil, false, err
	}

	cache.InvalidateRoom(ctx, room.ID, memberIDs...)
	loaded, err := s.roomRepo.GetRoom(ctx, room.ID)
	return loaded, true, err
}

// ListRooms returns the actor's rooms ordered by latest activity, each
// annotated with its unread count.
func (s *RoomService) ListRooms(ctx context.Context, userID uint) ([]models.ChatRoom, error) {
	rooms, err := s.roomRepo.FindUserRooms(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range rooms {
		var cursor uint
		for _, m := range rooms[i].Members {
			if m.UserID == userID && m.LastReadMessageID != nil {
				cursor = *m.LastReadMessageID
			}
		}
		count, err := s.messageRepo.CountAfter(ctx, rooms[i].ID, userID, cursor)
		if err != nil {
			return nil, err
		}
		rooms[i].UnreadCount = count
	}
	return rooms, nil
}

// GetRoomForUser returns the room if the user is a member.
func (s *RoomService) GetRoomForUser(ctx context.Context, roomID, userID uint) (*models.ChatRoom, error) {
	room, err := s.roomRepo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasMember(userID) {
		return nil, models.NewForbiddenError("You are not a member of this room")
	}
	return room, nil
}

// InviteMembers adds users to a room. Any current member may invite;
// already-member inserts are no-ops. Inviting into a 1:1 or self room
// promotes it to a group permanently, which also drops its pair key so
// the original pair can open a fresh 1:1 later.
func (s *RoomService) InviteMembers(ctx context.Context, roomID, actorID uint, inviteeIDs []uint) (*models.ChatRoom, error) {
	room, err := s.GetRoomForUser(ctx, roomID, actorID)
	if err != nil {
		return nil, err
	}

	added := false
	for _, id := range inviteeIDs {
		if room.HasMember(id) {
			continue
		}
		if err := s.roomRepo.AddMember(ctx, roomID, id); err != nil {
			return nil, err
		}
		added = true
	}

	if added && !room.IsGroup {
		if err := s.roomRepo.PromoteToGroup(ctx, roomID); err != nil {
			return nil, err
		}
	}
	if added {
		s.postNotice(ctx, room, "New members joined the room")
		cache.InvalidateRoom(ctx, roomID, append(room.MemberIDs(), inviteeIDs...)...)
	}
	return s.roomRepo.GetRoom(ctx, roomID)
}

// LeaveRoom removes the caller's own membership row only; the room itself
// survives even when it empties out.
func (s *RoomService) LeaveRoom(ctx context.Context, roomID, actorID uint) error {
	room, err := s.GetRoomForUser(ctx, roomID, actorID)
	if err != nil {
		return err
	}
	if err := s.roomRepo.RemoveMember(ctx, roomID, actorID); err != nil {
		return err
	}
	s.postNotice(ctx, room, "A member left the room")
	cache.InvalidateRoom(ctx, roomID, room.MemberIDs()...)
	return nil
}

// RenameRoom renames the room. Any current member may; non-members are
// rejected.
func (s *RoomService) RenameRoom(ctx context.Context, roomID, actorID uint, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.NewValidationError("Room name cannot be empty")
	}
	if len(name) > maxRoomNameLen {
		return models.NewValidationError("Room name is too long")
	}

	room, err := s.GetRoomForUser(ctx, roomID, actorID)
	if err != nil {
		return err
	}
	if err := s.roomRepo.Rename(ctx, roomID, name); err != nil {
		return err
	}

	_ = s.publisher.PublishRoom(ctx, roomID, notifications.Event{
		Type:    notifications.EventRoomUpdated,
		Payload: map[string]interface{}{"name": name},
	})
	cache.InvalidateRoom(ctx, roomID, room.MemberIDs()...)
	return nil
}

// DeleteRoom removes the room and all its content. The creator may delete
// unconditionally; a non-creator only as the last remaining member.
// Admins may always delete.
func (s *RoomService) DeleteRoom(ctx context.Context, roomID, actorID uint) error {
	actor, err := s.moderation.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	room, err := s.roomRepo.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}

	allowed := actor.IsAdmin() || room.CreatorID == actorID ||
		(room.HasMember(actorID) && len(room.Members) == 1)
	if !allowed {
		return models.NewForbiddenError("Only the room creator or its last member can delete it")
	}

	memberIDs := room.MemberIDs()
	if err := s.roomRepo.DeleteRoomCascade(ctx, roomID); err != nil {
		return err
	}

	cache.InvalidateRoom(ctx, roomID, memberIDs...)
	return nil
}

func (s *RoomService) postNotice(ctx context.Context, room *models.ChatRoom, text string) {
	notice := &models.ChatMessage{
		RoomID:   room.ID,
		SenderID: room.CreatorID,
		Type:     models.MessageTypeNotice,
		Content:  text,
	}
	if err := s.messageRepo.Create(ctx, notice); err != nil {
		return
	}
	_ = s.publisher.PublishRoom(ctx, room.ID, notifications.Event{
		Type:    notifications.EventRoomNotice,
		Payload: notice,
	})
}

func dedupeMembers(creatorID uint, memberIDs []uint) []uint {
	out := []uint{creatorID}
	seen := map[uint]struct{}{creatorID: {}}
	for _, id := range memberIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
