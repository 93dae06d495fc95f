// Package models contains data structures for the application's domain models.
package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// MessageType distinguishes the kinds of chat messages.
type MessageType string

const (
	// MessageTypeText is a plain text message.
	MessageTypeText MessageType = "text"
	// MessageTypeImage is an image message carrying a blob reference.
	MessageTypeImage MessageType = "image"
	// MessageTypeFile is a generic file message carrying a blob reference.
	MessageTypeFile MessageType = "file"
	// MessageTypeNotice is a pinned announcement, member-only.
	MessageTypeNotice MessageType = "notice"
	// MessageTypePoll is a message carrying an embedded poll.
	MessageTypePoll MessageType = "poll"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeNotice, MessageTypePoll:
		return true
	}
	return false
}

// ChatRoom represents a chat room. A room starts as 1:1 (IsGroup=false) and
// may be promoted to group on invite; it is never demoted. A self room has
// exactly one member who is also its creator.
type ChatRoom struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `json:"name"`
	IsGroup   bool   `gorm:"default:false" json:"is_group"`
	IsSelf    bool   `gorm:"default:false" json:"is_self"`
	CreatorID uint   `gorm:"not null;index" json:"creator_id"`

	// PairKey is the membership-identity key that makes check-then-insert
	// dedup race-free: "dm:<lo>:<hi>" for 1:1 rooms, "self:<creator>" for
	// self rooms, nil for group rooms. A unique-index conflict on insert
	// means the room already exists and is fetched instead.
	PairKey *string `gorm:"uniqueIndex;size:64" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Members  []RoomMember  `gorm:"foreignKey:RoomID" json:"members,omitempty"`
	Messages []ChatMessage `gorm:"foreignKey:RoomID" json:"messages,omitempty"`

	UnreadCount int64 `gorm:"-" json:"unread_count"`
}

// HasMember reports whether the user appears in the room's loaded members.
func (r *ChatRoom) HasMember(userID uint) bool {
	for _, m := range r.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// MemberIDs returns the user ids of the room's loaded members.
func (r *ChatRoom) MemberIDs() []uint {
	ids := make([]uint, 0, len(r.Members))
	for _, m := range r.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// DirectPairKey builds the 1:1 membership identity key; member order does not
// matter.
func DirectPairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("dm:%d:%d", a, b)
}

// SelfPairKey builds the self-room identity key for a creator.
func SelfPairKey(creatorID uint) string {
	return fmt.Sprintf("self:%d", creatorID)
}

// RoomMember is the membership row joining a room and a user. It carries the
// per-member read cursor used by the unread tracker.
type RoomMember struct {
	RoomID uint `gorm:"primaryKey;autoIncrement:false" json:"room_id"`
	UserID uint `gorm:"primaryKey;autoIncrement:false" json:"user_id"`

	// LastReadMessageID is nil until the member first marks the room read.
	LastReadMessageID *uint     `json:"last_read_message_id,omitempty"`
	JoinedAt          time.Time `gorm:"autoCreateTime" json:"joined_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName specifies the table name for GORM.
func (RoomMember) TableName() string {
	return "room_members"
}

// ChatMessage represents a chat message. Rows are immutable after insert;
// the only mutation path is deletion (hard within 24h of creation, per-viewer
// hide afterwards).
type ChatMessage struct {
	ID       uint        `gorm:"primaryKey" json:"id"`
	RoomID   uint        `gorm:"not null;index" json:"room_id"`
	SenderID uint        `gorm:"not null;index" json:"sender_id"`
	Type     MessageType `gorm:"type:varchar(16);default:'text'" json:"type"`
	Content  string      `gorm:"type:text" json:"content"`

	// FileURL references the backing object in the blob store for image and
	// file messages. Purged together with the row on hard delete.
	FileURL string `gorm:"type:text" json:"file_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	Sender *User        `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Poll   *MessagePoll `gorm:"foreignKey:MessageID" json:"poll,omitempty"`
}

// MessageHide records that one viewer has hidden a message for themselves.
// A message past its hard-delete window accumulates hide rows instead of
// being removed.
type MessageHide struct {
	MessageID uint      `gorm:"primaryKey;autoIncrement:false" json:"message_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (MessageHide) TableName() string {
	return "message_hides"
}
