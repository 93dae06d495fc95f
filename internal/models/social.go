package models

import "time"

// UserBlock is a directed block edge. A block in either direction between the
// two members of a 1:1 room prevents messaging in that room.
type UserBlock struct {
	BlockerID uint      `gorm:"primaryKey;autoIncrement:false" json:"blocker_id"`
	BlockedID uint      `gorm:"primaryKey;autoIncrement:false" json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`

	Blocked *User `gorm:"foreignKey:BlockedID" json:"blocked,omitempty"`
}

// TableName specifies the table name for GORM.
func (UserBlock) TableName() string {
	return "user_blocks"
}

// Friend is a directed friend edge. Informational only; it gates nothing.
type Friend struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	FriendID  uint      `gorm:"primaryKey;autoIncrement:false" json:"friend_id"`
	CreatedAt time.Time `json:"created_at"`

	FriendUser *User `gorm:"foreignKey:FriendID" json:"friend,omitempty"`
}

// TableName specifies the table name for GORM.
func (Friend) TableName() string {
	return "friends"
}
