package models

import "time"

// ChatReport records an abuse report against a message. The unique index on
// (message_id, reporter_id) is the source of truth for "one report per
// reporter per message" — the service treats a constraint violation as a
// conflict rather than pre-checking alone.
type ChatReport struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RoomID         uint      `gorm:"not null;index" json:"room_id"`
	MessageID      uint      `gorm:"not null;uniqueIndex:idx_chat_reports_once" json:"message_id"`
	ReporterID     uint      `gorm:"not null;uniqueIndex:idx_chat_reports_once" json:"reporter_id"`
	ReportedUserID uint      `gorm:"not null;index" json:"reported_user_id"`
	Reason         string    `gorm:"type:text" json:"reason"`
	CreatedAt      time.Time `json:"created_at"`

	Reporter     *User `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`
	ReportedUser *User `gorm:"foreignKey:ReportedUserID" json:"reported_user,omitempty"`
}

// TableName specifies the table name for GORM.
func (ChatReport) TableName() string {
	return "chat_reports"
}
