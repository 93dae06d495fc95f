package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PollOption is a single choice in a poll. The option set is fixed once the
// poll message is created.
type PollOption struct {
	OptionID string `json:"option_id"`
	Text     string `json:"text"`
}

// PollOptions is the ordered option list, stored as a JSON column.
type PollOptions []PollOption

// Value implements driver.Valuer.
func (o PollOptions) Value() (driver.Value, error) {
	return json.Marshal(o)
}

// Scan implements sql.Scanner.
func (o *PollOptions) Scan(value interface{}) error {
	if value == nil {
		*o = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, o)
	case string:
		return json.Unmarshal([]byte(v), o)
	default:
		return fmt.Errorf("unsupported poll options column type %T", value)
	}
}

// MessagePoll carries the poll embedded in a poll-type message. Title,
// options and anonymity are immutable after creation; only ClosedAt changes.
type MessagePoll struct {
	MessageID uint        `gorm:"primaryKey;autoIncrement:false" json:"message_id"`
	Title     string      `gorm:"not null" json:"title"`
	Anonymous bool        `gorm:"default:false" json:"anonymous"`
	ClosedAt  *time.Time  `json:"closed_at,omitempty"`
	Options   PollOptions `gorm:"type:json" json:"options"`
}

// TableName specifies the table name for GORM.
func (MessagePoll) TableName() string {
	return "message_polls"
}

// HasOption reports whether optionID is among the poll's options.
func (p *MessagePoll) HasOption(optionID string) bool {
	for _, opt := range p.Options {
		if opt.OptionID == optionID {
			return true
		}
	}
	return false
}

// ClosedNow reports whether the poll is closed at the given instant. ClosedAt
// may be scheduled in the future, so it is evaluated lazily rather than
// treated as a boolean.
func (p *MessagePoll) ClosedNow(now time.Time) bool {
	return p.ClosedAt != nil && !now.Before(*p.ClosedAt)
}

// PollVote is one user's vote on a poll message. The composite primary key
// enforces at most one row per (message, user); changing a vote means
// deleting the row and inserting a new one, never updating in place.
type PollVote struct {
	MessageID uint      `gorm:"primaryKey;autoIncrement:false" json:"message_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	OptionID  string    `gorm:"size:64;not null" json:"option_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (PollVote) TableName() string {
	return "poll_votes"
}

// PollOptionTally is the derived per-option result.
type PollOptionTally struct {
	OptionID string  `json:"option_id"`
	Text     string  `json:"text"`
	Votes    int64   `json:"votes"`
	Percent  float64 `json:"percent"`
	VoterIDs []uint  `json:"voter_ids,omitempty"` // omitted for anonymous polls
}
