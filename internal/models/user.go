// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// UserRole identifies the account's role within the platform.
type UserRole string

const (
	// RoleStudent is the default role for school accounts.
	RoleStudent UserRole = "student"
	// RoleAdmin marks platform administrators who triage reports.
	RoleAdmin UserRole = "admin"
)

// BanKind is the enumerated duration category of a time-boxed ban. It is set
// at ban-creation time, decoupled from the human-readable reason text.
type BanKind string

const (
	// BanKind24h is a 24 hour restriction.
	BanKind24h BanKind = "24h"
	// BanKind72h is a 72 hour restriction.
	BanKind72h BanKind = "72h"
	// BanKind7d is a seven day restriction.
	BanKind7d BanKind = "7d"
	// BanKindPermanent is a terminal restriction with no expiry.
	BanKindPermanent BanKind = "permanent"
)

// Valid reports whether the kind is one of the declared categories.
func (k BanKind) Valid() bool {
	switch k {
	case BanKind24h, BanKind72h, BanKind7d, BanKindPermanent:
		return true
	}
	return false
}

// Duration returns how long the ban lasts. Unrecognized kinds (including
// legacy rows migrated without one) evaluate as 24 hours.
func (k BanKind) Duration() time.Duration {
	switch k {
	case BanKind72h:
		return 72 * time.Hour
	case BanKind7d:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// User represents an account in the Homeroom application. SchoolCode is the
// user's *current* school affiliation; it changes externally (transfers) and
// is re-read on every guarded write, never cached.
type User struct {
	ID         uint     `gorm:"primaryKey" json:"id"`
	Username   string   `gorm:"unique;not null" json:"username"`
	Email      string   `gorm:"unique;not null" json:"email"`
	Password   string   `gorm:"not null" json:"-"`
	SchoolCode string   `gorm:"size:32;index" json:"school_code"`
	Role       UserRole `gorm:"type:varchar(16);default:'student'" json:"role"`

	// Ban state. A lapsed time-boxed ban leaves these fields populated; only
	// an explicit unban clears them. "Currently banned" is always derived at
	// read time from these fields, never persisted separately.
	PermanentlyBanned bool       `gorm:"default:false" json:"permanently_banned"`
	BannedAt          *time.Time `json:"banned_at,omitempty"`
	BanKind           BanKind    `gorm:"type:varchar(16)" json:"ban_kind,omitempty"`
	BanReason         string     `gorm:"type:text" json:"ban_reason,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BanStatus is the derived read-time view of a user's ban state.
type BanStatus struct {
	Banned   bool       `json:"banned"`
	BanUntil *time.Time `json:"ban_until,omitempty"` // nil when permanent or not banned
}

// EvaluateBan computes the user's ban status at the given instant. It is a
// pure function of the persisted ban fields and does not mutate them: a
// lapsed ban simply reports not-banned while leaving the history in place.
func (u *User) EvaluateBan(now time.Time) BanStatus {
	if u.PermanentlyBanned {
		return BanStatus{Banned: true}
	}
	if u.BannedAt == nil {
		return BanStatus{}
	}
	until := u.BannedAt.Add(u.BanKind.Duration())
	if now.Before(until) {
		return BanStatus{Banned: true, BanUntil: &until}
	}
	return BanStatus{}
}

// Notification is a fan-out row consumed by the notification-read API.
// The report pipeline inserts one per administrator.
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	Kind      string     `gorm:"type:varchar(32);not null" json:"kind"`
	Body      string     `gorm:"type:text" json:"body"`
	ReportID  *uint      `gorm:"index" json:"report_id,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
