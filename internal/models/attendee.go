package models

import (
	"time"

	"github.com/uptrace/bun"
)

// AttendeeRegistration records an attendee's sign-up for an expo. Sessions is
// filled from session_registrations when listing.
type AttendeeRegistration struct {
	bun.BaseModel `bun:"table:attendee_registrations"`

	ID         string                `bun:"id,pk" json:"id"`
	ExpoID     string                `bun:"expo_id,notnull,unique:attendee_expo_attendee" json:"expoId"`
	AttendeeID string                `bun:"attendee_id,notnull,unique:attendee_expo_attendee" json:"attendeeId"`
	CreatedAt  time.Time             `bun:"created_at,notnull" json:"registrationDate"`
	Sessions   []SessionRegistration `bun:"-" json:"sessions"`
}

type SessionRegistration struct {
	bun.BaseModel `bun:"table:session_registrations"`

	UserID     string    `bun:"user_id,pk" json:"userId"`
	ScheduleID string    `bun:"schedule_id,pk" json:"scheduleId"`
	SessionID  string    `bun:"session_id,pk" json:"sessionId"`
	ExpoID     string    `bun:"expo_id,notnull" json:"expoId"`
	CreatedAt  time.Time `bun:"created_at,notnull" json:"registeredAt"`
}

type AttendeeRegisterRequest struct {
	ExpoID string `json:"expo" validate:"required"`
}

type SessionRegisterRequest struct {
	ExpoID    string `json:"expo" validate:"required"`
	SessionID string `json:"sessionId" validate:"required"`
}

// AttendeeOverview is what an attendee sees under /attendees/me.
type AttendeeOverview struct {
	Registrations []AttendeeRegistration `json:"registrations"`
	Bookmarks     []SessionBookmark      `json:"bookmarks"`
}
