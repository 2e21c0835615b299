package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Session struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	Speakers    []string  `json:"speakers"`
	Topic       string    `json:"topic,omitempty"`
	Location    string    `json:"location,omitempty"`
	Capacity    int       `json:"capacity,omitempty"`
	Tags        []string  `json:"tags"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"createdBy,omitempty"`
}

// Schedule owns its sessions; Version guards concurrent edits of the collection.
type Schedule struct {
	bun.BaseModel `bun:"table:schedules"`

	ID        string    `bun:"id,pk" json:"id"`
	ExpoID    string    `bun:"expo_id,notnull,unique" json:"expoId"`
	Sessions  []Session `bun:"sessions" json:"sessions"`
	Version   int       `bun:"version,notnull" json:"version"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

func (s *Schedule) FindSession(id string) (int, bool) {
	for i := range s.Sessions {
		if s.Sessions[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

type SessionBookmark struct {
	bun.BaseModel `bun:"table:session_bookmarks"`

	UserID     string    `bun:"user_id,pk" json:"userId"`
	ScheduleID string    `bun:"schedule_id,pk" json:"scheduleId"`
	SessionID  string    `bun:"session_id,pk" json:"sessionId"`
	CreatedAt  time.Time `bun:"created_at,notnull" json:"createdAt"`
}

type CreateScheduleRequest struct {
	ExpoID string `json:"expo" validate:"required"`
}

type SessionRequest struct {
	Title       string    `json:"title" validate:"required"`
	StartTime   time.Time `json:"startTime" validate:"required"`
	EndTime     time.Time `json:"endTime" validate:"required,gtfield=StartTime"`
	Speakers    []string  `json:"speakers"`
	Topic       string    `json:"topic"`
	Location    string    `json:"location"`
	Capacity    int       `json:"capacity" validate:"gte=0"`
	Tags        []string  `json:"tags"`
	Description string    `json:"description"`
}
