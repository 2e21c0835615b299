package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	MessageOrganizerToExhibitor = "organizer-to-exhibitor"
	MessageExhibitorToOrganizer = "exhibitor-to-organizer"
	MessageExhibitorToExhibitor = "exhibitor-to-exhibitor"
)

type Message struct {
	bun.BaseModel `bun:"table:messages"`

	ID          string    `bun:"id,pk" json:"id"`
	ExpoID      string    `bun:"expo_id,notnull" json:"expoId"`
	SenderID    string    `bun:"sender_id,notnull" json:"senderId"`
	RecipientID string    `bun:"recipient_id,notnull" json:"recipientId"`
	Subject     string    `bun:"subject,notnull" json:"subject"`
	Content     string    `bun:"content,notnull" json:"content"`
	Type        string    `bun:"message_type,notnull" json:"messageType"`
	IsRead      bool      `bun:"is_read,notnull" json:"isRead"`
	ReadAt      time.Time `bun:"read_at,nullzero" json:"readAt,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

type SendMessageRequest struct {
	ExpoID      string `json:"expo" validate:"required"`
	RecipientID string `json:"recipient" validate:"required"`
	Subject     string `json:"subject" validate:"required"`
	Content     string `json:"content" validate:"required"`
	Type        string `json:"messageType" validate:"required,oneof=organizer-to-exhibitor exhibitor-to-organizer exhibitor-to-exhibitor"`
}
