package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	ExpoDraft     = "draft"
	ExpoPublished = "published"
	ExpoCancelled = "cancelled"
	ExpoCompleted = "completed"
)

type FloorPlan struct {
	ImageURL string  `json:"imageUrl,omitempty"`
	Width    float64 `json:"width,omitempty"`
	Height   float64 `json:"height,omitempty"`
}

type Expo struct {
	bun.BaseModel `bun:"table:expos"`

	ID          string    `bun:"id,pk" json:"id"`
	Title       string    `bun:"title,notnull" json:"title"`
	StartDate   time.Time `bun:"start_date,notnull" json:"startDate"`
	EndDate     time.Time `bun:"end_date,notnull" json:"endDate"`
	Location    string    `bun:"location,notnull" json:"location"`
	Description string    `bun:"description,nullzero" json:"description,omitempty"`
	Theme       string    `bun:"theme,nullzero" json:"theme,omitempty"`
	OrganizerID string    `bun:"organizer_id,nullzero" json:"organizerId,omitempty"`
	FloorPlan   FloorPlan `bun:"floor_plan" json:"floorPlan"`
	Status      string    `bun:"status,notnull" json:"status"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

type CreateExpoRequest struct {
	Title       string    `json:"title" validate:"required"`
	StartDate   time.Time `json:"startDate" validate:"required"`
	EndDate     time.Time `json:"endDate" validate:"required"`
	Location    string    `json:"location" validate:"required"`
	Description string    `json:"description"`
	Theme       string    `json:"theme"`
	FloorPlan   FloorPlan `json:"floorPlan"`
}

// UpdateExpoRequest carries optional fields; nil means unchanged.
type UpdateExpoRequest struct {
	Title       *string    `json:"title"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	Location    *string    `json:"location"`
	Description *string    `json:"description"`
	Theme       *string    `json:"theme"`
	FloorPlan   *FloorPlan `json:"floorPlan"`
	Status      *string    `json:"status" validate:"omitempty,oneof=draft published cancelled completed"`
}
