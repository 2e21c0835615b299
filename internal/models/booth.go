package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	BoothAvailable   = "available"
	BoothReserved    = "reserved"
	BoothOccupied    = "occupied"
	BoothMaintenance = "maintenance"
)

type Location struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Section string  `json:"section,omitempty"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Area   float64 `json:"area"`
}

type ProductService struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

type StaffMember struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role,omitempty"`
}

type Booth struct {
	bun.BaseModel `bun:"table:booths"`

	ID               string           `bun:"id,pk" json:"id"`
	ExpoID           string           `bun:"expo_id,notnull,unique:booths_expo_number" json:"expoId"`
	BoothNumber      string           `bun:"booth_number,notnull,unique:booths_expo_number" json:"boothNumber"`
	Location         Location         `bun:"location" json:"location"`
	Size             Size             `bun:"size" json:"size"`
	Price            float64          `bun:"price,notnull" json:"price"`
	Features         []string         `bun:"features" json:"features"`
	Status           string           `bun:"status,notnull" json:"status"`
	ExhibitorID      string           `bun:"exhibitor_id,nullzero" json:"exhibitorId,omitempty"`
	ReservedAt       time.Time        `bun:"reserved_at,nullzero" json:"reservedAt,omitempty"`
	ProductsServices []ProductService `bun:"products_services" json:"productsServices"`
	Staff            []StaffMember    `bun:"staff" json:"staff"`
	CreatedAt        time.Time        `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt        time.Time        `bun:"updated_at,notnull" json:"updatedAt"`
}

// Held reports whether the booth is bound to an exhibitor.
func (b *Booth) Held() bool {
	return b.Status == BoothReserved || b.Status == BoothOccupied
}

type CreateBoothRequest struct {
	ExpoID      string   `json:"expo" validate:"required"`
	BoothNumber string   `json:"boothNumber" validate:"required"`
	Location    Location `json:"location"`
	Size        Size     `json:"size"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Features    []string `json:"features"`
}

type AssignBoothRequest struct {
	ExhibitorID string `json:"exhibitorId" validate:"required"`
}

// BoothDetails holds the exhibitor-editable fields of a booth. A nil field is
// left as stored; an empty list clears it.
type BoothDetails struct {
	ProductsServices *[]ProductService `json:"productsServices"`
	Staff            *[]StaffMember    `json:"staff"`
}
