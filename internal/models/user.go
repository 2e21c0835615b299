package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	RoleAdmin     = "admin"
	RoleOrganizer = "organizer"
	RoleExhibitor = "exhibitor"
	RoleAttendee  = "attendee"
)

// ValidRole reports whether r is one of the four account roles.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleOrganizer, RoleExhibitor, RoleAttendee:
		return true
	}
	return false
}

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID           string    `bun:"id,pk" json:"id"`
	FirstName    string    `bun:"first_name,notnull" json:"firstName"`
	LastName     string    `bun:"last_name,notnull" json:"lastName"`
	Email        string    `bun:"email,unique,notnull" json:"email"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	Role         string    `bun:"role,notnull" json:"role"`
	Phone        string    `bun:"phone,nullzero" json:"phone,omitempty"`
	CompanyName  string    `bun:"company_name,nullzero" json:"companyName,omitempty"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt    time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}
