package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	RegistrationPending   = "pending"
	RegistrationApproved  = "approved"
	RegistrationRejected  = "rejected"
	RegistrationCancelled = "cancelled"
)

func ValidRegistrationStatus(s string) bool {
	switch s {
	case RegistrationPending, RegistrationApproved, RegistrationRejected, RegistrationCancelled:
		return true
	}
	return false
}

type Document struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
}

type ContactInfo struct {
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
}

type ExhibitorRegistration struct {
	bun.BaseModel `bun:"table:exhibitor_registrations"`

	ID                 string           `bun:"id,pk" json:"id"`
	ExpoID             string           `bun:"expo_id,notnull,unique:registrations_expo_exhibitor" json:"expoId"`
	ExhibitorID        string           `bun:"exhibitor_id,notnull,unique:registrations_expo_exhibitor" json:"exhibitorId"`
	CompanyName        string           `bun:"company_name,notnull" json:"companyName"`
	CompanyDescription string           `bun:"company_description,nullzero" json:"companyDescription,omitempty"`
	ProductsServices   []ProductService `bun:"products_services" json:"productsServices"`
	Documents          []Document       `bun:"documents" json:"documents"`
	Logo               string           `bun:"logo,nullzero" json:"logo,omitempty"`
	ContactInfo        ContactInfo      `bun:"contact_info" json:"contactInfo"`
	Status             string           `bun:"status,notnull" json:"status"`
	BoothID            string           `bun:"booth_id,nullzero" json:"boothId,omitempty"`
	Staff              []StaffMember    `bun:"staff" json:"staff"`
	Notes              string           `bun:"notes,nullzero" json:"notes,omitempty"`
	ReviewedBy         string           `bun:"reviewed_by,nullzero" json:"reviewedBy,omitempty"`
	ReviewedAt         time.Time        `bun:"reviewed_at,nullzero" json:"reviewedAt,omitempty"`
	CreatedAt          time.Time        `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt          time.Time        `bun:"updated_at,notnull" json:"updatedAt"`
}

type SubmitRegistrationRequest struct {
	ExpoID             string           `json:"expo" validate:"required"`
	CompanyName        string           `json:"companyName" validate:"required"`
	CompanyDescription string           `json:"companyDescription"`
	ProductsServices   []ProductService `json:"productsServices" validate:"dive"`
	Documents          []Document       `json:"documents"`
	Logo               string           `json:"logo"`
	ContactInfo        ContactInfo      `json:"contactInfo"`
	Staff              []StaffMember    `json:"staff"`
}

// UpdateRegistrationRequest is the owner's self-service edit; nil means unchanged.
type UpdateRegistrationRequest struct {
	CompanyName        *string           `json:"companyName" validate:"omitempty,min=1"`
	CompanyDescription *string           `json:"companyDescription"`
	ProductsServices   *[]ProductService `json:"productsServices"`
	Documents          *[]Document       `json:"documents"`
	Logo               *string           `json:"logo"`
	ContactInfo        *ContactInfo      `json:"contactInfo"`
	Staff              *[]StaffMember    `json:"staff"`
}

type ReviewRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected cancelled"`
	Notes  string `json:"notes"`
}

type AssignRegistrationBoothRequest struct {
	BoothID string `json:"boothId" validate:"required"`
}

// SearchFilter narrows the public exhibitor directory.
type SearchFilter struct {
	ExpoID   string
	Category string
	Text     string
}
