package models

// Actor is the authenticated caller attached to a request context.
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

type RegisterRequest struct {
	FirstName   string `json:"firstName" validate:"required"`
	LastName    string `json:"lastName" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	Role        string `json:"role" validate:"omitempty,oneof=organizer exhibitor attendee"`
	Phone       string `json:"phone"`
	CompanyName string `json:"companyName"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"token"`
	ExpiresIn   int    `json:"expiresIn"`
	TokenType   string `json:"tokenType"`
	User        *User  `json:"user"`
}
