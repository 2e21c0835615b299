package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eventsphere/internal/apperr"
	"eventsphere/internal/logger"
	"eventsphere/internal/models"
	"eventsphere/internal/utils"
)

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
}

type Service struct {
	Users      UserStore
	Tokens     *Tokens
	BcryptCost int
	Logger     *logger.Logger
}

func NewService(users UserStore, tokens *Tokens, bcryptCost int, log *logger.Logger) *Service {
	return &Service{Users: users, Tokens: tokens, BcryptCost: bcryptCost, Logger: log}
}

func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.TokenResponse, error) {
	role := req.Role
	if role == "" {
		role = models.RoleAttendee
	}
	if role == models.RoleAdmin {
		return nil, apperr.Validationf("Cannot self-register as admin")
	}

	hash, err := HashPassword(req.Password, s.BcryptCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           utils.NewID(),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		Phone:        req.Phone,
		CompanyName:  req.CompanyName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.Logger.Info("AUTH", fmt.Sprintf("Registered user %s with role %s", user.ID, user.Role))

	return s.tokenFor(user)
}

func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error) {
	user, err := s.Users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.Unauthenticatedf("Invalid credentials")
		}
		return nil, err
	}
	if !VerifyPassword(user.PasswordHash, req.Password) {
		s.Logger.LogSecurity("LOGIN_FAILED", fmt.Sprintf("bad password for user %s", user.ID))
		return nil, apperr.Unauthenticatedf("Invalid credentials")
	}
	return s.tokenFor(user)
}

func (s *Service) Me(ctx context.Context, actor *models.Actor) (*models.User, error) {
	if err := (Gate{}).Check(actor, Anyone, ""); err != nil {
		return nil, err
	}
	return s.Users.GetUserByID(ctx, actor.ID)
}

// EnsureAdmin creates the default admin account, or resets its password when
// the stored hash no longer matches the configured one.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	existing, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil && !apperr.Is(err, apperr.NotFound) {
		return err
	}

	hash, herr := HashPassword(password, s.BcryptCost)
	if herr != nil {
		return herr
	}

	if existing == nil {
		now := time.Now().UTC()
		err = s.Users.CreateUser(ctx, &models.User{
			ID:           utils.NewID(),
			FirstName:    "Admin",
			LastName:     "User",
			Email:        email,
			PasswordHash: hash,
			Role:         models.RoleAdmin,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return err
		}
		s.Logger.Info("AUTH", fmt.Sprintf("Default admin user created: %s", email))
		return nil
	}

	if VerifyPassword(existing.PasswordHash, password) {
		s.Logger.Debug("AUTH", "Default admin user already exists with correct password")
		return nil
	}
	if err := s.Users.UpdatePassword(ctx, existing.ID, hash); err != nil {
		return err
	}
	s.Logger.Warn("AUTH", "Admin password has been reset and re-hashed")
	return nil
}

func (s *Service) tokenFor(user *models.User) (*models.TokenResponse, error) {
	token, err := s.Tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &models.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int(s.Tokens.TTL().Seconds()),
		TokenType:   "Bearer",
		User:        user,
	}, nil
}
