// Package registration runs the exhibitor registration workflow:
// pending -> approved | rejected | cancelled, approved -> cancelled.
package registration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eventsphere/internal/apperr"
	"eventsphere/internal/auth"
	"eventsphere/internal/logger"
	"eventsphere/internal/metrics"
	"eventsphere/internal/models"
	"eventsphere/internal/notify"
	"eventsphere/internal/utils"
)

type Store interface {
	Create(ctx context.Context, reg *models.ExhibitorRegistration) error
	Get(ctx context.Context, id string) (*models.ExhibitorRegistration, error)
	ListByExpo(ctx context.Context, expoID, status string) ([]models.ExhibitorRegistration, error)
	ListByExhibitor(ctx context.Context, exhibitorID string) ([]models.ExhibitorRegistration, error)
	Search(ctx context.Context, f models.SearchFilter) ([]models.ExhibitorRegistration, error)
	UpdateStatus(ctx context.Context, id, status, notes, reviewer string, at time.Time) (*models.ExhibitorRegistration, error)
	UpdateOwn(ctx context.Context, reg *models.ExhibitorRegistration, exhibitorID string) (*models.ExhibitorRegistration, error)
	AssignBooth(ctx context.Context, regID, boothID, reviewer string, at time.Time) (*models.ExhibitorRegistration, *models.Booth, error)
}

type ExpoLookup interface {
	GetExpo(ctx context.Context, id string) (*models.Expo, error)
}

// BoothSideEffects is what a booth assignment must refresh outside the database.
type BoothSideEffects interface {
	Clear(ctx context.Context, boothID string) error
}

type ListInvalidator interface {
	Invalidate(ctx context.Context, expoID string)
}

type Service struct {
	Registrations Store
	Expos         ExpoLookup
	Holds         BoothSideEffects
	BoothCache    ListInvalidator
	Publisher     notify.Publisher
	Logger        *logger.Logger

	gate auth.Gate
	now  func() time.Time
}

func NewService(store Store, expos ExpoLookup, holds BoothSideEffects, cache ListInvalidator, pub notify.Publisher, log *logger.Logger) *Service {
	return &Service{
		Registrations: store,
		Expos:         expos,
		Holds:         holds,
		BoothCache:    cache,
		Publisher:     pub,
		Logger:        log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Submit(ctx context.Context, req models.SubmitRegistrationRequest, actor *models.Actor) (*models.ExhibitorRegistration, error) {
	if err := s.gate.Check(actor, auth.Exhibitors, ""); err != nil {
		s.record("submit", err)
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if _, err := s.Expos.GetExpo(ctx, req.ExpoID); err != nil {
		return nil, err
	}

	now := s.now()
	reg := &models.ExhibitorRegistration{
		ID:                 utils.NewID(),
		ExpoID:             req.ExpoID,
		ExhibitorID:        actor.ID,
		CompanyName:        strings.TrimSpace(req.CompanyName),
		CompanyDescription: req.CompanyDescription,
		ProductsServices:   orEmpty(req.ProductsServices),
		Documents:          orEmpty(req.Documents),
		Logo:               req.Logo,
		ContactInfo:        req.ContactInfo,
		Staff:              orEmpty(req.Staff),
		Status:             models.RegistrationPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	err := s.Registrations.Create(ctx, reg)
	s.record("submit", err)
	if err != nil {
		return nil, err
	}

	s.Logger.LogRegistration("submit", reg.ID, fmt.Sprintf("%s registered for expo %s", actor.ID, reg.ExpoID))
	s.publish(notify.ExpoChannel(reg.ExpoID), models.ActionSubmitted, reg, nil)
	return reg, nil
}

// Review sets the status directly and stamps the reviewer. It does not touch
// any booth the registration holds.
func (s *Service) Review(ctx context.Context, id string, req models.ReviewRequest, actor *models.Actor) (*models.ExhibitorRegistration, error) {
	if err := s.gate.Check(actor, auth.Staff, ""); err != nil {
		s.record("review", err)
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	reg, err := s.Registrations.UpdateStatus(ctx, id, req.Status, req.Notes, actor.ID, s.now())
	s.record("review", err)
	if err != nil {
		return nil, err
	}

	s.Logger.LogRegistration("review", reg.ID, fmt.Sprintf("set to %s by %s", reg.Status, actor.ID))
	s.publish(notify.ExpoChannel(reg.ExpoID), models.ActionReviewed, reg, nil)
	s.publish(notify.UserChannel(reg.ExhibitorID), models.ActionReviewed, reg, nil)
	return reg, nil
}

// AssignBooth gives the registration a booth and approves it in one transaction.
func (s *Service) AssignBooth(ctx context.Context, regID, boothID string, actor *models.Actor) (*models.ExhibitorRegistration, *models.Booth, error) {
	if err := s.gate.Check(actor, auth.Staff, ""); err != nil {
		s.record("assign_booth", err)
		return nil, nil, err
	}
	if strings.TrimSpace(boothID) == "" {
		return nil, nil, apperr.Validationf("boothId is required")
	}

	reg, booth, err := s.Registrations.AssignBooth(ctx, regID, boothID, actor.ID, s.now())
	s.record("assign_booth", err)
	metrics.BoothTransitions.WithLabelValues("assign", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, nil, err
	}

	if s.Holds != nil {
		if err := s.Holds.Clear(ctx, booth.ID); err != nil {
			s.Logger.Warn("REGISTRATION", fmt.Sprintf("Failed to clear hold on booth %s: %v", booth.ID, err))
		}
	}
	if s.BoothCache != nil {
		s.BoothCache.Invalidate(ctx, booth.ExpoID)
	}

	s.Logger.LogRegistration("assign_booth", reg.ID, fmt.Sprintf("booth %s assigned by %s", booth.ID, actor.ID))
	s.publish(notify.ExpoChannel(reg.ExpoID), models.ActionAssigned, reg, booth)
	s.publish(notify.UserChannel(reg.ExhibitorID), models.ActionAssigned, reg, booth)
	s.Publisher.Publish(notify.ExpoChannel(booth.ExpoID), models.EventBoothUpdate, booth)
	return reg, booth, nil
}

func (s *Service) ListByExpo(ctx context.Context, expoID, status string, actor *models.Actor) ([]models.ExhibitorRegistration, error) {
	if err := s.gate.Check(actor, auth.Staff, ""); err != nil {
		return nil, err
	}
	if status != "" && !models.ValidRegistrationStatus(status) {
		return nil, apperr.Validationf("Invalid status filter %q", status)
	}
	return s.Registrations.ListByExpo(ctx, expoID, status)
}

func (s *Service) ListMine(ctx context.Context, actor *models.Actor) ([]models.ExhibitorRegistration, error) {
	if err := s.gate.Check(actor, auth.Exhibitors, ""); err != nil {
		return nil, err
	}
	return s.Registrations.ListByExhibitor(ctx, actor.ID)
}

func (s *Service) Search(ctx context.Context, f models.SearchFilter) ([]models.ExhibitorRegistration, error) {
	return s.Registrations.Search(ctx, f)
}

// Get serves the public exhibitor profile. Unapproved registrations are only
// visible to their owner and to staff.
func (s *Service) Get(ctx context.Context, id string, actor *models.Actor) (*models.ExhibitorRegistration, error) {
	reg, err := s.Registrations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.Status == models.RegistrationApproved {
		return reg, nil
	}
	if actor != nil {
		if s.gate.Check(actor, auth.Staff, "") == nil || actor.ID == reg.ExhibitorID {
			return reg, nil
		}
	}
	return nil, apperr.NotFoundf("Exhibitor profile not found")
}

// UpdateOwn applies the owner's edits. Status, booth and review fields are
// not editable here.
func (s *Service) UpdateOwn(ctx context.Context, id string, req models.UpdateRegistrationRequest, actor *models.Actor) (*models.ExhibitorRegistration, error) {
	if err := s.gate.Check(actor, auth.Exhibitors, ""); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	reg, err := s.Registrations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Check(actor, auth.Exhibitors, reg.ExhibitorID); err != nil {
		return nil, err
	}

	if req.CompanyName != nil {
		reg.CompanyName = strings.TrimSpace(*req.CompanyName)
	}
	if req.CompanyDescription != nil {
		reg.CompanyDescription = *req.CompanyDescription
	}
	if req.ProductsServices != nil {
		reg.ProductsServices = orEmpty(*req.ProductsServices)
	}
	if req.Documents != nil {
		reg.Documents = orEmpty(*req.Documents)
	}
	if req.Logo != nil {
		reg.Logo = *req.Logo
	}
	if req.ContactInfo != nil {
		reg.ContactInfo = *req.ContactInfo
	}
	if req.Staff != nil {
		reg.Staff = orEmpty(*req.Staff)
	}
	if reg.CompanyName == "" {
		return nil, apperr.Validationf("companyName is required")
	}
	reg.UpdatedAt = s.now()

	updated, err := s.Registrations.UpdateOwn(ctx, reg, actor.ID)
	s.record("update", err)
	if err != nil {
		return nil, err
	}
	s.publish(notify.ExpoChannel(updated.ExpoID), models.ActionUpdated, updated, nil)
	return updated, nil
}

func (s *Service) publish(channel, action string, reg *models.ExhibitorRegistration, booth *models.Booth) {
	s.Publisher.Publish(channel, models.EventRegistrationUpdate, models.RegistrationEvent{
		Action:       action,
		ExpoID:       reg.ExpoID,
		Registration: reg,
		Booth:        booth,
	})
}

func (s *Service) record(action string, err error) {
	metrics.RegistrationTransitions.WithLabelValues(action, metrics.Outcome(err)).Inc()
}

func orEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
