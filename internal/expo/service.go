// Package expo is the expo catalog that booths, registrations and schedules hang off.
package expo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eventsphere/internal/apperr"
	"eventsphere/internal/auth"
	expodb "eventsphere/internal/expo/db"
	"eventsphere/internal/logger"
	"eventsphere/internal/models"
	"eventsphere/internal/utils"
)

type Store interface {
	CreateExpo(ctx context.Context, expo *models.Expo) error
	GetExpo(ctx context.Context, id string) (*models.Expo, error)
	ListExpos(ctx context.Context) ([]models.Expo, error)
	UpdateExpo(ctx context.Context, expo *models.Expo) error
	DeleteExpo(ctx context.Context, id string, cascades ...expodb.CascadeFunc) error
}

// ListInvalidator drops the cached booth list of an expo.
type ListInvalidator interface {
	Invalidate(ctx context.Context, expoID string)
}

type Service struct {
	Expos    Store
	Cascades []expodb.CascadeFunc
	Cache    ListInvalidator
	Logger   *logger.Logger

	gate auth.Gate
}

// NewService wires the catalog. cascades run inside Delete's transaction.
func NewService(store Store, log *logger.Logger, cascades ...expodb.CascadeFunc) *Service {
	return &Service{Expos: store, Cascades: cascades, Logger: log}
}

func (s *Service) Create(ctx context.Context, req models.CreateExpoRequest, actor *models.Actor) (*models.Expo, error) {
	if err := s.gate.Check(actor, auth.Staff, ""); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, apperr.Validationf("endDate must not precede startDate")
	}

	now := time.Now().UTC()
	expo := &models.Expo{
		ID:          utils.NewID(),
		Title:       strings.TrimSpace(req.Title),
		StartDate:   req.StartDate.UTC(),
		EndDate:     req.EndDate.UTC(),
		Location:    req.Location,
		Description: req.Description,
		Theme:       req.Theme,
		OrganizerID: actor.ID,
		FloorPlan:   req.FloorPlan,
		Status:      models.ExpoDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Expos.CreateExpo(ctx, expo); err != nil {
		return nil, err
	}
	s.Logger.Info("EXPO", fmt.Sprintf("Expo %s created by %s", expo.ID, actor.ID))
	return expo, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Expo, error) {
	return s.Expos.GetExpo(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]models.Expo, error) {
	return s.Expos.ListExpos(ctx)
}

// Update applies the non-nil fields. Only the organizing organizer or an admin may edit.
func (s *Service) Update(ctx context.Context, id string, req models.UpdateExpoRequest, actor *models.Actor) (*models.Expo, error) {
	expo, err := s.owned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	if req.Title != nil {
		expo.Title = strings.TrimSpace(*req.Title)
	}
	if req.StartDate != nil {
		expo.StartDate = req.StartDate.UTC()
	}
	if req.EndDate != nil {
		expo.EndDate = req.EndDate.UTC()
	}
	if req.Location != nil {
		expo.Location = *req.Location
	}
	if req.Description != nil {
		expo.Description = *req.Description
	}
	if req.Theme != nil {
		expo.Theme = *req.Theme
	}
	if req.FloorPlan != nil {
		expo.FloorPlan = *req.FloorPlan
	}
	if req.Status != nil {
		expo.Status = *req.Status
	}
	if expo.Title == "" || expo.Location == "" {
		return nil, apperr.Validationf("title and location are required")
	}
	if expo.EndDate.Before(expo.StartDate) {
		return nil, apperr.Validationf("endDate must not precede startDate")
	}
	expo.UpdatedAt = time.Now().UTC()

	if err := s.Expos.UpdateExpo(ctx, expo); err != nil {
		return nil, err
	}
	return expo, nil
}

// Delete removes the expo with its booths, registrations and schedule.
func (s *Service) Delete(ctx context.Context, id string, actor *models.Actor) error {
	if _, err := s.owned(ctx, id, actor); err != nil {
		return err
	}
	if err := s.Expos.DeleteExpo(ctx, id, s.Cascades...); err != nil {
		return err
	}
	if s.Cache != nil {
		s.Cache.Invalidate(ctx, id)
	}
	s.Logger.Info("EXPO", fmt.Sprintf("Expo %s deleted by %s", id, actor.ID))
	return nil
}

func (s *Service) owned(ctx context.Context, id string, actor *models.Actor) (*models.Expo, error) {
	if err := s.gate.Check(actor, auth.Staff, ""); err != nil {
		return nil, err
	}
	expo, err := s.Expos.GetExpo(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Check(actor, auth.Staff, expo.OrganizerID); err != nil {
		return nil, err
	}
	return expo, nil
}
