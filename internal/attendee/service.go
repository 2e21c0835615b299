// Package attendee handles attendee sign-ups for expos and their sessions.
package attendee

import (
	"context"
	"fmt"
	"time"

	"eventsphere/internal/apperr"
	"eventsphere/internal/auth"
	"eventsphere/internal/logger"
	"eventsphere/internal/models"
	"eventsphere/internal/utils"
)

type Store interface {
	Create(ctx context.Context, reg *models.AttendeeRegistration) error
	Get(ctx context.Context, expoID, attendeeID string) (*models.AttendeeRegistration, error)
	ListByAttendee(ctx context.Context, attendeeID string) ([]models.AttendeeRegistration, error)
	AddSession(ctx context.Context, sr *models.SessionRegistration, capacity int) error
}

type ExpoLookup interface {
	GetExpo(ctx context.Context, id string) (*models.Expo, error)
}

type ScheduleLookup interface {
	GetByExpo(ctx context.Context, expoID string) (*models.Schedule, error)
	ListBookmarks(ctx context.Context, userID string) ([]models.SessionBookmark, error)
}

type Service struct {
	Attendees Store
	Expos     ExpoLookup
	Schedules ScheduleLookup
	Logger    *logger.Logger

	gate auth.Gate
	now  func() time.Time
}

func NewService(store Store, expos ExpoLookup, schedules ScheduleLookup, log *logger.Logger) *Service {
	return &Service{
		Attendees: store,
		Expos:     expos,
		Schedules: schedules,
		Logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register signs an attendee up for an expo. A second sign-up is a Conflict.
func (s *Service) Register(ctx context.Context, req models.AttendeeRegisterRequest, actor *models.Actor) (*models.AttendeeRegistration, error) {
	if err := s.gate.Check(actor, auth.Attendees, ""); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if _, err := s.Expos.GetExpo(ctx, req.ExpoID); err != nil {
		return nil, err
	}

	reg := &models.AttendeeRegistration{
		ID:         utils.NewID(),
		ExpoID:     req.ExpoID,
		AttendeeID: actor.ID,
		CreatedAt:  s.now(),
		Sessions:   []models.SessionRegistration{},
	}
	if err := s.Attendees.Create(ctx, reg); err != nil {
		return nil, err
	}
	s.Logger.Info("ATTENDEE", fmt.Sprintf("Attendee %s registered for expo %s", actor.ID, req.ExpoID))
	return reg, nil
}

// RegisterSession requires an expo registration first and a session that is
// on the expo's schedule.
func (s *Service) RegisterSession(ctx context.Context, req models.SessionRegisterRequest, actor *models.Actor) (*models.SessionRegistration, error) {
	if err := s.gate.Check(actor, auth.Attendees, ""); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if _, err := s.Attendees.Get(ctx, req.ExpoID, actor.ID); err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.NotFoundf("Please register for the expo first")
		}
		return nil, err
	}

	sched, err := s.Schedules.GetByExpo(ctx, req.ExpoID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.NotFoundf("Session not found")
		}
		return nil, err
	}
	i, ok := sched.FindSession(req.SessionID)
	if !ok {
		return nil, apperr.NotFoundf("Session not found")
	}

	sr := &models.SessionRegistration{
		UserID:     actor.ID,
		ScheduleID: sched.ID,
		SessionID:  req.SessionID,
		ExpoID:     req.ExpoID,
		CreatedAt:  s.now(),
	}
	if err := s.Attendees.AddSession(ctx, sr, sched.Sessions[i].Capacity); err != nil {
		return nil, err
	}
	s.Logger.Info("ATTENDEE", fmt.Sprintf("Attendee %s registered for session %s", actor.ID, req.SessionID))
	return sr, nil
}

// Overview lists the actor's expo registrations with session sign-ups, plus
// their bookmarks.
func (s *Service) Overview(ctx context.Context, actor *models.Actor) (*models.AttendeeOverview, error) {
	if err := s.gate.Check(actor, auth.Attendees, ""); err != nil {
		return nil, err
	}
	regs, err := s.Attendees.ListByAttendee(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	marks, err := s.Schedules.ListBookmarks(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return &models.AttendeeOverview{Registrations: regs, Bookmarks: marks}, nil
}
