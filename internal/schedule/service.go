// Package schedule manages an expo's session schedule and attendee bookmarks.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"eventsphere/internal/apperr"
	"eventsphere/internal/auth"
	"eventsphere/internal/logger"
	"eventsphere/internal/models"
	"eventsphere/internal/notify"
	scheduledb "eventsphere/internal/schedule/db"
	"eventsphere/internal/utils"
)

// maxAttempts bounds the read-modify-write loop on version conflicts.
const maxAttempts = 3

type Store interface {
	Create(ctx context.Context, s *models.Schedule) error
	Get(ctx context.Context, id string) (*models.Schedule, error)
	GetByExpo(ctx context.Context, expoID string) (*models.Schedule, error)
	SaveSessions(ctx context.Context, s *models.Schedule) error
	AddBookmark(ctx context.Context, b *models.SessionBookmark) error
	RemoveBookmark(ctx context.Context, userID, scheduleID, sessionID string) error
	RemoveSessionRefs(ctx context.Context, scheduleID, sessionID string) error
	ListBookmarks(ctx context.Context, userID string) ([]models.SessionBookmark, error)
}

type ExpoLookup interface {
	GetExpo(ctx context.Context, id string) (*models.Expo, error)
}

type Service struct {
	Schedules Store
	Expos     ExpoLookup
	Publisher notify.Publisher
	Logger    *logger.Logger

	gate auth.Gate
	now  func() time.Time
}

func NewService(store Store, expos ExpoLookup, pub notify.Publisher, log *logger.Logger) *Service {
	return &Service{
		Schedules: store,
		Expos:     expos,
		Publisher: pub,
		Logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Create(ctx context.Context, req models.CreateScheduleRequest, actor *models.Actor) (*models.Schedule, error) {
	if err := s.gate.Check(actor, auth.Staff, ""); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if _, err := s.Expos.GetExpo(ctx, req.ExpoID); err != nil {
		return nil, err
	}

	now := s.now()
	sched := &models.Schedule{
		ID:        utils.NewID(),
		ExpoID:    req.ExpoID,
		Sessions:  []models.Session{},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Schedules.Create(ctx, sched); err != nil {
		return nil, err
	}
	s.Logger.Info("SCHEDULE", fmt.Sprintf("Schedule %s created for expo %s by %s", sched.ID, sched.ExpoID, actor.ID))
	return sched, nil
}

func (s *Service) GetByExpo(ctx context.Context, expoID string) (*models.Schedule, error) {
	return s.Schedules.GetByExpo(ctx, expoID)
}

func (s *Service) AddSession(ctx context.Context, scheduleID string, req models.SessionRequest, actor *models.Actor) (*models.Session, error) {
	if err := s.gate.Check(actor, auth.Staff, ""); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	session := sessionFrom(req)
	session.ID = utils.NewID()
	session.CreatedBy = actor.ID

	sched, err := s.mutate(ctx, scheduleID, func(sched *models.Schedule) error {
		sched.Sessions = append(sched.Sessions, session)
		sortSessions(sched.Sessions)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("SCHEDULE", fmt.Sprintf("Session %s added to schedule %s", session.ID, sched.ID))
	s.publish(sched.ExpoID, models.ScheduleEvent{Action: models.ActionAdded, ExpoID: sched.ExpoID, Session: &session})
	return &session, nil
}

func (s *Service) UpdateSession(ctx context.Context, scheduleID, sessionID string, req models.SessionRequest, actor *models.Actor) (*models.Session, error) {
	if err := s.gate.Check(actor, auth.Staff, ""); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	var updated models.Session
	sched, err := s.mutate(ctx, scheduleID, func(sched *models.Schedule) error {
		i, ok := sched.FindSession(sessionID)
		if !ok {
			return apperr.NotFoundf("Session not found")
		}
		updated = sessionFrom(req)
		updated.ID = sessionID
		updated.CreatedBy = sched.Sessions[i].CreatedBy
		sched.Sessions[i] = updated
		sortSessions(sched.Sessions)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(sched.ExpoID, models.ScheduleEvent{Action: models.ActionUpdated, ExpoID: sched.ExpoID, Session: &updated})
	return &updated, nil
}

// RemoveSession deletes the session along with every bookmark and attendee
// sign-up pointing at it.
func (s *Service) RemoveSession(ctx context.Context, scheduleID, sessionID string, actor *models.Actor) error {
	if err := s.gate.Check(actor, auth.Staff, ""); err != nil {
		return err
	}

	sched, err := s.mutate(ctx, scheduleID, func(sched *models.Schedule) error {
		i, ok := sched.FindSession(sessionID)
		if !ok {
			return apperr.NotFoundf("Session not found")
		}
		sched.Sessions = append(sched.Sessions[:i], sched.Sessions[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.Schedules.RemoveSessionRefs(ctx, scheduleID, sessionID); err != nil {
		s.Logger.Warn("SCHEDULE", fmt.Sprintf("Failed to drop bookmarks and sign-ups of session %s: %v", sessionID, err))
	}

	s.publish(sched.ExpoID, models.ScheduleEvent{Action: models.ActionDeleted, ExpoID: sched.ExpoID, SessionID: sessionID})
	return nil
}

func (s *Service) Bookmark(ctx context.Context, scheduleID, sessionID string, actor *models.Actor) error {
	if err := s.gate.Check(actor, auth.Anyone, ""); err != nil {
		return err
	}
	sched, err := s.Schedules.Get(ctx, scheduleID)
	if err != nil {
		return err
	}
	if _, ok := sched.FindSession(sessionID); !ok {
		return apperr.NotFoundf("Session not found")
	}
	return s.Schedules.AddBookmark(ctx, &models.SessionBookmark{
		UserID:     actor.ID,
		ScheduleID: scheduleID,
		SessionID:  sessionID,
		CreatedAt:  s.now(),
	})
}

func (s *Service) Unbookmark(ctx context.Context, scheduleID, sessionID string, actor *models.Actor) error {
	if err := s.gate.Check(actor, auth.Anyone, ""); err != nil {
		return err
	}
	return s.Schedules.RemoveBookmark(ctx, actor.ID, scheduleID, sessionID)
}

func (s *Service) ListBookmarks(ctx context.Context, actor *models.Actor) ([]models.SessionBookmark, error) {
	if err := s.gate.Check(actor, auth.Anyone, ""); err != nil {
		return nil, err
	}
	return s.Schedules.ListBookmarks(ctx, actor.ID)
}

// mutate reloads the schedule and reapplies fn until the versioned save wins.
func (s *Service) mutate(ctx context.Context, scheduleID string, fn func(*models.Schedule) error) (*models.Schedule, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		sched, err := s.Schedules.Get(ctx, scheduleID)
		if err != nil {
			return nil, err
		}
		if err := fn(sched); err != nil {
			return nil, err
		}
		lastErr = s.Schedules.SaveSessions(ctx, sched)
		if lastErr == nil {
			return sched, nil
		}
		if !errors.Is(lastErr, scheduledb.ErrStale) {
			return nil, lastErr
		}
		s.Logger.Debug("SCHEDULE", fmt.Sprintf("Version conflict on schedule %s, attempt %d", scheduleID, attempt+1))
	}
	return nil, lastErr
}

func (s *Service) publish(expoID string, ev models.ScheduleEvent) {
	s.Publisher.Publish(notify.ExpoChannel(expoID), models.EventScheduleUpdate, ev)
}

func sessionFrom(req models.SessionRequest) models.Session {
	return models.Session{
		Title:       strings.TrimSpace(req.Title),
		StartTime:   req.StartTime.UTC(),
		EndTime:     req.EndTime.UTC(),
		Speakers:    nonNil(req.Speakers),
		Topic:       req.Topic,
		Location:    req.Location,
		Capacity:    req.Capacity,
		Tags:        nonNil(req.Tags),
		Description: req.Description,
	}
}

func sortSessions(sessions []models.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime.Before(sessions[j].StartTime)
	})
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
