package db

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"eventsphere/internal/apperr"
	"eventsphere/internal/database"
	"eventsphere/internal/models"
)

type DB struct {
	Bun     *bun.DB
	Timeout time.Duration
}

// ---------------- EXPO REGISTRATIONS ----------------

func (d *DB) Create(ctx context.Context, reg *models.AttendeeRegistration) error {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	if _, err := d.Bun.NewInsert().Model(reg).Exec(ctx); err != nil {
		if apperr.IsUniqueViolation(err) {
			return apperr.Conflictf("Already registered for this expo")
		}
		return apperr.FromStore(errors.Wrap(err, "insert attendee registration"), "Registration")
	}
	return nil
}

func (d *DB) Get(ctx context.Context, expoID, attendeeID string) (*models.AttendeeRegistration, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	var reg models.AttendeeRegistration
	err := d.Bun.NewSelect().
		Model(&reg).
		Where("expo_id = ?", expoID).
		Where("attendee_id = ?", attendeeID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromStore(err, "Registration")
	}
	return &reg, nil
}

// ListByAttendee returns the attendee's expo registrations, newest first, each
// with its session sign-ups.
func (d *DB) ListByAttendee(ctx context.Context, attendeeID string) ([]models.AttendeeRegistration, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	regs := []models.AttendeeRegistration{}
	err := d.Bun.NewSelect().
		Model(&regs).
		Where("attendee_id = ?", attendeeID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromStore(errors.Wrap(err, "list attendee registrations"), "Registration")
	}

	var sessions []models.SessionRegistration
	err = d.Bun.NewSelect().
		Model(&sessions).
		Where("user_id = ?", attendeeID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromStore(errors.Wrap(err, "list session registrations"), "Registration")
	}

	byExpo := map[string][]models.SessionRegistration{}
	for _, s := range sessions {
		byExpo[s.ExpoID] = append(byExpo[s.ExpoID], s)
	}
	for i := range regs {
		regs[i].Sessions = byExpo[regs[i].ExpoID]
		if regs[i].Sessions == nil {
			regs[i].Sessions = []models.SessionRegistration{}
		}
	}
	return regs, nil
}

// ---------------- SESSION REGISTRATIONS ----------------

// AddSession signs the user up for a session. A positive capacity caps the
// number of sign-ups; the count and insert share a transaction.
func (d *DB) AddSession(ctx context.Context, sr *models.SessionRegistration, capacity int) error {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if capacity > 0 {
			n, err := tx.NewSelect().
				Model((*models.SessionRegistration)(nil)).
				Where("schedule_id = ?", sr.ScheduleID).
				Where("session_id = ?", sr.SessionID).
				Count(ctx)
			if err != nil {
				return apperr.FromStore(errors.Wrap(err, "count session registrations"), "Session")
			}
			if n >= capacity {
				return apperr.Conflictf("Session is full")
			}
		}
		if _, err := tx.NewInsert().Model(sr).Exec(ctx); err != nil {
			if apperr.IsUniqueViolation(err) {
				return apperr.Conflictf("Already registered for this session")
			}
			return apperr.FromStore(errors.Wrap(err, "insert session registration"), "Session")
		}
		return nil
	})
}

// DeleteByExpo removes an expo's attendee and session registrations.
func (d *DB) DeleteByExpo(ctx context.Context, idb bun.IDB, expoID string) error {
	if _, err := idb.NewDelete().
		Model((*models.SessionRegistration)(nil)).
		Where("expo_id = ?", expoID).
		Exec(ctx); err != nil {
		return apperr.FromStore(errors.Wrap(err, "delete session registrations by expo"), "Registration")
	}
	_, err := idb.NewDelete().
		Model((*models.AttendeeRegistration)(nil)).
		Where("expo_id = ?", expoID).
		Exec(ctx)
	return apperr.FromStore(errors.Wrap(err, "delete attendee registrations by expo"), "Registration")
}
