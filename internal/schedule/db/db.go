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

// ErrStale is returned by SaveSessions when another writer got there first.
var ErrStale = apperr.New(apperr.Conflict, "Schedule was modified concurrently, please retry")

type DB struct {
	Bun     *bun.DB
	Timeout time.Duration
}

// ---------------- SCHEDULES ----------------

func (d *DB) Create(ctx context.Context, s *models.Schedule) error {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	if _, err := d.Bun.NewInsert().Model(s).Exec(ctx); err != nil {
		if apperr.IsUniqueViolation(err) {
			return apperr.Conflictf("Schedule already exists for this expo")
		}
		return apperr.FromStore(errors.Wrap(err, "insert schedule"), "Schedule")
	}
	return nil
}

func (d *DB) Get(ctx context.Context, id string) (*models.Schedule, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	var s models.Schedule
	if err := d.Bun.NewSelect().Model(&s).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return nil, apperr.FromStore(err, "Schedule")
	}
	return &s, nil
}

func (d *DB) GetByExpo(ctx context.Context, expoID string) (*models.Schedule, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	var s models.Schedule
	if err := d.Bun.NewSelect().Model(&s).Where("expo_id = ?", expoID).Limit(1).Scan(ctx); err != nil {
		return nil, apperr.FromStore(err, "Schedule")
	}
	return &s, nil
}

// SaveSessions writes s.Sessions if the stored version still equals
// s.Version, then bumps s.Version. Otherwise it returns ErrStale.
func (d *DB) SaveSessions(ctx context.Context, s *models.Schedule) error {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	expected := s.Version
	s.Version = expected + 1
	s.UpdatedAt = time.Now().UTC()
	res, err := d.Bun.NewUpdate().
		Model(s).
		Column("sessions", "version", "updated_at").
		WherePK().
		Where("version = ?", expected).
		Exec(ctx)
	if err != nil {
		s.Version = expected
		return apperr.FromStore(errors.Wrap(err, "save sessions"), "Schedule")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		s.Version = expected
		exists, err := d.Bun.NewSelect().Model((*models.Schedule)(nil)).Where("id = ?", s.ID).Exists(ctx)
		if err != nil {
			return apperr.FromStore(err, "Schedule")
		}
		if !exists {
			return apperr.NotFoundf("Schedule not found")
		}
		return ErrStale
	}
	return nil
}

// DeleteByExpo removes an expo's schedule and its bookmarks.
func (d *DB) DeleteByExpo(ctx context.Context, idb bun.IDB, expoID string) error {
	sub := idb.NewSelect().Model((*models.Schedule)(nil)).Column("id").Where("expo_id = ?", expoID)
	if _, err := idb.NewDelete().
		Model((*models.SessionBookmark)(nil)).
		Where("schedule_id IN (?)", sub).
		Exec(ctx); err != nil {
		return apperr.FromStore(errors.Wrap(err, "delete bookmarks by expo"), "Schedule")
	}
	_, err := idb.NewDelete().
		Model((*models.Schedule)(nil)).
		Where("expo_id = ?", expoID).
		Exec(ctx)
	return apperr.FromStore(errors.Wrap(err, "delete schedule by expo"), "Schedule")
}

// ---------------- BOOKMARKS ----------------

// AddBookmark is idempotent.
func (d *DB) AddBookmark(ctx context.Context, b *models.SessionBookmark) error {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	_, err := d.Bun.NewInsert().Model(b).On("CONFLICT DO NOTHING").Exec(ctx)
	return apperr.FromStore(errors.Wrap(err, "insert bookmark"), "Bookmark")
}

func (d *DB) RemoveBookmark(ctx context.Context, userID, scheduleID, sessionID string) error {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	_, err := d.Bun.NewDelete().
		Model((*models.SessionBookmark)(nil)).
		Where("user_id = ?", userID).
		Where("schedule_id = ?", scheduleID).
		Where("session_id = ?", sessionID).
		Exec(ctx)
	return apperr.FromStore(errors.Wrap(err, "delete bookmark"), "Bookmark")
}

// RemoveSessionRefs drops every bookmark and attendee sign-up of a deleted
// session.
func (d *DB) RemoveSessionRefs(ctx context.Context, scheduleID, sessionID string) error {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range []interface{}{(*models.SessionBookmark)(nil), (*models.SessionRegistration)(nil)} {
			_, err := tx.NewDelete().
				Model(model).
				Where("schedule_id = ?", scheduleID).
				Where("session_id = ?", sessionID).
				Exec(ctx)
			if err != nil {
				return apperr.FromStore(errors.Wrap(err, "delete session references"), "Session")
			}
		}
		return nil
	})
}

func (d *DB) ListBookmarks(ctx context.Context, userID string) ([]models.SessionBookmark, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	marks := []models.SessionBookmark{}
	err := d.Bun.NewSelect().
		Model(&marks).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromStore(errors.Wrap(err, "list bookmarks"), "Bookmark")
	}
	return marks, nil
}
