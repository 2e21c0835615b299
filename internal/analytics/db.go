package analytics

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"eventsphere/internal/apperr"
	"eventsphere/internal/database"
	"eventsphere/internal/models"
)

// DB runs the aggregate queries behind expo analytics.
type DB struct {
	bun     *bun.DB
	timeout time.Duration
}

func NewDB(db *bun.DB, timeout time.Duration) *DB {
	return &DB{bun: db, timeout: timeout}
}

// BoothStatusRow is one status bucket of an expo's booths.
type BoothStatusRow struct {
	Status  string  `bun:"status"`
	Count   int     `bun:"count"`
	Revenue float64 `bun:"revenue"`
}

func (db *DB) BoothsByStatus(ctx context.Context, expoID string) ([]BoothStatusRow, error) {
	ctx, cancel := database.OpContext(ctx, db.timeout)
	defer cancel()

	var rows []BoothStatusRow
	err := db.bun.NewSelect().
		Model((*models.Booth)(nil)).
		ColumnExpr("status").
		ColumnExpr("COUNT(*) AS count").
		ColumnExpr("COALESCE(SUM(price), 0) AS revenue").
		Where("expo_id = ?", expoID).
		GroupExpr("status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, apperr.FromStore(errors.Wrap(err, "booths by status"), "Booth")
	}
	return rows, nil
}

func (db *DB) RegistrationsByStatus(ctx context.Context, expoID string) ([]models.StatusCount, error) {
	ctx, cancel := database.OpContext(ctx, db.timeout)
	defer cancel()

	var rows []models.StatusCount
	err := db.bun.NewSelect().
		Model((*models.ExhibitorRegistration)(nil)).
		ColumnExpr("status").
		ColumnExpr("COUNT(*) AS count").
		Where("expo_id = ?", expoID).
		GroupExpr("status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, apperr.FromStore(errors.Wrap(err, "registrations by status"), "Registration")
	}
	return rows, nil
}

// ApprovedProducts returns the product lists of approved registrations. The
// column is JSON, so categories are counted by the caller.
func (db *DB) ApprovedProducts(ctx context.Context, expoID string) ([][]models.ProductService, error) {
	ctx, cancel := database.OpContext(ctx, db.timeout)
	defer cancel()

	var regs []models.ExhibitorRegistration
	err := db.bun.NewSelect().
		Model(&regs).
		Column("products_services").
		Where("expo_id = ?", expoID).
		Where("status = ?", models.RegistrationApproved).
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromStore(errors.Wrap(err, "approved products"), "Registration")
	}
	out := make([][]models.ProductService, 0, len(regs))
	for _, r := range regs {
		out = append(out, r.ProductsServices)
	}
	return out, nil
}

func (db *DB) AttendeeCount(ctx context.Context, expoID string) (int, error) {
	ctx, cancel := database.OpContext(ctx, db.timeout)
	defer cancel()

	n, err := db.bun.NewSelect().
		Model((*models.AttendeeRegistration)(nil)).
		Where("expo_id = ?", expoID).
		Count(ctx)
	if err != nil {
		return 0, apperr.FromStore(errors.Wrap(err, "count attendees"), "Registration")
	}
	return n, nil
}

// Schedule returns the expo's schedule, or nil when it has none.
func (db *DB) Schedule(ctx context.Context, expoID string) (*models.Schedule, error) {
	ctx, cancel := database.OpContext(ctx, db.timeout)
	defer cancel()

	var sched models.Schedule
	err := db.bun.NewSelect().Model(&sched).Where("expo_id = ?", expoID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.FromStore(errors.Wrap(err, "load schedule"), "Schedule")
	}
	return &sched, nil
}

// SessionCountRow is one session's tally in a bookmark or sign-up count.
type SessionCountRow struct {
	SessionID string `bun:"session_id"`
	Count     int    `bun:"count"`
}

func (db *DB) BookmarksBySession(ctx context.Context, scheduleID string) ([]SessionCountRow, error) {
	return db.countBySession(ctx, (*models.SessionBookmark)(nil), scheduleID)
}

func (db *DB) RegistrationsBySession(ctx context.Context, scheduleID string) ([]SessionCountRow, error) {
	return db.countBySession(ctx, (*models.SessionRegistration)(nil), scheduleID)
}

func (db *DB) countBySession(ctx context.Context, model interface{}, scheduleID string) ([]SessionCountRow, error) {
	ctx, cancel := database.OpContext(ctx, db.timeout)
	defer cancel()

	var rows []SessionCountRow
	err := db.bun.NewSelect().
		Model(model).
		ColumnExpr("session_id").
		ColumnExpr("COUNT(*) AS count").
		Where("schedule_id = ?", scheduleID).
		GroupExpr("session_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, apperr.FromStore(errors.Wrap(err, "count by session"), "Session")
	}
	return rows, nil
}
