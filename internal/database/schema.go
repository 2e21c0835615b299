package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"eventsphere/internal/models"
)

// Models lists every table in creation order.
func Models() []interface{} {
	return []interface{}{
		(*models.User)(nil),
		(*models.Expo)(nil),
		(*models.Booth)(nil),
		(*models.ExhibitorRegistration)(nil),
		(*models.Schedule)(nil),
		(*models.SessionBookmark)(nil),
		(*models.AttendeeRegistration)(nil),
		(*models.SessionRegistration)(nil),
		(*models.Message)(nil),
	}
}

// CreateSchema creates missing tables from the bun models. PostgreSQL
// deployments use the SQL migrations instead; this serves SQLite.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, m := range Models() {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}
	return nil
}

// ResetSchema drops and recreates every table.
func ResetSchema(ctx context.Context, db *bun.DB) error {
	return db.ResetModel(ctx, Models()...)
}

// OpenSQLite opens dsn through sqliteshim on a single connection, so an
// in-memory database is seen by every goroutine.
func OpenSQLite(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// NewTestDB returns a fresh in-memory database with all tables created.
func NewTestDB(ctx context.Context) (*bun.DB, error) {
	db, err := OpenSQLite(":memory:")
	if err != nil {
		return nil, err
	}
	if err := ResetSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
