package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"

	"eventsphere/internal/config"
	"eventsphere/internal/database/migrations"
	"eventsphere/internal/logger"
)

// IsSQLite reports whether dsn selects the embedded SQLite driver.
func IsSQLite(dsn string) bool {
	return strings.HasPrefix(dsn, "file:") || strings.HasPrefix(dsn, "sqlite:") || dsn == ":memory:"
}

// Open connects to PostgreSQL, retrying while the server comes up, or to
// SQLite for "file:" / "sqlite:" DSNs.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	if IsSQLite(cfg.DSN) {
		log.Info("DATABASE", "Using SQLite at "+cfg.DSN)
		return OpenSQLite(strings.TrimPrefix(cfg.DSN, "sqlite:"))
	}

	attempts := cfg.ConnectRetries
	if attempts < 1 {
		attempts = 1
	}

	var sqldb *sql.DB
	var err error
	for i := 0; i < attempts; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, attempts))
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, cfg.OpTimeout)
			err = sqldb.PingContext(pingCtx)
			cancel()
			if err == nil {
				break
			}
			sqldb.Close()
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to postgres after %d attempts: %w", attempts, err)
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)
	log.Info("DATABASE", "PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

// Prepare brings the schema up to date: SQL migrations on PostgreSQL,
// model-driven tables on SQLite.
func Prepare(ctx context.Context, db *bun.DB, cfg config.DatabaseConfig, log *logger.Logger) error {
	if db.Dialect().Name() == dialect.SQLite {
		return CreateSchema(ctx, db)
	}
	if !cfg.AutoMigrate {
		log.Info("MIGRATE", "AUTO_MIGRATE disabled, skipping migrations")
		return nil
	}
	runner := migrations.NewRunner(db.DB, cfg.MigrationsDir, log)
	defer runner.Close()
	return runner.Up()
}
