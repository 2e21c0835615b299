// Command migrate manages the EventSphere schema and demo data.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"eventsphere/internal/config"
	"eventsphere/internal/database"
	"eventsphere/internal/database/migrations"
	"eventsphere/internal/logger"
)

var (
	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Schema migrations and demo data for EventSphere",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		cfg = config.Load()
		log.SetLevel(logger.ParseLevel(cfg.LogLevel))
	},
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *bun.DB) error {
			if database.IsSQLite(cfg.Database.DSN) {
				return database.CreateSchema(ctx, db)
			}
			return withRunner(db, (*migrations.Runner).Up)
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *bun.DB) error {
			if database.IsSQLite(cfg.Database.DSN) {
				return database.ResetSchema(ctx, db)
			}
			return withRunner(db, (*migrations.Runner).Down)
		})
	},
}

var toCmd = &cobra.Command{
	Use:   "to VERSION",
	Short: "Migrate up or down to VERSION",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return errors.Wrapf(err, "invalid version %q", args[0])
		}
		return withDB(cmd.Context(), func(ctx context.Context, db *bun.DB) error {
			return withRunner(db, func(r *migrations.Runner) error { return r.To(uint(version)) })
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *bun.DB) error {
			return withRunner(db, func(r *migrations.Runner) error {
				v, dirty, err := r.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", v, dirty)
				return nil
			})
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo users, an expo and booths",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *bun.DB) error {
			if err := database.Prepare(ctx, db, cfg.Database, log); err != nil {
				return err
			}
			return seedData(ctx, db, cfg.Auth.BcryptCost)
		})
	},
}

func withDB(ctx context.Context, fn func(ctx context.Context, db *bun.DB) error) error {
	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	defer db.Close()
	return fn(ctx, db)
}

func withRunner(db *bun.DB, fn func(r *migrations.Runner) error) error {
	if database.IsSQLite(cfg.Database.DSN) {
		return errors.New("versioned migrations require PostgreSQL")
	}
	runner := migrations.NewRunner(db.DB, cfg.Database.MigrationsDir, log)
	defer runner.Close()
	return fn(runner)
}

func main() {
	log = logger.NewLogger()
	defer log.Close()

	rootCmd.AddCommand(upCmd, downCmd, toCmd, versionCmd, seedCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Error("MIGRATE", err.Error())
		log.Close()
		os.Exit(1)
	}
}
