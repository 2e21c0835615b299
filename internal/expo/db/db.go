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

// CascadeFunc deletes rows that belong to an expo inside the deletion transaction.
type CascadeFunc func(ctx context.Context, idb bun.IDB, expoID string) error

type DB struct {
	Bun     *bun.DB
	Timeout time.Duration
}

func (d *DB) CreateExpo(ctx context.Context, expo *models.Expo) error {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	_, err := d.Bun.NewInsert().Model(expo).Exec(ctx)
	return apperr.FromStore(errors.Wrap(err, "insert expo"), "Expo")
}

func (d *DB) GetExpo(ctx context.Context, id string) (*models.Expo, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	var expo models.Expo
	err := d.Bun.NewSelect().Model(&expo).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, apperr.FromStore(err, "Expo")
	}
	return &expo, nil
}

// ListExpos returns all expos, soonest first.
func (d *DB) ListExpos(ctx context.Context) ([]models.Expo, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	expos := []models.Expo{}
	err := d.Bun.NewSelect().Model(&expos).Order("start_date ASC").Scan(ctx)
	if err != nil {
		return nil, apperr.FromStore(errors.Wrap(err, "list expos"), "Expo")
	}
	return expos, nil
}

func (d *DB) UpdateExpo(ctx context.Context, expo *models.Expo) error {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	res, err := d.Bun.NewUpdate().
		Model(expo).
		Column("title", "start_date", "end_date", "location", "description", "theme", "floor_plan", "status", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return apperr.FromStore(errors.Wrap(err, "update expo"), "Expo")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFoundf("Expo not found")
	}
	return nil
}

// DeleteExpo removes the expo and, in the same transaction, everything the
// cascades own. Any failure rolls the whole deletion back.
func (d *DB) DeleteExpo(ctx context.Context, id string, cascades ...CascadeFunc) error {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, cascade := range cascades {
			if err := cascade(ctx, tx, id); err != nil {
				return err
			}
		}
		res, err := tx.NewDelete().Model((*models.Expo)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return errors.Wrap(err, "delete expo")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.NotFoundf("Expo not found")
		}
		return nil
	})
	return apperr.FromStore(err, "Expo")
}
