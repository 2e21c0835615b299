package db

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

type DB struct {
	Bun     *bun.DB
	Timeout time.Duration
}

// ---------------- READS ----------------

func (d *DB) GetBooth(ctx context.Context, id string) (*models.Booth, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()
	return getBooth(ctx, d.Bun, id)
}

func getBooth(ctx context.Context, idb bun.IDB, id string) (*models.Booth, error) {
	var booth models.Booth
	err := idb.NewSelect().
		Model(&booth).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromStore(err, "Booth")
	}
	return &booth, nil
}

// ListByExpo returns every booth of an expo ordered by booth number.
func (d *DB) ListByExpo(ctx context.Context, expoID string) ([]models.Booth, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	booths := []models.Booth{}
	err := d.Bun.NewSelect().
		Model(&booths).
		Where("expo_id = ?", expoID).
		Order("booth_number ASC").
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromStore(errors.Wrap(err, "list booths by expo"), "Booth")
	}
	return booths, nil
}

// ListByExhibitor returns the booths held by an exhibitor across all expos.
func (d *DB) ListByExhibitor(ctx context.Context, exhibitorID string) ([]models.Booth, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	booths := []models.Booth{}
	err := d.Bun.NewSelect().
		Model(&booths).
		Where("exhibitor_id = ?", exhibitorID).
		Order("expo_id ASC", "booth_number ASC").
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromStore(errors.Wrap(err, "list booths by exhibitor"), "Booth")
	}
	return booths, nil
}

// ---------------- WRITES ----------------

func (d *DB) CreateBooth(ctx context.Context, booth *models.Booth) error {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	if _, err := d.Bun.NewInsert().Model(booth).Exec(ctx); err != nil {
		if apperr.IsUniqueViolation(err) {
			return apperr.Conflictf("Booth number %s already exists for this expo", booth.BoothNumber)
		}
		return apperr.FromStore(errors.Wrap(err, "insert booth"), "Booth")
	}
	return nil
}

// Reserve moves an available booth to reserved in one conditional statement,
// so of any number of concurrent callers exactly one succeeds.
func (d *DB) Reserve(ctx context.Context, id, exhibitorID string, at time.Time) (*models.Booth, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	at = at.UTC()
	res, err := d.Bun.NewUpdate().
		Model((*models.Booth)(nil)).
		Set("status = ?", models.BoothReserved).
		Set("exhibitor_id = ?", exhibitorID).
		Set("reserved_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Where("status = ?", models.BoothAvailable).
		Exec(ctx)
	if err := d.checkTransition(ctx, d.Bun, id, res, err, "Booth is not available"); err != nil {
		return nil, err
	}
	return getBooth(ctx, d.Bun, id)
}

// Assign occupies a booth that is available or already held by exhibitorID.
// idb may be a transaction; nil means the pool.
func (d *DB) Assign(ctx context.Context, idb bun.IDB, id, exhibitorID string) (*models.Booth, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()
	if idb == nil {
		idb = d.Bun
	}

	res, err := idb.NewUpdate().
		Model((*models.Booth)(nil)).
		Set("status = ?", models.BoothOccupied).
		Set("exhibitor_id = ?", exhibitorID).
		Set("reserved_at = NULL").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		WhereGroup(" AND ", func(q *bun.UpdateQuery) *bun.UpdateQuery {
			return q.Where("status = ?", models.BoothAvailable).
				WhereOr("exhibitor_id = ?", exhibitorID)
		}).
		Exec(ctx)
	if err := d.checkTransition(ctx, idb, id, res, err, "Booth is not available"); err != nil {
		return nil, err
	}
	return getBooth(ctx, idb, id)
}

// Release forces a reserved, occupied or maintenance booth back to available.
// Registrations that were assigned the booth lose it in the same transaction;
// they are returned in their new state.
func (d *DB) Release(ctx context.Context, id string) (*models.Booth, []models.ExhibitorRegistration, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	var booth *models.Booth
	var detached []models.ExhibitorRegistration
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := freeBooth(tx.NewUpdate()).
			Where("id = ?", id).
			Where("status <> ?", models.BoothAvailable).
			Exec(ctx)
		if err := d.checkTransition(ctx, tx, id, res, err, "Booth is already available"); err != nil {
			return err
		}
		if detached, err = detachRegistrations(ctx, tx, id); err != nil {
			return err
		}
		booth, err = getBooth(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return booth, detached, nil
}

// ReleaseHold frees a booth only if it is still reserved by exhibitorID.
func (d *DB) ReleaseHold(ctx context.Context, id, exhibitorID string) (bool, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	released := false
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := freeBooth(tx.NewUpdate()).
			Where("id = ?", id).
			Where("status = ?", models.BoothReserved).
			Where("exhibitor_id = ?", exhibitorID).
			Exec(ctx)
		if err != nil {
			return apperr.FromStore(errors.Wrap(err, "release hold"), "Booth")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return apperr.FromStore(err, "Booth")
		}
		if n == 0 {
			return nil
		}
		released = true
		_, err = detachRegistrations(ctx, tx, id)
		return err
	})
	return released, err
}

// ReleaseExpired frees every reservation made before cutoff and returns the
// booths it released, in their new state.
func (d *DB) ReleaseExpired(ctx context.Context, cutoff time.Time) ([]models.Booth, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	cutoff = cutoff.UTC()
	var stale []models.Booth
	err := d.Bun.NewSelect().
		Model(&stale).
		Where("status = ?", models.BoothReserved).
		Where("reserved_at < ?", cutoff).
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromStore(errors.Wrap(err, "select expired reservations"), "Booth")
	}

	released := []models.Booth{}
	for _, b := range stale {
		var fresh *models.Booth
		err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			res, err := freeBooth(tx.NewUpdate()).
				Where("id = ?", b.ID).
				Where("status = ?", models.BoothReserved).
				Where("reserved_at < ?", cutoff).
				Exec(ctx)
			if err != nil {
				return apperr.FromStore(errors.Wrap(err, "release expired reservation"), "Booth")
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return nil
			}
			if _, err := detachRegistrations(ctx, tx, b.ID); err != nil {
				return err
			}
			fresh, err = getBooth(ctx, tx, b.ID)
			return err
		})
		if err != nil {
			return released, err
		}
		if fresh != nil {
			released = append(released, *fresh)
		}
	}
	return released, nil
}

// freeBooth sets the columns of an available booth; callers add the guards.
func freeBooth(q *bun.UpdateQuery) *bun.UpdateQuery {
	return q.Model((*models.Booth)(nil)).
		Set("status = ?", models.BoothAvailable).
		Set("exhibitor_id = NULL").
		Set("reserved_at = NULL").
		Set("updated_at = ?", time.Now().UTC())
}

// detachRegistrations clears booth_id on every registration pointing at a
// booth that was just freed.
func detachRegistrations(ctx context.Context, idb bun.IDB, boothID string) ([]models.ExhibitorRegistration, error) {
	regs := []models.ExhibitorRegistration{}
	if err := idb.NewSelect().Model(&regs).Where("booth_id = ?", boothID).Scan(ctx); err != nil {
		return nil, apperr.FromStore(errors.Wrap(err, "select registrations of booth"), "Registration")
	}
	if len(regs) == 0 {
		return regs, nil
	}

	now := time.Now().UTC()
	_, err := idb.NewUpdate().
		Model((*models.ExhibitorRegistration)(nil)).
		Set("booth_id = NULL").
		Set("updated_at = ?", now).
		Where("booth_id = ?", boothID).
		Exec(ctx)
	if err != nil {
		return nil, apperr.FromStore(errors.Wrap(err, "detach registrations from booth"), "Registration")
	}
	for i := range regs {
		regs[i].BoothID = ""
		regs[i].UpdatedAt = now
	}
	return regs, nil
}

func (d *DB) SetMaintenance(ctx context.Context, id string) (*models.Booth, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	res, err := d.Bun.NewUpdate().
		Model((*models.Booth)(nil)).
		Set("status = ?", models.BoothMaintenance).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", models.BoothAvailable).
		Exec(ctx)
	if err := d.checkTransition(ctx, d.Bun, id, res, err, "Only available booths can be put into maintenance"); err != nil {
		return nil, err
	}
	return getBooth(ctx, d.Bun, id)
}

// UpdateDetails writes the exhibitor-editable fields that are set in details,
// only for the exhibitor holding the booth. Status is never touched.
func (d *DB) UpdateDetails(ctx context.Context, id, exhibitorID string, details models.BoothDetails) (*models.Booth, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	row := &models.Booth{ID: id, UpdatedAt: time.Now().UTC()}
	columns := []string{"updated_at"}
	if details.ProductsServices != nil {
		row.ProductsServices = *details.ProductsServices
		columns = append(columns, "products_services")
	}
	if details.Staff != nil {
		row.Staff = *details.Staff
		columns = append(columns, "staff")
	}
	res, err := d.Bun.NewUpdate().
		Model(row).
		Column(columns...).
		WherePK().
		Where("exhibitor_id = ?", exhibitorID).
		Exec(ctx)
	if err != nil {
		return nil, apperr.FromStore(errors.Wrap(err, "update booth details"), "Booth")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := getBooth(ctx, d.Bun, id); err != nil {
			return nil, err
		}
		return nil, apperr.Forbiddenf("Not authorized to update this booth")
	}
	return getBooth(ctx, d.Bun, id)
}

// DeleteByExpo removes all booths of an expo; idb is normally the expo
// deletion transaction.
func (d *DB) DeleteByExpo(ctx context.Context, idb bun.IDB, expoID string) error {
	_, err := idb.NewDelete().
		Model((*models.Booth)(nil)).
		Where("expo_id = ?", expoID).
		Exec(ctx)
	return apperr.FromStore(errors.Wrap(err, "delete booths by expo"), "Booth")
}

// checkTransition turns a zero-row conditional update into NotFound when the
// booth does not exist and Conflict otherwise.
func (d *DB) checkTransition(ctx context.Context, idb bun.IDB, id string, res sql.Result, err error, conflictMsg string) error {
	if err != nil {
		return apperr.FromStore(errors.Wrap(err, "booth transition"), "Booth")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.FromStore(err, "Booth")
	}
	if n > 0 {
		return nil
	}
	exists, err := idb.NewSelect().Model((*models.Booth)(nil)).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return apperr.FromStore(errors.Wrap(err, "check booth exists"), "Booth")
	}
	if !exists {
		return apperr.NotFoundf("Booth not found")
	}
	return apperr.Conflictf("%s", conflictMsg)
}
