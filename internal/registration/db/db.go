package db

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"eventsphere/internal/apperr"
	boothdb "eventsphere/internal/booth/db"
	"eventsphere/internal/database"
	"eventsphere/internal/models"
)

type DB struct {
	Bun     *bun.DB
	Booths  *boothdb.DB
	Timeout time.Duration
}

// ---------------- READS ----------------

func (d *DB) Get(ctx context.Context, id string) (*models.ExhibitorRegistration, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()
	return get(ctx, d.Bun, id)
}

func get(ctx context.Context, idb bun.IDB, id string) (*models.ExhibitorRegistration, error) {
	var reg models.ExhibitorRegistration
	err := idb.NewSelect().Model(&reg).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, apperr.FromStore(err, "Registration")
	}
	return &reg, nil
}

// ListByExpo returns an expo's registrations, newest first. An empty status
// means all.
func (d *DB) ListByExpo(ctx context.Context, expoID, status string) ([]models.ExhibitorRegistration, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	regs := []models.ExhibitorRegistration{}
	q := d.Bun.NewSelect().Model(&regs).Where("expo_id = ?", expoID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("created_at DESC").Scan(ctx); err != nil {
		return nil, apperr.FromStore(errors.Wrap(err, "list registrations by expo"), "Registration")
	}
	return regs, nil
}

func (d *DB) ListByExhibitor(ctx context.Context, exhibitorID string) ([]models.ExhibitorRegistration, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	regs := []models.ExhibitorRegistration{}
	err := d.Bun.NewSelect().
		Model(&regs).
		Where("exhibitor_id = ?", exhibitorID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromStore(errors.Wrap(err, "list registrations by exhibitor"), "Registration")
	}
	return regs, nil
}

// Search lists approved registrations. Text matches company name or
// description case-insensitively; category matches any product/service
// category. The category filter runs in Go because the products column is
// JSON and its operators differ between PostgreSQL and SQLite.
func (d *DB) Search(ctx context.Context, f models.SearchFilter) ([]models.ExhibitorRegistration, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	var regs []models.ExhibitorRegistration
	q := d.Bun.NewSelect().Model(&regs).Where("status = ?", models.RegistrationApproved)
	if f.ExpoID != "" {
		q = q.Where("expo_id = ?", f.ExpoID)
	}
	if text := strings.TrimSpace(f.Text); text != "" {
		pattern := "%" + strings.ToLower(text) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(company_name) LIKE ?", pattern).
				WhereOr("LOWER(COALESCE(company_description, '')) LIKE ?", pattern)
		})
	}
	if err := q.Order("company_name ASC").Scan(ctx); err != nil {
		return nil, apperr.FromStore(errors.Wrap(err, "search registrations"), "Registration")
	}

	out := []models.ExhibitorRegistration{}
	category := strings.ToLower(strings.TrimSpace(f.Category))
	for _, r := range regs {
		if category == "" || hasCategory(r, category) {
			out = append(out, r)
		}
	}
	return out, nil
}

func hasCategory(r models.ExhibitorRegistration, category string) bool {
	for _, p := range r.ProductsServices {
		if strings.ToLower(p.Category) == category {
			return true
		}
	}
	return false
}

// ---------------- WRITES ----------------

func (d *DB) Create(ctx context.Context, reg *models.ExhibitorRegistration) error {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	if _, err := d.Bun.NewInsert().Model(reg).Exec(ctx); err != nil {
		if apperr.IsUniqueViolation(err) {
			return apperr.Conflictf("You have already registered for this expo")
		}
		return apperr.FromStore(errors.Wrap(err, "insert registration"), "Registration")
	}
	return nil
}

// UpdateStatus records a review decision. Empty notes keep the existing notes.
func (d *DB) UpdateStatus(ctx context.Context, id, status, notes, reviewer string, at time.Time) (*models.ExhibitorRegistration, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	at = at.UTC()
	q := d.Bun.NewUpdate().
		Model((*models.ExhibitorRegistration)(nil)).
		Set("status = ?", status).
		Set("reviewed_by = ?", reviewer).
		Set("reviewed_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", id)
	if notes != "" {
		q = q.Set("notes = ?", notes)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return nil, apperr.FromStore(errors.Wrap(err, "update registration status"), "Registration")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.NotFoundf("Registration not found")
	}
	return get(ctx, d.Bun, id)
}

// UpdateOwn saves the self-service fields of reg, only if exhibitorID owns it.
func (d *DB) UpdateOwn(ctx context.Context, reg *models.ExhibitorRegistration, exhibitorID string) (*models.ExhibitorRegistration, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	res, err := d.Bun.NewUpdate().
		Model(reg).
		Column("company_name", "company_description", "products_services", "documents", "logo", "contact_info", "staff", "updated_at").
		WherePK().
		Where("exhibitor_id = ?", exhibitorID).
		Exec(ctx)
	if err != nil {
		return nil, apperr.FromStore(errors.Wrap(err, "update registration"), "Registration")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := get(ctx, d.Bun, reg.ID); err != nil {
			return nil, err
		}
		return nil, apperr.Forbiddenf("Not authorized to update this registration")
	}
	return get(ctx, d.Bun, reg.ID)
}

// AssignBooth occupies boothID for the registration's exhibitor and approves
// the registration, atomically. On any failure neither row changes.
func (d *DB) AssignBooth(ctx context.Context, regID, boothID, reviewer string, at time.Time) (*models.ExhibitorRegistration, *models.Booth, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	var reg *models.ExhibitorRegistration
	var booth *models.Booth
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if reg, err = get(ctx, tx, regID); err != nil {
			return err
		}
		switch reg.Status {
		case models.RegistrationRejected, models.RegistrationCancelled:
			return apperr.Conflictf("Cannot assign a booth to a %s registration", reg.Status)
		}
		if reg.BoothID != "" && reg.BoothID != boothID {
			held, err := holdsBooth(ctx, tx, reg.BoothID, reg.ExhibitorID)
			if err != nil {
				return err
			}
			if held {
				return apperr.Conflictf("Registration already has booth %s; release it first", reg.BoothID)
			}
		}

		var target models.Booth
		if err := tx.NewSelect().Model(&target).Where("id = ?", boothID).Limit(1).Scan(ctx); err != nil {
			return apperr.FromStore(err, "Booth")
		}
		if target.ExpoID != reg.ExpoID {
			return apperr.Validationf("Booth does not belong to this expo")
		}

		if booth, err = d.Booths.Assign(ctx, tx, boothID, reg.ExhibitorID); err != nil {
			return err
		}

		at = at.UTC()
		_, err = tx.NewUpdate().
			Model((*models.ExhibitorRegistration)(nil)).
			Set("booth_id = ?", boothID).
			Set("status = ?", models.RegistrationApproved).
			Set("reviewed_by = ?", reviewer).
			Set("reviewed_at = ?", at).
			Set("updated_at = ?", at).
			Where("id = ?", regID).
			Exec(ctx)
		if err != nil {
			return errors.Wrap(err, "approve registration")
		}
		reg, err = get(ctx, tx, regID)
		return err
	})
	if err != nil {
		return nil, nil, apperr.FromStore(err, "Registration")
	}
	return reg, booth, nil
}

// holdsBooth reports whether exhibitorID still holds boothID. A registration
// whose booth was freed or deleted points at nothing.
func holdsBooth(ctx context.Context, idb bun.IDB, boothID, exhibitorID string) (bool, error) {
	held, err := idb.NewSelect().
		Model((*models.Booth)(nil)).
		Where("id = ?", boothID).
		Where("exhibitor_id = ?", exhibitorID).
		Exists(ctx)
	if err != nil {
		return false, errors.Wrap(err, "check registration booth")
	}
	return held, nil
}

func (d *DB) DeleteByExpo(ctx context.Context, idb bun.IDB, expoID string) error {
	_, err := idb.NewDelete().
		Model((*models.ExhibitorRegistration)(nil)).
		Where("expo_id = ?", expoID).
		Exec(ctx)
	return apperr.FromStore(errors.Wrap(err, "delete registrations by expo"), "Registration")
}
