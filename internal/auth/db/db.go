package db

import (
	"context"
	"strings"
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

func (d *DB) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if _, err := d.Bun.NewInsert().Model(user).Exec(ctx); err != nil {
		if apperr.IsUniqueViolation(err) {
			return apperr.Conflictf("User already exists")
		}
		return apperr.FromStore(errors.Wrap(err, "insert user"), "user")
	}
	return nil
}

func (d *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	var user models.User
	err := d.Bun.NewSelect().Model(&user).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, apperr.FromStore(err, "User")
	}
	return &user, nil
}

func (d *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromStore(err, "User")
	}
	return &user, nil
}

func (d *DB) UpdatePassword(ctx context.Context, id, hash string) error {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	_, err := d.Bun.NewUpdate().
		Model((*models.User)(nil)).
		Set("password_hash = ?", hash).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	return apperr.FromStore(err, "User")
}
