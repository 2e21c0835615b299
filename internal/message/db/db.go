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

func (d *DB) Create(ctx context.Context, m *models.Message) error {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	_, err := d.Bun.NewInsert().Model(m).Exec(ctx)
	return apperr.FromStore(errors.Wrap(err, "insert message"), "Message")
}

func (d *DB) Get(ctx context.Context, id string) (*models.Message, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	var m models.Message
	if err := d.Bun.NewSelect().Model(&m).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return nil, apperr.FromStore(err, "Message")
	}
	return &m, nil
}

// ListForUser returns messages the user sent or received, newest first.
func (d *DB) ListForUser(ctx context.Context, userID string) ([]models.Message, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	msgs := []models.Message{}
	err := d.Bun.NewSelect().
		Model(&msgs).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("sender_id = ?", userID).WhereOr("recipient_id = ?", userID)
		}).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromStore(errors.Wrap(err, "list messages"), "Message")
	}
	return msgs, nil
}

// MarkRead flags a message read, only for its recipient. Reading twice keeps
// the first read_at.
func (d *DB) MarkRead(ctx context.Context, id, recipientID string, at time.Time) (*models.Message, error) {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	at = at.UTC()
	res, err := d.Bun.NewUpdate().
		Model((*models.Message)(nil)).
		Set("is_read = ?", true).
		Set("read_at = COALESCE(read_at, ?)", at).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Where("recipient_id = ?", recipientID).
		Exec(ctx)
	if err != nil {
		return nil, apperr.FromStore(errors.Wrap(err, "mark message read"), "Message")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, d.denied(ctx, id)
	}
	return d.Get(ctx, id)
}

// Delete removes a message, only for its sender.
func (d *DB) Delete(ctx context.Context, id, senderID string) error {
	ctx, cancel := database.OpContext(ctx, d.Timeout)
	defer cancel()

	res, err := d.Bun.NewDelete().
		Model((*models.Message)(nil)).
		Where("id = ?", id).
		Where("sender_id = ?", senderID).
		Exec(ctx)
	if err != nil {
		return apperr.FromStore(errors.Wrap(err, "delete message"), "Message")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return d.denied(ctx, id)
	}
	return nil
}

func (d *DB) DeleteByExpo(ctx context.Context, idb bun.IDB, expoID string) error {
	_, err := idb.NewDelete().
		Model((*models.Message)(nil)).
		Where("expo_id = ?", expoID).
		Exec(ctx)
	return apperr.FromStore(errors.Wrap(err, "delete messages by expo"), "Message")
}

// denied explains a zero-row guarded write: NotFound or Forbidden.
func (d *DB) denied(ctx context.Context, id string) error {
	exists, err := d.Bun.NewSelect().Model((*models.Message)(nil)).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return apperr.FromStore(errors.Wrap(err, "check message exists"), "Message")
	}
	if !exists {
		return apperr.NotFoundf("Message not found")
	}
	return apperr.Forbiddenf("Not authorized")
}
