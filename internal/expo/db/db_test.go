package db_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"eventsphere/internal/apperr"
	boothdb "eventsphere/internal/booth/db"
	"eventsphere/internal/database"
	"eventsphere/internal/expo/db"
	"eventsphere/internal/models"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	bunDB, err := database.NewTestDB(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { bunDB.Close() })
	return &db.DB{Bun: bunDB, Timeout: 5 * time.Second}, bunDB
}

func newExpo(title string, start time.Time) *models.Expo {
	now := time.Now().UTC()
	return &models.Expo{
		ID:        uuid.NewString(),
		Title:     title,
		StartDate: start.UTC(),
		EndDate:   start.Add(48 * time.Hour).UTC(),
		Location:  "Hall 1",
		Status:    models.ExpoDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateListAndUpdate(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestDB(t)

	later := newExpo("Later", time.Now().Add(30*24*time.Hour))
	sooner := newExpo("Sooner", time.Now().Add(24*time.Hour))
	require.NoError(t, store.CreateExpo(ctx, later))
	require.NoError(t, store.CreateExpo(ctx, sooner))

	expos, err := store.ListExpos(ctx)
	require.NoError(t, err)
	require.Len(t, expos, 2)
	assert.Equal(t, "Sooner", expos[0].Title)

	sooner.Title = "Sooner Still"
	sooner.FloorPlan = models.FloorPlan{ImageURL: "https://example.com/plan.png", Width: 100, Height: 50}
	require.NoError(t, store.UpdateExpo(ctx, sooner))

	got, err := store.GetExpo(ctx, sooner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sooner Still", got.Title)
	assert.Equal(t, 100.0, got.FloorPlan.Width)

	_, err = store.GetExpo(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.NotFound))
	assert.True(t, apperr.Is(store.UpdateExpo(ctx, newExpo("ghost", time.Now())), apperr.NotFound))
}

func TestDeleteCascadesInOneTransaction(t *testing.T) {
	ctx := context.Background()
	store, bunDB := setupTestDB(t)
	booths := &boothdb.DB{Bun: bunDB, Timeout: 5 * time.Second}

	expo := newExpo("Expo", time.Now())
	require.NoError(t, store.CreateExpo(ctx, expo))
	now := time.Now().UTC()
	require.NoError(t, booths.CreateBooth(ctx, &models.Booth{
		ID: uuid.NewString(), ExpoID: expo.ID, BoothNumber: "A1", Status: models.BoothAvailable, CreatedAt: now, UpdatedAt: now,
	}))

	// a failing cascade rolls back the booth deletion and keeps the expo
	failing := func(ctx context.Context, idb bun.IDB, expoID string) error { return errors.New("boom") }
	err := store.DeleteExpo(ctx, expo.ID, booths.DeleteByExpo, failing)
	require.Error(t, err)
	left, err := booths.ListByExpo(ctx, expo.ID)
	require.NoError(t, err)
	assert.Len(t, left, 1)

	require.NoError(t, store.DeleteExpo(ctx, expo.ID, booths.DeleteByExpo))
	_, err = store.GetExpo(ctx, expo.ID)
	assert.True(t, apperr.Is(err, apperr.NotFound))
	left, err = booths.ListByExpo(ctx, expo.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	assert.True(t, apperr.Is(store.DeleteExpo(ctx, expo.ID), apperr.NotFound))
}
