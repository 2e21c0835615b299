package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsphere/internal/apperr"
	"eventsphere/internal/attendee/db"
	"eventsphere/internal/database"
	"eventsphere/internal/models"
)

func setupTestDB(t *testing.T) *db.DB {
	bunDB, err := database.NewTestDB(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { bunDB.Close() })
	return &db.DB{Bun: bunDB, Timeout: 5 * time.Second}
}

func register(t *testing.T, store *db.DB, expoID, attendeeID string) *models.AttendeeRegistration {
	reg := &models.AttendeeRegistration{ID: uuid.NewString(), ExpoID: expoID, AttendeeID: attendeeID, CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Create(context.Background(), reg))
	return reg
}

func signUp(userID, sessionID string) *models.SessionRegistration {
	return &models.SessionRegistration{UserID: userID, ScheduleID: "sched-1", SessionID: sessionID, ExpoID: "expo-1", CreatedAt: time.Now().UTC()}
}

func TestCreateIsUniquePerExpo(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)
	register(t, store, "expo-1", "att-1")

	dup := &models.AttendeeRegistration{ID: uuid.NewString(), ExpoID: "expo-1", AttendeeID: "att-1", CreatedAt: time.Now()}
	assert.True(t, apperr.Is(store.Create(ctx, dup), apperr.Conflict))

	register(t, store, "expo-2", "att-1")

	got, err := store.Get(ctx, "expo-2", "att-1")
	require.NoError(t, err)
	assert.Equal(t, "att-1", got.AttendeeID)

	_, err = store.Get(ctx, "expo-3", "att-1")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestAddSessionRejectsDuplicateAndFull(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)

	require.NoError(t, store.AddSession(ctx, signUp("att-1", "s1"), 2))
	assert.True(t, apperr.Is(store.AddSession(ctx, signUp("att-1", "s1"), 2), apperr.Conflict))

	require.NoError(t, store.AddSession(ctx, signUp("att-2", "s1"), 2))
	err := store.AddSession(ctx, signUp("att-3", "s1"), 2)
	require.True(t, apperr.Is(err, apperr.Conflict))
	assert.Contains(t, err.Error(), "full")

	// zero capacity means unlimited
	for _, user := range []string{"att-1", "att-2", "att-3"} {
		require.NoError(t, store.AddSession(ctx, signUp(user, "s2"), 0))
	}
}

func TestListByAttendeeGroupsSessions(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)
	register(t, store, "expo-1", "att-1")
	register(t, store, "expo-2", "att-1")
	register(t, store, "expo-1", "att-2")
	require.NoError(t, store.AddSession(ctx, signUp("att-1", "s1"), 0))
	require.NoError(t, store.AddSession(ctx, signUp("att-1", "s2"), 0))
	require.NoError(t, store.AddSession(ctx, signUp("att-2", "s1"), 0))

	regs, err := store.ListByAttendee(ctx, "att-1")
	require.NoError(t, err)
	require.Len(t, regs, 2)
	for _, r := range regs {
		switch r.ExpoID {
		case "expo-1":
			assert.Len(t, r.Sessions, 2)
		case "expo-2":
			assert.NotNil(t, r.Sessions)
			assert.Empty(t, r.Sessions)
		}
	}

	none, err := store.ListByAttendee(ctx, "att-9")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteByExpo(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)
	register(t, store, "expo-1", "att-1")
	register(t, store, "expo-2", "att-1")
	require.NoError(t, store.AddSession(ctx, signUp("att-1", "s1"), 0))

	require.NoError(t, store.DeleteByExpo(ctx, store.Bun, "expo-1"))

	regs, err := store.ListByAttendee(ctx, "att-1")
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, "expo-2", regs[0].ExpoID)

	n, err := store.Bun.NewSelect().Model((*models.SessionRegistration)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
