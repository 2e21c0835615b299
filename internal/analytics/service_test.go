package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"eventsphere/internal/analytics"
	"eventsphere/internal/apperr"
	boothdb "eventsphere/internal/booth/db"
	"eventsphere/internal/database"
	expodb "eventsphere/internal/expo/db"
	"eventsphere/internal/models"
	regdb "eventsphere/internal/registration/db"
)

var (
	organizer = &models.Actor{ID: "org-1", Role: models.RoleOrganizer}
	stranger  = &models.Actor{ID: "org-2", Role: models.RoleOrganizer}
	admin     = &models.Actor{ID: "admin-1", Role: models.RoleAdmin}
	exhibitor = &models.Actor{ID: "ex-1", Role: models.RoleExhibitor}
)

func seed(t *testing.T) (*analytics.Service, string, *bun.DB) {
	ctx := context.Background()
	bunDB, err := database.NewTestDB(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { bunDB.Close() })

	expos := &expodb.DB{Bun: bunDB, Timeout: time.Second}
	booths := &boothdb.DB{Bun: bunDB, Timeout: time.Second}
	regs := &regdb.DB{Bun: bunDB, Booths: booths, Timeout: time.Second}

	now := time.Now().UTC()
	expo := &models.Expo{ID: uuid.NewString(), Title: "Expo", StartDate: now, EndDate: now.Add(time.Hour),
		Location: "Hall", OrganizerID: organizer.ID, Status: models.ExpoPublished, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, expos.CreateExpo(ctx, expo))

	for i, b := range []struct {
		status string
		price  float64
	}{
		{models.BoothAvailable, 100},
		{models.BoothAvailable, 100},
		{models.BoothReserved, 250},
		{models.BoothOccupied, 400},
		{models.BoothMaintenance, 50},
	} {
		booth := &models.Booth{ID: uuid.NewString(), ExpoID: expo.ID, BoothNumber: string(rune('A' + i)),
			Price: b.price, Status: b.status, CreatedAt: now, UpdatedAt: now}
		if b.status == models.BoothReserved || b.status == models.BoothOccupied {
			booth.ExhibitorID = uuid.NewString()
		}
		require.NoError(t, booths.CreateBooth(ctx, booth))
	}

	for i, r := range []struct {
		status   string
		products []models.ProductService
	}{
		{models.RegistrationApproved, []models.ProductService{{Name: "a", Category: "Robotics"}, {Name: "b", Category: "robotics"}, {Name: "c", Category: "AI"}}},
		{models.RegistrationApproved, []models.ProductService{{Name: "d", Category: "Robotics"}}},
		{models.RegistrationPending, []models.ProductService{{Name: "e", Category: "Food"}}},
		{models.RegistrationRejected, nil},
	} {
		reg := &models.ExhibitorRegistration{ID: uuid.NewString(), ExpoID: expo.ID, ExhibitorID: string(rune('p' + i)),
			CompanyName: "Co", ProductsServices: r.products, Status: r.status, CreatedAt: now, UpdatedAt: now}
		require.NoError(t, regs.Create(ctx, reg))
	}

	return analytics.NewService(analytics.NewDB(bunDB, time.Second), expos), expo.ID, bunDB
}

func TestExpoAnalytics(t *testing.T) {
	svc, expoID, _ := seed(t)

	report, err := svc.ExpoAnalytics(context.Background(), expoID, organizer)
	require.NoError(t, err)

	assert.Equal(t, 5, report.TotalBooths)
	assert.Equal(t, 2, report.BoothsByStatus[models.BoothAvailable])
	assert.Equal(t, 1, report.BoothsByStatus[models.BoothMaintenance])
	assert.InDelta(t, 0.4, report.OccupancyRate, 1e-9)
	assert.InDelta(t, 650, report.CommittedRevenue, 1e-9)
	assert.InDelta(t, 900, report.PotentialRevenue, 1e-9)

	assert.Equal(t, 2, report.RegistrationsByState[models.RegistrationApproved])
	assert.Equal(t, 0, report.RegistrationsByState[models.RegistrationCancelled])

	require.Len(t, report.TopCategories, 2)
	assert.Equal(t, models.CategoryCount{Category: "Robotics", Count: 2}, report.TopCategories[0])
	assert.Equal(t, models.CategoryCount{Category: "AI", Count: 1}, report.TopCategories[1])
}

func TestExpoAnalyticsAccess(t *testing.T) {
	svc, expoID, _ := seed(t)
	ctx := context.Background()

	_, err := svc.ExpoAnalytics(ctx, expoID, exhibitor)
	assert.True(t, apperr.Is(err, apperr.Forbidden))
	_, err = svc.ExpoAnalytics(ctx, expoID, stranger)
	assert.True(t, apperr.Is(err, apperr.Forbidden))
	_, err = svc.ExpoAnalytics(ctx, expoID, admin)
	assert.NoError(t, err)
	_, err = svc.ExpoAnalytics(ctx, "missing", organizer)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestEmptyExpo(t *testing.T) {
	ctx := context.Background()
	bunDB, err := database.NewTestDB(ctx)
	require.NoError(t, err)
	defer bunDB.Close()
	expos := &expodb.DB{Bun: bunDB, Timeout: time.Second}
	now := time.Now().UTC()
	require.NoError(t, expos.CreateExpo(ctx, &models.Expo{ID: "e", Title: "E", StartDate: now, EndDate: now,
		Location: "L", OrganizerID: organizer.ID, Status: models.ExpoDraft, CreatedAt: now, UpdatedAt: now}))

	svc := analytics.NewService(analytics.NewDB(bunDB, time.Second), expos)
	report, err := svc.ExpoAnalytics(ctx, "e", organizer)
	require.NoError(t, err)
	assert.Zero(t, report.TotalBooths)
	assert.Zero(t, report.OccupancyRate)
	assert.Empty(t, report.TopCategories)

	attendance, err := svc.Attendance(ctx, "e", organizer)
	require.NoError(t, err)
	assert.Zero(t, attendance.Attendance)

	sessions, err := svc.SessionPopularity(ctx, "e", organizer)
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)
}

func TestAttendanceAndSessionPopularity(t *testing.T) {
	ctx := context.Background()
	svc, expoID, bunDB := seed(t)
	now := time.Now().UTC()

	for _, a := range []string{"att-1", "att-2", "att-3"} {
		_, err := bunDB.NewInsert().Model(&models.AttendeeRegistration{ID: uuid.NewString(), ExpoID: expoID, AttendeeID: a, CreatedAt: now}).Exec(ctx)
		require.NoError(t, err)
	}
	_, err := bunDB.NewInsert().Model(&models.AttendeeRegistration{ID: uuid.NewString(), ExpoID: "other", AttendeeID: "att-1", CreatedAt: now}).Exec(ctx)
	require.NoError(t, err)

	sched := &models.Schedule{ID: uuid.NewString(), ExpoID: expoID, Version: 1, CreatedAt: now, UpdatedAt: now,
		Sessions: []models.Session{{ID: "keynote", Title: "Keynote"}, {ID: "panel", Title: "Panel"}, {ID: "quiet", Title: "Quiet"}}}
	_, err = bunDB.NewInsert().Model(sched).Exec(ctx)
	require.NoError(t, err)

	for _, m := range []struct{ user, session string }{{"att-1", "keynote"}, {"att-2", "keynote"}, {"att-3", "panel"}} {
		_, err := bunDB.NewInsert().Model(&models.SessionBookmark{UserID: m.user, ScheduleID: sched.ID, SessionID: m.session, CreatedAt: now}).Exec(ctx)
		require.NoError(t, err)
	}
	for _, r := range []struct{ user, session string }{{"att-1", "keynote"}, {"att-1", "panel"}, {"att-2", "panel"}} {
		_, err := bunDB.NewInsert().Model(&models.SessionRegistration{UserID: r.user, ScheduleID: sched.ID, SessionID: r.session, ExpoID: expoID, CreatedAt: now}).Exec(ctx)
		require.NoError(t, err)
	}

	attendance, err := svc.Attendance(ctx, expoID, organizer)
	require.NoError(t, err)
	assert.Equal(t, 3, attendance.Attendance)

	sessions, err := svc.SessionPopularity(ctx, expoID, admin)
	require.NoError(t, err)
	assert.Equal(t, []models.SessionPopularity{
		{SessionID: "keynote", Title: "Keynote", Bookmarks: 2, Registrations: 1},
		{SessionID: "panel", Title: "Panel", Bookmarks: 1, Registrations: 2},
		{SessionID: "quiet", Title: "Quiet"},
	}, sessions)

	_, err = svc.Attendance(ctx, expoID, stranger)
	assert.True(t, apperr.Is(err, apperr.Forbidden))
	_, err = svc.SessionPopularity(ctx, expoID, exhibitor)
	assert.True(t, apperr.Is(err, apperr.Forbidden))
	_, err = svc.SessionPopularity(ctx, "missing", admin)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}
