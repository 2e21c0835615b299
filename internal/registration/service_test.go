package registration_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsphere/internal/apperr"
	boothdb "eventsphere/internal/booth/db"
	"eventsphere/internal/database"
	expodb "eventsphere/internal/expo/db"
	"eventsphere/internal/logger"
	"eventsphere/internal/models"
	"eventsphere/internal/registration"
	regdb "eventsphere/internal/registration/db"
)

type published struct {
	Channel string
	Event   string
	Payload interface{}
}

type recorder struct {
	mu   sync.Mutex
	msgs []published
}

func (r *recorder) Publish(channel, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, published{channel, event, payload})
}

func (r *recorder) channels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.Channel+" "+m.Event)
	}
	return out
}

type invalidations struct {
	mu    sync.Mutex
	expos []string
}

func (i *invalidations) Invalidate(ctx context.Context, expoID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.expos = append(i.expos, expoID)
}

type env struct {
	svc    *registration.Service
	booths *boothdb.DB
	expo   *models.Expo
	pub    *recorder
	cache  *invalidations
}

func newEnv(t *testing.T) *env {
	ctx := context.Background()
	bunDB, err := database.NewTestDB(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { bunDB.Close() })

	booths := &boothdb.DB{Bun: bunDB, Timeout: 5 * time.Second}
	expos := &expodb.DB{Bun: bunDB, Timeout: 5 * time.Second}
	regs := &regdb.DB{Bun: bunDB, Booths: booths, Timeout: 5 * time.Second}

	now := time.Now().UTC()
	expo := &models.Expo{ID: uuid.NewString(), Title: "Expo", StartDate: now, EndDate: now.Add(24 * time.Hour),
		Location: "Hall", OrganizerID: organizer.ID, Status: models.ExpoPublished, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, expos.CreateExpo(ctx, expo))

	e := &env{booths: booths, expo: expo, pub: &recorder{}, cache: &invalidations{}}
	e.svc = registration.NewService(regs, expos, nil, e.cache, e.pub, logger.NewNopLogger())
	return e
}

func (e *env) booth(t *testing.T, number string) *models.Booth {
	now := time.Now().UTC()
	b := &models.Booth{ID: uuid.NewString(), ExpoID: e.expo.ID, BoothNumber: number, Price: 1000,
		Status: models.BoothAvailable, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, e.booths.CreateBooth(context.Background(), b))
	return b
}

var (
	exhibitor = &models.Actor{ID: "ex-1", Role: models.RoleExhibitor}
	other     = &models.Actor{ID: "ex-2", Role: models.RoleExhibitor}
	organizer = &models.Actor{ID: "org-1", Role: models.RoleOrganizer}
)

func submitReq(expoID string) models.SubmitRegistrationRequest {
	return models.SubmitRegistrationRequest{
		ExpoID:      expoID,
		CompanyName: "Acme",
		ProductsServices: []models.ProductService{
			{Name: "Rocket skates", Category: "Hardware"},
		},
	}
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	reg, err := e.svc.Submit(ctx, submitReq(e.expo.ID), exhibitor)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationPending, reg.Status)
	assert.Equal(t, exhibitor.ID, reg.ExhibitorID)
	assert.NotNil(t, reg.Documents)
	assert.Equal(t, []string{"expo_" + e.expo.ID + " registration:update"}, e.pub.channels())

	_, err = e.svc.Submit(ctx, submitReq(e.expo.ID), exhibitor)
	assert.True(t, apperr.Is(err, apperr.Conflict))

	_, err = e.svc.Submit(ctx, submitReq("missing"), other)
	assert.True(t, apperr.Is(err, apperr.NotFound))

	_, err = e.svc.Submit(ctx, submitReq(e.expo.ID), organizer)
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	noName := submitReq(e.expo.ID)
	noName.CompanyName = ""
	_, err = e.svc.Submit(ctx, noName, other)
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestReviewNotifiesExpoAndExhibitor(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	reg, err := e.svc.Submit(ctx, submitReq(e.expo.ID), exhibitor)
	require.NoError(t, err)

	_, err = e.svc.Review(ctx, reg.ID, models.ReviewRequest{Status: models.RegistrationApproved}, exhibitor)
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	_, err = e.svc.Review(ctx, reg.ID, models.ReviewRequest{Status: "maybe"}, organizer)
	assert.True(t, apperr.Is(err, apperr.Validation))

	reviewed, err := e.svc.Review(ctx, reg.ID, models.ReviewRequest{Status: models.RegistrationRejected, Notes: "incomplete"}, organizer)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationRejected, reviewed.Status)
	assert.Equal(t, organizer.ID, reviewed.ReviewedBy)

	assert.Contains(t, e.pub.channels(), "user_ex-1 registration:update")
}

// An organizer assigns a free booth to a pending registration.
func TestAssignBoothEndToEnd(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	reg, err := e.svc.Submit(ctx, submitReq(e.expo.ID), exhibitor)
	require.NoError(t, err)
	b := e.booth(t, "B7")

	gotReg, gotBooth, err := e.svc.AssignBooth(ctx, reg.ID, b.ID, organizer)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationApproved, gotReg.Status)
	assert.Equal(t, b.ID, gotReg.BoothID)
	assert.Equal(t, models.BoothOccupied, gotBooth.Status)
	assert.Equal(t, exhibitor.ID, gotBooth.ExhibitorID)

	chans := e.pub.channels()
	assert.Contains(t, chans, "expo_"+e.expo.ID+" registration:update")
	assert.Contains(t, chans, "user_ex-1 registration:update")
	assert.Contains(t, chans, "expo_"+e.expo.ID+" booth:update")
	assert.Equal(t, []string{e.expo.ID}, e.cache.expos)

	_, _, err = e.svc.AssignBooth(ctx, reg.ID, "", organizer)
	assert.True(t, apperr.Is(err, apperr.Validation))
	_, _, err = e.svc.AssignBooth(ctx, reg.ID, b.ID, exhibitor)
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestProfileVisibility(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	reg, err := e.svc.Submit(ctx, submitReq(e.expo.ID), exhibitor)
	require.NoError(t, err)

	_, err = e.svc.Get(ctx, reg.ID, nil)
	assert.True(t, apperr.Is(err, apperr.NotFound))
	_, err = e.svc.Get(ctx, reg.ID, other)
	assert.True(t, apperr.Is(err, apperr.NotFound))
	_, err = e.svc.Get(ctx, reg.ID, exhibitor)
	assert.NoError(t, err)
	_, err = e.svc.Get(ctx, reg.ID, organizer)
	assert.NoError(t, err)

	_, err = e.svc.Review(ctx, reg.ID, models.ReviewRequest{Status: models.RegistrationApproved}, organizer)
	require.NoError(t, err)
	_, err = e.svc.Get(ctx, reg.ID, nil)
	assert.NoError(t, err)

	found, err := e.svc.Search(ctx, models.SearchFilter{ExpoID: e.expo.ID, Category: "hardware"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestUpdateOwnAndListings(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	reg, err := e.svc.Submit(ctx, submitReq(e.expo.ID), exhibitor)
	require.NoError(t, err)

	name := "Acme International"
	_, err = e.svc.UpdateOwn(ctx, reg.ID, models.UpdateRegistrationRequest{CompanyName: &name}, other)
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	updated, err := e.svc.UpdateOwn(ctx, reg.ID, models.UpdateRegistrationRequest{CompanyName: &name}, exhibitor)
	require.NoError(t, err)
	assert.Equal(t, name, updated.CompanyName)
	assert.Len(t, updated.ProductsServices, 1)

	mine, err := e.svc.ListMine(ctx, exhibitor)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = e.svc.ListByExpo(ctx, e.expo.ID, "", exhibitor)
	assert.True(t, apperr.Is(err, apperr.Forbidden))
	_, err = e.svc.ListByExpo(ctx, e.expo.ID, "bogus", organizer)
	assert.True(t, apperr.Is(err, apperr.Validation))
	pending, err := e.svc.ListByExpo(ctx, e.expo.ID, models.RegistrationPending, organizer)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}
