package message_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsphere/internal/apperr"
	authdb "eventsphere/internal/auth/db"
	"eventsphere/internal/database"
	expodb "eventsphere/internal/expo/db"
	"eventsphere/internal/logger"
	"eventsphere/internal/message"
	messagedb "eventsphere/internal/message/db"
	"eventsphere/internal/models"
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

func (r *recorder) all() []published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]published(nil), r.msgs...)
}

type env struct {
	svc    *message.Service
	pub    *recorder
	expoID string
	actors map[string]*models.Actor
}

func newEnv(t *testing.T) *env {
	ctx := context.Background()
	bunDB, err := database.NewTestDB(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { bunDB.Close() })

	users := &authdb.DB{Bun: bunDB, Timeout: 5 * time.Second}
	expos := &expodb.DB{Bun: bunDB, Timeout: 5 * time.Second}
	e := &env{pub: &recorder{}, actors: map[string]*models.Actor{}}

	now := time.Now().UTC()
	for _, u := range []struct{ name, role string }{
		{"admin", models.RoleAdmin},
		{"organizer", models.RoleOrganizer},
		{"acme", models.RoleExhibitor},
		{"globex", models.RoleExhibitor},
		{"visitor", models.RoleAttendee},
	} {
		user := &models.User{ID: uuid.NewString(), FirstName: u.name, LastName: "Test", Email: u.name + "@example.com",
			PasswordHash: "x", Role: u.role, CreatedAt: now, UpdatedAt: now}
		require.NoError(t, users.CreateUser(ctx, user))
		e.actors[u.name] = &models.Actor{ID: user.ID, Role: u.role}
	}

	expo := &models.Expo{ID: uuid.NewString(), Title: "Expo", StartDate: now, EndDate: now.Add(24 * time.Hour),
		Location: "Hall", OrganizerID: e.actors["organizer"].ID, Status: models.ExpoPublished, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, expos.CreateExpo(ctx, expo))
	e.expoID = expo.ID

	e.svc = message.NewService(&messagedb.DB{Bun: bunDB, Timeout: 5 * time.Second}, expos, users, e.pub, logger.NewNopLogger())
	return e
}

func (e *env) req(to, kind string) models.SendMessageRequest {
	return models.SendMessageRequest{ExpoID: e.expoID, RecipientID: e.actors[to].ID, Subject: "Hello", Content: "Booth setup starts at 8", Type: kind}
}

func TestSendChecksTypeAgainstRoles(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	cases := []struct {
		from, to, kind string
		want           apperr.Kind
	}{
		{"visitor", "acme", models.MessageOrganizerToExhibitor, apperr.Forbidden},
		{"acme", "globex", models.MessageOrganizerToExhibitor, apperr.Validation},
		{"organizer", "acme", models.MessageExhibitorToOrganizer, apperr.Validation},
		{"organizer", "globex", "organizer-to-everyone", apperr.Validation},
		{"acme", "acme", models.MessageExhibitorToExhibitor, apperr.Validation},
		{"acme", "visitor", models.MessageExhibitorToExhibitor, apperr.Validation},
		{"organizer", "admin", models.MessageOrganizerToExhibitor, apperr.Validation},
	}
	for _, c := range cases {
		_, err := e.svc.Send(ctx, e.req(c.to, c.kind), e.actors[c.from])
		assert.True(t, apperr.Is(err, c.want), "%s -> %s (%s): %v", c.from, c.to, c.kind, err)
	}

	bad := e.req("acme", models.MessageOrganizerToExhibitor)
	bad.ExpoID = "missing"
	_, err := e.svc.Send(ctx, bad, e.actors["organizer"])
	assert.True(t, apperr.Is(err, apperr.NotFound))

	bad = e.req("acme", models.MessageOrganizerToExhibitor)
	bad.RecipientID = "ghost"
	_, err = e.svc.Send(ctx, bad, e.actors["organizer"])
	assert.True(t, apperr.Is(err, apperr.Validation))

	assert.Empty(t, e.pub.all())
}

func TestSendNotifiesRecipient(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	for _, c := range []struct{ from, to, kind string }{
		{"organizer", "acme", models.MessageOrganizerToExhibitor},
		{"admin", "acme", models.MessageOrganizerToExhibitor},
		{"acme", "organizer", models.MessageExhibitorToOrganizer},
		{"acme", "globex", models.MessageExhibitorToExhibitor},
	} {
		msg, err := e.svc.Send(ctx, e.req(c.to, c.kind), e.actors[c.from])
		require.NoError(t, err, "%s -> %s", c.from, c.to)
		assert.False(t, msg.IsRead)
	}

	pubs := e.pub.all()
	require.Len(t, pubs, 4)
	assert.Equal(t, "user_"+e.actors["acme"].ID, pubs[0].Channel)
	assert.Equal(t, models.EventMessageNew, pubs[0].Event)
	assert.Equal(t, "user_"+e.actors["globex"].ID, pubs[3].Channel)
}

func TestListMarkReadDelete(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	organizer, acme, globex := e.actors["organizer"], e.actors["acme"], e.actors["globex"]

	first, err := e.svc.Send(ctx, e.req("acme", models.MessageOrganizerToExhibitor), organizer)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := e.svc.Send(ctx, e.req("organizer", models.MessageExhibitorToOrganizer), acme)
	require.NoError(t, err)

	inbox, err := e.svc.List(ctx, acme)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, second.ID, inbox[0].ID, "newest first")

	none, err := e.svc.List(ctx, globex)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = e.svc.MarkRead(ctx, first.ID, organizer)
	assert.True(t, apperr.Is(err, apperr.Forbidden), "sender cannot mark read")
	_, err = e.svc.MarkRead(ctx, "missing", acme)
	assert.True(t, apperr.Is(err, apperr.NotFound))

	read, err := e.svc.MarkRead(ctx, first.ID, acme)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	assert.False(t, read.ReadAt.IsZero())
	again, err := e.svc.MarkRead(ctx, first.ID, acme)
	require.NoError(t, err)
	assert.True(t, read.ReadAt.Equal(again.ReadAt))

	assert.True(t, apperr.Is(e.svc.Delete(ctx, first.ID, acme), apperr.Forbidden), "recipient cannot delete")
	assert.True(t, apperr.Is(e.svc.Delete(ctx, "missing", organizer), apperr.NotFound))
	require.NoError(t, e.svc.Delete(ctx, first.ID, organizer))

	inbox, err = e.svc.List(ctx, acme)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, second.ID, inbox[0].ID)

	_, err = e.svc.List(ctx, nil)
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))
}
