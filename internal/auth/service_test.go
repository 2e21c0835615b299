package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"eventsphere/internal/apperr"
	authdb "eventsphere/internal/auth/db"
	"eventsphere/internal/database"
	"eventsphere/internal/logger"
	"eventsphere/internal/models"
)

func newTestService(t *testing.T) *Service {
	ctx := context.Background()
	db, err := database.NewTestDB(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewService(&authdb.DB{Bun: db, Timeout: time.Second}, NewTokens("secret", time.Hour), bcrypt.MinCost, logger.NewNopLogger())
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	resp, err := svc.Register(ctx, models.RegisterRequest{
		FirstName: "Ada", LastName: "Lovelace", Email: "Ada@Example.com", Password: "secret1", Role: models.RoleExhibitor,
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, "Bearer", resp.TokenType)

	_, err = svc.Register(ctx, models.RegisterRequest{
		FirstName: "Ada", LastName: "L", Email: "ada@example.com", Password: "secret1",
	})
	assert.True(t, apperr.Is(err, apperr.Conflict))

	login, err := svc.Login(ctx, models.LoginRequest{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	actor, err := svc.Tokens.Verify(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, actor.ID)
	assert.Equal(t, models.RoleExhibitor, actor.Role)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "ada@example.com", Password: "wrong"})
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))
	_, err = svc.Login(ctx, models.LoginRequest{Email: "nobody@example.com", Password: "x"})
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))
}

func TestRegisterDefaultsToAttendeeAndRefusesAdmin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	resp, err := svc.Register(ctx, models.RegisterRequest{FirstName: "A", LastName: "B", Email: "a@b.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAttendee, resp.User.Role)

	_, err = svc.Register(ctx, models.RegisterRequest{FirstName: "A", LastName: "B", Email: "c@b.com", Password: "secret1", Role: models.RoleAdmin})
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestEnsureAdminCreatesAndResets(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@gmail.com", "admin123"))
	_, err := svc.Login(ctx, models.LoginRequest{Email: "admin@gmail.com", Password: "admin123"})
	require.NoError(t, err)

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@gmail.com", "rotated"))
	_, err = svc.Login(ctx, models.LoginRequest{Email: "admin@gmail.com", Password: "admin123"})
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))
	resp, err := svc.Login(ctx, models.LoginRequest{Email: "admin@gmail.com", Password: "rotated"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
}

func TestHandlerRoutes(t *testing.T) {
	svc := newTestService(t)
	h := &Handler{Service: svc, Logger: logger.NewNopLogger()}
	r := chi.NewRouter()
	h.RegisterRoutes(r, svc.Tokens, func(next http.Handler) http.Handler { return next })

	body, _ := json.Marshal(map[string]string{
		"firstName": "Grace", "lastName": "Hopper", "email": "grace@example.com", "password": "cobol60", "role": "organizer",
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/auth/register", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data models.TokenResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.NotEmpty(t, created.Data.AccessToken)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+created.Data.AccessToken)
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "grace@example.com")
	assert.NotContains(t, rec.Body.String(), "password")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/auth/register", bytes.NewReader([]byte(`{"email":"bad"}`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
