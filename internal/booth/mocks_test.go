package booth_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	"eventsphere/internal/apperr"
	"eventsphere/internal/models"
)

type MockBoothStore struct {
	mock.Mock
}

func boothResult(args mock.Arguments) (*models.Booth, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booth), args.Error(1)
}

func boothsResult(args mock.Arguments) ([]models.Booth, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booth), args.Error(1)
}

func (m *MockBoothStore) CreateBooth(ctx context.Context, b *models.Booth) error {
	return m.Called(b).Error(0)
}

func (m *MockBoothStore) GetBooth(ctx context.Context, id string) (*models.Booth, error) {
	return boothResult(m.Called(id))
}

func (m *MockBoothStore) ListByExpo(ctx context.Context, expoID string) ([]models.Booth, error) {
	return boothsResult(m.Called(expoID))
}

func (m *MockBoothStore) ListByExhibitor(ctx context.Context, exhibitorID string) ([]models.Booth, error) {
	return boothsResult(m.Called(exhibitorID))
}

func (m *MockBoothStore) Reserve(ctx context.Context, id, exhibitorID string, at time.Time) (*models.Booth, error) {
	return boothResult(m.Called(id, exhibitorID))
}

func (m *MockBoothStore) Assign(ctx context.Context, idb bun.IDB, id, exhibitorID string) (*models.Booth, error) {
	return boothResult(m.Called(id, exhibitorID))
}

func (m *MockBoothStore) Release(ctx context.Context, id string) (*models.Booth, []models.ExhibitorRegistration, error) {
	args := m.Called(id)
	var regs []models.ExhibitorRegistration
	if r := args.Get(1); r != nil {
		regs = r.([]models.ExhibitorRegistration)
	}
	if args.Get(0) == nil {
		return nil, regs, args.Error(2)
	}
	return args.Get(0).(*models.Booth), regs, args.Error(2)
}

func (m *MockBoothStore) ReleaseHold(ctx context.Context, id, exhibitorID string) (bool, error) {
	args := m.Called(id, exhibitorID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBoothStore) ReleaseExpired(ctx context.Context, cutoff time.Time) ([]models.Booth, error) {
	return boothsResult(m.Called(cutoff))
}

func (m *MockBoothStore) SetMaintenance(ctx context.Context, id string) (*models.Booth, error) {
	return boothResult(m.Called(id))
}

func (m *MockBoothStore) UpdateDetails(ctx context.Context, id, exhibitorID string, details models.BoothDetails) (*models.Booth, error) {
	return boothResult(m.Called(id, exhibitorID, details))
}

// casStore reserves with a compare-and-swap, the in-memory counterpart of the
// conditional UPDATE. Everything else falls through to the mock.
type casStore struct {
	*MockBoothStore
	taken atomic.Bool
}

func (c *casStore) Reserve(ctx context.Context, id, exhibitorID string, at time.Time) (*models.Booth, error) {
	if !c.taken.CompareAndSwap(false, true) {
		return nil, apperr.Conflictf("Booth is not available")
	}
	return &models.Booth{ID: id, ExpoID: "expo-1", Status: models.BoothReserved, ExhibitorID: exhibitorID, ReservedAt: at}, nil
}

type MockLookups struct {
	mock.Mock
}

func (m *MockLookups) GetExpo(ctx context.Context, id string) (*models.Expo, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Expo), args.Error(1)
}

func (m *MockLookups) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockHolds struct {
	mock.Mock
}

func (m *MockHolds) Place(ctx context.Context, boothID, exhibitorID string) error {
	return m.Called(boothID, exhibitorID).Error(0)
}

func (m *MockHolds) Clear(ctx context.Context, boothID string) error {
	return m.Called(boothID).Error(0)
}

// memCache is a map-backed ListCache.
type memCache struct {
	mu    sync.Mutex
	lists map[string][]models.Booth
}

func newMemCache() *memCache { return &memCache{lists: map[string][]models.Booth{}} }

func (c *memCache) Get(ctx context.Context, expoID string) ([]models.Booth, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.lists[expoID]
	return b, ok
}

func (c *memCache) Set(ctx context.Context, expoID string, b []models.Booth) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[expoID] = b
}

func (c *memCache) Invalidate(ctx context.Context, expoID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lists, expoID)
}

type published struct {
	Channel string
	Event   string
	Payload interface{}
}

// recorder is a Publisher that keeps what it was given.
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
