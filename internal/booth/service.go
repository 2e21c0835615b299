// Package booth owns the booth state machine:
// available -> reserved -> occupied, available -> maintenance, and Release
// back to available.
package booth

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"eventsphere/internal/apperr"
	"eventsphere/internal/auth"
	"eventsphere/internal/logger"
	"eventsphere/internal/metrics"
	"eventsphere/internal/models"
	"eventsphere/internal/notify"
	"eventsphere/internal/utils"
)

type BoothStore interface {
	CreateBooth(ctx context.Context, booth *models.Booth) error
	GetBooth(ctx context.Context, id string) (*models.Booth, error)
	ListByExpo(ctx context.Context, expoID string) ([]models.Booth, error)
	ListByExhibitor(ctx context.Context, exhibitorID string) ([]models.Booth, error)
	Reserve(ctx context.Context, id, exhibitorID string, at time.Time) (*models.Booth, error)
	Assign(ctx context.Context, idb bun.IDB, id, exhibitorID string) (*models.Booth, error)
	Release(ctx context.Context, id string) (*models.Booth, []models.ExhibitorRegistration, error)
	ReleaseHold(ctx context.Context, id, exhibitorID string) (bool, error)
	ReleaseExpired(ctx context.Context, cutoff time.Time) ([]models.Booth, error)
	SetMaintenance(ctx context.Context, id string) (*models.Booth, error)
	UpdateDetails(ctx context.Context, id, exhibitorID string, details models.BoothDetails) (*models.Booth, error)
}

type ExpoLookup interface {
	GetExpo(ctx context.Context, id string) (*models.Expo, error)
}

type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// HoldTracker mirrors reservations as expiring holds.
type HoldTracker interface {
	Place(ctx context.Context, boothID, exhibitorID string) error
	Clear(ctx context.Context, boothID string) error
}

type ListCache interface {
	Get(ctx context.Context, expoID string) ([]models.Booth, bool)
	Set(ctx context.Context, expoID string, booths []models.Booth)
	Invalidate(ctx context.Context, expoID string)
}

type Service struct {
	Booths    BoothStore
	Expos     ExpoLookup
	Users     UserLookup
	Holds     HoldTracker
	Cache     ListCache
	Publisher notify.Publisher
	HoldTTL   time.Duration
	Logger    *logger.Logger

	gate auth.Gate
	now  func() time.Time
}

func NewService(booths BoothStore, expos ExpoLookup, users UserLookup, holds HoldTracker, cache ListCache,
	pub notify.Publisher, holdTTL time.Duration, log *logger.Logger) *Service {
	return &Service{
		Booths:    booths,
		Expos:     expos,
		Users:     users,
		Holds:     holds,
		Cache:     cache,
		Publisher: pub,
		HoldTTL:   holdTTL,
		Logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ---------------- QUERIES ----------------

func (s *Service) Get(ctx context.Context, id string) (*models.Booth, error) {
	return s.Booths.GetBooth(ctx, id)
}

// ListByExpo is public and served from the Redis cache when warm.
func (s *Service) ListByExpo(ctx context.Context, expoID string) ([]models.Booth, error) {
	if s.Cache != nil {
		if booths, ok := s.Cache.Get(ctx, expoID); ok {
			return booths, nil
		}
	}
	booths, err := s.Booths.ListByExpo(ctx, expoID)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		s.Cache.Set(ctx, expoID, booths)
	}
	return booths, nil
}

func (s *Service) ListMine(ctx context.Context, actor *models.Actor) ([]models.Booth, error) {
	if err := s.gate.Check(actor, auth.Exhibitors, ""); err != nil {
		return nil, err
	}
	return s.Booths.ListByExhibitor(ctx, actor.ID)
}

// ---------------- TRANSITIONS ----------------

func (s *Service) Create(ctx context.Context, req models.CreateBoothRequest, actor *models.Actor) (*models.Booth, error) {
	if err := s.gate.Check(actor, auth.Staff, ""); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if _, err := s.Expos.GetExpo(ctx, req.ExpoID); err != nil {
		return nil, err
	}

	now := s.now()
	booth := &models.Booth{
		ID:               utils.NewID(),
		ExpoID:           req.ExpoID,
		BoothNumber:      req.BoothNumber,
		Location:         req.Location,
		Size:             req.Size,
		Price:            *req.Price,
		Features:         utils.DedupeStrings(req.Features),
		Status:           models.BoothAvailable,
		ProductsServices: []models.ProductService{},
		Staff:            []models.StaffMember{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err := s.Booths.CreateBooth(ctx, booth)
	s.record("create", err)
	if err != nil {
		return nil, err
	}

	s.Logger.LogBooth("create", booth.ID, fmt.Sprintf("booth %s created in expo %s", booth.BoothNumber, booth.ExpoID))
	s.changed(ctx, booth)
	return booth, nil
}

// Reserve lets an exhibitor claim an available booth. Concurrent callers race
// on a single conditional update; losers get Conflict.
func (s *Service) Reserve(ctx context.Context, boothID string, actor *models.Actor) (*models.Booth, error) {
	if err := s.gate.Check(actor, auth.Exhibitors, ""); err != nil {
		s.record("reserve", err)
		return nil, err
	}

	booth, err := s.Booths.Reserve(ctx, boothID, actor.ID, s.now())
	s.record("reserve", err)
	if err != nil {
		return nil, err
	}

	if s.Holds != nil {
		if err := s.Holds.Place(ctx, booth.ID, actor.ID); err != nil {
			s.Logger.Warn("BOOTH", fmt.Sprintf("Failed to place hold on booth %s: %v", booth.ID, err))
		}
	}
	s.Logger.LogBooth("reserve", booth.ID, "reserved by "+actor.ID)
	s.changed(ctx, booth)
	s.notifyUser(actor.ID, models.ActionReserved, booth)
	return booth, nil
}

// Assign occupies a booth for an exhibitor. Re-assigning to the current
// holder is a no-op success.
func (s *Service) Assign(ctx context.Context, boothID, exhibitorID string, actor *models.Actor) (*models.Booth, error) {
	if err := s.gate.Check(actor, auth.Staff, ""); err != nil {
		s.record("assign", err)
		return nil, err
	}
	if err := s.requireExhibitor(ctx, exhibitorID); err != nil {
		s.record("assign", err)
		return nil, err
	}

	booth, err := s.Booths.Assign(ctx, nil, boothID, exhibitorID)
	s.record("assign", err)
	if err != nil {
		return nil, err
	}

	s.clearHold(ctx, booth.ID)
	s.Logger.LogBooth("assign", booth.ID, fmt.Sprintf("assigned to %s by %s", exhibitorID, actor.ID))
	s.changed(ctx, booth)
	s.notifyUser(exhibitorID, models.ActionAssigned, booth)
	return booth, nil
}

// UpdateDetails merges products/services and staff into the booth; omitted
// fields keep their stored value. Only the exhibitor holding the booth may do
// this; status is untouched.
func (s *Service) UpdateDetails(ctx context.Context, boothID string, details models.BoothDetails, actor *models.Actor) (*models.Booth, error) {
	if err := s.gate.Check(actor, auth.Exhibitors, ""); err != nil {
		return nil, err
	}
	current, err := s.Booths.GetBooth(ctx, boothID)
	if err != nil {
		return nil, err
	}
	if current.ExhibitorID == "" {
		return nil, apperr.Forbiddenf("Not authorized to update this booth")
	}
	if err := s.gate.Check(actor, auth.Exhibitors, current.ExhibitorID); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(details); err != nil {
		return nil, err
	}

	booth, err := s.Booths.UpdateDetails(ctx, boothID, actor.ID, details)
	s.record("update", err)
	if err != nil {
		return nil, err
	}
	s.Logger.LogBooth("update", booth.ID, "details updated by "+actor.ID)
	s.changed(ctx, booth)
	return booth, nil
}

// Release forces a booth back to available, detaches it from any registration
// it was assigned to and tells the former holder.
func (s *Service) Release(ctx context.Context, boothID string, actor *models.Actor) (*models.Booth, error) {
	if err := s.gate.Check(actor, auth.Staff, ""); err != nil {
		s.record("release", err)
		return nil, err
	}
	before, err := s.Booths.GetBooth(ctx, boothID)
	if err != nil {
		s.record("release", err)
		return nil, err
	}

	booth, detached, err := s.Booths.Release(ctx, boothID)
	s.record("release", err)
	if err != nil {
		return nil, err
	}

	s.clearHold(ctx, booth.ID)
	s.Logger.LogBooth("release", booth.ID, "released by "+actor.ID)
	s.changed(ctx, booth)

	holderTold := false
	for i := range detached {
		reg := &detached[i]
		event := models.RegistrationEvent{
			Action:       models.ActionReleased,
			ExpoID:       booth.ExpoID,
			Registration: reg,
			Booth:        booth,
		}
		s.Publisher.Publish(notify.ExpoChannel(booth.ExpoID), models.EventRegistrationUpdate, event)
		s.Publisher.Publish(notify.UserChannel(reg.ExhibitorID), models.EventRegistrationUpdate, event)
		holderTold = holderTold || reg.ExhibitorID == before.ExhibitorID
	}
	if before.ExhibitorID != "" && !holderTold {
		s.notifyUser(before.ExhibitorID, models.ActionReleased, booth)
	}
	return booth, nil
}

func (s *Service) SetMaintenance(ctx context.Context, boothID string, actor *models.Actor) (*models.Booth, error) {
	if err := s.gate.Check(actor, auth.Staff, ""); err != nil {
		s.record("maintenance", err)
		return nil, err
	}
	booth, err := s.Booths.SetMaintenance(ctx, boothID)
	s.record("maintenance", err)
	if err != nil {
		return nil, err
	}
	s.Logger.LogBooth("maintenance", booth.ID, "put into maintenance by "+actor.ID)
	s.changed(ctx, booth)
	return booth, nil
}

// ---------------- RESERVATION EXPIRY ----------------

// ExpireHold releases a booth whose hold key expired, if that exhibitor still
// has it reserved. Assigned booths are left alone.
func (s *Service) ExpireHold(ctx context.Context, boothID, exhibitorID string) error {
	released, err := s.Booths.ReleaseHold(ctx, boothID, exhibitorID)
	if err != nil {
		s.Logger.Error("BOOTH", fmt.Sprintf("Failed to expire hold on booth %s: %v", boothID, err))
		return err
	}
	if !released {
		return nil
	}
	metrics.ReservationsExpired.Inc()

	booth, err := s.Booths.GetBooth(ctx, boothID)
	if err != nil {
		return err
	}
	s.Logger.LogBooth("expire", boothID, "reservation by "+exhibitorID+" expired")
	s.changed(ctx, booth)
	s.notifyUser(exhibitorID, models.ActionReleased, booth)
	return nil
}

// SweepExpired releases reservations older than HoldTTL. It backs up the
// keyspace subscription, which misses events while disconnected.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	if s.HoldTTL <= 0 {
		return 0, nil
	}
	released, err := s.Booths.ReleaseExpired(ctx, s.now().Add(-s.HoldTTL))
	for i := range released {
		booth := &released[i]
		metrics.ReservationsExpired.Inc()
		s.clearHold(ctx, booth.ID)
		s.Logger.LogBooth("expire", booth.ID, "stale reservation swept")
		s.changed(ctx, booth)
	}
	return len(released), err
}

// ---------------- HELPERS ----------------

func (s *Service) requireExhibitor(ctx context.Context, userID string) error {
	if userID == "" {
		return apperr.Validationf("exhibitorId is required")
	}
	user, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return apperr.Validationf("Exhibitor %s does not exist", userID)
		}
		return err
	}
	if user.Role != models.RoleExhibitor {
		return apperr.Validationf("User %s is not an exhibitor", userID)
	}
	return nil
}

func (s *Service) clearHold(ctx context.Context, boothID string) {
	if s.Holds == nil {
		return
	}
	if err := s.Holds.Clear(ctx, boothID); err != nil {
		s.Logger.Warn("BOOTH", fmt.Sprintf("Failed to clear hold on booth %s: %v", boothID, err))
	}
}

// changed invalidates the expo's cached list and broadcasts the new state.
func (s *Service) changed(ctx context.Context, booth *models.Booth) {
	if s.Cache != nil {
		s.Cache.Invalidate(ctx, booth.ExpoID)
	}
	s.Publisher.Publish(notify.ExpoChannel(booth.ExpoID), models.EventBoothUpdate, booth)
}

func (s *Service) notifyUser(userID, action string, booth *models.Booth) {
	s.Publisher.Publish(notify.UserChannel(userID), models.EventRegistrationUpdate, models.RegistrationEvent{
		Action: action,
		ExpoID: booth.ExpoID,
		Booth:  booth,
	})
}

func (s *Service) record(action string, err error) {
	metrics.BoothTransitions.WithLabelValues(action, metrics.Outcome(err)).Inc()
}
