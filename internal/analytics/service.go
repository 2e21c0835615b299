// Package analytics summarises an expo's floor plan and exhibitor pipeline.
package analytics

import (
	"context"
	"sort"
	"strings"

	"eventsphere/internal/auth"
	"eventsphere/internal/models"
)

const topCategoryLimit = 5

type Store interface {
	BoothsByStatus(ctx context.Context, expoID string) ([]BoothStatusRow, error)
	RegistrationsByStatus(ctx context.Context, expoID string) ([]models.StatusCount, error)
	ApprovedProducts(ctx context.Context, expoID string) ([][]models.ProductService, error)
	AttendeeCount(ctx context.Context, expoID string) (int, error)
	Schedule(ctx context.Context, expoID string) (*models.Schedule, error)
	BookmarksBySession(ctx context.Context, scheduleID string) ([]SessionCountRow, error)
	RegistrationsBySession(ctx context.Context, scheduleID string) ([]SessionCountRow, error)
}

type ExpoLookup interface {
	GetExpo(ctx context.Context, id string) (*models.Expo, error)
}

type Service struct {
	Store Store
	Expos ExpoLookup

	gate auth.Gate
}

func NewService(store Store, expos ExpoLookup) *Service {
	return &Service{Store: store, Expos: expos}
}

// authorize lets through the expo's organizer and admins.
func (s *Service) authorize(ctx context.Context, expoID string, actor *models.Actor) error {
	if err := s.gate.Check(actor, auth.Staff, ""); err != nil {
		return err
	}
	expo, err := s.Expos.GetExpo(ctx, expoID)
	if err != nil {
		return err
	}
	return s.gate.Check(actor, auth.Staff, expo.OrganizerID)
}

func (s *Service) ExpoAnalytics(ctx context.Context, expoID string, actor *models.Actor) (*models.ExpoAnalytics, error) {
	if err := s.authorize(ctx, expoID, actor); err != nil {
		return nil, err
	}

	booths, err := s.Store.BoothsByStatus(ctx, expoID)
	if err != nil {
		return nil, err
	}
	regs, err := s.Store.RegistrationsByStatus(ctx, expoID)
	if err != nil {
		return nil, err
	}
	products, err := s.Store.ApprovedProducts(ctx, expoID)
	if err != nil {
		return nil, err
	}

	out := &models.ExpoAnalytics{
		ExpoID: expoID,
		BoothsByStatus: map[string]int{
			models.BoothAvailable:   0,
			models.BoothReserved:    0,
			models.BoothOccupied:    0,
			models.BoothMaintenance: 0,
		},
		RegistrationsByState: map[string]int{
			models.RegistrationPending:   0,
			models.RegistrationApproved:  0,
			models.RegistrationRejected:  0,
			models.RegistrationCancelled: 0,
		},
		TopCategories: topCategories(products, topCategoryLimit),
	}

	held := 0
	for _, row := range booths {
		out.BoothsByStatus[row.Status] = row.Count
		out.TotalBooths += row.Count
		out.PotentialRevenue += row.Revenue
		if row.Status == models.BoothReserved || row.Status == models.BoothOccupied {
			held += row.Count
			out.CommittedRevenue += row.Revenue
		}
	}
	if out.TotalBooths > 0 {
		out.OccupancyRate = float64(held) / float64(out.TotalBooths)
	}
	for _, row := range regs {
		out.RegistrationsByState[row.Status] = row.Count
	}
	return out, nil
}

// Attendance counts the attendees registered for the expo.
func (s *Service) Attendance(ctx context.Context, expoID string, actor *models.Actor) (*models.AttendanceReport, error) {
	if err := s.authorize(ctx, expoID, actor); err != nil {
		return nil, err
	}
	n, err := s.Store.AttendeeCount(ctx, expoID)
	if err != nil {
		return nil, err
	}
	return &models.AttendanceReport{ExpoID: expoID, Attendance: n}, nil
}

// SessionPopularity tallies bookmarks and sign-ups per session, in schedule
// order. An expo without a schedule has no sessions.
func (s *Service) SessionPopularity(ctx context.Context, expoID string, actor *models.Actor) ([]models.SessionPopularity, error) {
	if err := s.authorize(ctx, expoID, actor); err != nil {
		return nil, err
	}
	out := []models.SessionPopularity{}
	sched, err := s.Store.Schedule(ctx, expoID)
	if err != nil || sched == nil {
		return out, err
	}

	marks, err := s.Store.BookmarksBySession(ctx, sched.ID)
	if err != nil {
		return nil, err
	}
	signups, err := s.Store.RegistrationsBySession(ctx, sched.ID)
	if err != nil {
		return nil, err
	}
	bookmarks, registrations := tally(marks), tally(signups)
	for _, session := range sched.Sessions {
		out = append(out, models.SessionPopularity{
			SessionID:     session.ID,
			Title:         session.Title,
			Bookmarks:     bookmarks[session.ID],
			Registrations: registrations[session.ID],
		})
	}
	return out, nil
}

func tally(rows []SessionCountRow) map[string]int {
	m := make(map[string]int, len(rows))
	for _, r := range rows {
		m[r.SessionID] = r.Count
	}
	return m
}

// topCategories counts each registration's categories once, case-insensitively,
// reporting the first spelling seen.
func topCategories(products [][]models.ProductService, limit int) []models.CategoryCount {
	counts := map[string]*models.CategoryCount{}
	for _, list := range products {
		seen := map[string]bool{}
		for _, p := range list {
			name := strings.TrimSpace(p.Category)
			key := strings.ToLower(name)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			if c, ok := counts[key]; ok {
				c.Count++
			} else {
				counts[key] = &models.CategoryCount{Category: name, Count: 1}
			}
		}
	}

	out := make([]models.CategoryCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
