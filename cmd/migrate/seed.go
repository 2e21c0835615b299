package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"eventsphere/internal/auth"
	"eventsphere/internal/models"
)

// Fixed IDs keep seeding idempotent.
const (
	seedOrganizerID = "seed-organizer"
	seedExhibitorID = "seed-exhibitor"
	seedExpoID      = "seed-expo"
)

func seedData(ctx context.Context, db *bun.DB, bcryptCost int) error {
	hash, err := auth.HashPassword("password123", bcryptCost)
	if err != nil {
		return errors.Wrap(err, "hash seed password")
	}
	now := time.Now().UTC()

	users := []models.User{
		{ID: seedOrganizerID, FirstName: "Olivia", LastName: "Organizer", Email: "organizer@example.com", PasswordHash: hash, Role: models.RoleOrganizer, CreatedAt: now, UpdatedAt: now},
		{ID: seedExhibitorID, FirstName: "Ethan", LastName: "Exhibitor", Email: "exhibitor@example.com", PasswordHash: hash, Role: models.RoleExhibitor, CompanyName: "Acme Robotics", CreatedAt: now, UpdatedAt: now},
	}
	if _, err := db.NewInsert().Model(&users).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
		return errors.Wrap(err, "seed users")
	}

	expo := models.Expo{
		ID:          seedExpoID,
		Title:       "Future Tech Expo",
		StartDate:   now.AddDate(0, 1, 0),
		EndDate:     now.AddDate(0, 1, 3),
		Location:    "Convention Center Hall A",
		Description: "Annual showcase of emerging technology.",
		Theme:       "Robotics",
		OrganizerID: seedOrganizerID,
		Status:      models.ExpoPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := db.NewInsert().Model(&expo).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
		return errors.Wrap(err, "seed expo")
	}

	var booths []models.Booth
	for i := 1; i <= 6; i++ {
		booths = append(booths, models.Booth{
			ID:               fmt.Sprintf("seed-booth-%02d", i),
			ExpoID:           seedExpoID,
			BoothNumber:      fmt.Sprintf("A-%02d", i),
			Location:         models.Location{X: float64(i * 10), Y: 10},
			Size:             models.Size{Width: 3, Height: 3, Area: 9},
			Price:            float64(1000 + i*100),
			Features:         []string{"power"},
			Status:           models.BoothAvailable,
			ProductsServices: []models.ProductService{},
			Staff:            []models.StaffMember{},
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	if _, err := db.NewInsert().Model(&booths).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
		return errors.Wrap(err, "seed booths")
	}

	log.Info("SEED", fmt.Sprintf("Seeded %d users, expo %s and %d booths", len(users), seedExpoID, len(booths)))
	return nil
}
