// server/internal/database/seeder.go
package database

import (
	"context"
	"errors"

	"mediradar-api-server/internal/models"
	"mediradar-api-server/internal/schedule"
	"mediradar-api-server/internal/store"

	"go.uber.org/zap"
)

// DemoPharmacy is created for the demo owner so the portal has an approved pharmacy to reply with.
var DemoPharmacy = models.Pharmacy{
	Name:    "Demo Pharmacy",
	City:    "Athens",
	Address: "Ermou 1",
	Phone:   "+302100000000",
	Status:  models.PharmacyApproved,
}

func demoHours() schedule.Week {
	var w schedule.Week
	for day := 1; day <= 5; day++ {
		w.Days[day] = schedule.Day{Open: true, Start: "08:00", End: "21:00"}
	}
	w.Days[6] = schedule.Day{Open: true, Start: "09:00", End: "15:00"}
	return w
}

// SeedDemoPharmacy ensures ownerID has an approved pharmacy. It does nothing when ownerID is empty.
func SeedDemoPharmacy(ctx context.Context, s store.PharmacyStore, ownerID string, log *zap.Logger) error {
	if ownerID == "" {
		return nil
	}

	existing, err := s.GetPharmacyByOwner(ctx, ownerID)
	if err == nil {
		log.Info("demo pharmacy already exists, seeding skipped", zap.String("pharmacy_id", existing.ID))
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	log.Info("demo pharmacy not found, seeding", zap.String("owner_id", ownerID))
	p := DemoPharmacy
	p.OwnerID = ownerID
	p.Hours = demoHours()
	stored, err := s.EnsurePharmacy(ctx, &p)
	if err != nil {
		return err
	}
	if stored.Status != models.PharmacyApproved {
		if _, err := s.SetPharmacyStatus(ctx, stored.ID, stored.Status, models.PharmacyApproved); err != nil {
			return err
		}
	}
	log.Info("demo pharmacy seeded", zap.String("pharmacy_id", stored.ID))
	return nil
}
