package database

import (
	"gorm.io/gorm"

	"github.com/pennlabs/clubs/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Permission{},
		&models.Club{},
		&models.ClubSnapshot{},
		&models.Membership{},
		&models.MembershipInvite{},
		&models.MembershipRequest{},
		&models.Event{},
		&models.QuestionAnswer{},
		&models.Note{},
		&models.NoteTag{},
		&models.Testimonial{},
		&models.Advisor{},
		&models.Favorite{},
		&models.Subscribe{},
		&models.ClubVisit{},
		&models.Tag{},
		&models.Badge{},
		&models.School{},
		&models.Major{},
		&models.Year{},
		&models.Asset{},
		&models.CacheEntry{},
	)
}

// SeedData populates the named permissions and default school years.
func SeedData(db *gorm.DB) error {
	permissions := []models.Permission{
		{Codename: "approve_club", Description: "Can approve or reject pending clubs"},
		{Codename: "see_pending_clubs", Description: "Can list clubs awaiting approval"},
		{Codename: "see_fair_status", Description: "Can view activities fair registration status"},
	}

	for _, perm := range permissions {
		if err := db.Where(models.Permission{Codename: perm.Codename}).Attrs(perm).FirstOrCreate(&models.Permission{}).Error; err != nil {
			return err
		}
	}

	years := []string{"Freshman", "Sophomore", "Junior", "Senior", "First-year", "Second-year"}
	for _, name := range years {
		if err := db.Where(models.Year{Name: name}).FirstOrCreate(&models.Year{}).Error; err != nil {
			return err
		}
	}

	return nil
}
