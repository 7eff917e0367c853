package db

import (
	"fmt"
	"time"

	"github.com/diewo77/portfolio-pilot/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Fixed IDs for the development seed, so IdP test users can be mapped to them.
var (
	SeedStudentID   = uuid.MustParse("00000000-0000-4000-8000-000000000001")
	SeedVerifierID  = uuid.MustParse("00000000-0000-4000-8000-000000000002")
	SeedCounselorID = uuid.MustParse("00000000-0000-4000-8000-000000000003")
)

// Seed inserts demo profiles and achievements for local development.
// It is idempotent.
func Seed(conn *gorm.DB) error {
	username := "demo-student"
	profiles := []models.Profile{
		{ID: SeedStudentID, Email: "student@example.com", Name: "Demo Student", Username: &username,
			School: "NIS Almaty", Region: "Almaty", Role: models.RoleStudent, IsPublic: true},
		{ID: SeedVerifierID, Email: "teacher@example.com", Name: "Demo Teacher",
			School: "NIS Almaty", Role: models.RoleVerifier, IsPublic: false},
		{ID: SeedCounselorID, Email: "counselor@example.com", Name: "Demo Counselor",
			School: "NIS Almaty", Role: models.RoleCounselor, IsPublic: false},
	}
	for i := range profiles {
		p := profiles[i]
		if err := conn.Where(models.Profile{ID: p.ID}).Attrs(p).FirstOrCreate(&p).Error; err != nil {
			return fmt.Errorf("seed profile %s: %w", p.Email, err)
		}
	}

	date := time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC)
	achievements := []models.Achievement{
		{ID: uuid.MustParse("00000000-0000-4000-8000-0000000000a1"), UserID: SeedStudentID,
			Title: "Physics Olympiad", Description: "Regional round, 2nd place",
			Category: models.CategoryAward, Type: "olympiad", Date: &date},
		{ID: uuid.MustParse("00000000-0000-4000-8000-0000000000a2"), UserID: SeedStudentID,
			Title: "Robotics club", Description: "Team lead",
			Category: models.CategoryActivity, Type: "club"},
	}
	for i := range achievements {
		a := achievements[i]
		if err := conn.Where(models.Achievement{ID: a.ID}).Attrs(a).FirstOrCreate(&a).Error; err != nil {
			return fmt.Errorf("seed achievement %s: %w", a.Title, err)
		}
	}
	return nil
}
