package db

import (
	"fmt"

	"github.com/diewo77/portfolio-pilot/internal/models"
	"gorm.io/gorm"
)

// Migrate applies the GORM schema, including the partial unique index that
// allows one pending verification request per achievement.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(
		&models.Profile{},
		&models.Achievement{},
		&models.VerificationRequest{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
