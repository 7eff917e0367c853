package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category groups achievements into awards and activities.
type Category string

const (
	CategoryAward    Category = "award"
	CategoryActivity Category = "activity"
)

// Achievement types allowed per category.
var typesByCategory = map[Category][]string{
	CategoryAward:    {"olympiad", "competition", "certificate", "other"},
	CategoryActivity: {"project", "volunteering", "club", "internship", "other"},
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c Category) bool {
	_, ok := typesByCategory[c]
	return ok
}

// ValidType reports whether typ is allowed for category c.
func ValidType(c Category, typ string) bool {
	for _, t := range typesByCategory[c] {
		if t == typ {
			return true
		}
	}
	return false
}

// TypesFor returns the types allowed for category c.
func TypesFor(c Category) []string {
	return append([]string(nil), typesByCategory[c]...)
}

// VerificationStatus is the verification sub-state of an achievement.
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationPending    VerificationStatus = "pending"
	VerificationVerified   VerificationStatus = "verified"
	VerificationRejected   VerificationStatus = "rejected"
)

// Achievement is an award or activity owned by a student profile.
// Only the verification engine writes the verification fields.
type Achievement struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User   *Profile  `gorm:"foreignKey:UserID" json:"-"`

	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	Category    Category   `gorm:"size:20;not null" json:"category"`
	Type        string     `gorm:"size:32;not null" json:"type"`
	Date        *time.Time `gorm:"type:date" json:"date,omitempty"`
	FileURL     string     `gorm:"size:1000" json:"file_url,omitempty"`

	VerificationStatus VerificationStatus `gorm:"size:20;not null;default:'unverified';index" json:"verification_status"`
	VerifiedBy         *string            `gorm:"size:320" json:"verified_by,omitempty"`
	VerifiedAt         *time.Time         `json:"verified_at,omitempty"`
	VerifierComment    *string            `gorm:"type:text" json:"verifier_comment,omitempty"`
	VerificationLink   *string            `gorm:"size:1000" json:"verification_link,omitempty"`
}

// BeforeCreate assigns a random ID.
func (a *Achievement) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.VerificationStatus == "" {
		a.VerificationStatus = VerificationUnverified
	}
	return nil
}

// GetOwnerID implements the Ownable interface for authorization.
func (a *Achievement) GetOwnerID() uuid.UUID {
	return a.UserID
}

// IsVerified returns true once a verifier approved the achievement.
func (a *Achievement) IsVerified() bool {
	return a.VerificationStatus == VerificationVerified
}
