package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role is the single stored role of a profile. Administrators are not a role;
// they are recognised by email allow-list.
type Role string

const (
	RoleStudent   Role = "student"
	RoleVerifier  Role = "verifier"
	RoleCounselor Role = "counselor"
)

// Roles lists every stored role.
var Roles = []Role{RoleStudent, RoleVerifier, RoleCounselor}

// Valid reports whether r is one of the stored roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Profile is one record per identity-provider user. Its ID is the IdP user id.
type Profile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email    string  `gorm:"size:320;not null;index" json:"email"`
	Name     string  `gorm:"size:255" json:"name"`
	Username *string `gorm:"size:64;uniqueIndex" json:"username,omitempty"`
	School   string  `gorm:"size:255;index" json:"school,omitempty"`
	Region   string  `gorm:"size:255" json:"region,omitempty"`
	Role     Role    `gorm:"size:20;not null;index" json:"role"`
	IsPublic bool    `gorm:"not null" json:"is_public"`

	AboutMe   string `gorm:"type:text" json:"about_me,omitempty"`
	GithubURL string `gorm:"size:500" json:"github_url,omitempty"`

	// Academic metrics, stored as-is.
	GPA      decimal.NullDecimal `gorm:"type:decimal(4,2)" json:"gpa"`
	IELTS    decimal.NullDecimal `gorm:"type:decimal(3,1)" json:"ielts"`
	SATScore *int                `json:"sat_score"`
	TOEFL    *int                `json:"toefl"`
}

// DefaultProfile is the implicit profile of an identity with no profile row.
func DefaultProfile(id uuid.UUID, email string) *Profile {
	return &Profile{
		ID:       id,
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Role:     RoleStudent,
		IsPublic: true,
	}
}

// DisplayName returns the name, falling back to the username.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if strings.TrimSpace(p.Name) != "" {
		return p.Name
	}
	if p.Username != nil {
		return *p.Username
	}
	return ""
}

// GetOwnerID implements the Ownable interface.
func (p *Profile) GetOwnerID() uuid.UUID {
	return p.ID
}
