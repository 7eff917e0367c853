package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestStatus is the state of a verification request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
	RequestExpired  RequestStatus = "expired"
)

// Terminal reports whether no further transition is allowed.
func (s RequestStatus) Terminal() bool {
	return s == RequestApproved || s == RequestRejected || s == RequestExpired
}

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	return s == RequestPending || s.Terminal()
}

// AchievementStatus is the achievement state that follows from a request
// reaching s. Expiry returns the achievement to unverified.
func (s RequestStatus) AchievementStatus() VerificationStatus {
	switch s {
	case RequestApproved:
		return VerificationVerified
	case RequestRejected:
		return VerificationRejected
	case RequestExpired:
		return VerificationUnverified
	default:
		return VerificationPending
	}
}

// VerificationRequest asks one verifier, bound by email, to confirm one
// achievement. The token is a single-use bearer capability.
// At most one pending request exists per achievement.
type VerificationRequest struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AchievementID uuid.UUID    `gorm:"type:uuid;not null;index;index:idx_verification_one_pending,unique,where:status = 'pending'" json:"achievement_id"`
	Achievement   *Achievement `gorm:"foreignKey:AchievementID;constraint:OnDelete:CASCADE" json:"-"`
	StudentID     uuid.UUID    `gorm:"type:uuid;not null;index" json:"student_id"`
	Student       *Profile     `gorm:"foreignKey:StudentID" json:"-"`

	VerifierEmail string     `gorm:"size:320;not null;index" json:"verifier_email"`
	VerifierID    *uuid.UUID `gorm:"type:uuid" json:"verifier_id,omitempty"`
	Message       *string    `gorm:"type:text" json:"message,omitempty"`

	Status          RequestStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Token           string        `gorm:"size:64;not null;uniqueIndex" json:"-"`
	VerifierComment *string       `gorm:"type:text" json:"verifier_comment,omitempty"`
	ResolvedAt      *time.Time    `json:"resolved_at,omitempty"`

	EmailDelivered bool    `gorm:"not null;default:false" json:"email_delivered"`
	EmailError     *string `gorm:"type:text" json:"email_error,omitempty"`
}

// BeforeCreate assigns a random ID and normalises the verifier email.
func (r *VerificationRequest) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.VerifierEmail = strings.ToLower(strings.TrimSpace(r.VerifierEmail))
	if r.Status == "" {
		r.Status = RequestPending
	}
	return nil
}

// GetOwnerID implements the Ownable interface; the student owns the request.
func (r *VerificationRequest) GetOwnerID() uuid.UUID {
	return r.StudentID
}

// BoundTo reports whether email matches the invited verifier, ignoring case.
func (r *VerificationRequest) BoundTo(email string) bool {
	return strings.EqualFold(strings.TrimSpace(email), r.VerifierEmail)
}
