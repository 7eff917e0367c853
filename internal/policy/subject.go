package policy

import (
	"context"

	"github.com/diewo77/portfolio-pilot/gate"
	"github.com/diewo77/portfolio-pilot/internal/models"
	"github.com/diewo77/portfolio-pilot/internal/store"
	"github.com/google/uuid"
)

// Subject is the role-bearing view of a profile the gate works with.
type Subject struct {
	RoleName   models.Role `json:"role"`
	EmailAddr  string      `json:"email"`
	SchoolName string      `json:"school,omitempty"`
	// Registered is false for the implicit student of an identity with no
	// profile row.
	Registered bool `json:"registered"`
}

func (s *Subject) Role() gate.Role { return gate.Role(s.RoleName) }
func (s *Subject) Email() string   { return s.EmailAddr }
func (s *Subject) School() string  { return s.SchoolName }

// SubjectFromProfile converts a stored profile.
func SubjectFromProfile(p *models.Profile) *Subject {
	return &Subject{RoleName: p.Role, EmailAddr: p.Email, SchoolName: p.School, Registered: true}
}

// DBSubjectResolver reads roles from the profile store. An identity with no
// profile row resolves to an unregistered student.
type DBSubjectResolver struct {
	profiles *store.ProfileStore
}

func NewDBSubjectResolver(profiles *store.ProfileStore) *DBSubjectResolver {
	return &DBSubjectResolver{profiles: profiles}
}

// Resolve implements gate.SubjectResolver.
func (r *DBSubjectResolver) Resolve(ctx context.Context, userID uuid.UUID) (gate.Subject, error) {
	p, err := r.profiles.Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return &Subject{RoleName: models.RoleStudent}, nil
	}
	return SubjectFromProfile(p), nil
}
