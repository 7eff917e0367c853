package services

import (
	"context"
	"strings"

	"github.com/diewo77/portfolio-pilot/internal/apperr"
	"github.com/diewo77/portfolio-pilot/internal/models"
	"github.com/diewo77/portfolio-pilot/internal/policy"
	"github.com/diewo77/portfolio-pilot/internal/store"
	"github.com/diewo77/portfolio-pilot/validation"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// AdminListLimit caps the role listing.
const AdminListLimit = 200

// Stats are the admin console counters.
type Stats struct {
	Profiles            int64 `json:"profiles"`
	Achievements        int64 `json:"achievements"`
	VerificationPending int64 `json:"verificationPending"`
	VerificationTotal   int64 `json:"verificationTotal"`
}

// RoleChange is an administrator edit of another profile. Nil fields are
// left as they are.
type RoleChange struct {
	UserID   uuid.UUID    `json:"userId"`
	Role     *models.Role `json:"role"`
	School   *string      `json:"school"`
	IsPublic *bool        `json:"is_public"`
}

type AdminService struct {
	store *store.Store
	gate  *policy.RoleGate
}

func NewAdminService(s *store.Store, g *policy.RoleGate) *AdminService {
	return &AdminService{store: s, gate: g}
}

// Stats counts profiles, achievements and verification requests.
func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.Profiles, err = s.store.Profiles.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		st.Achievements, err = s.store.Achievements.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		st.VerificationPending, err = s.store.Verifications.Count(ctx, models.RequestPending)
		return err
	})
	g.Go(func() (err error) {
		st.VerificationTotal, err = s.store.Verifications.Count(ctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &st, nil
}

// Profiles lists every profile with its role, newest first.
func (s *AdminService) Profiles(ctx context.Context) ([]models.Profile, error) {
	return s.store.Profiles.List(ctx, AdminListLimit)
}

// ChangeRole applies an administrator edit and drops the cached subject so
// the new role takes effect on the next request.
func (s *AdminService) ChangeRole(ctx context.Context, in RoleChange) (*models.Profile, error) {
	v := validation.Violations{}
	if in.UserID == uuid.Nil {
		v.Add("userId", "required")
	}
	fields := map[string]any{}
	if in.Role != nil {
		if !in.Role.Valid() {
			v.Add("role", "invalid_choice")
		}
		fields["role"] = *in.Role
	}
	if in.School != nil {
		school := strings.TrimSpace(*in.School)
		validation.MaxLen("school", school, 255, v)
		fields["school"] = school
	}
	if in.IsPublic != nil {
		fields["is_public"] = *in.IsPublic
	}
	if !v.Empty() {
		return nil, apperr.Invalid("validation_failed", v)
	}

	if err := s.store.Profiles.Update(ctx, in.UserID, fields); err != nil {
		return nil, err
	}
	s.gate.InvalidateUser(ctx, in.UserID)
	return s.store.Profiles.Get(ctx, in.UserID)
}
