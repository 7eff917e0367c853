package services

import (
	"context"
	"strings"

	"github.com/diewo77/portfolio-pilot/internal/apperr"
	"github.com/diewo77/portfolio-pilot/internal/policy"
	"github.com/diewo77/portfolio-pilot/internal/store"
	"github.com/diewo77/portfolio-pilot/validation"
	"github.com/google/uuid"
)

// CounselorLimit caps the dashboard listing.
const CounselorLimit = 50

// StudentSummary is one row of the counselor dashboard.
type StudentSummary struct {
	ID           uuid.UUID        `json:"id"`
	Name         string           `json:"name"`
	Username     string           `json:"username,omitempty"`
	School       string           `json:"school,omitempty"`
	Region       string           `json:"region,omitempty"`
	Achievements int64            `json:"achievements"`
	Verified     int64            `json:"verified"`
	Readiness    policy.Readiness `json:"readiness"`
}

// Dashboard is the counselor listing with readiness totals. Totals cover
// every listed student before the readiness filter is applied.
type Dashboard struct {
	Students []StudentSummary         `json:"students"`
	Totals   map[policy.Readiness]int `json:"totals"`
}

type CounselorService struct {
	store *store.Store
}

func NewCounselorService(s *store.Store) *CounselorService {
	return &CounselorService{store: s}
}

// Students lists public students visible to a counselor of school; an empty
// school sees every school. readiness and query are optional filters.
func (s *CounselorService) Students(ctx context.Context, school, query string, readiness policy.Readiness) (*Dashboard, error) {
	if readiness != "" && !readiness.Valid() {
		return nil, apperr.Invalid("validation_failed", validation.Violations{"readiness": "invalid_choice"})
	}
	profiles, err := s.store.Profiles.ListPublicStudents(ctx, store.StudentFilter{
		School: school,
		Query:  strings.TrimSpace(query),
		Limit:  CounselorLimit,
	})
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(profiles))
	for i := range profiles {
		ids[i] = profiles[i].ID
	}
	counts, err := s.store.Achievements.CountByOwners(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := &Dashboard{
		Students: make([]StudentSummary, 0, len(profiles)),
		Totals:   map[policy.Readiness]int{policy.ReadinessHigh: 0, policy.ReadinessMedium: 0, policy.ReadinessLow: 0},
	}
	for _, p := range profiles {
		c := counts[p.ID]
		level := policy.ClassifyReadiness(c.Total, c.Verified)
		out.Totals[level]++
		if readiness != "" && level != readiness {
			continue
		}
		out.Students = append(out.Students, StudentSummary{
			ID:           p.ID,
			Name:         p.DisplayName(),
			Username:     deref(p.Username),
			School:       p.School,
			Region:       p.Region,
			Achievements: c.Total,
			Verified:     c.Verified,
			Readiness:    level,
		})
	}
	return out, nil
}
