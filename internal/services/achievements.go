package services

import (
	"context"
	"strings"
	"time"

	"github.com/diewo77/portfolio-pilot/auth"
	"github.com/diewo77/portfolio-pilot/gate"
	"github.com/diewo77/portfolio-pilot/internal/apperr"
	"github.com/diewo77/portfolio-pilot/internal/models"
	"github.com/diewo77/portfolio-pilot/internal/policy"
	"github.com/diewo77/portfolio-pilot/internal/store"
	"github.com/diewo77/portfolio-pilot/validation"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// AchievementInput is the owner-writable part of an achievement. Fields left
// nil are not changed on update. Verification fields have no place here.
type AchievementInput struct {
	Title       *string          `json:"title" validate:"omitempty,max=255"`
	Description *string          `json:"description" validate:"omitempty,max=5000"`
	Category    *models.Category `json:"category"`
	Type        *string          `json:"type"`
	Date        *string          `json:"date"`
	FileURL     *string          `json:"file_url" validate:"omitempty,max=1000"`
}

type AchievementService struct {
	store *store.Store
	gate  *policy.RoleGate
}

func NewAchievementService(s *store.Store, g *policy.RoleGate) *AchievementService {
	return &AchievementService{store: s, gate: g}
}

// List returns the caller's achievements, newest first.
func (s *AchievementService) List(ctx context.Context, caller auth.Identity) ([]models.Achievement, error) {
	if err := s.gate.Authorize(ctx, "", gate.ActionList, policy.ResourceAchievement, nil); err != nil {
		return nil, err
	}
	return s.store.Achievements.ListByOwner(ctx, caller.ID)
}

// Get returns one achievement owned by the caller.
func (s *AchievementService) Get(ctx context.Context, id uuid.UUID) (*models.Achievement, error) {
	a, err := s.store.Achievements.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(ctx, "", gate.ActionView, policy.ResourceAchievement, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Create adds an unverified achievement for the caller, creating the
// caller's default profile first when none exists.
func (s *AchievementService) Create(ctx context.Context, caller auth.Identity, in AchievementInput) (*models.Achievement, error) {
	if err := s.gate.Authorize(ctx, "", gate.ActionCreate, policy.ResourceAchievement, nil); err != nil {
		return nil, err
	}
	v := validation.Violations{}
	validation.Required("title", deref(in.Title), v)
	validation.Required("category", string(derefCategory(in.Category)), v)
	validation.Required("type", deref(in.Type), v)
	a := &models.Achievement{UserID: caller.ID}
	if err := applyAchievement(a, in, v); err != nil {
		return nil, err
	}

	err := s.store.InTx(ctx, func(tx *store.Store) error {
		if err := tx.Profiles.FirstOrCreate(ctx, models.DefaultProfile(caller.ID, caller.Email)); err != nil {
			return err
		}
		return tx.Achievements.Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Update changes owner fields of an achievement the caller owns. Editing the
// content of a verified or rejected achievement returns it to unverified;
// a pending one stays pending.
func (s *AchievementService) Update(ctx context.Context, id uuid.UUID, in AchievementInput) (*models.Achievement, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *a
	if err := applyAchievement(a, in, validation.Violations{}); err != nil {
		return nil, err
	}
	fields := map[string]any{
		"title":       a.Title,
		"description": a.Description,
		"category":    a.Category,
		"type":        a.Type,
		"date":        a.Date,
		"file_url":    a.FileURL,
	}
	err = s.store.InTx(ctx, func(tx *store.Store) error {
		if err := tx.Achievements.UpdateOwnerFields(ctx, id, fields); err != nil {
			return err
		}
		if !contentChanged(&before, a) {
			return nil
		}
		_, err := tx.Achievements.SetVerification(ctx, id,
			[]models.VerificationStatus{models.VerificationVerified, models.VerificationRejected},
			map[string]any{
				"verification_status": models.VerificationUnverified,
				"verified_by":         nil,
				"verified_at":         nil,
				"verifier_comment":    nil,
			})
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.store.Achievements.Get(ctx, id)
}

func contentChanged(before, after *models.Achievement) bool {
	sameDate := (before.Date == nil) == (after.Date == nil) &&
		(before.Date == nil || before.Date.Equal(*after.Date))
	return before.Title != after.Title ||
		before.Description != after.Description ||
		before.Category != after.Category ||
		before.Type != after.Type ||
		before.FileURL != after.FileURL ||
		!sameDate
}

// Delete removes an achievement the caller owns together with its requests.
func (s *AchievementService) Delete(ctx context.Context, id uuid.UUID) error {
	a, err := s.store.Achievements.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.gate.Authorize(ctx, "", gate.ActionDelete, policy.ResourceAchievement, a); err != nil {
		return err
	}
	return s.store.Achievements.Delete(ctx, id)
}

// applyAchievement merges in over a and validates the result.
func applyAchievement(a *models.Achievement, in AchievementInput, v validation.Violations) error {
	if err := validation.Struct(in, v); err != nil {
		return apperr.Internal("internal_error", err)
	}
	if in.Title != nil {
		a.Title = strings.TrimSpace(*in.Title)
		validation.Required("title", a.Title, v)
	}
	if in.Description != nil {
		a.Description = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		a.Category = *in.Category
	}
	if in.Type != nil {
		a.Type = strings.TrimSpace(*in.Type)
	}
	if in.FileURL != nil {
		a.FileURL = strings.TrimSpace(*in.FileURL)
		validation.OptionalURL("file_url", a.FileURL, v)
	}
	if in.Date != nil {
		if *in.Date == "" {
			a.Date = nil
		} else if d, err := time.Parse(dateLayout, *in.Date); err != nil {
			v.Add("date", "invalid")
		} else {
			a.Date = &d
		}
	}

	if a.Category != "" && !models.ValidCategory(a.Category) {
		v.Add("category", "invalid_choice")
	} else if a.Type != "" && !models.ValidType(a.Category, a.Type) {
		v.Add("type", "invalid_choice")
	}
	if !v.Empty() {
		return apperr.Invalid("validation_failed", v)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefCategory(c *models.Category) models.Category {
	if c == nil {
		return ""
	}
	return *c
}
