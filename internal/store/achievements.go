package store

import (
	"context"

	"github.com/diewo77/portfolio-pilot/internal/apperr"
	"github.com/diewo77/portfolio-pilot/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OwnerColumns are the achievement columns an owner may write.
var OwnerColumns = []string{"title", "description", "category", "type", "date", "file_url"}

// AchievementStore reads and writes achievement records.
type AchievementStore struct {
	db *gorm.DB
}

func (s *AchievementStore) Get(ctx context.Context, id uuid.UUID) (*models.Achievement, error) {
	var a models.Achievement
	if err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "achievement_not_found")
	}
	return &a, nil
}

// ListByOwner returns the owner's achievements, newest first.
// Non-empty statuses restrict the result.
func (s *AchievementStore) ListByOwner(ctx context.Context, owner uuid.UUID, statuses ...models.VerificationStatus) ([]models.Achievement, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", owner)
	if len(statuses) > 0 {
		q = q.Where("verification_status IN ?", statuses)
	}
	var rows []models.Achievement
	err := q.Order("date DESC").Order("created_at DESC").Find(&rows).Error
	return rows, wrap(err, "achievement_not_found")
}

// Create inserts a new unverified achievement. Verification fields on a are
// cleared first.
func (s *AchievementStore) Create(ctx context.Context, a *models.Achievement) error {
	a.VerificationStatus = models.VerificationUnverified
	a.VerifiedBy, a.VerifiedAt, a.VerifierComment, a.VerificationLink = nil, nil, nil, nil
	return wrap(s.db.WithContext(ctx).Create(a).Error, "achievement_not_found")
}

// UpdateOwnerFields writes owner-editable columns only. Keys outside
// OwnerColumns are ignored.
func (s *AchievementStore) UpdateOwnerFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	allowed := make(map[string]any, len(fields))
	for _, col := range OwnerColumns {
		if v, ok := fields[col]; ok {
			allowed[col] = v
		}
	}
	if len(allowed) == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&models.Achievement{}).Where("id = ?", id).Updates(allowed)
	if res.Error != nil {
		return wrap(res.Error, "achievement_not_found")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("achievement_not_found", "achievement %s not found", id)
	}
	return nil
}

// Delete removes the achievement and its verification requests.
func (s *AchievementStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("achievement_id = ?", id).Delete(&models.VerificationRequest{}).Error; err != nil {
			return wrap(err, "achievement_not_found")
		}
		res := tx.Delete(&models.Achievement{}, "id = ?", id)
		if res.Error != nil {
			return wrap(res.Error, "achievement_not_found")
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("achievement_not_found", "achievement %s not found", id)
		}
		return nil
	})
}

// SetVerification writes verification columns of achievement id when its
// current status is one of from. It reports whether a row changed.
// Only the verification engine calls this.
func (s *AchievementStore) SetVerification(ctx context.Context, id uuid.UUID, from []models.VerificationStatus, fields map[string]any) (bool, error) {
	q := s.db.WithContext(ctx).Model(&models.Achievement{}).Where("id = ?", id)
	if len(from) > 0 {
		q = q.Where("verification_status IN ?", from)
	}
	res := q.Updates(fields)
	if res.Error != nil {
		return false, wrap(res.Error, "achievement_not_found")
	}
	return res.RowsAffected == 1, nil
}

// Counts is the per-owner achievement tally used for readiness and the
// community directory.
type Counts struct {
	Total      int64
	Verified   int64
	Awards     int64
	Activities int64
}

// CountByOwners tallies achievements for each owner, in total, verified and
// per category.
// Owners without achievements are absent from the result.
func (s *AchievementStore) CountByOwners(ctx context.Context, owners []uuid.UUID) (map[uuid.UUID]Counts, error) {
	out := make(map[uuid.UUID]Counts, len(owners))
	if len(owners) == 0 {
		return out, nil
	}
	var rows []struct {
		UserID     uuid.UUID
		Total      int64
		Verified   int64
		Awards     int64
		Activities int64
	}
	err := s.db.WithContext(ctx).Model(&models.Achievement{}).
		Select(`user_id, COUNT(*) AS total,
			SUM(CASE WHEN verification_status = ? THEN 1 ELSE 0 END) AS verified,
			SUM(CASE WHEN category = ? THEN 1 ELSE 0 END) AS awards,
			SUM(CASE WHEN category = ? THEN 1 ELSE 0 END) AS activities`,
			models.VerificationVerified, models.CategoryAward, models.CategoryActivity).
		Where("user_id IN ?", owners).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, wrap(err, "achievement_not_found")
	}
	for _, r := range rows {
		out[r.UserID] = Counts{Total: r.Total, Verified: r.Verified, Awards: r.Awards, Activities: r.Activities}
	}
	return out, nil
}

func (s *AchievementStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Achievement{}).Count(&n).Error
	return n, wrap(err, "achievement_not_found")
}
