package store

import (
	"context"
	"strings"
	"time"

	"github.com/diewo77/portfolio-pilot/internal/apperr"
	"github.com/diewo77/portfolio-pilot/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VerificationStore reads and writes verification requests.
type VerificationStore struct {
	db *gorm.DB
}

func (s *VerificationStore) Create(ctx context.Context, r *models.VerificationRequest) error {
	err := s.db.WithContext(ctx).Create(r).Error
	if isDuplicate(err) {
		return apperr.Conflict("request_already_pending", "a pending request already exists for this achievement")
	}
	return wrap(err, "token_not_found")
}

func (s *VerificationStore) Get(ctx context.Context, id uuid.UUID) (*models.VerificationRequest, error) {
	var r models.VerificationRequest
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "request_not_found")
	}
	return &r, nil
}

// GetByToken loads a request with its achievement and student.
func (s *VerificationStore) GetByToken(ctx context.Context, token string) (*models.VerificationRequest, error) {
	if token == "" {
		return nil, apperr.NotFound("token_not_found", "empty token")
	}
	var r models.VerificationRequest
	err := s.db.WithContext(ctx).
		Preload("Achievement").
		Preload("Student").
		First(&r, "token = ?", token).Error
	if err != nil {
		return nil, wrap(err, "token_not_found")
	}
	return &r, nil
}

// Transition moves request id from pending to status `to`, writing fields
// alongside. It reports false when the request was no longer pending, so
// concurrent callers cannot both win.
func (s *VerificationStore) Transition(ctx context.Context, id uuid.UUID, to models.RequestStatus, fields map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	res := s.db.WithContext(ctx).Model(&models.VerificationRequest{}).
		Where("id = ? AND status = ?", id, models.RequestPending).
		Updates(updates)
	if res.Error != nil {
		return false, wrap(res.Error, "request_not_found")
	}
	return res.RowsAffected == 1, nil
}

// FindPendingForAchievement returns the pending request of an achievement,
// or nil.
func (s *VerificationStore) FindPendingForAchievement(ctx context.Context, achievementID uuid.UUID) (*models.VerificationRequest, error) {
	var rows []models.VerificationRequest
	err := s.db.WithContext(ctx).
		Where("achievement_id = ? AND status = ?", achievementID, models.RequestPending).
		Limit(1).Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, wrap(err, "request_not_found")
	}
	return &rows[0], nil
}

// RecordDelivery stores the outcome of the notification email.
func (s *VerificationStore) RecordDelivery(ctx context.Context, id uuid.UUID, delivered bool, deliveryErr string) error {
	fields := map[string]any{"email_delivered": delivered, "email_error": nil}
	if deliveryErr != "" {
		fields["email_error"] = deliveryErr
	}
	return wrap(s.db.WithContext(ctx).Model(&models.VerificationRequest{}).
		Where("id = ?", id).Updates(fields).Error, "request_not_found")
}

// ListPendingForEmail returns pending requests bound to email, newest first,
// with achievement and student loaded.
func (s *VerificationStore) ListPendingForEmail(ctx context.Context, email string, limit int) ([]models.VerificationRequest, error) {
	var rows []models.VerificationRequest
	err := s.db.WithContext(ctx).
		Preload("Achievement").
		Preload("Student").
		Where("verifier_email = ? AND status = ?", strings.ToLower(strings.TrimSpace(email)), models.RequestPending).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, wrap(err, "request_not_found")
}

// List returns requests of any student, newest first. An empty status
// returns every status.
func (s *VerificationStore) List(ctx context.Context, status models.RequestStatus, limit int) ([]models.VerificationRequest, error) {
	q := s.db.WithContext(ctx).Preload("Achievement").Preload("Student")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var rows []models.VerificationRequest
	err := q.Order("created_at DESC").Limit(limit).Find(&rows).Error
	return rows, wrap(err, "request_not_found")
}

// ListStalePending returns pending requests created before cutoff.
func (s *VerificationStore) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.VerificationRequest, error) {
	var rows []models.VerificationRequest
	err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.RequestPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, wrap(err, "request_not_found")
}

// Count returns the number of requests, optionally by status.
func (s *VerificationStore) Count(ctx context.Context, status models.RequestStatus) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.VerificationRequest{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var n int64
	err := q.Count(&n).Error
	return n, wrap(err, "request_not_found")
}
