package verification

import (
	"context"
	"time"

	"github.com/diewo77/portfolio-pilot/internal/apperr"
	"github.com/diewo77/portfolio-pilot/internal/models"
	"github.com/diewo77/portfolio-pilot/internal/store"
	"github.com/diewo77/portfolio-pilot/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WorkspaceItem is one pending request in the verifier's workspace.
type WorkspaceItem struct {
	ID               uuid.UUID `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	Message          *string   `json:"message,omitempty"`
	StudentName      string    `json:"studentName"`
	AchievementTitle string    `json:"achievementTitle"`
	VerifyURL        string    `json:"verifyUrl"`
}

// ListForVerifier returns pending requests bound to email, newest first.
func (e *Engine) ListForVerifier(ctx context.Context, email string) ([]WorkspaceItem, error) {
	rows, err := e.store.Verifications.ListPendingForEmail(ctx, email, WorkspaceLimit)
	if err != nil {
		return nil, err
	}
	items := make([]WorkspaceItem, 0, len(rows))
	for _, r := range rows {
		item := WorkspaceItem{
			ID:          r.ID,
			CreatedAt:   r.CreatedAt,
			Message:     r.Message,
			StudentName: r.Student.DisplayName(),
			VerifyURL:   e.VerifyURL(r.Token),
		}
		if r.Achievement != nil {
			item.AchievementTitle = r.Achievement.Title
		}
		items = append(items, item)
	}
	return items, nil
}

// QueueItem is one request in the administrator's moderation queue.
type QueueItem struct {
	ID               uuid.UUID            `json:"id"`
	CreatedAt        time.Time            `json:"created_at"`
	ResolvedAt       *time.Time           `json:"resolved_at,omitempty"`
	Status           models.RequestStatus `json:"status"`
	VerifierEmail    string               `json:"verifier_email"`
	VerifierComment  *string              `json:"verifier_comment,omitempty"`
	EmailDelivered   bool                 `json:"email_delivered"`
	EmailError       *string              `json:"email_error,omitempty"`
	AchievementID    uuid.UUID            `json:"achievement_id"`
	AchievementTitle string               `json:"achievementTitle"`
	StudentID        uuid.UUID            `json:"student_id"`
	StudentName      string               `json:"studentName"`
	StudentUsername  string               `json:"studentUsername,omitempty"`
	StudentSchool    string               `json:"studentSchool,omitempty"`
}

// Queue lists requests across all students, optionally filtered by status.
func (e *Engine) Queue(ctx context.Context, status models.RequestStatus) ([]QueueItem, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Invalid("validation_failed", validation.Violations{"status": "invalid_choice"})
	}
	rows, err := e.store.Verifications.List(ctx, status, ModerationLimit)
	if err != nil {
		return nil, err
	}
	items := make([]QueueItem, 0, len(rows))
	for _, r := range rows {
		item := QueueItem{
			ID:              r.ID,
			CreatedAt:       r.CreatedAt,
			ResolvedAt:      r.ResolvedAt,
			Status:          r.Status,
			VerifierEmail:   r.VerifierEmail,
			VerifierComment: r.VerifierComment,
			EmailDelivered:  r.EmailDelivered,
			EmailError:      r.EmailError,
			AchievementID:   r.AchievementID,
			StudentID:       r.StudentID,
			StudentName:     r.Student.DisplayName(),
		}
		if r.Achievement != nil {
			item.AchievementTitle = r.Achievement.Title
		}
		if r.Student != nil {
			item.StudentSchool = r.Student.School
			if r.Student.Username != nil {
				item.StudentUsername = *r.Student.Username
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// Moderate lets an administrator approve, reject or expire a pending request.
// Terminal requests are a Conflict.
func (e *Engine) Moderate(ctx context.Context, adminEmail string, id uuid.UUID, d Decision, comment string) (*Outcome, error) {
	v := make(validation.Violations)
	if id == uuid.Nil {
		v.Add("id", "required")
	}
	if _, ok := d.status(); !ok {
		v.Add("action", "invalid_choice")
	}
	validation.MaxLen("comment", comment, maxTextLen, v)
	if !v.Empty() {
		return nil, apperr.Invalid("validation_failed", v)
	}

	var out *Outcome
	err := e.store.InTx(ctx, func(tx *store.Store) error {
		r, err := tx.Verifications.Get(ctx, id)
		if err != nil {
			return err
		}
		if r.Status != models.RequestPending {
			return apperr.Conflict("request_not_pending", "request %s is %s", r.ID, r.Status)
		}
		out, err = e.resolve(ctx, tx, r, d, comment, adminEmail, nil)
		if apperr.Is(err, apperr.KindGone) {
			return apperr.Conflict("request_not_pending", "request %s was resolved concurrently", r.ID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("verification moderated", zap.Stringer("request_id", id), zap.String("status", string(out.Status)))
	return out, nil
}
