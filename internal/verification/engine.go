// Package verification runs the achievement verification workflow: a student
// invites a verifier by email, the verifier follows a single-use token link,
// signs in with the invited address and approves or rejects.
package verification

import (
	"context"
	"strings"
	"time"

	"github.com/diewo77/portfolio-pilot/auth"
	"github.com/diewo77/portfolio-pilot/internal/apperr"
	"github.com/diewo77/portfolio-pilot/internal/logging"
	"github.com/diewo77/portfolio-pilot/internal/models"
	"github.com/diewo77/portfolio-pilot/internal/notify"
	"github.com/diewo77/portfolio-pilot/internal/store"
	"github.com/diewo77/portfolio-pilot/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultTTL         = 30 * 24 * time.Hour
	DefaultSendTimeout = 10 * time.Second

	// WorkspaceLimit caps the verifier's pending list.
	WorkspaceLimit = 20
	// ModerationLimit caps the admin queue.
	ModerationLimit = 100
	// expireBatch caps one ExpireStale pass.
	expireBatch = 500

	maxTextLen = 2000
)

// Decision is what a verifier or administrator does with a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
	DecisionExpire  Decision = "expire"
)

func (d Decision) status() (models.RequestStatus, bool) {
	switch d {
	case DecisionApprove:
		return models.RequestApproved, true
	case DecisionReject:
		return models.RequestRejected, true
	case DecisionExpire:
		return models.RequestExpired, true
	}
	return "", false
}

// Options configures an Engine.
type Options struct {
	// PublicURL is the web origin verify links point at.
	PublicURL string
	// TTL after which a pending request expires. Zero uses DefaultTTL.
	TTL time.Duration
	// SendTimeout bounds the notification call. Zero uses DefaultSendTimeout.
	SendTimeout time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Engine creates, looks up and resolves verification requests.
type Engine struct {
	store       *store.Store
	dispatcher  notify.Dispatcher
	log         *zap.Logger
	publicURL   string
	ttl         time.Duration
	sendTimeout time.Duration
	now         func() time.Time
}

func NewEngine(s *store.Store, d notify.Dispatcher, log *zap.Logger, opts Options) *Engine {
	if d == nil {
		d = notify.Disabled{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		store:       s,
		dispatcher:  d,
		log:         log,
		publicURL:   strings.TrimRight(opts.PublicURL, "/"),
		ttl:         opts.TTL,
		sendTimeout: opts.SendTimeout,
		now:         opts.Now,
	}
}

// VerifyURL is the page a token link opens.
func (e *Engine) VerifyURL(token string) string {
	return e.publicURL + "/verify/" + token
}

func (e *Engine) stale(r *models.VerificationRequest) bool {
	return r.Status == models.RequestPending && e.now().Sub(r.CreatedAt) > e.ttl
}

// RequestInput is the student's verification request.
type RequestInput struct {
	AchievementID uuid.UUID
	VerifierEmail string
	ProofLink     string
	Message       string
}

// RequestResult is returned whether or not the email went out; the verify
// URL is the manual fallback.
type RequestResult struct {
	RequestID  uuid.UUID `json:"requestId"`
	Token      string    `json:"token"`
	VerifyURL  string    `json:"verifyUrl"`
	EmailSent  bool      `json:"emailSent"`
	EmailError string    `json:"emailError,omitempty"`
}

func (in RequestInput) validate() error {
	v := make(validation.Violations)
	if in.AchievementID == uuid.Nil {
		v.Add("achievementId", "required")
	}
	validation.Required("verifierEmail", in.VerifierEmail, v)
	if strings.TrimSpace(in.VerifierEmail) != "" {
		validation.Email("verifierEmail", in.VerifierEmail, v)
	}
	validation.OptionalURL("proofLink", in.ProofLink, v)
	validation.MaxLen("message", in.Message, maxTextLen, v)
	if !v.Empty() {
		return apperr.Invalid("validation_failed", v)
	}
	return nil
}

// Request creates a pending request for the caller's achievement and asks
// the dispatcher to email the verifier. A pending request for the same
// achievement is superseded. Email failure does not undo the request.
func (e *Engine) Request(ctx context.Context, caller auth.Identity, in RequestInput) (*RequestResult, error) {
	if caller.ID == uuid.Nil {
		return nil, apperr.Unauthenticated("authentication_required", "no current identity")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	token, err := NewToken()
	if err != nil {
		return nil, apperr.Internal("internal_error", err)
	}

	var (
		req         *models.VerificationRequest
		achievement *models.Achievement
		student     *models.Profile
	)
	err = e.store.InTx(ctx, func(tx *store.Store) error {
		a, err := tx.Achievements.Get(ctx, in.AchievementID)
		if err != nil {
			return err
		}
		if a.UserID != caller.ID {
			return apperr.Forbidden("not_owner", "achievement %s is not owned by caller", a.ID)
		}
		if a.IsVerified() {
			return apperr.Conflict("already_verified", "achievement %s is already verified", a.ID)
		}

		if prev, err := tx.Verifications.FindPendingForAchievement(ctx, a.ID); err != nil {
			return err
		} else if prev != nil {
			if _, err := tx.Verifications.Transition(ctx, prev.ID, models.RequestExpired, map[string]any{"resolved_at": e.now()}); err != nil {
				return err
			}
			e.log.Info("superseded pending request", zap.Stringer("request_id", prev.ID), zap.Stringer("achievement_id", a.ID))
		}

		req = &models.VerificationRequest{
			AchievementID: a.ID,
			StudentID:     caller.ID,
			VerifierEmail: validation.NormalizeEmail(in.VerifierEmail),
			Token:         token,
			Status:        models.RequestPending,
		}
		if msg := strings.TrimSpace(in.Message); msg != "" {
			req.Message = &msg
		}
		if err := tx.Verifications.Create(ctx, req); err != nil {
			return err
		}

		fields := map[string]any{
			"verification_status": models.VerificationPending,
			"verified_by":         nil,
			"verified_at":         nil,
			"verifier_comment":    nil,
		}
		if link := strings.TrimSpace(in.ProofLink); link != "" {
			fields["verification_link"] = link
		}
		ok, err := tx.Achievements.SetVerification(ctx, a.ID, nil, fields)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("achievement_not_found", "achievement %s disappeared", a.ID)
		}
		achievement = a

		student, err = tx.Profiles.Find(ctx, caller.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := &RequestResult{RequestID: req.ID, Token: token, VerifyURL: e.VerifyURL(token)}
	delivery := e.notify(ctx, req, achievement, student)
	res.EmailSent = delivery.Delivered
	res.EmailError = delivery.Error

	e.log.Info("verification requested",
		zap.Stringer("request_id", req.ID),
		zap.Stringer("achievement_id", req.AchievementID),
		logging.Token(token),
		zap.Bool("email_sent", delivery.Delivered),
	)
	return res, nil
}

// notify sends the invitation and records the outcome. Failures are logged
// and returned in the Result only.
func (e *Engine) notify(ctx context.Context, req *models.VerificationRequest, a *models.Achievement, student *models.Profile) notify.Result {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.sendTimeout)
	defer cancel()

	res := e.dispatcher.Send(sendCtx, notify.Message{
		To:               req.VerifierEmail,
		VerifyLink:       e.VerifyURL(req.Token),
		StudentName:      student.DisplayName(),
		AchievementTitle: a.Title,
	})
	if !res.Delivered {
		e.log.Warn("verification email not delivered", zap.Stringer("request_id", req.ID), zap.String("error", res.Error))
	}
	if err := e.store.Verifications.RecordDelivery(context.WithoutCancel(ctx), req.ID, res.Delivered, res.Error); err != nil {
		e.log.Error("record email delivery", zap.Stringer("request_id", req.ID), zap.Error(err))
	}
	return res
}

// AchievementSummary is the part of an achievement a verifier sees.
type AchievementSummary struct {
	Title            string          `json:"title"`
	Description      string          `json:"description,omitempty"`
	Date             *time.Time      `json:"date,omitempty"`
	Category         models.Category `json:"category"`
	Type             string          `json:"type"`
	VerificationLink *string         `json:"verification_link,omitempty"`
	FileURL          string          `json:"file_url,omitempty"`
}

// TokenView is what the public confirmation page renders.
type TokenView struct {
	RequestID     uuid.UUID            `json:"id"`
	Status        models.RequestStatus `json:"status"`
	VerifierEmail string               `json:"verifier_email"`
	Message       *string              `json:"message,omitempty"`
	ExpiresAt     time.Time            `json:"expires_at"`
	Achievement   AchievementSummary   `json:"achievement"`
	StudentName   string               `json:"studentName"`
}

// Open reports whether the token can still be resolved.
func (v *TokenView) Open() bool { return v.Status == models.RequestPending }

// Lookup returns the confirmation-page view of a token. Unknown tokens are
// NotFound; consumed tokens are returned with their terminal status. A stale
// pending request is expired on the way.
func (e *Engine) Lookup(ctx context.Context, token string) (*TokenView, error) {
	r, err := e.store.Verifications.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if e.stale(r) {
		if err := e.store.InTx(ctx, func(tx *store.Store) error {
			_, err := e.expire(ctx, tx, r)
			return err
		}); err != nil {
			return nil, err
		}
		r.Status = models.RequestExpired
	}

	view := &TokenView{
		RequestID:     r.ID,
		Status:        r.Status,
		VerifierEmail: r.VerifierEmail,
		Message:       r.Message,
		ExpiresAt:     r.CreatedAt.Add(e.ttl),
		StudentName:   r.Student.DisplayName(),
	}
	if a := r.Achievement; a != nil {
		view.Achievement = AchievementSummary{
			Title:            a.Title,
			Description:      a.Description,
			Date:             a.Date,
			Category:         a.Category,
			Type:             a.Type,
			VerificationLink: a.VerificationLink,
			FileURL:          a.FileURL,
		}
	}
	return view, nil
}

// Outcome is the result of a resolved request.
type Outcome struct {
	RequestID         uuid.UUID                 `json:"requestId"`
	Status            models.RequestStatus      `json:"status"`
	AchievementID     uuid.UUID                 `json:"achievementId"`
	AchievementStatus models.VerificationStatus `json:"achievementStatus"`
}

// Respond resolves a pending request on behalf of the verifier the token
// was sent to. The caller's email must match the bound email; role plays
// no part. The request and its achievement change in one transaction, and
// only the first of concurrent calls succeeds.
func (e *Engine) Respond(ctx context.Context, caller auth.Identity, token string, d Decision, comment string) (*Outcome, error) {
	if caller.ID == uuid.Nil {
		return nil, apperr.Unauthenticated("authentication_required", "sign in with the invited email to respond")
	}
	v := make(validation.Violations)
	validation.Required("token", token, v)
	if d != DecisionApprove && d != DecisionReject {
		v.Add("action", "invalid_choice")
	}
	validation.MaxLen("comment", comment, maxTextLen, v)
	if !v.Empty() {
		return nil, apperr.Invalid("validation_failed", v)
	}

	var (
		out     *Outcome
		expired bool
	)
	err := e.store.InTx(ctx, func(tx *store.Store) error {
		r, err := tx.Verifications.GetByToken(ctx, token)
		if err != nil {
			return err
		}
		if r.Status != models.RequestPending {
			return goneFor(r.Status)
		}
		if e.stale(r) {
			expired = true
			_, err := e.expire(ctx, tx, r)
			return err
		}
		if !r.BoundTo(caller.Email) {
			return apperr.Forbidden("wrong_verifier", "request is bound to a different email")
		}

		out, err = e.resolve(ctx, tx, r, d, comment, caller.Email, &caller.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, apperr.Gone("link_expired", "verification link expired")
	}

	e.log.Info("verification resolved",
		zap.Stringer("request_id", out.RequestID),
		zap.String("status", string(out.Status)),
		logging.Token(token),
	)
	return out, nil
}

// resolve applies decision d to pending request r and its achievement.
func (e *Engine) resolve(ctx context.Context, tx *store.Store, r *models.VerificationRequest, d Decision, comment, actorEmail string, verifierID *uuid.UUID) (*Outcome, error) {
	to, ok := d.status()
	if !ok {
		return nil, apperr.Invalid("validation_failed", validation.Violations{"action": "invalid_choice"})
	}
	if to == models.RequestExpired {
		won, err := e.expire(ctx, tx, r)
		if err != nil {
			return nil, err
		}
		if !won {
			return nil, apperr.Gone("link_already_used", "request %s is no longer pending", r.ID)
		}
		return &Outcome{RequestID: r.ID, Status: to, AchievementID: r.AchievementID, AchievementStatus: models.VerificationUnverified}, nil
	}

	now := e.now()
	var commentPtr *string
	if c := strings.TrimSpace(comment); c != "" {
		commentPtr = &c
	}

	fields := map[string]any{"verifier_comment": commentPtr, "resolved_at": now}
	if verifierID != nil {
		fields["verifier_id"] = *verifierID
	}
	won, err := tx.Verifications.Transition(ctx, r.ID, to, fields)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, apperr.Gone("link_already_used", "request %s is no longer pending", r.ID)
	}

	achievementStatus := to.AchievementStatus()
	var verifiedAt *time.Time
	if achievementStatus == models.VerificationVerified {
		verifiedAt = &now
	}
	changed, err := tx.Achievements.SetVerification(ctx, r.AchievementID, nil, map[string]any{
		"verification_status": achievementStatus,
		"verified_by":         strings.ToLower(actorEmail),
		"verified_at":         verifiedAt,
		"verifier_comment":    commentPtr,
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, apperr.Internal("internal_error", apperr.NotFound("achievement_not_found", "achievement %s missing for request %s", r.AchievementID, r.ID))
	}

	return &Outcome{RequestID: r.ID, Status: to, AchievementID: r.AchievementID, AchievementStatus: achievementStatus}, nil
}

// expire moves a pending request to expired and returns its achievement to
// unverified if it is still pending. It reports whether this call expired it.
func (e *Engine) expire(ctx context.Context, tx *store.Store, r *models.VerificationRequest) (bool, error) {
	won, err := tx.Verifications.Transition(ctx, r.ID, models.RequestExpired, map[string]any{"resolved_at": e.now()})
	if err != nil || !won {
		return false, err
	}
	if _, err := tx.Achievements.SetVerification(ctx, r.AchievementID,
		[]models.VerificationStatus{models.VerificationPending},
		map[string]any{"verification_status": models.VerificationUnverified},
	); err != nil {
		return false, err
	}
	return true, nil
}

func goneFor(status models.RequestStatus) error {
	if status == models.RequestExpired {
		return apperr.Gone("link_expired", "verification link expired")
	}
	return apperr.Gone("link_already_used", "verification link already used (%s)", status)
}

// ExpireStale expires every pending request older than the TTL and returns
// how many it expired.
func (e *Engine) ExpireStale(ctx context.Context) (int, error) {
	stale, err := e.store.Verifications.ListStalePending(ctx, e.now().Add(-e.ttl), expireBatch)
	if err != nil {
		return 0, err
	}
	expired := 0
	for i := range stale {
		r := &stale[i]
		var won bool
		err := e.store.InTx(ctx, func(tx *store.Store) error {
			var err error
			won, err = e.expire(ctx, tx, r)
			return err
		})
		if err != nil {
			return expired, err
		}
		if won {
			expired++
		}
	}
	if expired > 0 {
		e.log.Info("expired stale verification requests", zap.Int("count", expired))
	}
	return expired, nil
}
