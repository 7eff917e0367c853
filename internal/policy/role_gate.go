package policy

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/diewo77/portfolio-pilot/auth"
	"github.com/diewo77/portfolio-pilot/gate"
	"github.com/diewo77/portfolio-pilot/httpx"
	"github.com/diewo77/portfolio-pilot/internal/apperr"
	"github.com/diewo77/portfolio-pilot/internal/models"
	"github.com/diewo77/portfolio-pilot/internal/store"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Resource types with registered policies.
const (
	ResourceAchievement = "achievement"
	ResourceProfile     = "profile"
)

// invalidator drops cached subjects after a role change.
type invalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// RoleGate is the single authorization point: stored-role checks, the admin
// allow-list and resource ownership. Failures are AuthorizationDenied,
// never NotFound.
type RoleGate struct {
	Gate   *gate.RoleGate[uuid.UUID]
	admins *gate.AllowList
	cache  invalidator
	log    *zap.Logger
}

// NewRoleGate builds the gate over the profile store. With a Redis client the
// subject cache is shared across instances; otherwise it is per process.
func NewRoleGate(profiles *store.ProfileStore, adminEmails []string, rdb redis.UniversalClient, cacheTTL time.Duration, log *zap.Logger) *RoleGate {
	if log == nil {
		log = zap.NewNop()
	}
	var (
		resolver gate.SubjectResolver[uuid.UUID] = NewDBSubjectResolver(profiles)
		cache    invalidator
	)
	if rdb != nil {
		rr := NewRedisSubjectResolver(resolver, rdb, cacheTTL, log)
		resolver, cache = rr, rr
	} else {
		cr := gate.NewCachedResolver[uuid.UUID](resolver, cacheTTL)
		resolver, cache = cr, cr
	}

	rg := &RoleGate{
		Gate:   gate.NewRoleGate[uuid.UUID](resolver),
		admins: gate.NewAllowList(adminEmails...),
		cache:  cache,
		log:    log,
	}
	rg.RegisterPolicy(ResourceAchievement, NewOwnershipPolicy())
	rg.RegisterPolicy(ResourceProfile, NewOwnershipPolicy())
	return rg
}

// RegisterPolicy adds a resource policy.
func (rg *RoleGate) RegisterPolicy(resourceType string, p gate.Policy[uuid.UUID]) {
	rg.Gate.Register(resourceType, p)
}

// HasRole is the exact-match role predicate; there is no hierarchy.
func HasRole(s gate.Subject, required models.Role) bool {
	return gate.HasRole(s, gate.Role(required))
}

// IsAdmin reports whether the email is on the administrator allow-list.
func (rg *RoleGate) IsAdmin(email string) bool {
	return rg.admins.Contains(email)
}

// Subject resolves the current caller.
func (rg *RoleGate) Subject(ctx context.Context) (*Subject, error) {
	id, ok := auth.FromContext(ctx)
	if !ok {
		return nil, apperr.Unauthenticated("authentication_required", "no current identity")
	}
	s, err := rg.Gate.Subject(ctx, id.ID)
	if err != nil {
		return nil, toAppErr(err, "")
	}
	sub, ok := s.(*Subject)
	if !ok || sub == nil {
		return &Subject{RoleName: models.RoleStudent, EmailAddr: id.Email}, nil
	}
	out := *sub
	if out.EmailAddr == "" {
		out.EmailAddr = id.Email
	}
	return &out, nil
}

// Authorize checks that the caller holds role required (empty skips the role
// check) and passes the resource policy.
func (rg *RoleGate) Authorize(ctx context.Context, required models.Role, action gate.Action, resourceType string, resource any) error {
	id, ok := auth.FromContext(ctx)
	if !ok {
		return apperr.Unauthenticated("authentication_required", "no current identity")
	}
	err := rg.Gate.Authorize(ctx, id.ID, gate.Role(required), action, resourceType, resource)
	if err == nil {
		return nil
	}
	code := "not_owner"
	if required != "" && !rg.Gate.CanRole(ctx, id.ID, gate.Role(required)) {
		code = "wrong_role"
	}
	return toAppErr(err, code)
}

// AdminCount is the number of allow-listed administrator emails.
func (rg *RoleGate) AdminCount() int {
	return rg.admins.Len()
}

// InvalidateUser drops the cached role of a user. It runs after the profile
// change has committed, so a failure is only logged and the stale entry
// expires with the cache TTL.
func (rg *RoleGate) InvalidateUser(ctx context.Context, userID uuid.UUID) {
	if err := rg.cache.Invalidate(ctx, userID); err != nil {
		rg.log.Warn("role cache invalidation failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func toAppErr(err error, forbiddenCode string) error {
	switch {
	case errors.Is(err, gate.ErrUnauthenticated):
		return apperr.Unauthenticated("authentication_required", "no current identity")
	case errors.Is(err, gate.ErrForbidden):
		if forbiddenCode == "" {
			forbiddenCode = "authorization_denied"
		}
		return apperr.Forbidden(forbiddenCode, "access denied")
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Dependency("dependency_failure", err)
}

// RequireRole returns middleware admitting only callers whose stored role is
// exactly role.
func (rg *RoleGate) RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := rg.Subject(r.Context())
			if err != nil {
				httpx.Error(w, r, err)
				return
			}
			if !HasRole(s, role) {
				denied := apperr.Forbidden("wrong_role", "role %s required", role)
				denied.Details = map[string]any{"required": role, "current": s.RoleName}
				httpx.Error(w, r, denied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin returns middleware admitting only allow-listed emails.
// Stored roles play no part.
func (rg *RoleGate) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.FromContext(r.Context())
			if !ok {
				httpx.Error(w, r, apperr.Unauthenticated("authentication_required", "no current identity"))
				return
			}
			if !rg.IsAdmin(id.Email) {
				httpx.Error(w, r, apperr.Forbidden("not_admin", "administrator access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
