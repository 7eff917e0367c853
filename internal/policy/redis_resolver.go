package policy

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/diewo77/portfolio-pilot/gate"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const subjectKeyPrefix = "portfolio:subject:"

// RedisSubjectResolver caches resolved subjects in Redis so every instance
// sees a role change as soon as it is invalidated. Redis failures fall back
// to the inner resolver.
type RedisSubjectResolver struct {
	inner  gate.SubjectResolver[uuid.UUID]
	client redis.UniversalClient
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisSubjectResolver(inner gate.SubjectResolver[uuid.UUID], client redis.UniversalClient, ttl time.Duration, log *zap.Logger) *RedisSubjectResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisSubjectResolver{inner: inner, client: client, ttl: ttl, log: log}
}

func subjectKey(userID uuid.UUID) string { return subjectKeyPrefix + userID.String() }

// Resolve implements gate.SubjectResolver.
func (r *RedisSubjectResolver) Resolve(ctx context.Context, userID uuid.UUID) (gate.Subject, error) {
	raw, err := r.client.Get(ctx, subjectKey(userID)).Bytes()
	switch {
	case err == nil:
		var s Subject
		if jsonErr := json.Unmarshal(raw, &s); jsonErr == nil {
			return &s, nil
		}
	case !errors.Is(err, redis.Nil):
		r.log.Warn("subject cache read failed", zap.Error(err))
	}

	s, err := r.inner.Resolve(ctx, userID)
	if err != nil || s == nil {
		return s, err
	}
	if sub, ok := s.(*Subject); ok {
		if data, err := json.Marshal(sub); err == nil {
			if err := r.client.Set(ctx, subjectKey(userID), data, r.ttl).Err(); err != nil {
				r.log.Warn("subject cache write failed", zap.Error(err))
			}
		}
	}
	return s, nil
}

// Invalidate drops the cached subject of one user.
func (r *RedisSubjectResolver) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return r.client.Del(ctx, subjectKey(userID)).Err()
}
