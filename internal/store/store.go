// Package store is the GORM persistence layer for profiles, achievements and
// verification requests.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/diewo77/portfolio-pilot/internal/apperr"
	"gorm.io/gorm"
)

// Store groups the three record stores over one connection or transaction.
type Store struct {
	db            *gorm.DB
	Profiles      *ProfileStore
	Achievements  *AchievementStore
	Verifications *VerificationStore
}

func New(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Profiles:      &ProfileStore{db: db},
		Achievements:  &AchievementStore{db: db},
		Verifications: &VerificationStore{db: db},
	}
}

// DB returns the underlying handle.
func (s *Store) DB() *gorm.DB { return s.db }

// InTx runs fn with stores bound to a single transaction. Returning an
// error rolls everything back.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

// wrap converts gorm errors into application errors.
func wrap(err error, notFoundCode string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(notFoundCode, "record not found")
	case isDuplicate(err):
		return apperr.Conflict("duplicate", "unique constraint violated")
	default:
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return err
		}
		return apperr.Internal("internal_error", err)
	}
}

func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}

// likePattern builds a case-insensitive LIKE pattern for LOWER(column).
func likePattern(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	q = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(q)
	return "%" + q + "%"
}
