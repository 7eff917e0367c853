package store

import (
	"context"
	"strings"

	"github.com/diewo77/portfolio-pilot/internal/apperr"
	"github.com/diewo77/portfolio-pilot/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfileStore reads and writes profile records.
type ProfileStore struct {
	db *gorm.DB
}

// Get returns the profile with the given IdP user id.
func (s *ProfileStore) Get(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "profile_not_found")
	}
	return &p, nil
}

// Find is Get returning (nil, nil) when no row exists.
func (s *ProfileStore) Find(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	p, err := s.Get(ctx, id)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, nil
	}
	return p, err
}

func (s *ProfileStore) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	var p models.Profile
	if err := s.db.WithContext(ctx).First(&p, "username = ?", username).Error; err != nil {
		return nil, wrap(err, "profile_not_found")
	}
	return &p, nil
}

// GetMany loads profiles by id, keyed by id.
func (s *ProfileStore) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Profile, error) {
	out := make(map[uuid.UUID]*models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Profile
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, wrap(err, "profile_not_found")
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

func (s *ProfileStore) Create(ctx context.Context, p *models.Profile) error {
	err := s.db.WithContext(ctx).Create(p).Error
	if isDuplicate(err) {
		return apperr.Conflict("profile_exists", "profile or username already exists")
	}
	return wrap(err, "profile_not_found")
}

// FirstOrCreate inserts p unless a profile with its id exists, then loads
// the stored row into p.
func (s *ProfileStore) FirstOrCreate(ctx context.Context, p *models.Profile) error {
	err := s.db.WithContext(ctx).Where("id = ?", p.ID).FirstOrCreate(p).Error
	return wrap(err, "profile_not_found")
}

// Update writes the given columns of profile id. A missing row is NotFound.
func (s *ProfileStore) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return apperr.Conflict("username_taken", "username already in use")
		}
		return wrap(res.Error, "profile_not_found")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("profile_not_found", "profile %s not found", id)
	}
	return nil
}

// List returns every profile, newest first.
func (s *ProfileStore) List(ctx context.Context, limit int) ([]models.Profile, error) {
	var rows []models.Profile
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error
	return rows, wrap(err, "profile_not_found")
}

// StudentFilter narrows the counselor listing.
type StudentFilter struct {
	School string // empty means every school
	Query  string // matched against name, username and school
	Limit  int
}

// ListPublicStudents returns public, non-counselor profiles, optionally
// restricted to one school.
func (s *ProfileStore) ListPublicStudents(ctx context.Context, f StudentFilter) ([]models.Profile, error) {
	q := s.db.WithContext(ctx).
		Where("is_public = ?", true).
		Where("role <> ?", models.RoleCounselor)
	if f.School != "" {
		q = q.Where("school = ?", f.School)
	}
	q = searchProfiles(q, f.Query)
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var rows []models.Profile
	err := q.Order("created_at DESC").Find(&rows).Error
	return rows, wrap(err, "profile_not_found")
}

// PublicFilter narrows the community directory.
type PublicFilter struct {
	Region string // exact match; empty means every region
	Query  string // matched against name, username and school
	Limit  int
}

// ListPublic returns public profiles that have a username, newest first.
func (s *ProfileStore) ListPublic(ctx context.Context, f PublicFilter) ([]models.Profile, error) {
	q := s.db.WithContext(ctx).
		Where("is_public = ?", true).
		Where("username IS NOT NULL")
	if f.Region != "" {
		q = q.Where("region = ?", f.Region)
	}
	q = searchProfiles(q, f.Query)
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var rows []models.Profile
	err := q.Order("created_at DESC").Find(&rows).Error
	return rows, wrap(err, "profile_not_found")
}

func searchProfiles(q *gorm.DB, query string) *gorm.DB {
	if strings.TrimSpace(query) == "" {
		return q
	}
	pattern := likePattern(query)
	return q.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(username) LIKE ? ESCAPE '\' OR LOWER(school) LIKE ? ESCAPE '\')`,
		pattern, pattern, pattern)
}

func (s *ProfileStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Profile{}).Count(&n).Error
	return n, wrap(err, "profile_not_found")
}
