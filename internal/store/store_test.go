package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/diewo77/portfolio-pilot/internal/apperr"
	"github.com/diewo77/portfolio-pilot/internal/db/dbtest"
	"github.com/diewo77/portfolio-pilot/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProfile(t *testing.T, s *Store, role models.Role, school string, public bool, name string) *models.Profile {
	t.Helper()
	username := name + "-" + uuid.NewString()[:8]
	p := &models.Profile{
		ID: uuid.New(), Email: name + "@example.com", Name: name, Username: &username,
		School: school, Role: role, IsPublic: public,
	}
	require.NoError(t, s.Profiles.Create(context.Background(), p))
	return p
}

func newAchievement(t *testing.T, s *Store, owner uuid.UUID, status models.VerificationStatus) *models.Achievement {
	t.Helper()
	a := &models.Achievement{UserID: owner, Title: "Physics Olympiad", Category: models.CategoryAward, Type: "olympiad"}
	require.NoError(t, s.Achievements.Create(context.Background(), a))
	if status != models.VerificationUnverified {
		ok, err := s.Achievements.SetVerification(context.Background(), a.ID, nil, map[string]any{"verification_status": status})
		require.NoError(t, err)
		require.True(t, ok)
	}
	return a
}

func TestProfiles_GetAndFind(t *testing.T) {
	s := New(dbtest.New(t))
	ctx := context.Background()
	p := newProfile(t, s, models.RoleStudent, "NIS", true, "aru")

	got, err := s.Profiles.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Email, got.Email)

	_, err = s.Profiles.Get(ctx, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	missing, err := s.Profiles.Find(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, missing)

	byName, err := s.Profiles.GetByUsername(ctx, *p.Username)
	require.NoError(t, err)
	assert.Equal(t, p.ID, byName.ID)
}

func TestProfiles_DuplicateUsername(t *testing.T) {
	s := New(dbtest.New(t))
	ctx := context.Background()
	p := newProfile(t, s, models.RoleStudent, "", true, "aru")
	other := newProfile(t, s, models.RoleStudent, "", true, "dana")

	err := s.Profiles.Update(ctx, other.ID, map[string]any{"username": *p.Username})
	assert.True(t, apperr.IsConflict(err))

	err = s.Profiles.Update(ctx, uuid.New(), map[string]any{"name": "ghost"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestProfiles_ListPublicStudents(t *testing.T) {
	s := New(dbtest.New(t))
	ctx := context.Background()
	inSchool := newProfile(t, s, models.RoleStudent, "NIS", true, "aru")
	newProfile(t, s, models.RoleStudent, "NIS", false, "hidden")
	newProfile(t, s, models.RoleCounselor, "NIS", true, "counselor")
	verifier := newProfile(t, s, models.RoleVerifier, "NIS", true, "teacher")
	otherSchool := newProfile(t, s, models.RoleStudent, "BIL", true, "dana")

	scoped, err := s.Profiles.ListPublicStudents(ctx, StudentFilter{School: "NIS", Limit: 50})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{inSchool.ID, verifier.ID}, ids(scoped))

	all, err := s.Profiles.ListPublicStudents(ctx, StudentFilter{Limit: 50})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{inSchool.ID, verifier.ID, otherSchool.ID}, ids(all))
	for _, p := range all {
		assert.True(t, p.IsPublic)
		assert.NotEqual(t, models.RoleCounselor, p.Role)
	}

	searched, err := s.Profiles.ListPublicStudents(ctx, StudentFilter{Query: "DAN", Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{otherSchool.ID}, ids(searched))

	limited, err := s.Profiles.ListPublicStudents(ctx, StudentFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestProfiles_ListPublic(t *testing.T) {
	s := New(dbtest.New(t))
	ctx := context.Background()
	aru := newProfile(t, s, models.RoleStudent, "NIS", true, "aru")
	counselor := newProfile(t, s, models.RoleCounselor, "NIS", true, "counselor")
	newProfile(t, s, models.RoleStudent, "NIS", false, "hidden")
	dana := newProfile(t, s, models.RoleStudent, "BIL", true, "dana")
	require.NoError(t, s.Profiles.Create(ctx, models.DefaultProfile(uuid.New(), "nousername@example.com")))
	require.NoError(t, s.Profiles.Update(ctx, dana.ID, map[string]any{"region": "Almaty"}))

	all, err := s.Profiles.ListPublic(ctx, PublicFilter{Limit: 50})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{aru.ID, counselor.ID, dana.ID}, ids(all))

	regional, err := s.Profiles.ListPublic(ctx, PublicFilter{Region: "Almaty", Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{dana.ID}, ids(regional))

	searched, err := s.Profiles.ListPublic(ctx, PublicFilter{Query: "bil", Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{dana.ID}, ids(searched))

	escaped, err := s.Profiles.ListPublic(ctx, PublicFilter{Query: "%", Limit: 50})
	require.NoError(t, err)
	assert.Empty(t, escaped)
}

func ids(ps []models.Profile) []uuid.UUID {
	out := make([]uuid.UUID, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestAchievements_CreateClearsVerificationFields(t *testing.T) {
	s := New(dbtest.New(t))
	ctx := context.Background()
	owner := newProfile(t, s, models.RoleStudent, "", true, "aru")

	by := "me@example.com"
	a := &models.Achievement{UserID: owner.ID, Title: "Hackathon", Category: models.CategoryActivity, Type: "project",
		VerificationStatus: models.VerificationVerified, VerifiedBy: &by}
	require.NoError(t, s.Achievements.Create(ctx, a))

	got, err := s.Achievements.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationUnverified, got.VerificationStatus)
	assert.Nil(t, got.VerifiedBy)
}

func TestAchievements_UpdateOwnerFieldsIgnoresVerificationColumns(t *testing.T) {
	s := New(dbtest.New(t))
	ctx := context.Background()
	owner := newProfile(t, s, models.RoleStudent, "", true, "aru")
	a := newAchievement(t, s, owner.ID, models.VerificationUnverified)

	require.NoError(t, s.Achievements.UpdateOwnerFields(ctx, a.ID, map[string]any{
		"title":               "Renamed",
		"verification_status": models.VerificationVerified,
	}))
	got, err := s.Achievements.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, models.VerificationUnverified, got.VerificationStatus)
}

func TestAchievements_DeleteRemovesRequests(t *testing.T) {
	s := New(dbtest.New(t))
	ctx := context.Background()
	owner := newProfile(t, s, models.RoleStudent, "", true, "aru")
	a := newAchievement(t, s, owner.ID, models.VerificationUnverified)
	require.NoError(t, s.Verifications.Create(ctx, &models.VerificationRequest{
		AchievementID: a.ID, StudentID: owner.ID, VerifierEmail: "t@example.com", Token: "tok"}))

	require.NoError(t, s.Achievements.Delete(ctx, a.ID))
	n, err := s.Verifications.Count(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.True(t, apperr.Is(s.Achievements.Delete(ctx, a.ID), apperr.KindNotFound))
}

func TestAchievements_CountByOwners(t *testing.T) {
	s := New(dbtest.New(t))
	ctx := context.Background()
	aru := newProfile(t, s, models.RoleStudent, "", true, "aru")
	dana := newProfile(t, s, models.RoleStudent, "", true, "dana")
	empty := newProfile(t, s, models.RoleStudent, "", true, "empty")

	newAchievement(t, s, aru.ID, models.VerificationVerified)
	newAchievement(t, s, aru.ID, models.VerificationVerified)
	newAchievement(t, s, aru.ID, models.VerificationPending)
	newAchievement(t, s, dana.ID, models.VerificationRejected)
	require.NoError(t, s.Achievements.Create(ctx, &models.Achievement{
		UserID: dana.ID, Title: "Robotics club", Category: models.CategoryActivity, Type: "club",
	}))

	counts, err := s.Achievements.CountByOwners(ctx, []uuid.UUID{aru.ID, dana.ID, empty.ID})
	require.NoError(t, err)
	assert.Equal(t, Counts{Total: 3, Verified: 2, Awards: 3}, counts[aru.ID])
	assert.Equal(t, Counts{Total: 2, Verified: 0, Awards: 1, Activities: 1}, counts[dana.ID])
	assert.Equal(t, Counts{}, counts[empty.ID])
}

func TestVerifications_TransitionIsConditional(t *testing.T) {
	s := New(dbtest.New(t))
	ctx := context.Background()
	owner := newProfile(t, s, models.RoleStudent, "", true, "aru")
	a := newAchievement(t, s, owner.ID, models.VerificationPending)
	r := &models.VerificationRequest{AchievementID: a.ID, StudentID: owner.ID, VerifierEmail: "T@Example.com", Token: "tok"}
	require.NoError(t, s.Verifications.Create(ctx, r))

	got, err := s.Verifications.GetByToken(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "t@example.com", got.VerifierEmail)
	require.NotNil(t, got.Achievement)
	require.NotNil(t, got.Student)
	assert.Equal(t, "aru", got.Student.Name)

	var wg sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := s.Verifications.Transition(ctx, r.ID, models.RequestApproved, map[string]any{"resolved_at": time.Now()})
			assert.NoError(t, err)
			results[i] = ok
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, ok := range results {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins)

	ok, err := s.Verifications.Transition(ctx, r.ID, models.RequestRejected, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	final, err := s.Verifications.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, final.Status)
}

func TestVerifications_GetByTokenUnknown(t *testing.T) {
	s := New(dbtest.New(t))
	_, err := s.Verifications.GetByToken(context.Background(), "nope")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, "token_not_found", apperr.CodeOf(err))

	_, err = s.Verifications.GetByToken(context.Background(), "")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestVerifications_ListPendingForEmail(t *testing.T) {
	s := New(dbtest.New(t))
	ctx := context.Background()
	owner := newProfile(t, s, models.RoleStudent, "", true, "aru")

	a1 := newAchievement(t, s, owner.ID, models.VerificationPending)
	a2 := newAchievement(t, s, owner.ID, models.VerificationPending)
	a3 := newAchievement(t, s, owner.ID, models.VerificationPending)
	require.NoError(t, s.Verifications.Create(ctx, &models.VerificationRequest{AchievementID: a1.ID, StudentID: owner.ID, VerifierEmail: "teacher@example.com", Token: "t1"}))
	require.NoError(t, s.Verifications.Create(ctx, &models.VerificationRequest{AchievementID: a2.ID, StudentID: owner.ID, VerifierEmail: "other@example.com", Token: "t2"}))
	done := &models.VerificationRequest{AchievementID: a3.ID, StudentID: owner.ID, VerifierEmail: "teacher@example.com", Token: "t3"}
	require.NoError(t, s.Verifications.Create(ctx, done))
	_, err := s.Verifications.Transition(ctx, done.ID, models.RequestRejected, nil)
	require.NoError(t, err)

	rows, err := s.Verifications.ListPendingForEmail(ctx, " Teacher@Example.com", 20)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "t1", rows[0].Token)
	assert.NotNil(t, rows[0].Achievement)

	pending, err := s.Verifications.Count(ctx, models.RequestPending)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending)
}

func TestVerifications_ListStalePending(t *testing.T) {
	s := New(dbtest.New(t))
	ctx := context.Background()
	owner := newProfile(t, s, models.RoleStudent, "", true, "aru")
	a := newAchievement(t, s, owner.ID, models.VerificationPending)
	r := &models.VerificationRequest{AchievementID: a.ID, StudentID: owner.ID, VerifierEmail: "t@example.com", Token: "old"}
	require.NoError(t, s.Verifications.Create(ctx, r))
	require.NoError(t, s.DB().Model(r).UpdateColumn("created_at", time.Now().Add(-40*24*time.Hour)).Error)

	stale, err := s.Verifications.ListStalePending(ctx, time.Now().Add(-30*24*time.Hour), 100)
	require.NoError(t, err)
	require.Len(t, stale, 1)

	fresh, err := s.Verifications.ListStalePending(ctx, time.Now().Add(-60*24*time.Hour), 100)
	require.NoError(t, err)
	assert.Empty(t, fresh)
}

func TestInTx_RollsBack(t *testing.T) {
	s := New(dbtest.New(t))
	ctx := context.Background()
	owner := newProfile(t, s, models.RoleStudent, "", true, "aru")

	err := s.InTx(ctx, func(tx *Store) error {
		a := &models.Achievement{UserID: owner.ID, Title: "Temp", Category: models.CategoryAward, Type: "other"}
		require.NoError(t, tx.Achievements.Create(ctx, a))
		return apperr.Conflict("abort", "rollback")
	})
	require.Error(t, err)

	n, err := s.Achievements.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
