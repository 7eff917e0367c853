package verification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/diewo77/portfolio-pilot/auth"
	"github.com/diewo77/portfolio-pilot/internal/apperr"
	"github.com/diewo77/portfolio-pilot/internal/db/dbtest"
	"github.com/diewo77/portfolio-pilot/internal/models"
	"github.com/diewo77/portfolio-pilot/internal/notify"
	"github.com/diewo77/portfolio-pilot/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	sent   []notify.Message
	result notify.Result
}

func (d *recordingDispatcher) Send(_ context.Context, msg notify.Message) notify.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, msg)
	return d.result
}

type fixture struct {
	engine      *Engine
	store       *store.Store
	dispatcher  *recordingDispatcher
	student     auth.Identity
	achievement *models.Achievement
	clock       time.Time
}

func (f *fixture) now() time.Time { return f.clock }

func setup(t *testing.T) *fixture {
	t.Helper()
	s := store.New(dbtest.New(t))
	f := &fixture{
		store:      s,
		dispatcher: &recordingDispatcher{result: notify.Result{Delivered: true}},
		student:    auth.Identity{ID: uuid.New(), Email: "student@example.com"},
		clock:      time.Now(),
	}
	f.engine = NewEngine(s, f.dispatcher, zap.NewNop(), Options{PublicURL: "https://portfolio.example.com/", Now: f.now})

	username := "aru"
	require.NoError(t, s.Profiles.Create(context.Background(), &models.Profile{
		ID: f.student.ID, Email: f.student.Email, Name: "Aruzhan", Username: &username,
		Role: models.RoleStudent, IsPublic: true,
	}))
	f.achievement = &models.Achievement{UserID: f.student.ID, Title: "Physics Olympiad",
		Category: models.CategoryAward, Type: "olympiad"}
	require.NoError(t, s.Achievements.Create(context.Background(), f.achievement))
	return f
}

func (f *fixture) request(t *testing.T) *RequestResult {
	t.Helper()
	res, err := f.engine.Request(context.Background(), f.student, RequestInput{
		AchievementID: f.achievement.ID,
		VerifierEmail: "Teacher@Example.com",
		ProofLink:     "https://olympiad.kz/results/2025",
		Message:       "Please confirm my result",
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) reload(t *testing.T) (*models.Achievement, *models.VerificationRequest) {
	t.Helper()
	a, err := f.store.Achievements.Get(context.Background(), f.achievement.ID)
	require.NoError(t, err)
	var r models.VerificationRequest
	require.NoError(t, f.store.DB().Where("achievement_id = ?", f.achievement.ID).Order("created_at DESC").First(&r).Error)
	return a, &r
}

var teacher = auth.Identity{ID: uuid.New(), Email: "teacher@example.com"}

func TestRequest_MakesAchievementPending(t *testing.T) {
	f := setup(t)
	res := f.request(t)

	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "https://portfolio.example.com/verify/"+res.Token, res.VerifyURL)
	assert.True(t, res.EmailSent)

	a, r := f.reload(t)
	assert.Equal(t, models.VerificationPending, a.VerificationStatus)
	require.NotNil(t, a.VerificationLink)
	assert.Equal(t, "https://olympiad.kz/results/2025", *a.VerificationLink)
	assert.Equal(t, "teacher@example.com", r.VerifierEmail)
	assert.True(t, r.EmailDelivered)

	view, err := f.engine.Lookup(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, view.Status)
	assert.True(t, view.Open())
	assert.Equal(t, "Physics Olympiad", view.Achievement.Title)
	assert.Equal(t, "Aruzhan", view.StudentName)

	require.Len(t, f.dispatcher.sent, 1)
	assert.Equal(t, notify.Message{
		To:               "teacher@example.com",
		VerifyLink:       res.VerifyURL,
		StudentName:      "Aruzhan",
		AchievementTitle: "Physics Olympiad",
	}, f.dispatcher.sent[0])
}

func TestRespond_ApproveVerifiesAchievement(t *testing.T) {
	f := setup(t)
	res := f.request(t)

	out, err := f.engine.Respond(context.Background(), teacher, res.Token, DecisionApprove, "Confirmed")
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, out.Status)
	assert.Equal(t, models.VerificationVerified, out.AchievementStatus)

	a, r := f.reload(t)
	assert.Equal(t, models.VerificationVerified, a.VerificationStatus)
	require.NotNil(t, a.VerifierComment)
	assert.Equal(t, "Confirmed", *a.VerifierComment)
	require.NotNil(t, a.VerifiedAt)
	require.NotNil(t, a.VerifiedBy)
	assert.Equal(t, "teacher@example.com", *a.VerifiedBy)
	require.NotNil(t, r.VerifierID)
	assert.Equal(t, teacher.ID, *r.VerifierID)
	assert.NotNil(t, r.ResolvedAt)

	view, err := f.engine.Lookup(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, view.Status)
	assert.False(t, view.Open())
}

func TestRespond_SecondResolveIsGone(t *testing.T) {
	for _, second := range []Decision{DecisionApprove, DecisionReject} {
		t.Run(string(second), func(t *testing.T) {
			f := setup(t)
			res := f.request(t)
			_, err := f.engine.Respond(context.Background(), teacher, res.Token, DecisionApprove, "Confirmed")
			require.NoError(t, err)

			_, err = f.engine.Respond(context.Background(), teacher, res.Token, second, "changed my mind")
			require.Error(t, err)
			assert.True(t, apperr.IsConflict(err))
			assert.Equal(t, "link_already_used", apperr.CodeOf(err))

			a, r := f.reload(t)
			assert.Equal(t, models.VerificationVerified, a.VerificationStatus)
			assert.Equal(t, "Confirmed", *a.VerifierComment)
			assert.Equal(t, models.RequestApproved, r.Status)
		})
	}
}

func TestRespond_WrongEmailIsForbidden(t *testing.T) {
	f := setup(t)
	res := f.request(t)

	wrong := auth.Identity{ID: uuid.New(), Email: "wrong@example.com"}
	_, err := f.engine.Respond(context.Background(), wrong, res.Token, DecisionApprove, "")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindAuthorizationDenied))
	assert.Equal(t, "wrong_verifier", apperr.CodeOf(err))

	a, r := f.reload(t)
	assert.Equal(t, models.RequestPending, r.Status)
	assert.Nil(t, r.VerifierID)
	assert.Equal(t, models.VerificationPending, a.VerificationStatus)
}

func TestRequest_EmailFailureStillCreatesRequest(t *testing.T) {
	f := setup(t)
	f.dispatcher.result = notify.Result{Error: "mail provider returned 503"}

	res := f.request(t)
	assert.False(t, res.EmailSent)
	assert.Equal(t, "mail provider returned 503", res.EmailError)
	assert.NotEmpty(t, res.VerifyURL)

	a, r := f.reload(t)
	assert.Equal(t, models.VerificationPending, a.VerificationStatus)
	assert.False(t, r.EmailDelivered)
	require.NotNil(t, r.EmailError)
	assert.Equal(t, "mail provider returned 503", *r.EmailError)

	// the manual link still works
	_, err := f.engine.Respond(context.Background(), teacher, res.Token, DecisionReject, "Not my student")
	require.NoError(t, err)
	a, _ = f.reload(t)
	assert.Equal(t, models.VerificationRejected, a.VerificationStatus)
	assert.Nil(t, a.VerifiedAt)
}

func TestRespond_CaseInsensitiveEmailRegardlessOfRole(t *testing.T) {
	f := setup(t)
	res := f.request(t)

	// the caller could hold any stored role; only the email matters
	_, err := f.engine.Respond(context.Background(), auth.Identity{ID: uuid.New(), Email: "TEACHER@example.COM"}, res.Token, DecisionApprove, "")
	require.NoError(t, err)
}

func TestRespond_Validation(t *testing.T) {
	f := setup(t)
	res := f.request(t)

	_, err := f.engine.Respond(context.Background(), auth.Identity{}, res.Token, DecisionApprove, "")
	assert.True(t, apperr.Is(err, apperr.KindAuthenticationRequired))

	_, err = f.engine.Respond(context.Background(), teacher, res.Token, DecisionExpire, "")
	assert.True(t, apperr.Is(err, apperr.KindValidation), "verifiers cannot expire")

	_, err = f.engine.Respond(context.Background(), teacher, "", DecisionApprove, "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.engine.Respond(context.Background(), teacher, "no-such-token", DecisionApprove, "")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRespond_ConcurrentCallsOnlyOneWins(t *testing.T) {
	f := setup(t)
	res := f.request(t)

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := DecisionApprove
			if i%2 == 1 {
				d = DecisionReject
			}
			_, errs[i] = f.engine.Respond(context.Background(), teacher, res.Token, d, "")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.True(t, apperr.IsConflict(err), "unexpected error %v", err)
		}
	}
	assert.Equal(t, 1, wins)

	a, r := f.reload(t)
	assert.Equal(t, r.Status.AchievementStatus(), a.VerificationStatus)
}

func TestRequest_Preconditions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.engine.Request(ctx, auth.Identity{}, RequestInput{AchievementID: f.achievement.ID, VerifierEmail: "t@example.com"})
	assert.True(t, apperr.Is(err, apperr.KindAuthenticationRequired))

	_, err = f.engine.Request(ctx, f.student, RequestInput{AchievementID: f.achievement.ID, VerifierEmail: "not-an-email"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.engine.Request(ctx, f.student, RequestInput{AchievementID: f.achievement.ID, VerifierEmail: "t@example.com", ProofLink: "javascript:alert(1)"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	stranger := auth.Identity{ID: uuid.New(), Email: "stranger@example.com"}
	_, err = f.engine.Request(ctx, stranger, RequestInput{AchievementID: f.achievement.ID, VerifierEmail: "t@example.com"})
	assert.True(t, apperr.Is(err, apperr.KindAuthorizationDenied))

	_, err = f.engine.Request(ctx, f.student, RequestInput{AchievementID: uuid.New(), VerifierEmail: "t@example.com"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	assert.Empty(t, f.dispatcher.sent, "nothing is sent when preconditions fail")
	a, _ := f.store.Achievements.Get(ctx, f.achievement.ID)
	assert.Equal(t, models.VerificationUnverified, a.VerificationStatus)
}

func TestRequest_VerifiedAchievementIsConflict(t *testing.T) {
	f := setup(t)
	res := f.request(t)
	_, err := f.engine.Respond(context.Background(), teacher, res.Token, DecisionApprove, "")
	require.NoError(t, err)

	_, err = f.engine.Request(context.Background(), f.student, RequestInput{AchievementID: f.achievement.ID, VerifierEmail: "t@example.com"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, "already_verified", apperr.CodeOf(err))
}

func TestRequest_AfterRejectionStartsOver(t *testing.T) {
	f := setup(t)
	res := f.request(t)
	_, err := f.engine.Respond(context.Background(), teacher, res.Token, DecisionReject, "Wrong year")
	require.NoError(t, err)

	f.request(t)
	a, _ := f.reload(t)
	assert.Equal(t, models.VerificationPending, a.VerificationStatus)
	assert.Nil(t, a.VerifierComment)
	assert.Nil(t, a.VerifiedBy)
}

func TestRequest_SupersedesPendingRequest(t *testing.T) {
	f := setup(t)
	first := f.request(t)

	second, err := f.engine.Request(context.Background(), f.student, RequestInput{
		AchievementID: f.achievement.ID, VerifierEmail: "coach@example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	view, err := f.engine.Lookup(context.Background(), first.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RequestExpired, view.Status)

	_, err = f.engine.Respond(context.Background(), teacher, first.Token, DecisionApprove, "")
	assert.Equal(t, "link_expired", apperr.CodeOf(err))

	pending, err := f.store.Verifications.Count(context.Background(), models.RequestPending)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)

	a, _ := f.reload(t)
	assert.Equal(t, models.VerificationPending, a.VerificationStatus, "achievement stays pending for the new request")
}

func TestExpiry_LazyOnRespondAndLookup(t *testing.T) {
	f := setup(t)
	res := f.request(t)
	f.clock = f.clock.Add(DefaultTTL + time.Hour)

	_, err := f.engine.Respond(context.Background(), teacher, res.Token, DecisionApprove, "")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindGone))
	assert.Equal(t, "link_expired", apperr.CodeOf(err))

	a, r := f.reload(t)
	assert.Equal(t, models.RequestExpired, r.Status, "expiry is committed even though the call failed")
	assert.Equal(t, models.VerificationUnverified, a.VerificationStatus)

	view, err := f.engine.Lookup(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RequestExpired, view.Status)
}

func TestExpireStale(t *testing.T) {
	f := setup(t)
	f.request(t)

	n, err := f.engine.ExpireStale(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock = f.clock.Add(DefaultTTL + time.Minute)
	n, err = f.engine.ExpireStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	a, r := f.reload(t)
	assert.Equal(t, models.RequestExpired, r.Status)
	assert.Equal(t, models.VerificationUnverified, a.VerificationStatus)

	n, err = f.engine.ExpireStale(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListForVerifier(t *testing.T) {
	f := setup(t)
	res := f.request(t)

	items, err := f.engine.ListForVerifier(context.Background(), "TEACHER@example.com")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Aruzhan", items[0].StudentName)
	assert.Equal(t, "Physics Olympiad", items[0].AchievementTitle)
	assert.Equal(t, res.VerifyURL, items[0].VerifyURL)

	none, err := f.engine.ListForVerifier(context.Background(), "other@example.com")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestModerate(t *testing.T) {
	f := setup(t)
	res := f.request(t)

	queue, err := f.engine.Queue(context.Background(), models.RequestPending)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "aru", queue[0].StudentUsername)
	assert.Equal(t, "Physics Olympiad", queue[0].AchievementTitle)

	out, err := f.engine.Moderate(context.Background(), "admin@example.com", res.RequestID, DecisionExpire, "")
	require.NoError(t, err)
	assert.Equal(t, models.RequestExpired, out.Status)

	a, _ := f.reload(t)
	assert.Equal(t, models.VerificationUnverified, a.VerificationStatus)

	_, err = f.engine.Moderate(context.Background(), "admin@example.com", res.RequestID, DecisionApprove, "")
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, "request_not_pending", apperr.CodeOf(err))

	_, err = f.engine.Queue(context.Background(), "done")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestModerate_ApproveRecordsAdmin(t *testing.T) {
	f := setup(t)
	res := f.request(t)

	_, err := f.engine.Moderate(context.Background(), "Admin@Example.com", res.RequestID, DecisionApprove, "Checked the certificate")
	require.NoError(t, err)

	a, r := f.reload(t)
	assert.Equal(t, models.VerificationVerified, a.VerificationStatus)
	assert.Equal(t, "admin@example.com", *a.VerifiedBy)
	assert.NotNil(t, a.VerifiedAt)
	assert.Nil(t, r.VerifierID)
}

func TestNewToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tok, err := NewToken()
		require.NoError(t, err)
		assert.Len(t, tok, 43)
		assert.False(t, seen[tok])
		seen[tok] = true
	}
}

func TestNewEngine_UsesCallerLoggerName(t *testing.T) {
	f := setup(t)
	core, logs := observer.New(zapcore.InfoLevel)
	f.engine = NewEngine(f.store, f.dispatcher, zap.New(core).Named("verification"), Options{PublicURL: "https://portfolio.example.com", Now: f.now})

	res := f.request(t)

	entries := logs.FilterMessage("verification requested").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "verification", entries[0].LoggerName)
	for _, v := range entries[0].ContextMap() {
		assert.NotEqual(t, res.Token, v)
	}
}
