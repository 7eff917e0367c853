package services

import (
	"cmp"
	"context"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/diewo77/portfolio-pilot/auth"
	"github.com/diewo77/portfolio-pilot/internal/apperr"
	"github.com/diewo77/portfolio-pilot/internal/models"
	"github.com/diewo77/portfolio-pilot/internal/policy"
	"github.com/diewo77/portfolio-pilot/internal/store"
	"github.com/diewo77/portfolio-pilot/validation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{2,63}$`)

// Academic metric bounds.
var (
	maxGPA   = decimal.NewFromInt(5)
	maxIELTS = decimal.NewFromInt(9)
)

// ProfileInput is the self-editable part of a profile. Role is never
// accepted from the owner.
type ProfileInput struct {
	Name      *string          `json:"name" validate:"omitempty,max=255"`
	Username  *string          `json:"username"`
	School    *string          `json:"school" validate:"omitempty,max=255"`
	Region    *string          `json:"region" validate:"omitempty,max=255"`
	IsPublic  *bool            `json:"is_public"`
	AboutMe   *string          `json:"about_me" validate:"omitempty,max=5000"`
	GithubURL *string          `json:"github_url" validate:"omitempty,max=500"`
	GPA       *decimal.Decimal `json:"gpa"`
	IELTS     *decimal.Decimal `json:"ielts"`
	SATScore  *int             `json:"sat_score"`
	TOEFL     *int             `json:"toefl"`
}

// Me is the current caller as the client sees it.
type Me struct {
	Profile    *models.Profile `json:"profile"`
	Registered bool            `json:"registered"`
	IsAdmin    bool            `json:"isAdmin"`
}

// PublicProfile is a profile as shown to anyone, without contact data.
type PublicProfile struct {
	Username     string               `json:"username"`
	Name         string               `json:"name"`
	School       string               `json:"school,omitempty"`
	Region       string               `json:"region,omitempty"`
	AboutMe      string               `json:"about_me,omitempty"`
	GithubURL    string               `json:"github_url,omitempty"`
	GPA          decimal.NullDecimal  `json:"gpa"`
	IELTS        decimal.NullDecimal  `json:"ielts"`
	SATScore     *int                 `json:"sat_score"`
	TOEFL        *int                 `json:"toefl"`
	Achievements []PublicAchievement `json:"achievements"`
}

// PublicAchievement is an achievement without owner or verifier identity.
type PublicAchievement struct {
	ID                 uuid.UUID                 `json:"id"`
	Title              string                    `json:"title"`
	Description        string                    `json:"description,omitempty"`
	Category           models.Category           `json:"category"`
	Type               string                    `json:"type"`
	Date               *time.Time                `json:"date,omitempty"`
	FileURL            string                    `json:"file_url,omitempty"`
	VerificationStatus models.VerificationStatus `json:"verification_status"`
	VerifiedAt         *time.Time                `json:"verified_at,omitempty"`
}

func publicAchievement(a models.Achievement) PublicAchievement {
	return PublicAchievement{
		ID:                 a.ID,
		Title:              a.Title,
		Description:        a.Description,
		Category:           a.Category,
		Type:               a.Type,
		Date:               a.Date,
		FileURL:            a.FileURL,
		VerificationStatus: a.VerificationStatus,
		VerifiedAt:         a.VerifiedAt,
	}
}

// Community directory sort orders.
const (
	SortRecent       = "recent"
	SortAchievements = "achievements"
)

const directoryLimit = 200

// DirectoryQuery filters the community directory. Region "all" or empty
// matches every region.
type DirectoryQuery struct {
	Query  string
	Region string
	Sort   string
}

// DirectoryEntry is one public profile with its achievement tally.
type DirectoryEntry struct {
	Username   string    `json:"username"`
	Name       string    `json:"name"`
	School     string    `json:"school,omitempty"`
	Region     string    `json:"region,omitempty"`
	AboutMe    string    `json:"about_me,omitempty"`
	Awards     int64     `json:"awards_count"`
	Activities int64     `json:"activities_count"`
	JoinedAt   time.Time `json:"created_at"`
}

type ProfileService struct {
	store *store.Store
	gate  *policy.RoleGate
}

func NewProfileService(s *store.Store, g *policy.RoleGate) *ProfileService {
	return &ProfileService{store: s, gate: g}
}

// Me returns the caller's profile, or the default student profile when the
// caller has not registered yet.
func (s *ProfileService) Me(ctx context.Context, caller auth.Identity) (*Me, error) {
	p, err := s.store.Profiles.Find(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	me := &Me{Profile: p, Registered: p != nil, IsAdmin: s.gate.IsAdmin(caller.Email)}
	if p == nil {
		me.Profile = models.DefaultProfile(caller.ID, caller.Email)
	}
	return me, nil
}

// Register creates the caller's profile as a public student. A row created
// implicitly (for example by adding an achievement first) is completed
// instead; a profile that already has a username is a conflict.
func (s *ProfileService) Register(ctx context.Context, caller auth.Identity, in ProfileInput) (*models.Profile, error) {
	v := validation.Violations{}
	validation.Required("name", deref(in.Name), v)
	validation.Required("username", deref(in.Username), v)
	fields, err := profileFields(in, v)
	if err != nil {
		return nil, err
	}

	var out *models.Profile
	err = s.store.InTx(ctx, func(tx *store.Store) error {
		existing, err := tx.Profiles.Find(ctx, caller.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			p := models.DefaultProfile(caller.ID, caller.Email)
			if err := tx.Profiles.Create(ctx, p); err != nil {
				return err
			}
		} else if existing.Username != nil {
			return apperr.Conflict("profile_exists", "profile already registered")
		}
		if err := tx.Profiles.Update(ctx, caller.ID, fields); err != nil {
			return err
		}
		out, err = tx.Profiles.Get(ctx, caller.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update changes the caller's own non-role fields.
func (s *ProfileService) Update(ctx context.Context, caller auth.Identity, in ProfileInput) (*models.Profile, error) {
	fields, err := profileFields(in, validation.Violations{})
	if err != nil {
		return nil, err
	}
	if err := s.store.Profiles.Update(ctx, caller.ID, fields); err != nil {
		return nil, err
	}
	// school is part of the cached subject
	s.gate.InvalidateUser(ctx, caller.ID)
	return s.store.Profiles.Get(ctx, caller.ID)
}

// Public returns the profile with the given username. Private and unknown
// profiles are both NotFound.
func (s *ProfileService) Public(ctx context.Context, username string) (*PublicProfile, error) {
	p, err := s.store.Profiles.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return nil, err
	}
	if !p.IsPublic {
		return nil, apperr.NotFound("profile_not_found", "profile %s not found", username)
	}
	rows, err := s.store.Achievements.ListByOwner(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	achievements := make([]PublicAchievement, 0, len(rows))
	for _, a := range rows {
		achievements = append(achievements, publicAchievement(a))
	}
	return &PublicProfile{
		Username:     deref(p.Username),
		Name:         p.DisplayName(),
		School:       p.School,
		Region:       p.Region,
		AboutMe:      p.AboutMe,
		GithubURL:    p.GithubURL,
		GPA:          p.GPA,
		IELTS:        p.IELTS,
		SATScore:     p.SATScore,
		TOEFL:        p.TOEFL,
		Achievements: achievements,
	}, nil
}

// Directory lists public profiles with award and activity counts, newest
// first or by achievement total.
func (s *ProfileService) Directory(ctx context.Context, q DirectoryQuery) ([]DirectoryEntry, error) {
	sortBy := strings.TrimSpace(q.Sort)
	if sortBy == "" {
		sortBy = SortRecent
	}
	if sortBy != SortRecent && sortBy != SortAchievements {
		return nil, apperr.Invalid("validation_failed", validation.Violations{"sort": "invalid_choice"})
	}
	region := strings.TrimSpace(q.Region)
	if strings.EqualFold(region, "all") {
		region = ""
	}

	profiles, err := s.store.Profiles.ListPublic(ctx, store.PublicFilter{Region: region, Query: q.Query, Limit: directoryLimit})
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(profiles))
	for i, p := range profiles {
		ids[i] = p.ID
	}
	counts, err := s.store.Achievements.CountByOwners(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]DirectoryEntry, 0, len(profiles))
	for _, p := range profiles {
		c := counts[p.ID]
		out = append(out, DirectoryEntry{
			Username:   deref(p.Username),
			Name:       p.DisplayName(),
			School:     p.School,
			Region:     p.Region,
			AboutMe:    p.AboutMe,
			Awards:     c.Awards,
			Activities: c.Activities,
			JoinedAt:   p.CreatedAt,
		})
	}
	if sortBy == SortAchievements {
		// stable: ties keep the newest-first order
		slices.SortStableFunc(out, func(a, b DirectoryEntry) int {
			return cmp.Compare(b.Awards+b.Activities, a.Awards+a.Activities)
		})
	}
	return out, nil
}

// profileFields validates in and returns the columns to write.
func profileFields(in ProfileInput, v validation.Violations) (map[string]any, error) {
	if err := validation.Struct(in, v); err != nil {
		return nil, apperr.Internal("internal_error", err)
	}
	fields := map[string]any{}
	if in.Name != nil {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Username != nil {
		u := strings.ToLower(strings.TrimSpace(*in.Username))
		switch {
		case u == "":
			fields["username"] = nil
		case !usernamePattern.MatchString(u):
			v.Add("username", "invalid")
		default:
			fields["username"] = u
		}
	}
	if in.School != nil {
		fields["school"] = strings.TrimSpace(*in.School)
	}
	if in.Region != nil {
		fields["region"] = strings.TrimSpace(*in.Region)
	}
	if in.IsPublic != nil {
		fields["is_public"] = *in.IsPublic
	}
	if in.AboutMe != nil {
		fields["about_me"] = strings.TrimSpace(*in.AboutMe)
	}
	if in.GithubURL != nil {
		u := strings.TrimSpace(*in.GithubURL)
		validation.OptionalURL("github_url", u, v)
		fields["github_url"] = u
	}
	if in.GPA != nil {
		if in.GPA.IsNegative() || in.GPA.GreaterThan(maxGPA) {
			v.Add("gpa", "out_of_range")
		}
		fields["gpa"] = decimal.NewNullDecimal(*in.GPA)
	}
	if in.IELTS != nil {
		if in.IELTS.IsNegative() || in.IELTS.GreaterThan(maxIELTS) {
			v.Add("ielts", "out_of_range")
		}
		fields["ielts"] = decimal.NewNullDecimal(*in.IELTS)
	}
	if in.SATScore != nil {
		if *in.SATScore < 400 || *in.SATScore > 1600 {
			v.Add("sat_score", "out_of_range")
		}
		fields["sat_score"] = *in.SATScore
	}
	if in.TOEFL != nil {
		if *in.TOEFL < 0 || *in.TOEFL > 120 {
			v.Add("toefl", "out_of_range")
		}
		fields["toefl"] = *in.TOEFL
	}
	if !v.Empty() {
		return nil, apperr.Invalid("validation_failed", v)
	}
	return fields, nil
}
