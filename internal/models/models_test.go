package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestRole_Valid(t *testing.T) {
	for _, r := range []Role{RoleStudent, RoleVerifier, RoleCounselor} {
		if !r.Valid() {
			t.Errorf("%q should be valid", r)
		}
	}
	for _, r := range []Role{"", "admin", "Student"} {
		if r.Valid() {
			t.Errorf("%q should be invalid", r)
		}
	}
}

func TestDefaultProfile(t *testing.T) {
	id := uuid.New()
	p := DefaultProfile(id, "  Student@Example.COM ")
	if p.Role != RoleStudent || !p.IsPublic || p.School != "" {
		t.Errorf("unexpected default profile %+v", p)
	}
	if p.Email != "student@example.com" {
		t.Errorf("Email = %q, want lower-cased", p.Email)
	}
	if p.GetOwnerID() != id {
		t.Errorf("GetOwnerID() mismatch")
	}
}

func TestProfile_DisplayName(t *testing.T) {
	username := "aru"
	tests := []struct {
		name    string
		profile *Profile
		want    string
	}{
		{"nil", nil, ""},
		{"name", &Profile{Name: "Aruzhan", Username: &username}, "Aruzhan"},
		{"username fallback", &Profile{Name: " ", Username: &username}, "aru"},
		{"empty", &Profile{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.profile.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidType(t *testing.T) {
	tests := []struct {
		category Category
		typ      string
		want     bool
	}{
		{CategoryAward, "olympiad", true},
		{CategoryAward, "competition", true},
		{CategoryAward, "project", false},
		{CategoryActivity, "project", true},
		{CategoryActivity, "volunteering", true},
		{CategoryActivity, "olympiad", false},
		{CategoryActivity, "other", true},
		{"sport", "other", false},
	}
	for _, tt := range tests {
		if got := ValidType(tt.category, tt.typ); got != tt.want {
			t.Errorf("ValidType(%q, %q) = %v, want %v", tt.category, tt.typ, got, tt.want)
		}
	}
	if ValidCategory("sport") || !ValidCategory(CategoryAward) {
		t.Errorf("ValidCategory mismatch")
	}
}

func TestTypesFor_ReturnsCopy(t *testing.T) {
	types := TypesFor(CategoryAward)
	types[0] = "hacked"
	if !ValidType(CategoryAward, "olympiad") {
		t.Errorf("TypesFor must not expose the internal slice")
	}
}

func TestRequestStatus(t *testing.T) {
	tests := []struct {
		status      RequestStatus
		terminal    bool
		achievement VerificationStatus
	}{
		{RequestPending, false, VerificationPending},
		{RequestApproved, true, VerificationVerified},
		{RequestRejected, true, VerificationRejected},
		{RequestExpired, true, VerificationUnverified},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.terminal)
		}
		if got := tt.status.AchievementStatus(); got != tt.achievement {
			t.Errorf("%s.AchievementStatus() = %s, want %s", tt.status, got, tt.achievement)
		}
		if !tt.status.Valid() {
			t.Errorf("%s should be valid", tt.status)
		}
	}
	if RequestStatus("done").Valid() {
		t.Errorf("unknown status should be invalid")
	}
}

func TestVerificationRequest_BoundTo(t *testing.T) {
	r := &VerificationRequest{VerifierEmail: "teacher@example.com"}
	if !r.BoundTo(" Teacher@Example.com") {
		t.Errorf("case-insensitive match expected")
	}
	if r.BoundTo("wrong@example.com") {
		t.Errorf("different email must not match")
	}
}

func TestBeforeCreate_AssignsIDs(t *testing.T) {
	a := &Achievement{}
	if err := a.BeforeCreate(nil); err != nil {
		t.Fatal(err)
	}
	if a.ID == uuid.Nil || a.VerificationStatus != VerificationUnverified {
		t.Errorf("unexpected achievement defaults %+v", a)
	}

	r := &VerificationRequest{VerifierEmail: " Teacher@Example.com "}
	if err := r.BeforeCreate(nil); err != nil {
		t.Fatal(err)
	}
	if r.ID == uuid.Nil || r.Status != RequestPending || r.VerifierEmail != "teacher@example.com" {
		t.Errorf("unexpected request defaults %+v", r)
	}
}
