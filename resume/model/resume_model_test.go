package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"resume-builder/internal/shared/validation"
)

func TestNormalizeAppliesDefaults(t *testing.T) {
	r := Resume{
		Title:     "  T  ",
		Skills:    []Skill{{Name: "Go"}},
		Languages: []Language{{Name: "English"}},
		PersonalInfo: PersonalInfo{
			FullName: StringPtr("Jane Doe"),
			Phone:    StringPtr("   "),
		},
	}
	r.Normalize()

	if r.Title != "T" {
		t.Fatalf("expected trimmed title, got %q", r.Title)
	}
	if r.Template != TemplateModern {
		t.Fatalf("expected default template, got %q", r.Template)
	}
	if r.Skills[0].Level != LevelIntermediate {
		t.Fatalf("expected default skill level, got %q", r.Skills[0].Level)
	}
	if r.Languages[0].Proficiency != ProficiencyConversational {
		t.Fatalf("expected default proficiency, got %q", r.Languages[0].Proficiency)
	}
	if r.PersonalInfo.Phone != nil {
		t.Fatalf("expected blank phone to be dropped")
	}
	if r.Education == nil || r.Experience == nil || r.Projects == nil || r.Certifications == nil {
		t.Fatalf("expected empty collections instead of nil")
	}
}

func TestValidateReportsFieldPaths(t *testing.T) {
	r := Resume{
		Title:      strings.Repeat("x", 101),
		Experience: []Experience{{Company: "Acme"}},
		Skills:     []Skill{{Name: "Go", Level: "Guru"}},
	}
	err := r.Validate()
	var verr *validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields := map[string]bool{}
	for _, f := range verr.Fields {
		fields[f.Field] = true
	}
	for _, want := range []string{"title", "experience[0].position", "skills[0].level"} {
		if !fields[want] {
			t.Fatalf("expected %s in %v", want, verr.Fields)
		}
	}
}

func TestValidateAcceptsMinimalResume(t *testing.T) {
	r := Resume{Title: "T"}
	r.Normalize()
	if err := r.Validate(); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestDateAcceptsSeveralLayouts(t *testing.T) {
	cases := map[string]string{
		`"2022-01"`:              "2022-01-01",
		`"2022-03-15"`:           "2022-03-15",
		`"2021-07-01T00:00:00Z"`: "2021-07-01",
	}
	for input, want := range cases {
		var d Date
		if err := json.Unmarshal([]byte(input), &d); err != nil {
			t.Fatalf("%s: unexpected error %v", input, err)
		}
		if got := d.Format("2006-01-02"); got != want {
			t.Fatalf("%s: expected %s, got %s", input, want, got)
		}
	}

	var d Date
	if err := json.Unmarshal([]byte(`"last spring"`), &d); err == nil {
		t.Fatalf("expected error for free-form date")
	}
}

func TestPatchReplacesOnlyPresentFields(t *testing.T) {
	r := Resume{
		ID:     "r1",
		UserID: "u1",
		Title:  "Old",
		PersonalInfo: PersonalInfo{
			FullName: StringPtr("Jane Doe"),
			Email:    StringPtr("jane@example.com"),
		},
		Skills: []Skill{{Name: "Go", Level: LevelExpert}},
	}
	var patch Patch
	body := `{"title":"New","personalInfo":{"fullName":"Jane D."},"user":"intruder","shareToken":"x"}`
	if err := json.Unmarshal([]byte(body), &patch); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	updated, err := patch.Apply(&r)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if strings.Join(updated, ",") != "personalInfo,title" {
		t.Fatalf("unexpected updated sections %v", updated)
	}
	if r.Title != "New" || Value(r.PersonalInfo.FullName) != "Jane D." {
		t.Fatalf("expected fields replaced, got %+v", r)
	}
	if r.PersonalInfo.Email != nil {
		t.Fatalf("expected personalInfo replaced as a whole")
	}
	if r.UserID != "u1" || r.ShareToken != nil {
		t.Fatalf("expected server-managed fields untouched")
	}
	if len(r.Skills) != 1 {
		t.Fatalf("expected absent sections untouched")
	}
}
