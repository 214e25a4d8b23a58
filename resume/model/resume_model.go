package model

import (
	"strings"
	"time"

	"resume-builder/internal/shared/validation"
)

// Template selects a visual preset for exports. It never changes the data.
type Template string

const (
	TemplateModern       Template = "modern"
	TemplateClassic      Template = "classic"
	TemplateMinimal      Template = "minimal"
	TemplateProfessional Template = "professional"
	TemplateCreative     Template = "creative"
)

// Valid reports whether t is a known template.
func (t Template) Valid() bool {
	switch t {
	case TemplateModern, TemplateClassic, TemplateMinimal, TemplateProfessional, TemplateCreative:
		return true
	}
	return false
}

type SkillLevel string

const (
	LevelBeginner     SkillLevel = "Beginner"
	LevelIntermediate SkillLevel = "Intermediate"
	LevelAdvanced     SkillLevel = "Advanced"
	LevelExpert       SkillLevel = "Expert"
)

type Proficiency string

const (
	ProficiencyBasic          Proficiency = "Basic"
	ProficiencyConversational Proficiency = "Conversational"
	ProficiencyFluent         Proficiency = "Fluent"
	ProficiencyNative         Proficiency = "Native"
)

// Resume is the canonical resume document. JSON names are part of the public contract.
type Resume struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user"`
	Title          string          `json:"title" validate:"required,max=100"`
	PersonalInfo   PersonalInfo    `json:"personalInfo"`
	Education      []Education     `json:"education" validate:"dive"`
	Experience     []Experience    `json:"experience" validate:"dive"`
	Skills         []Skill         `json:"skills" validate:"dive"`
	Projects       []Project       `json:"projects" validate:"dive"`
	Certifications []Certification `json:"certifications" validate:"dive"`
	Languages      []Language      `json:"languages" validate:"dive"`
	Template       Template        `json:"template" validate:"omitempty,oneof=modern classic minimal professional creative"`
	IsPublic       bool            `json:"isPublic"`
	ShareToken     *string         `json:"shareToken"`
	ShareExpiry    *time.Time      `json:"shareExpiry"`
	OriginalFile   *OriginalFile   `json:"originalFile,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// PersonalInfo holds header and contact details. Every field is optional.
type PersonalInfo struct {
	FullName  *string `json:"fullName,omitempty"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
	LinkedIn  *string `json:"linkedIn,omitempty"`
	Portfolio *string `json:"portfolio,omitempty"`
	GitHub    *string `json:"github,omitempty"`
	Summary   *string `json:"summary,omitempty"`
}

type Education struct {
	Institution string  `json:"institution" validate:"required"`
	Degree      string  `json:"degree" validate:"required"`
	Field       *string `json:"field,omitempty"`
	StartDate   *Date   `json:"startDate,omitempty"`
	EndDate     *Date   `json:"endDate,omitempty"`
	Grade       *string `json:"grade,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Experience is a work history entry. When Current is set, EndDate is ignored for display.
type Experience struct {
	Company      string   `json:"company" validate:"required"`
	Position     string   `json:"position" validate:"required"`
	Location     *string  `json:"location,omitempty"`
	StartDate    *Date    `json:"startDate,omitempty"`
	EndDate      *Date    `json:"endDate,omitempty"`
	Current      bool     `json:"current"`
	Description  *string  `json:"description,omitempty"`
	Achievements []string `json:"achievements"`
}

type Skill struct {
	Name  string     `json:"name" validate:"required"`
	Level SkillLevel `json:"level" validate:"omitempty,oneof=Beginner Intermediate Advanced Expert"`
}

type Project struct {
	Name         string   `json:"name" validate:"required"`
	Description  *string  `json:"description,omitempty"`
	Technologies []string `json:"technologies"`
	Link         *string  `json:"link,omitempty"`
	GitHub       *string  `json:"github,omitempty"`
}

type Certification struct {
	Name         string  `json:"name" validate:"required"`
	Issuer       *string `json:"issuer,omitempty"`
	Date         *Date   `json:"date,omitempty"`
	ExpiryDate   *Date   `json:"expiryDate,omitempty"`
	Link         *string `json:"link,omitempty"`
	CredentialID *string `json:"credentialId,omitempty"`
}

type Language struct {
	Name        string      `json:"name" validate:"required"`
	Proficiency Proficiency `json:"proficiency" validate:"omitempty,oneof=Basic Conversational Fluent Native"`
}

// OriginalFile references an uploaded source document in object storage.
type OriginalFile struct {
	URL       string `json:"url"`
	StorageID string `json:"storageId"`
	Filename  string `json:"filename"`
}

// Summary is the list view of a resume.
type Summary struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	FullName        *string   `json:"fullName,omitempty"`
	Template        Template  `json:"template"`
	IsPublic        bool      `json:"isPublic"`
	Shared          bool      `json:"shared"`
	HasOriginalFile bool      `json:"hasOriginalFile"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Summarize builds the list view. Shared reflects token presence, not validity.
func Summarize(r Resume) Summary {
	return Summary{
		ID:              r.ID,
		Title:           r.Title,
		FullName:        r.PersonalInfo.FullName,
		Template:        r.Template,
		IsPublic:        r.IsPublic,
		Shared:          r.ShareToken != nil,
		HasOriginalFile: r.OriginalFile != nil,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// Validate checks required fields, lengths and enums.
func (r Resume) Validate() error {
	return validation.Struct(r)
}

// Normalize trims text, drops blank optional values, applies enum defaults
// and replaces nil collections with empty ones.
func (r *Resume) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	if r.Template == "" {
		r.Template = TemplateModern
	}
	p := &r.PersonalInfo
	for _, f := range []**string{&p.FullName, &p.Email, &p.Phone, &p.Address, &p.LinkedIn, &p.Portfolio, &p.GitHub, &p.Summary} {
		*f = clean(*f)
	}
	if r.Education == nil {
		r.Education = []Education{}
	}
	for i := range r.Education {
		e := &r.Education[i]
		e.Institution = strings.TrimSpace(e.Institution)
		e.Degree = strings.TrimSpace(e.Degree)
		e.Field, e.Grade, e.Description = clean(e.Field), clean(e.Grade), clean(e.Description)
		e.StartDate, e.EndDate = cleanDate(e.StartDate), cleanDate(e.EndDate)
	}
	if r.Experience == nil {
		r.Experience = []Experience{}
	}
	for i := range r.Experience {
		e := &r.Experience[i]
		e.Company = strings.TrimSpace(e.Company)
		e.Position = strings.TrimSpace(e.Position)
		e.Location, e.Description = clean(e.Location), clean(e.Description)
		e.StartDate, e.EndDate = cleanDate(e.StartDate), cleanDate(e.EndDate)
		e.Achievements = cleanList(e.Achievements)
	}
	if r.Skills == nil {
		r.Skills = []Skill{}
	}
	for i := range r.Skills {
		r.Skills[i].Name = strings.TrimSpace(r.Skills[i].Name)
		if r.Skills[i].Level == "" {
			r.Skills[i].Level = LevelIntermediate
		}
	}
	if r.Projects == nil {
		r.Projects = []Project{}
	}
	for i := range r.Projects {
		pr := &r.Projects[i]
		pr.Name = strings.TrimSpace(pr.Name)
		pr.Description, pr.Link, pr.GitHub = clean(pr.Description), clean(pr.Link), clean(pr.GitHub)
		pr.Technologies = cleanList(pr.Technologies)
	}
	if r.Certifications == nil {
		r.Certifications = []Certification{}
	}
	for i := range r.Certifications {
		c := &r.Certifications[i]
		c.Name = strings.TrimSpace(c.Name)
		c.Issuer, c.Link, c.CredentialID = clean(c.Issuer), clean(c.Link), clean(c.CredentialID)
		c.Date, c.ExpiryDate = cleanDate(c.Date), cleanDate(c.ExpiryDate)
	}
	if r.Languages == nil {
		r.Languages = []Language{}
	}
	for i := range r.Languages {
		r.Languages[i].Name = strings.TrimSpace(r.Languages[i].Name)
		if r.Languages[i].Proficiency == "" {
			r.Languages[i].Proficiency = ProficiencyConversational
		}
	}
}

// Value returns the trimmed string behind an optional field, or "".
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// StringPtr is a convenience for literals and tests.
func StringPtr(s string) *string {
	return &s
}

func clean(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func cleanDate(d *Date) *Date {
	if d == nil || d.IsZero() {
		return nil
	}
	return d
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if v := strings.TrimSpace(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}
