package model

import (
	"encoding/json"
	"fmt"
	"sort"

	"resume-builder/internal/shared/validation"
)

// Patch is a partial update keyed by top-level JSON field name.
type Patch map[string]json.RawMessage

// editable maps each client-writable top-level key to a setter. Identity,
// ownership, sharing and upload fields are managed by the server and ignored.
var editable = map[string]func(*Resume, json.RawMessage) error{
	"title":          func(r *Resume, raw json.RawMessage) error { r.Title = ""; return json.Unmarshal(raw, &r.Title) },
	"personalInfo":   func(r *Resume, raw json.RawMessage) error { r.PersonalInfo = PersonalInfo{}; return json.Unmarshal(raw, &r.PersonalInfo) },
	"education":      func(r *Resume, raw json.RawMessage) error { r.Education = nil; return json.Unmarshal(raw, &r.Education) },
	"experience":     func(r *Resume, raw json.RawMessage) error { r.Experience = nil; return json.Unmarshal(raw, &r.Experience) },
	"skills":         func(r *Resume, raw json.RawMessage) error { r.Skills = nil; return json.Unmarshal(raw, &r.Skills) },
	"projects":       func(r *Resume, raw json.RawMessage) error { r.Projects = nil; return json.Unmarshal(raw, &r.Projects) },
	"certifications": func(r *Resume, raw json.RawMessage) error { r.Certifications = nil; return json.Unmarshal(raw, &r.Certifications) },
	"languages":      func(r *Resume, raw json.RawMessage) error { r.Languages = nil; return json.Unmarshal(raw, &r.Languages) },
	"template":       func(r *Resume, raw json.RawMessage) error { r.Template = ""; return json.Unmarshal(raw, &r.Template) },
	"isPublic":       func(r *Resume, raw json.RawMessage) error { r.IsPublic = false; return json.Unmarshal(raw, &r.IsPublic) },
}

// Apply replaces every editable top-level field present in p and returns the
// sorted names of the fields it touched.
func (p Patch) Apply(r *Resume) ([]string, error) {
	updated := make([]string, 0, len(p))
	for key, raw := range p {
		set, ok := editable[key]
		if !ok {
			continue
		}
		if err := set(r, raw); err != nil {
			return nil, validation.New(key, fmt.Sprintf("is malformed: %v", err))
		}
		updated = append(updated, key)
	}
	sort.Strings(updated)
	return updated, nil
}
