package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"resume-builder/resume/model"
	"resume-builder/resume/render"
)

func main() {
	outDir := flag.String("out", "./out", "output directory for generated files")
	inPath := flag.String("in", "", "resume JSON to render (defaults to a built-in sample)")
	tmpl := flag.String("template", string(model.TemplateModern), "template preset")
	flag.Parse()

	written, err := run(*outDir, *inPath, *tmpl)
	if err != nil {
		exitErr(err.Error())
	}
	for _, path := range written {
		fmt.Printf("OK: wrote %s\n", path)
	}
}

// run renders the resume at inPath (or the sample) as PDF and DOCX into outDir
// and returns the written paths.
func run(outDir, inPath, tmpl string) ([]string, error) {
	resume, err := loadResume(inPath)
	if err != nil {
		return nil, fmt.Errorf("load resume: %w", err)
	}
	resume.Template = model.Template(tmpl)
	resume.Normalize()
	if err := resume.Validate(); err != nil {
		return nil, fmt.Errorf("invalid resume: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	var written []string
	for _, format := range []string{render.FormatPDF, render.FormatDOCX} {
		r, _ := render.ForFormat(format)
		body, err := r.Render(resume)
		if err != nil {
			return written, fmt.Errorf("render %s: %w", format, err)
		}
		if format == render.FormatDOCX {
			if err := validateDocx(body); err != nil {
				return written, fmt.Errorf("render validation failed: %w", err)
			}
		}
		path := filepath.Join(outDir, render.Filename(resume.Title, r.Extension()))
		if err := os.WriteFile(path, body, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}

	payload, _ := json.MarshalIndent(resume, "", "  ")
	path := filepath.Join(outDir, "sample_resume.json")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return written, err
	}
	return append(written, path), nil
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

func loadResume(path string) (model.Resume, error) {
	if strings.TrimSpace(path) == "" {
		return sampleResume(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.Resume{}, err
	}
	var r model.Resume
	if err := json.Unmarshal(raw, &r); err != nil {
		return model.Resume{}, err
	}
	return r, nil
}

// validateDocx fails when placeholder markers survived rendering.
func validateDocx(body []byte) error {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return err
	}
	defer doc.Close()
	content := doc.Editable().GetContent()
	for _, marker := range []string{"{{", "}}"} {
		if idx := strings.Index(content, marker); idx != -1 {
			return fmt.Errorf("unresolved template tokens near: %s", snippetAround(content, idx, 200))
		}
	}
	return nil
}

func snippetAround(text string, pos, maxLen int) string {
	start := max(pos-maxLen/2, 0)
	end := min(start+maxLen, len(text))
	return text[start:end]
}

func sampleResume() model.Resume {
	return model.Resume{
		Title: "Jordan Lee",
		PersonalInfo: model.PersonalInfo{
			FullName: model.StringPtr("Jordan Lee"),
			Email:    model.StringPtr("jordan.lee@example.com"),
			Phone:    model.StringPtr("+1-555-0102"),
			Address:  model.StringPtr("Austin, TX"),
			LinkedIn: model.StringPtr("https://www.linkedin.com/in/jordanlee"),
			GitHub:   model.StringPtr("https://github.com/jordanlee"),
			Summary:  model.StringPtr("Backend engineer with 8+ years of experience building resilient APIs and data services."),
		},
		Experience: []model.Experience{
			{
				Company:   "Acme Logistics",
				Position:  "Senior Backend Engineer",
				Location:  model.StringPtr("Austin, TX"),
				StartDate: model.MustDate("2021-04-01"),
				Current:   true,
				Achievements: []string{
					"Designed a routing service that reduced shipment latency by 18%.",
					"Implemented distributed tracing to cut incident triage time by 35%.",
				},
			},
			{
				Company:      "Blue Harbor Systems",
				Position:     "Backend Engineer",
				Location:     model.StringPtr("Seattle, WA"),
				StartDate:    model.MustDate("2018-01-01"),
				EndDate:      model.MustDate("2021-03-01"),
				Achievements: []string{"Built event-driven ingestion pipelines for compliance data feeds."},
			},
		},
		Education: []model.Education{
			{Institution: "University of Texas", Degree: "B.S.", Field: model.StringPtr("Computer Science"), StartDate: model.MustDate("2010-09-01"), EndDate: model.MustDate("2014-05-01")},
		},
		Skills: []model.Skill{
			{Name: "Go", Level: model.LevelExpert},
			{Name: "PostgreSQL", Level: model.LevelAdvanced},
			{Name: "Kubernetes", Level: model.LevelIntermediate},
		},
		Projects: []model.Project{
			{Name: "tracekit", Description: model.StringPtr("Open source tracing helpers."), Technologies: []string{"Go", "OpenTelemetry"}},
		},
		Certifications: []model.Certification{
			{Name: "AWS Solutions Architect", Issuer: model.StringPtr("Amazon"), Date: model.MustDate("2022-06-01")},
		},
		Languages: []model.Language{
			{Name: "English", Proficiency: model.ProficiencyNative},
			{Name: "Spanish", Proficiency: model.ProficiencyConversational},
		},
	}
}
