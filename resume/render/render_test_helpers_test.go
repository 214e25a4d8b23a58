package render

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"resume-builder/resume/model"
)

func sampleResume() model.Resume {
	r := model.Resume{
		Title:    "Backend Resume",
		Template: model.TemplateModern,
		PersonalInfo: model.PersonalInfo{
			FullName: model.StringPtr("Jane Doe"),
			Email:    model.StringPtr("jane@example.com"),
			Phone:    model.StringPtr("+1 555 0100"),
			LinkedIn: model.StringPtr("linkedin.com/in/jane"),
			GitHub:   model.StringPtr("github.com/jane"),
			Summary:  model.StringPtr("Engineer who ships."),
		},
		Experience: []model.Experience{{
			Company:      "Acme",
			Position:     "Senior Engineer",
			Location:     model.StringPtr("Berlin"),
			StartDate:    model.MustDate("2020-01"),
			EndDate:      model.MustDate("2023-06"),
			Current:      true,
			Description:  model.StringPtr("Built payment systems & APIs."),
			Achievements: []string{"Shipped v2", "Cut latency"},
		}},
		Education: []model.Education{{
			Institution: "TU Berlin",
			Degree:      "BSc",
			Field:       model.StringPtr("Computer Science"),
			StartDate:   model.MustDate("2014-10"),
			EndDate:     model.MustDate("2018-07"),
			Grade:       model.StringPtr("1.3"),
		}},
		Skills: []model.Skill{
			{Name: "Go", Level: model.LevelExpert},
			{Name: "SQL", Level: model.LevelAdvanced},
		},
		Projects: []model.Project{{
			Name:         "resume-builder",
			Technologies: []string{"Go", "Postgres"},
			Link:         model.StringPtr("https://demo.example.com"),
		}},
		Certifications: []model.Certification{{
			Name:       "CKA",
			Issuer:     model.StringPtr("CNCF"),
			Date:       model.MustDate("2022-03"),
			ExpiryDate: model.MustDate("2025-03"),
		}},
		Languages: []model.Language{{Name: "English", Proficiency: model.ProficiencyNative}},
	}
	r.Normalize()
	return r
}

func readDocumentXML(docxBytes []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(docxBytes), int64(len(docxBytes)))
	if err != nil {
		return "", err
	}
	for _, file := range reader.File {
		if file.Name == "word/document.xml" {
			rc, err := file.Open()
			if err != nil {
				return "", err
			}
			defer rc.Close()

			content, err := io.ReadAll(rc)
			if err != nil {
				return "", err
			}
			return string(content), nil
		}
	}
	return "", io.EOF
}

func assertContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !bytes.Contains([]byte(haystack), []byte(needle)) {
		t.Fatalf("expected to contain %q", needle)
	}
}

func assertNotContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if bytes.Contains([]byte(haystack), []byte(needle)) {
		t.Fatalf("expected to not contain %q", needle)
	}
}
