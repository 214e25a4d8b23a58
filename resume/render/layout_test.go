package render

import (
	"reflect"
	"strings"
	"testing"

	"resume-builder/resume/model"
)

func TestBuildDocumentSectionOrder(t *testing.T) {
	doc := BuildDocument(sampleResume())
	want := []string{
		"PROFESSIONAL SUMMARY",
		"WORK EXPERIENCE",
		"EDUCATION",
		"SKILLS",
		"PROJECTS",
		"CERTIFICATIONS",
		"LANGUAGES",
	}
	if got := doc.Headings(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected headings:\n got %v\nwant %v", got, want)
	}
}

func TestBuildDocumentSuppressesEmptySections(t *testing.T) {
	r := model.Resume{Title: "T", PersonalInfo: model.PersonalInfo{FullName: model.StringPtr("Jane Doe")}}
	r.Normalize()
	doc := BuildDocument(r)
	if len(doc.Headings()) != 0 {
		t.Fatalf("expected no headings, got %v", doc.Headings())
	}
	if len(doc.Blocks) != 1 || doc.Blocks[0].Kind != BlockName {
		t.Fatalf("expected only the name block, got %+v", doc.Blocks)
	}
}

func TestBuildDocumentEmptyResume(t *testing.T) {
	doc := BuildDocument(model.Resume{})
	if len(doc.Blocks) != 0 {
		t.Fatalf("expected no blocks, got %+v", doc.Blocks)
	}
}

func TestBuildDocumentLines(t *testing.T) {
	doc := BuildDocument(sampleResume())
	var lines []string
	for _, b := range doc.Blocks {
		if b.Kind != BlockGap {
			lines = append(lines, b.Text())
		}
	}
	text := strings.Join(lines, "\n")

	for _, want := range []string{
		"jane@example.com | +1 555 0100",
		"LinkedIn: linkedin.com/in/jane | GitHub: github.com/jane",
		"Senior Engineer at Acme",
		"Berlin | Jan 2020 - Present",
		"• Shipped v2\n• Cut latency",
		"BSc in Computer Science",
		"Oct 2014 - Jul 2018 | Grade: 1.3",
		"Go (Expert) • SQL (Advanced)",
		"Technologies: Go, Postgres",
		"Demo: https://demo.example.com",
		"CKA - CNCF",
		"Mar 2022 | Expires Mar 2025",
		"English (Native)",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in layout:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Jun 2023") {
		t.Fatalf("current entry must not show stored end date")
	}
}

func TestExperienceSubtitleWithoutDatesOrLocation(t *testing.T) {
	cases := []struct {
		name string
		exp  model.Experience
		want string
	}{
		{"location only", model.Experience{Location: model.StringPtr("Remote")}, "Remote"},
		{"dates only", model.Experience{StartDate: model.MustDate("2021-02")}, "Feb 2021"},
		{"nothing", model.Experience{}, ""},
	}
	for _, tc := range cases {
		if got := experienceSubtitle(tc.exp); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestDateRange(t *testing.T) {
	start := model.MustDate("2022-01")
	end := model.MustDate("2023-05")
	cases := []struct {
		name       string
		start, end *model.Date
		current    bool
		want       string
	}{
		{"both", start, end, false, "Jan 2022 - May 2023"},
		{"current wins over end", start, end, true, "Jan 2022 - Present"},
		{"start only", start, nil, false, "Jan 2022"},
		{"end only", nil, end, false, ""},
		{"current without start", nil, nil, true, ""},
		{"none", nil, nil, false, ""},
	}
	for _, tc := range cases {
		if got := DateRange(tc.start, tc.end, tc.current); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestFilename(t *testing.T) {
	cases := map[string]string{
		"Backend Resume": "Backend_Resume_resume.pdf",
		"My CV (2024)!":  "My_CV__2024___resume.pdf",
		"Résumé":         "R_sum__resume.pdf",
	}
	for title, want := range cases {
		if got := Filename(title, "pdf"); got != want {
			t.Fatalf("%q: expected %q, got %q", title, want, got)
		}
	}
}
