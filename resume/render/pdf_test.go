package render

import (
	"bytes"
	"testing"

	"resume-builder/resume/model"
)

func renderPlainPDF(t *testing.T, r model.Resume) string {
	t.Helper()
	out, err := (&PDFRenderer{Compress: false}).Render(r)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("expected PDF header, got %q", out[:8])
	}
	return string(out)
}

func TestPDFRendersSections(t *testing.T) {
	text := renderPlainPDF(t, sampleResume())

	assertContains(t, text, "Jane Doe")
	assertContains(t, text, "WORK EXPERIENCE")
	assertContains(t, text, "Senior Engineer at Acme")
	assertContains(t, text, "Berlin | Jan 2020 - Present")
	assertContains(t, text, "CERTIFICATIONS")
	assertNotContains(t, text, "Jun 2023")
}

func TestPDFOmitsEmptyExperience(t *testing.T) {
	r := sampleResume()
	r.Experience = nil
	text := renderPlainPDF(t, r)

	assertNotContains(t, text, "WORK EXPERIENCE")
	assertNotContains(t, text, "Work Experience")
	assertContains(t, text, "EDUCATION")
}

func TestPDFRendersUntitledEmptyResume(t *testing.T) {
	out, err := NewPDFRenderer().Render(model.Resume{})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("expected a document")
	}
}

func TestPDFRendererMetadata(t *testing.T) {
	r, ok := ForFormat(FormatPDF)
	if !ok {
		t.Fatalf("expected pdf renderer")
	}
	if r.ContentType() != "application/pdf" || r.Extension() != "pdf" {
		t.Fatalf("unexpected metadata %s %s", r.ContentType(), r.Extension())
	}
	if _, ok := ForFormat("odt"); ok {
		t.Fatalf("expected unknown format to be rejected")
	}
}
