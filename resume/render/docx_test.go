package render

import (
	"strings"
	"testing"

	"resume-builder/resume/model"
)

func renderDocumentXML(t *testing.T, r model.Resume) string {
	t.Helper()
	out, err := NewDOCXRenderer().Render(r)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	xmlText, err := readDocumentXML(out)
	if err != nil {
		t.Fatalf("read document.xml failed: %v", err)
	}
	return xmlText
}

func TestDOCXRendersSections(t *testing.T) {
	xmlText := renderDocumentXML(t, sampleResume())

	assertContains(t, xmlText, ">Jane Doe<")
	assertContains(t, xmlText, ">WORK EXPERIENCE<")
	assertContains(t, xmlText, ">Senior Engineer at Acme<")
	assertContains(t, xmlText, ">Berlin | Jan 2020 - Present<")
	assertContains(t, xmlText, ">• Shipped v2<")
	assertContains(t, xmlText, "Built payment systems &amp; APIs.")
	assertContains(t, xmlText, ">Go (Expert) • SQL (Advanced)<")
	assertNotContains(t, xmlText, "{{BODY}}")
	assertNotContains(t, xmlText, "Jun 2023")
}

func TestDOCXOmitsEmptyExperience(t *testing.T) {
	r := sampleResume()
	r.Experience = []model.Experience{}
	xmlText := renderDocumentXML(t, r)

	assertNotContains(t, xmlText, "WORK EXPERIENCE")
	assertNotContains(t, xmlText, "Work Experience")
}

func TestDOCXHeadingStyled(t *testing.T) {
	xmlText := renderDocumentXML(t, sampleResume())
	idx := strings.Index(xmlText, ">SKILLS<")
	if idx == -1 {
		t.Fatalf("expected skills heading")
	}
	start := idx - 400
	if start < 0 {
		start = 0
	}
	window := xmlText[start:idx]
	style := StyleFor(BlockHeading, PaletteFor(model.TemplateModern))
	if !strings.Contains(window, "<w:b/>") {
		t.Fatalf("expected heading to be bold")
	}
	if !strings.Contains(window, `w:color w:val="`+style.Color+`"`) {
		t.Fatalf("expected heading color %s", style.Color)
	}
}

func TestDOCXProducesValidPackage(t *testing.T) {
	xmlText := renderDocumentXML(t, sampleResume())
	if err := validateDocumentXMLStructure(xmlText); err != nil {
		t.Fatalf("invalid document.xml: %v", err)
	}
	assertContains(t, xmlText, "<w:sectPr>")
}

func TestValidateDocumentXMLStructureRejectsNestedParagraphs(t *testing.T) {
	bad := `<w:document xmlns:w="` + wmlNamespace + `"><w:body><w:p><w:p></w:p></w:p></w:body></w:document>`
	if err := validateDocumentXMLStructure(bad); err == nil {
		t.Fatalf("expected nested paragraph error")
	}
}
