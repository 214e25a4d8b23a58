package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"resume-builder/resume/model"
)

// DOCXRenderer writes the shared layout as WordprocessingML paragraphs.
type DOCXRenderer struct{}

func NewDOCXRenderer() *DOCXRenderer {
	return &DOCXRenderer{}
}

func (r *DOCXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

func (r *DOCXRenderer) Extension() string { return FormatDOCX }

func (r *DOCXRenderer) Render(resume model.Resume) ([]byte, error) {
	doc := BuildDocument(resume)
	body := documentBody(doc)

	base, err := skeleton()
	if err != nil {
		return nil, fmt.Errorf("%w: docx skeleton: %v", ErrRender, err)
	}
	pkg, err := docx.ReadDocxFromMemory(bytes.NewReader(base), int64(len(base)))
	if err != nil {
		return nil, fmt.Errorf("%w: docx open: %v", ErrRender, err)
	}
	defer pkg.Close()

	editable := pkg.Editable()
	content := editable.GetContent()
	if !strings.Contains(content, bodyMarker) {
		return nil, fmt.Errorf("%w: docx skeleton has no body marker", ErrRender)
	}
	editable.ReplaceRaw(bodyMarker, body, 1)
	if err := validateDocumentXMLStructure(editable.GetContent()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	var out bytes.Buffer
	if err := editable.Write(&out); err != nil {
		return nil, fmt.Errorf("%w: docx write: %v", ErrRender, err)
	}
	return out.Bytes(), nil
}

func documentBody(doc Document) string {
	palette := PaletteFor(doc.Template)
	var sb strings.Builder
	inHeader := true
	for _, block := range doc.Blocks {
		if block.Kind == BlockHeading {
			inHeader = false
		}
		writeParagraph(&sb, block, palette, inHeader)
	}
	return sb.String()
}

func writeParagraph(sb *strings.Builder, block Block, palette Palette, inHeader bool) {
	style := StyleFor(block.Kind, palette)

	sb.WriteString("<w:p><w:pPr>")
	if block.Kind == BlockHeading {
		sb.WriteString(`<w:pBdr><w:bottom w:val="single" w:sz="6" w:space="1" w:color="` + style.Color + `"/></w:pBdr>`)
		sb.WriteString(`<w:spacing w:before="240" w:after="120"/>`)
	}
	if block.Kind == BlockGap {
		sb.WriteString(`<w:spacing w:after="120"/>`)
	}
	if block.Kind == BlockBullet {
		sb.WriteString(`<w:ind w:left="360"/>`)
	}
	switch block.Kind {
	case BlockName, BlockContact:
		sb.WriteString(`<w:jc w:val="center"/>`)
	case BlockLinks:
		if inHeader {
			sb.WriteString(`<w:jc w:val="center"/>`)
		}
	}
	sb.WriteString("</w:pPr>")

	for _, seg := range block.Segments {
		runStyle := style
		if block.Kind == BlockTitle {
			runStyle.Bold = seg.Bold
		}
		writeRun(sb, seg.Text, runStyle)
	}
	sb.WriteString("</w:p>")
}

func writeRun(sb *strings.Builder, text string, style RunStyle) {
	if text == "" {
		return
	}
	sb.WriteString("<w:r><w:rPr>")
	if style.Bold {
		sb.WriteString("<w:b/>")
	}
	if style.Italic {
		sb.WriteString("<w:i/>")
	}
	if style.Color != "" {
		sb.WriteString(`<w:color w:val="` + style.Color + `"/>`)
	}
	if style.Size > 0 {
		halfPoints := strconv.Itoa(style.Size * 2)
		sb.WriteString(`<w:sz w:val="` + halfPoints + `"/><w:szCs w:val="` + halfPoints + `"/>`)
	}
	sb.WriteString(`</w:rPr><w:t xml:space="preserve">`)
	sb.WriteString(escapeText(text))
	sb.WriteString("</w:t></w:r>")
}

func escapeText(text string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(text))
	return buf.String()
}

// validateDocumentXMLStructure rejects nested paragraphs and run properties
// that follow run text, both of which Word refuses to open.
func validateDocumentXMLStructure(xmlText string) error {
	decoder := xml.NewDecoder(strings.NewReader(xmlText))
	var stack []xml.Name
	type runState struct {
		seenText bool
	}
	var runs []runState

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("document.xml parse failed: %w", err)
		}
		switch t := token.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name)
			if isWmlElement(t.Name, "p") {
				for i := len(stack) - 2; i >= 0; i-- {
					if isWmlElement(stack[i], "p") {
						return fmt.Errorf("document.xml has nested <w:p>")
					}
				}
			}
			if isWmlElement(t.Name, "r") {
				runs = append(runs, runState{})
			}
			if isWmlElement(t.Name, "t") && len(runs) > 0 {
				runs[len(runs)-1].seenText = true
			}
			if isWmlElement(t.Name, "rPr") && len(runs) > 0 && runs[len(runs)-1].seenText {
				return fmt.Errorf("document.xml has <w:rPr> after <w:t> in a run")
			}
		case xml.EndElement:
			if isWmlElement(t.Name, "r") && len(runs) > 0 {
				runs = runs[:len(runs)-1]
			}
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return nil
}

func isWmlElement(name xml.Name, local string) bool {
	return name.Local == local && name.Space == wmlNamespace
}
