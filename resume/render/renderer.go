package render

import (
	"errors"
	"regexp"

	"resume-builder/resume/model"
)

// ErrRender wraps any failure inside a document library.
var ErrRender = errors.New("render failed")

// Renderer turns a resume into export bytes of one format.
type Renderer interface {
	Render(resume model.Resume) ([]byte, error)
	ContentType() string
	Extension() string
}

const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
)

// ForFormat returns the default renderer for "pdf" or "docx".
func ForFormat(format string) (Renderer, bool) {
	switch format {
	case FormatPDF:
		return NewPDFRenderer(), true
	case FormatDOCX:
		return NewDOCXRenderer(), true
	}
	return nil, false
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9]`)

// Filename builds the attachment name "<title>_resume.<ext>" with every
// character outside [A-Za-z0-9] replaced by an underscore.
func Filename(title, ext string) string {
	return unsafeFileChars.ReplaceAllString(title, "_") + "_resume." + ext
}
