package render

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"resume-builder/resume/model"
)

const (
	pdfMargin     = 50.0
	pdfFont       = "Helvetica"
	pdfLineFactor = 1.35
	bulletIndent  = 12.0
)

// pdfEpoch pins document metadata so identical input yields identical output.
var pdfEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// PDFRenderer draws the shared layout onto A4 pages.
type PDFRenderer struct {
	Compress bool
}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{Compress: true}
}

func (r *PDFRenderer) ContentType() string { return "application/pdf" }

func (r *PDFRenderer) Extension() string { return FormatPDF }

func (r *PDFRenderer) Render(resume model.Resume) ([]byte, error) {
	doc := BuildDocument(resume)
	palette := PaletteFor(doc.Template)

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetCompression(r.Compress)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(pdfEpoch)
	pdf.SetModificationDate(pdfEpoch)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(doc.Title, true)
	pdf.SetAuthor(doc.Author, true)
	pdf.SetCreator("resume-builder", false)
	pdf.AddPage()

	// cp1252 covers the bullet and separator glyphs used by the layout.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	width := pageWidth - left - right
	inHeader := true

	for _, block := range doc.Blocks {
		if block.Kind == BlockGap {
			pdf.Ln(6)
			continue
		}
		style := StyleFor(block.Kind, palette)
		lineHeight := float64(style.Size) * pdfLineFactor
		setPDFStyle(pdf, style)

		switch block.Kind {
		case BlockName:
			pdf.CellFormat(width, lineHeight, tr(block.Text()), "", 1, "C", false, 0, "")
		case BlockContact:
			pdf.CellFormat(width, lineHeight, tr(block.Text()), "", 1, "C", false, 0, "")
		case BlockLinks:
			align := "L"
			if inHeader {
				align = "C"
			}
			pdf.MultiCell(width, lineHeight, tr(block.Text()), "", align, false)
		case BlockHeading:
			inHeader = false
			pdf.Ln(8)
			pdf.CellFormat(width, lineHeight, tr(block.Text()), "", 1, "L", false, 0, "")
			y := pdf.GetY()
			pdf.SetDrawColor(hexRGB(style.Color))
			pdf.SetLineWidth(0.8)
			pdf.Line(left, y, left+width, y)
			pdf.Ln(4)
		case BlockTitle:
			for _, seg := range block.Segments {
				segStyle := style
				segStyle.Bold = seg.Bold
				setPDFStyle(pdf, segStyle)
				pdf.Write(lineHeight, tr(seg.Text))
			}
			pdf.Ln(lineHeight)
		case BlockBullet:
			pdf.SetX(left + bulletIndent)
			pdf.MultiCell(width-bulletIndent, lineHeight, tr(block.Text()), "", "L", false)
		default:
			pdf.MultiCell(width, lineHeight, tr(block.Text()), "", "L", false)
		}
	}

	if pdf.Err() {
		return nil, fmt.Errorf("%w: pdf: %v", ErrRender, pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: pdf output: %v", ErrRender, err)
	}
	return buf.Bytes(), nil
}

func setPDFStyle(pdf *fpdf.Fpdf, style RunStyle) {
	fontStyle := ""
	if style.Bold {
		fontStyle += "B"
	}
	if style.Italic {
		fontStyle += "I"
	}
	pdf.SetFont(pdfFont, fontStyle, float64(style.Size))
	pdf.SetTextColor(hexRGB(style.Color))
}
