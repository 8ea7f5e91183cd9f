package export

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"

	"github.com/thywilljoshua/haunted-syllabus/internal/structure"
)

const (
	pdfMargin   = 50.0
	bodySize    = 12.0
	headingSize = 14.0
	titleSize   = 18.0
)

type rgb struct{ r, g, b int }

var (
	crimson = rgb{0x8b, 0x00, 0x00}
	ink     = rgb{0x2a, 0x2a, 0x2a}
)

// PDF lays content out on Letter pages. Paragraphs are separated by blank
// lines; short all-caps or colon-terminated paragraphs are set as crimson
// headings, the rest justified.
func PDF(w io.Writer, content, title string) error {
	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	color := func(c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }
	font := func(style string, size float64) { pdf.SetFont("Times", style, size) }

	if title != "" {
		font("B", titleSize)
		color(crimson)
		pdf.MultiCell(0, titleSize*1.3, tr(title), "", "C", false)
		pdf.Ln(titleSize * 2)
	}

	paragraphs := strings.Split(content, "\n\n")
	for i, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if isHeading(p) {
			font("B", headingSize)
			color(crimson)
			pdf.MultiCell(0, headingSize*1.3, tr(strings.TrimLeft(p, "# ")), "", "L", false)
			pdf.Ln(headingSize * 0.5)
			continue
		}
		font("", bodySize)
		color(ink)
		pdf.MultiCell(0, bodySize*1.4, tr(p), "", "J", false)
		if i < len(paragraphs)-1 {
			pdf.Ln(bodySize)
		}
	}
	return pdf.Output(w)
}

func isHeading(p string) bool {
	if utf8.RuneCountInString(p) >= 80 || strings.Contains(p, "\n") {
		return false
	}
	return strings.HasPrefix(p, "#") || structure.IsAllCaps(p) || strings.HasSuffix(p, ":")
}
