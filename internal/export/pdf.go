// Package export renders the executive summary as a paginated PDF.
package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin     = 48
	bodyFontSize   = 10
	bodyLineHeight = 14
)

// Render classifies each summary line (brand header, divider, uppercase
// section title, bullet, body) and draws it in the matching style, with a
// generated-at footer. Pagination and wrapping are left to the PDF engine.
func Render(summaryText string, generatedAt time.Time) ([]byte, error) {
	if strings.TrimSpace(summaryText) == "" {
		return nil, fmt.Errorf("empty summary text")
	}

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, raw := range strings.Split(summaryText, "\n") {
		line := strings.TrimRight(raw, " \t")
		switch {
		case strings.HasPrefix(line, "⭐"):
			pdf.SetFont("Helvetica", "B", 16)
			pdf.SetTextColor(15, 115, 71)
			pdf.MultiCell(0, 22, tr(strings.TrimSpace(strings.TrimPrefix(line, "⭐"))), "", "L", false)
			pdf.SetTextColor(31, 31, 31)
		case strings.HasPrefix(line, "---"):
			y := pdf.GetY() + 4
			pdf.SetDrawColor(178, 178, 178)
			pdf.SetLineWidth(0.5)
			left, _, right, _ := pdf.GetMargins()
			pageWidth, _ := pdf.GetPageSize()
			pdf.Line(left, y, pageWidth-right, y)
			pdf.SetY(y + 6)
		case isSectionTitle(line):
			pdf.Ln(6)
			pdf.SetFont("Helvetica", "B", 11)
			pdf.MultiCell(0, 16, tr(line), "", "L", false)
		case strings.TrimSpace(line) == "":
			pdf.Ln(6)
		default:
			pdf.SetFont("Helvetica", "", bodyFontSize)
			pdf.MultiCell(0, bodyLineHeight, tr(line), "", "L", false)
		}
	}

	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(128, 128, 128)
	pdf.MultiCell(0, 11, tr("Generated: "+generatedAt.Format("Jan 2, 2006 3:04 PM MST")), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// isSectionTitle matches all-uppercase section heading lines while excluding
// bullets and the brand header.
func isSectionTitle(line string) bool {
	return line == strings.ToUpper(line) &&
		len(line) > 3 &&
		!strings.HasPrefix(line, "-") &&
		!strings.HasPrefix(line, "⭐")
}
