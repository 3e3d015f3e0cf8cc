package render

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-pdf/fpdf"
)

// fallbackStrategy draws the whole certificate. It needs no assets beyond
// the built-in fonts, so it cannot fail for environmental reasons.
type fallbackStrategy struct {
	fontPath string
}

func (s *fallbackStrategy) Render(f Fields) ([]byte, error) {
	pdf := fpdf.New(fpdf.OrientationLandscape, fpdf.UnitPoint, fpdf.PageSizeLetter, "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	pageW, pageH := pdf.GetPageSize()

	// Double border.
	pdf.SetDrawColor(60, 60, 100)
	pdf.SetLineWidth(3)
	pdf.Rect(24, 24, pageW-48, pageH-48, "D")
	pdf.SetLineWidth(1)
	pdf.Rect(32, 32, pageW-64, pageH-64, "D")

	center := func(text string, y float64) {
		w := pdf.GetStringWidth(text)
		pdf.Text((pageW-w)/2, y, text)
	}

	pdf.SetTextColor(60, 60, 100)
	pdf.SetFont("Helvetica", "B", 30)
	center("CERTIFICATE", 110)
	pdf.SetFont("Helvetica", "", 14)
	center("OF COMPLETION", 132)

	pdf.SetTextColor(40, 40, 40)
	pdf.SetFont("Helvetica", "", 13)
	center("This certifies that", 190)

	fontFamily, fontStyle := s.nameFont(pdf)
	pdf.SetFont(fontFamily, fontStyle, namePointSize)
	center(f.RecipientName, 236)

	pdf.SetFont("Helvetica", "", 13)
	center("has successfully completed", 276)
	pdf.SetFont("Helvetica", "B", 18)
	center(f.CourseName, 306)

	if f.Description != "" {
		pdf.SetFont("Helvetica", "", 11)
		pdf.SetXY(120, 326)
		pdf.MultiCell(pageW-240, 15, f.Description, "", "C", false)
	}

	pdf.SetFont("Helvetica", "", 11)
	dates := "Issued on " + f.IssueDate.Format("January 2, 2006")
	if f.ExpirationDate != nil {
		dates += fmt.Sprintf(", valid through %s", f.ExpirationDate.Format("January 2, 2006"))
	}
	center(dates, 408)

	// Signature lines.
	lineY := pageH - 140
	pdf.SetLineWidth(0.8)
	pdf.Line(130, lineY, 330, lineY)
	pdf.Line(pageW-330, lineY, pageW-130, lineY)
	pdf.SetFont("Helvetica", "", 10)
	s.centerAt(pdf, f.IssuerName, 230, lineY+16)
	s.centerAt(pdf, f.Institution, pageW-230, lineY+16)
	pdf.SetTextColor(120, 120, 120)
	s.centerAt(pdf, "Issuer", 230, lineY+30)
	s.centerAt(pdf, "Institution", pageW-230, lineY+30)

	pdf.SetTextColor(120, 120, 120)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Text(48, pageH-48, f.Number)

	if pdf.Err() {
		return nil, fmt.Errorf("drawing layout: %w", pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing document: %w", err)
	}
	return buf.Bytes(), nil
}

// centerAt draws text horizontally centered on x at baseline y.
func (s *fallbackStrategy) centerAt(pdf *fpdf.Fpdf, text string, x, y float64) {
	if text == "" {
		return
	}
	pdf.Text(x-pdf.GetStringWidth(text)/2, y, text)
}

func (s *fallbackStrategy) nameFont(pdf *fpdf.Fpdf) (family, style string) {
	if s.fontPath != "" {
		if _, statErr := os.Stat(s.fontPath); statErr == nil {
			pdf.AddUTF8Font("decorative", "", s.fontPath)
			if !pdf.Err() {
				return "decorative", ""
			}
			pdf.ClearError()
		}
	}
	return "Helvetica", "I"
}
