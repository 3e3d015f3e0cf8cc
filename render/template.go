package render

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-pdf/fpdf"
	"github.com/go-pdf/fpdf/contrib/gofpdi"
)

// Layout constants for the fixed template. The template is a landscape
// Letter page with a blank region where the recipient name goes.
const (
	nameBaselineY = 300.0
	namePointSize = 34.0
)

type templateStrategy struct {
	templatePath string
	fontPath     string
}

// Render imports page one of the template and overlays the recipient name,
// centered at a fixed baseline. The template importer panics on malformed
// input, hence the recover.
func (s *templateStrategy) Render(f Fields) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("importing template %s: %v", s.templatePath, r)
		}
	}()

	pdf := fpdf.New(fpdf.OrientationLandscape, fpdf.UnitPoint, fpdf.PageSizeLetter, "")
	pdf.AddPage()

	tpl := gofpdi.ImportPage(pdf, s.templatePath, 1, "/MediaBox")
	pageW, pageH := pdf.GetPageSize()
	gofpdi.UseImportedTemplate(pdf, tpl, 0, 0, pageW, pageH)

	family, style := s.nameFont(pdf)
	pdf.SetFont(family, style, namePointSize)
	pdf.SetTextColor(40, 40, 40)
	nameW := pdf.GetStringWidth(f.RecipientName)
	pdf.Text((pageW-nameW)/2, nameBaselineY, f.RecipientName)

	if pdf.Err() {
		return nil, fmt.Errorf("composing over template: %w", pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing document: %w", err)
	}
	return buf.Bytes(), nil
}

// nameFont registers the decorative TTF when it is present and readable,
// otherwise falls back to the built-in italic.
func (s *templateStrategy) nameFont(pdf *fpdf.Fpdf) (family, style string) {
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
