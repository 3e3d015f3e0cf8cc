// Package render produces the certificate PDF. Two strategies exist: filling
// a fixed-layout template document, and drawing a complete layout from
// scratch. Template or font trouble never propagates to the caller; the drawn
// fallback always yields a document.
package render

import (
	"log/slog"
	"os"
	"time"

	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/internal/util"
)

// Fields is everything the rendered certificate displays.
type Fields struct {
	Number         string
	RecipientName  string
	CourseName     string
	Description    string
	Institution    string
	IssueDate      time.Time
	ExpirationDate *time.Time
	IssuerName     string
}

// Strategy renders Fields into a complete, self-contained PDF.
type Strategy interface {
	Render(f Fields) ([]byte, error)
}

// Renderer selects a strategy per call based on template availability.
type Renderer struct {
	templatePath string
	fontPath     string
	logger       *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTemplate sets the path of the fixed-layout template PDF.
func WithTemplate(path string) Option {
	return func(r *Renderer) { r.templatePath = path }
}

// WithFont sets the path of the decorative TTF used for the recipient name.
func WithFont(path string) Option {
	return func(r *Renderer) { r.fontPath = path }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) { r.logger = logger }
}

// New returns a Renderer. Without options it always uses the drawn layout.
func New(opts ...Option) *Renderer {
	r := &Renderer{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "render")
	return r
}

// Render produces the certificate document. The recipient name is normalized
// first so measurement and drawing agree regardless of input encoding.
func (r *Renderer) Render(f Fields) ([]byte, error) {
	f.RecipientName = util.Normalize(f.RecipientName)

	if s, ok := r.templateStrategy(); ok {
		out, err := s.Render(f)
		if err == nil {
			return out, nil
		}
		r.logger.Warn("template render failed, using drawn layout",
			"template", r.templatePath, "error", err)
	}

	return (&fallbackStrategy{fontPath: r.fontPath}).Render(f)
}

// templateStrategy probes the template file and returns the strategy only
// when the file is present.
func (r *Renderer) templateStrategy() (Strategy, bool) {
	if r.templatePath == "" {
		return nil, false
	}
	if _, err := os.Stat(r.templatePath); err != nil {
		return nil, false
	}
	return &templateStrategy{templatePath: r.templatePath, fontPath: r.fontPath}, true
}
