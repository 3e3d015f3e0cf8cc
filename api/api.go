// Package api exposes the certificate pipeline over REST.
package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/credvault"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/lifecycle"
)

// API holds the dependencies needed by the REST handlers.
type API struct {
	manager *lifecycle.Manager
	vault   *credvault.Vault
	audit   *auditLogger
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger)
	}
}

// New creates a new API instance.
func New(manager *lifecycle.Manager, vault *credvault.Vault, opts ...Option) *API {
	a := &API{manager: manager, vault: vault}
	for _, opt := range opts {
		opt(a)
	}
	if a.audit == nil {
		a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	return a
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/redoc",
	}, nil))

	// Public verification path.
	r.Get("/verify/{code}", a.VerifyCertificate)

	r.Post("/certificates", a.CreateCertificate)
	r.Route("/certificates/{certID}", func(r chi.Router) {
		r.Get("/", a.GetCertificate)
		r.Put("/", a.UpdateCertificate)
		r.Post("/issue", a.IssueCertificate)
		r.Post("/revoke", a.RevokeCertificate)
		r.Post("/assignments", a.AssignRecipient)
		r.Get("/artifact", a.DownloadArtifact)
	})

	r.Route("/credentials/{ownerID}", func(r chi.Router) {
		r.Put("/", a.StoreCredential)
		r.Get("/", a.GetCredentialStatus)
		r.Delete("/", a.DeleteCredential)
	})

	return r
}
