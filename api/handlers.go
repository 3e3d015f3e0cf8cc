package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/credvault"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/lifecycle"
)

// CreateCertificate handles POST /certificates.
func (a *API) CreateCertificate(w http.ResponseWriter, r *http.Request) {
	var req CreateCertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CourseName == "" {
		writeError(w, http.StatusBadRequest, "course_name is required")
		return
	}
	if req.IssuerID == "" {
		writeError(w, http.StatusBadRequest, "issuer_id is required")
		return
	}

	c, err := a.manager.Create(r.Context(), lifecycle.CreateInput{
		CourseName:     req.CourseName,
		Institution:    req.Institution,
		Description:    req.Description,
		IssueDate:      req.IssueDate,
		ExpirationDate: req.ExpirationDate,
		IssuerID:       req.IssuerID,
	})
	if err != nil {
		mapError(w, err)
		return
	}

	a.audit.log(AuditCertificateCreated, r,
		slog.String("certificate_id", c.ID),
		slog.String("number", c.Number))
	writeJSON(w, http.StatusCreated, toCertificateResponse(c, time.Now()))
}

// GetCertificate handles GET /certificates/{certID}.
func (a *API) GetCertificate(w http.ResponseWriter, r *http.Request) {
	c, err := a.manager.Get(r.Context(), chi.URLParam(r, "certID"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCertificateResponse(c, time.Now()))
}

// UpdateCertificate handles PUT /certificates/{certID}. Only drafts accept
// edits.
func (a *API) UpdateCertificate(w http.ResponseWriter, r *http.Request) {
	var req UpdateCertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	certID := chi.URLParam(r, "certID")
	c, err := a.manager.Update(r.Context(), certID, lifecycle.UpdateInput{
		CourseName:     req.CourseName,
		Institution:    req.Institution,
		Description:    req.Description,
		IssueDate:      req.IssueDate,
		ExpirationDate: req.ExpirationDate,
	})
	if err != nil {
		mapError(w, err)
		return
	}

	a.audit.log(AuditCertificateUpdated, r, slog.String("certificate_id", c.ID))
	writeJSON(w, http.StatusOK, toCertificateResponse(c, time.Now()))
}

// IssueCertificate handles POST /certificates/{certID}/issue.
func (a *API) IssueCertificate(w http.ResponseWriter, r *http.Request) {
	c, err := a.manager.Issue(r.Context(), chi.URLParam(r, "certID"))
	if err != nil {
		mapError(w, err)
		return
	}

	a.audit.log(AuditCertificateIssued, r,
		slog.String("certificate_id", c.ID),
		slog.String("artifact_id", c.ArtifactID))
	writeJSON(w, http.StatusOK, toCertificateResponse(c, time.Now()))
}

// RevokeCertificate handles POST /certificates/{certID}/revoke.
func (a *API) RevokeCertificate(w http.ResponseWriter, r *http.Request) {
	c, err := a.manager.Revoke(r.Context(), chi.URLParam(r, "certID"))
	if err != nil {
		mapError(w, err)
		return
	}

	a.audit.log(AuditCertificateRevoked, r, slog.String("certificate_id", c.ID))
	writeJSON(w, http.StatusOK, toCertificateResponse(c, time.Now()))
}

// AssignRecipient handles POST /certificates/{certID}/assignments.
// Assigning the same recipient twice succeeds without effect.
func (a *API) AssignRecipient(w http.ResponseWriter, r *http.Request) {
	var req AssignRecipientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RecipientID == "" {
		writeError(w, http.StatusBadRequest, "recipient_id is required")
		return
	}

	certID := chi.URLParam(r, "certID")
	if err := a.manager.Assign(r.Context(), certID, req.RecipientID, req.AssignedBy); err != nil {
		mapError(w, err)
		return
	}

	a.audit.log(AuditRecipientAssigned, r,
		slog.String("certificate_id", certID),
		slog.String("recipient_id", req.RecipientID))
	w.WriteHeader(http.StatusNoContent)
}

// DownloadArtifact handles GET /certificates/{certID}/artifact. The optional
// viewer query parameter selects an assigned recipient whose name appears on
// the document.
func (a *API) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	certID := chi.URLParam(r, "certID")
	viewer := r.URL.Query().Get("viewer")

	c, err := a.manager.Get(r.Context(), certID)
	if err != nil {
		mapError(w, err)
		return
	}
	data, err := a.manager.Artifact(r.Context(), certID, viewer)
	if err != nil {
		mapError(w, err)
		return
	}

	a.audit.log(AuditArtifactDownloaded, r,
		slog.String("certificate_id", certID),
		slog.String("viewer", viewer))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", c.Number+".pdf"))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// VerifyCertificate handles GET /verify/{code}. Public, unauthenticated.
func (a *API) VerifyCertificate(w http.ResponseWriter, r *http.Request) {
	res, err := a.manager.Verify(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		mapError(w, err)
		return
	}

	resp := VerifyResponse{Valid: res.Valid, Reason: res.Reason}
	if res.Certificate != nil {
		resp.Certificate = toCertificateResponse(res.Certificate, time.Now())
	}
	a.audit.log(AuditVerificationChecked, r,
		slog.Bool("valid", res.Valid),
		slog.String("reason", res.Reason))
	writeJSON(w, http.StatusOK, resp)
}

// StoreCredential handles PUT /credentials/{ownerID}.
// Accepts multipart form with "file" (the PKCS#12 container) and "secret"
// (its unlock secret). Extension and size are checked before any parsing.
func (a *API) StoreCredential(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")

	// Cap the total request body slightly above the container limit so the
	// size violation surfaces as 413 rather than a broken form parse.
	r.Body = http.MaxBytesReader(w, r.Body, credvault.MaxContainerSize+1<<20)
	if err := r.ParseMultipartForm(credvault.MaxContainerSize + 1<<20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	secret := r.FormValue("secret")
	if secret == "" {
		writeError(w, http.StatusBadRequest, "secret is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".p12", ".pfx":
	default:
		mapError(w, credvault.ErrUnsupportedFile)
		return
	}
	if header.Size > credvault.MaxContainerSize {
		mapError(w, credvault.ErrTooLarge)
		return
	}

	raw, err := io.ReadAll(io.LimitReader(file, credvault.MaxContainerSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	status, err := a.vault.StoreCredential(r.Context(), ownerID, header.Filename, raw, secret)
	if err != nil {
		mapError(w, err)
		return
	}

	a.audit.log(AuditCredentialStored, r,
		slog.String("owner_id", ownerID),
		slog.String("serial_number", status.SerialNumber))
	writeJSON(w, http.StatusOK, status)
}

// GetCredentialStatus handles GET /credentials/{ownerID}. Metadata only;
// the container and its secret never leave the vault.
func (a *API) GetCredentialStatus(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")
	status, ok, err := a.vault.GetStatus(r.Context(), ownerID)
	if err != nil {
		mapError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no credential on file")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// DeleteCredential handles DELETE /credentials/{ownerID}.
func (a *API) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")
	deleted, err := a.vault.DeleteCredential(r.Context(), ownerID)
	if err != nil {
		mapError(w, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "no credential on file")
		return
	}

	a.audit.log(AuditCredentialDeleted, r, slog.String("owner_id", ownerID))
	w.WriteHeader(http.StatusNoContent)
}
