package api

import (
	"time"

	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/cert"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateCertificateRequest is the JSON body for POST /certificates.
type CreateCertificateRequest struct {
	CourseName     string     `json:"course_name"`
	Institution    string     `json:"institution,omitempty"`
	Description    string     `json:"description,omitempty"`
	IssueDate      time.Time  `json:"issue_date,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	IssuerID       string     `json:"issuer_id"`
}

// UpdateCertificateRequest is the JSON body for PUT /certificates/{certID}.
// Empty fields are left unchanged.
type UpdateCertificateRequest struct {
	CourseName     string     `json:"course_name,omitempty"`
	Institution    string     `json:"institution,omitempty"`
	Description    string     `json:"description,omitempty"`
	IssueDate      time.Time  `json:"issue_date,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

// AssignRecipientRequest is the JSON body for
// POST /certificates/{certID}/assignments.
type AssignRecipientRequest struct {
	RecipientID string `json:"recipient_id"`
	AssignedBy  string `json:"assigned_by,omitempty"`
}

// CertificateResponse is the JSON view of a certificate. Status is the
// effective status at response time, with expiry computed from the dates.
type CertificateResponse struct {
	ID               string     `json:"id"`
	Number           string     `json:"number"`
	VerificationCode string     `json:"verification_code"`
	CourseName       string     `json:"course_name"`
	Institution      string     `json:"institution,omitempty"`
	Description      string     `json:"description,omitempty"`
	IssueDate        time.Time  `json:"issue_date"`
	ExpirationDate   *time.Time `json:"expiration_date,omitempty"`
	IssuerID         string     `json:"issuer_id"`
	Status           string     `json:"status"`
	ArtifactID       string     `json:"artifact_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// VerifyResponse is returned from GET /verify/{code}.
type VerifyResponse struct {
	Valid       bool                 `json:"valid"`
	Reason      string               `json:"reason,omitempty"`
	Certificate *CertificateResponse `json:"certificate,omitempty"`
}

func toCertificateResponse(c *cert.Certificate, now time.Time) *CertificateResponse {
	return &CertificateResponse{
		ID:               c.ID,
		Number:           c.Number,
		VerificationCode: c.VerificationCode,
		CourseName:       c.CourseName,
		Institution:      c.Institution,
		Description:      c.Description,
		IssueDate:        c.IssueDate,
		ExpirationDate:   c.ExpirationDate,
		IssuerID:         c.IssuerID,
		Status:           string(c.EffectiveStatus(now)),
		ArtifactID:       c.ArtifactID,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}
