// Package cert defines the certificate entity, its status model and the
// assignment relation between a certificate and its recipients.
package cert

import "time"

// Status is the stored lifecycle state of a certificate.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusIssued  Status = "issued"
	StatusRevoked Status = "revoked"
	// StatusExpired is a computed, read-time status. It is never written to
	// the store; EffectiveStatus derives it from the expiration date.
	StatusExpired Status = "expired"
)

// Certificate is the issuable record. Number and VerificationCode are unique
// across the whole store and immutable once assigned. ArtifactID points at
// the persisted signed PDF; empty means "not yet rendered" (or rendered
// without a configured artifact store).
type Certificate struct {
	ID               string     `json:"id"`
	Number           string     `json:"number"`
	VerificationCode string     `json:"verification_code"`
	CourseName       string     `json:"course_name"`
	Institution      string     `json:"institution"`
	Description      string     `json:"description"`
	IssueDate        time.Time  `json:"issue_date"`
	ExpirationDate   *time.Time `json:"expiration_date,omitempty"`
	IssuerID         string     `json:"issuer_id"`
	Status           Status     `json:"status"`
	ArtifactID       string     `json:"artifact_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// EffectiveStatus resolves the display status at read time. Revocation wins
// over expiry when both conditions hold; expiry is derived from the
// expiration date, never from a persisted transition.
func (c *Certificate) EffectiveStatus(now time.Time) Status {
	if c.Status == StatusRevoked {
		return StatusRevoked
	}
	if c.Expired(now) {
		return StatusExpired
	}
	return c.Status
}

// Expired reports whether the certificate's expiration date has passed.
// Certificates without an expiration date never expire.
func (c *Certificate) Expired(now time.Time) bool {
	return c.ExpirationDate != nil && now.After(*c.ExpirationDate)
}

// Clone returns a deep copy so stored records cannot be mutated through
// returned pointers.
func (c *Certificate) Clone() *Certificate {
	cp := *c
	if c.ExpirationDate != nil {
		d := *c.ExpirationDate
		cp.ExpirationDate = &d
	}
	return &cp
}

// Assignment links a certificate to a recipient. The (certificate,
// recipient) pair is unique; re-assigning the same pair is a no-op.
type Assignment struct {
	CertificateID string    `json:"certificate_id"`
	RecipientID   string    `json:"recipient_id"`
	AssignedAt    time.Time `json:"assigned_at"`
	AssignedBy    string    `json:"assigned_by"`
}

// VerificationResult is the public answer to a verification query.
type VerificationResult struct {
	Valid       bool         `json:"valid"`
	Reason      string       `json:"reason,omitempty"`
	Certificate *Certificate `json:"certificate,omitempty"`
}

// Verification failure reasons.
const (
	ReasonNotFound = "not_found"
	ReasonRevoked  = "revoked"
	ReasonExpired  = "expired"
)
