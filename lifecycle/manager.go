// Package lifecycle owns the certificate entity: creation, issuance,
// revocation, assignment, artifact materialization and verification. It
// orchestrates the renderer, signer and artifact store; identity data comes
// from the host application through IdentityResolver.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/blob"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/cert"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/internal/util"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/internal/uuid"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/render"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/sign"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/storage"
)

const (
	numberRandomLen     = 8
	verificationCodeLen = 12
	artifactContentType = "application/pdf"
)

// Identity is the slice of a user profile the pipeline needs.
type Identity struct {
	ID          string
	DisplayName string
	Email       string
	Number      string
}

// IdentityResolver looks up user identities in the host application.
type IdentityResolver interface {
	Resolve(ctx context.Context, userID string) (Identity, error)
}

// Renderer produces the certificate document.
type Renderer interface {
	Render(f render.Fields) ([]byte, error)
}

// DocumentSigner applies the issuer's signature, best effort.
type DocumentSigner interface {
	Sign(ctx context.Context, ownerID string, doc []byte) ([]byte, sign.Outcome)
}

// Manager drives certificate state transitions.
type Manager struct {
	certs     storage.CertificateStore
	renderer  Renderer
	signer    DocumentSigner
	artifacts blob.Store
	resolver  IdentityResolver
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithArtifactStore wires the artifact store. Without it the manager runs in
// the render-on-demand degraded mode.
func WithArtifactStore(s blob.Store) Option {
	return func(m *Manager) { m.artifacts = s }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager wires the pipeline together.
func NewManager(certs storage.CertificateStore, renderer Renderer, signer DocumentSigner, resolver IdentityResolver, opts ...Option) *Manager {
	m := &Manager{
		certs:    certs,
		renderer: renderer,
		signer:   signer,
		resolver: resolver,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "lifecycle")
	return m
}

// CreateInput holds the caller-supplied fields of a new draft.
type CreateInput struct {
	CourseName     string
	Institution    string
	Description    string
	IssueDate      time.Time
	ExpirationDate *time.Time
	IssuerID       string
}

// Create stores a new draft certificate with generated identifiers. A
// collision on either identifier triggers one regeneration before giving up.
func (m *Manager) Create(ctx context.Context, in CreateInput) (*cert.Certificate, error) {
	if in.CourseName == "" {
		return nil, errors.New("course name is required")
	}
	if in.IssuerID == "" {
		return nil, errors.New("issuer id is required")
	}
	issueDate := in.IssueDate
	if issueDate.IsZero() {
		issueDate = m.now()
	}

	for attempt := 0; ; attempt++ {
		numberSuffix, err := util.RandomChars(numberRandomLen)
		if err != nil {
			return nil, fmt.Errorf("generating certificate number: %w", err)
		}
		code, err := util.RandomChars(verificationCodeLen)
		if err != nil {
			return nil, fmt.Errorf("generating verification code: %w", err)
		}
		now := m.now()
		c := &cert.Certificate{
			ID:               uuid.New(),
			Number:           fmt.Sprintf("CERT-%d-%s", issueDate.Year(), numberSuffix),
			VerificationCode: code,
			CourseName:       in.CourseName,
			Institution:      in.Institution,
			Description:      in.Description,
			IssueDate:        issueDate,
			ExpirationDate:   in.ExpirationDate,
			IssuerID:         in.IssuerID,
			Status:           cert.StatusDraft,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		err = m.certs.Create(ctx, c)
		if err == nil {
			m.logger.Info("certificate created", "certificate_id", c.ID, "number", c.Number)
			return c, nil
		}
		if errors.Is(err, cert.ErrDuplicateIdentifier) && attempt == 0 {
			m.logger.Warn("identifier collision, regenerating", "number", c.Number)
			continue
		}
		return nil, fmt.Errorf("creating certificate: %w", err)
	}
}

// UpdateInput replaces the editable fields of a draft.
type UpdateInput struct {
	CourseName     string
	Institution    string
	Description    string
	IssueDate      time.Time
	ExpirationDate *time.Time
}

// Update edits a draft. Anything past draft is immutable.
func (m *Manager) Update(ctx context.Context, certificateID string, in UpdateInput) (*cert.Certificate, error) {
	c, err := m.certs.GetByID(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	if c.EffectiveStatus(m.now()) != cert.StatusDraft {
		return nil, fmt.Errorf("certificate %s: %w", certificateID, cert.ErrImmutable)
	}
	if in.CourseName != "" {
		c.CourseName = in.CourseName
	}
	if in.Institution != "" {
		c.Institution = in.Institution
	}
	if in.Description != "" {
		c.Description = in.Description
	}
	if !in.IssueDate.IsZero() {
		c.IssueDate = in.IssueDate
	}
	if in.ExpirationDate != nil {
		c.ExpirationDate = in.ExpirationDate
	}
	c.UpdatedAt = m.now()
	if err := m.certs.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("updating certificate: %w", err)
	}
	return c, nil
}

// Get returns the certificate with its effective status applied.
func (m *Manager) Get(ctx context.Context, certificateID string) (*cert.Certificate, error) {
	c, err := m.certs.GetByID(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	c.Status = c.EffectiveStatus(m.now())
	return c, nil
}

// Issue transitions a certificate to issued. Calling it on an already issued
// certificate whose artifact still exists is a no-op. Concurrent issuance of
// the same certificate is last-writer-wins.
func (m *Manager) Issue(ctx context.Context, certificateID string) (*cert.Certificate, error) {
	c, err := m.certs.GetByID(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	if c.Status == cert.StatusRevoked {
		return nil, fmt.Errorf("certificate %s is revoked: %w", certificateID, cert.ErrImmutable)
	}
	if c.Status == cert.StatusIssued && m.artifactResolves(ctx, c) {
		return c, nil
	}

	doc, err := m.renderAndSign(ctx, c, "")
	if err != nil {
		return nil, err
	}
	c.ArtifactID = m.uploadArtifact(ctx, c, doc)
	c.Status = cert.StatusIssued
	c.UpdatedAt = m.now()
	if err := m.certs.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("recording issuance: %w", err)
	}
	m.logger.Info("certificate issued",
		"certificate_id", c.ID, "number", c.Number, "artifact_id", c.ArtifactID)
	return c, nil
}

// Revoke marks the certificate revoked. Unconditional; revocation always
// wins over any other state.
func (m *Manager) Revoke(ctx context.Context, certificateID string) (*cert.Certificate, error) {
	c, err := m.certs.GetByID(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	c.Status = cert.StatusRevoked
	c.UpdatedAt = m.now()
	if err := m.certs.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("recording revocation: %w", err)
	}
	m.logger.Info("certificate revoked", "certificate_id", c.ID, "number", c.Number)
	return c, nil
}

// Assign links a recipient to the certificate. Assigning the same recipient
// twice is a no-op.
func (m *Manager) Assign(ctx context.Context, certificateID, recipientID, assignedBy string) error {
	if _, err := m.certs.GetByID(ctx, certificateID); err != nil {
		return err
	}
	a := cert.Assignment{
		CertificateID: certificateID,
		RecipientID:   recipientID,
		AssignedAt:    m.now(),
		AssignedBy:    assignedBy,
	}
	if err := m.certs.AddAssignment(ctx, a); err != nil {
		return fmt.Errorf("assigning recipient: %w", err)
	}
	return nil
}

// Artifact returns the certificate document bytes for download.
//
// Retrieval policy: a stored artifact that still exists is returned as is;
// with the store reachable but the artifact gone, the issuance path runs
// again and the re-uploaded document is served; with no reachable store, the
// document is rendered inline and nothing is persisted.
//
// viewingUserID, when non-empty and different from the primary recipient,
// selects an alternate assigned recipient whose name appears on the
// document; such personalized copies are always rendered inline.
func (m *Manager) Artifact(ctx context.Context, certificateID, viewingUserID string) ([]byte, error) {
	c, err := m.certs.GetByID(ctx, certificateID)
	if err != nil {
		return nil, err
	}

	if viewingUserID != "" {
		primary, err := m.primaryRecipient(ctx, c)
		if err != nil {
			return nil, err
		}
		if viewingUserID != primary.ID {
			if err := m.requireAssigned(ctx, c, viewingUserID); err != nil {
				return nil, err
			}
			return m.renderAndSign(ctx, c, viewingUserID)
		}
	}

	if m.storeReachable(ctx) {
		if c.ArtifactID != "" {
			if data, err := m.downloadExisting(ctx, c.ArtifactID); err == nil {
				return data, nil
			}
		}
		return m.rematerialize(ctx, c)
	}

	// Degraded mode: no reachable store. Serve an inline render and leave
	// the artifact reference empty so later requests repeat this path.
	doc, err := m.renderAndSign(ctx, c, "")
	if err != nil {
		return nil, err
	}
	// Only drafts are promoted here. A revocation is final and must
	// survive any download path.
	if c.Status == cert.StatusDraft {
		c.Status = cert.StatusIssued
		c.UpdatedAt = m.now()
		if err := m.certs.Update(ctx, c); err != nil {
			m.logger.Warn("recording degraded issuance failed",
				"certificate_id", c.ID, "error", err)
		}
	}
	return doc, nil
}

// Verify answers the public verification query for a code. Revocation wins
// over expiry; expiry is computed from the dates at call time.
func (m *Manager) Verify(ctx context.Context, code string) (*cert.VerificationResult, error) {
	c, err := m.certs.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &cert.VerificationResult{Valid: false, Reason: cert.ReasonNotFound}, nil
		}
		return nil, fmt.Errorf("looking up verification code: %w", err)
	}
	switch c.EffectiveStatus(m.now()) {
	case cert.StatusRevoked:
		return &cert.VerificationResult{Valid: false, Reason: cert.ReasonRevoked, Certificate: c}, nil
	case cert.StatusExpired:
		return &cert.VerificationResult{Valid: false, Reason: cert.ReasonExpired, Certificate: c}, nil
	}
	return &cert.VerificationResult{Valid: true, Certificate: c}, nil
}

func (m *Manager) storeReachable(ctx context.Context) bool {
	return m.artifacts != nil && m.artifacts.Available(ctx)
}

// artifactResolves reports whether the recorded artifact can actually be
// served. The artifact may have been deleted out-of-band, so the reference
// alone is not trusted.
func (m *Manager) artifactResolves(ctx context.Context, c *cert.Certificate) bool {
	if c.ArtifactID == "" || !m.storeReachable(ctx) {
		return false
	}
	ok, err := m.artifacts.Exists(ctx, c.ArtifactID)
	if err != nil {
		m.logger.Warn("artifact probe failed", "artifact_id", c.ArtifactID, "error", err)
		return false
	}
	return ok
}

func (m *Manager) downloadExisting(ctx context.Context, artifactID string) ([]byte, error) {
	ok, err := m.artifacts.Exists(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, blob.ErrNotFound
	}
	return m.artifacts.Download(ctx, artifactID)
}

// rematerialize runs the issuance path again for a certificate whose
// recorded artifact is gone, then serves the persisted copy.
func (m *Manager) rematerialize(ctx context.Context, c *cert.Certificate) ([]byte, error) {
	doc, err := m.renderAndSign(ctx, c, "")
	if err != nil {
		return nil, err
	}
	artifactID := m.uploadArtifact(ctx, c, doc)
	c.ArtifactID = artifactID
	// Revocation is final; regenerating the document must not revive the
	// certificate.
	if c.Status != cert.StatusRevoked {
		c.Status = cert.StatusIssued
	}
	c.UpdatedAt = m.now()
	if err := m.certs.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("recording regenerated artifact: %w", err)
	}
	if artifactID == "" {
		return nil, fmt.Errorf("certificate %s: %w", c.ID, cert.ErrArtifactUnavailable)
	}
	data, err := m.artifacts.Download(ctx, artifactID)
	if err != nil {
		return nil, fmt.Errorf("certificate %s: %w", c.ID, cert.ErrArtifactUnavailable)
	}
	return data, nil
}

// renderAndSign builds the document for c. viewingUserID selects the
// recipient whose name is rendered; empty means the primary assignment.
func (m *Manager) renderAndSign(ctx context.Context, c *cert.Certificate, viewingUserID string) ([]byte, error) {
	issuer, err := m.resolver.Resolve(ctx, c.IssuerID)
	if err != nil {
		return nil, fmt.Errorf("resolving issuer %s: %w", c.IssuerID, err)
	}

	var recipient Identity
	if viewingUserID != "" {
		recipient, err = m.resolver.Resolve(ctx, viewingUserID)
		if err != nil {
			return nil, fmt.Errorf("resolving viewer %s: %w", viewingUserID, err)
		}
	} else {
		recipient, err = m.primaryRecipient(ctx, c)
		if err != nil {
			return nil, err
		}
	}

	doc, err := m.renderer.Render(render.Fields{
		Number:         c.Number,
		RecipientName:  recipient.DisplayName,
		CourseName:     c.CourseName,
		Description:    c.Description,
		Institution:    c.Institution,
		IssueDate:      c.IssueDate,
		ExpirationDate: c.ExpirationDate,
		IssuerName:     issuer.DisplayName,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering certificate %s: %w", c.ID, err)
	}

	signed, outcome := m.signer.Sign(ctx, c.IssuerID, doc)
	if outcome == sign.OutcomeUnsigned {
		m.logger.Warn("document left unsigned", "certificate_id", c.ID)
	}
	return signed, nil
}

// primaryRecipient resolves the first assigned recipient by insertion order.
// A certificate with no assignments renders without a recipient name.
func (m *Manager) primaryRecipient(ctx context.Context, c *cert.Certificate) (Identity, error) {
	assignments, err := m.certs.Assignments(ctx, c.ID)
	if err != nil {
		return Identity{}, fmt.Errorf("listing assignments: %w", err)
	}
	if len(assignments) == 0 {
		m.logger.Warn("no assigned recipient", "certificate_id", c.ID)
		return Identity{}, nil
	}
	recipient, err := m.resolver.Resolve(ctx, assignments[0].RecipientID)
	if err != nil {
		return Identity{}, fmt.Errorf("resolving recipient %s: %w", assignments[0].RecipientID, err)
	}
	return recipient, nil
}

func (m *Manager) requireAssigned(ctx context.Context, c *cert.Certificate, userID string) error {
	assignments, err := m.certs.Assignments(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("listing assignments: %w", err)
	}
	for _, a := range assignments {
		if a.RecipientID == userID {
			return nil
		}
	}
	return fmt.Errorf("user %s: %w", userID, cert.ErrNotAssigned)
}

// uploadArtifact persists the document when a store is reachable. Upload
// failure is tolerated; issuance proceeds with an empty reference.
func (m *Manager) uploadArtifact(ctx context.Context, c *cert.Certificate, doc []byte) string {
	if !m.storeReachable(ctx) {
		return ""
	}
	artifactID := artifactKey(c)
	if err := m.artifacts.Upload(ctx, artifactID, doc, artifactContentType); err != nil {
		m.logger.Warn("artifact upload failed, issuing without reference",
			"certificate_id", c.ID, "error", err)
		return ""
	}
	return artifactID
}

func artifactKey(c *cert.Certificate) string {
	return "certificates/" + c.ID + ".pdf"
}
