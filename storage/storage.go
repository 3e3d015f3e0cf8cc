// Package storage provides the persistence abstraction for certificate
// records, recipient assignments and encrypted signing-credential records.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/cert"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// CertificateStore persists certificate records. Number and VerificationCode
// carry unique indexes; violations surface cert.ErrDuplicateIdentifier so the
// caller can regenerate the identifier and retry.
type CertificateStore interface {
	Create(ctx context.Context, c *cert.Certificate) error
	Update(ctx context.Context, c *cert.Certificate) error
	GetByID(ctx context.Context, id string) (*cert.Certificate, error)
	GetByNumber(ctx context.Context, number string) (*cert.Certificate, error)
	GetByCode(ctx context.Context, code string) (*cert.Certificate, error)
	Delete(ctx context.Context, id string) error

	// AddAssignment records a recipient assignment. A duplicate
	// (certificate, recipient) pair is a no-op, not an error.
	AddAssignment(ctx context.Context, a cert.Assignment) error
	// Assignments returns a certificate's assignments in insertion order.
	Assignments(ctx context.Context, certificateID string) ([]cert.Assignment, error)
}

// CredentialStatus values stored on a credential record.
const (
	CredentialActive  = "active"
	CredentialExpired = "expired"
)

// CredentialRecord is a stored signing credential: extracted metadata in the
// clear, the PKCS#12 container and its unlock secret sealed independently.
// At most one record exists per owner; Put replaces wholesale.
type CredentialRecord struct {
	OwnerID      string    `json:"owner_id"`
	DisplayName  string    `json:"display_name"`
	Authority    string    `json:"authority"`
	SerialNumber string    `json:"serial_number"`
	NotBefore    time.Time `json:"not_before"`
	NotAfter     time.Time `json:"not_after"`
	Status       string    `json:"status"`

	Container Envelope `json:"container"`
	Secret    Envelope `json:"secret"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CredentialStore persists at most one signing credential per owner.
type CredentialStore interface {
	PutCredential(ctx context.Context, rec *CredentialRecord) error
	GetCredential(ctx context.Context, ownerID string) (*CredentialRecord, error)
	// DeleteCredential removes the owner's record and reports whether one
	// existed.
	DeleteCredential(ctx context.Context, ownerID string) (bool, error)
}

// Store combines both record stores; every backend implements it.
type Store interface {
	CertificateStore
	CredentialStore
}
