// Package memory provides a thread-safe in-memory implementation of
// storage.Store. Suitable for testing, demos, and single-process use cases.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/cert"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/storage"
)

// Store is a thread-safe in-memory implementation of storage.Store.
type Store struct {
	mu          sync.RWMutex
	certs       map[string]*cert.Certificate
	byNumber    map[string]string // number -> id
	byCode      map[string]string // verification code -> id
	assignments map[string][]cert.Assignment
	credentials map[string]*storage.CredentialRecord
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a new empty in-memory Store.
func NewStore() *Store {
	return &Store{
		certs:       make(map[string]*cert.Certificate),
		byNumber:    make(map[string]string),
		byCode:      make(map[string]string),
		assignments: make(map[string][]cert.Assignment),
		credentials: make(map[string]*storage.CredentialRecord),
	}
}

func (s *Store) Create(ctx context.Context, c *cert.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.certs[c.ID]; ok {
		return fmt.Errorf("id %s: %w", c.ID, cert.ErrDuplicateIdentifier)
	}
	if _, ok := s.byNumber[c.Number]; ok {
		return fmt.Errorf("number %s: %w", c.Number, cert.ErrDuplicateIdentifier)
	}
	if _, ok := s.byCode[c.VerificationCode]; ok {
		return fmt.Errorf("verification code: %w", cert.ErrDuplicateIdentifier)
	}

	s.certs[c.ID] = c.Clone()
	s.byNumber[c.Number] = c.ID
	s.byCode[c.VerificationCode] = c.ID
	return nil
}

func (s *Store) Update(ctx context.Context, c *cert.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.certs[c.ID]
	if !ok {
		return fmt.Errorf("%s: %w", c.ID, storage.ErrNotFound)
	}
	// Number and verification code are immutable once assigned.
	if existing.Number != c.Number || existing.VerificationCode != c.VerificationCode {
		return fmt.Errorf("identifier change rejected: %w", cert.ErrDuplicateIdentifier)
	}
	s.certs[c.ID] = c.Clone()
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*cert.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.certs[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, storage.ErrNotFound)
	}
	return c.Clone(), nil
}

func (s *Store) GetByNumber(ctx context.Context, number string) (*cert.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byNumber[number]
	if !ok {
		return nil, fmt.Errorf("number %s: %w", number, storage.ErrNotFound)
	}
	return s.certs[id].Clone(), nil
}

func (s *Store) GetByCode(ctx context.Context, code string) (*cert.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byCode[code]
	if !ok {
		return nil, fmt.Errorf("verification code: %w", storage.ErrNotFound)
	}
	return s.certs[id].Clone(), nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.certs[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, storage.ErrNotFound)
	}
	delete(s.byNumber, c.Number)
	delete(s.byCode, c.VerificationCode)
	delete(s.certs, id)
	delete(s.assignments, id)
	return nil
}

func (s *Store) AddAssignment(ctx context.Context, a cert.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.certs[a.CertificateID]; !ok {
		return fmt.Errorf("%s: %w", a.CertificateID, storage.ErrNotFound)
	}
	for _, existing := range s.assignments[a.CertificateID] {
		if existing.RecipientID == a.RecipientID {
			return nil // duplicate pair is a no-op
		}
	}
	s.assignments[a.CertificateID] = append(s.assignments[a.CertificateID], a)
	return nil
}

func (s *Store) Assignments(ctx context.Context, certificateID string) ([]cert.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]cert.Assignment(nil), s.assignments[certificateID]...), nil
}

func (s *Store) PutCredential(ctx context.Context, rec *storage.CredentialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.credentials[rec.OwnerID] = &cp
	return nil
}

func (s *Store) GetCredential(ctx context.Context, ownerID string) (*storage.CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.credentials[ownerID]
	if !ok {
		return nil, fmt.Errorf("credential for %s: %w", ownerID, storage.ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (s *Store) DeleteCredential(ctx context.Context, ownerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentials[ownerID]; !ok {
		return false, nil
	}
	delete(s.credentials, ownerID)
	return true, nil
}
