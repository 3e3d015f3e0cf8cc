// Package bbolt provides a BBolt-backed storage.Store.
package bbolt

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/cert"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/storage"
)

var (
	bucketCerts       = []byte("certificates")
	bucketNumberIdx   = []byte("certificate_numbers")
	bucketCodeIdx     = []byte("verification_codes")
	bucketAssignments = []byte("assignments")
	bucketCredentials = []byte("credentials")
)

// Store implements storage.Store backed by a BBolt database.
type Store struct {
	db *bbolt.DB
}

var _ storage.Store = (*Store)(nil)

// NewStore returns a Store backed by the given BBolt database, creating the
// required buckets if missing.
func NewStore(db *bbolt.DB) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketCerts, bucketNumberIdx, bucketCodeIdx, bucketAssignments, bucketCredentials} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreFromFile opens a BBolt database at the given path.
func NewStoreFromFile(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return NewStore(db)
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Create(ctx context.Context, c *cert.Certificate) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		certs := tx.Bucket(bucketCerts)
		numbers := tx.Bucket(bucketNumberIdx)
		codes := tx.Bucket(bucketCodeIdx)

		if certs.Get([]byte(c.ID)) != nil {
			return fmt.Errorf("id %s: %w", c.ID, cert.ErrDuplicateIdentifier)
		}
		if numbers.Get([]byte(c.Number)) != nil {
			return fmt.Errorf("number %s: %w", c.Number, cert.ErrDuplicateIdentifier)
		}
		if codes.Get([]byte(c.VerificationCode)) != nil {
			return fmt.Errorf("verification code: %w", cert.ErrDuplicateIdentifier)
		}

		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		if err := certs.Put([]byte(c.ID), data); err != nil {
			return err
		}
		if err := numbers.Put([]byte(c.Number), []byte(c.ID)); err != nil {
			return err
		}
		return codes.Put([]byte(c.VerificationCode), []byte(c.ID))
	})
}

func (s *Store) Update(ctx context.Context, c *cert.Certificate) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		certs := tx.Bucket(bucketCerts)
		data := certs.Get([]byte(c.ID))
		if data == nil {
			return fmt.Errorf("%s: %w", c.ID, storage.ErrNotFound)
		}
		var existing cert.Certificate
		if err := json.Unmarshal(data, &existing); err != nil {
			return err
		}
		if existing.Number != c.Number || existing.VerificationCode != c.VerificationCode {
			return fmt.Errorf("identifier change rejected: %w", cert.ErrDuplicateIdentifier)
		}
		updated, err := json.Marshal(c)
		if err != nil {
			return err
		}
		return certs.Put([]byte(c.ID), updated)
	})
}

func (s *Store) getByID(tx *bbolt.Tx, id string) (*cert.Certificate, error) {
	data := tx.Bucket(bucketCerts).Get([]byte(id))
	if data == nil {
		return nil, fmt.Errorf("%s: %w", id, storage.ErrNotFound)
	}
	var c cert.Certificate
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*cert.Certificate, error) {
	var c *cert.Certificate
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		c, err = s.getByID(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) getByIndex(idx []byte, key, label string) (*cert.Certificate, error) {
	var c *cert.Certificate
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(idx).Get([]byte(key))
		if id == nil {
			return fmt.Errorf("%s: %w", label, storage.ErrNotFound)
		}
		var err error
		c, err = s.getByID(tx, string(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) GetByNumber(ctx context.Context, number string) (*cert.Certificate, error) {
	return s.getByIndex(bucketNumberIdx, number, "number "+number)
}

func (s *Store) GetByCode(ctx context.Context, code string) (*cert.Certificate, error) {
	return s.getByIndex(bucketCodeIdx, code, "verification code")
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		c, err := s.getByID(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketNumberIdx).Delete([]byte(c.Number)); err != nil {
			return err
		}
		if err := tx.Bucket(bucketCodeIdx).Delete([]byte(c.VerificationCode)); err != nil {
			return err
		}
		if err := tx.Bucket(bucketAssignments).Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(bucketCerts).Delete([]byte(id))
	})
}

func (s *Store) AddAssignment(ctx context.Context, a cert.Assignment) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketCerts).Get([]byte(a.CertificateID)) == nil {
			return fmt.Errorf("%s: %w", a.CertificateID, storage.ErrNotFound)
		}

		b := tx.Bucket(bucketAssignments)
		var list []cert.Assignment
		if data := b.Get([]byte(a.CertificateID)); data != nil {
			if err := json.Unmarshal(data, &list); err != nil {
				return err
			}
		}
		for _, existing := range list {
			if existing.RecipientID == a.RecipientID {
				return nil // duplicate pair is a no-op
			}
		}
		list = append(list, a)
		data, err := json.Marshal(list)
		if err != nil {
			return err
		}
		return b.Put([]byte(a.CertificateID), data)
	})
}

func (s *Store) Assignments(ctx context.Context, certificateID string) ([]cert.Assignment, error) {
	var list []cert.Assignment
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketAssignments).Get([]byte(certificateID))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &list)
	})
	return list, err
}

func (s *Store) PutCredential(ctx context.Context, rec *storage.CredentialRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketCredentials).Put([]byte(rec.OwnerID), data)
	})
}

func (s *Store) GetCredential(ctx context.Context, ownerID string) (*storage.CredentialRecord, error) {
	var rec storage.CredentialRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketCredentials).Get([]byte(ownerID))
		if data == nil {
			return fmt.Errorf("credential for %s: %w", ownerID, storage.ErrNotFound)
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) DeleteCredential(ctx context.Context, ownerID string) (bool, error) {
	var existed bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCredentials)
		if b.Get([]byte(ownerID)) == nil {
			return nil
		}
		existed = true
		return b.Delete([]byte(ownerID))
	})
	return existed, err
}
