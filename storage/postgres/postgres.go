// Package postgres implements storage.Store backed by PostgreSQL.
//
// Envelope fields are stored as individual BYTEA columns rather than JSON so
// nonce and ciphertext land in native binary storage. Unique indexes on the
// certificate number and verification code enforce identifier uniqueness at
// the database level; violations are mapped to cert.ErrDuplicateIdentifier.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/cert"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/storage"
)

// Store implements storage.Store backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

// NewStore returns a Store backed by the given pgx connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// NewStoreFromDSN creates a connection pool from a DSN string, ensures the
// schema exists, and returns a new Store.
func NewStoreFromDSN(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return NewStore(pool), nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func (s *Store) Create(ctx context.Context, c *cert.Certificate) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO certificates
		 (id, number, verification_code, course_name, institution, description,
		  issue_date, expiration_date, issuer_id, status, artifact_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		c.ID, c.Number, c.VerificationCode, c.CourseName, c.Institution, c.Description,
		c.IssueDate, c.ExpirationDate, c.IssuerID, c.Status, c.ArtifactID, c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("certificate identifiers: %w", cert.ErrDuplicateIdentifier)
	}
	return err
}

func (s *Store) Update(ctx context.Context, c *cert.Certificate) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE certificates SET
		   course_name = $2, institution = $3, description = $4, issue_date = $5,
		   expiration_date = $6, issuer_id = $7, status = $8, artifact_id = $9, updated_at = $10
		 WHERE id = $1 AND number = $11 AND verification_code = $12`,
		c.ID, c.CourseName, c.Institution, c.Description, c.IssueDate,
		c.ExpirationDate, c.IssuerID, c.Status, c.ArtifactID, c.UpdatedAt,
		c.Number, c.VerificationCode)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either the id is unknown or the caller tried to change an
		// immutable identifier. Disambiguate for the caller.
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM certificates WHERE id = $1)`, c.ID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("identifier change rejected: %w", cert.ErrDuplicateIdentifier)
		}
		return fmt.Errorf("%s: %w", c.ID, storage.ErrNotFound)
	}
	return nil
}

const certColumns = `id, number, verification_code, course_name, institution, description,
	 issue_date, expiration_date, issuer_id, status, artifact_id, created_at, updated_at`

func (s *Store) scanCert(row pgx.Row, label string) (*cert.Certificate, error) {
	var c cert.Certificate
	err := row.Scan(&c.ID, &c.Number, &c.VerificationCode, &c.CourseName, &c.Institution,
		&c.Description, &c.IssueDate, &c.ExpirationDate, &c.IssuerID, &c.Status,
		&c.ArtifactID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", label, storage.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*cert.Certificate, error) {
	return s.scanCert(s.pool.QueryRow(ctx,
		`SELECT `+certColumns+` FROM certificates WHERE id = $1`, id), id)
}

func (s *Store) GetByNumber(ctx context.Context, number string) (*cert.Certificate, error) {
	return s.scanCert(s.pool.QueryRow(ctx,
		`SELECT `+certColumns+` FROM certificates WHERE number = $1`, number), "number "+number)
}

func (s *Store) GetByCode(ctx context.Context, code string) (*cert.Certificate, error) {
	return s.scanCert(s.pool.QueryRow(ctx,
		`SELECT `+certColumns+` FROM certificates WHERE verification_code = $1`, code), "verification code")
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM certificates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) AddAssignment(ctx context.Context, a cert.Assignment) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO assignments (certificate_id, recipient_id, assigned_at, assigned_by)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (certificate_id, recipient_id) DO NOTHING`,
		a.CertificateID, a.RecipientID, a.AssignedAt, a.AssignedBy)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return fmt.Errorf("%s: %w", a.CertificateID, storage.ErrNotFound)
		}
		return err
	}
	_ = tag // zero rows affected means the pair already existed: a no-op
	return nil
}

func (s *Store) Assignments(ctx context.Context, certificateID string) ([]cert.Assignment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT certificate_id, recipient_id, assigned_at, assigned_by
		 FROM assignments WHERE certificate_id = $1 ORDER BY seq`, certificateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []cert.Assignment
	for rows.Next() {
		var a cert.Assignment
		if err := rows.Scan(&a.CertificateID, &a.RecipientID, &a.AssignedAt, &a.AssignedBy); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func (s *Store) PutCredential(ctx context.Context, rec *storage.CredentialRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO signing_credentials
		 (owner_id, display_name, authority, serial_number, not_before, not_after, status,
		  container_nonce, container_ciphertext, secret_nonce, secret_ciphertext, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (owner_id) DO UPDATE SET
		   display_name = $2, authority = $3, serial_number = $4, not_before = $5,
		   not_after = $6, status = $7, container_nonce = $8, container_ciphertext = $9,
		   secret_nonce = $10, secret_ciphertext = $11, updated_at = $13`,
		rec.OwnerID, rec.DisplayName, rec.Authority, rec.SerialNumber,
		rec.NotBefore, rec.NotAfter, rec.Status,
		rec.Container.Nonce, rec.Container.Ciphertext,
		rec.Secret.Nonce, rec.Secret.Ciphertext,
		rec.CreatedAt, rec.UpdatedAt)
	return err
}

func (s *Store) GetCredential(ctx context.Context, ownerID string) (*storage.CredentialRecord, error) {
	rec := storage.CredentialRecord{
		Container: storage.Envelope{Ver: 1, Scheme: "aes256gcm"},
		Secret:    storage.Envelope{Ver: 1, Scheme: "aes256gcm"},
	}
	var createdAt, updatedAt time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT owner_id, display_name, authority, serial_number, not_before, not_after, status,
		        container_nonce, container_ciphertext, secret_nonce, secret_ciphertext, created_at, updated_at
		 FROM signing_credentials WHERE owner_id = $1`, ownerID).Scan(
		&rec.OwnerID, &rec.DisplayName, &rec.Authority, &rec.SerialNumber,
		&rec.NotBefore, &rec.NotAfter, &rec.Status,
		&rec.Container.Nonce, &rec.Container.Ciphertext,
		&rec.Secret.Nonce, &rec.Secret.Ciphertext, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("credential for %s: %w", ownerID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	rec.CreatedAt, rec.UpdatedAt = createdAt, updatedAt
	return &rec, nil
}

func (s *Store) DeleteCredential(ctx context.Context, ownerID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM signing_credentials WHERE owner_id = $1`, ownerID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
