package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/cert"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/storage"
)

func newCert(id, number, code string) *cert.Certificate {
	return &cert.Certificate{
		ID:               id,
		Number:           number,
		VerificationCode: code,
		CourseName:       "Intro to Security",
		Status:           cert.StatusDraft,
		IssueDate:        time.Now().UTC(),
	}
}

func TestStore_CreateAndLookups(t *testing.T) {
	ctx := t.Context()
	s := NewStore()

	c := newCert("c1", "CERT-2026-AAAAAA", "CODE-1")
	require.NoError(t, s.Create(ctx, c))

	byID, err := s.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "CERT-2026-AAAAAA", byID.Number)

	byNumber, err := s.GetByNumber(ctx, "CERT-2026-AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, "c1", byNumber.ID)

	byCode, err := s.GetByCode(ctx, "CODE-1")
	require.NoError(t, err)
	assert.Equal(t, "c1", byCode.ID)

	_, err = s.GetByCode(ctx, "CODE-MISSING")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_UniqueIdentifiers(t *testing.T) {
	ctx := t.Context()
	s := NewStore()

	require.NoError(t, s.Create(ctx, newCert("c1", "CERT-2026-AAAAAA", "CODE-1")))

	err := s.Create(ctx, newCert("c2", "CERT-2026-AAAAAA", "CODE-2"))
	assert.ErrorIs(t, err, cert.ErrDuplicateIdentifier)

	err = s.Create(ctx, newCert("c3", "CERT-2026-BBBBBB", "CODE-1"))
	assert.ErrorIs(t, err, cert.ErrDuplicateIdentifier)
}

func TestStore_UpdateRejectsIdentifierChange(t *testing.T) {
	ctx := t.Context()
	s := NewStore()

	require.NoError(t, s.Create(ctx, newCert("c1", "CERT-2026-AAAAAA", "CODE-1")))

	changed := newCert("c1", "CERT-2026-ZZZZZZ", "CODE-1")
	assert.ErrorIs(t, s.Update(ctx, changed), cert.ErrDuplicateIdentifier)
}

func TestStore_ReturnedRecordsAreCopies(t *testing.T) {
	ctx := t.Context()
	s := NewStore()

	require.NoError(t, s.Create(ctx, newCert("c1", "CERT-2026-AAAAAA", "CODE-1")))

	got, err := s.GetByID(ctx, "c1")
	require.NoError(t, err)
	got.CourseName = "mutated"

	again, err := s.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Intro to Security", again.CourseName)
}

func TestStore_Assignments(t *testing.T) {
	ctx := t.Context()
	s := NewStore()

	require.NoError(t, s.Create(ctx, newCert("c1", "CERT-2026-AAAAAA", "CODE-1")))

	first := cert.Assignment{CertificateID: "c1", RecipientID: "r1", AssignedAt: time.Now(), AssignedBy: "admin"}
	second := cert.Assignment{CertificateID: "c1", RecipientID: "r2", AssignedAt: time.Now(), AssignedBy: "admin"}

	require.NoError(t, s.AddAssignment(ctx, first))
	require.NoError(t, s.AddAssignment(ctx, second))
	// Duplicate pair is a no-op.
	require.NoError(t, s.AddAssignment(ctx, first))

	got, err := s.Assignments(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r1", got[0].RecipientID)
	assert.Equal(t, "r2", got[1].RecipientID)

	err = s.AddAssignment(ctx, cert.Assignment{CertificateID: "missing", RecipientID: "r1"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_Credentials(t *testing.T) {
	ctx := t.Context()
	s := NewStore()

	_, err := s.GetCredential(ctx, "owner-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	rec := &storage.CredentialRecord{OwnerID: "owner-1", DisplayName: "Jane Signer", Status: storage.CredentialActive}
	require.NoError(t, s.PutCredential(ctx, rec))

	got, err := s.GetCredential(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Signer", got.DisplayName)

	// Replace wholesale.
	rec2 := &storage.CredentialRecord{OwnerID: "owner-1", DisplayName: "New Signer", Status: storage.CredentialActive}
	require.NoError(t, s.PutCredential(ctx, rec2))
	got, err = s.GetCredential(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "New Signer", got.DisplayName)

	existed, err := s.DeleteCredential(ctx, "owner-1")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = s.DeleteCredential(ctx, "owner-1")
	require.NoError(t, err)
	assert.False(t, existed)
}
