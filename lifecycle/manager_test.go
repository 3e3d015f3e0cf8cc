package lifecycle_test

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	blobmemory "github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/blob/memory"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/cert"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/lifecycle"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/render"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/sign"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/storage"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/storage/memory"
)

type fakeRenderer struct {
	calls int
}

func (r *fakeRenderer) Render(f render.Fields) ([]byte, error) {
	r.calls++
	return []byte(fmt.Sprintf("%%PDF-fake|%s|%s|%s", f.RecipientName, f.CourseName, f.Number)), nil
}

type fakeSigner struct {
	calls int
}

func (s *fakeSigner) Sign(ctx context.Context, ownerID string, doc []byte) ([]byte, sign.Outcome) {
	s.calls++
	return append(doc, []byte("|signed")...), sign.OutcomeSigned
}

type fakeResolver map[string]lifecycle.Identity

func (r fakeResolver) Resolve(ctx context.Context, userID string) (lifecycle.Identity, error) {
	id, ok := r[userID]
	if !ok {
		return lifecycle.Identity{}, fmt.Errorf("unknown user %s", userID)
	}
	return id, nil
}

// fakeBlob counts uploads and can simulate an unreachable or write-failing
// store.
type fakeBlob struct {
	*blobmemory.Store
	down      bool
	uploadErr error
	uploads   int
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{Store: blobmemory.NewStore()}
}

func (b *fakeBlob) Available(ctx context.Context) bool { return !b.down }

func (b *fakeBlob) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	b.uploads++
	if b.uploadErr != nil {
		return b.uploadErr
	}
	return b.Store.Upload(ctx, key, data, contentType)
}

type fixture struct {
	manager  *lifecycle.Manager
	store    *memory.Store
	renderer *fakeRenderer
	signer   *fakeSigner
	blob     *fakeBlob
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.NewStore(),
		renderer: &fakeRenderer{},
		signer:   &fakeSigner{},
		blob:     newFakeBlob(),
	}
	resolver := fakeResolver{
		"issuer-1":    {ID: "issuer-1", DisplayName: "Dr. Pat Smith"},
		"recipient-1": {ID: "recipient-1", DisplayName: "Jane Doe", Number: "EMP-001"},
		"recipient-2": {ID: "recipient-2", DisplayName: "Sam Lee", Number: "EMP-002"},
	}
	f.manager = lifecycle.NewManager(f.store, f.renderer, f.signer, resolver,
		lifecycle.WithArtifactStore(f.blob))
	return f
}

func (f *fixture) draft(t *testing.T) *cert.Certificate {
	t.Helper()
	c, err := f.manager.Create(t.Context(), lifecycle.CreateInput{
		CourseName:  "Intro to Security",
		Institution: "Movilis Institute",
		IssueDate:   time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		IssuerID:    "issuer-1",
	})
	require.NoError(t, err)
	return c
}

func TestCreateGeneratesIdentifiers(t *testing.T) {
	f := newFixture(t)
	c := f.draft(t)

	assert.Regexp(t, regexp.MustCompile(`^CERT-2026-[23456789ABCDEFGHJKMNPQRSTVWXYZ]{8}$`), c.Number)
	assert.Len(t, c.VerificationCode, 12)
	assert.Equal(t, cert.StatusDraft, c.Status)
	assert.Empty(t, c.ArtifactID)
}

type collidingStore struct {
	*memory.Store
	failures int
}

func (s *collidingStore) Create(ctx context.Context, c *cert.Certificate) error {
	if s.failures > 0 {
		s.failures--
		return cert.ErrDuplicateIdentifier
	}
	return s.Store.Create(ctx, c)
}

func TestCreateRetriesOnceOnCollision(t *testing.T) {
	resolver := fakeResolver{"issuer-1": {ID: "issuer-1"}}

	m := lifecycle.NewManager(&collidingStore{Store: memory.NewStore(), failures: 1},
		&fakeRenderer{}, &fakeSigner{}, resolver)
	c, err := m.Create(t.Context(), lifecycle.CreateInput{CourseName: "X", IssuerID: "issuer-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, c.Number)

	m = lifecycle.NewManager(&collidingStore{Store: memory.NewStore(), failures: 2},
		&fakeRenderer{}, &fakeSigner{}, resolver)
	_, err = m.Create(t.Context(), lifecycle.CreateInput{CourseName: "X", IssuerID: "issuer-1"})
	assert.ErrorIs(t, err, cert.ErrDuplicateIdentifier)
}

func TestIssueHappyPath(t *testing.T) {
	f := newFixture(t)
	c := f.draft(t)
	require.NoError(t, f.manager.Assign(t.Context(), c.ID, "recipient-1", "issuer-1"))

	issued, err := f.manager.Issue(t.Context(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, cert.StatusIssued, issued.Status)
	assert.NotEmpty(t, issued.ArtifactID)

	data, err := f.blob.Download(t.Context(), issued.ArtifactID)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Jane Doe")
	assert.Contains(t, string(data), "|signed")

	res, err := f.manager.Verify(t.Context(), c.VerificationCode)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Reason)
}

func TestIssueIsIdempotent(t *testing.T) {
	f := newFixture(t)
	c := f.draft(t)
	require.NoError(t, f.manager.Assign(t.Context(), c.ID, "recipient-1", "issuer-1"))

	first, err := f.manager.Issue(t.Context(), c.ID)
	require.NoError(t, err)
	second, err := f.manager.Issue(t.Context(), c.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.renderer.calls)
	assert.Equal(t, 1, f.signer.calls)
	assert.Equal(t, 1, f.blob.uploads)
}

func TestIssueRegeneratesWhenArtifactDeletedOutOfBand(t *testing.T) {
	f := newFixture(t)
	c := f.draft(t)
	require.NoError(t, f.manager.Assign(t.Context(), c.ID, "recipient-1", "issuer-1"))

	issued, err := f.manager.Issue(t.Context(), c.ID)
	require.NoError(t, err)
	require.NoError(t, f.blob.Delete(t.Context(), issued.ArtifactID))

	_, err = f.manager.Issue(t.Context(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, f.renderer.calls)

	ok, err := f.blob.Exists(t.Context(), issued.ArtifactID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIssueToleratesUploadFailure(t *testing.T) {
	f := newFixture(t)
	f.blob.uploadErr = errors.New("bucket exploded")
	c := f.draft(t)
	require.NoError(t, f.manager.Assign(t.Context(), c.ID, "recipient-1", "issuer-1"))

	issued, err := f.manager.Issue(t.Context(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, cert.StatusIssued, issued.Status)
	assert.Empty(t, issued.ArtifactID)
}

func TestIssueRevokedRejected(t *testing.T) {
	f := newFixture(t)
	c := f.draft(t)
	_, err := f.manager.Revoke(t.Context(), c.ID)
	require.NoError(t, err)

	_, err = f.manager.Issue(t.Context(), c.ID)
	assert.ErrorIs(t, err, cert.ErrImmutable)
}

func TestUpdateDraftOnly(t *testing.T) {
	f := newFixture(t)
	c := f.draft(t)

	updated, err := f.manager.Update(t.Context(), c.ID, lifecycle.UpdateInput{CourseName: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.CourseName)

	require.NoError(t, f.manager.Assign(t.Context(), c.ID, "recipient-1", "issuer-1"))
	_, err = f.manager.Issue(t.Context(), c.ID)
	require.NoError(t, err)

	_, err = f.manager.Update(t.Context(), c.ID, lifecycle.UpdateInput{CourseName: "Too late"})
	assert.ErrorIs(t, err, cert.ErrImmutable)
}

func TestAssignDuplicateIsNoOp(t *testing.T) {
	f := newFixture(t)
	c := f.draft(t)

	require.NoError(t, f.manager.Assign(t.Context(), c.ID, "recipient-1", "issuer-1"))
	require.NoError(t, f.manager.Assign(t.Context(), c.ID, "recipient-1", "issuer-1"))

	assignments, err := f.store.Assignments(t.Context(), c.ID)
	require.NoError(t, err)
	assert.Len(t, assignments, 1)
}

func TestArtifactServesStoredCopy(t *testing.T) {
	f := newFixture(t)
	c := f.draft(t)
	require.NoError(t, f.manager.Assign(t.Context(), c.ID, "recipient-1", "issuer-1"))
	_, err := f.manager.Issue(t.Context(), c.ID)
	require.NoError(t, err)

	data, err := f.manager.Artifact(t.Context(), c.ID, "")
	require.NoError(t, err)
	assert.Contains(t, string(data), "Jane Doe")
	assert.Equal(t, 1, f.renderer.calls)
}

func TestArtifactRegeneratesOnMiss(t *testing.T) {
	f := newFixture(t)
	c := f.draft(t)
	require.NoError(t, f.manager.Assign(t.Context(), c.ID, "recipient-1", "issuer-1"))
	issued, err := f.manager.Issue(t.Context(), c.ID)
	require.NoError(t, err)
	require.NoError(t, f.blob.Delete(t.Context(), issued.ArtifactID))

	data, err := f.manager.Artifact(t.Context(), c.ID, "")
	require.NoError(t, err)
	assert.Contains(t, string(data), "Jane Doe")
	assert.Equal(t, 2, f.renderer.calls)
	assert.Equal(t, 2, f.blob.uploads)
}

func TestArtifactStorageOutageServesInline(t *testing.T) {
	f := newFixture(t)
	c := f.draft(t)
	require.NoError(t, f.manager.Assign(t.Context(), c.ID, "recipient-1", "issuer-1"))
	f.blob.down = true

	data, err := f.manager.Artifact(t.Context(), c.ID, "")
	require.NoError(t, err)
	assert.Contains(t, string(data), "Jane Doe")
	assert.Contains(t, string(data), "|signed")

	stored, err := f.store.GetByID(t.Context(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, cert.StatusIssued, stored.Status)
	assert.Empty(t, stored.ArtifactID)
	assert.Zero(t, f.blob.uploads)
}

func TestArtifactRegenerationKeepsRevocation(t *testing.T) {
	f := newFixture(t)
	c := f.draft(t)
	require.NoError(t, f.manager.Assign(t.Context(), c.ID, "recipient-1", "issuer-1"))
	issued, err := f.manager.Issue(t.Context(), c.ID)
	require.NoError(t, err)

	_, err = f.manager.Revoke(t.Context(), c.ID)
	require.NoError(t, err)
	require.NoError(t, f.blob.Delete(t.Context(), issued.ArtifactID))

	_, err = f.manager.Artifact(t.Context(), c.ID, "")
	require.NoError(t, err)

	stored, err := f.store.GetByID(t.Context(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, cert.StatusRevoked, stored.Status)

	res, err := f.manager.Verify(t.Context(), c.VerificationCode)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, cert.ReasonRevoked, res.Reason)
}

func TestArtifactDegradedModeKeepsRevocation(t *testing.T) {
	f := newFixture(t)
	c := f.draft(t)
	require.NoError(t, f.manager.Assign(t.Context(), c.ID, "recipient-1", "issuer-1"))
	_, err := f.manager.Issue(t.Context(), c.ID)
	require.NoError(t, err)

	_, err = f.manager.Revoke(t.Context(), c.ID)
	require.NoError(t, err)
	f.blob.down = true

	_, err = f.manager.Artifact(t.Context(), c.ID, "")
	require.NoError(t, err)

	stored, err := f.store.GetByID(t.Context(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, cert.StatusRevoked, stored.Status)

	res, err := f.manager.Verify(t.Context(), c.VerificationCode)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, cert.ReasonRevoked, res.Reason)
}

func TestArtifactViewerPersonalization(t *testing.T) {
	f := newFixture(t)
	c := f.draft(t)
	require.NoError(t, f.manager.Assign(t.Context(), c.ID, "recipient-1", "issuer-1"))
	require.NoError(t, f.manager.Assign(t.Context(), c.ID, "recipient-2", "issuer-1"))
	_, err := f.manager.Issue(t.Context(), c.ID)
	require.NoError(t, err)

	data, err := f.manager.Artifact(t.Context(), c.ID, "recipient-2")
	require.NoError(t, err)
	assert.Contains(t, string(data), "Sam Lee")

	// The stored artifact keeps the primary recipient's name.
	stored, err := f.manager.Artifact(t.Context(), c.ID, "recipient-1")
	require.NoError(t, err)
	assert.Contains(t, string(stored), "Jane Doe")

	_, err = f.manager.Artifact(t.Context(), c.ID, "recipient-99")
	assert.ErrorIs(t, err, cert.ErrNotAssigned)
}

type flakyAssignmentStore struct {
	*memory.Store
	failures int
}

func (s *flakyAssignmentStore) Assignments(ctx context.Context, certID string) ([]cert.Assignment, error) {
	if s.failures > 0 {
		s.failures--
		return nil, errors.New("assignments down")
	}
	return s.Store.Assignments(ctx, certID)
}

func TestArtifactViewerLookupPropagatesStoreErrors(t *testing.T) {
	store := &flakyAssignmentStore{Store: memory.NewStore()}
	resolver := fakeResolver{
		"issuer-1":    {ID: "issuer-1", DisplayName: "Dr. Pat Smith"},
		"recipient-1": {ID: "recipient-1", DisplayName: "Jane Doe"},
	}
	m := lifecycle.NewManager(store, &fakeRenderer{}, &fakeSigner{}, resolver,
		lifecycle.WithArtifactStore(newFakeBlob()))

	c, err := m.Create(t.Context(), lifecycle.CreateInput{CourseName: "X", IssuerID: "issuer-1"})
	require.NoError(t, err)
	require.NoError(t, m.Assign(t.Context(), c.ID, "recipient-1", "issuer-1"))
	_, err = m.Issue(t.Context(), c.ID)
	require.NoError(t, err)

	// A failed primary lookup must surface, not demote the viewer to a
	// personalized inline render.
	store.failures = 1
	_, err = m.Artifact(t.Context(), c.ID, "recipient-1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, cert.ErrNotAssigned)
}

func TestVerifyOutcomes(t *testing.T) {
	f := newFixture(t)

	res, err := f.manager.Verify(t.Context(), "NOSUCHCODE")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, cert.ReasonNotFound, res.Reason)

	past := time.Now().Add(-24 * time.Hour)
	expired, err := f.manager.Create(t.Context(), lifecycle.CreateInput{
		CourseName:     "Old Course",
		IssuerID:       "issuer-1",
		ExpirationDate: &past,
	})
	require.NoError(t, err)

	res, err = f.manager.Verify(t.Context(), expired.VerificationCode)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, cert.ReasonExpired, res.Reason)

	// Revocation wins even when the certificate is also expired.
	_, err = f.manager.Revoke(t.Context(), expired.ID)
	require.NoError(t, err)
	res, err = f.manager.Verify(t.Context(), expired.VerificationCode)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, cert.ReasonRevoked, res.Reason)
}

func TestVerifyPropagatesStoreErrors(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Verify(t.Context(), "whatever")
	require.NoError(t, err)

	m := lifecycle.NewManager(failingCertStore{}, f.renderer, f.signer, fakeResolver{})
	_, err = m.Verify(t.Context(), "whatever")
	assert.Error(t, err)
}

type failingCertStore struct{}

func (failingCertStore) Create(context.Context, *cert.Certificate) error { return errors.New("down") }
func (failingCertStore) Update(context.Context, *cert.Certificate) error { return errors.New("down") }
func (failingCertStore) GetByID(context.Context, string) (*cert.Certificate, error) {
	return nil, errors.New("down")
}
func (failingCertStore) GetByNumber(context.Context, string) (*cert.Certificate, error) {
	return nil, errors.New("down")
}
func (failingCertStore) GetByCode(context.Context, string) (*cert.Certificate, error) {
	return nil, errors.New("down")
}
func (failingCertStore) Delete(context.Context, string) error { return errors.New("down") }
func (failingCertStore) AddAssignment(context.Context, cert.Assignment) error {
	return errors.New("down")
}
func (failingCertStore) Assignments(context.Context, string) ([]cert.Assignment, error) {
	return nil, errors.New("down")
}

var _ storage.CertificateStore = failingCertStore{}
