// Package credvault stores issuers' personal PKCS#12 signing credentials
// encrypted at rest. The container bytes and the unlock secret are sealed
// independently under a key derived from a server-held master passphrase;
// extracted certificate metadata is kept in the clear for status queries.
package credvault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/awnumar/memguard"

	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/internal/util"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/storage"
)

// MaxContainerSize is the upload ceiling for PKCS#12 payloads. Checked before
// any cryptographic work.
const MaxContainerSize = 5 << 20 // 5 MiB

// kdfSalt is fixed: the master key must derive deterministically across
// restarts so previously sealed credentials stay readable.
var kdfSalt = []byte("movilis/credvault/v1")

// Status is the public metadata of a stored credential. It never carries
// secret material.
type Status struct {
	OwnerID      string    `json:"owner_id"`
	DisplayName  string    `json:"display_name"`
	Authority    string    `json:"authority"`
	SerialNumber string    `json:"serial_number"`
	NotBefore    time.Time `json:"not_before"`
	NotAfter     time.Time `json:"not_after"`
	Expired      bool      `json:"expired"`
}

// Vault seals and unseals signing credentials. The encryption key lives in a
// memguard enclave and is derived once at construction; there is no ambient
// global key.
type Vault struct {
	store  storage.CredentialStore
	key    *memguard.Enclave
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Vault.
type Option func(*Vault)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Vault) { v.logger = logger }
}

// WithClock overrides the time source, for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(v *Vault) { v.now = now }
}

// New derives the vault's encryption key from masterPassphrase via Argon2id
// and returns a ready Vault.
func New(store storage.CredentialStore, masterPassphrase string, opts ...Option) (*Vault, error) {
	if masterPassphrase == "" {
		return nil, fmt.Errorf("master passphrase must not be empty")
	}
	rawKey, err := util.DeriveArgon2idKey(masterPassphrase, kdfSalt, util.DefaultArgon2idParams())
	if err != nil {
		return nil, fmt.Errorf("deriving vault key: %w", err)
	}

	v := &Vault{
		store: store,
		// NewEnclave wipes rawKey after sealing it.
		key:    memguard.NewEnclave(rawKey),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With("component", "credvault")
	return v, nil
}

func validateUpload(fileName string, raw []byte) error {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".p12", ".pfx":
	default:
		return fmt.Errorf("%w: got %q", ErrUnsupportedFile, fileName)
	}
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidCredential)
	}
	if len(raw) > MaxContainerSize {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, len(raw))
	}
	return nil
}

func containerAAD(ownerID string) []byte { return []byte(ownerID + ":container") }
func secretAAD(ownerID string) []byte    { return []byte(ownerID + ":secret") }

// StoreCredential validates, parses and seals a PKCS#12 credential, replacing
// any prior credential for the same owner. Validation failures leave the
// owner's stored credential untouched.
func (v *Vault) StoreCredential(ctx context.Context, ownerID, fileName string, raw []byte, unlockSecret string) (*Status, error) {
	if err := validateUpload(fileName, raw); err != nil {
		return nil, err
	}

	leaf, err := decodeContainer(raw, unlockSecret)
	if err != nil {
		return nil, err
	}

	keyBuf, err := v.key.Open()
	if err != nil {
		return nil, fmt.Errorf("opening vault key: %w", err)
	}
	defer keyBuf.Destroy()

	containerEnv, err := storage.Seal(keyBuf.Bytes(), raw, containerAAD(ownerID))
	if err != nil {
		return nil, fmt.Errorf("sealing container: %w", err)
	}
	secretEnv, err := storage.Seal(keyBuf.Bytes(), []byte(unlockSecret), secretAAD(ownerID))
	if err != nil {
		return nil, fmt.Errorf("sealing unlock secret: %w", err)
	}

	now := v.now()
	status := storage.CredentialActive
	if now.After(leaf.NotAfter) {
		status = storage.CredentialExpired
	}

	rec := &storage.CredentialRecord{
		OwnerID:      ownerID,
		DisplayName:  displayName(leaf),
		Authority:    authorityName(leaf),
		SerialNumber: serialHex(leaf),
		NotBefore:    leaf.NotBefore,
		NotAfter:     leaf.NotAfter,
		Status:       status,
		Container:    containerEnv,
		Secret:       secretEnv,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := v.store.PutCredential(ctx, rec); err != nil {
		return nil, fmt.Errorf("persisting credential: %w", err)
	}

	v.logger.Info("signing credential stored",
		"owner_id", ownerID,
		"display_name", rec.DisplayName,
		"not_after", rec.NotAfter)

	return statusOf(rec, now), nil
}

// GetCredential returns the original container bytes and unlock secret.
// A missing credential is reported via ok=false, not an error; signing is
// optional.
func (v *Vault) GetCredential(ctx context.Context, ownerID string) (raw []byte, unlockSecret string, ok bool, err error) {
	rec, err := v.store.GetCredential(ctx, ownerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", false, nil
		}
		return nil, "", false, err
	}

	keyBuf, err := v.key.Open()
	if err != nil {
		return nil, "", false, fmt.Errorf("opening vault key: %w", err)
	}
	defer keyBuf.Destroy()

	raw, err = storage.Open(keyBuf.Bytes(), rec.Container, containerAAD(ownerID))
	if err != nil {
		return nil, "", false, fmt.Errorf("unsealing container: %w", err)
	}
	secretBytes, err := storage.Open(keyBuf.Bytes(), rec.Secret, secretAAD(ownerID))
	if err != nil {
		return nil, "", false, fmt.Errorf("unsealing unlock secret: %w", err)
	}

	return raw, string(secretBytes), true, nil
}

// GetStatus returns credential metadata without secret material. If the
// validity window has closed since the last read, the stored status flips to
// expired before the result is returned.
func (v *Vault) GetStatus(ctx context.Context, ownerID string) (*Status, bool, error) {
	rec, err := v.store.GetCredential(ctx, ownerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	now := v.now()
	if rec.Status == storage.CredentialActive && now.After(rec.NotAfter) {
		rec.Status = storage.CredentialExpired
		rec.UpdatedAt = now
		if err := v.store.PutCredential(ctx, rec); err != nil {
			// The computed result is still correct; the flip retries on the
			// next read.
			v.logger.Warn("persisting lazy expiry failed", "owner_id", ownerID, "error", err)
		}
	}

	return statusOf(rec, now), true, nil
}

// DeleteCredential removes the owner's credential and reports whether one
// existed.
func (v *Vault) DeleteCredential(ctx context.Context, ownerID string) (bool, error) {
	existed, err := v.store.DeleteCredential(ctx, ownerID)
	if err != nil {
		return false, err
	}
	if existed {
		v.logger.Info("signing credential deleted", "owner_id", ownerID)
	}
	return existed, nil
}

func statusOf(rec *storage.CredentialRecord, now time.Time) *Status {
	return &Status{
		OwnerID:      rec.OwnerID,
		DisplayName:  rec.DisplayName,
		Authority:    rec.Authority,
		SerialNumber: rec.SerialNumber,
		NotBefore:    rec.NotBefore,
		NotAfter:     rec.NotAfter,
		Expired:      now.After(rec.NotAfter),
	}
}
