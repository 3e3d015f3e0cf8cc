// Package sign applies a digital signature to rendered certificate
// documents using the issuer's stored signing credential. Signing is best
// effort: every failure mode degrades to returning the document unsigned.
package sign

import (
	"bytes"
	"context"
	"crypto"
	"crypto/x509"
	"fmt"
	"log/slog"
	"time"

	"github.com/digitorus/pdf"
	pdfsign "github.com/digitorus/pdfsign/sign"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/credvault"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/internal/util"
)

// Outcome reports whether the returned document carries a signature.
type Outcome string

const (
	OutcomeSigned   Outcome = "signed"
	OutcomeUnsigned Outcome = "unsigned"
)

const signingReason = "Certificate of completion"

// Signer signs documents with credentials held in a vault.
type Signer struct {
	vault    *credvault.Vault
	location string
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Signer.
type Option func(*Signer)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Signer) { s.logger = logger }
}

// WithClock overrides the time source used for the signature timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) { s.now = now }
}

// WithLocation sets the signing location recorded in the signature
// dictionary. When unset, the location falls back to the credential
// certificate's locality or organization.
func WithLocation(location string) Option {
	return func(s *Signer) { s.location = location }
}

// New returns a Signer backed by the given vault.
func New(vault *credvault.Vault, opts ...Option) *Signer {
	s := &Signer{vault: vault, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "sign")
	return s
}

// Sign returns doc with the owner's signature applied. When the owner has no
// stored credential, or the credential cannot be used, the original document
// comes back with OutcomeUnsigned. Sign never fails the caller's operation.
func (s *Signer) Sign(ctx context.Context, ownerID string, doc []byte) ([]byte, Outcome) {
	container, secret, ok, err := s.vault.GetCredential(ctx, ownerID)
	if err != nil {
		s.logger.Warn("credential lookup failed, leaving document unsigned",
			"owner_id", ownerID, "error", err)
		return doc, OutcomeUnsigned
	}
	if !ok {
		s.logger.Debug("no signing credential on file", "owner_id", ownerID)
		return doc, OutcomeUnsigned
	}
	defer util.WipeBytes(container)

	signed, err := s.apply(doc, container, secret)
	if err != nil {
		s.logger.Warn("signing failed, leaving document unsigned",
			"owner_id", ownerID, "error", err)
		return doc, OutcomeUnsigned
	}
	return signed, OutcomeSigned
}

func (s *Signer) apply(doc, container []byte, secret string) ([]byte, error) {
	priv, leaf, caCerts, err := pkcs12.DecodeChain(container, secret)
	if err != nil {
		return nil, fmt.Errorf("decoding credential container: %w", err)
	}
	cryptoSigner, ok := priv.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("credential key type %T cannot sign", priv)
	}

	rdr, err := pdf.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	var chains [][]*x509.Certificate
	if len(caCerts) > 0 {
		chain := append([]*x509.Certificate{leaf}, caCerts...)
		chains = [][]*x509.Certificate{chain}
	}

	location := s.location
	if location == "" {
		switch {
		case len(leaf.Subject.Locality) > 0:
			location = leaf.Subject.Locality[0]
		case len(leaf.Subject.Organization) > 0:
			location = leaf.Subject.Organization[0]
		}
	}
	var contact string
	if len(leaf.EmailAddresses) > 0 {
		contact = leaf.EmailAddresses[0]
	}

	var out bytes.Buffer
	err = pdfsign.Sign(bytes.NewReader(doc), &out, rdr, int64(len(doc)), pdfsign.SignData{
		Signature: pdfsign.SignDataSignature{
			Info: pdfsign.SignDataSignatureInfo{
				Name:        leaf.Subject.CommonName,
				Location:    location,
				Reason:      signingReason,
				ContactInfo: contact,
				Date:        s.now(),
			},
			CertType:   pdfsign.CertificationSignature,
			DocMDPPerm: pdfsign.AllowFillingExistingFormFieldsAndSignaturesPerms,
		},
		Signer:            cryptoSigner,
		DigestAlgorithm:   crypto.SHA256,
		Certificate:       leaf,
		CertificateChains: chains,
	})
	if err != nil {
		return nil, fmt.Errorf("applying signature: %w", err)
	}
	return out.Bytes(), nil
}
