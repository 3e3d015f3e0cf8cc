// Package testutil builds test fixtures shared across packages.
package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

// P12Options controls the generated credential.
type P12Options struct {
	CommonName   string
	Organization string
	Locality     string
	Email        string
	IssuerCN     string
	NotBefore    time.Time
	NotAfter     time.Time
	Password     string
}

// MakePKCS12 builds a self-signed certificate plus key and packs them into a
// PKCS#12 container protected by opts.Password.
func MakePKCS12(t *testing.T, opts P12Options) []byte {
	t.Helper()

	if opts.CommonName == "" && opts.Organization == "" {
		opts.CommonName = "Test Signer"
	}
	if opts.IssuerCN == "" {
		opts.IssuerCN = opts.CommonName
	}
	if opts.NotBefore.IsZero() {
		opts.NotBefore = time.Now().Add(-time.Hour)
	}
	if opts.NotAfter.IsZero() {
		opts.NotAfter = time.Now().AddDate(1, 0, 0)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}

	subject := pkix.Name{CommonName: opts.CommonName}
	if opts.Organization != "" {
		subject.Organization = []string{opts.Organization}
	}
	if opts.Locality != "" {
		subject.Locality = []string{opts.Locality}
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1912),
		Subject:      subject,
		NotBefore:    opts.NotBefore,
		NotAfter:     opts.NotAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	if opts.Email != "" {
		template.EmailAddresses = []string{opts.Email}
	}
	// The parent contributes the issuer name; the same key signs, which is
	// fine for fixtures since nothing verifies the chain.
	parent := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: opts.IssuerCN},
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, template, parent, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("creating certificate: %v", err)
	}
	leaf, err := x509.ParseCertificate(derBytes)
	if err != nil {
		t.Fatalf("parsing certificate: %v", err)
	}

	pfx, err := pkcs12.Modern.Encode(key, leaf, nil, opts.Password)
	if err != nil {
		t.Fatalf("encoding PKCS#12: %v", err)
	}
	return pfx
}
