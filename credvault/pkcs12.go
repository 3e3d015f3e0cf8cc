package credvault

import (
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"

	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

// decodeContainer parses a PKCS#12 container and classifies failures so the
// caller can tell "wrong secret" apart from "not a PKCS#12 file".
func decodeContainer(raw []byte, secret string) (*x509.Certificate, error) {
	_, leaf, _, err := pkcs12.DecodeChain(raw, secret)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) || errors.Is(err, pkcs12.ErrDecryption) {
			return nil, fmt.Errorf("%w: %v", ErrWrongSecret, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if leaf == nil {
		return nil, fmt.Errorf("%w: container holds no certificate", ErrInvalidCredential)
	}
	return leaf, nil
}

// displayName picks the most specific subject attribute available:
// common name, then organization, then organizational unit.
func displayName(c *x509.Certificate) string {
	if c.Subject.CommonName != "" {
		return c.Subject.CommonName
	}
	if len(c.Subject.Organization) > 0 {
		return c.Subject.Organization[0]
	}
	if len(c.Subject.OrganizationalUnit) > 0 {
		return c.Subject.OrganizationalUnit[0]
	}
	return ""
}

// authorityName reports who issued the credential: common name, then
// organization.
func authorityName(c *x509.Certificate) string {
	if c.Issuer.CommonName != "" {
		return c.Issuer.CommonName
	}
	if len(c.Issuer.Organization) > 0 {
		return c.Issuer.Organization[0]
	}
	return ""
}

func serialHex(c *x509.Certificate) string {
	return hex.EncodeToString(c.SerialNumber.Bytes())
}
