package cert

import "errors"

var (
	// ErrImmutable indicates an update attempt against an issued certificate.
	ErrImmutable = errors.New("issued certificate is immutable")
	// ErrDuplicateIdentifier indicates a unique-constraint violation on the
	// certificate number or verification code.
	ErrDuplicateIdentifier = errors.New("duplicate certificate identifier")
	// ErrArtifactUnavailable indicates the signed document could not be
	// retrieved even after a regeneration attempt.
	ErrArtifactUnavailable = errors.New("certificate artifact unavailable")
	// ErrNotAssigned indicates the viewing user is not an assigned recipient
	// of the certificate.
	ErrNotAssigned = errors.New("user is not an assigned recipient")
)
