package credvault

import "errors"

var (
	// ErrInvalidCredential indicates the uploaded bytes are not a parseable
	// PKCS#12 container.
	ErrInvalidCredential = errors.New("invalid signing credential")
	// ErrWrongSecret indicates the container is well-formed but the unlock
	// secret does not match (MAC verification or decryption failure).
	ErrWrongSecret = errors.New("incorrect credential unlock secret")
	// ErrUnsupportedFile indicates the upload is not a .p12/.pfx file.
	ErrUnsupportedFile = errors.New("credential file must be .p12 or .pfx")
	// ErrTooLarge indicates the upload exceeds the size ceiling.
	ErrTooLarge = errors.New("credential file exceeds size limit")
)
