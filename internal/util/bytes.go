package util

import (
	"golang.org/x/text/unicode/norm"
)

func CopyBytes(src []byte) []byte {
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}

// WipeBytes best-effort zeroes the provided byte slice in place.
func WipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Normalize applies NFKD so that visually identical names compare and
// measure identically regardless of how they were typed.
func Normalize(s string) string {
	return norm.NFKD.String(s)
}
