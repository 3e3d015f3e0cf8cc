package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Alphabet for human-facing identifiers: no 0/O, 1/I/L or U to avoid
// transcription mistakes when a code is read aloud or typed from paper.
var allowedRandomChars = []rune("23456789ABCDEFGHJKMNPQRSTVWXYZ")

// RandomChars returns n characters drawn from the unambiguous alphabet.
func RandomChars(n int) (string, error) {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		idx, err := RandomIntn(len(allowedRandomChars))
		if err != nil {
			return "", fmt.Errorf("generating random char index: %w", err)
		}
		sb.WriteRune(allowedRandomChars[idx])
	}
	return sb.String(), nil
}

func RandomIntn(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, fmt.Errorf("generating random number: %w", err)
	}
	return int(n.Int64()), nil
}
