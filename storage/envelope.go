package storage

import (
	"fmt"

	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/internal/util"
)

// Envelope is a sealed blob: AES-256-GCM ciphertext with its nonce, stored as
// a pair so each encryption call carries its own fresh IV.
type Envelope struct {
	Ver        int    `json:"ver"`
	Scheme     string `json:"scheme"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Seal encrypts plaintext under key with the given AAD.
func Seal(key, plaintext, aad []byte) (Envelope, error) {
	nonce, ciphertext, err := util.EncryptAES(plaintext, key, aad)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Ver:        1,
		Scheme:     "aes256gcm",
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}, nil
}

// Open decrypts an Envelope sealed with Seal.
func Open(key []byte, env Envelope, aad []byte) ([]byte, error) {
	if env.Ver != 1 {
		return nil, fmt.Errorf("unsupported envelope version: %d", env.Ver)
	}
	if env.Scheme != "aes256gcm" {
		return nil, fmt.Errorf("unsupported envelope scheme: %s", env.Scheme)
	}
	return util.DecryptAES(env.Nonce, env.Ciphertext, key, aad)
}
