package util

import (
	"bytes"
	"strings"
	"testing"
)

func TestAES(t *testing.T) {
	key, _ := NewAESKey()
	plainText := []byte("hello world")
	aad := []byte("context")

	t.Run("EncryptDecryptWithAAD", func(t *testing.T) {
		nonce, cipherText, err := EncryptAES(plainText, key, aad)
		if err != nil {
			t.Fatalf("EncryptAES failed: %v", err)
		}
		if len(nonce) != 12 {
			t.Errorf("expected 12-byte nonce, got %d", len(nonce))
		}

		decrypted, err := DecryptAES(nonce, cipherText, key, aad)
		if err != nil {
			t.Fatalf("DecryptAES failed: %v", err)
		}

		if !bytes.Equal(plainText, decrypted) {
			t.Errorf("expected %s, got %s", plainText, decrypted)
		}
	})

	t.Run("TamperAAD", func(t *testing.T) {
		nonce, cipherText, _ := EncryptAES(plainText, key, aad)
		_, err := DecryptAES(nonce, cipherText, key, []byte("wrong context"))
		if err == nil {
			t.Error("expected error with wrong AAD, got nil")
		}
	})

	t.Run("TamperCipherText", func(t *testing.T) {
		nonce, cipherText, _ := EncryptAES(plainText, key, aad)
		cipherText[len(cipherText)-1] ^= 0xFF
		_, err := DecryptAES(nonce, cipherText, key, aad)
		if err == nil {
			t.Error("expected error with tampered ciphertext, got nil")
		}
	})

	t.Run("WrongKey", func(t *testing.T) {
		nonce, cipherText, _ := EncryptAES(plainText, key, aad)
		wrongKey, _ := NewAESKey()
		_, err := DecryptAES(nonce, cipherText, wrongKey, aad)
		if err == nil {
			t.Error("expected error with wrong key, got nil")
		}
	})

	t.Run("RejectBadKeySize", func(t *testing.T) {
		_, _, err := EncryptAES(plainText, []byte("too short"), aad)
		if err == nil {
			t.Error("expected error with wrong key size, got nil")
		}
	})

	t.Run("FreshNoncePerCall", func(t *testing.T) {
		n1, _, _ := EncryptAES(plainText, key, aad)
		n2, _, _ := EncryptAES(plainText, key, aad)
		if bytes.Equal(n1, n2) {
			t.Error("expected distinct nonces for repeated encryption")
		}
	})
}

func TestDeriveArgon2idKey(t *testing.T) {
	params := DefaultArgon2idParams()
	salt := []byte("0123456789abcdef")

	k1, err := DeriveArgon2idKey("passphrase", salt, params)
	if err != nil {
		t.Fatalf("DeriveArgon2idKey failed: %v", err)
	}
	k2, err := DeriveArgon2idKey("passphrase", salt, params)
	if err != nil {
		t.Fatalf("DeriveArgon2idKey failed: %v", err)
	}
	if !bytes.Equal(k1, k2) {
		t.Error("expected deterministic derivation")
	}

	k3, _ := DeriveArgon2idKey("other passphrase", salt, params)
	if bytes.Equal(k1, k3) {
		t.Error("expected different keys for different passphrases")
	}

	t.Run("EmptySalt", func(t *testing.T) {
		_, err := DeriveArgon2idKey("passphrase", nil, params)
		if err == nil {
			t.Error("expected error with empty salt")
		}
	})

	t.Run("BadKeyLen", func(t *testing.T) {
		bad := params
		bad.KeyLen = 16
		_, err := DeriveArgon2idKey("passphrase", salt, bad)
		if err == nil {
			t.Error("expected error with non-32-byte key length")
		}
	})
}

func TestRandomChars(t *testing.T) {
	code, err := RandomChars(12)
	if err != nil {
		t.Fatalf("RandomChars failed: %v", err)
	}
	if len(code) != 12 {
		t.Errorf("expected 12 chars, got %d", len(code))
	}
	for _, r := range code {
		if strings.ContainsRune("01ILOU", r) {
			t.Errorf("ambiguous character %c in code %s", r, code)
		}
	}

	other, _ := RandomChars(12)
	if code == other {
		t.Error("expected distinct codes")
	}
}

func TestWipeBytes(t *testing.T) {
	b := []byte{1, 2, 3}
	WipeBytes(b)
	if !bytes.Equal(b, []byte{0, 0, 0}) {
		t.Errorf("expected zeroed slice, got %v", b)
	}
}

func TestNormalize(t *testing.T) {
	// Composed vs decomposed é must normalize identically.
	if Normalize("José") != Normalize("José") {
		t.Error("expected NFKD to unify composed and decomposed forms")
	}
}
