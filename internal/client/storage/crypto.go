package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
)

// SaltSize is the length of the random per-file salt.
const SaltSize = 16

// NewAEAD derives an AES-256-GCM cipher from the server URL and a local salt,
// so a session file only opens for the server it was written for.
//
// The key material is stored next to the ciphertext, so this only keeps the
// token out of plain sight. The session file's 0600 mode is what protects
// it from other local users.
func NewAEAD(serverURL string, salt []byte) (cipher.AEAD, error) {
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(serverURL))
	block, err := aes.NewCipher(h.Sum(nil))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	return aead, nil
}

// seal encrypts plain and returns nonce || ciphertext.
func seal(aead cipher.AEAD, plain []byte) ([]byte, error) {
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plain, nil), nil
}

// open reverses seal.
func open(aead cipher.AEAD, data []byte) ([]byte, error) {
	if len(data) < aead.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ct := data[:aead.NonceSize()], data[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plain, nil
}
