package storage

import (
	"bytes"
	"testing"
)

func TestNewAEAD_RoundTrip(t *testing.T) {
	salt := bytes.Repeat([]byte{7}, SaltSize)

	aead1, err := NewAEAD("https://localhost:8080", salt)
	if err != nil {
		t.Fatalf("derive AEAD failed: %v", err)
	}
	aead2, err := NewAEAD("https://localhost:8080", salt)
	if err != nil {
		t.Fatalf("derive AEAD second time: %v", err)
	}

	// same inputs => same key, so we can encrypt with aead1 and decrypt with aead2
	ct, err := seal(aead1, []byte("helloworld"))
	if err != nil {
		t.Fatal(err)
	}
	plain, err := open(aead2, ct)
	if err != nil {
		t.Fatalf("decrypt with second AEAD failed: %v", err)
	}
	if !bytes.Equal(plain, []byte("helloworld")) {
		t.Errorf("decrypted = %q; want %q", plain, "helloworld")
	}
}

func TestNewAEAD_KeyDependsOnInputs(t *testing.T) {
	salt := bytes.Repeat([]byte{1}, SaltSize)
	base, _ := NewAEAD("https://a.example", salt)
	ct, err := seal(base, []byte("token"))
	if err != nil {
		t.Fatal(err)
	}

	otherServer, _ := NewAEAD("https://b.example", salt)
	if _, err := open(otherServer, ct); err == nil {
		t.Error("expected decryption to fail for a different server")
	}
	otherSalt, _ := NewAEAD("https://a.example", bytes.Repeat([]byte{2}, SaltSize))
	if _, err := open(otherSalt, ct); err == nil {
		t.Error("expected decryption to fail for a different salt")
	}
	if _, err := open(base, ct[:3]); err == nil {
		t.Error("expected an error for truncated ciphertext")
	}
}
