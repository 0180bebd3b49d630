// Package storage holds the command-line client's local state and its
// connection to the case-opening API.
package storage

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

var (
	// ErrNoSession is returned when no session is stored for the server.
	ErrNoSession = errors.New("not logged in")
	// ErrInsecureSession is returned when the session file is accessible
	// to other users.
	ErrInsecureSession = errors.New("session file is accessible by other users; log in again")
)

// Session is what the client remembers between invocations.
type Session struct {
	Server    string    `json:"server"`
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// sessionFile is the on-disk layout; Data is nonce || ciphertext of a
// JSON-encoded Session.
type sessionFile struct {
	Salt []byte `json:"salt"`
	Data []byte `json:"data"`
}

// SessionStore persists one session in a file readable only by its owner.
// The token is encrypted, but see NewAEAD: the file mode is the protection.
type SessionStore struct {
	Path string
}

// DefaultSessionPath returns ~/.horoscase/session.json.
func DefaultSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home dir: %w", err)
	}
	return filepath.Join(home, ".horoscase", "session.json"), nil
}

// Save encrypts s under a fresh salt and writes it with 0600 permissions.
func (st *SessionStore) Save(s Session) error {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	aead, err := NewAEAD(s.Server, salt)
	if err != nil {
		return err
	}
	plain, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	data, err := seal(aead, plain)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(sessionFile{Salt: salt, Data: data})
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(st.Path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := st.Path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, st.Path)
}

// Load returns the session stored for server. A missing file, or a file
// written for another server, yields ErrNoSession. A file that group or
// others may access yields ErrInsecureSession.
func (st *SessionStore) Load(server string) (Session, error) {
	info, err := os.Stat(st.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("stat session: %w", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o077 != 0 {
		return Session{}, ErrInsecureSession
	}
	raw, err := os.ReadFile(st.Path)
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	var f sessionFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return Session{}, fmt.Errorf("parse session file: %w", err)
	}
	aead, err := NewAEAD(server, f.Salt)
	if err != nil {
		return Session{}, err
	}
	plain, err := open(aead, f.Data)
	if err != nil {
		return Session{}, ErrNoSession
	}
	var s Session
	if err := json.Unmarshal(plain, &s); err != nil {
		return Session{}, fmt.Errorf("parse session: %w", err)
	}
	return s, nil
}

// Clear removes the stored session. Clearing an absent session is not an
// error.
func (st *SessionStore) Clear() error {
	if err := os.Remove(st.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
