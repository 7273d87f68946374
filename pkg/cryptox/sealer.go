package cryptox

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// KeyMaterialSize is the size of a generated key file.
const KeyMaterialSize = 32

var (
	ErrEmptySecret = errors.New("cryptox: empty key material")
	ErrShortSealed = errors.New("cryptox: sealed value too short")
	ErrOpen        = errors.New("cryptox: unable to open sealed value")
)

// Sealer encrypts small secrets (tokens) before they are written to disk.
// Output layout is [24-byte nonce][ciphertext][16-byte tag].
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives an XChaCha20-Poly1305 key from secret with HKDF-SHA256.
// info separates keys derived from the same secret for different purposes.
func NewSealer(secret []byte, info string) (*Sealer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("cryptox: derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: init aead: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext. associated is authenticated but not encrypted,
// callers bind the value to the name it is stored under.
func (s *Sealer) Seal(plaintext, associated []byte) ([]byte, error) {
	ns := s.aead.NonceSize()
	out := make([]byte, ns, ns+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return nil, fmt.Errorf("cryptox: nonce: %w", err)
	}
	return s.aead.Seal(out, out[:ns], plaintext, associated), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed, associated []byte) ([]byte, error) {
	ns := s.aead.NonceSize()
	if len(sealed) < ns+s.aead.Overhead() {
		return nil, ErrShortSealed
	}
	plain, err := s.aead.Open(nil, sealed[:ns], sealed[ns:], associated)
	if err != nil {
		return nil, ErrOpen
	}
	return plain, nil
}

// LoadOrCreateKeyFile reads key material from path, creating the file with
// fresh random bytes (mode 0600) when it does not exist yet.
func LoadOrCreateKeyFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptySecret, path)
		}
		return data, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("cryptox: read key file: %w", err)
	}

	data = make([]byte, KeyMaterialSize)
	if _, err := rand.Read(data); err != nil {
		return nil, fmt.Errorf("cryptox: generate key material: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("cryptox: create key dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("cryptox: write key file: %w", err)
	}
	return data, nil
}
