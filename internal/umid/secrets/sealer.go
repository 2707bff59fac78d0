// Package secrets seals TOTP secrets at rest with XChaCha20-Poly1305.
//
// The UMID id is bound as additional data, so a sealed secret copied onto
// another record fails to open.
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"umid/internal/totp"
	dErrors "umid/pkg/domain-errors"
)

// Sealer encrypts and decrypts TOTP secrets.
type Sealer struct {
	key []byte
}

// NewSealer derives a 256-bit key. A 64-character hex string is used as raw
// key material; anything else is hashed with SHA-256.
func NewSealer(key string) (*Sealer, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("sealing key is required")
	}
	if raw, err := hex.DecodeString(key); err == nil && len(raw) == chacha20poly1305.KeySize {
		return &Sealer{key: raw}, nil
	}
	sum := sha256.Sum256([]byte(key))
	return &Sealer{key: sum[:]}, nil
}

// Seal encrypts secret bound to aad. Output is nonce || ciphertext.
func (s *Sealer) Seal(secret totp.Secret, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(secret.Reveal())+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, []byte(secret.Reveal()), aad), nil
}

// Open decrypts a sealed secret. Tampered or mismatched input yields CodeInternal.
func (s *Sealer) Open(sealed, aad []byte) (totp.Secret, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("init aead: %w", err)
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return "", dErrors.New(dErrors.CodeInternal, "sealed secret is truncated")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "sealed secret failed authentication")
	}
	return totp.Secret(plain), nil
}
