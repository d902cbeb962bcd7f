package store

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Vault seals and opens values for the encrypted slot using
// XChaCha20-Poly1305. The key is supplied at startup; plaintext never
// leaves a locked buffer except inside a WithOpen callback.
type Vault struct {
	key []byte
}

// NewVault creates a vault from a 32-byte key.
func NewVault(key []byte) (*Vault, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("store: vault key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Vault{key: k}, nil
}

// Seal encrypts plaintext. Output layout: nonce || ciphertext.
func (v *Vault) Seal(plain []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return nil, fmt.Errorf("store: vault cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("store: vault nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plain, nil), nil
}

// WithOpen decrypts a sealed value and hands the plaintext to fn inside a
// locked buffer. The plaintext is zeroed on every exit path.
func (v *Vault) WithOpen(sealed []byte, fn func(plain []byte) error) error {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return fmt.Errorf("store: vault cipher: %w", err)
	}
	if len(sealed) < aead.NonceSize() {
		return fmt.Errorf("store: sealed value too short")
	}
	nonce, ct := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return fmt.Errorf("store: vault open: %w", err)
	}
	return withSecret(plain, fn)
}
