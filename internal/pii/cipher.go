// Package pii encrypts personal data (CPF, phone) at rest as required by LGPD.
package pii

import (
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrMalformed is returned when a stored ciphertext cannot be decoded.
var ErrMalformed = errors.New("pii: malformed ciphertext")

const prefix = "v1:"

// Cipher seals and opens field values and computes blind indexes for lookups.
type Cipher struct {
	aead    cipher.AEAD
	hashKey []byte
}

// NewCipher builds a Cipher from a 32 byte encryption key and a hash key.
func NewCipher(encKey, hashKey []byte) (*Cipher, error) {
	aead, err := chacha20poly1305.NewX(encKey)
	if err != nil {
		return nil, fmt.Errorf("pii: %w", err)
	}
	if len(hashKey) == 0 {
		return nil, errors.New("pii: empty hash key")
	}
	return &Cipher{aead: aead, hashKey: hashKey}, nil
}

// Encrypt returns "v1:" followed by base64(nonce|ciphertext). Empty input stays empty.
func (c *Cipher) Encrypt(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plain)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("pii: nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plain), nil)
	return prefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(stored string) (string, error) {
	if stored == "" {
		return "", nil
	}
	if !strings.HasPrefix(stored, prefix) {
		return "", ErrMalformed
	}
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(stored, prefix))
	if err != nil || len(raw) < c.aead.NonceSize() {
		return "", ErrMalformed
	}
	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("pii: open: %w", err)
	}
	return string(plain), nil
}

// BlindIndex is a keyed hash of the normalized value, stable across calls.
func (c *Cipher) BlindIndex(value string) string {
	if value == "" {
		return ""
	}
	mac := hmac.New(sha256.New, c.hashKey)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}
