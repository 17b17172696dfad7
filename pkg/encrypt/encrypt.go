// Package encrypt seals payloads with AES-256-GCM. Decryption tries the
// active key first and then any fallback keys, which enables zero-downtime
// key rotation.
package encrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// KeySize is the required key length (AES-256).
const KeySize = 32

// Cipher implements ports.Cipher over AES-GCM.
type Cipher struct {
	active    []byte
	fallbacks [][]byte
}

// New builds a Cipher. The active key encrypts new data; fallbacks are only
// tried on decryption.
func New(active []byte, fallbacks ...[]byte) (*Cipher, error) {
	if len(active) != KeySize {
		return nil, fmt.Errorf("active key must be %d bytes, got %d", KeySize, len(active))
	}
	for i, k := range fallbacks {
		if len(k) != KeySize {
			return nil, fmt.Errorf("fallback key %d must be %d bytes, got %d", i, KeySize, len(k))
		}
	}
	return &Cipher{active: active, fallbacks: fallbacks}, nil
}

// Encrypt seals plain with the active key, returning base64 text with the
// nonce prepended.
func (c *Cipher) Encrypt(plain []byte) (string, error) {
	gcm, err := gcmFor(c.active)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, plain, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens sealed text, trying the active key then each fallback.
func (c *Cipher) Decrypt(sealed string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("decoding ciphertext: %w", err)
	}
	if plain, err := open(raw, c.active); err == nil {
		return plain, nil
	}
	for _, k := range c.fallbacks {
		if plain, err := open(raw, k); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func gcmFor(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func open(raw, key []byte) ([]byte, error) {
	gcm, err := gcmFor(key)
	if err != nil {
		return nil, err
	}
	if len(raw) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	return gcm.Open(nil, raw[:gcm.NonceSize()], raw[gcm.NonceSize():], nil)
}

// Noop passes payloads through unchanged, for development and tests that
// assert on stored bytes.
type Noop struct{}

func (Noop) Encrypt(plain []byte) (string, error)  { return string(plain), nil }
func (Noop) Decrypt(sealed string) ([]byte, error) { return []byte(sealed), nil }
