// Package codec provides reversible authenticated encryption of small
// JSON-serializable values under a shared secret. Output is URL-safe.
package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrDecryption reports ciphertext that cannot be decoded under the
	// configured secret.
	ErrDecryption = errors.New("unable to decrypt payload")

	// ErrMalformedPayload reports a successful decryption whose plaintext is
	// not a JSON object.
	ErrMalformedPayload = errors.New("decrypted payload is not an object")
)

// Codec encrypts and decrypts objects with AES-256-GCM under a key derived
// from the shared secret. Safe for concurrent use.
type Codec struct {
	aead cipher.AEAD
}

// New derives a 256-bit key from secret. Asymmetric-only deployments carry no
// secret and therefore no codec.
func New(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("codec: secret required")
	}
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("codec: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("codec: %w", err)
	}
	return &Codec{aead: aead}, nil
}

// Encrypt serializes v to JSON and encrypts it, returning URL-safe base64.
func (c *Codec) Encrypt(v any) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("codec: marshal: %w", err)
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("codec: nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Fails with ErrDecryption when s was not produced
// under the configured secret and ErrMalformedPayload when the recovered
// bytes are not a JSON object.
func (c *Codec) Decrypt(s string) (map[string]any, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(raw) < c.aead.NonceSize() {
		return nil, ErrDecryption
	}
	nonce, ciphertext := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryption
	}
	var obj map[string]any
	if err := json.Unmarshal(plaintext, &obj); err != nil || obj == nil {
		return nil, ErrMalformedPayload
	}
	return obj, nil
}
