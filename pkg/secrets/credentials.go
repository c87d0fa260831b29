// Package secrets seals provider credentials before they are written to storage
package secrets

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrMalformed is returned when a sealed blob is too short or fails authentication
var ErrMalformed = errors.New("sealed credentials are malformed or were sealed with another key")

// Cipher seals and opens credential maps with XChaCha20-Poly1305
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives a 256 bit key from the passphrase and returns a Cipher using it
func NewCipher(passphrase string) (*Cipher, error) {
	if passphrase == "" {
		return nil, errors.New("credentials key must not be empty")
	}

	key := sha256.Sum256([]byte(passphrase))
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Seal encrypts the credentials. The output is the random nonce followed by the ciphertext.
func (c *Cipher) Seal(credentials map[string]string) ([]byte, error) {
	if len(credentials) == 0 {
		return nil, nil
	}

	plaintext, err := json.Marshal(credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to encode credentials: %w", err)
	}

	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a blob produced by Seal. An empty blob opens to an empty map.
func (c *Cipher) Open(sealed []byte) (map[string]string, error) {
	credentials := map[string]string{}
	if len(sealed) == 0 {
		return credentials, nil
	}

	if len(sealed) < c.aead.NonceSize()+c.aead.Overhead() {
		return nil, ErrMalformed
	}

	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrMalformed
	}

	if err := json.Unmarshal(plaintext, &credentials); err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}

	return credentials, nil
}
