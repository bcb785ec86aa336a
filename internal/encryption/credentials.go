package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

// CredentialCipher encrypts store credentials at rest with AES-256-GCM.
// The key comes from the environment; when it is empty the cipher degrades
// to passthrough so local development works without key management.
type CredentialCipher struct {
	key []byte
}

// NewCredentialCipher derives a 256-bit key from the configured secret.
// An empty secret disables encryption.
func NewCredentialCipher(secret string) *CredentialCipher {
	if secret == "" {
		return &CredentialCipher{}
	}
	key := sha256.Sum256([]byte(secret))
	return &CredentialCipher{key: key[:]}
}

// Enabled reports whether a key is configured
func (c *CredentialCipher) Enabled() bool {
	return len(c.key) > 0
}

// Encrypt seals a credential. The output is base64(nonce || ciphertext).
// Empty input stays empty so absent credentials stay recognizable.
func (c *CredentialCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" || !c.Enabled() {
		return plaintext, nil
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a credential sealed by Encrypt
func (c *CredentialCipher) Decrypt(encoded string) (string, error) {
	if encoded == "" || !c.Enabled() {
		return encoded, nil
	}

	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("malformed credential: %w", err)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(sealed) < gcm.NonceSize() {
		return "", fmt.Errorf("malformed credential: too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential: %w", err)
	}
	return string(plaintext), nil
}
