// Package secrets implements token-at-rest encryption with AES-256-GCM.
// The blob format is: version(1) || nonce(12) || ciphertext(N), base64-encoded
// for storage in text columns.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/storesight-labs/storesight-core/internal/core/ports/driven"
)

// Ensure Cipher implements the interface.
var _ driven.SecretCipher = (*Cipher)(nil)

const (
	// blobVersion is the version byte for the encrypted blob format,
	// allowing future format changes without breaking stored tokens.
	blobVersion = 0x01

	// nonceSize is the AES-GCM nonce size (12 bytes is standard)
	nonceSize = 12

	// keySize is the required key size for AES-256
	keySize = 32
)

var (
	// ErrMissingKey is returned at construction when no key material is configured.
	ErrMissingKey = errors.New("encryption key is not set")

	// ErrEmptyInput is returned when a plaintext or ciphertext argument is empty.
	ErrEmptyInput = errors.New("input is empty")

	// ErrInvalidBlob is returned when the ciphertext is too small or malformed.
	ErrInvalidBlob = errors.New("encrypted blob is malformed")

	// ErrUnsupportedVersion is returned when the blob version is not supported.
	ErrUnsupportedVersion = errors.New("unsupported blob version")

	// ErrDecryptionFailed is returned when decryption fails (wrong key or
	// tampered data) or yields an empty plaintext.
	ErrDecryptionFailed = errors.New("failed to decrypt blob")
)

// hkdfInfo binds derived keys to this usage so the same passphrase cannot be
// reused for a different purpose with the same key material.
const hkdfInfo = "storesight token cipher v1"

// Cipher handles AES-256-GCM encryption/decryption of opaque secrets.
type Cipher struct {
	gcm cipher.AEAD
}

// NewCipher builds a cipher from the process-wide encryption key. The key is
// an arbitrary-length passphrase; a 32-byte AES key is derived from it via
// HKDF-SHA256. Construction fails if the passphrase is empty, so a missing
// key kills the process at startup rather than on first use.
func NewCipher(passphrase string) (*Cipher, error) {
	if passphrase == "" {
		return nil, ErrMissingKey
	}

	key := make([]byte, keySize)
	kdf := hkdf.New(sha256.New, []byte(passphrase), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &Cipher{gcm: gcm}, nil
}

// EncryptString encrypts a non-empty plaintext to a base64 blob.
func (c *Cipher) EncryptString(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("%w: plaintext", ErrEmptyInput)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.gcm.Seal(nil, nonce, []byte(plaintext), nil)

	blob := make([]byte, 1+nonceSize+len(sealed))
	blob[0] = blobVersion
	copy(blob[1:1+nonceSize], nonce)
	copy(blob[1+nonceSize:], sealed)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// DecryptString reverses EncryptString. Corrupted or truncated ciphertext
// fails with ErrDecryptionFailed or ErrInvalidBlob; it never silently
// returns wrong plaintext because GCM authenticates the whole blob.
func (c *Cipher) DecryptString(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", fmt.Errorf("%w: ciphertext", ErrEmptyInput)
	}

	blob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBlob, err)
	}

	minSize := 1 + nonceSize + c.gcm.Overhead()
	if len(blob) < minSize {
		return "", ErrInvalidBlob
	}

	if blob[0] != blobVersion {
		return "", fmt.Errorf("%w: got version %d", ErrUnsupportedVersion, blob[0])
	}

	nonce := blob[1 : 1+nonceSize]
	sealed := blob[1+nonceSize:]

	plaintext, err := c.gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	if len(plaintext) == 0 {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}

// IsValid reports whether the ciphertext decrypts to a non-empty value.
// Diagnostics only; errors are swallowed to a boolean.
func (c *Cipher) IsValid(ciphertext string) bool {
	plaintext, err := c.DecryptString(ciphertext)
	return err == nil && plaintext != ""
}
