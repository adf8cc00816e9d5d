package mocks

import (
	"errors"
	"strings"
)

// MockSecretCipher "encrypts" by prefixing, keeping test assertions on
// stored ciphertext readable.
type MockSecretCipher struct{}

// NewMockSecretCipher creates a new MockSecretCipher.
func NewMockSecretCipher() *MockSecretCipher {
	return &MockSecretCipher{}
}

func (c *MockSecretCipher) EncryptString(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("empty plaintext")
	}
	return "enc:" + plaintext, nil
}

func (c *MockSecretCipher) DecryptString(ciphertext string) (string, error) {
	plaintext, ok := strings.CutPrefix(ciphertext, "enc:")
	if !ok || plaintext == "" {
		return "", errors.New("invalid ciphertext")
	}
	return plaintext, nil
}

func (c *MockSecretCipher) IsValid(ciphertext string) bool {
	_, err := c.DecryptString(ciphertext)
	return err == nil
}
