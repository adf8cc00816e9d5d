package driven

// SecretCipher encrypts and decrypts opaque secrets with a process-wide key
// loaded once at startup. Implementations fail fast at construction if the
// key is absent, not per call.
type SecretCipher interface {
	// EncryptString encrypts a non-empty plaintext. Empty input is an error.
	EncryptString(plaintext string) (string, error)

	// DecryptString reverses EncryptString. Tampered or truncated
	// ciphertext fails; it never silently yields wrong plaintext.
	DecryptString(ciphertext string) (string, error)

	// IsValid reports whether the ciphertext decrypts to a non-empty value,
	// swallowing errors. Diagnostics only, never a security decision.
	IsValid(ciphertext string) bool
}
