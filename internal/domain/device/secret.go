package device

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// SecretPrefix marks plaintext device credential secrets.
const SecretPrefix = "vtd_"

// CredentialSecret holds the SHA-256 digest of a device credential secret.
// The plaintext secret is only available at generation time and is never
// stored; lookups and verification go through the digest.
type CredentialSecret struct {
	digest    string
	expiresAt *time.Time
}

// GenerateSecret creates a new credential secret, returning the plaintext
// exactly once together with the digest-bearing value object.
func GenerateSecret() (plainSecret string, secret *CredentialSecret, err error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", nil, fmt.Errorf("failed to generate random secret: %w", err)
	}

	plainSecret = SecretPrefix + base64.URLEncoding.EncodeToString(secretBytes)
	digest := DigestSecret(plainSecret)

	secret = &CredentialSecret{
		digest:    digest,
		expiresAt: nil,
	}

	return plainSecret, secret, nil
}

// GenerateSecretWithExpiry creates a new credential secret with an expiry.
func GenerateSecretWithExpiry(expiresAt time.Time) (plainSecret string, secret *CredentialSecret, err error) {
	plainSecret, secret, err = GenerateSecret()
	if err != nil {
		return "", nil, err
	}

	secret.expiresAt = &expiresAt
	return plainSecret, secret, nil
}

// NewCredentialSecret reconstructs a credential secret from its stored digest.
func NewCredentialSecret(digest string) (*CredentialSecret, error) {
	if digest == "" {
		return nil, fmt.Errorf("secret digest cannot be empty")
	}

	if len(digest) != 64 {
		return nil, fmt.Errorf("invalid secret digest length (expected 64 hex characters)")
	}

	if !isHexString(digest) {
		return nil, fmt.Errorf("secret digest must be a valid hexadecimal string")
	}

	return &CredentialSecret{
		digest:    digest,
		expiresAt: nil,
	}, nil
}

// NewCredentialSecretWithExpiry reconstructs a credential secret with an expiry.
func NewCredentialSecretWithExpiry(digest string, expiresAt time.Time) (*CredentialSecret, error) {
	secret, err := NewCredentialSecret(digest)
	if err != nil {
		return nil, err
	}

	secret.expiresAt = &expiresAt
	return secret, nil
}

// Digest returns the SHA-256 hex digest of the secret.
func (cs *CredentialSecret) Digest() string {
	return cs.digest
}

// ExpiresAt returns a copy of the expiry time, or nil if the secret never expires.
func (cs *CredentialSecret) ExpiresAt() *time.Time {
	if cs.expiresAt == nil {
		return nil
	}
	expiry := *cs.expiresAt
	return &expiry
}

// Verify checks the plaintext secret against the stored digest in constant time.
func (cs *CredentialSecret) Verify(plainSecret string) bool {
	if !strings.HasPrefix(plainSecret, SecretPrefix) {
		return false
	}

	digest := DigestSecret(plainSecret)
	return subtle.ConstantTimeCompare([]byte(cs.digest), []byte(digest)) == 1
}

// IsExpired reports whether the secret expiry has passed.
func (cs *CredentialSecret) IsExpired() bool {
	if cs.expiresAt == nil {
		return false
	}
	return time.Now().After(*cs.expiresAt)
}

// IsValid verifies the plaintext and checks expiry in one step.
func (cs *CredentialSecret) IsValid(plainSecret string) bool {
	return cs.Verify(plainSecret) && !cs.IsExpired()
}

// RemainingTime returns the duration until expiry, zero when already expired,
// or nil when the secret never expires.
func (cs *CredentialSecret) RemainingTime() *time.Duration {
	if cs.expiresAt == nil {
		return nil
	}

	remaining := time.Until(*cs.expiresAt)
	if remaining < 0 {
		zero := time.Duration(0)
		return &zero
	}

	return &remaining
}

// ExpiresWithin reports whether the secret expires inside the given window.
func (cs *CredentialSecret) ExpiresWithin(d time.Duration) bool {
	if cs.expiresAt == nil {
		return false
	}
	return cs.expiresAt.Before(time.Now().Add(d))
}

// DigestSecret computes the SHA-256 hex digest of a plaintext secret.
// Repositories use it to look credentials up by digest without ever
// persisting the plaintext.
func DigestSecret(plainSecret string) string {
	hash := sha256.Sum256([]byte(plainSecret))
	return hex.EncodeToString(hash[:])
}

func isHexString(s string) bool {
	for _, char := range s {
		if !((char >= '0' && char <= '9') || (char >= 'a' && char <= 'f') || (char >= 'A' && char <= 'F')) {
			return false
		}
	}
	return true
}
