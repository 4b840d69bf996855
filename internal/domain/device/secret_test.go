package device

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateSecret(t *testing.T) {
	plainSecret, secret, err := GenerateSecret()
	if err != nil {
		t.Errorf("GenerateSecret() error = %v, want nil", err)
		return
	}

	if plainSecret == "" {
		t.Error("GenerateSecret() returned empty plainSecret")
	}

	if !strings.HasPrefix(plainSecret, SecretPrefix) {
		t.Errorf("GenerateSecret() plainSecret = %q, should start with %q", plainSecret, SecretPrefix)
	}

	if secret == nil {
		t.Fatal("GenerateSecret() returned nil secret")
	}

	if secret.Digest() == "" {
		t.Error("GenerateSecret() secret digest is empty")
	}

	if secret.ExpiresAt() != nil {
		t.Error("GenerateSecret() secret should not have expiry")
	}
}

func TestGenerateSecret_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	iterations := 100

	for i := 0; i < iterations; i++ {
		plainSecret, _, err := GenerateSecret()
		if err != nil {
			t.Fatalf("GenerateSecret() error = %v", err)
		}

		if seen[plainSecret] {
			t.Errorf("GenerateSecret() generated duplicate secret: %q", plainSecret)
		}
		seen[plainSecret] = true
	}
}

func TestGenerateSecretWithExpiry(t *testing.T) {
	expiresAt := time.Now().Add(24 * time.Hour)
	plainSecret, secret, err := GenerateSecretWithExpiry(expiresAt)

	if err != nil {
		t.Errorf("GenerateSecretWithExpiry() error = %v, want nil", err)
		return
	}

	if plainSecret == "" {
		t.Error("GenerateSecretWithExpiry() returned empty plainSecret")
	}

	if secret == nil {
		t.Fatal("GenerateSecretWithExpiry() returned nil secret")
	}

	if secret.ExpiresAt() == nil {
		t.Fatal("GenerateSecretWithExpiry() secret should have expiry")
	}

	if !secret.ExpiresAt().Equal(expiresAt) {
		t.Errorf("GenerateSecretWithExpiry() expiresAt = %v, want %v", secret.ExpiresAt(), expiresAt)
	}
}

func TestCredentialSecret_Verify(t *testing.T) {
	plainSecret, secret, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}

	if !secret.Verify(plainSecret) {
		t.Error("Verify() = false for the original plaintext, want true")
	}

	if secret.Verify("vtd_wrong") {
		t.Error("Verify() = true for a wrong secret, want false")
	}

	if secret.Verify(strings.TrimPrefix(plainSecret, SecretPrefix)) {
		t.Error("Verify() = true for a secret without prefix, want false")
	}
}

func TestCredentialSecret_IsExpired(t *testing.T) {
	_, fresh, err := GenerateSecretWithExpiry(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("GenerateSecretWithExpiry() error = %v", err)
	}
	if fresh.IsExpired() {
		t.Error("IsExpired() = true for a secret expiring in one hour")
	}

	_, stale, err := GenerateSecretWithExpiry(time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("GenerateSecretWithExpiry() error = %v", err)
	}
	if !stale.IsExpired() {
		t.Error("IsExpired() = false for a secret that expired a minute ago")
	}
}

func TestCredentialSecret_IsValid(t *testing.T) {
	plainSecret, secret, err := GenerateSecretWithExpiry(time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("GenerateSecretWithExpiry() error = %v", err)
	}

	if secret.IsValid(plainSecret) {
		t.Error("IsValid() = true for an expired secret, want false")
	}
}

func TestCredentialSecret_ExpiresWithin(t *testing.T) {
	_, secret, err := GenerateSecretWithExpiry(time.Now().Add(12 * time.Hour))
	if err != nil {
		t.Fatalf("GenerateSecretWithExpiry() error = %v", err)
	}

	if !secret.ExpiresWithin(24 * time.Hour) {
		t.Error("ExpiresWithin(24h) = false for a secret expiring in 12h")
	}
	if secret.ExpiresWithin(time.Hour) {
		t.Error("ExpiresWithin(1h) = true for a secret expiring in 12h")
	}

	_, noExpiry, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}
	if noExpiry.ExpiresWithin(24 * time.Hour) {
		t.Error("ExpiresWithin() = true for a secret without expiry")
	}
}

func TestNewCredentialSecret(t *testing.T) {
	plainSecret, generated, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}

	reconstructed, err := NewCredentialSecret(generated.Digest())
	if err != nil {
		t.Fatalf("NewCredentialSecret() error = %v", err)
	}

	if !reconstructed.Verify(plainSecret) {
		t.Error("reconstructed secret failed to verify the original plaintext")
	}
}

func TestNewCredentialSecret_Invalid(t *testing.T) {
	cases := []struct {
		name   string
		digest string
	}{
		{"empty", ""},
		{"too short", "abc123"},
		{"not hex", strings.Repeat("z", 64)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewCredentialSecret(tc.digest); err == nil {
				t.Errorf("NewCredentialSecret(%q) expected error, got nil", tc.digest)
			}
		})
	}
}

func TestDigestSecret_Deterministic(t *testing.T) {
	if DigestSecret("vtd_abc") != DigestSecret("vtd_abc") {
		t.Error("DigestSecret() is not deterministic")
	}
	if len(DigestSecret("vtd_abc")) != 64 {
		t.Error("DigestSecret() should produce 64 hex characters")
	}
}
