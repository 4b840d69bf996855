package device

import (
	"fmt"
	"time"
)

// CredentialStatus is the lifecycle state of a device credential.
type CredentialStatus string

const (
	CredentialStatusActive  CredentialStatus = "active"
	CredentialStatusRevoked CredentialStatus = "revoked"
)

// DeviceCredential is the aggregate for a single issued device secret.
// A device may hold several independently issued credentials at once;
// rotation replaces exactly one of them.
type DeviceCredential struct {
	id             uint
	sid            string
	deviceID       uint
	label          string
	secret         *CredentialSecret
	status         CredentialStatus
	perMinuteQuota int
	ipAllowlist    []string
	rotatedFromSID *string
	lastUsedAt     *time.Time
	lastUsedIP     string
	usageCount     uint64
	revokedAt      *time.Time
	revokeReason   *string
	version        int
	createdAt      time.Time
	updatedAt      time.Time
}

// IssueCredential creates a new active credential for a device, returning
// the plaintext secret exactly once. A zero perMinuteQuota means the
// tenant default applies.
func IssueCredential(sid string, deviceID uint, label string, expiresAt *time.Time, perMinuteQuota int) (plainSecret string, cred *DeviceCredential, err error) {
	if sid == "" {
		return "", nil, fmt.Errorf("credential SID is required")
	}
	if deviceID == 0 {
		return "", nil, fmt.Errorf("device ID is required")
	}
	if perMinuteQuota < 0 {
		return "", nil, fmt.Errorf("per-minute quota cannot be negative")
	}

	var secret *CredentialSecret
	if expiresAt != nil {
		plainSecret, secret, err = GenerateSecretWithExpiry(*expiresAt)
	} else {
		plainSecret, secret, err = GenerateSecret()
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate credential secret: %w", err)
	}

	now := time.Now()
	cred = &DeviceCredential{
		sid:            sid,
		deviceID:       deviceID,
		label:          label,
		secret:         secret,
		status:         CredentialStatusActive,
		perMinuteQuota: perMinuteQuota,
		version:        1,
		createdAt:      now,
		updatedAt:      now,
	}

	return plainSecret, cred, nil
}

// RotateCredential issues a replacement credential and revokes the one it
// supersedes in the same operation. Exactly one of the two secrets is valid
// at any point: the old one until rotation, the new one after.
func RotateCredential(sid string, previous *DeviceCredential, expiresAt *time.Time) (plainSecret string, cred *DeviceCredential, err error) {
	if previous == nil {
		return "", nil, fmt.Errorf("previous credential is required")
	}
	if previous.IsRevoked() {
		return "", nil, fmt.Errorf("cannot rotate a revoked credential")
	}

	plainSecret, cred, err = IssueCredential(sid, previous.deviceID, previous.label, expiresAt, previous.perMinuteQuota)
	if err != nil {
		return "", nil, err
	}

	if err := previous.Revoke("superseded by rotation"); err != nil {
		return "", nil, err
	}

	rotatedFrom := previous.sid
	cred.rotatedFromSID = &rotatedFrom
	cred.ipAllowlist = append([]string(nil), previous.ipAllowlist...)
	return plainSecret, cred, nil
}

// ReconstructCredential reconstructs a credential from persistence.
func ReconstructCredential(
	id uint,
	sid string,
	deviceID uint,
	label string,
	secret *CredentialSecret,
	status CredentialStatus,
	perMinuteQuota int,
	ipAllowlist []string,
	rotatedFromSID *string,
	lastUsedAt *time.Time,
	lastUsedIP string,
	usageCount uint64,
	revokedAt *time.Time,
	revokeReason *string,
	version int,
	createdAt, updatedAt time.Time,
) (*DeviceCredential, error) {
	if id == 0 {
		return nil, fmt.Errorf("credential ID cannot be zero")
	}
	if sid == "" {
		return nil, fmt.Errorf("credential SID is required")
	}
	if deviceID == 0 {
		return nil, fmt.Errorf("device ID is required")
	}
	if secret == nil {
		return nil, fmt.Errorf("credential secret is required")
	}

	return &DeviceCredential{
		id:             id,
		sid:            sid,
		deviceID:       deviceID,
		label:          label,
		secret:         secret,
		status:         status,
		perMinuteQuota: perMinuteQuota,
		ipAllowlist:    ipAllowlist,
		rotatedFromSID: rotatedFromSID,
		lastUsedAt:     lastUsedAt,
		lastUsedIP:     lastUsedIP,
		usageCount:     usageCount,
		revokedAt:      revokedAt,
		revokeReason:   revokeReason,
		version:        version,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}, nil
}

// ID returns the credential ID.
func (c *DeviceCredential) ID() uint {
	return c.id
}

// SID returns the credential short ID.
func (c *DeviceCredential) SID() string {
	return c.sid
}

// DeviceID returns the owning device ID.
func (c *DeviceCredential) DeviceID() uint {
	return c.deviceID
}

// Label returns the human-readable credential label.
func (c *DeviceCredential) Label() string {
	return c.label
}

// Secret returns the digest-bearing secret value object.
func (c *DeviceCredential) Secret() *CredentialSecret {
	return c.secret
}

// Status returns the credential status.
func (c *DeviceCredential) Status() CredentialStatus {
	return c.status
}

// PerMinuteQuota returns the request quota override, zero meaning the
// tenant default.
func (c *DeviceCredential) PerMinuteQuota() int {
	return c.perMinuteQuota
}

// IPAllowlist returns the source IP allowlist bound to this credential.
func (c *DeviceCredential) IPAllowlist() []string {
	return c.ipAllowlist
}

// UpdateIPAllowlist replaces the credential's source IP allowlist.
// An empty allowlist permits any source IP.
func (c *DeviceCredential) UpdateIPAllowlist(allowlist []string) error {
	if err := validateAllowlist(allowlist); err != nil {
		return err
	}

	c.ipAllowlist = allowlist
	c.updatedAt = time.Now()

	return nil
}

// IsIPAllowed checks a source IP against the credential allowlist.
// Entries may be single addresses or CIDR prefixes.
func (c *DeviceCredential) IsIPAllowed(ip string) bool {
	return allowlistPermits(c.ipAllowlist, ip)
}

// RotatedFromSID returns the SID of the credential this one superseded.
func (c *DeviceCredential) RotatedFromSID() *string {
	return c.rotatedFromSID
}

// LastUsedAt returns when the credential last authenticated a request.
func (c *DeviceCredential) LastUsedAt() *time.Time {
	return c.lastUsedAt
}

// LastUsedIP returns the source IP of the last authenticated request.
func (c *DeviceCredential) LastUsedIP() string {
	return c.lastUsedIP
}

// UsageCount returns the number of authenticated requests.
func (c *DeviceCredential) UsageCount() uint64 {
	return c.usageCount
}

// RevokedAt returns when the credential was revoked.
func (c *DeviceCredential) RevokedAt() *time.Time {
	return c.revokedAt
}

// RevokeReason returns why the credential was revoked.
func (c *DeviceCredential) RevokeReason() *string {
	return c.revokeReason
}

// Version returns the aggregate version for optimistic locking.
func (c *DeviceCredential) Version() int {
	return c.version
}

// SyncVersion aligns the aggregate with the version the repository
// persisted so a subsequent update passes the optimistic guard.
func (c *DeviceCredential) SyncVersion(version int) {
	c.version = version
}

// CreatedAt returns when the credential was issued.
func (c *DeviceCredential) CreatedAt() time.Time {
	return c.createdAt
}

// UpdatedAt returns when the credential was last updated.
func (c *DeviceCredential) UpdatedAt() time.Time {
	return c.updatedAt
}

// SetID sets the credential ID (only for persistence layer use).
func (c *DeviceCredential) SetID(id uint) error {
	if c.id != 0 {
		return fmt.Errorf("credential ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("credential ID cannot be zero")
	}
	c.id = id
	return nil
}

// Verify checks a plaintext secret against this credential in constant time.
func (c *DeviceCredential) Verify(plainSecret string) bool {
	return c.secret.Verify(plainSecret)
}

// IsActive reports whether the credential is usable for authentication.
func (c *DeviceCredential) IsActive() bool {
	return c.status == CredentialStatusActive && !c.secret.IsExpired()
}

// IsExpired reports whether the credential secret has expired.
func (c *DeviceCredential) IsExpired() bool {
	return c.secret.IsExpired()
}

// IsRevoked reports whether the credential has been revoked.
func (c *DeviceCredential) IsRevoked() bool {
	return c.status == CredentialStatusRevoked
}

// ExpiresWithin reports whether the credential expires inside the window.
func (c *DeviceCredential) ExpiresWithin(d time.Duration) bool {
	return c.secret.ExpiresWithin(d)
}

// Revoke revokes the credential. Revocation is permanent.
func (c *DeviceCredential) Revoke(reason string) error {
	if c.status == CredentialStatusRevoked {
		return fmt.Errorf("credential is already revoked")
	}
	if reason == "" {
		return fmt.Errorf("revoke reason is required")
	}

	now := time.Now()
	c.status = CredentialStatusRevoked
	c.revokedAt = &now
	c.revokeReason = &reason
	c.updatedAt = now

	return nil
}

// MarkUsed records a successful authentication with this credential.
func (c *DeviceCredential) MarkUsed(at time.Time, sourceIP string) {
	c.lastUsedAt = &at
	c.lastUsedIP = sourceIP
	c.usageCount++
	c.updatedAt = time.Now()
}
