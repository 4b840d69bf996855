package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"veritime/internal/shared/constants"
)

// DeviceCredentialModel represents the database persistence model for device credentials
type DeviceCredentialModel struct {
	ID             uint           `gorm:"primarykey"`
	SID            string         `gorm:"column:sid;uniqueIndex;not null;size:32"`
	DeviceID       uint           `gorm:"not null;index:idx_credentials_device"`
	Label          string         `gorm:"size:100"`
	SecretDigest   string         `gorm:"not null;uniqueIndex:idx_secret_digest;size:64"` // SHA-256 hex of the plaintext secret
	ExpiresAt      *time.Time     `gorm:"index:idx_credentials_expires_at"`
	Status         string         `gorm:"not null;default:active;size:20;index:idx_credentials_status"` // active, revoked
	PerMinuteQuota int            `gorm:"not null;default:0"`
	IPAllowlist    datatypes.JSON `gorm:"column:ip_allowlist"`
	RotatedFromSID *string        `gorm:"column:rotated_from_sid;size:32"`
	LastUsedAt     *time.Time
	LastUsedIP     string `gorm:"size:45"`
	UsageCount     uint64 `gorm:"not null;default:0"`
	RevokedAt      *time.Time
	RevokeReason   *string `gorm:"size:500"`
	Version        int     `gorm:"not null;default:1"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName specifies the table name for GORM
func (DeviceCredentialModel) TableName() string {
	return constants.TableDeviceCredentials
}

// BeforeCreate hook for GORM
func (c *DeviceCredentialModel) BeforeCreate(tx *gorm.DB) error {
	if c.Status == "" {
		c.Status = "active"
	}
	if c.Version == 0 {
		c.Version = 1
	}
	return nil
}

// BeforeUpdate implements optimistic locking
func (c *DeviceCredentialModel) BeforeUpdate(tx *gorm.DB) error {
	tx.Statement.SetColumn("version", c.Version+1)
	return nil
}
