package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"veritime/internal/shared/constants"
)

// DeviceModel represents the database persistence model for biometric devices
// This is the anti-corruption layer between domain and database
type DeviceModel struct {
	ID           uint   `gorm:"primarykey"`
	SID          string `gorm:"column:sid;uniqueIndex;not null;size:32"`
	TenantID     uint   `gorm:"not null;index:idx_devices_tenant;uniqueIndex:idx_tenant_serial,priority:1"`
	Name         string `gorm:"not null;size:100"`
	SerialNumber string `gorm:"not null;size:100;uniqueIndex:idx_tenant_serial,priority:2"`
	Model        string `gorm:"size:100"`
	Location     string `gorm:"size:255"`
	Status       string `gorm:"not null;default:pending;size:20;index:idx_devices_status"` // pending, active, suspended, decommissioned
	IPAllowlist  datatypes.JSON
	LastSeenAt   *time.Time `gorm:"index:idx_devices_last_seen_at"` // last successful authenticated request
	LastSyncAt   *time.Time
	Version      int `gorm:"not null;default:1"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (DeviceModel) TableName() string {
	return constants.TableDevices
}

// BeforeCreate hook for GORM
func (d *DeviceModel) BeforeCreate(tx *gorm.DB) error {
	if d.Status == "" {
		d.Status = "pending"
	}
	if d.Version == 0 {
		d.Version = 1
	}
	return nil
}

// BeforeUpdate implements optimistic locking
func (d *DeviceModel) BeforeUpdate(tx *gorm.DB) error {
	tx.Statement.SetColumn("version", d.Version+1)
	return nil
}
