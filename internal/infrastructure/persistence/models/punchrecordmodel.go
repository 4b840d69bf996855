package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"veritime/internal/shared/constants"
)

// PunchRecordModel represents the database persistence model for raw punch records
// SequenceNo is nullable: only accepted punches get a chain position, and the
// unique (device_id, sequence_no) index must not collide on unchained rows.
type PunchRecordModel struct {
	ID              uint    `gorm:"primarykey"`
	UUID            string  `gorm:"uniqueIndex;not null;size:36"` // client-supplied idempotency key
	TenantID        uint    `gorm:"not null;index:idx_punches_tenant"`
	DeviceID        uint    `gorm:"not null;index:idx_punches_device;uniqueIndex:idx_device_seq,priority:1"`
	DeviceSID       string  `gorm:"column:device_sid;not null;size:32"`
	DeviceUserID    string  `gorm:"not null;size:64"`
	EmployeeID      *uint   `gorm:"index:idx_punches_employee_time,priority:1"`
	PunchTime       time.Time `gorm:"not null;index:idx_punches_employee_time,priority:2"`
	PunchType       string  `gorm:"not null;size:20"` // check_in, check_out
	Method          string  `gorm:"not null;size:20"` // fingerprint, face, card, pin, palm
	QualityScore    int     `gorm:"not null;default:0"`
	Latitude        *float64
	Longitude       *float64
	RawPayload      datatypes.JSON
	Status          string  `gorm:"not null;default:pending;size:20;index:idx_punches_status"` // pending, processed, failed, duplicate, ignored
	ProcessingError *string `gorm:"size:500"`
	ProcessedAt     *time.Time
	AttendanceDayID *uint
	SequenceNo      *uint64 `gorm:"uniqueIndex:idx_device_seq,priority:2"`
	PrevDigest      string  `gorm:"size:64"`
	Digest          string  `gorm:"size:64;index:idx_punches_digest"`
	DigestVersion   string  `gorm:"size:8"`
	Version         int     `gorm:"not null;default:1"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName specifies the table name for GORM
func (PunchRecordModel) TableName() string {
	return constants.TablePunchRecords
}

// BeforeCreate hook for GORM
func (p *PunchRecordModel) BeforeCreate(tx *gorm.DB) error {
	if p.Status == "" {
		p.Status = "pending"
	}
	if p.Version == 0 {
		p.Version = 1
	}
	return nil
}

// BeforeUpdate implements optimistic locking
func (p *PunchRecordModel) BeforeUpdate(tx *gorm.DB) error {
	tx.Statement.SetColumn("version", p.Version+1)
	return nil
}
