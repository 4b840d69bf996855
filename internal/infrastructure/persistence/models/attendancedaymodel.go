package models

import (
	"time"

	"gorm.io/gorm"

	"veritime/internal/shared/constants"
)

// AttendanceDayModel represents the database persistence model for derived attendance days
type AttendanceDayModel struct {
	ID                uint   `gorm:"primarykey"`
	TenantID          uint   `gorm:"not null;index:idx_attendance_tenant"`
	EmployeeID        uint   `gorm:"not null;uniqueIndex:idx_employee_date,priority:1"`
	Date              string `gorm:"not null;size:10;uniqueIndex:idx_employee_date,priority:2"` // business date, YYYY-MM-DD
	CheckInAt         *time.Time
	CheckOutAt        *time.Time
	WorkedHours       float64 `gorm:"not null;default:0"`
	OvertimeHours     float64 `gorm:"not null;default:0"`
	Status            string  `gorm:"not null;default:incomplete;size:20;index:idx_attendance_status"` // open, closed, incomplete, flagged_for_review
	ReviewNote        *string `gorm:"size:500"`
	Authorized        bool    `gorm:"not null;default:false"`
	AuthorizationNote *string `gorm:"size:500"`
	SourceDeviceID    uint    `gorm:"not null;default:0"`
	Version           int     `gorm:"not null;default:1"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName specifies the table name for GORM
func (AttendanceDayModel) TableName() string {
	return constants.TableAttendanceDays
}

// BeforeCreate hook for GORM
func (a *AttendanceDayModel) BeforeCreate(tx *gorm.DB) error {
	if a.Status == "" {
		a.Status = "incomplete"
	}
	if a.Version == 0 {
		a.Version = 1
	}
	return nil
}

// BeforeUpdate implements optimistic locking
func (a *AttendanceDayModel) BeforeUpdate(tx *gorm.DB) error {
	tx.Statement.SetColumn("version", a.Version+1)
	return nil
}
