package directory

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
)

// EmployeeMappingModel mirrors the HR platform's enrollment table. Rows are
// written by the employee service when a worker is enrolled on a terminal;
// this module only ever reads them.
type EmployeeMappingModel struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	TenantID     uint   `gorm:"not null;index:idx_directory_lookup,priority:1"`
	DeviceUserID string `gorm:"type:varchar(64);not null;index:idx_directory_lookup,priority:2"`
	EmployeeID   uint   `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (EmployeeMappingModel) TableName() string {
	return "employee_device_mappings"
}

// AccessGrantModel mirrors the HR platform's device access grants.
type AccessGrantModel struct {
	ID         uint `gorm:"primaryKey;autoIncrement"`
	EmployeeID uint `gorm:"not null;index:idx_grant_lookup,priority:1"`
	DeviceID   uint `gorm:"not null;index:idx_grant_lookup,priority:2"`
	ValidFrom  time.Time
	ValidUntil *time.Time
	RevokedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (AccessGrantModel) TableName() string {
	return "employee_access_grants"
}

// GormDirectory reads the HR platform's enrollment and grant tables. It
// satisfies the ingestion pipeline's EmployeeDirectory and
// AccessGrantChecker collaborator interfaces.
type GormDirectory struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewGormDirectory(gormDB *gorm.DB, log logger.Interface) *GormDirectory {
	return &GormDirectory{
		db:     gormDB,
		logger: log,
	}
}

// ResolveByDeviceUser maps a terminal-local user ID to a platform employee.
func (d *GormDirectory) ResolveByDeviceUser(ctx context.Context, tenantID uint, deviceUserID string) (uint, error) {
	var model EmployeeMappingModel
	err := d.db.WithContext(ctx).
		Where("tenant_id = ? AND device_user_id = ?", tenantID, deviceUserID).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, errors.NewNotFoundError("no employee mapping for device user")
		}
		d.logger.Errorw("employee mapping lookup failed",
			"tenant_id", tenantID,
			"device_user_id", deviceUserID,
			"error", err)
		return 0, fmt.Errorf("failed to resolve device user: %w", err)
	}

	return model.EmployeeID, nil
}

// HasActiveGrant reports whether the employee held an unexpired, unrevoked
// grant for the device at the given time.
func (d *GormDirectory) HasActiveGrant(ctx context.Context, employeeID, deviceID uint, at time.Time) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).
		Model(&AccessGrantModel{}).
		Where("employee_id = ? AND device_id = ?", employeeID, deviceID).
		Where("revoked_at IS NULL").
		Where("valid_from <= ?", at).
		Where("valid_until IS NULL OR valid_until >= ?", at).
		Count(&count).Error
	if err != nil {
		d.logger.Errorw("access grant lookup failed",
			"employee_id", employeeID,
			"device_id", deviceID,
			"error", err)
		return false, fmt.Errorf("failed to check access grant: %w", err)
	}

	return count > 0, nil
}
