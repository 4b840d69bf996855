package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"veritime/internal/domain/device"
	"veritime/internal/infrastructure/persistence/mappers"
	"veritime/internal/infrastructure/persistence/models"
	"veritime/internal/shared/db"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
)

// DeviceRepositoryImpl implements the device.DeviceRepository interface
type DeviceRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.DeviceMapper
	logger logger.Interface
}

// NewDeviceRepository creates a new device repository instance
func NewDeviceRepository(gormDB *gorm.DB, log logger.Interface) device.DeviceRepository {
	return &DeviceRepositoryImpl{
		db:     gormDB,
		mapper: mappers.NewDeviceMapper(),
		logger: log,
	}
}

// Create creates a new device in the database
func (r *DeviceRepositoryImpl) Create(ctx context.Context, entity *device.Device) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		r.logger.Errorw("failed to map device entity to model", "error", err)
		return fmt.Errorf("failed to map device entity: %w", err)
	}

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Create(model).Error; err != nil {
		if isDuplicateError(err) {
			if strings.Contains(err.Error(), "serial") {
				return errors.NewConflictError("device with this serial number already exists")
			}
			return errors.NewConflictError("device already exists")
		}
		r.logger.Errorw("failed to create device in database", "error", err)
		return fmt.Errorf("failed to create device: %w", err)
	}

	if err := entity.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set device ID: %w", err)
	}

	r.logger.Infow("device created successfully", "id", model.ID, "sid", model.SID)
	return nil
}

// GetByID retrieves a device by its ID
func (r *DeviceRepositoryImpl) GetByID(ctx context.Context, id uint) (*device.Device, error) {
	var model models.DeviceModel

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("device not found")
		}
		r.logger.Errorw("failed to get device by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

// GetBySID retrieves a device by its SID
func (r *DeviceRepositoryImpl) GetBySID(ctx context.Context, sid string) (*device.Device, error) {
	var model models.DeviceModel

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Where("sid = ?", sid).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("device not found")
		}
		r.logger.Errorw("failed to get device by SID", "sid", sid, "error", err)
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

// Update updates an existing device with optimistic locking
func (r *DeviceRepositoryImpl) Update(ctx context.Context, entity *device.Device) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		r.logger.Errorw("failed to map device entity to model", "error", err)
		return fmt.Errorf("failed to map device entity: %w", err)
	}

	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.Model(model).
		Where("id = ? AND version = ?", model.ID, model.Version).
		Updates(map[string]interface{}{
			"name":          model.Name,
			"model":         model.Model,
			"location":      model.Location,
			"status":        model.Status,
			"ip_allowlist":  model.IPAllowlist,
			"last_seen_at":  model.LastSeenAt,
			"last_sync_at":  model.LastSyncAt,
			"updated_at":    model.UpdatedAt,
		})

	if result.Error != nil {
		r.logger.Errorw("failed to update device", "id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update device: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return errors.NewConflictError("device was modified concurrently")
	}

	// BeforeUpdate bumped the persisted version; keep the aggregate in step.
	entity.SyncVersion(model.Version + 1)

	return nil
}

// Delete soft deletes a device
func (r *DeviceRepositoryImpl) Delete(ctx context.Context, id uint) error {
	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.Delete(&models.DeviceModel{}, id)
	if result.Error != nil {
		r.logger.Errorw("failed to delete device", "id", id, "error", result.Error)
		return fmt.Errorf("failed to delete device: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("device not found")
	}

	r.logger.Infow("device deleted successfully", "id", id)
	return nil
}

// List retrieves devices with filtering and pagination
func (r *DeviceRepositoryImpl) List(ctx context.Context, filter device.DeviceFilter) ([]*device.Device, int64, error) {
	tx := db.GetTxFromContext(ctx, r.db)
	query := tx.Model(&models.DeviceModel{})

	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Name != nil {
		query = query.Where("name LIKE ?", "%"+*filter.Name+"%")
	}
	if filter.Location != nil {
		query = query.Where("location LIKE ?", "%"+*filter.Location+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count devices: %w", err)
	}

	sortBy := "created_at"
	if filter.SortBy != "" {
		sortBy = filter.SortBy
	}
	order := sortBy
	if filter.SortDesc {
		order += " DESC"
	}

	var deviceModels []*models.DeviceModel
	if filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		if offset < 0 {
			offset = 0
		}
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	if err := query.Order(order).Find(&deviceModels).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list devices: %w", err)
	}

	entities, err := r.mapper.ToEntities(deviceModels)
	if err != nil {
		return nil, 0, err
	}

	return entities, total, nil
}

// GetByTenantID retrieves all devices for a tenant
func (r *DeviceRepositoryImpl) GetByTenantID(ctx context.Context, tenantID uint) ([]*device.Device, error) {
	var deviceModels []*models.DeviceModel

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Where("tenant_id = ?", tenantID).Find(&deviceModels).Error; err != nil {
		r.logger.Errorw("failed to get devices by tenant", "tenant_id", tenantID, "error", err)
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}

	return r.mapper.ToEntities(deviceModels)
}

// ExistsBySerialNumber checks whether a serial number is already registered for a tenant
func (r *DeviceRepositoryImpl) ExistsBySerialNumber(ctx context.Context, tenantID uint, serialNumber string) (bool, error) {
	var count int64

	tx := db.GetTxFromContext(ctx, r.db)
	err := tx.Model(&models.DeviceModel{}).
		Where("tenant_id = ? AND serial_number = ?", tenantID, serialNumber).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check serial number: %w", err)
	}

	return count > 0, nil
}

// isDuplicateError reports whether the error is a unique constraint violation.
// Covers MySQL and the sqlite driver used in integration tests.
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
