package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"veritime/internal/domain/device"
	"veritime/internal/infrastructure/persistence/mappers"
	"veritime/internal/infrastructure/persistence/models"
	"veritime/internal/shared/db"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
)

// CredentialRepositoryImpl implements the device.CredentialRepository interface
type CredentialRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.CredentialMapper
	logger logger.Interface
}

// NewCredentialRepository creates a new credential repository instance
func NewCredentialRepository(gormDB *gorm.DB, log logger.Interface) device.CredentialRepository {
	return &CredentialRepositoryImpl{
		db:     gormDB,
		mapper: mappers.NewCredentialMapper(),
		logger: log,
	}
}

// Create creates a new credential in the database
func (r *CredentialRepositoryImpl) Create(ctx context.Context, entity *device.DeviceCredential) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		r.logger.Errorw("failed to map credential entity to model", "error", err)
		return fmt.Errorf("failed to map credential entity: %w", err)
	}

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return errors.NewConflictError("credential already exists")
		}
		r.logger.Errorw("failed to create credential in database", "error", err)
		return fmt.Errorf("failed to create credential: %w", err)
	}

	if err := entity.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set credential ID: %w", err)
	}

	r.logger.Infow("credential created successfully", "id", model.ID, "sid", model.SID, "device_id", model.DeviceID)
	return nil
}

// GetByID retrieves a credential by its ID
func (r *CredentialRepositoryImpl) GetByID(ctx context.Context, id uint) (*device.DeviceCredential, error) {
	var model models.DeviceCredentialModel

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("credential not found")
		}
		r.logger.Errorw("failed to get credential by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

// GetBySID retrieves a credential by its SID
func (r *CredentialRepositoryImpl) GetBySID(ctx context.Context, sid string) (*device.DeviceCredential, error) {
	var model models.DeviceCredentialModel

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Where("sid = ?", sid).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("credential not found")
		}
		r.logger.Errorw("failed to get credential by SID", "sid", sid, "error", err)
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

// GetByDigest retrieves a credential by its secret digest.
// This is the hot path for device authentication.
func (r *CredentialRepositoryImpl) GetByDigest(ctx context.Context, digest string) (*device.DeviceCredential, error) {
	var model models.DeviceCredentialModel

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Where("secret_digest = ?", digest).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("credential not found")
		}
		r.logger.Errorw("failed to get credential by digest", "error", err)
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

// Update updates an existing credential with optimistic locking
func (r *CredentialRepositoryImpl) Update(ctx context.Context, entity *device.DeviceCredential) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		r.logger.Errorw("failed to map credential entity to model", "error", err)
		return fmt.Errorf("failed to map credential entity: %w", err)
	}

	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.Model(model).
		Where("id = ? AND version = ?", model.ID, model.Version).
		Updates(map[string]interface{}{
			"label":         model.Label,
			"status":        model.Status,
			"ip_allowlist":  model.IPAllowlist,
			"expires_at":    model.ExpiresAt,
			"last_used_at":  model.LastUsedAt,
			"last_used_ip":  model.LastUsedIP,
			"usage_count":   model.UsageCount,
			"revoked_at":    model.RevokedAt,
			"revoke_reason": model.RevokeReason,
			"updated_at":    model.UpdatedAt,
		})

	if result.Error != nil {
		r.logger.Errorw("failed to update credential", "id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update credential: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return errors.NewConflictError("credential was modified concurrently")
	}

	// BeforeUpdate bumped the persisted version; keep the aggregate in step.
	entity.SyncVersion(model.Version + 1)

	return nil
}

// ListByDevice retrieves all credentials for a device
func (r *CredentialRepositoryImpl) ListByDevice(ctx context.Context, deviceID uint) ([]*device.DeviceCredential, error) {
	var credentialModels []*models.DeviceCredentialModel

	tx := db.GetTxFromContext(ctx, r.db)
	err := tx.Where("device_id = ?", deviceID).
		Order("created_at DESC").
		Find(&credentialModels).Error
	if err != nil {
		r.logger.Errorw("failed to list credentials by device", "device_id", deviceID, "error", err)
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	return r.mapper.ToEntities(credentialModels)
}

// ListExpiring retrieves active credentials that expire before the given time
func (r *CredentialRepositoryImpl) ListExpiring(ctx context.Context, before time.Time) ([]*device.DeviceCredential, error) {
	var credentialModels []*models.DeviceCredentialModel

	tx := db.GetTxFromContext(ctx, r.db)
	err := tx.Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", "active", before).
		Order("expires_at ASC").
		Find(&credentialModels).Error
	if err != nil {
		r.logger.Errorw("failed to list expiring credentials", "error", err)
		return nil, fmt.Errorf("failed to list expiring credentials: %w", err)
	}

	return r.mapper.ToEntities(credentialModels)
}

// CountActiveByDevice counts active credentials for a device
func (r *CredentialRepositoryImpl) CountActiveByDevice(ctx context.Context, deviceID uint) (int64, error) {
	var count int64

	tx := db.GetTxFromContext(ctx, r.db)
	err := tx.Model(&models.DeviceCredentialModel{}).
		Where("device_id = ? AND status = ?", deviceID, "active").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active credentials: %w", err)
	}

	return count, nil
}
