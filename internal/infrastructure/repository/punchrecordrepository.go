package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"veritime/internal/domain/punch"
	"veritime/internal/infrastructure/persistence/mappers"
	"veritime/internal/infrastructure/persistence/models"
	"veritime/internal/shared/db"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
)

// PunchRecordRepositoryImpl implements the punch.PunchRecordRepository interface
type PunchRecordRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.PunchRecordMapper
	logger logger.Interface
}

// NewPunchRecordRepository creates a new punch record repository instance
func NewPunchRecordRepository(gormDB *gorm.DB, log logger.Interface) punch.PunchRecordRepository {
	return &PunchRecordRepositoryImpl{
		db:     gormDB,
		mapper: mappers.NewPunchRecordMapper(),
		logger: log,
	}
}

// Create creates a new punch record in the database
func (r *PunchRecordRepositoryImpl) Create(ctx context.Context, entity *punch.PunchRecord) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		r.logger.Errorw("failed to map punch record entity to model", "error", err)
		return fmt.Errorf("failed to map punch record entity: %w", err)
	}

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Create(model).Error; err != nil {
		if isDuplicateError(err) {
			if strings.Contains(err.Error(), "uuid") {
				return errors.NewConflictError("punch record with this UUID already exists")
			}
			// the per-device sequence slot was taken by a concurrent writer
			return errors.NewConflictError("chain sequence conflict")
		}
		r.logger.Errorw("failed to create punch record in database", "error", err)
		return fmt.Errorf("failed to create punch record: %w", err)
	}

	if err := entity.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set punch record ID: %w", err)
	}

	return nil
}

// GetByID retrieves a punch record by its ID
func (r *PunchRecordRepositoryImpl) GetByID(ctx context.Context, id uint) (*punch.PunchRecord, error) {
	var model models.PunchRecordModel

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("punch record not found")
		}
		r.logger.Errorw("failed to get punch record by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get punch record: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

// GetByUUID retrieves a punch record by its client-supplied UUID
func (r *PunchRecordRepositoryImpl) GetByUUID(ctx context.Context, uuid string) (*punch.PunchRecord, error) {
	var model models.PunchRecordModel

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Where("uuid = ?", uuid).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("punch record not found")
		}
		r.logger.Errorw("failed to get punch record by UUID", "uuid", uuid, "error", err)
		return nil, fmt.Errorf("failed to get punch record: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

// Update updates an existing punch record with optimistic locking
func (r *PunchRecordRepositoryImpl) Update(ctx context.Context, entity *punch.PunchRecord) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		r.logger.Errorw("failed to map punch record entity to model", "error", err)
		return fmt.Errorf("failed to map punch record entity: %w", err)
	}

	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.Model(model).
		Where("id = ? AND version = ?", model.ID, model.Version).
		Updates(map[string]interface{}{
			"employee_id":       model.EmployeeID,
			"status":            model.Status,
			"processing_error":  model.ProcessingError,
			"processed_at":      model.ProcessedAt,
			"attendance_day_id": model.AttendanceDayID,
			"sequence_no":       model.SequenceNo,
			"prev_digest":       model.PrevDigest,
			"digest":            model.Digest,
			"digest_version":    model.DigestVersion,
			"updated_at":        model.UpdatedAt,
		})

	if result.Error != nil {
		if isDuplicateError(result.Error) {
			return errors.NewConflictError("chain sequence conflict")
		}
		r.logger.Errorw("failed to update punch record", "id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update punch record: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return errors.NewConflictError("punch record was modified concurrently")
	}

	// BeforeUpdate bumped the persisted version; keep the aggregate in step.
	entity.SyncVersion(model.Version + 1)

	return nil
}

// List retrieves punch records with filtering and pagination
func (r *PunchRecordRepositoryImpl) List(ctx context.Context, filter punch.PunchFilter) ([]*punch.PunchRecord, int64, error) {
	tx := db.GetTxFromContext(ctx, r.db)
	query := tx.Model(&models.PunchRecordModel{})

	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.DeviceID != nil {
		query = query.Where("device_id = ?", *filter.DeviceID)
	}
	if filter.EmployeeID != nil {
		query = query.Where("employee_id = ?", *filter.EmployeeID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		query = query.Where("punch_time >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("punch_time <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count punch records: %w", err)
	}

	order := "punch_time"
	if filter.SortDesc {
		order += " DESC"
	}

	var punchModels []*models.PunchRecordModel
	if filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		if offset < 0 {
			offset = 0
		}
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	if err := query.Order(order).Find(&punchModels).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list punch records: %w", err)
	}

	entities, err := r.mapper.ToEntities(punchModels)
	if err != nil {
		return nil, 0, err
	}

	return entities, total, nil
}

// ListFailed retrieves failed punch records for reprocessing, oldest first
func (r *PunchRecordRepositoryImpl) ListFailed(ctx context.Context, tenantID uint, limit int) ([]*punch.PunchRecord, error) {
	var punchModels []*models.PunchRecordModel

	tx := db.GetTxFromContext(ctx, r.db)
	query := tx.Where("status = ?", "failed")
	if tenantID != 0 {
		query = query.Where("tenant_id = ?", tenantID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Order("created_at ASC").Find(&punchModels).Error; err != nil {
		r.logger.Errorw("failed to list failed punch records", "tenant_id", tenantID, "error", err)
		return nil, fmt.Errorf("failed to list failed punch records: %w", err)
	}

	return r.mapper.ToEntities(punchModels)
}

// ListChained retrieves chained records for a device in sequence order.
// toSeq of zero means no upper bound.
func (r *PunchRecordRepositoryImpl) ListChained(ctx context.Context, deviceID uint, fromSeq, toSeq uint64) ([]*punch.PunchRecord, error) {
	var punchModels []*models.PunchRecordModel

	tx := db.GetTxFromContext(ctx, r.db)
	query := tx.Where("device_id = ? AND sequence_no IS NOT NULL AND sequence_no >= ?", deviceID, fromSeq)
	if toSeq > 0 {
		query = query.Where("sequence_no <= ?", toSeq)
	}
	if err := query.Order("sequence_no ASC").Find(&punchModels).Error; err != nil {
		r.logger.Errorw("failed to list chained punch records", "device_id", deviceID, "error", err)
		return nil, fmt.Errorf("failed to list chained punch records: %w", err)
	}

	return r.mapper.ToEntities(punchModels)
}

// GetChainHead returns the highest chained entry for a device, or nil for an empty chain
func (r *PunchRecordRepositoryImpl) GetChainHead(ctx context.Context, deviceID uint) (*punch.ChainHead, error) {
	var model models.PunchRecordModel

	tx := db.GetTxFromContext(ctx, r.db)
	err := tx.Where("device_id = ? AND sequence_no IS NOT NULL", deviceID).
		Order("sequence_no DESC").
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get chain head", "device_id", deviceID, "error", err)
		return nil, fmt.Errorf("failed to get chain head: %w", err)
	}

	head := &punch.ChainHead{Digest: model.Digest}
	if model.SequenceNo != nil {
		head.SequenceNo = *model.SequenceNo
	}
	return head, nil
}

// HasRecentAccepted reports whether a chained punch of the same type exists for
// the employee on the device within the trailing window before punchTime
func (r *PunchRecordRepositoryImpl) HasRecentAccepted(ctx context.Context, employeeID, deviceID uint, punchType punch.PunchType, punchTime time.Time, window time.Duration) (bool, error) {
	var count int64

	tx := db.GetTxFromContext(ctx, r.db)
	err := tx.Model(&models.PunchRecordModel{}).
		Where("employee_id = ? AND device_id = ? AND punch_type = ? AND sequence_no IS NOT NULL", employeeID, deviceID, punchType.String()).
		Where("punch_time > ? AND punch_time <= ?", punchTime.Add(-window), punchTime).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check recent punches: %w", err)
	}

	return count > 0, nil
}

// CountAcceptedForDay counts chained punches for an employee inside the day boundaries
func (r *PunchRecordRepositoryImpl) CountAcceptedForDay(ctx context.Context, employeeID uint, dayStart, dayEnd time.Time) (int64, error) {
	var count int64

	tx := db.GetTxFromContext(ctx, r.db)
	err := tx.Model(&models.PunchRecordModel{}).
		Where("employee_id = ? AND sequence_no IS NOT NULL", employeeID).
		Where("punch_time >= ? AND punch_time <= ?", dayStart, dayEnd).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count punches for day: %w", err)
	}

	return count, nil
}
