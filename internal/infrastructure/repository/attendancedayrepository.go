package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"veritime/internal/domain/attendance"
	"veritime/internal/infrastructure/persistence/mappers"
	"veritime/internal/infrastructure/persistence/models"
	"veritime/internal/shared/db"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
)

// AttendanceDayRepositoryImpl implements the attendance.AttendanceDayRepository interface
type AttendanceDayRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.AttendanceDayMapper
	logger logger.Interface
}

// NewAttendanceDayRepository creates a new attendance day repository instance
func NewAttendanceDayRepository(gormDB *gorm.DB, log logger.Interface) attendance.AttendanceDayRepository {
	return &AttendanceDayRepositoryImpl{
		db:     gormDB,
		mapper: mappers.NewAttendanceDayMapper(),
		logger: log,
	}
}

// Create creates a new attendance day in the database
func (r *AttendanceDayRepositoryImpl) Create(ctx context.Context, entity *attendance.AttendanceDay) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		r.logger.Errorw("failed to map attendance day entity to model", "error", err)
		return fmt.Errorf("failed to map attendance day entity: %w", err)
	}

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return errors.NewConflictError("attendance day already exists for this employee and date")
		}
		r.logger.Errorw("failed to create attendance day in database", "error", err)
		return fmt.Errorf("failed to create attendance day: %w", err)
	}

	if err := entity.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set attendance day ID: %w", err)
	}

	return nil
}

// GetByID retrieves an attendance day by its ID
func (r *AttendanceDayRepositoryImpl) GetByID(ctx context.Context, id uint) (*attendance.AttendanceDay, error) {
	var model models.AttendanceDayModel

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("attendance day not found")
		}
		r.logger.Errorw("failed to get attendance day by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get attendance day: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

// GetByEmployeeAndDate retrieves the unique day for (employee, date)
func (r *AttendanceDayRepositoryImpl) GetByEmployeeAndDate(ctx context.Context, employeeID uint, date string) (*attendance.AttendanceDay, error) {
	var model models.AttendanceDayModel

	tx := db.GetTxFromContext(ctx, r.db)
	err := tx.Where("employee_id = ? AND date = ?", employeeID, date).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("attendance day not found")
		}
		r.logger.Errorw("failed to get attendance day", "employee_id", employeeID, "date", date, "error", err)
		return nil, fmt.Errorf("failed to get attendance day: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

// Update persists the day with an optimistic version check
func (r *AttendanceDayRepositoryImpl) Update(ctx context.Context, entity *attendance.AttendanceDay) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		r.logger.Errorw("failed to map attendance day entity to model", "error", err)
		return fmt.Errorf("failed to map attendance day entity: %w", err)
	}

	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.Model(model).
		Where("id = ? AND version = ?", model.ID, model.Version).
		Updates(map[string]interface{}{
			"check_in_at":        model.CheckInAt,
			"check_out_at":       model.CheckOutAt,
			"worked_hours":       model.WorkedHours,
			"overtime_hours":     model.OvertimeHours,
			"status":             model.Status,
			"review_note":        model.ReviewNote,
			"authorized":         model.Authorized,
			"authorization_note": model.AuthorizationNote,
			"updated_at":         model.UpdatedAt,
		})

	if result.Error != nil {
		r.logger.Errorw("failed to update attendance day", "id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update attendance day: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return errors.NewConflictError("attendance day was modified concurrently")
	}

	// BeforeUpdate bumped the persisted version; keep the aggregate in step.
	entity.SyncVersion(model.Version + 1)

	return nil
}

// List retrieves attendance days with filtering and pagination
func (r *AttendanceDayRepositoryImpl) List(ctx context.Context, filter attendance.AttendanceFilter) ([]*attendance.AttendanceDay, int64, error) {
	tx := db.GetTxFromContext(ctx, r.db)
	query := tx.Model(&models.AttendanceDayModel{})

	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.EmployeeID != nil {
		query = query.Where("employee_id = ?", *filter.EmployeeID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.DateFrom != nil {
		query = query.Where("date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("date <= ?", *filter.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance days: %w", err)
	}

	order := "date"
	if filter.SortDesc {
		order += " DESC"
	}

	var dayModels []*models.AttendanceDayModel
	if filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		if offset < 0 {
			offset = 0
		}
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	if err := query.Order(order).Find(&dayModels).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list attendance days: %w", err)
	}

	entities, err := r.mapper.ToEntities(dayModels)
	if err != nil {
		return nil, 0, err
	}

	return entities, total, nil
}
