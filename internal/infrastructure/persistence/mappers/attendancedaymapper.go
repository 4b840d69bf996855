package mappers

import (
	"fmt"

	"veritime/internal/domain/attendance"
	"veritime/internal/infrastructure/persistence/models"
)

// AttendanceDayMapper handles the conversion between attendance entities and persistence models
type AttendanceDayMapper interface {
	ToEntity(model *models.AttendanceDayModel) (*attendance.AttendanceDay, error)
	ToModel(entity *attendance.AttendanceDay) (*models.AttendanceDayModel, error)
	ToEntities(models []*models.AttendanceDayModel) ([]*attendance.AttendanceDay, error)
}

// AttendanceDayMapperImpl is the concrete implementation of AttendanceDayMapper
type AttendanceDayMapperImpl struct{}

// NewAttendanceDayMapper creates a new attendance day mapper
func NewAttendanceDayMapper() AttendanceDayMapper {
	return &AttendanceDayMapperImpl{}
}

// ToEntity converts a persistence model to a domain entity
func (m *AttendanceDayMapperImpl) ToEntity(model *models.AttendanceDayModel) (*attendance.AttendanceDay, error) {
	if model == nil {
		return nil, nil
	}

	status, err := attendance.NewDayStatus(model.Status)
	if err != nil {
		return nil, fmt.Errorf("invalid day status: %w", err)
	}

	entity, err := attendance.ReconstructAttendanceDay(
		model.ID,
		model.TenantID,
		model.EmployeeID,
		model.Date,
		model.CheckInAt,
		model.CheckOutAt,
		model.WorkedHours,
		model.OvertimeHours,
		status,
		model.ReviewNote,
		model.Authorized,
		model.AuthorizationNote,
		model.SourceDeviceID,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct attendance day entity: %w", err)
	}

	return entity, nil
}

// ToModel converts a domain entity to a persistence model
func (m *AttendanceDayMapperImpl) ToModel(entity *attendance.AttendanceDay) (*models.AttendanceDayModel, error) {
	if entity == nil {
		return nil, nil
	}

	return &models.AttendanceDayModel{
		ID:                entity.ID(),
		TenantID:          entity.TenantID(),
		EmployeeID:        entity.EmployeeID(),
		Date:              entity.Date(),
		CheckInAt:         entity.CheckInAt(),
		CheckOutAt:        entity.CheckOutAt(),
		WorkedHours:       entity.WorkedHours(),
		OvertimeHours:     entity.OvertimeHours(),
		Status:            entity.Status().String(),
		ReviewNote:        entity.ReviewNote(),
		Authorized:        entity.Authorized(),
		AuthorizationNote: entity.AuthorizationNote(),
		SourceDeviceID:    entity.SourceDeviceID(),
		Version:           entity.Version(),
		CreatedAt:         entity.CreatedAt(),
		UpdatedAt:         entity.UpdatedAt(),
	}, nil
}

// ToEntities converts multiple persistence models to domain entities
func (m *AttendanceDayMapperImpl) ToEntities(dayModels []*models.AttendanceDayModel) ([]*attendance.AttendanceDay, error) {
	entities := make([]*attendance.AttendanceDay, 0, len(dayModels))
	for _, model := range dayModels {
		entity, err := m.ToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to map attendance day %d: %w", model.ID, err)
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
