package mappers

import (
	"fmt"

	"veritime/internal/domain/punch"
	"veritime/internal/infrastructure/persistence/models"
)

// PunchRecordMapper handles the conversion between punch entities and persistence models
type PunchRecordMapper interface {
	ToEntity(model *models.PunchRecordModel) (*punch.PunchRecord, error)
	ToModel(entity *punch.PunchRecord) (*models.PunchRecordModel, error)
	ToEntities(models []*models.PunchRecordModel) ([]*punch.PunchRecord, error)
}

// PunchRecordMapperImpl is the concrete implementation of PunchRecordMapper
type PunchRecordMapperImpl struct{}

// NewPunchRecordMapper creates a new punch record mapper
func NewPunchRecordMapper() PunchRecordMapper {
	return &PunchRecordMapperImpl{}
}

// ToEntity converts a persistence model to a domain entity
func (m *PunchRecordMapperImpl) ToEntity(model *models.PunchRecordModel) (*punch.PunchRecord, error) {
	if model == nil {
		return nil, nil
	}

	punchType, err := punch.NewPunchType(model.PunchType)
	if err != nil {
		return nil, fmt.Errorf("invalid punch type: %w", err)
	}

	method, err := punch.NewVerificationMethod(model.Method)
	if err != nil {
		return nil, fmt.Errorf("invalid verification method: %w", err)
	}

	status, err := punch.NewPunchStatus(model.Status)
	if err != nil {
		return nil, fmt.Errorf("invalid punch status: %w", err)
	}

	var sequenceNo uint64
	if model.SequenceNo != nil {
		sequenceNo = *model.SequenceNo
	}

	entity, err := punch.ReconstructPunchRecord(
		model.ID,
		model.UUID,
		model.TenantID,
		model.DeviceID,
		model.DeviceSID,
		model.DeviceUserID,
		model.EmployeeID,
		model.PunchTime.UTC(),
		punchType,
		method,
		model.QualityScore,
		model.Latitude,
		model.Longitude,
		[]byte(model.RawPayload),
		status,
		model.ProcessingError,
		model.ProcessedAt,
		model.AttendanceDayID,
		sequenceNo,
		model.PrevDigest,
		model.Digest,
		model.DigestVersion,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct punch record entity: %w", err)
	}

	return entity, nil
}

// ToModel converts a domain entity to a persistence model
func (m *PunchRecordMapperImpl) ToModel(entity *punch.PunchRecord) (*models.PunchRecordModel, error) {
	if entity == nil {
		return nil, nil
	}

	// Unchained records persist a NULL sequence so the per-device
	// (device_id, sequence_no) uniqueness only applies to chained rows.
	var sequenceNo *uint64
	if entity.IsChained() {
		seq := entity.SequenceNo()
		sequenceNo = &seq
	}

	return &models.PunchRecordModel{
		ID:              entity.ID(),
		UUID:            entity.UUID(),
		TenantID:        entity.TenantID(),
		DeviceID:        entity.DeviceID(),
		DeviceSID:       entity.DeviceSID(),
		DeviceUserID:    entity.DeviceUserID(),
		EmployeeID:      entity.EmployeeID(),
		PunchTime:       entity.PunchTime(),
		PunchType:       entity.Type().String(),
		Method:          entity.Method().String(),
		QualityScore:    entity.QualityScore(),
		Latitude:        entity.Latitude(),
		Longitude:       entity.Longitude(),
		RawPayload:      []byte(entity.RawPayload()),
		Status:          entity.Status().String(),
		ProcessingError: entity.ProcessingError(),
		ProcessedAt:     entity.ProcessedAt(),
		AttendanceDayID: entity.AttendanceDayID(),
		SequenceNo:      sequenceNo,
		PrevDigest:      entity.PrevDigest(),
		Digest:          entity.Digest(),
		DigestVersion:   entity.DigestVersion(),
		Version:         entity.Version(),
		CreatedAt:       entity.CreatedAt(),
		UpdatedAt:       entity.UpdatedAt(),
	}, nil
}

// ToEntities converts multiple persistence models to domain entities
func (m *PunchRecordMapperImpl) ToEntities(punchModels []*models.PunchRecordModel) ([]*punch.PunchRecord, error) {
	entities := make([]*punch.PunchRecord, 0, len(punchModels))
	for _, model := range punchModels {
		entity, err := m.ToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to map punch record %d: %w", model.ID, err)
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
