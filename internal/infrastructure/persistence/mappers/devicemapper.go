package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"veritime/internal/domain/device"
	"veritime/internal/infrastructure/persistence/models"
)

// DeviceMapper handles the conversion between domain entities and persistence models
type DeviceMapper interface {
	// ToEntity converts a persistence model to a domain entity
	ToEntity(model *models.DeviceModel) (*device.Device, error)

	// ToModel converts a domain entity to a persistence model
	ToModel(entity *device.Device) (*models.DeviceModel, error)

	// ToEntities converts multiple persistence models to domain entities
	ToEntities(models []*models.DeviceModel) ([]*device.Device, error)
}

// DeviceMapperImpl is the concrete implementation of DeviceMapper
type DeviceMapperImpl struct{}

// NewDeviceMapper creates a new device mapper
func NewDeviceMapper() DeviceMapper {
	return &DeviceMapperImpl{}
}

// ToEntity converts a persistence model to a domain entity
func (m *DeviceMapperImpl) ToEntity(model *models.DeviceModel) (*device.Device, error) {
	if model == nil {
		return nil, nil
	}

	status, err := device.NewDeviceStatus(model.Status)
	if err != nil {
		return nil, fmt.Errorf("invalid device status: %w", err)
	}

	var ipAllowlist []string
	if len(model.IPAllowlist) > 0 {
		if err := json.Unmarshal(model.IPAllowlist, &ipAllowlist); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ip_allowlist: %w", err)
		}
	}

	entity, err := device.ReconstructDevice(
		model.ID,
		model.SID,
		model.TenantID,
		model.Name,
		model.SerialNumber,
		model.Model,
		model.Location,
		status,
		ipAllowlist,
		model.LastSeenAt,
		model.LastSyncAt,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct device entity: %w", err)
	}

	return entity, nil
}

// ToModel converts a domain entity to a persistence model
func (m *DeviceMapperImpl) ToModel(entity *device.Device) (*models.DeviceModel, error) {
	if entity == nil {
		return nil, nil
	}

	var allowlistJSON datatypes.JSON
	if allowlist := entity.IPAllowlist(); len(allowlist) > 0 {
		allowlistBytes, err := json.Marshal(allowlist)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal ip_allowlist: %w", err)
		}
		allowlistJSON = allowlistBytes
	}

	return &models.DeviceModel{
		ID:           entity.ID(),
		SID:          entity.SID(),
		TenantID:     entity.TenantID(),
		Name:         entity.Name(),
		SerialNumber: entity.SerialNumber(),
		Model:        entity.Model(),
		Location:     entity.Location(),
		Status:       entity.Status().String(),
		IPAllowlist:  allowlistJSON,
		LastSeenAt:   entity.LastSeenAt(),
		LastSyncAt:   entity.LastSyncAt(),
		Version:      entity.Version(),
		CreatedAt:    entity.CreatedAt(),
		UpdatedAt:    entity.UpdatedAt(),
	}, nil
}

// ToEntities converts multiple persistence models to domain entities
func (m *DeviceMapperImpl) ToEntities(deviceModels []*models.DeviceModel) ([]*device.Device, error) {
	entities := make([]*device.Device, 0, len(deviceModels))
	for _, model := range deviceModels {
		entity, err := m.ToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to map device %d: %w", model.ID, err)
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
