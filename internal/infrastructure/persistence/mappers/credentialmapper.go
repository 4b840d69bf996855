package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"veritime/internal/domain/device"
	"veritime/internal/infrastructure/persistence/models"
)

// CredentialMapper handles the conversion between credential entities and persistence models
type CredentialMapper interface {
	ToEntity(model *models.DeviceCredentialModel) (*device.DeviceCredential, error)
	ToModel(entity *device.DeviceCredential) (*models.DeviceCredentialModel, error)
	ToEntities(models []*models.DeviceCredentialModel) ([]*device.DeviceCredential, error)
}

// CredentialMapperImpl is the concrete implementation of CredentialMapper
type CredentialMapperImpl struct{}

// NewCredentialMapper creates a new credential mapper
func NewCredentialMapper() CredentialMapper {
	return &CredentialMapperImpl{}
}

// ToEntity converts a persistence model to a domain entity
func (m *CredentialMapperImpl) ToEntity(model *models.DeviceCredentialModel) (*device.DeviceCredential, error) {
	if model == nil {
		return nil, nil
	}

	var secret *device.CredentialSecret
	var err error
	if model.ExpiresAt != nil {
		secret, err = device.NewCredentialSecretWithExpiry(model.SecretDigest, *model.ExpiresAt)
	} else {
		secret, err = device.NewCredentialSecret(model.SecretDigest)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create credential secret value object: %w", err)
	}

	status := device.CredentialStatus(model.Status)
	switch status {
	case device.CredentialStatusActive, device.CredentialStatusRevoked:
	default:
		return nil, fmt.Errorf("invalid credential status: %s", model.Status)
	}

	var ipAllowlist []string
	if len(model.IPAllowlist) > 0 {
		if err := json.Unmarshal(model.IPAllowlist, &ipAllowlist); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ip_allowlist: %w", err)
		}
	}

	entity, err := device.ReconstructCredential(
		model.ID,
		model.SID,
		model.DeviceID,
		model.Label,
		secret,
		status,
		model.PerMinuteQuota,
		ipAllowlist,
		model.RotatedFromSID,
		model.LastUsedAt,
		model.LastUsedIP,
		model.UsageCount,
		model.RevokedAt,
		model.RevokeReason,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct credential entity: %w", err)
	}

	return entity, nil
}

// ToModel converts a domain entity to a persistence model
func (m *CredentialMapperImpl) ToModel(entity *device.DeviceCredential) (*models.DeviceCredentialModel, error) {
	if entity == nil {
		return nil, nil
	}

	var allowlistJSON datatypes.JSON
	if allowlist := entity.IPAllowlist(); len(allowlist) > 0 {
		raw, err := json.Marshal(allowlist)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal ip_allowlist: %w", err)
		}
		allowlistJSON = raw
	}

	return &models.DeviceCredentialModel{
		ID:             entity.ID(),
		SID:            entity.SID(),
		DeviceID:       entity.DeviceID(),
		Label:          entity.Label(),
		SecretDigest:   entity.Secret().Digest(),
		ExpiresAt:      entity.Secret().ExpiresAt(),
		Status:         string(entity.Status()),
		PerMinuteQuota: entity.PerMinuteQuota(),
		IPAllowlist:    allowlistJSON,
		RotatedFromSID: entity.RotatedFromSID(),
		LastUsedAt:     entity.LastUsedAt(),
		LastUsedIP:     entity.LastUsedIP(),
		UsageCount:     entity.UsageCount(),
		RevokedAt:      entity.RevokedAt(),
		RevokeReason:   entity.RevokeReason(),
		Version:        entity.Version(),
		CreatedAt:      entity.CreatedAt(),
		UpdatedAt:      entity.UpdatedAt(),
	}, nil
}

// ToEntities converts multiple persistence models to domain entities
func (m *CredentialMapperImpl) ToEntities(credentialModels []*models.DeviceCredentialModel) ([]*device.DeviceCredential, error) {
	entities := make([]*device.DeviceCredential, 0, len(credentialModels))
	for _, model := range credentialModels {
		entity, err := m.ToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to map credential %d: %w", model.ID, err)
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
