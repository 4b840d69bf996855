package usecases

import (
	"context"

	"veritime/internal/domain/device"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
)

type ListCredentialsCommand struct {
	DeviceSID string
	TenantID  uint
}

type ListCredentialsResult struct {
	Credentials []*CredentialDTO
}

type ListCredentialsUseCase struct {
	deviceRepo device.DeviceRepository
	credRepo   device.CredentialRepository
	logger     logger.Interface
}

func NewListCredentialsUseCase(
	deviceRepo device.DeviceRepository,
	credRepo device.CredentialRepository,
	logger logger.Interface,
) *ListCredentialsUseCase {
	return &ListCredentialsUseCase{
		deviceRepo: deviceRepo,
		credRepo:   credRepo,
		logger:     logger,
	}
}

func (uc *ListCredentialsUseCase) Execute(ctx context.Context, cmd ListCredentialsCommand) (*ListCredentialsResult, error) {
	if cmd.DeviceSID == "" {
		return nil, errors.NewValidationError("device SID is required")
	}

	dev, err := uc.deviceRepo.GetBySID(ctx, cmd.DeviceSID)
	if err != nil {
		return nil, err
	}

	if cmd.TenantID != 0 && dev.TenantID() != cmd.TenantID {
		return nil, errors.NewNotFoundError("device not found")
	}

	creds, err := uc.credRepo.ListByDevice(ctx, dev.ID())
	if err != nil {
		uc.logger.Errorw("failed to list credentials", "device_sid", cmd.DeviceSID, "error", err)
		return nil, err
	}

	return &ListCredentialsResult{Credentials: toCredentialDTOs(creds)}, nil
}
