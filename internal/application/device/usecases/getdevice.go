package usecases

import (
	"context"

	"veritime/internal/domain/device"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
)

type GetDeviceCommand struct {
	SID      string
	TenantID uint
}

type GetDeviceResult struct {
	Device *DeviceDTO
}

type GetDeviceUseCase struct {
	deviceRepo device.DeviceRepository
	logger     logger.Interface
}

func NewGetDeviceUseCase(
	deviceRepo device.DeviceRepository,
	logger logger.Interface,
) *GetDeviceUseCase {
	return &GetDeviceUseCase{
		deviceRepo: deviceRepo,
		logger:     logger,
	}
}

func (uc *GetDeviceUseCase) Execute(ctx context.Context, cmd GetDeviceCommand) (*GetDeviceResult, error) {
	if cmd.SID == "" {
		return nil, errors.NewValidationError("device SID is required")
	}

	dev, err := uc.deviceRepo.GetBySID(ctx, cmd.SID)
	if err != nil {
		return nil, err
	}

	// Tenant scoping: admins never see devices outside their tenant.
	if cmd.TenantID != 0 && dev.TenantID() != cmd.TenantID {
		return nil, errors.NewNotFoundError("device not found")
	}

	return &GetDeviceResult{Device: toDeviceDTO(dev)}, nil
}
