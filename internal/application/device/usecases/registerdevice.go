package usecases

import (
	"context"

	"veritime/internal/domain/device"
	"veritime/internal/domain/shared/events"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/id"
	"veritime/internal/shared/logger"
)

type RegisterDeviceCommand struct {
	TenantID     uint
	Name         string
	SerialNumber string
	Model        string
	Location     string
	IPAllowlist  []string
	// Activate registers the device directly in the active state instead
	// of leaving it pending for a separate approval step.
	Activate bool
}

type RegisterDeviceResult struct {
	Device *DeviceDTO
}

type RegisterDeviceUseCase struct {
	deviceRepo device.DeviceRepository
	dispatcher events.EventPublisher
	logger     logger.Interface
}

func NewRegisterDeviceUseCase(
	deviceRepo device.DeviceRepository,
	dispatcher events.EventPublisher,
	logger logger.Interface,
) *RegisterDeviceUseCase {
	return &RegisterDeviceUseCase{
		deviceRepo: deviceRepo,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (uc *RegisterDeviceUseCase) Execute(ctx context.Context, cmd RegisterDeviceCommand) (*RegisterDeviceResult, error) {
	uc.logger.Infow("executing register device use case",
		"tenant_id", cmd.TenantID,
		"serial_number", cmd.SerialNumber,
	)

	if err := uc.validateCommand(cmd); err != nil {
		uc.logger.Errorw("invalid register device command", "error", err)
		return nil, err
	}

	exists, err := uc.deviceRepo.ExistsBySerialNumber(ctx, cmd.TenantID, cmd.SerialNumber)
	if err != nil {
		uc.logger.Errorw("failed to check serial number", "error", err)
		return nil, errors.NewInternalError("failed to check serial number")
	}
	if exists {
		return nil, errors.NewConflictError("a device with this serial number is already registered")
	}

	sid, err := id.NewDeviceID()
	if err != nil {
		uc.logger.Errorw("failed to generate device SID", "error", err)
		return nil, errors.NewInternalError("failed to generate device identifier")
	}

	dev, err := device.NewDevice(
		id.FormatDeviceID(sid),
		cmd.TenantID,
		cmd.Name,
		cmd.SerialNumber,
		cmd.Model,
		cmd.Location,
		cmd.IPAllowlist,
	)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	if cmd.Activate {
		if err := dev.Activate(); err != nil {
			return nil, errors.NewValidationError(err.Error())
		}
	}

	if err := uc.deviceRepo.Create(ctx, dev); err != nil {
		uc.logger.Errorw("failed to create device", "error", err)
		return nil, err
	}

	publishDeviceEvents(uc.dispatcher, uc.logger, dev)

	uc.logger.Infow("device registered",
		"device_sid", dev.SID(),
		"tenant_id", dev.TenantID(),
		"status", dev.Status().String(),
	)

	return &RegisterDeviceResult{Device: toDeviceDTO(dev)}, nil
}

func (uc *RegisterDeviceUseCase) validateCommand(cmd RegisterDeviceCommand) error {
	if cmd.TenantID == 0 {
		return errors.NewValidationError("tenant ID is required")
	}

	if cmd.Name == "" {
		return errors.NewValidationError("device name is required")
	}

	if cmd.SerialNumber == "" {
		return errors.NewValidationError("serial number is required")
	}

	return nil
}
