package usecases

import (
	"context"

	"veritime/internal/domain/device"
	"veritime/internal/domain/shared/events"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
)

type UpdateDeviceCommand struct {
	SID      string
	TenantID uint

	Name        *string
	Model       *string
	Location    *string
	IPAllowlist *[]string

	// Status moves the device through its lifecycle. Suspending requires
	// StatusReason.
	Status       *string
	StatusReason string
}

type UpdateDeviceResult struct {
	Device *DeviceDTO
}

type UpdateDeviceUseCase struct {
	deviceRepo device.DeviceRepository
	dispatcher events.EventPublisher
	logger     logger.Interface
}

func NewUpdateDeviceUseCase(
	deviceRepo device.DeviceRepository,
	dispatcher events.EventPublisher,
	logger logger.Interface,
) *UpdateDeviceUseCase {
	return &UpdateDeviceUseCase{
		deviceRepo: deviceRepo,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (uc *UpdateDeviceUseCase) Execute(ctx context.Context, cmd UpdateDeviceCommand) (*UpdateDeviceResult, error) {
	if cmd.SID == "" {
		return nil, errors.NewValidationError("device SID is required")
	}

	dev, err := uc.deviceRepo.GetBySID(ctx, cmd.SID)
	if err != nil {
		return nil, err
	}

	if cmd.TenantID != 0 && dev.TenantID() != cmd.TenantID {
		return nil, errors.NewNotFoundError("device not found")
	}

	if err := uc.applyChanges(dev, cmd); err != nil {
		return nil, err
	}

	if err := uc.deviceRepo.Update(ctx, dev); err != nil {
		uc.logger.Errorw("failed to update device", "device_sid", cmd.SID, "error", err)
		return nil, err
	}

	publishDeviceEvents(uc.dispatcher, uc.logger, dev)

	uc.logger.Infow("device updated", "device_sid", dev.SID(), "status", dev.Status().String())

	return &UpdateDeviceResult{Device: toDeviceDTO(dev)}, nil
}

func (uc *UpdateDeviceUseCase) applyChanges(dev *device.Device, cmd UpdateDeviceCommand) error {
	if cmd.Name != nil {
		if err := dev.UpdateName(*cmd.Name); err != nil {
			return errors.NewValidationError(err.Error())
		}
	}

	if cmd.Model != nil {
		if err := dev.UpdateModel(*cmd.Model); err != nil {
			return errors.NewValidationError(err.Error())
		}
	}

	if cmd.Location != nil {
		if err := dev.UpdateLocation(*cmd.Location); err != nil {
			return errors.NewValidationError(err.Error())
		}
	}

	if cmd.IPAllowlist != nil {
		if err := dev.UpdateIPAllowlist(*cmd.IPAllowlist); err != nil {
			return errors.NewValidationError(err.Error())
		}
	}

	if cmd.Status != nil {
		target, err := device.NewDeviceStatus(*cmd.Status)
		if err != nil {
			return errors.NewValidationError(err.Error())
		}

		switch target {
		case device.DeviceStatusActive:
			err = dev.Activate()
		case device.DeviceStatusSuspended:
			err = dev.Suspend(cmd.StatusReason)
		case device.DeviceStatusDecommissioned:
			err = dev.Decommission()
		default:
			return errors.NewValidationError("unsupported status transition target")
		}
		if err != nil {
			return errors.NewValidationError(err.Error())
		}
	}

	return nil
}
