package usecases

import (
	"context"

	"veritime/internal/domain/device"
	"veritime/internal/domain/shared/events"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
)

type DecommissionDeviceCommand struct {
	SID      string
	TenantID uint
}

// DecommissionDeviceUseCase retires a device: every active credential is
// revoked, the device transitions to decommissioned and the row is soft
// deleted. Punch history stays intact.
type DecommissionDeviceUseCase struct {
	deviceRepo device.DeviceRepository
	credRepo   device.CredentialRepository
	dispatcher events.EventPublisher
	logger     logger.Interface
}

func NewDecommissionDeviceUseCase(
	deviceRepo device.DeviceRepository,
	credRepo device.CredentialRepository,
	dispatcher events.EventPublisher,
	logger logger.Interface,
) *DecommissionDeviceUseCase {
	return &DecommissionDeviceUseCase{
		deviceRepo: deviceRepo,
		credRepo:   credRepo,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (uc *DecommissionDeviceUseCase) Execute(ctx context.Context, cmd DecommissionDeviceCommand) error {
	if cmd.SID == "" {
		return errors.NewValidationError("device SID is required")
	}

	dev, err := uc.deviceRepo.GetBySID(ctx, cmd.SID)
	if err != nil {
		return err
	}

	if cmd.TenantID != 0 && dev.TenantID() != cmd.TenantID {
		return errors.NewNotFoundError("device not found")
	}

	creds, err := uc.credRepo.ListByDevice(ctx, dev.ID())
	if err != nil {
		uc.logger.Errorw("failed to list credentials for decommission", "device_sid", cmd.SID, "error", err)
		return err
	}

	for _, cred := range creds {
		if cred.IsRevoked() {
			continue
		}
		if err := cred.Revoke("device decommissioned"); err != nil {
			return errors.NewInternalError(err.Error())
		}
		if err := uc.credRepo.Update(ctx, cred); err != nil {
			uc.logger.Errorw("failed to revoke credential", "credential_sid", cred.SID(), "error", err)
			return err
		}
	}

	if err := dev.Decommission(); err != nil {
		return errors.NewValidationError(err.Error())
	}

	if err := uc.deviceRepo.Update(ctx, dev); err != nil {
		return err
	}

	if err := uc.deviceRepo.Delete(ctx, dev.ID()); err != nil {
		return err
	}

	publishDeviceEvents(uc.dispatcher, uc.logger, dev)

	uc.logger.Infow("device decommissioned",
		"device_sid", dev.SID(),
		"revoked_credentials", len(creds),
	)

	return nil
}
