package usecases

import (
	"context"

	"veritime/internal/domain/device"
	"veritime/internal/domain/shared/events"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
)

type RevokeCredentialCommand struct {
	CredentialSID string
	TenantID      uint
	Reason        string
}

type RevokeCredentialUseCase struct {
	deviceRepo device.DeviceRepository
	credRepo   device.CredentialRepository
	dispatcher events.EventPublisher
	logger     logger.Interface
}

func NewRevokeCredentialUseCase(
	deviceRepo device.DeviceRepository,
	credRepo device.CredentialRepository,
	dispatcher events.EventPublisher,
	logger logger.Interface,
) *RevokeCredentialUseCase {
	return &RevokeCredentialUseCase{
		deviceRepo: deviceRepo,
		credRepo:   credRepo,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (uc *RevokeCredentialUseCase) Execute(ctx context.Context, cmd RevokeCredentialCommand) error {
	if cmd.CredentialSID == "" {
		return errors.NewValidationError("credential SID is required")
	}
	if cmd.Reason == "" {
		return errors.NewValidationError("revoke reason is required")
	}

	cred, err := uc.credRepo.GetBySID(ctx, cmd.CredentialSID)
	if err != nil {
		return err
	}

	dev, err := uc.deviceRepo.GetByID(ctx, cred.DeviceID())
	if err != nil {
		return err
	}
	if cmd.TenantID != 0 && dev.TenantID() != cmd.TenantID {
		return errors.NewNotFoundError("credential not found")
	}

	if err := cred.Revoke(cmd.Reason); err != nil {
		return errors.NewConflictError(err.Error())
	}

	if err := uc.credRepo.Update(ctx, cred); err != nil {
		uc.logger.Errorw("failed to revoke credential", "credential_sid", cmd.CredentialSID, "error", err)
		return err
	}

	publishEvent(uc.dispatcher, uc.logger, device.NewCredentialRevokedEvent(cred.SID(), dev.SID(), cmd.Reason))

	uc.logger.Infow("credential revoked",
		"credential_sid", cred.SID(),
		"reason", cmd.Reason,
	)

	return nil
}
