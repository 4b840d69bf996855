package usecases

import (
	"context"
	"time"

	"veritime/internal/domain/device"
	"veritime/internal/domain/shared/events"
	"veritime/internal/shared/config"
	"veritime/internal/shared/db"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/id"
	"veritime/internal/shared/logger"
)

type RotateCredentialCommand struct {
	CredentialSID string
	TenantID      uint
	TTLDays       int
}

type RotateCredentialResult struct {
	Credential  *CredentialDTO
	PlainSecret string
	// RevokedCredentialSID identifies the superseded credential, revoked
	// in the same transaction that created the new one.
	RevokedCredentialSID string
}

// RotateCredentialUseCase supersedes a credential with a fresh secret.
// The old credential is revoked in the same transaction that persists the
// new one, so at no point do both secrets authenticate.
type RotateCredentialUseCase struct {
	deviceRepo device.DeviceRepository
	credRepo   device.CredentialRepository
	txManager  *db.TransactionManager
	dispatcher events.EventPublisher
	credConfig config.CredentialConfig
	logger     logger.Interface
}

func NewRotateCredentialUseCase(
	deviceRepo device.DeviceRepository,
	credRepo device.CredentialRepository,
	txManager *db.TransactionManager,
	dispatcher events.EventPublisher,
	credConfig config.CredentialConfig,
	logger logger.Interface,
) *RotateCredentialUseCase {
	return &RotateCredentialUseCase{
		deviceRepo: deviceRepo,
		credRepo:   credRepo,
		txManager:  txManager,
		dispatcher: dispatcher,
		credConfig: credConfig,
		logger:     logger,
	}
}

func (uc *RotateCredentialUseCase) Execute(ctx context.Context, cmd RotateCredentialCommand) (*RotateCredentialResult, error) {
	if cmd.CredentialSID == "" {
		return nil, errors.NewValidationError("credential SID is required")
	}
	if cmd.TTLDays < 0 {
		return nil, errors.NewValidationError("credential TTL cannot be negative")
	}

	previous, err := uc.credRepo.GetBySID(ctx, cmd.CredentialSID)
	if err != nil {
		return nil, err
	}

	dev, err := uc.deviceRepo.GetByID(ctx, previous.DeviceID())
	if err != nil {
		return nil, err
	}
	if cmd.TenantID != 0 && dev.TenantID() != cmd.TenantID {
		return nil, errors.NewNotFoundError("credential not found")
	}

	if previous.IsRevoked() {
		return nil, errors.NewConflictError("cannot rotate a revoked credential")
	}

	sid, err := id.NewCredentialID()
	if err != nil {
		uc.logger.Errorw("failed to generate credential SID", "error", err)
		return nil, errors.NewInternalError("failed to generate credential identifier")
	}

	ttlDays := cmd.TTLDays
	if ttlDays == 0 {
		ttlDays = uc.credConfig.DefaultTTLDays
	}
	var expiresAt *time.Time
	if ttlDays > 0 {
		at := time.Now().AddDate(0, 0, ttlDays)
		expiresAt = &at
	}

	plainSecret, next, err := device.RotateCredential(id.FormatCredentialID(sid), previous, expiresAt)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	err = uc.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.credRepo.Create(txCtx, next); err != nil {
			return err
		}
		return uc.credRepo.Update(txCtx, previous)
	})
	if err != nil {
		uc.logger.Errorw("failed to rotate credential", "credential_sid", cmd.CredentialSID, "error", err)
		return nil, err
	}

	publishEvent(uc.dispatcher, uc.logger, device.NewCredentialRevokedEvent(previous.SID(), dev.SID(), "superseded by rotation"))
	publishEvent(uc.dispatcher, uc.logger, device.NewCredentialIssuedEvent(next.SID(), dev.SID(), next.Label(), expiresAt))

	uc.logger.Infow("credential rotated",
		"old_credential_sid", previous.SID(),
		"new_credential_sid", next.SID(),
	)

	return &RotateCredentialResult{
		Credential:           toCredentialDTO(next),
		PlainSecret:          plainSecret,
		RevokedCredentialSID: previous.SID(),
	}, nil
}
