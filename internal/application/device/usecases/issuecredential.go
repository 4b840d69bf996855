package usecases

import (
	"context"
	"time"

	"veritime/internal/domain/device"
	"veritime/internal/domain/shared/events"
	"veritime/internal/shared/config"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/id"
	"veritime/internal/shared/logger"
)

type IssueCredentialCommand struct {
	DeviceSID string
	TenantID  uint

	Label          string
	TTLDays        int
	PerMinuteQuota int
	IPAllowlist    []string
}

// IssueCredentialResult carries the plaintext secret. This is the only
// place it ever appears; it is not stored and cannot be recovered.
type IssueCredentialResult struct {
	Credential  *CredentialDTO
	PlainSecret string
}

type IssueCredentialUseCase struct {
	deviceRepo device.DeviceRepository
	credRepo   device.CredentialRepository
	dispatcher events.EventPublisher
	credConfig config.CredentialConfig
	logger     logger.Interface
}

func NewIssueCredentialUseCase(
	deviceRepo device.DeviceRepository,
	credRepo device.CredentialRepository,
	dispatcher events.EventPublisher,
	credConfig config.CredentialConfig,
	logger logger.Interface,
) *IssueCredentialUseCase {
	return &IssueCredentialUseCase{
		deviceRepo: deviceRepo,
		credRepo:   credRepo,
		dispatcher: dispatcher,
		credConfig: credConfig,
		logger:     logger,
	}
}

func (uc *IssueCredentialUseCase) Execute(ctx context.Context, cmd IssueCredentialCommand) (*IssueCredentialResult, error) {
	if err := uc.validateCommand(cmd); err != nil {
		return nil, err
	}

	dev, err := uc.deviceRepo.GetBySID(ctx, cmd.DeviceSID)
	if err != nil {
		return nil, err
	}

	if cmd.TenantID != 0 && dev.TenantID() != cmd.TenantID {
		return nil, errors.NewNotFoundError("device not found")
	}

	if dev.Status().IsDecommissioned() {
		return nil, errors.NewConflictError("cannot issue credentials for a decommissioned device")
	}

	expiresAt := uc.expiryFor(cmd.TTLDays)

	sid, err := id.NewCredentialID()
	if err != nil {
		uc.logger.Errorw("failed to generate credential SID", "error", err)
		return nil, errors.NewInternalError("failed to generate credential identifier")
	}

	plainSecret, cred, err := device.IssueCredential(
		id.FormatCredentialID(sid),
		dev.ID(),
		cmd.Label,
		expiresAt,
		cmd.PerMinuteQuota,
	)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	if len(cmd.IPAllowlist) > 0 {
		if err := cred.UpdateIPAllowlist(cmd.IPAllowlist); err != nil {
			return nil, errors.NewValidationError(err.Error())
		}
	}

	if err := uc.credRepo.Create(ctx, cred); err != nil {
		uc.logger.Errorw("failed to create credential", "device_sid", cmd.DeviceSID, "error", err)
		return nil, err
	}

	publishEvent(uc.dispatcher, uc.logger, device.NewCredentialIssuedEvent(cred.SID(), dev.SID(), cmd.Label, expiresAt))

	uc.logger.Infow("credential issued",
		"credential_sid", cred.SID(),
		"device_sid", dev.SID(),
		"expires_at", expiresAt,
	)

	return &IssueCredentialResult{
		Credential:  toCredentialDTO(cred),
		PlainSecret: plainSecret,
	}, nil
}

func (uc *IssueCredentialUseCase) validateCommand(cmd IssueCredentialCommand) error {
	if cmd.DeviceSID == "" {
		return errors.NewValidationError("device SID is required")
	}

	if cmd.TTLDays < 0 {
		return errors.NewValidationError("credential TTL cannot be negative")
	}

	if cmd.PerMinuteQuota < 0 {
		return errors.NewValidationError("per-minute quota cannot be negative")
	}

	return nil
}

// expiryFor resolves the requested TTL against the configured default.
// A zero configured default means credentials without an explicit TTL
// never expire.
func (uc *IssueCredentialUseCase) expiryFor(ttlDays int) *time.Time {
	if ttlDays == 0 {
		ttlDays = uc.credConfig.DefaultTTLDays
	}
	if ttlDays <= 0 {
		return nil
	}

	expiresAt := time.Now().AddDate(0, 0, ttlDays)
	return &expiresAt
}
